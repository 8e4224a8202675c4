package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"assurcore-backend/shared/config"
	"assurcore-backend/shared/metrics"
)

const visibleSetPrefix = "tenant:visible:"

// CacheManager caches visible organization sets in redis. A nil
// *CacheManager is valid and behaves as an always-missing cache.
type CacheManager struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

type VisibleSetCacheData struct {
	OrganizationID uuid.UUID   `json:"organization_id"`
	VisibleIDs     []uuid.UUID `json:"visible_ids"`
	CachedAt       time.Time   `json:"cached_at"`
}

// NewRedisClient builds a client from configuration without connecting.
func NewRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.GetRedisDB(),
	})
}

func NewCacheManager(client *redis.Client, ttl time.Duration, log *logrus.Logger) *CacheManager {
	return &CacheManager{client: client, ttl: ttl, log: log}
}

// InitCacheManager connects to redis and returns nil (cache disabled) when
// redis is disabled or unreachable.
func InitCacheManager(ctx context.Context, cfg *config.Config, log *logrus.Logger) *CacheManager {
	if !cfg.RedisEnabled {
		log.Info("redis disabled, visible set cache is off")
		return nil
	}

	client := NewRedisClient(cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable, visible set cache is off")
		_ = client.Close()
		return nil
	}

	log.WithFields(logrus.Fields{
		"addr": fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		"db":   cfg.GetRedisDB(),
	}).Info("redis cache manager initialized")
	return NewCacheManager(client, cfg.VisibleSetCacheTTL, log)
}

func VisibleSetKey(orgID uuid.UUID) string {
	return visibleSetPrefix + orgID.String()
}

// Client exposes the underlying connection for other redis consumers.
func (cm *CacheManager) Client() *redis.Client {
	if cm == nil {
		return nil
	}
	return cm.client
}

func (cm *CacheManager) GetVisibleSet(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, bool) {
	if cm == nil || cm.client == nil {
		return nil, false
	}

	key := VisibleSetKey(orgID)
	result, err := cm.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cm.log.WithError(err).WithField("key", key).Warn("visible set cache read failed")
		}
		metrics.RecordCacheRequest(false)
		return nil, false
	}

	var data VisibleSetCacheData
	if err := json.Unmarshal([]byte(result), &data); err != nil {
		cm.log.WithError(err).WithField("key", key).Warn("visible set cache entry is corrupt")
		metrics.RecordCacheRequest(false)
		return nil, false
	}

	metrics.RecordCacheRequest(true)
	return data.VisibleIDs, true
}

func (cm *CacheManager) SetVisibleSet(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) error {
	if cm == nil || cm.client == nil {
		return nil
	}

	payload, err := json.Marshal(VisibleSetCacheData{
		OrganizationID: orgID,
		VisibleIDs:     ids,
		CachedAt:       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal visible set: %w", err)
	}

	if err := cm.client.Set(ctx, VisibleSetKey(orgID), payload, cm.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache visible set: %w", err)
	}
	return nil
}

// InvalidateVisibleSets drops the cached sets of the given organizations.
func (cm *CacheManager) InvalidateVisibleSets(ctx context.Context, orgIDs ...uuid.UUID) error {
	if cm == nil || cm.client == nil || len(orgIDs) == 0 {
		return nil
	}

	keys := make([]string, len(orgIDs))
	for i, id := range orgIDs {
		keys[i] = VisibleSetKey(id)
	}
	if err := cm.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate visible sets: %w", err)
	}

	cm.log.WithField("keys", len(keys)).Debug("visible sets invalidated")
	return nil
}

// InvalidateAllVisibleSets drops every cached set, used after a full rebuild.
func (cm *CacheManager) InvalidateAllVisibleSets(ctx context.Context) error {
	if cm == nil || cm.client == nil {
		return nil
	}
	return cm.invalidateByPattern(ctx, visibleSetPrefix+"*")
}

func (cm *CacheManager) invalidateByPattern(ctx context.Context, pattern string) error {
	iter := cm.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	if len(keys) > 0 {
		if err := cm.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete keys: %w", err)
		}
	}
	cm.log.WithFields(logrus.Fields{"pattern": pattern, "keys": len(keys)}).Info("cache invalidated")
	return nil
}

func (cm *CacheManager) Close() error {
	if cm != nil && cm.client != nil {
		return cm.client.Close()
	}
	return nil
}
