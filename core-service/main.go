package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"assurcore-backend/core-service/handlers"
	"assurcore-backend/core-service/middleware"
	"assurcore-backend/core-service/services"
	_ "assurcore-backend/docs"
	"assurcore-backend/shared/config"
	"assurcore-backend/shared/database"
	"assurcore-backend/shared/events"
	"assurcore-backend/shared/logging"
	"assurcore-backend/shared/repositories"
	"assurcore-backend/shared/utils/auth"
	"assurcore-backend/shared/utils/cache"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.LoadConfig()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDatabase(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer database.CloseDatabase()

	visibleSets := cache.InitCacheManager(ctx, cfg, log)
	defer visibleSets.Close()

	stores := repositories.NewGormStore(db)
	hierarchy := services.NewHierarchyService(stores, visibleSets, log)
	tenants := services.NewTenantFilterResolver(hierarchy)

	hub := events.NewHub(hierarchy, cfg.AllowedOrigins, log)
	dispatcher := events.NewDispatcher(log, eventSinks(cfg, db, visibleSets, hub, log)...)

	organizations := services.NewOrganizationService(stores, hierarchy, tenants, dispatcher, log)
	directory := services.NewDirectoryService(repositories.NewDirectoryRepository(db), tenants)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.GetJWTExpireDuration(), cfg.JWTIssuer)

	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestContext(log), cors.New(corsConfig(cfg)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "healthy",
			"service":           "core",
			"websocket_clients": hub.ClientCount(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authenticate := middleware.Authenticate(tokens, cfg.AuthAllowAnonymous)
	api := router.Group("/api", authenticate)
	handlers.NewOrganizationHandler(organizations, hierarchy).RegisterRoutes(api)
	handlers.NewDirectoryHandler(directory).RegisterRoutes(api)
	handlers.NewEventsHandler(hub).RegisterRoutes(router.Group("/ws", authenticate))

	port := config.ServicePort(cfg.CoreServiceURL, "8003")
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", port).Info("core service starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("core service stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down core service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	hub.Close()
	dispatcher.Wait()
	log.Info("core service stopped")
}

// eventSinks wires the audit writer, the redis channel when redis is
// available and the websocket hub.
func eventSinks(cfg *config.Config, db *gorm.DB, visibleSets *cache.CacheManager, hub *events.Hub, log *logrus.Logger) []events.Sink {
	sinks := []events.Sink{hub}
	if cfg.EventsAuditEnabled {
		sinks = append(sinks, events.NewAuditSink(db))
	}
	if client := visibleSets.Client(); client != nil {
		sinks = append(sinks, events.NewRedisSink(client, cfg.EventsRedisChannel))
	}

	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	log.WithField("sinks", names).Info("event sinks configured")
	return sinks
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowOrigins = cfg.AllowedOrigins
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	c.ExposeHeaders = []string{middleware.RequestIDHeader}
	c.AllowCredentials = true
	return c
}
