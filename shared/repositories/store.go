package repositories

import (
	"context"

	"gorm.io/gorm"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Organizations() OrganizationRepository {
	return NewOrganizationRepository(s.db)
}

func (s *GormStore) Hierarchy() HierarchyRepository {
	return NewHierarchyRepository(s.db)
}

func (s *GormStore) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
