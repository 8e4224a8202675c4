package services

import (
	"context"

	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/database/models/audit"
	"assurcore-backend/shared/repositories"
	"assurcore-backend/shared/tenant"
	"assurcore-backend/shared/utils/query"
)

// DirectoryService lists records owned by the organizations a tenant can see.
type DirectoryService struct {
	repo    repositories.DirectoryRepository
	tenants *TenantFilterResolver
}

func NewDirectoryService(repo repositories.DirectoryRepository, tenants *TenantFilterResolver) *DirectoryService {
	return &DirectoryService{repo: repo, tenants: tenants}
}

type Page[T any] struct {
	Items      []T                      `json:"items"`
	Pagination query.PaginationResponse `json:"pagination"`
}

func newPage[T any](items []T, params query.FilterParams, total int64) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Pagination: query.BuildPaginationResponse(params.Page, params.Limit, total)}
}

func (s *DirectoryService) ListUsers(ctx context.Context, tc tenant.Context, params query.FilterParams, includeDescendants bool) (*Page[models.User], error) {
	filter, err := s.tenants.ResolveRequired(ctx, tc, "list users", includeDescendants)
	if err != nil {
		return nil, err
	}
	params = query.Normalize(params)
	users, total, err := s.repo.ListUsers(ctx, filter, params)
	if err != nil {
		return nil, err
	}
	return newPage(users, params, total), nil
}

func (s *DirectoryService) ListRoles(ctx context.Context, tc tenant.Context, params query.FilterParams, includeDescendants bool) (*Page[models.Role], error) {
	filter, err := s.tenants.ResolveRequired(ctx, tc, "list roles", includeDescendants)
	if err != nil {
		return nil, err
	}
	params = query.Normalize(params)
	roles, total, err := s.repo.ListRoles(ctx, filter, params)
	if err != nil {
		return nil, err
	}
	return newPage(roles, params, total), nil
}

func (s *DirectoryService) ListAuditLogs(ctx context.Context, tc tenant.Context, params query.FilterParams, includeDescendants bool) (*Page[audit.AuditLog], error) {
	filter, err := s.tenants.ResolveRequired(ctx, tc, "list audit logs", includeDescendants)
	if err != nil {
		return nil, err
	}
	params = query.Normalize(params)
	logs, total, err := s.repo.ListAuditLogs(ctx, filter, params)
	if err != nil {
		return nil, err
	}
	return newPage(logs, params, total), nil
}
