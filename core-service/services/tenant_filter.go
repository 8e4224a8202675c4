package services

import (
	"context"

	"assurcore-backend/shared/tenant"
)

// TenantFilterResolver turns a request's tenant context into the predicate
// applied to tenant-owned queries.
type TenantFilterResolver struct {
	hierarchy *HierarchyService
}

func NewTenantFilterResolver(hierarchy *HierarchyService) *TenantFilterResolver {
	return &TenantFilterResolver{hierarchy: hierarchy}
}

// Resolve returns an unrestricted filter when no tenant is present. A
// precomputed visible set on the context takes precedence over the index.
func (r *TenantFilterResolver) Resolve(ctx context.Context, tc tenant.Context, includeDescendants bool) (tenant.Filter, error) {
	if !tc.Present() {
		return tenant.Unrestricted(), nil
	}
	if !includeDescendants {
		return tenant.SelfOnly(tc.OrganizationID), nil
	}
	if tc.VisibleOrganizationIDs != nil {
		return tenant.InSet(tc.VisibleOrganizationIDs), nil
	}

	visible, err := r.hierarchy.GetVisibleOrganizationIDs(ctx, tc.OrganizationID)
	if err != nil {
		return tenant.Filter{}, err
	}
	return tenant.InSet(visible), nil
}

// ResolveRequired is Resolve for operations that must never run unscoped.
func (r *TenantFilterResolver) ResolveRequired(ctx context.Context, tc tenant.Context, operation string, includeDescendants bool) (tenant.Filter, error) {
	if err := tc.Require(operation); err != nil {
		return tenant.Filter{}, err
	}
	return r.Resolve(ctx, tc, includeDescendants)
}
