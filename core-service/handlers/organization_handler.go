package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"assurcore-backend/core-service/middleware"
	"assurcore-backend/core-service/services"
	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/tenant"
	"assurcore-backend/shared/utils/query"
)

// OrganizationService is the part of services.OrganizationService the
// handlers use.
type OrganizationService interface {
	CreateOrganization(ctx context.Context, tc tenant.Context, cmd services.CreateOrganizationCommand) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, tc tenant.Context, cmd services.UpdateOrganizationCommand) (*models.Organization, error)
	GetOrganization(ctx context.Context, tc tenant.Context, q services.GetOrganizationQuery) (*models.Organization, error)
	ListOrganizations(ctx context.Context, tc tenant.Context, q services.ListOrganizationsQuery) (*services.OrganizationPage, error)
	DeleteOrganization(ctx context.Context, tc tenant.Context, id uuid.UUID) error
	Activate(ctx context.Context, tc tenant.Context, id uuid.UUID) (*models.Organization, error)
	Deactivate(ctx context.Context, tc tenant.Context, id uuid.UUID) (*models.Organization, error)
	Suspend(ctx context.Context, tc tenant.Context, id uuid.UUID) (*models.Organization, error)
	Archive(ctx context.Context, tc tenant.Context, id uuid.UUID) (*models.Organization, error)
	GetOrganizationHierarchy(ctx context.Context, tc tenant.Context, rootID uuid.UUID) (*services.OrganizationNode, error)
}

// HierarchyQueries is the read side of services.HierarchyService.
type HierarchyQueries interface {
	GetAllDescendantIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
	GetAllAncestorIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
	GetVisibleOrganizationIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
	GetOrganizationPath(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
	IsAncestorOf(ctx context.Context, ancestorID, descendantID uuid.UUID) (bool, error)
}

type OrganizationHandler struct {
	orgs      OrganizationService
	hierarchy HierarchyQueries
}

func NewOrganizationHandler(orgs OrganizationService, hierarchy HierarchyQueries) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, hierarchy: hierarchy}
}

// CreateOrganizationRequest represents request body for creating organization
type CreateOrganizationRequest struct {
	Name        string     `json:"name" binding:"required"`
	Code        string     `json:"code" binding:"required"`
	Type        string     `json:"type" binding:"required"`
	Status      string     `json:"status"`
	Description string     `json:"description"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Country     string     `json:"country"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

// UpdateOrganizationRequest changes only the fields present in the body.
// Version is the version the client last read.
type UpdateOrganizationRequest struct {
	Version     int64      `json:"version" binding:"required"`
	Name        *string    `json:"name"`
	Code        *string    `json:"code"`
	Type        *string    `json:"type"`
	Description *string    `json:"description"`
	Email       *string    `json:"email"`
	Phone       *string    `json:"phone"`
	Country     *string    `json:"country"`
	ParentID    *uuid.UUID `json:"parent_id"`
	MoveToRoot  bool       `json:"move_to_root"`
}

// OrganizationIDsResponse lists organization ids for hierarchy queries
type OrganizationIDsResponse struct {
	OrganizationID uuid.UUID   `json:"organization_id"`
	IDs            []uuid.UUID `json:"ids"`
}

// AncestryResponse answers an is-ancestor-of query
type AncestryResponse struct {
	AncestorID   uuid.UUID `json:"ancestor_id"`
	DescendantID uuid.UUID `json:"descendant_id"`
	IsAncestor   bool      `json:"is_ancestor"`
}

func (h *OrganizationHandler) RegisterRoutes(api *gin.RouterGroup) {
	orgs := api.Group("/organizations")
	orgs.GET("", h.ListOrganizations)
	orgs.POST("", h.CreateOrganization)
	orgs.GET("/by-code/:code", h.GetOrganizationByCode)
	orgs.GET("/:id", h.GetOrganization)
	orgs.PUT("/:id", middleware.RequireTenant(), h.UpdateOrganization)
	orgs.DELETE("/:id", middleware.RequireTenant(), h.DeleteOrganization)
	orgs.POST("/:id/activate", middleware.RequireTenant(), h.ActivateOrganization)
	orgs.POST("/:id/deactivate", middleware.RequireTenant(), h.DeactivateOrganization)
	orgs.POST("/:id/suspend", middleware.RequireTenant(), h.SuspendOrganization)
	orgs.POST("/:id/archive", middleware.RequireTenant(), h.ArchiveOrganization)
	orgs.GET("/:id/hierarchy", h.GetOrganizationHierarchy)
	orgs.GET("/:id/path", h.GetOrganizationPath)
	orgs.GET("/:id/ancestors", h.GetAncestors)
	orgs.GET("/:id/descendants", h.GetDescendants)
	orgs.GET("/:id/visible", h.GetVisibleOrganizations)
	orgs.GET("/:id/is-ancestor-of/:other", h.IsAncestorOf)
}

// ListOrganizations retrieves the organizations visible to the tenant
// @Summary List organizations
// @Description List organizations visible to the caller's organization with pagination, filtering, sorting and search
// @Tags organizations
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10)"
// @Param search query string false "Search term across name and code"
// @Param filters[type] query string false "Filter by organization type"
// @Param filters[status] query string false "Filter by status (PENDING, ACTIVE, INACTIVE, SUSPENDED, ARCHIVED)"
// @Param filters[parent_id] query string false "Filter by parent organization ID"
// @Param roots_only query bool false "Only organizations without a parent"
// @Param include_descendants query bool false "Include descendant organizations (default: true)"
// @Param sort[field] query string false "Sort field (name, code, type, status, created_at, updated_at)"
// @Param sort[order] query string false "Sort order (asc, desc)"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=services.OrganizationPage}
// @Failure 400 {object} middleware.UnifiedResponse
// @Failure 401 {object} middleware.UnifiedResponse
// @Router /organizations [get]
func (h *OrganizationHandler) ListOrganizations(c *gin.Context) {
	params := query.ParseQueryParams(c)

	q := services.ListOrganizationsQuery{
		Type:               models.OrganizationType(params.Filters["type"]),
		Status:             models.OrganizationStatus(params.Filters["status"]),
		RootsOnly:          c.Query("roots_only") == "true",
		SearchTerm:         params.Search,
		SortField:          params.Sort.Field,
		SortOrder:          params.Sort.Order,
		Page:               params.Page,
		Limit:              params.Limit,
		ExcludeDescendants: !includeDescendants(c),
	}
	if raw, ok := params.Filters["parent_id"]; ok {
		parentID, err := uuid.Parse(raw)
		if err != nil {
			middleware.BadRequest(c, "filters[parent_id] must be a UUID")
			return
		}
		q.ParentID = &parentID
	}

	page, err := h.orgs.ListOrganizations(c.Request.Context(), middleware.TenantFrom(c), q)
	if err != nil {
		middleware.Failure(c, err)
		return
	}
	middleware.Success(c, http.StatusOK, "", page)
}

// CreateOrganization creates an organization, optionally below a parent
// @Summary Create organization
// @Description Create an organization and index it in the hierarchy. With a tenant, the parent must be visible to it.
// @Tags organizations
// @Accept json
// @Produce json
// @Param organization body CreateOrganizationRequest true "Organization data"
// @Security BearerAuth
// @Success 201 {object} middleware.UnifiedResponse{data=models.Organization}
// @Failure 400 {object} middleware.UnifiedResponse
// @Failure 409 {object} middleware.UnifiedResponse "Code already exists"
// @Failure 422 {object} middleware.UnifiedResponse "Invalid parent or validation failed"
// @Router /organizations [post]
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}

	org, err := h.orgs.CreateOrganization(c.Request.Context(), middleware.TenantFrom(c), services.CreateOrganizationCommand{
		Name:        req.Name,
		Code:        req.Code,
		Type:        models.OrganizationType(req.Type),
		Status:      models.OrganizationStatus(req.Status),
		Description: req.Description,
		Email:       req.Email,
		Phone:       req.Phone,
		Country:     req.Country,
		ParentID:    req.ParentID,
	})
	if err != nil {
		middleware.Failure(c, err)
		return
	}
	middleware.Success(c, http.StatusCreated, "Organization created successfully", org)
}

// GetOrganization retrieves an organization by ID
// @Summary Get organization
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=models.Organization}
// @Failure 404 {object} middleware.UnifiedResponse
// @Router /organizations/{id} [get]
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	org, err := h.orgs.GetOrganization(c.Request.Context(), middleware.TenantFrom(c), services.GetOrganizationQuery{ID: &id})
	if err != nil {
		middleware.Failure(c, err)
		return
	}
	middleware.Success(c, http.StatusOK, "", org)
}

// GetOrganizationByCode retrieves an organization by its unique code
// @Summary Get organization by code
// @Tags organizations
// @Produce json
// @Param code path string true "Organization code"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=models.Organization}
// @Failure 404 {object} middleware.UnifiedResponse
// @Router /organizations/by-code/{code} [get]
func (h *OrganizationHandler) GetOrganizationByCode(c *gin.Context) {
	org, err := h.orgs.GetOrganization(c.Request.Context(), middleware.TenantFrom(c), services.GetOrganizationQuery{Code: c.Param("code")})
	if err != nil {
		middleware.Failure(c, err)
		return
	}
	middleware.Success(c, http.StatusOK, "", org)
}

// UpdateOrganization updates an organization and re-parents it when asked
// @Summary Update organization
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path string true "Organization ID"
// @Param organization body UpdateOrganizationRequest true "Changed fields"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=models.Organization}
// @Failure 403 {object} middleware.UnifiedResponse "Tenant required"
// @Failure 404 {object} middleware.UnifiedResponse
// @Failure 409 {object} middleware.UnifiedResponse "Stale version or duplicate code"
// @Failure 422 {object} middleware.UnifiedResponse "Invalid parent"
// @Router /organizations/{id} [put]
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}

	cmd := services.UpdateOrganizationCommand{
		ID:          id,
		Version:     req.Version,
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Email:       req.Email,
		Phone:       req.Phone,
		Country:     req.Country,
		ParentID:    req.ParentID,
		MoveToRoot:  req.MoveToRoot,
	}
	if req.Type != nil {
		orgType := models.OrganizationType(*req.Type)
		cmd.Type = &orgType
	}

	org, err := h.orgs.UpdateOrganization(c.Request.Context(), middleware.TenantFrom(c), cmd)
	if err != nil {
		middleware.Failure(c, err)
		return
	}
	middleware.Success(c, http.StatusOK, "Organization updated successfully", org)
}

// DeleteOrganization deletes a leaf organization nothing depends on
// @Summary Delete organization
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse
// @Failure 403 {object} middleware.UnifiedResponse "Tenant required"
// @Failure 404 {object} middleware.UnifiedResponse
// @Failure 409 {object} middleware.UnifiedResponse "Has children or still in use"
// @Router /organizations/{id} [delete]
func (h *OrganizationHandler) DeleteOrganization(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.orgs.DeleteOrganization(c.Request.Context(), middleware.TenantFrom(c), id); err != nil {
		middleware.Failure(c, err)
		return
	}
	middleware.Success(c, http.StatusOK, "Organization deleted successfully", nil)
}

type statusChange func(ctx context.Context, tc tenant.Context, id uuid.UUID) (*models.Organization, error)

func (h *OrganizationHandler) changeStatus(c *gin.Context, change statusChange) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	org, err := change(c.Request.Context(), middleware.TenantFrom(c), id)
	if err != nil {
		middleware.Failure(c, err)
		return
	}
	middleware.Success(c, http.StatusOK, "Organization status updated", org)
}

// ActivateOrganization moves an organization to ACTIVE
// @Summary Activate organization
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=models.Organization}
// @Failure 409 {object} middleware.UnifiedResponse "Transition not allowed"
// @Router /organizations/{id}/activate [post]
func (h *OrganizationHandler) ActivateOrganization(c *gin.Context) {
	h.changeStatus(c, h.orgs.Activate)
}

// DeactivateOrganization moves an organization to INACTIVE
// @Summary Deactivate organization
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=models.Organization}
// @Failure 409 {object} middleware.UnifiedResponse "Transition not allowed"
// @Router /organizations/{id}/deactivate [post]
func (h *OrganizationHandler) DeactivateOrganization(c *gin.Context) {
	h.changeStatus(c, h.orgs.Deactivate)
}

// SuspendOrganization moves an organization to SUSPENDED
// @Summary Suspend organization
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=models.Organization}
// @Failure 409 {object} middleware.UnifiedResponse "Transition not allowed"
// @Router /organizations/{id}/suspend [post]
func (h *OrganizationHandler) SuspendOrganization(c *gin.Context) {
	h.changeStatus(c, h.orgs.Suspend)
}

// ArchiveOrganization moves an organization to ARCHIVED
// @Summary Archive organization
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=models.Organization}
// @Failure 409 {object} middleware.UnifiedResponse "Transition not allowed"
// @Router /organizations/{id}/archive [post]
func (h *OrganizationHandler) ArchiveOrganization(c *gin.Context) {
	h.changeStatus(c, h.orgs.Archive)
}

// GetOrganizationHierarchy returns the subtree rooted at an organization
// @Summary Get organization tree
// @Tags organizations
// @Produce json
// @Param id path string true "Root organization ID"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=services.OrganizationNode}
// @Failure 404 {object} middleware.UnifiedResponse
// @Router /organizations/{id}/hierarchy [get]
func (h *OrganizationHandler) GetOrganizationHierarchy(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	tree, err := h.orgs.GetOrganizationHierarchy(c.Request.Context(), middleware.TenantFrom(c), id)
	if err != nil {
		middleware.Failure(c, err)
		return
	}
	middleware.Success(c, http.StatusOK, "", tree)
}

// GetOrganizationPath returns the ids from the root down to an organization,
// starting at the topmost one the tenant can see
// @Summary Get organization path
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=OrganizationIDsResponse}
// @Failure 404 {object} middleware.UnifiedResponse
// @Router /organizations/{id}/path [get]
func (h *OrganizationHandler) GetOrganizationPath(c *gin.Context) {
	h.listIDs(c, h.hierarchy.GetOrganizationPath, true)
}

// GetAncestors returns the ancestor ids the tenant can see, nearest first
// @Summary Get ancestor ids
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=OrganizationIDsResponse}
// @Failure 404 {object} middleware.UnifiedResponse
// @Router /organizations/{id}/ancestors [get]
func (h *OrganizationHandler) GetAncestors(c *gin.Context) {
	h.listIDs(c, h.hierarchy.GetAllAncestorIDs, true)
}

// GetDescendants returns descendant ids, nearest first
// @Summary Get descendant ids
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=OrganizationIDsResponse}
// @Failure 404 {object} middleware.UnifiedResponse
// @Router /organizations/{id}/descendants [get]
func (h *OrganizationHandler) GetDescendants(c *gin.Context) {
	h.listIDs(c, h.hierarchy.GetAllDescendantIDs, false)
}

// GetVisibleOrganizations returns the organization and all its descendants
// @Summary Get visible organization ids
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=OrganizationIDsResponse}
// @Failure 404 {object} middleware.UnifiedResponse
// @Router /organizations/{id}/visible [get]
func (h *OrganizationHandler) GetVisibleOrganizations(c *gin.Context) {
	h.listIDs(c, h.hierarchy.GetVisibleOrganizationIDs, false)
}

// listIDs answers with the ids list returns for the path organization.
// Lists that walk upwards are cut down to the tenant's visible set.
func (h *OrganizationHandler) listIDs(c *gin.Context, list func(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error), upwards bool) {
	id, ok := h.visibleID(c, "id")
	if !ok {
		return
	}
	ids, err := list(c.Request.Context(), id)
	if err != nil {
		middleware.Failure(c, err)
		return
	}
	if upwards {
		if ids, err = h.onlyVisible(c, ids); err != nil {
			middleware.Failure(c, err)
			return
		}
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	middleware.Success(c, http.StatusOK, "", OrganizationIDsResponse{OrganizationID: id, IDs: ids})
}

// IsAncestorOf reports whether one organization is a proper ancestor of another
// @Summary Check ancestry
// @Tags organizations
// @Produce json
// @Param id path string true "Candidate ancestor ID"
// @Param other path string true "Candidate descendant ID"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse{data=AncestryResponse}
// @Failure 404 {object} middleware.UnifiedResponse
// @Router /organizations/{id}/is-ancestor-of/{other} [get]
func (h *OrganizationHandler) IsAncestorOf(c *gin.Context) {
	ancestorID, ok := h.visibleID(c, "id")
	if !ok {
		return
	}
	descendantID, ok := h.visibleID(c, "other")
	if !ok {
		return
	}
	isAncestor, err := h.hierarchy.IsAncestorOf(c.Request.Context(), ancestorID, descendantID)
	if err != nil {
		middleware.Failure(c, err)
		return
	}
	middleware.Success(c, http.StatusOK, "", AncestryResponse{
		AncestorID:   ancestorID,
		DescendantID: descendantID,
		IsAncestor:   isAncestor,
	})
}

// onlyVisible drops the ids outside the tenant's visible set.
func (h *OrganizationHandler) onlyVisible(c *gin.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	tc := middleware.TenantFrom(c)
	if !tc.Present() {
		return ids, nil
	}
	visible := tc.VisibleOrganizationIDs
	if visible == nil {
		var err error
		if visible, err = h.hierarchy.GetVisibleOrganizationIDs(c.Request.Context(), tc.OrganizationID); err != nil {
			return nil, err
		}
	}
	filter := tenant.InSet(visible)

	kept := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if filter.Matches(id) {
			kept = append(kept, id)
		}
	}
	return kept, nil
}

// visibleID parses the path parameter and checks the tenant can see it.
func (h *OrganizationHandler) visibleID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, ok := pathUUID(c, param)
	if !ok {
		return uuid.Nil, false
	}
	if _, err := h.orgs.GetOrganization(c.Request.Context(), middleware.TenantFrom(c), services.GetOrganizationQuery{ID: &id}); err != nil {
		middleware.Failure(c, err)
		return uuid.Nil, false
	}
	return id, true
}

func pathUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		middleware.BadRequest(c, "Invalid "+param+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// includeDescendants defaults to true when the parameter is absent or malformed.
func includeDescendants(c *gin.Context) bool {
	include, err := strconv.ParseBool(c.DefaultQuery("include_descendants", "true"))
	if err != nil {
		return true
	}
	return include
}
