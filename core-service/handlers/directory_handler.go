package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"assurcore-backend/core-service/middleware"
	"assurcore-backend/core-service/services"
	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/database/models/audit"
	"assurcore-backend/shared/tenant"
	"assurcore-backend/shared/utils/query"
)

// DirectoryService lists tenant-owned records.
type DirectoryService interface {
	ListUsers(ctx context.Context, tc tenant.Context, params query.FilterParams, includeDescendants bool) (*services.Page[models.User], error)
	ListRoles(ctx context.Context, tc tenant.Context, params query.FilterParams, includeDescendants bool) (*services.Page[models.Role], error)
	ListAuditLogs(ctx context.Context, tc tenant.Context, params query.FilterParams, includeDescendants bool) (*services.Page[audit.AuditLog], error)
}

type DirectoryHandler struct {
	directory DirectoryService
}

func NewDirectoryHandler(directory DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

func (h *DirectoryHandler) RegisterRoutes(api *gin.RouterGroup) {
	scoped := api.Group("", middleware.RequireTenant())
	scoped.GET("/users", h.ListUsers)
	scoped.GET("/roles", h.ListRoles)
	scoped.GET("/audit-logs", h.ListAuditLogs)
}

// ListUsers retrieves users of the organizations visible to the tenant
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10)"
// @Param search query string false "Search term across email, first name and last name"
// @Param filters[status] query string false "Filter by status"
// @Param filters[role_id] query string false "Filter by role ID"
// @Param include_descendants query bool false "Include users of descendant organizations (default: true)"
// @Param sort[field] query string false "Sort field (email, first_name, last_name, created_at)"
// @Param sort[order] query string false "Sort order (asc, desc)"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse
// @Failure 403 {object} middleware.UnifiedResponse "Tenant required"
// @Router /users [get]
func (h *DirectoryHandler) ListUsers(c *gin.Context) {
	page, err := h.directory.ListUsers(c.Request.Context(), middleware.TenantFrom(c), query.ParseQueryParams(c), includeDescendants(c))
	if err != nil {
		middleware.Failure(c, err)
		return
	}
	middleware.Success(c, http.StatusOK, "", page)
}

// ListRoles retrieves roles of the organizations visible to the tenant
// @Summary List roles
// @Tags roles
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10)"
// @Param search query string false "Search term across name and description"
// @Param filters[is_default] query bool false "Filter by default flag"
// @Param include_descendants query bool false "Include roles of descendant organizations (default: true)"
// @Param sort[field] query string false "Sort field (name, created_at)"
// @Param sort[order] query string false "Sort order (asc, desc)"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse
// @Failure 403 {object} middleware.UnifiedResponse "Tenant required"
// @Router /roles [get]
func (h *DirectoryHandler) ListRoles(c *gin.Context) {
	page, err := h.directory.ListRoles(c.Request.Context(), middleware.TenantFrom(c), query.ParseQueryParams(c), includeDescendants(c))
	if err != nil {
		middleware.Failure(c, err)
		return
	}
	middleware.Success(c, http.StatusOK, "", page)
}

// ListAuditLogs retrieves audit entries of the organizations visible to the tenant
// @Summary List audit logs
// @Tags audit
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10)"
// @Param filters[event_type] query string false "Filter by event type"
// @Param filters[entity_id] query string false "Filter by entity ID"
// @Param include_descendants query bool false "Include entries of descendant organizations (default: true)"
// @Param sort[field] query string false "Sort field (occurred_at, event_type, created_at)"
// @Param sort[order] query string false "Sort order (asc, desc)"
// @Security BearerAuth
// @Success 200 {object} middleware.UnifiedResponse
// @Failure 403 {object} middleware.UnifiedResponse "Tenant required"
// @Router /audit-logs [get]
func (h *DirectoryHandler) ListAuditLogs(c *gin.Context) {
	page, err := h.directory.ListAuditLogs(c.Request.Context(), middleware.TenantFrom(c), query.ParseQueryParams(c), includeDescendants(c))
	if err != nil {
		middleware.Failure(c, err)
		return
	}
	middleware.Success(c, http.StatusOK, "", page)
}
