package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"assurcore-backend/core-service/middleware"
	"assurcore-backend/shared/apperrors"
)

// EventStream is satisfied by *events.Hub.
type EventStream interface {
	Serve(w http.ResponseWriter, r *http.Request, organizationID uuid.UUID)
}

type EventsHandler struct {
	stream EventStream
}

func NewEventsHandler(stream EventStream) *EventsHandler {
	return &EventsHandler{stream: stream}
}

func (h *EventsHandler) RegisterRoutes(ws *gin.RouterGroup) {
	ws.GET("/organizations/events", h.StreamOrganizationEvents)
}

// StreamOrganizationEvents upgrades to a websocket streaming organization
// events the tenant can see
// @Summary Organization event stream
// @Description WebSocket feed of organization.created, organization.updated and organization.deleted events for the caller's organization subtree. Browsers may pass the token as access_token.
// @Tags events
// @Param access_token query string false "JWT when the Authorization header cannot be set"
// @Security BearerAuth
// @Success 101 "Switching Protocols"
// @Failure 403 {object} middleware.UnifiedResponse "Tenant required"
// @Router /ws/organizations/events [get]
func (h *EventsHandler) StreamOrganizationEvents(c *gin.Context) {
	tc := middleware.TenantFrom(c)
	if err := tc.Require("stream organization events"); err != nil {
		middleware.Failure(c, err)
		return
	}
	if !c.IsWebsocket() {
		middleware.Failure(c, apperrors.InvalidQuery("websocket upgrade required"))
		return
	}
	h.stream.Serve(c.Writer, c.Request, tc.OrganizationID)
}
