package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"assurcore-backend/shared/apperrors"
)

const (
	requestIDKey = "request_id"
	startedAtKey = "request_started_at"

	// RequestIDHeader is echoed back on every response.
	RequestIDHeader = "X-Request-ID"
)

// UnifiedResponse represents the standard API response format
type UnifiedResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *MetaInfo   `json:"meta"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Details string `json:"details"`
}

// MetaInfo represents response metadata
type MetaInfo struct {
	RequestID     string `json:"request_id"`
	Timestamp     string `json:"timestamp"`
	ExecutionTime string `json:"execution_time"`
	Method        string `json:"method"`
	Path          string `json:"path"`
}

// RequestContext assigns a request id and logs every request once it
// completes.
func RequestContext(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Set(startedAtKey, startTime)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		if shouldSkipRequestLog(c.Request.URL.Path) {
			return
		}
		fields := logrus.Fields{
			"request_id":  requestID,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(startTime).Milliseconds(),
			"client_ip":   c.ClientIP(),
		}
		if tc := TenantFrom(c); tc.Present() {
			fields["organization_id"] = tc.OrganizationID
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.String()
		}
		entry := log.WithFields(fields)
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}

// Success writes data in the unified envelope. An empty message falls back
// to one derived from the method.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if message == "" {
		message = getAutoMessage(c.Request.Method, status, true)
	}
	c.JSON(status, UnifiedResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    buildMeta(c),
	})
}

// Failure maps err to its status and writes the unified error envelope.
// Causes of internal errors are logged under the request id, never returned.
func Failure(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	status := apperrors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	abortWith(c, status, code, apperrors.MessageOf(err))
}

// BadRequest reports a malformed request body or parameter.
func BadRequest(c *gin.Context, details string) {
	abortWith(c, http.StatusBadRequest, apperrors.CodeInvalidQuery, details)
}

func abortWith(c *gin.Context, status int, code apperrors.Code, details string) {
	c.AbortWithStatusJSON(status, UnifiedResponse{
		Success: false,
		Message: getAutoMessage(c.Request.Method, status, false),
		Error:   &ErrorInfo{Code: string(code), Details: details},
		Meta:    buildMeta(c),
	})
}

// RequestID returns the id assigned by RequestContext.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func buildMeta(c *gin.Context) *MetaInfo {
	executionTime := time.Duration(0)
	if started, ok := c.Get(startedAtKey); ok {
		if t, ok := started.(time.Time); ok {
			executionTime = time.Since(t)
		}
	}
	return &MetaInfo{
		RequestID:     RequestID(c),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		ExecutionTime: fmt.Sprintf("%dms", executionTime.Milliseconds()),
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
	}
}

// getAutoMessage generates appropriate success/error messages
func getAutoMessage(method string, statusCode int, isSuccess bool) string {
	if isSuccess {
		switch method {
		case http.MethodPost:
			return "Record created successfully"
		case http.MethodPut, http.MethodPatch:
			return "Record updated successfully"
		case http.MethodDelete:
			return "Record deleted successfully"
		case http.MethodGet:
			return "Data retrieved successfully"
		default:
			return "Operation completed successfully"
		}
	}

	switch statusCode {
	case http.StatusBadRequest:
		return "Invalid request data"
	case http.StatusUnauthorized:
		return "Authentication required"
	case http.StatusForbidden:
		return "Permission denied"
	case http.StatusNotFound:
		return "Resource not found"
	case http.StatusConflict:
		return "Request conflicts with current state"
	case http.StatusUnprocessableEntity:
		return "Validation failed"
	case http.StatusInternalServerError:
		return "Internal server error"
	default:
		return "Operation failed"
	}
}

func shouldSkipRequestLog(path string) bool {
	for _, prefix := range []string{"/swagger", "/health", "/metrics"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
