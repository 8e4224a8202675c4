package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"assurcore-backend/shared/apperrors"
	"assurcore-backend/shared/tenant"
	"assurcore-backend/shared/utils/auth"
)

const tenantKey = "tenant"

// TokenValidator is satisfied by *auth.TokenManager.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Authenticate resolves the bearer token into the request's tenant context.
// Without a token the request proceeds with no tenant only when
// allowAnonymous is set.
func Authenticate(tokens TokenValidator, allowAnonymous bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c)
		if err != nil {
			if errors.Is(err, errNoToken) && allowAnonymous {
				c.Set(tenantKey, tenant.None())
				c.Next()
				return
			}
			unauthorized(c, err.Error())
			return
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}
		orgID, err := claims.OrganizationUUID()
		if err != nil {
			unauthorized(c, "Token carries no organization")
			return
		}
		userID, err := claims.UserUUID()
		if err != nil {
			unauthorized(c, "Token carries an invalid user")
			return
		}

		c.Set(tenantKey, tenant.For(orgID, userID))
		c.Set("user_id", claims.UserID)
		c.Next()
	}
}

// RequireTenant rejects requests that carry no tenant.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := TenantFrom(c).Require(c.Request.Method + " " + c.FullPath()); err != nil {
			Failure(c, err)
			return
		}
		c.Next()
	}
}

// TenantFrom returns the tenant set by Authenticate, or no tenant.
func TenantFrom(c *gin.Context) tenant.Context {
	if v, ok := c.Get(tenantKey); ok {
		if tc, ok := v.(tenant.Context); ok {
			return tc
		}
	}
	return tenant.None()
}

var errNoToken = errors.New("Authorization header required")

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		// browsers cannot set headers on websocket upgrades
		if token := c.Query("access_token"); token != "" && c.IsWebsocket() {
			return token, nil
		}
		return "", errNoToken
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return "", errors.New("Bearer token required")
	}
	return token, nil
}

func unauthorized(c *gin.Context, details string) {
	abortWith(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, details)
}
