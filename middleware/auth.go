package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ariebrainware/telemed-api/service"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
)

// Context keys set by RequireAuth.
const (
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// DoctorSessionCookie carries the doctor's session token for browser clients.
const DoctorSessionCookie = "doctor_session"

// APITokenHeader carries the static token of admin routes.
const APITokenHeader = "x-api-token"

// TokenValidator resolves a session token to its identity.
type TokenValidator interface {
	Validate(raw string) (service.Identity, error)
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// SessionToken prefers the Authorization header and falls back to the
// doctor session cookie.
func SessionToken(c *gin.Context) string {
	if token := bearerToken(c); token != "" {
		return token
	}
	if cookie, err := c.Cookie(DoctorSessionCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// RequireAuth validates the session token and stores the caller identity.
// With roles given, only those roles pass.
func RequireAuth(validator TokenValidator, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			util.LogUnauthorizedAccess(util.UnauthorizedAccessParams{
				IP:       c.ClientIP(),
				Resource: c.Request.URL.Path,
				Reason:   "missing session token",
			})
			abortUnauthorized(c, "Authentication required", service.ErrInvalidToken)
			return
		}

		identity, err := validator.Validate(token)
		if err != nil {
			util.LogUnauthorizedAccess(util.UnauthorizedAccessParams{
				IP:       c.ClientIP(),
				Resource: c.Request.URL.Path,
				Reason:   err.Error(),
			})
			msg := "Invalid session token"
			if errors.Is(err, service.ErrExpiredToken) {
				msg = "Session expired, please log in again"
			}
			abortUnauthorized(c, msg, err)
			return
		}

		if len(roles) > 0 && !util.Contains(identity.Role, roles) {
			util.LogUnauthorizedAccess(util.UnauthorizedAccessParams{
				Role:     identity.Role,
				UserID:   fmt.Sprintf("%d", identity.ID),
				IP:       c.ClientIP(),
				Resource: c.Request.URL.Path,
				Reason:   "role not allowed",
			})
			abortForbidden(c, "Your account cannot access this resource", service.ErrForbidden)
			return
		}

		c.Set(UserIDKey, identity.ID)
		c.Set(RoleKey, identity.Role)
		c.Next()
	}
}

// RequireAPIToken guards admin routes with a static token. An empty
// configured token rejects every request.
func RequireAPIToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := strings.TrimSpace(c.GetHeader(APITokenHeader))
		if token == "" || got == "" || !util.SecureCompare(got, token) {
			util.LogUnauthorizedAccess(util.UnauthorizedAccessParams{
				IP:       c.ClientIP(),
				Resource: c.Request.URL.Path,
				Reason:   "invalid api token",
			})
			abortUnauthorized(c, "Invalid API token", errors.New("unauthorized"))
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated account id.
func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// GetRole returns the authenticated role.
func GetRole(c *gin.Context) (string, bool) {
	v, ok := c.Get(RoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok && role != ""
}

// GetIdentity returns the authenticated caller.
func GetIdentity(c *gin.Context) (service.Identity, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return service.Identity{}, false
	}
	role, ok := GetRole(c)
	if !ok {
		return service.Identity{}, false
	}
	return service.Identity{ID: id, Role: role}, true
}
