package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mzalewski/secadmin-api/internal/handler"
	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/internal/repository"
	"github.com/mzalewski/secadmin-api/internal/service/audit"
	"github.com/mzalewski/secadmin-api/internal/service/policy"
	"github.com/mzalewski/secadmin-api/internal/service/session"
	"github.com/mzalewski/secadmin-api/pkg/apperror"
	"github.com/mzalewski/secadmin-api/pkg/metrics"
)

const (
	ContextClaims = "session_claims"
	ContextUser   = "current_user"
)

// Routes that stay reachable while an account carries the forced
// password-change flag.
var forcedChangeAllowed = map[string]struct{}{
	"/api/v1/auth/change-password": {},
	"/api/v1/auth/logout":          {},
}

type SessionMiddleware struct {
	sessions  *session.Service
	users     repository.UserRepository
	policySvc *policy.Service
	auditor   *audit.Service
	metrics   *metrics.Metrics
}

func NewSessionMiddleware(
	sessions *session.Service,
	users repository.UserRepository,
	policySvc *policy.Service,
	auditor *audit.Service,
	m *metrics.Metrics,
) *SessionMiddleware {
	return &SessionMiddleware{
		sessions:  sessions,
		users:     users,
		policySvc: policySvc,
		auditor:   auditor,
		metrics:   m,
	}
}

// Authenticate validates the bearer token against the session store. Every
// hit refreshes the sliding window using the timeout the policy holds right
// now, so shortening the policy value shortens live sessions too.
func (m *SessionMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		p, err := m.policySvc.Get(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
			c.Abort()
			return
		}

		claims, err := m.sessions.Validate(c.Request.Context(), parts[1], p.SessionTimeout())
		if err != nil {
			if apperror.Is(err, apperror.ErrSessionExpired) {
				m.metrics.SessionExpiries.Inc()
				m.auditor.Append(c.Request.Context(), model.AuditActorUnknown,
					model.AuditActionSessionExpiry, "request arrived on an expired session")
				c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("session expired, please sign in again"))
			} else {
				c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			}
			c.Abort()
			return
		}

		// The account backing the session can vanish or get blocked
		// mid-session; both end it immediately.
		user, err := m.users.GetByUsername(c.Request.Context(), claims.Username)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				_ = m.sessions.Destroy(c.Request.Context(), claims.SessionID)
				c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("session expired, please sign in again"))
			} else {
				c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
			}
			c.Abort()
			return
		}
		if user.Blocked {
			_ = m.sessions.Destroy(c.Request.Context(), claims.SessionID)
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("session expired, please sign in again"))
			c.Abort()
			return
		}

		if user.MustChangePassword {
			if _, ok := forcedChangeAllowed[c.Request.URL.Path]; !ok {
				c.JSON(http.StatusForbidden, handler.NewErrorResponse("password change required before continuing"))
				c.Abort()
				return
			}
		}

		c.Set(ContextClaims, claims)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// RequireAdmin runs after Authenticate and rejects non-admin accounts.
func (m *SessionMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("admin role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the account Authenticate attached to the context.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil
	}
	user, ok := v.(*model.User)
	if !ok {
		return nil
	}
	return user
}

// CurrentClaims returns the session claims Authenticate attached to the
// context.
func CurrentClaims(c *gin.Context) *model.SessionClaims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, ok := v.(*model.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
