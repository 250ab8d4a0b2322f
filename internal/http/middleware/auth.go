package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/tener/recruit-core/internal/auth"
	"github.com/tener/recruit-core/internal/http/response"
	"github.com/tener/recruit-core/internal/platform/logger"
)

// AuthMiddleware gates routes on the bearer-token decision contract.
// With a nil decider (auth not configured) every request passes; the
// decision semantics live in internal/auth, this layer only wires
// them to the transport.
type AuthMiddleware struct {
	log     *logger.Logger
	decider auth.Decider
}

func NewAuthMiddleware(log *logger.Logger, decider auth.Decider) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), decider: decider}
}

func (am *AuthMiddleware) RequireScopes(scopes ...string) gin.HandlerFunc {
	return am.require(scopes, false)
}

func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return am.require(nil, true)
}

func (am *AuthMiddleware) require(scopes []string, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.decider == nil {
			c.Next()
			return
		}
		decision := am.decider.Decide(c.GetHeader("Authorization"), scopes, admin)
		if !decision.Allowed {
			response.RespondError(c, decision.StatusCode, "unauthorized", errors.New("access denied"))
			c.Abort()
			return
		}
		if decision.Principal != nil {
			c.Set("principal_subject", decision.Principal.Subject)
		}
		c.Next()
	}
}
