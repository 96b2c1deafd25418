package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"cashpoint/internal/core/apperror"
	appctx "cashpoint/internal/core/context"
)

// JWTValidator decodes a bearer token.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

// Auth resolves the bearer token into an actor. Tokens whose tenant or
// user is not a valid id are rejected, so handlers always find one.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
		switch {
		case scheme == "":
			abortUnauthorized(c, "missing authorization header")
			return
		case !found || !strings.EqualFold(scheme, "bearer") || token == "":
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		user, err := validator.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		actor, err := appctx.ActorFromUser(user)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Request = c.Request.WithContext(appctx.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireRole admits only actors whose role is listed.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := appctx.GetActor(c.Request.Context())
		if err != nil {
			abortUnauthorized(c, "authentication required")
			return
		}
		if !actor.HasRole(roles...) {
			_ = c.Error(apperror.NewForbidden("insufficient permissions").
				WithDetail("required_roles", roles))
			c.Abort()
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
