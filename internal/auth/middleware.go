package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"clubattend/pkg/interfaces"
	"clubattend/pkg/types"
)

// CtxUserKey holds the authenticated *types.User in the gin context
const CtxUserKey = "auth_user"

// RequireAuth verifies "Authorization: Bearer <token>" and stores the user
func RequireAuth(authn interfaces.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing Authorization header")
			return
		}

		user, err := authn.Authenticate(c.Request.Context(), header)
		if err != nil {
			if errors.Is(err, interfaces.ErrUnauthenticated) {
				abortUnauthorized(c, "invalid token")
				return
			}
			log.Printf("Authentication backend error: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   http.StatusText(http.StatusInternalServerError),
				"code":    "internal",
				"message": "authentication unavailable",
			})
			return
		}

		c.Set(CtxUserKey, user)
		c.Next()
	}
}

// UserFrom returns the user stored by RequireAuth
func UserFrom(c *gin.Context) (*types.User, bool) {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*types.User)
	return user, ok && user != nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   http.StatusText(http.StatusUnauthorized),
		"code":    "unauthenticated",
		"message": message,
	})
}
