package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/curbfleet/mds-provider/internal/apierror"
)

const identityKey = "auth.identity"

// publicPaths need no credential: the landing page, liveness, and the
// scrape endpoint.
var publicPaths = map[string]bool{
	"/":        true,
	"/health":  true,
	"/metrics": true,
}

// Middleware authenticates every request outside the public set and stores
// the caller identity in the gin context. CORS preflights pass through.
func Middleware(gate *Gate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || publicPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		id, err := gate.Authenticate(c.Request.Context(), c.Request)
		if err != nil {
			logger.Warn("authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			if errors.Is(err, ErrWrongProvider) {
				apierror.Abort(c, apierror.Authorization("credential is not valid for this provider"))
			} else {
				apierror.Abort(c, apierror.Authentication())
			}
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the authenticated identity stored by Middleware.
func IdentityFrom(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok
}
