package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/curbfleet/mds-provider/internal/apierror"
)

// exemptPaths bypass the gate so liveness probes and scrapes keep working
// under load.
var exemptPaths = map[string]bool{
	"/":        true,
	"/health":  true,
	"/metrics": true,
}

// ConcurrencyGate sheds load once maxConcurrent requests are in flight.
// Admission never blocks: a saturated gate answers 429 immediately so slow
// warehouse queries cannot pile requests up behind them.
func ConcurrencyGate(maxConcurrent int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(maxConcurrent)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || exemptPaths[c.Request.URL.Path] {
			c.Next()
			return
		}
		if !sem.TryAcquire(1) {
			requestsShed.Inc()
			apierror.Abort(c, apierror.RateLimited())
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
