package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/curbfleet/mds-provider/internal/apierror"
	"github.com/curbfleet/mds-provider/internal/api/middleware"
	"github.com/curbfleet/mds-provider/internal/mds"
	"github.com/curbfleet/mds-provider/internal/warehouse"
)

// vendorContentType pre-sets the MDS media type. gin's JSON render keeps a
// Content-Type that is already present, so success and error bodies alike
// go out as vnd.mds+json.
func vendorContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", mds.ContentType)
		c.Next()
	}
}

// fail maps an error onto the wire taxonomy. Warehouse failures are logged
// with their operation and surfaced as an opaque database_error.
func (h *Handler) fail(c *gin.Context, err error) {
	var srcErr *warehouse.SourceError
	if errors.As(err, &srcErr) {
		h.logger.Error("warehouse query failed",
			zap.String("op", srcErr.Op),
			zap.Error(err))
		apierror.Respond(c, apierror.DataSource("failed to query the data warehouse"))
		return
	}
	apierror.Respond(c, err)
}

// reportDropped logs per-row mapping failures and exposes the count in the
// X-Dropped-Rows header. A bad row never fails the request.
func (h *Handler) reportDropped(c *gin.Context, entity string, failures []error) {
	if len(failures) == 0 {
		return
	}
	for i, err := range failures {
		h.logger.Warn("row dropped during mapping",
			zap.String("entity", entity),
			zap.Int("index", i),
			zap.Error(err))
	}
	middleware.CountDroppedRows(entity, len(failures))
	c.Header("X-Dropped-Rows", strconv.Itoa(len(failures)))
}
