package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/curbfleet/mds-provider/internal/mds"
)

// ListTelemetry serves GET /telemetry?telemetry_time=YYYY-MM-DDTHH, the
// endpoint fixes of trips that ended within the requested UTC hour, in
// timestamp order.
func (h *Handler) ListTelemetry(c *gin.Context) {
	hour, ok := h.hourWindow(c, "telemetry_time")
	if !ok {
		return
	}

	rows, err := h.source.TelemetryForHour(c.Request.Context(), hour)
	if err != nil {
		h.fail(c, err)
		return
	}

	points, failures := h.transform.TelemetryBatch(rows)
	h.reportDropped(c, "telemetry", failures)
	if points == nil {
		points = []mds.Telemetry{}
	}

	c.JSON(http.StatusOK, mds.TelemetryResponse{
		Version:     mds.Version,
		LastUpdated: h.now().UnixMilli(),
		TTL:         mds.TTLTelemetry,
		Telemetry:   points,
	})
}
