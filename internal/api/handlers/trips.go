package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/curbfleet/mds-provider/internal/mds"
)

// ListTrips serves GET /trips?end_time=YYYY-MM-DDTHH, every trip that
// ended within the requested UTC hour. An hour with no trips is a valid
// empty response.
func (h *Handler) ListTrips(c *gin.Context) {
	hour, ok := h.hourWindow(c, "end_time")
	if !ok {
		return
	}

	rows, err := h.source.TripsForHour(c.Request.Context(), hour)
	if err != nil {
		h.fail(c, err)
		return
	}

	trips, failures := h.transform.TripBatch(rows)
	h.reportDropped(c, "trip", failures)

	c.JSON(http.StatusOK, mds.TripsResponse{
		Version:     mds.Version,
		LastUpdated: h.now().UnixMilli(),
		TTL:         mds.TTLTrips,
		Trips:       trips,
	})
}
