package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/curbfleet/mds-provider/internal/mds"
)

const (
	historicalEventsLimit = 10000
	recentEventsLimit     = 5000
)

// HistoricalEvents serves GET /events/historical?event_time=YYYY-MM-DDTHH,
// the state changes recorded within the requested UTC hour.
func (h *Handler) HistoricalEvents(c *gin.Context) {
	hour, ok := h.hourWindow(c, "event_time")
	if !ok {
		return
	}

	rows, err := h.source.EventsInRange(c.Request.Context(), hour, hour.Add(time.Hour), historicalEventsLimit)
	if err != nil {
		h.fail(c, err)
		return
	}

	events, failures := h.transform.EventBatch(rows, h.now())
	h.reportDropped(c, "event", failures)

	c.JSON(http.StatusOK, mds.EventsResponse{
		Version:     mds.Version,
		LastUpdated: h.now().UnixMilli(),
		TTL:         mds.TTLEvents,
		Events:      events,
	})
}

// RecentEvents serves GET /events/recent?start_time=&end_time=, the
// near-realtime feed over an epoch-millisecond range no older than two
// weeks. Events are returned in timestamp order.
func (h *Handler) RecentEvents(c *gin.Context) {
	start, end, ok := h.recentRange(c)
	if !ok {
		return
	}

	rows, err := h.source.EventsInRange(c.Request.Context(), start, end, recentEventsLimit)
	if err != nil {
		h.fail(c, err)
		return
	}

	events, failures := h.transform.EventBatch(rows, h.now())
	h.reportDropped(c, "event", failures)
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp < events[j].Timestamp })

	c.JSON(http.StatusOK, mds.RecentEventsResponse{
		Version: mds.Version,
		Events:  events,
	})
}
