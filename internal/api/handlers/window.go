package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/curbfleet/mds-provider/internal/apierror"
)

// hourLayout is the UTC hour format of the historical endpoints.
const hourLayout = "2006-01-02T15"

// recentWindow bounds how far back /events/recent may reach.
const recentWindow = 14 * 24 * time.Hour

// hourWindow parses and polices the hour parameter named param. On any
// violation it writes the response and reports false. The error codes are
// parameter specific (invalid_end_time, missing_event_time, ...).
func (h *Handler) hourWindow(c *gin.Context, param string) (time.Time, bool) {
	raw := c.Query(param)
	if raw == "" {
		apierror.Respond(c, apierror.Validation("missing_"+param,
			fmt.Sprintf("%s is required in format YYYY-MM-DDTHH", param)))
		return time.Time{}, false
	}
	hour, err := time.ParseInLocation(hourLayout, raw, time.UTC)
	if err != nil {
		apierror.Respond(c, apierror.Validation("invalid_"+param,
			fmt.Sprintf("invalid %s format, expected YYYY-MM-DDTHH, got: %s", param, raw)))
		return time.Time{}, false
	}

	now := h.now().UTC()
	if !hour.Before(now) {
		apierror.Respond(c, apierror.NotFound("future_time", "cannot retrieve data for future hours"))
		return time.Time{}, false
	}
	if hour.Before(h.opsStart) {
		apierror.Respond(c, apierror.NotFound("no_operation", "no operations during the requested time period"))
		return time.Time{}, false
	}

	// Warehouse loads lag real time. A very recent hour may simply not be
	// materialized yet, which is not an error.
	if now.Sub(hour) < 2*time.Hour {
		available, err := h.source.DataAvailable(c.Request.Context(), hour)
		if err != nil {
			h.fail(c, err)
			return time.Time{}, false
		}
		if !available {
			apierror.Respond(c, apierror.NotYetAvailable("data for this hour is still being processed"))
			return time.Time{}, false
		}
	}
	return hour, true
}

// recentRange validates the epoch-millisecond range of /events/recent.
func (h *Handler) recentRange(c *gin.Context) (time.Time, time.Time, bool) {
	startMs, err := strconv.ParseInt(c.Query("start_time"), 10, 64)
	if err != nil {
		apierror.Respond(c, apierror.Validation("invalid_time_range",
			"start_time and end_time must be millisecond timestamps"))
		return time.Time{}, time.Time{}, false
	}
	endMs, err := strconv.ParseInt(c.Query("end_time"), 10, 64)
	if err != nil {
		apierror.Respond(c, apierror.Validation("invalid_time_range",
			"start_time and end_time must be millisecond timestamps"))
		return time.Time{}, time.Time{}, false
	}

	start, end := time.UnixMilli(startMs).UTC(), time.UnixMilli(endMs).UTC()
	if !start.Before(end) {
		apierror.Respond(c, apierror.Validation("invalid_time_range",
			"start_time must be before end_time"))
		return time.Time{}, time.Time{}, false
	}
	if start.Before(h.now().Add(-recentWindow)) {
		apierror.Respond(c, apierror.Validation("time_range_too_old",
			"start_time cannot be more than 2 weeks ago"))
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
