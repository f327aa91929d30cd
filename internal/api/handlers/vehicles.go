package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/curbfleet/mds-provider/internal/apierror"
	"github.com/curbfleet/mds-provider/internal/mds"
	"github.com/curbfleet/mds-provider/internal/warehouse"
)

// ListVehicles serves GET /vehicles, the active fleet as descriptors.
func (h *Handler) ListVehicles(c *gin.Context) {
	rows, err := h.source.ActiveVehicles(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	vehicles, failures := h.transform.VehicleBatch(rows)
	h.reportDropped(c, "vehicle", failures)

	c.JSON(http.StatusOK, mds.VehiclesResponse{
		Version:     mds.Version,
		LastUpdated: h.now().UnixMilli(),
		TTL:         mds.TTLVehicles,
		Vehicles:    vehicles,
	})
}

// GetVehicle serves GET /vehicles/:device_id. The descriptor of a roster
// robot is always available, even before its first warehouse ping.
func (h *Handler) GetVehicle(c *gin.Context) {
	robotID, ok := h.resolveRobot(c.Param("device_id"))
	if !ok {
		apierror.Respond(c, apierror.NotFound("vehicle_not_found", "no vehicle matches the requested id"))
		return
	}

	rows, err := h.source.CurrentStatus(c.Request.Context(), []string{robotID})
	if err != nil {
		h.fail(c, err)
		return
	}
	row := warehouse.LocationRow{RobotID: robotID}
	if len(rows) > 0 {
		row = rows[0]
	}

	vehicle, err := h.transform.Vehicle(row)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, mds.VehiclesResponse{
		Version:     mds.Version,
		LastUpdated: h.now().UnixMilli(),
		TTL:         mds.TTLVehicles,
		Vehicles:    []mds.Vehicle{*vehicle},
	})
}

// FleetStatus serves GET /vehicles/status with skip/limit paging.
func (h *Handler) FleetStatus(c *gin.Context) {
	skip, limit, ok := h.pageParams(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	rows, err := h.source.CurrentStatus(ctx, h.roster)
	if err != nil {
		h.fail(c, err)
		return
	}
	jobs, err := h.source.ActiveJobs(ctx, h.roster)
	if err != nil {
		h.fail(c, err)
		return
	}

	statuses, failures := h.transform.StatusBatch(rows, jobs, h.now())
	h.reportDropped(c, "status", failures)

	total := len(statuses)
	c.JSON(http.StatusOK, mds.StatusResponse{
		Version:        mds.Version,
		LastUpdated:    h.now().UnixMilli(),
		TTL:            mds.TTLStatus,
		VehiclesStatus: pageOf(statuses, skip, limit),
		Links:          pageLinks(c.Request.URL, skip, limit, total),
	})
}

// GetVehicleStatus serves GET /vehicles/:device_id/status. A roster robot
// the warehouse has not seen reports as missing.
func (h *Handler) GetVehicleStatus(c *gin.Context) {
	robotID, ok := h.resolveRobot(c.Param("device_id"))
	if !ok {
		apierror.Respond(c, apierror.NotFound("vehicle_not_found", "no vehicle matches the requested id"))
		return
	}

	ctx := c.Request.Context()
	rows, err := h.source.CurrentStatus(ctx, []string{robotID})
	if err != nil {
		h.fail(c, err)
		return
	}
	jobs, err := h.source.ActiveJobs(ctx, []string{robotID})
	if err != nil {
		h.fail(c, err)
		return
	}

	row := warehouse.LocationRow{RobotID: robotID}
	if len(rows) > 0 {
		row = rows[0]
	}
	status, err := h.transform.Status(row, jobs[robotID], h.now())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, mds.StatusResponse{
		Version:        mds.Version,
		LastUpdated:    h.now().UnixMilli(),
		TTL:            mds.TTLStatus,
		VehiclesStatus: []mds.VehicleStatus{*status},
	})
}

// pageParams reads skip/limit, defaulting to 0/100 and clamping negatives.
func (h *Handler) pageParams(c *gin.Context) (int, int, bool) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil {
		apierror.Respond(c, apierror.Validation("invalid_pagination", "skip must be an integer"))
		return 0, 0, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		apierror.Respond(c, apierror.Validation("invalid_pagination", "limit must be an integer"))
		return 0, 0, false
	}
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return skip, limit, true
}

func pageOf(statuses []mds.VehicleStatus, skip, limit int) []mds.VehicleStatus {
	if skip >= len(statuses) {
		return []mds.VehicleStatus{}
	}
	end := skip + limit
	if end > len(statuses) {
		end = len(statuses)
	}
	return statuses[skip:end]
}

// pageLinks builds the navigation block: first and last always, prev and
// next only when that page exists.
func pageLinks(u *url.URL, skip, limit, total int) *mds.PaginationLinks {
	withSkip := func(s int) string {
		q := u.Query()
		q.Set("skip", strconv.Itoa(s))
		q.Set("limit", strconv.Itoa(limit))
		page := *u
		page.RawQuery = q.Encode()
		return page.String()
	}

	lastSkip := 0
	if total > 0 {
		lastSkip = ((total - 1) / limit) * limit
	}
	links := &mds.PaginationLinks{First: withSkip(0), Last: withSkip(lastSkip)}
	if skip > 0 {
		prevSkip := skip - limit
		if prevSkip < 0 {
			prevSkip = 0
		}
		prev := withSkip(prevSkip)
		links.Prev = &prev
	}
	if skip+limit < total {
		next := withSkip(skip + limit)
		links.Next = &next
	}
	return links
}
