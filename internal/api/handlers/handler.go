// Package handlers serves the MDS 2.0 provider endpoints.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/curbfleet/mds-provider/internal/auth"
	"github.com/curbfleet/mds-provider/internal/ident"
	"github.com/curbfleet/mds-provider/internal/mds"
	"github.com/curbfleet/mds-provider/internal/transform"
	"github.com/curbfleet/mds-provider/internal/warehouse"
)

// Handler holds the dependencies of the HTTP surface.
type Handler struct {
	logger    *zap.Logger
	source    warehouse.Source
	transform *transform.Transformer
	ids       *ident.Deriver
	keys      *auth.KeyStore
	provider  uuid.UUID
	roster    []string
	opsStart  time.Time
	now       func() time.Time
}

// New builds a Handler. roster lists the robot ids this deployment
// publishes, opsStart bounds how far back the hourly endpoints reach.
func New(
	logger *zap.Logger,
	source warehouse.Source,
	tf *transform.Transformer,
	ids *ident.Deriver,
	keys *auth.KeyStore,
	provider uuid.UUID,
	roster []string,
	opsStart time.Time,
) *Handler {
	return &Handler{
		logger:    logger,
		source:    source,
		transform: tf,
		ids:       ids,
		keys:      keys,
		provider:  provider,
		roster:    roster,
		opsStart:  opsStart,
		now:       time.Now,
	}
}

// RegisterRoutes wires every endpoint onto the engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.ServiceInfo)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// MDS surface
	api := r.Group("", vendorContentType())
	{
		api.GET("/vehicles", h.ListVehicles)
		api.GET("/vehicles/status", h.FleetStatus)
		api.GET("/vehicles/:device_id", h.GetVehicle)
		api.GET("/vehicles/:device_id/status", h.GetVehicleStatus)
		api.GET("/trips", h.ListTrips)
		api.GET("/events/historical", h.HistoricalEvents)
		api.GET("/events/recent", h.RecentEvents)
		api.GET("/telemetry", h.ListTelemetry)
	}

	admin := r.Group("/admin")
	{
		admin.POST("/api-keys", h.CreateAPIKey)
		admin.GET("/api-keys", h.ListAPIKeys)
		admin.DELETE("/api-keys/:preview", h.RevokeAPIKey)
	}
}

// ServiceInfo describes the service at the root path.
func (h *Handler) ServiceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "Curbfleet MDS Provider API",
		"mode":        "delivery-robots",
		"version":     mds.Version,
		"provider_id": h.provider.String(),
	})
}

// Health is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now().UnixMilli(),
		"version":   mds.Version,
	})
}

// resolveRobot maps a path id, either a raw robot id or its derived device
// UUID, onto the roster.
func (h *Handler) resolveRobot(pathID string) (string, bool) {
	if id, err := uuid.Parse(pathID); err == nil {
		for _, robot := range h.roster {
			if h.ids.DeviceID(robot) == id {
				return robot, true
			}
		}
		return "", false
	}
	for _, robot := range h.roster {
		if robot == pathID {
			return robot, true
		}
	}
	return "", false
}
