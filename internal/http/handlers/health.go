package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probe is one named readiness dependency. Optional probes degrade the
// status instead of failing it.
type Probe struct {
	Name     string
	Pinger   Pinger
	Optional bool
}

type HealthHandler struct {
	store   Pinger
	probes  []Probe
	started time.Time
	version string
}

func NewHealthHandler(store Pinger, version string, extra ...Probe) *HealthHandler {
	probes := append([]Probe{{Name: "storage", Pinger: store}}, extra...)
	sort.SliceStable(probes[1:], func(i, j int) bool { return probes[1+i].Name < probes[1+j].Name })
	return &HealthHandler{store: store, probes: probes, started: time.Now(), version: version}
}

type ReadinessResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Liveness never touches dependencies
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness pings every probe. Only required probes can turn it 503.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := ReadinessResponse{
		Status:    "ready",
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]string, len(h.probes)),
	}
	code := http.StatusOK

	for _, p := range h.probes {
		if p.Pinger == nil {
			resp.Checks[p.Name] = "disabled"
			continue
		}
		if err := p.Pinger.Ping(ctx); err != nil {
			resp.Checks[p.Name] = "down: " + err.Error()
			if p.Optional {
				if resp.Status == "ready" {
					resp.Status = "degraded"
				}
				continue
			}
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[p.Name] = "up"
	}

	c.JSON(code, resp)
}

// Health only checks storage
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "storage unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}
