// handlers_health.go - Health check handlers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

// HealthHandler reports process and polling health.
type HealthHandler struct {
	version string
	poller  Poller
	cache   Pinger
}

// NewHealthHandler creates a new health handler. cache may be nil.
func NewHealthHandler(version string, p Poller, cache Pinger) *HealthHandler {
	return &HealthHandler{
		version: version,
		poller:  p,
		cache:   cache,
	}
}

type sourceHealth struct {
	HasData   bool       `json:"hasData"`
	Records   int        `json:"records"`
	FetchedAt *time.Time `json:"fetchedAt"`
	Error     string     `json:"error,omitempty"`
}

// HandleHealth returns server health status. The status is "degraded"
// when a source's last fetch failed or the cache is unreachable.
func (h *HealthHandler) HandleHealth(c echo.Context) error {
	status := "ok"
	snap := h.poller.Snapshot()

	sources := make(map[string]sourceHealth, len(models.Sources))
	for _, src := range models.Sources {
		st := snap.State(src)
		sh := sourceHealth{HasData: st.HasData, Records: len(st.Records), Error: st.Error}
		if !st.FetchedAt.IsZero() {
			t := st.FetchedAt
			sh.FetchedAt = &t
		}
		if st.Error != "" {
			status = "degraded"
		}
		sources[string(src)] = sh
	}

	resp := map[string]interface{}{
		"status":   status,
		"version":  h.version,
		"interval": h.poller.Interval().String(),
		"sources":  sources,
	}

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["cache"] = err.Error()
		} else {
			resp["cache"] = "ok"
		}
	}

	return c.JSON(http.StatusOK, resp)
}
