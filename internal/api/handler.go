// Package api serves the dashboard aggregates over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tigerroll/greentaxi/internal/analytics"
)

// Computer computes chart data for a filter selection.
type Computer interface {
	Compute(ctx context.Context, state analytics.FilterState) analytics.ChartData
}

// Snapshots exposes the published snapshot and rebuilds it on demand.
type Snapshots interface {
	Current() *analytics.Snapshot
	Reload(ctx context.Context) (*analytics.Snapshot, error)
}

// SnapshotInfo describes a published snapshot.
type SnapshotInfo struct {
	Version uint64    `json:"version"`
	Rows    int       `json:"rows"`
	Pages   int       `json:"pages"`
	BuiltAt time.Time `json:"built_at"`
}

func infoOf(s *analytics.Snapshot) SnapshotInfo {
	return SnapshotInfo{Version: s.Version, Rows: len(s.Rows), Pages: s.Pages, BuiltAt: s.BuiltAt}
}

// ChartHandler handles the chart and snapshot endpoints.
type ChartHandler struct {
	engine    Computer
	snapshots Snapshots
}

// NewChartHandler creates a handler.
func NewChartHandler(engine Computer, snapshots Snapshots) *ChartHandler {
	return &ChartHandler{engine: engine, snapshots: snapshots}
}

// GetCharts handles GET /api/v1/charts?hours=7,19&days=0,4&flow_source=Queens
func (h *ChartHandler) GetCharts(c *gin.Context) {
	state, err := ParseFilterState(c.Query("hours"), c.Query("days"), c.Query("flow_source"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	data := h.engine.Compute(c.Request.Context(), state)
	if data.Error != "" {
		ErrorWithData(c, http.StatusInternalServerError, data.Error, data)
		return
	}
	Success(c, data)
}

// PostReload handles POST /api/v1/reload
func (h *ChartHandler) PostReload(c *gin.Context) {
	snap, err := h.snapshots.Reload(c.Request.Context())
	if err != nil {
		InternalError(c, fmt.Sprintf("reload failed: %v", err))
		return
	}
	Success(c, infoOf(snap))
}

// GetSnapshot handles GET /api/v1/snapshot
func (h *ChartHandler) GetSnapshot(c *gin.Context) {
	snap := h.snapshots.Current()
	if snap == nil {
		Error(c, http.StatusServiceUnavailable, "analytical snapshot is not loaded")
		return
	}
	Success(c, infoOf(snap))
}

// Healthz handles GET /healthz. It reports 503 until the first snapshot is published.
func (h *ChartHandler) Healthz(c *gin.Context) {
	snap := h.snapshots.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "snapshot_version": snap.Version})
}

// ParseFilterState builds a FilterState from query values. Empty values keep the defaults:
// every hour, every day, and the engine's flow source.
func ParseFilterState(hours, days, flowSource string) (analytics.FilterState, error) {
	state := analytics.DefaultFilterState()
	state.FlowSource = strings.TrimSpace(flowSource)

	if hours = strings.TrimSpace(hours); hours != "" {
		parts := strings.Split(hours, ",")
		if len(parts) != 2 {
			return state, fmt.Errorf("hours must be two comma-separated values, got %q", hours)
		}
		for i, p := range parts {
			h, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || h < 0 || h > 23 {
				return state, fmt.Errorf("hour %q must be an integer between 0 and 23", p)
			}
			state.Hours[i] = h
		}
	}

	if days = strings.TrimSpace(days); days != "" {
		seen := make(map[int]bool)
		for _, p := range strings.Split(days, ",") {
			d, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || d < 0 || d > 6 {
				return state, fmt.Errorf("day %q must be an integer between 0 (Monday) and 6 (Sunday)", p)
			}
			if !seen[d] {
				seen[d] = true
				state.Days = append(state.Days, d)
			}
		}
	}
	return state, nil
}
