package httpapi

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/streamhub/corehub/internal/controldb"
	"github.com/streamhub/corehub/internal/eventstore"
	"github.com/streamhub/corehub/internal/metrics"
)

// healthHandlers exposes operational endpoints against the shared control
// database and the per-user event pool: no realtime broker, no function
// runtime, since this system has neither.
type healthHandlers struct {
	db      *controldb.DB
	mall    *eventstore.Mall
	version string
}

var startTime = time.Now()

const healthCheckTimeout = 5 * time.Second

type healthStatus string

const (
	healthStatusHealthy   healthStatus = "healthy"
	healthStatusUnhealthy healthStatus = "unhealthy"
)

type componentHealth struct {
	Status  healthStatus `json:"status"`
	Latency string       `json:"latency,omitempty"`
	Message string       `json:"message,omitempty"`
}

type healthResponse struct {
	Status     healthStatus               `json:"status"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Timestamp  string                     `json:"timestamp"`
	Components map[string]componentHealth `json:"components"`
}

func (h *healthHandlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	dbHealth := h.checkDatabase(ctx)
	status := healthStatusHealthy
	if dbHealth.Status != healthStatusHealthy {
		status = healthStatusUnhealthy
	}

	resp := healthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Components: map[string]componentHealth{
			"database": dbHealth,
		},
	}

	code := http.StatusOK
	if status != healthStatusHealthy {
		code = http.StatusServiceUnavailable
	}
	JSON(w, code, resp)
}

func (h *healthHandlers) checkDatabase(ctx context.Context) componentHealth {
	start := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		return componentHealth{Status: healthStatusUnhealthy, Latency: time.Since(start).String(), Message: "control database ping failed"}
	}
	return componentHealth{Status: healthStatusHealthy, Latency: time.Since(start).String()}
}

func (h *healthHandlers) liveness(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *healthHandlers) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": "control database unavailable"})
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type runtimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}

// stats reports runtime and database-pool counters, also pushing the
// control database's connection counts and the Mall's open-database count
// into the corehub_db_* and corehub_mall_* Prometheus series so a scrape
// picks up fresh values even between requests.
func (h *healthHandlers) stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := runtimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     m.Alloc,
		MemSys:       m.Sys,
		NumGC:        m.NumGC,
	}

	dbStats := h.db.Stats()
	metrics.UpdateDBStats(dbStats.OpenConnections, dbStats.InUse, dbStats.Idle)
	metrics.UpdateMallStats(h.mall.Len())

	JSON(w, http.StatusOK, map[string]any{
		"runtime": stats,
		"uptime":  time.Since(startTime).Round(time.Second).String(),
		"database": map[string]any{
			"open_connections": dbStats.OpenConnections,
			"in_use":           dbStats.InUse,
			"idle":             dbStats.Idle,
			"max_open":         dbStats.MaxOpenConnections,
		},
		"mall": map[string]any{
			"open_databases": h.mall.Len(),
		},
	})
}
