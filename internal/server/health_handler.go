package server

import (
	"net/http"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/aristath/capm/internal/database"
	"github.com/aristath/capm/internal/scheduler"
)

// JobStatusSource reports the state of background jobs
type JobStatusSource interface {
	Statuses() []scheduler.JobStatus
}

// HealthHandler reports process, database and job health
type HealthHandler struct {
	databases   map[string]*database.DB
	jobs        JobStatusSource
	startupTime time.Time
	log         zerolog.Logger
}

// NewHealthHandler creates a new health handler. jobs may be nil.
func NewHealthHandler(databases map[string]*database.DB, jobs JobStatusSource, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		databases:   databases,
		jobs:        jobs,
		startupTime: time.Now(),
		log:         log.With().Str("handler", "health").Logger(),
	}
}

// HandleHealth handles GET /api/health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK

	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	databases := make(map[string]interface{}, len(names))
	for _, name := range names {
		db := h.databases[name]
		entry := map[string]interface{}{"status": "ok", "path": db.Path()}

		if err := db.QuickCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Database check failed")
			entry["status"] = "error"
			entry["error"] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if stats, err := db.GetStats(); err == nil {
			entry["size_bytes"] = stats.SizeBytes
			entry["wal_size_bytes"] = stats.WALSizeBytes
		}
		databases[name] = entry
	}

	jobs := []scheduler.JobStatus{}
	if h.jobs != nil {
		jobs = h.jobs.Statuses()
	}

	writeJSON(w, code, map[string]interface{}{
		"data": map[string]interface{}{
			"status":         status,
			"uptime_seconds": int64(time.Since(h.startupTime).Seconds()),
			"memory":         h.memoryStats(),
			"databases":      databases,
			"jobs":           jobs,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}, h.log)
}

func (h *HealthHandler) memoryStats() map[string]interface{} {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := map[string]interface{}{
		"heap_alloc_mb": float64(ms.HeapAlloc) / 1024 / 1024,
		"goroutines":    runtime.NumGoroutine(),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil {
			stats["rss_mb"] = float64(info.RSS) / 1024 / 1024
		}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return stats
	}
	stats["system_used_percent"] = memStat.UsedPercent

	return stats
}
