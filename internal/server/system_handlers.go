package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/scheduler"
)

// SystemHandlers serves process and host status
type SystemHandlers struct {
	log         zerolog.Logger
	db          *database.DB
	sessions    *portfolio.Sessions
	scheduler   *scheduler.Scheduler
	startupTime time.Time
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	Status         string          `json:"status"`
	UptimeHours    float64         `json:"uptime_hours"`
	CPUPercent     float64         `json:"cpu_percent"`
	RAMPercent     float64         `json:"ram_percent"`
	Goroutines     int             `json:"goroutines"`
	ActiveSessions int             `json:"active_sessions"`
	ScheduledJobs  int             `json:"scheduled_jobs"`
	Database       *database.Stats `json:"database,omitempty"`
	LastCheck      string          `json:"last_check"`
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	db *database.DB,
	sessions *portfolio.Sessions,
	sched *scheduler.Scheduler,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		db:          db,
		sessions:    sessions,
		scheduler:   sched,
		startupTime: time.Now(),
	}
}

// HandleSystemStatus returns uptime, host load and database statistics
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:      "ok",
		UptimeHours: time.Since(h.startupTime).Hours(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
		Goroutines:  runtime.NumGoroutine(),
		LastCheck:   time.Now().Format(time.RFC3339),
	}
	if h.sessions != nil {
		response.ActiveSessions = len(h.sessions.Active())
	}
	if h.scheduler != nil {
		response.ScheduledJobs = h.scheduler.Entries()
	}
	if h.db != nil {
		stats, err := h.db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get database stats")
			response.Status = "degraded"
		} else {
			response.Database = stats
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system status")
	}
}

// getSystemStats calculates CPU and RAM usage percentages.
// Samples CPU over 100ms so the endpoint stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
