package handlers

import (
	"context"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jmylchreest/locastarr/internal/guide"
	"github.com/jmylchreest/locastarr/internal/session"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"gorm.io/gorm"
)

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	version   string
	startTime time.Time
	sessions  *session.Manager
	refresher *guide.Refresher
	db        *gorm.DB
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
	}
}

// WithSessionManager sets the session manager for session status reporting.
func (h *HealthHandler) WithSessionManager(sessions *session.Manager) *HealthHandler {
	h.sessions = sessions
	return h
}

// WithRefresher sets the guide refresher for refresh status reporting.
func (h *HealthHandler) WithRefresher(refresher *guide.Refresher) *HealthHandler {
	h.refresher = refresher
	return h
}

// WithDB sets the database connection for health checks.
func (h *HealthHandler) WithDB(db *gorm.DB) *HealthHandler {
	h.db = db
	return h
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// HealthResponse is the health check response body.
type HealthResponse struct {
	Status        string           `json:"status"`
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	Uptime        string           `json:"uptime"`
	UptimeSeconds float64          `json:"uptime_seconds"`
	CPUInfo       CPUInfo          `json:"cpu"`
	Memory        MemoryInfo       `json:"memory"`
	Components    HealthComponents `json:"components"`
}

// CPUInfo holds CPU load information.
type CPUInfo struct {
	Cores              int     `json:"cores"`
	Load1Min           float64 `json:"load_1min"`
	Load5Min           float64 `json:"load_5min"`
	Load15Min          float64 `json:"load_15min"`
	LoadPercentage1Min float64 `json:"load_percentage_1min"`
}

// MemoryInfo holds memory usage information.
type MemoryInfo struct {
	TotalMemoryMB     float64 `json:"total_mb"`
	UsedMemoryMB      float64 `json:"used_mb"`
	AvailableMemoryMB float64 `json:"available_mb"`
}

// HealthComponents holds per-component health status.
type HealthComponents struct {
	Database DatabaseHealth `json:"database"`
	Session  SessionHealth  `json:"session"`
	Guide    GuideHealth    `json:"guide"`
}

// DatabaseHealth describes database connectivity.
type DatabaseHealth struct {
	Status string `json:"status"`
}

// SessionHealth describes the source session status.
type SessionHealth struct {
	Authenticated bool   `json:"authenticated"`
	Market        string `json:"market,omitempty"`
	LocationName  string `json:"location_name,omitempty"`
}

// GuideHealth describes the guide refresher status.
type GuideHealth struct {
	State       string `json:"state"`
	LastOutcome string `json:"last_outcome,omitempty"`
	LastSuccess string `json:"last_success,omitempty"`
}

// Register registers the health route with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service including system metrics",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(ctx context.Context, input *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	return &HealthOutput{
		Body: HealthResponse{
			Status:        "healthy",
			Timestamp:     now.UTC().Format(time.RFC3339),
			Version:       h.version,
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			CPUInfo:       h.getCPUInfo(),
			Memory:        h.getMemoryInfo(),
			Components: HealthComponents{
				Database: h.getDatabaseHealth(ctx),
				Session:  h.getSessionHealth(),
				Guide:    h.getGuideHealth(),
			},
		},
	}, nil
}

func (h *HealthHandler) getCPUInfo() CPUInfo {
	cores := runtime.NumCPU()

	info := CPUInfo{
		Cores: cores,
	}

	loadAvg, err := load.Avg()
	if err == nil && loadAvg != nil {
		info.Load1Min = loadAvg.Load1
		info.Load5Min = loadAvg.Load5
		info.Load15Min = loadAvg.Load15

		if cores > 0 {
			info.LoadPercentage1Min = (loadAvg.Load1 / float64(cores)) * 100
		}
	}

	return info
}

func (h *HealthHandler) getMemoryInfo() MemoryInfo {
	info := MemoryInfo{}

	vmStat, err := mem.VirtualMemory()
	if err == nil && vmStat != nil {
		info.TotalMemoryMB = float64(vmStat.Total) / 1024 / 1024
		info.UsedMemoryMB = float64(vmStat.Used) / 1024 / 1024
		info.AvailableMemoryMB = float64(vmStat.Available) / 1024 / 1024
	}

	return info
}

func (h *HealthHandler) getDatabaseHealth(ctx context.Context) DatabaseHealth {
	if h.db == nil {
		return DatabaseHealth{Status: "disabled"}
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		return DatabaseHealth{Status: "error"}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return DatabaseHealth{Status: "error"}
	}
	return DatabaseHealth{Status: "ok"}
}

func (h *HealthHandler) getSessionHealth() SessionHealth {
	if h.sessions == nil {
		return SessionHealth{}
	}
	return SessionHealth{
		Authenticated: h.sessions.Authenticated(),
		Market:        h.sessions.DMA(),
		LocationName:  h.sessions.LocationName(),
	}
}

func (h *HealthHandler) getGuideHealth() GuideHealth {
	if h.refresher == nil {
		return GuideHealth{}
	}
	health := GuideHealth{
		State:       string(h.refresher.State()),
		LastOutcome: string(h.refresher.LastOutcome()),
	}
	if last := h.refresher.LastSuccess(); !last.IsZero() {
		health.LastSuccess = last.UTC().Format(time.RFC3339)
	}
	return health
}
