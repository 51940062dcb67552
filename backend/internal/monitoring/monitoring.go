package monitoring

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Health statuses, from best to worst.
const (
	StatusHealthy  = "healthy"
	StatusPaused   = "paused"
	StatusWarning  = "warning"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
	StatusStopped  = "stopped"
)

// warmup is how long after start the fps check is skipped.
const warmup = 2 * time.Second

// Ticker is the part of game.GameTicker the monitor needs.
type Ticker interface {
	GetStats() map[string]interface{}
	Pause()
	Resume()
}

type Restarter interface {
	RequestRestart()
}

// StatsProvider contributes one named section to /stats.
type StatsProvider interface {
	Stats() map[string]interface{}
}

// EventLog serves /telemetry.
type EventLog interface {
	EventsJSON() ([]byte, error)
}

type Health struct {
	Status string                 `json:"status"`
	Issues []string               `json:"issues"`
	Stats  map[string]interface{} `json:"stats,omitempty"`
}

type BottleneckReport struct {
	System        string        `json:"system"`
	Severity      string        `json:"severity"`
	AverageTime   time.Duration `json:"average_time"`
	MaxTime       time.Duration `json:"max_time"`
	PercentOfTick float64       `json:"percent_of_tick"`
}

// Monitor exposes ticker health and the stats of the race server over HTTP.
type Monitor struct {
	ticker    Ticker
	restarter Restarter
	sections  map[string]StatsProvider
	events    EventLog
	logger    zerolog.Logger
}

func New(ticker Ticker, restarter Restarter, logger zerolog.Logger) *Monitor {
	return &Monitor{
		ticker:    ticker,
		restarter: restarter,
		sections:  make(map[string]StatsProvider),
		logger:    logger.With().Str("component", "Monitor").Logger(),
	}
}

// AddSection publishes p under name in /stats.
func (m *Monitor) AddSection(name string, p StatsProvider) {
	m.sections[name] = p
}

func (m *Monitor) SetEventLog(events EventLog) {
	m.events = events
}

// CheckHealth grades the tick loop from its stats.
func (m *Monitor) CheckHealth() Health {
	stats := m.ticker.GetStats()
	health := Health{Status: StatusHealthy, Issues: []string{}, Stats: stats}

	if running, _ := stats["is_running"].(bool); !running {
		health.Status = StatusStopped
		health.Issues = append(health.Issues, "tick loop is not running")
		return health
	}
	if paused, _ := stats["is_paused"].(bool); paused {
		health.Status = StatusPaused
		return health
	}

	targetFPS, _ := stats["target_fps"].(int)
	if targetFPS <= 0 {
		return health
	}
	actualFPS, _ := stats["actual_fps"].(float64)
	uptime, _ := stats["uptime_seconds"].(float64)
	targetTick := time.Second / time.Duration(targetFPS)

	if avg, _ := stats["average_tick_time"].(time.Duration); avg > targetTick/2 {
		health.Status = StatusWarning
		health.Issues = append(health.Issues, fmt.Sprintf("slow ticks: %v (budget %v)", avg, targetTick/2))
	}
	if uptime > warmup.Seconds() && actualFPS < float64(targetFPS)*0.9 {
		health.Status = StatusDegraded
		health.Issues = append(health.Issues, fmt.Sprintf("fps %.1f/%d", actualFPS, targetFPS))
	}
	if skipped, _ := stats["skipped_ticks"].(uint64); skipped > 0 {
		health.Status = StatusCritical
		health.Issues = append(health.Issues, fmt.Sprintf("skipped ticks: %d", skipped))
	}

	return health
}

// FindBottlenecks lists systems averaging over a quarter of the tick budget,
// worst first.
func (m *Monitor) FindBottlenecks() []BottleneckReport {
	stats := m.ticker.GetStats()
	targetFPS, _ := stats["target_fps"].(int)
	systems, _ := stats["systems"].(map[string]interface{})
	if targetFPS <= 0 {
		return nil
	}

	targetTick := time.Second / time.Duration(targetFPS)
	threshold := targetTick / 4

	reports := []BottleneckReport{}
	for name, raw := range systems {
		s, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		avg, _ := s["average_time"].(time.Duration)
		maxTime, _ := s["max_time"].(time.Duration)

		severity := ""
		switch {
		case avg > threshold*2:
			severity = "critical"
		case avg > threshold:
			severity = "warning"
		default:
			continue
		}

		reports = append(reports, BottleneckReport{
			System:        name,
			Severity:      severity,
			AverageTime:   avg,
			MaxTime:       maxTime,
			PercentOfTick: float64(avg) / float64(targetTick) * 100,
		})
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].AverageTime > reports[j].AverageTime })
	return reports
}

// Register mounts the endpoints on mux.
func (m *Monitor) Register(mux *http.ServeMux) {
	mux.HandleFunc("/stats", m.handleStats)
	mux.HandleFunc("/health", m.handleHealth)
	mux.HandleFunc("/bottlenecks", m.handleBottlenecks)
	mux.HandleFunc("/control", m.handleControl)
	mux.HandleFunc("/telemetry", m.handleTelemetry)
}

func (m *Monitor) handleStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]interface{}{
		"ticker": m.ticker.GetStats(),
	}
	for name, p := range m.sections {
		out[name] = p.Stats()
	}
	m.writeJSON(w, http.StatusOK, out)
}

func (m *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := m.CheckHealth()

	code := http.StatusOK
	if health.Status != StatusHealthy && health.Status != StatusPaused {
		code = http.StatusServiceUnavailable
	}
	m.writeJSON(w, code, health)
}

func (m *Monitor) handleBottlenecks(w http.ResponseWriter, r *http.Request) {
	m.writeJSON(w, http.StatusOK, m.FindBottlenecks())
}

func (m *Monitor) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "use POST", http.StatusMethodNotAllowed)
		return
	}

	action := r.URL.Query().Get("action")
	switch action {
	case "pause":
		m.ticker.Pause()
	case "resume":
		m.ticker.Resume()
	case "restart":
		if m.restarter == nil {
			http.Error(w, "restart is not available", http.StatusNotImplemented)
			return
		}
		m.restarter.RequestRestart()
	default:
		http.Error(w, "unknown action, want pause, resume or restart", http.StatusBadRequest)
		return
	}

	m.logger.Info().Str("action", action).Msg("control request")
	m.writeJSON(w, http.StatusAccepted, map[string]string{"action": action})
}

func (m *Monitor) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if m.events == nil {
		http.Error(w, "telemetry is disabled", http.StatusNotFound)
		return
	}

	data, err := m.events.EventsJSON()
	if err != nil {
		m.logger.Error().Err(err).Msg("encoding telemetry")
		http.Error(w, "encoding telemetry failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Debug().Err(err).Msg("writing response")
	}
}
