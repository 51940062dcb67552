package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"space-racer/backend/internal/game"
)

const instrumentationName = "space-racer/backend/internal/telemetry"

// Event kinds.
const (
	KindPickup   = "pickup"
	KindHit      = "hit"
	KindOffTrack = "offtrack"
	KindFinished = "finished"
)

// Event is one recorded race event.
type Event struct {
	Timestamp    int64            `json:"timestamp"` // unix millis
	Kind         string           `json:"kind"`
	PickupKind   game.PickupKind  `json:"pickupKind,omitempty"`
	Slot         int              `json:"slot,omitempty"`
	Obstacle     int              `json:"obstacle,omitempty"`
	Position     *[3]float64      `json:"position,omitempty"`
	Velocity     float64          `json:"velocity,omitempty"`
	ClockExpired bool             `json:"clockExpired,omitempty"`
	Result       *game.RaceResult `json:"result,omitempty"`
}

// Manager records race events into a bounded log, keeps counters for the
// periodic summary and mirrors them to OpenTelemetry instruments. It
// satisfies game.RaceEventSink and game.TickSystem.
type Manager struct {
	enabled    bool
	events     []Event
	mutex      sync.RWMutex
	maxEntries int

	counters      map[string]int
	totals        map[string]int
	races         int
	bestScore     int
	lastPrint     time.Time
	printInterval time.Duration

	logger zerolog.Logger

	pickups    metric.Int64Counter
	collisions metric.Int64Counter
	offTrack   metric.Int64Counter
	finished   metric.Int64Counter
}

// NewManager uses the global OTel meter, which is a no-op unless the process
// installed a provider.
func NewManager(maxEntries int, printInterval time.Duration, logger zerolog.Logger) (*Manager, error) {
	if maxEntries <= 0 {
		maxEntries = 200
	}

	tm := &Manager{
		enabled:       true,
		events:        make([]Event, 0, maxEntries),
		maxEntries:    maxEntries,
		counters:      make(map[string]int),
		totals:        make(map[string]int),
		lastPrint:     time.Now(),
		printInterval: printInterval,
		logger:        logger.With().Str("component", "Telemetry").Logger(),
	}

	m := otel.Meter(instrumentationName)

	var err error
	tm.pickups, err = m.Int64Counter("race.pickups", metric.WithDescription("Pickups consumed"))
	if err != nil {
		return nil, fmt.Errorf("creating pickups counter: %w", err)
	}
	tm.collisions, err = m.Int64Counter("race.collisions", metric.WithDescription("Obstacle hits"))
	if err != nil {
		return nil, fmt.Errorf("creating collisions counter: %w", err)
	}
	tm.offTrack, err = m.Int64Counter("race.offtrack", metric.WithDescription("Races lost to the boundary or the clock"))
	if err != nil {
		return nil, fmt.Errorf("creating offtrack counter: %w", err)
	}
	tm.finished, err = m.Int64Counter("race.finished", metric.WithDescription("Races that reached the end"))
	if err != nil {
		return nil, fmt.Errorf("creating finished counter: %w", err)
	}

	return tm, nil
}

func (tm *Manager) PickupConsumed(kind game.PickupKind, slot int, pos mgl64.Vec3) {
	p := [3]float64(pos)
	if !tm.record(Event{Kind: KindPickup, PickupKind: kind, Slot: slot, Position: &p}, KindPickup+"_"+string(kind)) {
		return
	}
	tm.pickups.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}

func (tm *Manager) ObstacleHit(index int, velocity float64) {
	if !tm.record(Event{Kind: KindHit, Obstacle: index, Velocity: velocity}, KindHit) {
		return
	}
	tm.collisions.Add(context.Background(), 1)
}

func (tm *Manager) OffTrack(pos mgl64.Vec3, clockExpired bool) {
	p := [3]float64(pos)
	if !tm.record(Event{Kind: KindOffTrack, Position: &p, ClockExpired: clockExpired}, KindOffTrack) {
		return
	}
	tm.offTrack.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("clock_expired", clockExpired)))
}

func (tm *Manager) RaceOver(result game.RaceResult) {
	if !tm.record(Event{Kind: KindFinished, Result: &result}, KindFinished) {
		return
	}

	tm.mutex.Lock()
	tm.races++
	if result.Score > tm.bestScore {
		tm.bestScore = result.Score
	}
	tm.mutex.Unlock()

	tm.finished.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("timed_out", result.TimedOut)))
	tm.logger.Info().
		Int("score", result.Score).
		Int("collisions", result.Collisions).
		Float64("elapsed", result.Elapsed).
		Msg("race finished")
}

func (tm *Manager) record(e Event, counter string) bool {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return false
	}

	e.Timestamp = time.Now().UnixMilli()
	tm.events = append(tm.events, e)
	if len(tm.events) > tm.maxEntries {
		tm.events = tm.events[1:]
	}

	tm.counters[counter]++
	tm.totals[counter]++
	return true
}

// Update prints the summary when it is due; it runs as the last tick system.
func (tm *Manager) Update(time.Duration) error {
	tm.PrintSummary()
	return nil
}

func (tm *Manager) GetName() string {
	return "TelemetrySystem"
}

func (tm *Manager) GetPriority() int {
	return 250
}

// PrintSummary logs counters gathered since the previous summary and resets
// them. Calls closer than printInterval are ignored.
func (tm *Manager) PrintSummary() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}
	now := time.Now()
	if now.Sub(tm.lastPrint) < tm.printInterval {
		return
	}
	tm.lastPrint = now

	if len(tm.counters) == 0 {
		return
	}

	ev := tm.logger.Info().Int("entries", len(tm.events))
	for key, count := range tm.counters {
		ev = ev.Int(key, count)
	}
	ev.Msg("summary")

	tm.counters = make(map[string]int)
}

// EventsJSON dumps the event log.
func (tm *Manager) EventsJSON() ([]byte, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	return json.MarshalIndent(tm.events, "", "  ")
}

// Events returns a copy of the event log, oldest first.
func (tm *Manager) Events() []Event {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	out := make([]Event, len(tm.events))
	copy(out, tm.events)
	return out
}

// Stats reports lifetime totals for the stats endpoint.
func (tm *Manager) Stats() map[string]interface{} {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	totals := make(map[string]int, len(tm.totals))
	for k, v := range tm.totals {
		totals[k] = v
	}
	return map[string]interface{}{
		"enabled":    tm.enabled,
		"entries":    len(tm.events),
		"races":      tm.races,
		"best_score": tm.bestScore,
		"totals":     totals,
	}
}

func (tm *Manager) SetEnabled(enabled bool) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.enabled = enabled
	tm.logger.Info().Bool("enabled", enabled).Msg("telemetry toggled")
}

// Clear drops the event log and every counter.
func (tm *Manager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.events = make([]Event, 0, tm.maxEntries)
	tm.counters = make(map[string]int)
	tm.totals = make(map[string]int)
	tm.races = 0
	tm.bestScore = 0
}
