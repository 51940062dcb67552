package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"space-racer/backend/internal/input"
)

// MockSystem records its runs into a shared log.
type MockSystem struct {
	name     string
	priority int
	log      *[]string
	err      error
	panicMsg string
	deltas   []time.Duration
}

func (m *MockSystem) Update(deltaTime time.Duration) error {
	*m.log = append(*m.log, m.name)
	m.deltas = append(m.deltas, deltaTime)
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	return m.err
}

func (m *MockSystem) GetName() string  { return m.name }
func (m *MockSystem) GetPriority() int { return m.priority }

// MockBroadcaster keeps every frame it was asked to send.
type MockBroadcaster struct {
	mu     sync.Mutex
	frames []Snapshot
}

func (mb *MockBroadcaster) BroadcastFrame(snapshot Snapshot) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.frames = append(mb.frames, snapshot)
	return nil
}

func (mb *MockBroadcaster) Len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.frames)
}

func createTestGameTicker() *GameTicker {
	return NewGameTicker(60, zerolog.Nop())
}

func TestGameTicker_RunsSystemsByPriority(t *testing.T) {
	gt := createTestGameTicker()
	var order []string

	gt.RegisterSystem(&MockSystem{name: "metrics", priority: 200, log: &order})
	gt.RegisterSystem(&MockSystem{name: "race", priority: 10, log: &order})
	gt.RegisterSystem(&MockSystem{name: "sync", priority: 100, log: &order})

	base := time.Now()
	gt.lastTickTime = base
	gt.executeTick(base.Add(16 * time.Millisecond))

	assert.Equal(t, []string{"race", "sync", "metrics"}, order)
	assert.Equal(t, uint64(1), gt.GetTickCount())
}

func TestGameTicker_DeltaAndElapsed(t *testing.T) {
	gt := createTestGameTicker()
	var order []string
	sys := &MockSystem{name: "race", priority: 10, log: &order}
	gt.RegisterSystem(sys)

	base := time.Now()
	gt.lastTickTime = base
	gt.executeTick(base.Add(16 * time.Millisecond))
	gt.executeTick(base.Add(40 * time.Millisecond))
	// stale tick from before a resume
	gt.lastTickTime = base.Add(time.Second)
	gt.executeTick(base.Add(50 * time.Millisecond))

	assert.Equal(t, []time.Duration{16 * time.Millisecond, 24 * time.Millisecond, 0}, sys.deltas)
	assert.Equal(t, 40*time.Millisecond, gt.Elapsed())
}

func TestGameTicker_SystemFailuresAreIsolated(t *testing.T) {
	gt := createTestGameTicker()
	var order []string

	gt.RegisterSystem(&MockSystem{name: "panicky", priority: 1, log: &order, panicMsg: "boom"})
	gt.RegisterSystem(&MockSystem{name: "failing", priority: 2, log: &order, err: errors.New("nope")})
	gt.RegisterSystem(&MockSystem{name: "fine", priority: 3, log: &order})

	gt.lastTickTime = time.Now()
	gt.executeTick(gt.lastTickTime.Add(time.Millisecond))

	assert.Equal(t, []string{"panicky", "failing", "fine"}, order)

	m, ok := gt.perfMonitor.SystemMetrics("panicky")
	require.True(t, ok)
	assert.Equal(t, uint64(1), m.Panics)
	assert.Equal(t, uint64(1), m.Errors)

	m, ok = gt.perfMonitor.SystemMetrics("failing")
	require.True(t, ok)
	assert.Equal(t, uint64(1), m.Errors)
	assert.Equal(t, uint64(1), m.TotalExecutions)

	m, ok = gt.perfMonitor.SystemMetrics("fine")
	require.True(t, ok)
	assert.Zero(t, m.Errors)
}

func TestGameTicker_StartPauseStop(t *testing.T) {
	gt := NewGameTicker(200, zerolog.Nop())
	require.NoError(t, gt.Start())
	assert.True(t, gt.IsRunning())

	assert.Eventually(t, func() bool { return gt.GetTickCount() > 2 }, 2*time.Second, 5*time.Millisecond)

	gt.Pause()
	assert.Eventually(t, gt.IsPaused, time.Second, 5*time.Millisecond)
	paused := gt.GetTickCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, paused, gt.GetTickCount())

	gt.Resume()
	assert.Eventually(t, func() bool { return !gt.IsPaused() && gt.GetTickCount() > paused }, 2*time.Second, 5*time.Millisecond)

	stats := gt.GetStats()
	assert.Equal(t, 200, stats["target_fps"])
	assert.Equal(t, true, stats["is_running"])

	gt.Stop()
	assert.False(t, gt.IsRunning())
	assert.Error(t, gt.Start())
}

func TestPerformanceMonitor_SlidingAverage(t *testing.T) {
	pm := NewPerformanceMonitor(2, time.Millisecond)
	pm.initSystemMetrics("s")

	pm.recordExecution("s", 10*time.Millisecond)
	pm.recordExecution("s", 20*time.Millisecond)
	pm.recordExecution("s", 40*time.Millisecond)

	m, ok := pm.SystemMetrics("s")
	require.True(t, ok)
	assert.Equal(t, 30*time.Millisecond, m.AverageTime)
	assert.Equal(t, 40*time.Millisecond, m.MaxTime)
	assert.Equal(t, uint64(3), m.TotalExecutions)
}

func TestRaceSystem_FramesAndRestart(t *testing.T) {
	s, _ := newTestSession(t, func(c *Config) {
		c.Pickups.TimeActive = 0
		c.Pickups.CoinActive = 0
	})
	keys := input.NewKeyState()
	keys.Press(input.Forward)

	gt := createTestGameTicker()
	race := NewRaceSystem(s, keys, gt, zerolog.Nop())
	gt.RegisterSystem(race)

	base := time.Now()
	gt.lastTickTime = base
	for i := 1; i <= 5; i++ {
		gt.executeTick(base.Add(time.Duration(i) * 16 * time.Millisecond))
	}
	assert.Equal(t, uint64(5), s.Frames())
	assert.InDelta(t, 0.1, s.Vehicle().Velocity, 1e-9)

	race.RequestRestart()
	race.RequestRestart()
	gt.executeTick(base.Add(100 * time.Millisecond))

	assert.Equal(t, uint64(1), s.Frames())
	assert.Equal(t, PhaseRacing, s.Phase())
	assert.Equal(t, 30, s.Obstacles().Len())
}

func TestNetworkSyncSystem_Throttles(t *testing.T) {
	s, _ := newTestSession(t, nil)
	mb := &MockBroadcaster{}

	nss := NewNetworkSyncSystem(s, time.Hour, zerolog.Nop())
	require.NoError(t, nss.Update(0), "no broadcaster is fine")

	nss.SetBroadcaster(mb)
	require.NoError(t, nss.Update(0))
	require.NoError(t, nss.Update(0))
	assert.Equal(t, 1, mb.Len())

	every := NewNetworkSyncSystem(s, 0, zerolog.Nop())
	every.SetBroadcaster(mb)
	for i := 0; i < 3; i++ {
		require.NoError(t, every.Update(0))
	}
	assert.Equal(t, 4, mb.Len())
	assert.Equal(t, PhaseRacing, mb.frames[0].Phase)
}

func TestGameMetricsSystem_Update(t *testing.T) {
	s, err := NewRaceSession(DefaultConfig(), rand.New(rand.NewPCG(1, 2)), zerolog.Nop())
	require.NoError(t, err)

	var buf bytes.Buffer
	gt := createTestGameTicker()
	gms := NewGameMetricsSystem(gt, s, 0, zerolog.New(&buf))
	gt.RegisterSystem(gms)

	// a stopped ticker reports zeros rather than failing
	assert.Zero(t, gt.Uptime())
	assert.Zero(t, gt.ActualFPS())
	require.NoError(t, gms.Update(time.Millisecond))
	assert.Equal(t, 200, gms.GetPriority())

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "race metrics", line["message"])
	assert.Equal(t, float64(0), line["fps"])
	assert.Equal(t, float64(60), line["targetFps"])
	assert.Equal(t, "racing", line["phase"])
	assert.Equal(t, float64(30), line["seconds"])
}

func TestGameTicker_TypedStatsMatchMap(t *testing.T) {
	gt := createTestGameTicker()
	require.NoError(t, gt.Start())
	t.Cleanup(gt.Stop)

	assert.Eventually(t, func() bool { return gt.GetTickCount() > 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Greater(t, gt.Uptime(), time.Duration(0))
	assert.Greater(t, gt.ActualFPS(), 0.0)

	stats := gt.GetStats()
	assert.IsType(t, float64(0), stats["actual_fps"])
	assert.IsType(t, time.Duration(0), stats["average_tick_time"])
	assert.Equal(t, 60, stats["target_fps"])
}
