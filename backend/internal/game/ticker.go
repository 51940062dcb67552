package game

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// TickSystem is one stage of the frame loop.
type TickSystem interface {
	Update(deltaTime time.Duration) error
	GetName() string
	GetPriority() int // lower runs first
}

// GameTicker drives the registered systems from a single goroutine. All
// simulation state is only ever touched from that goroutine, so systems need
// no locking among themselves.
type GameTicker struct {
	targetFPS    int
	tickDuration time.Duration
	maxTickTime  time.Duration

	isRunning    atomic.Bool
	isPaused     atomic.Bool
	tickCount    atomic.Uint64
	skippedTicks atomic.Uint64
	startTime    time.Time
	lastTickTime time.Time

	// simTime is the sum of deltas of executed frames, paused time excluded.
	simTime time.Duration

	systems      []TickSystem
	systemsMutex sync.RWMutex

	perfMonitor *PerformanceMonitor

	ctx       context.Context
	cancel    context.CancelFunc
	pauseChan chan bool
	done      chan struct{}

	metricsMutex    sync.Mutex
	averageTickTime time.Duration
	maxObservedTick time.Duration

	logger           zerolog.Logger
	warningThreshold time.Duration
}

// PerformanceMonitor keeps per-system execution times over a sliding window.
type PerformanceMonitor struct {
	systemMetrics map[string]*SystemMetrics
	mutex         sync.RWMutex

	metricsWindow     int
	warningThreshold  time.Duration
	criticalThreshold time.Duration
}

type SystemMetrics struct {
	Name              string
	LastExecutionTime time.Duration
	AverageTime       time.Duration
	MaxTime           time.Duration
	TotalExecutions   uint64
	Errors            uint64
	Panics            uint64

	recentTimes  []time.Duration
	recentIndex  int
	windowFilled bool
}

// NewGameTicker creates a ticker running at targetFPS frames per second.
func NewGameTicker(targetFPS int, logger zerolog.Logger) *GameTicker {
	if targetFPS <= 0 {
		targetFPS = 60
	}

	tickDuration := time.Second / time.Duration(targetFPS)
	ctx, cancel := context.WithCancel(context.Background())

	return &GameTicker{
		targetFPS:        targetFPS,
		tickDuration:     tickDuration,
		maxTickTime:      tickDuration * 2,
		systems:          make([]TickSystem, 0),
		perfMonitor:      NewPerformanceMonitor(120, tickDuration/4),
		ctx:              ctx,
		cancel:           cancel,
		pauseChan:        make(chan bool, 1),
		done:             make(chan struct{}),
		logger:           logger.With().Str("component", "GameTicker").Logger(),
		warningThreshold: tickDuration / 2,
	}
}

func NewPerformanceMonitor(windowSize int, warningThreshold time.Duration) *PerformanceMonitor {
	return &PerformanceMonitor{
		systemMetrics:     make(map[string]*SystemMetrics),
		metricsWindow:     windowSize,
		warningThreshold:  warningThreshold,
		criticalThreshold: warningThreshold * 2,
	}
}

// Start launches the frame loop. Calling Start on a running ticker is a no-op.
func (gt *GameTicker) Start() error {
	if !gt.isRunning.CompareAndSwap(false, true) {
		return nil
	}
	if gt.ctx.Err() != nil {
		gt.isRunning.Store(false)
		return fmt.Errorf("ticker already stopped: %w", gt.ctx.Err())
	}

	gt.metricsMutex.Lock()
	gt.startTime = time.Now()
	gt.lastTickTime = gt.startTime
	gt.metricsMutex.Unlock()

	gt.logger.Info().
		Int("fps", gt.targetFPS).
		Dur("tick", gt.tickDuration).
		Msg("frame loop started")

	go gt.gameLoop()
	return nil
}

// Stop ends the frame loop and waits for the current frame to finish.
func (gt *GameTicker) Stop() {
	if !gt.isRunning.CompareAndSwap(true, false) {
		return
	}

	gt.cancel()
	<-gt.done

	gt.logger.Info().Uint64("frames", gt.tickCount.Load()).Msg("frame loop stopped")
}

// Pause freezes the loop between frames. Paused wall time is not fed to the
// systems, so the race clock stops too.
func (gt *GameTicker) Pause() {
	gt.requestPause(true)
}

func (gt *GameTicker) Resume() {
	gt.requestPause(false)
}

func (gt *GameTicker) requestPause(pause bool) {
	select {
	case <-gt.pauseChan:
	default:
	}
	select {
	case gt.pauseChan <- pause:
	default:
	}
}

// RegisterSystem adds a system keeping the list sorted by priority.
func (gt *GameTicker) RegisterSystem(system TickSystem) {
	gt.systemsMutex.Lock()
	defer gt.systemsMutex.Unlock()

	gt.systems = append(gt.systems, system)
	for i := len(gt.systems) - 1; i > 0; i-- {
		if gt.systems[i].GetPriority() < gt.systems[i-1].GetPriority() {
			gt.systems[i], gt.systems[i-1] = gt.systems[i-1], gt.systems[i]
		} else {
			break
		}
	}

	gt.perfMonitor.initSystemMetrics(system.GetName())

	gt.logger.Debug().
		Str("system", system.GetName()).
		Int("priority", system.GetPriority()).
		Msg("system registered")
}

func (gt *GameTicker) gameLoop() {
	defer close(gt.done)

	ticker := time.NewTicker(gt.tickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-gt.ctx.Done():
			return

		case pause := <-gt.pauseChan:
			if !pause {
				continue
			}
			gt.isPaused.Store(true)
			gt.logger.Info().Msg("paused")
			for pause {
				select {
				case <-gt.ctx.Done():
					return
				case pause = <-gt.pauseChan:
				}
			}
			gt.lastTickTime = time.Now()
			gt.isPaused.Store(false)
			gt.logger.Info().Msg("resumed")

		case tickTime := <-ticker.C:
			gt.executeTick(tickTime)
		}
	}
}

// executeTick runs one frame stamped with tickTime.
func (gt *GameTicker) executeTick(tickTime time.Time) {
	tickStart := time.Now()
	deltaTime := tickTime.Sub(gt.lastTickTime)
	if deltaTime < 0 {
		// a tick queued before a resume
		deltaTime = 0
	}

	if deltaTime > gt.tickDuration*2 {
		gt.logger.Warn().
			Dur("delta", deltaTime).
			Dur("expected", gt.tickDuration).
			Msg("large gap between frames")
		gt.skippedTicks.Add(1)
	}

	gt.tickCount.Add(1)
	gt.lastTickTime = tickTime
	gt.simTime += deltaTime

	gt.executeAllSystems(deltaTime)

	totalTickTime := time.Since(tickStart)
	gt.updateTickMetrics(totalTickTime)
	gt.checkPerformance(totalTickTime)
}

func (gt *GameTicker) executeAllSystems(deltaTime time.Duration) {
	gt.systemsMutex.RLock()
	systems := make([]TickSystem, len(gt.systems))
	copy(systems, gt.systems)
	gt.systemsMutex.RUnlock()

	for _, system := range systems {
		gt.executeSystem(system, deltaTime)
	}
}

func (gt *GameTicker) executeSystem(system TickSystem, deltaTime time.Duration) {
	systemStart := time.Now()
	systemName := system.GetName()

	defer func() {
		if r := recover(); r != nil {
			gt.logger.Error().
				Str("system", systemName).
				Interface("panic", r).
				Msg("system panicked")
			gt.perfMonitor.recordPanic(systemName)
		}
	}()

	err := system.Update(deltaTime)
	gt.perfMonitor.recordExecution(systemName, time.Since(systemStart))

	if err != nil {
		gt.logger.Error().Err(err).Str("system", systemName).Msg("system update failed")
		gt.perfMonitor.recordError(systemName)
	}
}

// Elapsed is the simulated time since Start, paused time excluded. Only
// meaningful from inside a system's Update.
func (gt *GameTicker) Elapsed() time.Duration {
	return gt.simTime
}

func (gt *GameTicker) GetTickCount() uint64 {
	return gt.tickCount.Load()
}

func (gt *GameTicker) IsRunning() bool {
	return gt.isRunning.Load()
}

func (gt *GameTicker) IsPaused() bool {
	return gt.isPaused.Load()
}

func (gt *GameTicker) TargetFPS() int {
	return gt.targetFPS
}

// Uptime is the wall time since Start, zero while stopped.
func (gt *GameTicker) Uptime() time.Duration {
	if !gt.isRunning.Load() {
		return 0
	}
	gt.metricsMutex.Lock()
	startTime := gt.startTime
	gt.metricsMutex.Unlock()
	return time.Since(startTime)
}

// ActualFPS is the mean tick rate since Start.
func (gt *GameTicker) ActualFPS() float64 {
	uptime := gt.Uptime()
	if uptime <= 0 {
		return 0
	}
	return float64(gt.tickCount.Load()) / uptime.Seconds()
}

func (gt *GameTicker) AverageTickTime() time.Duration {
	gt.metricsMutex.Lock()
	defer gt.metricsMutex.Unlock()
	return gt.averageTickTime
}

// GetStats reports loop health for the stats endpoint.
func (gt *GameTicker) GetStats() map[string]interface{} {
	gt.systemsMutex.RLock()
	systemsCount := len(gt.systems)
	gt.systemsMutex.RUnlock()

	gt.metricsMutex.Lock()
	maxObservedTick := gt.maxObservedTick
	gt.metricsMutex.Unlock()

	return map[string]interface{}{
		"target_fps":        gt.targetFPS,
		"actual_fps":        gt.ActualFPS(),
		"tick_count":        gt.tickCount.Load(),
		"uptime_seconds":    gt.Uptime().Seconds(),
		"average_tick_time": gt.AverageTickTime(),
		"max_observed_tick": maxObservedTick,
		"skipped_ticks":     gt.skippedTicks.Load(),
		"is_running":        gt.isRunning.Load(),
		"is_paused":         gt.isPaused.Load(),
		"systems_count":     systemsCount,
		"systems":           gt.perfMonitor.GetSystemsStats(),
	}
}

func (pm *PerformanceMonitor) initSystemMetrics(systemName string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	pm.systemMetrics[systemName] = &SystemMetrics{
		Name:        systemName,
		recentTimes: make([]time.Duration, pm.metricsWindow),
	}
}

func (pm *PerformanceMonitor) recordExecution(systemName string, executionTime time.Duration) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	metrics, exists := pm.systemMetrics[systemName]
	if !exists {
		return
	}

	metrics.LastExecutionTime = executionTime
	metrics.TotalExecutions++
	if executionTime > metrics.MaxTime {
		metrics.MaxTime = executionTime
	}

	metrics.recentTimes[metrics.recentIndex] = executionTime
	metrics.recentIndex = (metrics.recentIndex + 1) % pm.metricsWindow
	if !metrics.windowFilled && metrics.recentIndex == 0 {
		metrics.windowFilled = true
	}

	pm.recalculateAverage(metrics)
}

func (pm *PerformanceMonitor) recordError(systemName string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if metrics, exists := pm.systemMetrics[systemName]; exists {
		metrics.Errors++
	}
}

func (pm *PerformanceMonitor) recordPanic(systemName string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if metrics, exists := pm.systemMetrics[systemName]; exists {
		metrics.Panics++
		metrics.Errors++
	}
}

func (pm *PerformanceMonitor) recalculateAverage(metrics *SystemMetrics) {
	var total time.Duration

	limit := pm.metricsWindow
	if !metrics.windowFilled {
		limit = metrics.recentIndex
	}
	for i := 0; i < limit; i++ {
		total += metrics.recentTimes[i]
	}
	if limit > 0 {
		metrics.AverageTime = total / time.Duration(limit)
	}
}

// SystemMetrics returns a copy of one system's counters.
func (pm *PerformanceMonitor) SystemMetrics(systemName string) (SystemMetrics, bool) {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	metrics, ok := pm.systemMetrics[systemName]
	if !ok {
		return SystemMetrics{}, false
	}
	out := *metrics
	out.recentTimes = nil
	return out, true
}

func (pm *PerformanceMonitor) GetSystemsStats() map[string]interface{} {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	systemsStats := make(map[string]interface{}, len(pm.systemMetrics))
	for name, metrics := range pm.systemMetrics {
		systemsStats[name] = map[string]interface{}{
			"last_execution_time": metrics.LastExecutionTime,
			"average_time":        metrics.AverageTime,
			"max_time":            metrics.MaxTime,
			"total_executions":    metrics.TotalExecutions,
			"errors":              metrics.Errors,
			"panics":              metrics.Panics,
		}
	}
	return systemsStats
}

func (gt *GameTicker) updateTickMetrics(tickTime time.Duration) {
	gt.metricsMutex.Lock()
	defer gt.metricsMutex.Unlock()

	if tickTime > gt.maxObservedTick {
		gt.maxObservedTick = tickTime
	}
	if gt.averageTickTime == 0 {
		gt.averageTickTime = tickTime
	} else {
		gt.averageTickTime = (gt.averageTickTime*9 + tickTime) / 10
	}
}

func (gt *GameTicker) checkPerformance(tickTime time.Duration) {
	switch {
	case tickTime > gt.maxTickTime:
		gt.logger.Warn().
			Dur("took", tickTime).
			Dur("max", gt.maxTickTime).
			Msg("frame exceeded its budget")
	case tickTime > gt.warningThreshold:
		gt.logger.Debug().
			Dur("took", tickTime).
			Dur("target", gt.tickDuration).
			Msg("slow frame")
	}
}
