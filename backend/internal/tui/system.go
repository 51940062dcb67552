package tui

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"space-racer/backend/internal/game"
)

// RenderSystem draws the session after every race frame on the ticker
// goroutine. Redraw repaints the last frame from elsewhere, e.g. to show the
// pause banner while no systems run.
type RenderSystem struct {
	name     string
	priority int
	session  *game.RaceSession
	renderer *Renderer
	latch    *KeyLatch
	now      func() time.Time
	logger   zerolog.Logger

	mu        sync.Mutex
	last      game.Snapshot
	lastPhase game.Phase
}

func NewRenderSystem(session *game.RaceSession, renderer *Renderer, latch *KeyLatch, logger zerolog.Logger) *RenderSystem {
	return &RenderSystem{
		name:     "RenderSystem",
		priority: 150,
		session:  session,
		renderer: renderer,
		latch:    latch,
		now:      time.Now,
		logger:   logger.With().Str("component", "RenderSystem").Logger(),
	}
}

func (rs *RenderSystem) Update(deltaTime time.Duration) error {
	rs.latch.Expire(rs.now())
	snap := rs.session.Snapshot()

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if snap.Phase != rs.lastPhase {
		rs.logger.Debug().Str("from", string(rs.lastPhase)).Str("to", string(snap.Phase)).Msg("phase changed")
		rs.lastPhase = snap.Phase
	}
	rs.last = snap

	rs.renderer.Begin(snap)
	rs.session.Render(rs.renderer)
	rs.renderer.DrawHUD(snap, false)
	rs.renderer.Show()
	return nil
}

// Redraw paints the last rendered frame again.
func (rs *RenderSystem) Redraw(paused bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.renderer.Begin(rs.last)
	for _, d := range rs.last.Drawables {
		rs.renderer.Draw(d)
	}
	rs.renderer.DrawHUD(rs.last, paused)
	rs.renderer.Show()
}

func (rs *RenderSystem) GetName() string {
	return rs.name
}

func (rs *RenderSystem) GetPriority() int {
	return rs.priority
}
