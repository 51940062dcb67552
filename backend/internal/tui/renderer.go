// Package tui draws the race into a terminal with tcell.
package tui

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"

	"space-racer/backend/internal/game"
	"space-racer/backend/internal/world"
)

const (
	hudRows = 1
	// chaseRadius is how many world units fit between the vehicle and the
	// nearest screen edge in third person.
	chaseRadius = 18.0
)

var (
	styleRing     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleSun      = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleUFO      = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleObstacle = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleCoin     = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleTimer    = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleHUD      = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	styleBanner   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorRed).Bold(true)
)

// Renderer is a world.Renderer over a tcell screen. The map is a plan view
// of the track plane: the whole ring in top-down mode, or a rotated close-up
// around the vehicle in third person.
type Renderer struct {
	screen tcell.Screen
	track  world.Track

	width, height int
	view          mgl64.Mat4
	// rows per world unit; a cell is about twice as tall as it is wide so
	// columns get twice as many.
	unit    float64
	heading float64
	// turn is the part of heading the view rotation already shows.
	turn float64
	ufo  *mgl64.Vec3
}

var _ world.Renderer = (*Renderer)(nil)

func NewRenderer(screen tcell.Screen, track world.Track) *Renderer {
	return &Renderer{screen: screen, track: track, view: mgl64.Ident4()}
}

// Begin clears the screen and sets the view for frame s.
func (r *Renderer) Begin(s game.Snapshot) {
	r.screen.Clear()
	r.width, r.height = r.screen.Size()
	r.heading = s.Heading
	r.turn = 0
	r.ufo = nil

	radius := r.track.OuterRadius
	if s.Camera.Mode == game.CameraThirdPerson {
		radius = chaseRadius
		r.turn = s.Heading
		// turn the world so the nose points up the screen
		pos := s.Position
		r.view = mgl64.HomogRotate3DZ(s.Heading).Mul4(mgl64.Translate3D(-pos.X(), -pos.Y(), 0))
	} else {
		r.view = mgl64.Ident4()
	}

	mapRows := r.height - hudRows
	r.unit = math.Min(float64(r.width/2-1)/(2*radius), float64(mapRows/2-1)/radius)
	if r.unit <= 0 {
		r.unit = 0
		return
	}

	r.ring(r.track.InnerRadius, '.', styleRing)
	r.ring(r.track.OuterRadius, '.', styleRing)
}

// Project maps a world point to a cell. ok is false when it falls outside the
// map area.
func (r *Renderer) Project(p mgl64.Vec3) (x, y int, ok bool) {
	if r.unit == 0 {
		return 0, 0, false
	}
	v := r.view.Mul4x1(mgl64.Vec4{p.X(), p.Y(), 0, 1})
	cx := r.width / 2
	cy := hudRows + (r.height-hudRows)/2
	x = cx + int(math.Round(v.X()*2*r.unit))
	y = cy - int(math.Round(v.Y()*r.unit))
	ok = x >= 0 && x < r.width && y >= hudRows && y < r.height
	return x, y, ok
}

func (r *Renderer) ring(radius float64, ch rune, style tcell.Style) {
	steps := int(2*math.Pi*radius*2*r.unit) + 8
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		r.plot(world.FromPolar(a, radius, 0), ch, style)
	}
}

func (r *Renderer) plot(p mgl64.Vec3, ch rune, style tcell.Style) {
	if x, y, ok := r.Project(p); ok {
		r.screen.SetContent(x, y, ch, nil, style)
	}
}

// Draw places one glyph per drawable. The track disk is already shown by the
// ring outline.
func (r *Renderer) Draw(d world.Drawable) {
	switch d.Shape {
	case world.ShapeTrack:
	case world.ShapeSun:
		radius := d.Transform.Col(0).Vec3().Len()
		r.ring(radius, '*', styleSun)
	case world.ShapeUFO:
		pos := d.Position()
		r.ufo = &pos
		r.plotUFO()
	case world.ShapeObstacle:
		r.plot(d.Position(), 'o', styleObstacle)
	case world.ShapeCoin:
		r.plot(d.Position(), '$', styleCoin)
	case world.ShapeTimeBonus:
		r.plot(d.Position(), '+', styleTimer)
	default:
		r.plot(d.Position(), '?', tcell.StyleDefault)
	}
}

func (r *Renderer) plotUFO() {
	if r.ufo != nil {
		r.plot(*r.ufo, headingGlyph(r.heading-r.turn), styleUFO)
	}
}

// headingGlyph picks the arrow closest to heading h, where 0 is up the screen
// and positive turns right.
func headingGlyph(h float64) rune {
	arrows := []rune{'↑', '↗', '→', '↘', '↓', '↙', '←', '↖'}
	sector := int(math.Round(h/(math.Pi/4))) % len(arrows)
	if sector < 0 {
		sector += len(arrows)
	}
	return arrows[sector]
}

// DrawHUD writes the status bar and, when the race has ended, a banner. The
// vehicle is drawn again so pickups never hide it.
func (r *Renderer) DrawHUD(s game.Snapshot, paused bool) {
	r.plotUFO()

	status := string(s.Phase)
	if paused {
		status = "paused"
	}
	camera := "top"
	if s.Camera.Mode == game.CameraThirdPerson {
		camera = "chase"
	}
	line := fmt.Sprintf(" TIME %2d  SCORE %3d  SPEED %5.2f/%-5.2f  HITS %d  %s  [%s]",
		s.HUD.Seconds, s.HUD.Score, s.Velocity, s.MaxSpeed, s.Collisions, status, camera)

	for x := 0; x < r.width; x++ {
		r.screen.SetContent(x, 0, ' ', nil, styleHUD)
	}
	r.text(0, 0, line, styleHUD)

	switch {
	case s.Phase == game.PhaseOver:
		r.banner(fmt.Sprintf(" RACE OVER  score %d  press r to race again ", s.HUD.Score))
	case s.Phase == game.PhaseFalling && s.OffTrack:
		r.banner(" OFF TRACK ")
	case s.Phase == game.PhaseFalling:
		r.banner(" OUT OF TIME ")
	case paused:
		r.banner(" PAUSED ")
	}
}

func (r *Renderer) banner(msg string) {
	x := (r.width - len([]rune(msg))) / 2
	if x < 0 {
		x = 0
	}
	r.text(x, hudRows+(r.height-hudRows)/2, msg, styleBanner)
}

func (r *Renderer) text(x, y int, s string, style tcell.Style) {
	for _, ch := range s {
		if x >= r.width {
			return
		}
		r.screen.SetContent(x, y, ch, nil, style)
		x++
	}
}

func (r *Renderer) Show() {
	r.screen.Show()
}
