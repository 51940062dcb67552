package tui

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"space-racer/backend/internal/input"
)

// Command is a key that acts on the client rather than on the vehicle.
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandRestart
	CommandPause
	CommandCamera
)

// Translate maps a key event to a driving action or a client command.
func Translate(ev *tcell.EventKey) (input.Action, Command) {
	switch ev.Key() {
	case tcell.KeyUp:
		return input.Forward, CommandNone
	case tcell.KeyDown:
		return input.Backward, CommandNone
	case tcell.KeyLeft:
		return input.TurnLeft, CommandNone
	case tcell.KeyRight:
		return input.TurnRight, CommandNone
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return "", CommandQuit
	case tcell.KeyRune:
	default:
		return "", CommandNone
	}

	switch ev.Rune() {
	case 'w', 'W':
		return input.Forward, CommandNone
	case 's', 'S':
		return input.Backward, CommandNone
	case 'a', 'A':
		return input.TurnLeft, CommandNone
	case 'd', 'D':
		return input.TurnRight, CommandNone
	case 'c', 'C':
		return "", CommandCamera
	case 'r', 'R':
		return "", CommandRestart
	case 'p', 'P', ' ':
		return "", CommandPause
	case 'q', 'Q':
		return "", CommandQuit
	}
	return "", CommandNone
}

var opposite = map[input.Action]input.Action{
	input.Forward:   input.Backward,
	input.Backward:  input.Forward,
	input.TurnLeft:  input.TurnRight,
	input.TurnRight: input.TurnLeft,
}

// KeyLatch turns terminal key presses into held keys. Terminals report
// presses and auto-repeat but no releases, so an action stays held until
// hold has passed without another press, or its opposite is pressed.
type KeyLatch struct {
	mu        sync.Mutex
	keys      *input.KeyState
	hold      time.Duration
	deadlines map[input.Action]time.Time
}

func NewKeyLatch(keys *input.KeyState, hold time.Duration) *KeyLatch {
	return &KeyLatch{
		keys:      keys,
		hold:      hold,
		deadlines: make(map[input.Action]time.Time),
	}
}

func (l *KeyLatch) Press(a input.Action, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if a == input.ToggleCamera {
		l.keys.Press(a)
		return
	}
	if o, ok := opposite[a]; ok {
		delete(l.deadlines, o)
		l.keys.Release(o)
	}
	l.deadlines[a] = now.Add(l.hold)
	l.keys.Press(a)
}

// Expire releases every action whose hold ran out before now.
func (l *KeyLatch) Expire(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for a, deadline := range l.deadlines {
		if now.After(deadline) {
			delete(l.deadlines, a)
			l.keys.Release(a)
		}
	}
}

func (l *KeyLatch) ReleaseAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for a := range l.deadlines {
		delete(l.deadlines, a)
	}
	l.keys.ReleaseAll()
}
