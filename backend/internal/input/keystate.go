package input

import (
	"fmt"
	"sync"
)

// Action is a logical control name, independent of the physical key.
type Action string

const (
	Forward      Action = "forward"
	Backward     Action = "backward"
	TurnLeft     Action = "turn-left"
	TurnRight    Action = "turn-right"
	ToggleCamera Action = "toggle-camera"
)

// Actions lists every action a client may send.
var Actions = []Action{Forward, Backward, TurnLeft, TurnRight, ToggleCamera}

// ParseAction validates an action name coming off the wire.
func ParseAction(name string) (Action, error) {
	for _, a := range Actions {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", name)
}

// State is the polled view of the controls for one frame.
type State struct {
	Forward     bool `json:"forward" msgpack:"forward"`
	Backward    bool `json:"backward" msgpack:"backward"`
	TurnLeft    bool `json:"turnLeft" msgpack:"turnLeft"`
	TurnRight   bool `json:"turnRight" msgpack:"turnRight"`
	ThirdPerson bool `json:"thirdPerson" msgpack:"thirdPerson"`
}

// KeyState is the held-key map written by UI/network handlers and read once
// per frame by the simulation.
type KeyState struct {
	mu          sync.Mutex
	held        map[Action]bool
	thirdPerson bool
}

func NewKeyState() *KeyState {
	return &KeyState{held: make(map[Action]bool, len(Actions))}
}

// Press marks an action as held. Pressing toggle-camera flips the camera
// latch instead; it has no held state.
func (k *KeyState) Press(a Action) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if a == ToggleCamera {
		k.thirdPerson = !k.thirdPerson
		return
	}
	k.held[a] = true
}

func (k *KeyState) Release(a Action) {
	k.mu.Lock()
	defer k.mu.Unlock()

	delete(k.held, a)
}

// Set applies a key-down/key-up pair as received from a client.
func (k *KeyState) Set(a Action, down bool) {
	if down {
		k.Press(a)
		return
	}
	k.Release(a)
}

// ReleaseAll drops every held action, e.g. when the controlling client leaves.
func (k *KeyState) ReleaseAll() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for a := range k.held {
		delete(k.held, a)
	}
}

func (k *KeyState) Held(a Action) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.held[a]
}

// Snapshot copies the current map into a State.
func (k *KeyState) Snapshot() State {
	k.mu.Lock()
	defer k.mu.Unlock()

	return State{
		Forward:     k.held[Forward],
		Backward:    k.held[Backward],
		TurnLeft:    k.held[TurnLeft],
		TurnRight:   k.held[TurnRight],
		ThirdPerson: k.thirdPerson,
	}
}
