// Package sim holds the per-frame simulation: the character controller, the
// orbit camera, the collectible minigame, particles and the input and timer
// plumbing that drives them. Everything here is stepped by the scene on a
// single goroutine; only InputState is safe to touch from the outside.
package sim

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Key is a semantic control, already mapped from whatever the client binds.
type Key string

const (
	KeyForward Key = "forward"
	KeyBack    Key = "back"
	KeyLeft    Key = "left"
	KeyRight   Key = "right"
)

// InputSample is one tick of control input: digital move axes (x right,
// y forward), a consumed jump press and the drained look deltas.
type InputSample struct {
	Move    mgl32.Vec2
	Jump    bool
	OrbitDX float32
	OrbitDY float32
	TouchDX float32
	TouchDY float32
}

// InputState collects input written by session goroutines and drained once
// per tick. Held keys are level state; jump presses and look deltas
// accumulate between drains so fast input is never dropped.
type InputState struct {
	mu      sync.Mutex
	held    map[Key]bool
	jump    bool
	orbitDX float32
	orbitDY float32
	touchDX float32
	touchDY float32
}

func NewInputState() *InputState {
	return &InputState{held: make(map[Key]bool)}
}

func (s *InputState) SetKey(k Key, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if down {
		s.held[k] = true
	} else {
		delete(s.held, k)
	}
}

func (s *InputState) RequestJump() {
	s.mu.Lock()
	s.jump = true
	s.mu.Unlock()
}

func (s *InputState) AddPointerDelta(dx, dy float32) {
	s.mu.Lock()
	s.orbitDX += dx
	s.orbitDY += dy
	s.mu.Unlock()
}

func (s *InputState) AddTouchDelta(dx, dy float32) {
	s.mu.Lock()
	s.touchDX += dx
	s.touchDY += dy
	s.mu.Unlock()
}

// Drain returns the pending sample and clears the accumulated parts. Held
// keys stay held until their release arrives.
func (s *InputState) Drain() InputSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	var move mgl32.Vec2
	if s.held[KeyForward] {
		move[1]++
	}
	if s.held[KeyBack] {
		move[1]--
	}
	if s.held[KeyRight] {
		move[0]++
	}
	if s.held[KeyLeft] {
		move[0]--
	}

	sample := InputSample{
		Move:    move,
		Jump:    s.jump,
		OrbitDX: s.orbitDX,
		OrbitDY: s.orbitDY,
		TouchDX: s.touchDX,
		TouchDY: s.touchDY,
	}
	s.jump = false
	s.orbitDX, s.orbitDY = 0, 0
	s.touchDX, s.touchDY = 0, 0
	return sample
}

// Reset clears everything including held keys, so a departing pilot cannot
// leave the character walking.
func (s *InputState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = make(map[Key]bool)
	s.jump = false
	s.orbitDX, s.orbitDY = 0, 0
	s.touchDX, s.touchDY = 0, 0
}
