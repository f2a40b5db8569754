package actuator

import (
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// SimPin is an in-memory pin used for simulation and tests. It serves as
// both output and input.
type SimPin struct {
	mu    sync.Mutex
	state rpio.State
	rises int
}

func NewSimPin(s rpio.State) *SimPin {
	return &SimPin{state: s}
}

func (p *SimPin) High() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == rpio.Low {
		p.rises++
	}
	p.state = rpio.High
}

func (p *SimPin) Low() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = rpio.Low
}

func (p *SimPin) Read() rpio.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *SimPin) Set(high bool) {
	if high {
		p.High()
	} else {
		p.Low()
	}
}

// Rises counts low to high transitions.
func (p *SimPin) Rises() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rises
}

// ManualTimer is a Timer that only matches when Fire is called.
type ManualTimer struct {
	mu      sync.Mutex
	running bool
	compare uint16
	handler func()
	pulses  int
	// History of compare values as programmed.
	history []uint16
}

func NewManualTimer() *ManualTimer {
	return &ManualTimer{}
}

func (t *ManualTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
}

func (t *ManualTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
}

func (t *ManualTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *ManualTimer) SetCompare(v uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.compare = v
	t.history = append(t.history, v)
}

func (t *ManualTimer) Compare() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.compare
}

func (t *ManualTimer) SetHandler(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = fn
}

// Fire performs one compare match if clock is running. Returns false if
// the timer is stopped.
func (t *ManualTimer) Fire() bool {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return false
	}
	t.pulses++
	h := t.handler
	t.mu.Unlock()
	if h != nil {
		h()
	}
	return true
}

// FireN fires up to n matches and returns how many were issued.
func (t *ManualTimer) FireN(n int) int {
	for i := 0; i < n; i++ {
		if !t.Fire() {
			return i
		}
	}
	return n
}

func (t *ManualTimer) Pulses() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pulses
}

func (t *ManualTimer) History() []uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]uint16(nil), t.history...)
}
