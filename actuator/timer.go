package actuator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a compare-match step timer. Every match produces one step pulse
// and one call of the handler. Running reports the clock source state.
type Timer interface {
	Start()
	Stop()
	Running() bool
	SetCompare(v uint16)
	Compare() uint16
	SetHandler(fn func())
}

// StepTimer emulates a CTC mode hardware timer in a goroutine. Period of a
// match is (compare+1) counts of a clock running at hz.
type StepTimer struct {
	step Output
	hz   uint64

	compare atomic.Uint32
	running atomic.Bool
	pulses  atomic.Uint64

	mu      sync.Mutex
	handler func()

	wakeC chan struct{}
}

func NewStepTimer(step Output, hz uint32) *StepTimer {
	step.Low()
	return &StepTimer{
		step:  step,
		hz:    uint64(hz),
		wakeC: make(chan struct{}, 1),
	}
}

func (t *StepTimer) SetHandler(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = fn
}

func (t *StepTimer) Start() {
	t.running.Store(true)
	select {
	case t.wakeC <- struct{}{}:
	default:
	}
}

func (t *StepTimer) Stop() {
	t.running.Store(false)
}

func (t *StepTimer) Running() bool {
	return t.running.Load()
}

func (t *StepTimer) SetCompare(v uint16) {
	t.compare.Store(uint32(v))
}

func (t *StepTimer) Compare() uint16 {
	return uint16(t.compare.Load())
}

// Pulses returns total number of step pulses issued.
func (t *StepTimer) Pulses() uint64 {
	return t.pulses.Load()
}

func (t *StepTimer) period() time.Duration {
	return time.Duration(uint64(t.compare.Load()+1) * uint64(time.Second) / t.hz)
}

// Run is a timer work loop and should be started in a separate goroutine.
func (t *StepTimer) Run(ctx context.Context) error {
	for {
		if !t.running.Load() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.wakeC:
			}
			continue
		}
		next := time.NewTimer(t.period())
		select {
		case <-ctx.Done():
			next.Stop()
			return ctx.Err()
		case <-next.C:
		}
		// Clock could be switched off while waiting for a match.
		if !t.running.Load() {
			continue
		}
		t.fire()
	}
}

func (t *StepTimer) fire() {
	t.step.High()
	t.step.Low()
	t.pulses.Add(1)
	t.mu.Lock()
	h := t.handler
	t.mu.Unlock()
	if h != nil {
		h()
	}
}
