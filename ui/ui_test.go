package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aliher1911/resinctl/input"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKnob struct {
	mu      sync.Mutex
	delta   int
	pressed bool
}

func (k *fakeKnob) Delta() (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d := k.delta
	k.delta = 0
	return d, nil
}

func (k *fakeKnob) Button() (bool, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.pressed, k.pressed, nil
}

func (k *fakeKnob) set(delta int, pressed bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.delta = delta
	k.pressed = pressed
}

type fakeDoc struct {
	mu      sync.Mutex
	state   State
	sets    []uint16
	toggles int
}

func (d *fakeDoc) SetTarget(target uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Target = target
	d.sets = append(d.sets, target)
}

func (d *fakeDoc) ToggleHome() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.toggles++
	d.state.Target = 0
}

func (d *fakeDoc) GetState() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *fakeDoc) snapshot() ([]uint16, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint16(nil), d.sets...), d.toggles
}

func startPanel(t *testing.T, knob Knob, doc Update) (chan time.Time, chan *input.LedOp) {
	intC := make(chan time.Time, 1)
	ledC := make(chan *input.LedOp, 10)
	p := NewPanel(knob, intC, ledC, doc)
	p.debounceT = time.Millisecond
	p.applyT = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return intC, ledC
}

func TestPanelJogsTarget(t *testing.T) {
	knob := &fakeKnob{}
	doc := &fakeDoc{state: State{Target: 100, Jog: 36, Max: 40000}}
	intC, ledC := startPanel(t, knob, doc)

	knob.set(2, false)
	intC <- time.Now()

	require.Eventually(t, func() bool {
		sets, _ := doc.snapshot()
		return len(sets) == 1
	}, time.Second, time.Millisecond)
	sets, toggles := doc.snapshot()
	assert.Equal(t, []uint16{172}, sets)
	assert.Equal(t, 0, toggles)
	assert.Len(t, ledC, 1)
}

func TestPanelButtonTogglesHoming(t *testing.T) {
	knob := &fakeKnob{}
	doc := &fakeDoc{state: State{Target: 100, Jog: 36, Max: 40000}}
	intC, _ := startPanel(t, knob, doc)

	knob.set(0, true)
	intC <- time.Now()

	require.Eventually(t, func() bool {
		_, toggles := doc.snapshot()
		return toggles == 1
	}, time.Second, time.Millisecond)
	// Edit finishes without touching target.
	time.Sleep(50 * time.Millisecond)
	sets, toggles := doc.snapshot()
	assert.Empty(t, sets)
	assert.Equal(t, 1, toggles)
}

func TestJog(t *testing.T) {
	s := State{Target: 50, Jog: 36, Max: 100}
	assert.Equal(t, uint16(86), jog(s, 1))
	assert.Equal(t, uint16(100), jog(s, 5))
	assert.Equal(t, uint16(14), jog(s, -1))
	assert.Equal(t, uint16(0), jog(s, -2))
}

func TestLoggerDisplay(t *testing.T) {
	d := NewLoggerDisplay()
	_, ok := d.Value(SlotLayer)
	assert.False(t, ok)
	d.SetValue(SlotLayer, 36)
	v, ok := d.Value(SlotLayer)
	assert.True(t, ok)
	assert.Equal(t, uint16(36), v)
	assert.Equal(t, "layer", SlotLayer.String())
}
