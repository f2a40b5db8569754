package i2cdev

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEdges struct {
	pending atomic.Int32
}

func (f *fakeEdges) EdgeDetected() bool {
	for {
		n := f.pending.Load()
		if n == 0 {
			return false
		}
		if f.pending.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

func TestWatchDeliversEdges(t *testing.T) {
	src := &fakeEdges{}
	c := make(chan time.Time, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Watch(ctx, src, time.Millisecond, c)
		close(done)
	}()

	src.pending.Store(1)
	select {
	case <-c:
	case <-time.After(time.Second):
		require.Fail(t, "no notification")
	}

	cancel()
	<-done
}

func TestDisconnectedIntPin(t *testing.T) {
	p := NewIntPin(-1, 0)
	assert.False(t, p.EdgeDetected())
}

func TestConfDefault(t *testing.T) {
	c := Conf{Bus: 1}
	c.Default(0x36)
	assert.Equal(t, uint8(0x36), c.Addr)
	c.Default(0x50)
	assert.Equal(t, uint8(0x36), c.Addr)
}
