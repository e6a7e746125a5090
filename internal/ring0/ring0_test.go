package ring0

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingPort struct {
	inFlight atomic.Int32
	overlap  atomic.Bool
	closed   atomic.Bool
}

func (p *countingPort) ReadMSR(index uint32, affinity uint64) (uint32, uint32, bool) {
	if p.inFlight.Add(1) > 1 {
		p.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	p.inFlight.Add(-1)
	return index, uint32(affinity), true
}

func (p *countingPort) Close() error {
	p.closed.Store(true)
	return nil
}

func TestMask(t *testing.T) {
	assert.Equal(t, uint64(1), Mask(0))
	assert.Equal(t, uint64(1<<5), Mask(5))
	assert.Equal(t, uint64(1<<63), Mask(63))
	assert.Zero(t, Mask(64))
	assert.Zero(t, Mask(-1))
}

func TestSynchronizedSerializesReads(t *testing.T) {
	inner := &countingPort{}
	port := Synchronized(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			eax, edx, ok := port.ReadMSR(IA32ThermStatus, Mask(thread))
			assert.True(t, ok)
			assert.Equal(t, IA32ThermStatus, eax)
			assert.Equal(t, uint32(Mask(thread)), edx)
		}(i)
	}
	wg.Wait()

	assert.False(t, inner.overlap.Load(), "reads overlapped")
	assert.NoError(t, port.Close())
	assert.True(t, inner.closed.Load())
}

func TestSynchronizedIsIdempotent(t *testing.T) {
	port := Synchronized(&countingPort{})
	assert.Same(t, port, Synchronized(port))
}
