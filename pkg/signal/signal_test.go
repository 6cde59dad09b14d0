package signal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal_LatestValueWins(t *testing.T) {
	s := New[int]()
	s.Send(1)
	s.Send(2)
	s.Send(3)

	v, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, ok := s.TryReceive()
	assert.False(t, ok, "value must be consumed by Wait")
}

func TestSignal_WaitHonorsContext(t *testing.T) {
	s := New[float64]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSignal_ConcurrentSendersNeverBlock(t *testing.T) {
	s := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.Send(n*1000 + j)
			}
		}(i)
	}
	wg.Wait()

	_, ok := s.TryReceive()
	assert.True(t, ok)
}

func TestBroadcast_FanOut(t *testing.T) {
	b := NewBroadcast[bool]()
	a := b.Subscribe()
	c := b.Subscribe()
	defer a.Close()
	defer c.Close()

	b.Publish(false)
	b.Publish(true)

	ctx := context.Background()
	va, err := a.Next(ctx)
	require.NoError(t, err)
	vc, err := c.Next(ctx)
	require.NoError(t, err)

	assert.True(t, va)
	assert.True(t, vc)
}

func TestBroadcast_CloseUnsubscribes(t *testing.T) {
	b := NewBroadcast[struct{}]()
	sub := b.Subscribe()
	assert.Equal(t, 1, b.Subscribers())

	sub.Close()
	assert.Equal(t, 0, b.Subscribers())

	// Publishing with no subscribers is a no-op.
	b.Publish(struct{}{})
}

func TestCell_Update(t *testing.T) {
	c := NewCell(10)
	got := c.Update(func(v int) int { return v + 5 })
	assert.Equal(t, 15, got)
	assert.Equal(t, 15, c.Load())

	c.Store(1)
	assert.Equal(t, 1, c.Load())
}
