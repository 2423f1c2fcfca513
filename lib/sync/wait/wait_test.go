package wait

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitWithTimeout(t *testing.T) {
	w := &Wait{}
	assert.False(t, w.WaitWithTimeout(time.Millisecond))

	w.Add(1)
	assert.True(t, w.WaitWithTimeout(10*time.Millisecond))

	go func() {
		time.Sleep(10 * time.Millisecond)
		w.Done()
	}()
	assert.False(t, w.WaitWithTimeout(time.Second))
}

func TestWaitContext(t *testing.T) {
	w := &Wait{}
	w.Add(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.WaitContext(ctx), context.Canceled)

	w.Done()
	assert.NoError(t, w.WaitContext(context.Background()))
}
