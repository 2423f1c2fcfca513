// Package wait 带超时的 WaitGroup
package wait

import (
	"context"
	"sync"
	"time"
)

// Wait a sync.WaitGroup with timeout
type Wait struct {
	wg sync.WaitGroup
}

func (w *Wait) Add(delta int) {
	w.wg.Add(delta)
}

func (w *Wait) Done() {
	w.wg.Done()
}

func (w *Wait) Wait() {
	w.wg.Wait()
}

// WaitContext 等待计数归零，ctx 先结束时返回 ctx.Err()
// 超时后内部的等待协程会在计数归零时退出
func (w *Wait) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitWithTimeout blocks until the WaitGroup counter is zero or timeout
// returns true if timeout
func (w *Wait) WaitWithTimeout(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return w.WaitContext(ctx) != nil
}
