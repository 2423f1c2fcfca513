//go:build deadlock

package syncx

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

type Mutex struct {
	mu deadlock.Mutex
}

func (m *Mutex) Lock()   { m.mu.Lock() }
func (m *Mutex) Unlock() { m.mu.Unlock() }

type RWMutex struct {
	mu deadlock.RWMutex
}

func (m *RWMutex) Lock()    { m.mu.Lock() }
func (m *RWMutex) Unlock()  { m.mu.Unlock() }
func (m *RWMutex) RLock()   { m.mu.RLock() }
func (m *RWMutex) RUnlock() { m.mu.RUnlock() }

func init() {
	deadlock.Opts.DeadlockTimeout = 20 * time.Second
}
