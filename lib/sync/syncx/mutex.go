//go:build !deadlock

package syncx

import (
	"sync"
)

// Mutex 默认就是 sync.Mutex，使用 -tags deadlock 编译时替换为 go-deadlock 以检测死锁
type Mutex struct {
	mu sync.Mutex
}

func (m *Mutex) Lock()   { m.mu.Lock() }
func (m *Mutex) Unlock() { m.mu.Unlock() }

// RWMutex 同 Mutex，deadlock 编译时替换为 deadlock.RWMutex
type RWMutex struct {
	mu sync.RWMutex
}

func (m *RWMutex) Lock()    { m.mu.Lock() }
func (m *RWMutex) Unlock()  { m.mu.Unlock() }
func (m *RWMutex) RLock()   { m.mu.RLock() }
func (m *RWMutex) RUnlock() { m.mu.RUnlock() }
