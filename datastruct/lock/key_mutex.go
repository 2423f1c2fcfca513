package lock

import (
	"sync"

	"github.com/dawnzzz/lww-set/lib/sync/syncx"
)

// KeyMutex 每个 key 一把独立的互斥锁，第一次使用时创建
// 与 Locks 不同，不同的 key 永远不会共用一把锁
type KeyMutex struct {
	mu      sync.Mutex
	mutexes map[string]*syncx.Mutex
}

func NewKeyMutex() *KeyMutex {
	return &KeyMutex{
		mutexes: make(map[string]*syncx.Mutex),
	}
}

func (km *KeyMutex) get(key string) *syncx.Mutex {
	km.mu.Lock()
	defer km.mu.Unlock()

	m, ok := km.mutexes[key]
	if !ok {
		m = &syncx.Mutex{}
		km.mutexes[key] = m
	}
	return m
}

// Guard 对 key 加锁，返回的函数用于解锁
func (km *KeyMutex) Guard(key string) (unlock func()) {
	m := km.get(key)
	m.Lock()
	return m.Unlock
}

// Len 已经创建的锁的数量
func (km *KeyMutex) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.mutexes)
}
