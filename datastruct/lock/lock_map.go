// Package lock 按 key 加锁的条带锁
package lock

import (
	"sort"

	"github.com/dawnzzz/lww-set/lib/sync/syncx"
)

// Locks 按 key 哈希到固定数量的读写锁上，不同 key 可能共用同一把锁
type Locks struct {
	tables []*syncx.RWMutex
}

func Make(tableSize int) *Locks {
	if tableSize <= 0 {
		tableSize = 1
	}
	tables := make([]*syncx.RWMutex, tableSize)
	for i := range tables {
		tables[i] = &syncx.RWMutex{}
	}
	return &Locks{
		tables: tables,
	}
}

const prime32 = uint32(16777619)

func fnv32(key string) uint32 {
	hash := uint32(2166136261)
	for i := 0; i < len(key); i++ {
		hash *= prime32
		hash ^= uint32(key[i])
	}
	return hash
}

func (locks *Locks) index(key string) uint32 {
	return fnv32(key) % uint32(len(locks.tables))
}

func (locks *Locks) Lock(key string) {
	locks.tables[locks.index(key)].Lock()
}

func (locks *Locks) Unlock(key string) {
	locks.tables[locks.index(key)].Unlock()
}

// Guard 对 key 加写锁，返回的函数用于解锁，配合 defer 使用
func (locks *Locks) Guard(key string) (unlock func()) {
	m := locks.tables[locks.index(key)]
	m.Lock()
	return m.Unlock
}

// slot 一把需要加的锁，write 为 true 时加写锁
type slot struct {
	index uint32
	write bool
}

// plan 计算需要加的锁，按下标从小到大排序，同一把锁只出现一次
// 同时被读和写的锁加写锁
func (locks *Locks) plan(writeKeys []string, readKeys []string) []slot {
	slots := make(map[uint32]bool, len(writeKeys)+len(readKeys))
	for _, key := range readKeys {
		slots[locks.index(key)] = false
	}
	for _, key := range writeKeys {
		slots[locks.index(key)] = true
	}

	result := make([]slot, 0, len(slots))
	for index, write := range slots {
		result = append(result, slot{index: index, write: write})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].index < result[j].index
	})
	return result
}

// RWLocks 按固定顺序加锁避免死锁，返回的函数按相反顺序解锁
func (locks *Locks) RWLocks(writeKeys []string, readKeys []string) (unlock func()) {
	slots := locks.plan(writeKeys, readKeys)
	for _, s := range slots {
		if s.write {
			locks.tables[s.index].Lock()
			continue
		}
		locks.tables[s.index].RLock()
	}

	return func() {
		for i := len(slots) - 1; i >= 0; i-- {
			s := slots[i]
			if s.write {
				locks.tables[s.index].Unlock()
				continue
			}
			locks.tables[s.index].RUnlock()
		}
	}
}
