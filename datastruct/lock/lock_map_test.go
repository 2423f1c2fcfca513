package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardSerializes(t *testing.T) {
	locks := Make(8)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				unlock := locks.Guard("lww_add_set")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 16*500, counter)
}

func TestRWLocksSharedKey(t *testing.T) {
	locks := Make(4)

	// 同一个 key 既读又写，只加一次写锁
	unlock := locks.RWLocks([]string{"a"}, []string{"a", "b"})
	unlock()

	done := make(chan struct{})
	go func() {
		locks.Lock("a")
		locks.Unlock("a")
		locks.Lock("b")
		locks.Unlock("b")
		close(done)
	}()
	<-done
}

func TestPlan(t *testing.T) {
	locks := Make(1024)
	slots := locks.plan([]string{"k1", "k2"}, []string{"k2", "k3", "k4"})

	assert.Len(t, slots, 4)
	for i := 1; i < len(slots); i++ {
		assert.Less(t, slots[i-1].index, slots[i].index)
	}
	for _, s := range slots {
		switch s.index {
		case locks.index("k1"), locks.index("k2"):
			assert.True(t, s.write)
		default:
			assert.False(t, s.write)
		}
	}
}

func TestRWLocksConcurrent(t *testing.T) {
	locks := Make(2)

	counters := map[string]int{"a": 0, "b": 0, "c": 0}
	var wg sync.WaitGroup
	for _, keys := range [][]string{{"a", "b"}, {"b", "c"}, {"c", "a"}} {
		keys := keys
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				unlock := locks.RWLocks(keys, nil)
				for _, key := range keys {
					counters[key]++
				}
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, map[string]int{"a": 1000, "b": 1000, "c": 1000}, counters)
}
