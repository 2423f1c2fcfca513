package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	km := NewKeyMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				unlock := km.Guard("lww_add_set")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 16*500, counter)
	assert.Equal(t, 1, km.Len())
}

// "adds" 与 "removes56" 在 64 个条带的 Locks 中落在同一把锁上
func TestKeyMutexIndependentKeys(t *testing.T) {
	require.Equal(t, Make(64).index("adds"), Make(64).index("removes56"))

	km := NewKeyMutex()
	unlock := km.Guard("adds")
	defer unlock()

	done := make(chan struct{})
	go func() {
		km.Guard("removes56")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal(`"removes56" blocked by the guard of "adds"`)
	}
	assert.Equal(t, 2, km.Len())
}
