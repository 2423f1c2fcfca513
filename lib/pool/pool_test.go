package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id    int
	alive bool
}

func TestPool(t *testing.T) {
	created := 0
	finalized := 0
	factory := func() (*item, error) {
		created++
		return &item{id: created, alive: true}, nil
	}
	finalizer := func(x *item) {
		finalized++
	}
	checkAlive := func(x *item) bool {
		return x.alive
	}

	pool := New(factory, finalizer, checkAlive, Config{
		MaxIdleNum:   8,
		MaxActiveNum: 16,
		MaxRetryNum:  3,
	})

	items := make([]*item, 0, 16)
	for i := 0; i < 16; i++ {
		x, err := pool.Get()
		require.NoError(t, err)
		items = append(items, x)
	}

	// 测试最大活跃数：没有连接归还之前 Get 阻塞
	got := make(chan *item)
	go func() {
		x, err := pool.Get()
		assert.NoError(t, err)
		got <- x
	}()
	select {
	case <-got:
		t.Fatal("Get returned while all connections are in use")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 16, pool.Active())
	pool.Put(items[0])
	items[0] = <-got
	assert.Equal(t, 16, pool.Active())

	// 测试最大空闲数
	for _, x := range items {
		pool.Put(x)
	}
	assert.Equal(t, pool.MaxIdleNum, pool.Idle())
	assert.Equal(t, 8, finalized)

	// 不存活的连接被丢弃
	x, err := pool.Get()
	require.NoError(t, err)
	x.alive = false
	pool.Put(x)
	y, err := pool.Get()
	require.NoError(t, err)
	assert.NotSame(t, x, y)
	pool.Discard(y)

	assert.Equal(t, 0, pool.Active())

	pool.Close()
	_, err = pool.Get()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPoolFactoryError(t *testing.T) {
	boom := errors.New("dial failed")
	attempts := 0
	pool := New(func() (int, error) {
		attempts++
		return 0, boom
	}, func(int) {}, func(int) bool { return true }, Config{MaxIdleNum: 1, MaxActiveNum: 1, MaxRetryNum: 3})

	_, err := pool.Get()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
}

// 并发借用的协程数远大于最大活跃数时，所有 Get 都能等到连接
func TestPoolMoreBorrowersThanConnections(t *testing.T) {
	var mu sync.Mutex
	created := 0
	inUse, maxInUse := 0, 0
	pool := New(func() (*item, error) {
		mu.Lock()
		defer mu.Unlock()
		created++
		return &item{id: created, alive: true}, nil
	}, func(*item) {}, func(x *item) bool { return x.alive }, Config{MaxIdleNum: 2, MaxActiveNum: 2})

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				x, err := pool.Get()
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				inUse++
				if inUse > maxInUse {
					maxInUse = inUse
				}
				mu.Unlock()

				mu.Lock()
				inUse--
				mu.Unlock()
				pool.Put(x)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxInUse, 2)
	assert.Equal(t, 0, pool.Active())
	pool.Close()
}

func TestPoolCloseWakesWaiters(t *testing.T) {
	pool := New(func() (int, error) { return 1, nil }, func(int) {}, func(int) bool { return true },
		Config{MaxIdleNum: 1, MaxActiveNum: 1})
	x, err := pool.Get()
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() {
		_, err := pool.Get()
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	pool.Close()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("waiting Get not woken by Close")
	}
	pool.Put(x)
	assert.Equal(t, 0, pool.Active())
}

// 新建连接失败时释放占用的位置
func TestPoolFactoryErrorReleasesSlot(t *testing.T) {
	boom := errors.New("dial failed")
	pool := New(func() (int, error) { return 0, boom }, func(int) {}, func(int) bool { return true },
		Config{MaxIdleNum: 1, MaxActiveNum: 1})

	for i := 0; i < 3; i++ {
		_, err := pool.Get()
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, 0, pool.Active())
}
