package pool

import (
	"sync"

	"github.com/cockroachdb/errors"
)

type (
	FactoryFunc[T any]    func() (T, error)
	FinalizerFunc[T any]  func(x T)
	CheckAliveFunc[T any] func(x T) bool
)

var (
	ErrClosed = errors.New("pool closed")
)

type Config struct {
	MaxIdleNum   int // 最大空闲连接数
	MaxActiveNum int // 最大活跃连接数，<= 0 表示不限制
	MaxRetryNum  int
}

// Pool 连接池，借出的连接数达到 MaxActiveNum 后 Get 等待其他连接归还
type Pool[T any] struct {
	Config

	factory    FactoryFunc[T]    // 创建连接
	finalizer  FinalizerFunc[T]  // 关闭连接
	checkAlive CheckAliveFunc[T] // 检查连接是否存活
	idles      chan T            // 空闲的连接
	// 每借出一个连接占用一个位置，nil 表示不限制
	slots chan struct{}
	// Close 时关闭，唤醒所有等待的 Get
	closing chan struct{}

	mu     sync.Mutex // 保护 closed 与 idles 的关闭
	closed bool
}

func New[T any](factory FactoryFunc[T], finalizer FinalizerFunc[T], checkAlive CheckAliveFunc[T], cfg Config) *Pool[T] {
	if cfg.MaxRetryNum <= 0 {
		cfg.MaxRetryNum = 1
	}
	if cfg.MaxIdleNum < 0 {
		cfg.MaxIdleNum = 0
	}
	pool := &Pool[T]{
		Config: cfg,

		factory:    factory,
		finalizer:  finalizer,
		checkAlive: checkAlive,
		idles:      make(chan T, cfg.MaxIdleNum),
		closing:    make(chan struct{}),
	}
	if cfg.MaxActiveNum > 0 {
		pool.slots = make(chan struct{}, cfg.MaxActiveNum)
	}
	return pool
}

// Get 获取一个空闲连接，没有空闲连接时新建
// 活跃连接数已满时阻塞，直到有连接归还或者连接池关闭
func (pool *Pool[T]) Get() (T, error) {
	var zero T
	if err := pool.acquire(); err != nil {
		return zero, err
	}

	item, err := pool.take()
	if err != nil {
		pool.release()
		return zero, err
	}
	return item, nil
}

// acquire 占用一个活跃连接的位置
func (pool *Pool[T]) acquire() error {
	if pool.slots != nil {
		select {
		case pool.slots <- struct{}{}:
		case <-pool.closing:
			return ErrClosed
		}
	}
	if pool.isClosed() {
		// 两个 case 同时就绪时 select 随机选择，这里再检查一次
		pool.release()
		return ErrClosed
	}
	return nil
}

func (pool *Pool[T]) release() {
	if pool.slots != nil {
		<-pool.slots
	}
}

// take 优先复用空闲连接，没有则新建，新建时不持有任何锁
func (pool *Pool[T]) take() (T, error) {
	var zero T
	for {
		select {
		case item, ok := <-pool.idles:
			if !ok {
				return zero, ErrClosed
			}
			if !pool.checkAlive(item) {
				// 连接不存活，丢弃后继续取
				pool.finalizer(item)
				continue
			}
			return item, nil
		default:
			return pool.getItem()
		}
	}
}

func (pool *Pool[T]) getItem() (T, error) {
	var zero T
	var err error
	for i := 0; i < pool.MaxRetryNum; i++ {
		var item T
		item, err = pool.factory()
		if err == nil {
			return item, nil
		}
	}

	return zero, err
}

func (pool *Pool[T]) isClosed() bool {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return pool.closed
}

// Put 归还连接，超过最大空闲数或者连接池已经关闭时直接关闭连接
func (pool *Pool[T]) Put(x T) {
	defer pool.release()

	pool.mu.Lock()
	defer pool.mu.Unlock()

	if pool.closed {
		pool.finalizer(x)
		return
	}

	// 将空闲的连接加入到队列中
	select {
	case pool.idles <- x:
	default:
		// 已经达到最大空闲连接数量
		pool.finalizer(x)
	}
}

// Discard 连接已经损坏，关闭而不归还
func (pool *Pool[T]) Discard(x T) {
	defer pool.release()
	pool.finalizer(x)
}

// Idle 空闲连接数
func (pool *Pool[T]) Idle() int {
	return len(pool.idles)
}

// Active 借出的连接数，不限制活跃数时返回 0
func (pool *Pool[T]) Active() int {
	return len(pool.slots)
}

// Close 关闭连接池，等待中的 Get 返回 ErrClosed，已经借出的连接归还时关闭
func (pool *Pool[T]) Close() {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	if pool.closed {
		return
	}
	pool.closed = true
	close(pool.closing)
	close(pool.idles)
	for item := range pool.idles { // 关闭所有空闲连接
		pool.finalizer(item)
	}
}
