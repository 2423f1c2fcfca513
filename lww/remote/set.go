// Package remote 基于远程有序集合的 lww-set
//
// add 记录与 remove 记录各自存放在一个有序集合中，member 为编码后的元素，score 为时间戳。
// 本地的 guard 只能防止同一进程内的竞争；多个进程同时写同一个存储时，
// 只有存储实现了 ScoreRaiser 才能保证原子性，否则只保证最终一致。
package remote

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/panjf2000/ants/v2"

	"github.com/dawnzzz/lww-set/datastruct/lock"
	"github.com/dawnzzz/lww-set/interface/crdt"
	"github.com/dawnzzz/lww-set/logger"
	"github.com/dawnzzz/lww-set/lww"
)

const (
	DefaultAddSetKey    = "lww_add_set"
	DefaultRemoveSetKey = "lww_remove_set"

	defaultGetWorkers = 8
)

// 同一进程内所有 Set 共享，每个远程 key 一把独立的锁
// 指向同一个 key 的 Set 实例互相串行，add key 与 remove key 互不阻塞
var guards = lock.NewKeyMutex()

// Config 远程 lww-set 的配置
type Config struct {
	AddSetKey    string
	RemoveSetKey string
	// Get 时并发检查成员的协程数，每个协程占用存储的一个连接
	// 超过连接池的最大活跃数时，多出来的协程等待空闲连接
	GetWorkers int
}

func (cfg *Config) withDefaults() Config {
	c := *cfg
	if c.AddSetKey == "" {
		c.AddSetKey = DefaultAddSetKey
	}
	if c.RemoveSetKey == "" {
		c.RemoveSetKey = DefaultRemoveSetKey
	}
	if c.GetWorkers <= 0 {
		c.GetWorkers = defaultGetWorkers
	}
	return c
}

// Set 远程 lww-set
type Set[T comparable] struct {
	store ScoreStore
	codec lww.Codec[T]
	cfg   Config
}

var _ crdt.LWWSet[string] = (*Set[string])(nil)

// MakeSet cfg 为 nil 时使用默认 key
func MakeSet[T comparable](store ScoreStore, codec lww.Codec[T], cfg *Config) *Set[T] {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Set[T]{
		store: store,
		codec: codec,
		cfg:   cfg.withDefaults(),
	}
}

func (s *Set[T]) Add(element T, timestamp crdt.Timestamp) error {
	return s.raise(s.cfg.AddSetKey, element, timestamp)
}

func (s *Set[T]) Remove(element T, timestamp crdt.Timestamp) error {
	return s.raise(s.cfg.RemoveSetKey, element, timestamp)
}

// raise 在 key 对应的 guard 内执行：读 score -> 不存在或更小则写入
func (s *Set[T]) raise(key string, element T, timestamp crdt.Timestamp) error {
	if err := lww.ValidateScoreTimestamp(timestamp); err != nil {
		return err
	}
	member := s.codec.Encode(element)
	score := float64(timestamp)

	unlock := guards.Guard(key)
	defer unlock()

	if raiser, ok := s.store.(ScoreRaiser); ok {
		if err := raiser.RaiseScore(key, member, score); err != nil {
			logger.Errorf("lww raise %s %s@%d err, %v", key, member, timestamp, err)
			return lww.Internal(err, "raise score of %q in %s", member, key)
		}
		return nil
	}

	current, exists, err := s.store.GetScore(key, member)
	if err != nil {
		logger.Errorf("lww read %s %s err, %v", key, member, err)
		return lww.Internal(err, "read score of %q in %s", member, key)
	}
	if exists && score <= current {
		logger.Debugf("lww %s %s@%d ignored, stored score is %v", key, member, timestamp, current)
		return nil
	}
	if err := s.store.SetScore(key, member, score); err != nil {
		logger.Errorf("lww write %s %s@%d err, %v", key, member, timestamp, err)
		return lww.Internal(err, "write score of %q in %s", member, key)
	}

	return nil
}

// Exist 不加 guard
func (s *Set[T]) Exist(element T) (bool, error) {
	return s.exist(s.codec.Encode(element))
}

func (s *Set[T]) exist(member string) (bool, error) {
	addTs, hasAdd, err := s.timestamp(s.cfg.AddSetKey, member)
	if err != nil || !hasAdd {
		return false, err
	}
	removeTs, hasRemove, err := s.timestamp(s.cfg.RemoveSetKey, member)
	if err != nil {
		return false, err
	}

	return lww.Resolve(addTs, hasAdd, removeTs, hasRemove), nil
}

func (s *Set[T]) timestamp(key string, member string) (crdt.Timestamp, bool, error) {
	score, ok, err := s.store.GetScore(key, member)
	if err != nil {
		logger.Errorf("lww read %s %s err, %v", key, member, err)
		return 0, false, lww.Internal(err, "read score of %q in %s", member, key)
	}
	if !ok {
		return 0, false, nil
	}
	ts, err := lww.ScoreToTimestamp(score)
	if err != nil {
		return 0, false, err
	}
	return ts, true, nil
}

// Get 列出所有 add 记录，再用协程池并发检查每个成员，任意一个失败则返回错误
func (s *Set[T]) Get() (mapset.Set[T], error) {
	members, err := s.store.ListMembers(s.cfg.AddSetKey)
	if err != nil {
		logger.Errorf("lww list %s err, %v", s.cfg.AddSetKey, err)
		return nil, lww.Internal(err, "list members of %s", s.cfg.AddSetKey)
	}

	result := mapset.NewSetWithSize[T](len(members))
	if len(members) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(s.cfg.GetWorkers)
	if err != nil {
		return nil, lww.Internal(err, "create worker pool")
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, member := range members {
		member := member
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			ok, err := s.exist(member)
			if err != nil {
				fail(err)
				return
			}
			if !ok {
				return
			}
			element, err := s.codec.Decode(member)
			if err != nil {
				fail(lww.Internal(err, "decode member %q of %s", member, s.cfg.AddSetKey))
				return
			}
			result.Add(element)
		})
		if err != nil {
			wg.Done()
			fail(lww.Internal(err, "submit existence check"))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}
