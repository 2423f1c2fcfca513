package dict

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// ConcurrentDict 分段加锁的 map，每次 Get/Put 只锁住 key 所在的 shard
type ConcurrentDict[K comparable, V any] struct {
	table      []*shard[K, V]
	count      int64
	shardCount int
	hash       HashFunc[K]
}

// HashFunc 计算 key 的哈希值，只用于选择 shard，哈希冲突不影响正确性
type HashFunc[K comparable] func(key K) uint32

type shard[K comparable, V any] struct {
	m     map[K]V
	mutex sync.RWMutex
}

// Consumer 遍历时对每一个 kv 调用，返回 false 时停止遍历
type Consumer[K comparable, V any] func(key K, val V) bool

// 得到大于等于 param 的最小2次幂作为容量（最小16）
// 比如 input: 31 output:32
// input: 60 output: 64
// input: 5 output: 16
func computeCapacity(param int) (size int) {
	if param <= 16 {
		// 最小 16
		return 16
	}

	n := param - 1
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	if n < 0 {
		return math.MaxInt32
	}
	return n + 1
}

// MakeConcurrentDict 创建 key 为任意可比较类型的字典，hash 为 nil 时使用 AnyHash
func MakeConcurrentDict[K comparable, V any](shardCount int, hash HashFunc[K]) *ConcurrentDict[K, V] {
	if hash == nil {
		hash = AnyHash[K]
	}
	shardCount = computeCapacity(shardCount)
	table := make([]*shard[K, V], shardCount)
	for i := 0; i < shardCount; i++ {
		table[i] = &shard[K, V]{
			m: make(map[K]V),
		}
	}

	return &ConcurrentDict[K, V]{
		table:      table,
		count:      0,
		shardCount: shardCount,
		hash:       hash,
	}
}

// MakeStringDict key 为 string 的字典
func MakeStringDict[V any](shardCount int) *ConcurrentDict[string, V] {
	return MakeConcurrentDict[string, V](shardCount, StringHash)
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

// StringHash fnv32
func StringHash(key string) uint32 {
	return fnv32(key)
}

// AnyHash 整数直接折叠，其他类型对文本形式做 fnv32
func AnyHash[K comparable](key K) uint32 {
	switch k := any(key).(type) {
	case string:
		return fnv32(k)
	case int:
		return uint32(k) ^ uint32(uint64(k)>>32)
	case int64:
		return uint32(k) ^ uint32(uint64(k)>>32)
	}
	return fnv32(fmt.Sprintf("%v", key))
}

// 检查 ConcurrentDict 是否没有初始化，没有初始化则返回 true
func (c *ConcurrentDict[K, V]) notInit() bool {
	return c == nil || c.table == nil
}

func (c *ConcurrentDict[K, V]) getShard(key K) *shard[K, V] {
	if c.notInit() {
		panic("dict is nil")
	}

	// 根据哈希值计算 shard 的下标
	index := c.hash(key) % uint32(len(c.table))
	return c.table[index]
}

func (c *ConcurrentDict[K, V]) Get(key K) (val V, exists bool) {
	s := c.getShard(key)
	// 在 shard 中读取数据，需要加锁
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	val, exists = s.m[key]
	return
}

func (c *ConcurrentDict[K, V]) Len() int {
	if c.notInit() {
		panic("dict is nil")
	}

	return int(atomic.LoadInt64(&c.count))
}

// Put 返回新增kv的数量
func (c *ConcurrentDict[K, V]) Put(key K, val V) (result int) {
	s := c.getShard(key)
	// put 操作，加锁
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// 存在，更新
	if _, ok := s.m[key]; ok {
		s.m[key] = val
		return 0
	}

	// 不存在，新增
	s.m[key] = val
	c.addCount()

	return 1
}

// PutIfAbsent 如果不存在就新增，不做更新操作，返回新增的数量
func (c *ConcurrentDict[K, V]) PutIfAbsent(key K, val V) (result int) {
	s := c.getShard(key)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.m[key]; ok {
		return 0
	}

	s.m[key] = val
	c.addCount()

	return 1
}

// Remove 删除，返回删除的数量
func (c *ConcurrentDict[K, V]) Remove(key K) (result int) {
	s := c.getShard(key)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// 找到了，删除
	if _, ok := s.m[key]; ok {
		delete(s.m, key)
		c.decreaseCount()
		return 1
	}

	// 没找到，不用删除
	return 0
}

// ForEach 逐个 shard 遍历，遍历时持有该 shard 的读锁
func (c *ConcurrentDict[K, V]) ForEach(consumer Consumer[K, V]) {
	if c.notInit() {
		panic("dict is nil")
	}

	for _, s := range c.table {
		stop := false
		s.mutex.RLock()
		func() {
			defer s.mutex.RUnlock()
			for key, value := range s.m {
				if !consumer(key, value) {
					stop = true
					break
				}
			}
		}()
		if stop {
			return
		}
	}
}

func (c *ConcurrentDict[K, V]) Keys() []K {
	keys := make([]K, 0, c.Len())
	c.ForEach(func(key K, val V) bool {
		keys = append(keys, key)
		return true
	})

	return keys
}

// Clear 清空所有 shard
func (c *ConcurrentDict[K, V]) Clear() {
	if c.notInit() {
		panic("dict is nil")
	}

	for _, s := range c.table {
		s.mutex.Lock()
		n := len(s.m)
		s.m = make(map[K]V)
		atomic.AddInt64(&c.count, -int64(n))
		s.mutex.Unlock()
	}
}

func (c *ConcurrentDict[K, V]) addCount() int64 {
	return atomic.AddInt64(&c.count, 1)
}

func (c *ConcurrentDict[K, V]) decreaseCount() int64 {
	return atomic.AddInt64(&c.count, -1)
}
