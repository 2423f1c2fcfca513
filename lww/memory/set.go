// Package memory 进程内的 lww-set，add/remove 记录保存在内存字典中
package memory

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/dawnzzz/lww-set/datastruct/dict"
	"github.com/dawnzzz/lww-set/interface/crdt"
	"github.com/dawnzzz/lww-set/lib/sync/syncx"
	"github.com/dawnzzz/lww-set/logger"
	"github.com/dawnzzz/lww-set/lww"
)

const defaultShardCount = 16

// records 元素 -> 最大时间戳，只会插入或者调大，不会调小或删除
type records[T comparable] struct {
	kind  string
	guard syncx.Mutex // 串行化同一个 map 上的 compare-and-raise
	m     *dict.ConcurrentDict[T, crdt.Timestamp]

	// 持有 guard、写入之前调用，测试用
	beforeWrite func(element T)
}

func newRecords[T comparable](kind string, shardCount int) *records[T] {
	return &records[T]{
		kind: kind,
		m:    dict.MakeConcurrentDict[T, crdt.Timestamp](shardCount, nil),
	}
}

// raise 不存在则插入，存在且 ts 更大则更新，否则不变
// 临界区内的 panic 会被转换为 ErrInternal，此时 map 中的记录保持调用前的状态
func (r *records[T]) raise(element T, ts crdt.Timestamp) (err error) {
	r.guard.Lock()
	defer r.guard.Unlock()
	defer func() {
		if p := recover(); p != nil {
			err = lww.Internal(fmt.Errorf("%v", p), "raise %s record", r.kind)
		}
	}()

	current, exists := r.m.Get(element)
	if !lww.Raise(current, exists, ts) {
		logger.Debugf("lww %s %v@%d ignored, stored timestamp is %d", r.kind, element, ts, current)
		return nil
	}
	if r.beforeWrite != nil {
		r.beforeWrite(element)
	}
	r.m.Put(element, ts)

	return nil
}

func (r *records[T]) get(element T) (crdt.Timestamp, bool) {
	return r.m.Get(element)
}

// Set 进程内的 lww-set，可以被多个协程并发使用
type Set[T comparable] struct {
	adds    *records[T]
	removes *records[T]
}

var _ crdt.LWWSet[string] = (*Set[string])(nil)

// MakeSet 创建一个空的 lww-set
func MakeSet[T comparable]() *Set[T] {
	return MakeSetWithShards[T](defaultShardCount)
}

// MakeSetWithShards shardCount 为两个记录字典的分段数
func MakeSetWithShards[T comparable](shardCount int) *Set[T] {
	return &Set[T]{
		adds:    newRecords[T]("add", shardCount),
		removes: newRecords[T]("remove", shardCount),
	}
}

func (s *Set[T]) Add(element T, timestamp crdt.Timestamp) error {
	if err := lww.ValidateTimestamp(timestamp); err != nil {
		return err
	}
	return s.adds.raise(element, timestamp)
}

func (s *Set[T]) Remove(element T, timestamp crdt.Timestamp) error {
	if err := lww.ValidateTimestamp(timestamp); err != nil {
		return err
	}
	return s.removes.raise(element, timestamp)
}

// Exist 不加 guard，两次查找各自是原子的
func (s *Set[T]) Exist(element T) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = lww.Internal(fmt.Errorf("%v", p), "check existence")
		}
	}()

	return s.exist(element), nil
}

func (s *Set[T]) exist(element T) bool {
	addTs, hasAdd := s.adds.get(element)
	if !hasAdd {
		return false
	}
	removeTs, hasRemove := s.removes.get(element)
	return lww.Resolve(addTs, hasAdd, removeTs, hasRemove)
}

// Get 遍历所有 add 记录，返回其中存在的元素
func (s *Set[T]) Get() (mapset.Set[T], error) {
	// 先取出候选元素，避免遍历 add 字典时持有 shard 锁去读 remove 字典
	candidates := s.adds.m.Keys()

	result := mapset.NewSetWithSize[T](len(candidates))
	for _, element := range candidates {
		if s.exist(element) {
			result.Add(element)
		}
	}

	return result, nil
}

// Timestamps 返回 element 当前的 add/remove 时间戳
func (s *Set[T]) Timestamps(element T) (add crdt.Timestamp, hasAdd bool, remove crdt.Timestamp, hasRemove bool) {
	add, hasAdd = s.adds.get(element)
	remove, hasRemove = s.removes.get(element)
	return
}

// Len 有任意一种记录的元素个数
func (s *Set[T]) Len() int {
	n := s.adds.m.Len()
	s.removes.m.ForEach(func(element T, _ crdt.Timestamp) bool {
		if _, ok := s.adds.get(element); !ok {
			n++
		}
		return true
	})
	return n
}
