package crdt

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Timestamp 操作的时间戳，越大表示越新，必须非负
type Timestamp int64

// LWWSet Last-Writer-Wins 元素集合
//
// Add/Remove 可以被多个协程（或多个进程）并发调用。由于并发的更新可能携带更新的时间戳，
// 调用返回 nil 只表示本次更新已经原子地作用在记录上，并不保证它仍然是最终生效的那一次。
// 只有底层存储出错时才返回错误。
//
// Exist/Get 不加锁，与 Add/Remove 并发时可能读到旧的结果；所有操作完成之后结果是确定的。
type LWWSet[T comparable] interface {
	// Add 记录 element 在 timestamp 时刻被加入集合
	Add(element T, timestamp Timestamp) error
	// Remove 记录 element 在 timestamp 时刻被移出集合
	Remove(element T, timestamp Timestamp) error
	// Exist 判断 element 是否在集合中，add 与 remove 时间戳相同时以 add 为准
	Exist(element T) (bool, error)
	// Get 返回集合中的所有元素，顺序无意义
	Get() (mapset.Set[T], error)
}
