package lww

import "github.com/dawnzzz/lww-set/interface/crdt"

// Resolve 根据 add 记录与 remove 记录判断元素是否在集合中
// 1. 没有 add 记录，不在集合中
// 2. 有 add 记录，没有 remove 记录，在集合中
// 3. 都有时，add 时间戳 >= remove 时间戳则在集合中（偏向 add）
func Resolve(addTs crdt.Timestamp, hasAdd bool, removeTs crdt.Timestamp, hasRemove bool) bool {
	if !hasAdd {
		return false
	}
	if !hasRemove {
		return true
	}
	return addTs >= removeTs
}

// Raise 判断 compare-and-raise 是否需要写入：不存在或者新的时间戳严格更大
func Raise(current crdt.Timestamp, exists bool, ts crdt.Timestamp) bool {
	return !exists || ts > current
}
