package sortedset

import (
	"sort"
	"sync"
)

// Element 有序集合中的一个成员
type Element struct {
	Member string
	Score  float64
}

// SortedSet member -> score，按 score 从小到大排序，score 相同时按 member 字典序
// 成员数量不大，范围查询时排序
type SortedSet struct {
	mu     sync.RWMutex
	scores map[string]float64
}

func MakeSortedSet() *SortedSet {
	return &SortedSet{
		scores: make(map[string]float64),
	}
}

// Add 新增或更新，返回是否为新增
func (s *SortedSet) Add(member string, score float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.scores[member]
	s.scores[member] = score
	return !exists
}

// AddIfGreater 不存在则新增，存在则只在 score 更大时更新，返回是否为新增
func (s *SortedSet) AddIfGreater(member string, score float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.scores[member]
	if !exists || score > current {
		s.scores[member] = score
	}
	return !exists
}

func (s *SortedSet) Get(member string) (*Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.scores[member]
	if !ok {
		return nil, false
	}
	return &Element{Member: member, Score: score}, true
}

func (s *SortedSet) Remove(member string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scores[member]; !ok {
		return false
	}
	delete(s.scores, member)
	return true
}

func (s *SortedSet) Len() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.scores))
}

// Range 返回排名在 [start, stop) 之间的成员，排名从 0 开始
func (s *SortedSet) Range(start int64, stop int64, desc bool) []*Element {
	s.mu.RLock()
	elements := make([]*Element, 0, len(s.scores))
	for member, score := range s.scores {
		elements = append(elements, &Element{Member: member, Score: score})
	}
	s.mu.RUnlock()

	sort.Slice(elements, func(i, j int) bool {
		a, b := elements[i], elements[j]
		if desc {
			a, b = b, a
		}
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.Member < b.Member
	})

	size := int64(len(elements))
	if start < 0 || start > size || stop < start {
		return nil
	}
	if stop > size {
		stop = size
	}
	return elements[start:stop]
}
