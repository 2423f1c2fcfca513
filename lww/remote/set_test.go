package remote

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawnzzz/lww-set/interface/crdt"
	"github.com/dawnzzz/lww-set/lww"
)

var errFault = errors.New("connection reset")

// fakeStore 内存中的有序集合，读写之间会让出调度，放大竞争窗口
type fakeStore struct {
	mu     sync.Mutex
	scores map[string]map[string]float64

	failGet  bool
	failSet  bool
	failList bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{scores: make(map[string]map[string]float64)}
}

func (f *fakeStore) GetScore(key string, member string) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return 0, false, errFault
	}
	score, ok := f.scores[key][member]
	return score, ok, nil
}

func (f *fakeStore) SetScore(key string, member string, score float64) error {
	time.Sleep(time.Microsecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errFault
	}
	if f.scores[key] == nil {
		f.scores[key] = make(map[string]float64)
	}
	f.scores[key][member] = score
	return nil
}

func (f *fakeStore) ListMembers(key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, errFault
	}
	members := make([]string, 0, len(f.scores[key]))
	for member := range f.scores[key] {
		members = append(members, member)
	}
	return members, nil
}

func (f *fakeStore) score(key string, member string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	score, ok := f.scores[key][member]
	return score, ok
}

// raisingStore 额外实现 ZADD GT
type raisingStore struct {
	*fakeStore
	raised int
}

func (r *raisingStore) RaiseScore(key string, member string, score float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSet {
		return errFault
	}
	r.raised++
	if r.scores[key] == nil {
		r.scores[key] = make(map[string]float64)
	}
	if current, ok := r.scores[key][member]; !ok || score > current {
		r.scores[key][member] = score
	}
	return nil
}

func requireMembers[T comparable](t *testing.T, s crdt.LWWSet[T], expected ...T) {
	t.Helper()
	members, err := s.Get()
	require.NoError(t, err)
	assert.True(t, mapset.NewSet(expected...).Equal(members), "get() = %v, want %v", members, expected)
}

func TestLiteralScenarios(t *testing.T) {
	s := MakeSet[int](newFakeStore(), lww.IntCodec{}, nil)
	require.NoError(t, s.Add(1, 1))
	ok, err := s.Exist(1)
	require.NoError(t, err)
	assert.True(t, ok)
	requireMembers[int](t, s, 1)

	s = MakeSet[int](newFakeStore(), lww.IntCodec{}, nil)
	require.NoError(t, s.Remove(1, 1))
	ok, err = s.Exist(1)
	require.NoError(t, err)
	assert.False(t, ok)
	requireMembers[int](t, s)

	s = MakeSet[int](newFakeStore(), lww.IntCodec{}, nil)
	require.NoError(t, s.Add(1, 1))
	require.NoError(t, s.Remove(1, 2))
	ok, err = s.Exist(1)
	require.NoError(t, err)
	assert.False(t, ok)

	strs := MakeSet[string](newFakeStore(), lww.StringCodec{}, nil)
	require.NoError(t, strs.Add("s1", 1))
	require.NoError(t, strs.Add("s2", 1))
	require.NoError(t, strs.Remove("s1", 2))
	requireMembers[string](t, strs, "s2")
}

func TestTieBiasedToAdd(t *testing.T) {
	s := MakeSet[string](newFakeStore(), lww.StringCodec{}, nil)
	require.NoError(t, s.Add("e", 5))
	require.NoError(t, s.Remove("e", 5))
	ok, err := s.Exist("e")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoredScoreNeverDecreases(t *testing.T) {
	store := newFakeStore()
	s := MakeSet[string](store, lww.StringCodec{}, &Config{AddSetKey: "adds", RemoveSetKey: "removes"})

	require.NoError(t, s.Add("e", 9))
	require.NoError(t, s.Add("e", 4))
	require.NoError(t, s.Remove("e", 3))
	require.NoError(t, s.Remove("e", 8))

	score, ok := store.score("adds", "e")
	require.True(t, ok)
	assert.Equal(t, 9.0, score)
	score, ok = store.score("removes", "e")
	require.True(t, ok)
	assert.Equal(t, 8.0, score)
	_, ok = store.score(DefaultAddSetKey, "e")
	assert.False(t, ok)
}

func TestInvalidTimestamp(t *testing.T) {
	store := newFakeStore()
	s := MakeSet[string](store, lww.StringCodec{}, nil)

	err := s.Add("e", -1)
	assert.True(t, lww.IsInvalidArgument(err))

	err = s.Remove("e", lww.MaxScoreTimestamp+1)
	assert.True(t, lww.IsInvalidArgument(err))

	require.NoError(t, s.Add("e", lww.MaxScoreTimestamp))
	members, err := store.ListMembers(DefaultAddSetKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, members)
}

func TestStoreFaultsAreRetryable(t *testing.T) {
	store := newFakeStore()
	s := MakeSet[string](store, lww.StringCodec{}, nil)
	require.NoError(t, s.Add("e", 1))

	store.failSet = true
	err := s.Add("e", 2)
	require.Error(t, err)
	assert.True(t, lww.IsRetryable(err))
	assert.True(t, errors.Is(err, errFault))
	score, _ := store.score(DefaultAddSetKey, "e")
	assert.Equal(t, 1.0, score)

	// 重试成功
	store.failSet = false
	require.NoError(t, s.Add("e", 2))
	score, _ = store.score(DefaultAddSetKey, "e")
	assert.Equal(t, 2.0, score)

	store.failGet = true
	_, err = s.Exist("e")
	assert.True(t, lww.IsRetryable(err))
	assert.True(t, lww.IsRetryable(s.Remove("e", 3)))
	_, err = s.Get()
	assert.True(t, lww.IsRetryable(err))

	store.failGet = false
	store.failList = true
	_, err = s.Get()
	assert.True(t, lww.IsRetryable(err))
}

func TestBadStoredScore(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.SetScore(DefaultAddSetKey, "e", 1.5))
	s := MakeSet[string](store, lww.StringCodec{}, nil)

	_, err := s.Exist("e")
	assert.True(t, lww.IsRetryable(err))
}

func TestUndecodableMember(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.SetScore(DefaultAddSetKey, "not-a-number", 1))
	s := MakeSet[int](store, lww.IntCodec{}, nil)

	_, err := s.Get()
	assert.True(t, lww.IsRetryable(err))
}

func TestRaiserIsPreferred(t *testing.T) {
	store := &raisingStore{fakeStore: newFakeStore()}
	s := MakeSet[string](store, lww.StringCodec{}, nil)

	require.NoError(t, s.Add("e", 3))
	require.NoError(t, s.Add("e", 1))
	require.NoError(t, s.Remove("e", 2))
	assert.Equal(t, 3, store.raised)

	score, _ := store.score(DefaultAddSetKey, "e")
	assert.Equal(t, 3.0, score)
	requireMembers[string](t, s, "e")

	store.failSet = true
	assert.True(t, lww.IsRetryable(s.Add("e", 4)))
}

func TestGetWithManyMembers(t *testing.T) {
	s := MakeSet[int](newFakeStore(), lww.IntCodec{}, &Config{GetWorkers: 3})
	expected := make([]int, 0)
	for i := 0; i < 50; i++ {
		require.NoError(t, s.Add(i, 10))
		if i%2 == 0 {
			require.NoError(t, s.Remove(i, 11))
		} else {
			expected = append(expected, i)
		}
	}
	requireMembers[int](t, s, expected...)
}

func TestConcurrentAddRemove(t *testing.T) {
	for round := 0; round < 50; round++ {
		store := newFakeStore()
		s := MakeSet[int](store, lww.IntCodec{}, nil)

		var wg sync.WaitGroup
		start := make(chan struct{})
		run := func(fn func() error) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				assert.NoError(t, fn())
			}()
		}
		run(func() error { return s.Add(1, 30) })
		for _, ts := range []crdt.Timestamp{10, 20, 40} {
			ts := ts
			run(func() error { return s.Remove(1, ts) })
		}
		close(start)
		wg.Wait()

		ok, err := s.Exist(1)
		require.NoError(t, err)
		assert.False(t, ok)
		score, _ := store.score(DefaultRemoveSetKey, "1")
		assert.Equal(t, 40.0, score)
	}
}

// 两个 Set 实例指向同一组 key 时共用 guard
func TestInstancesShareGuard(t *testing.T) {
	store := newFakeStore()
	a := MakeSet[int](store, lww.IntCodec{}, nil)
	b := MakeSet[int](store, lww.IntCodec{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		ts := crdt.Timestamp(i)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Add(7, ts))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Add(7, 200-ts))
		}()
	}
	wg.Wait()

	score, _ := store.score(DefaultAddSetKey, "7")
	assert.Equal(t, 200.0, score)
}

// parkingStore 写 parkKey 时停在 SetScore 中，直到 release 被关闭
type parkingStore struct {
	*fakeStore
	parkKey string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *parkingStore) SetScore(key string, member string, score float64) error {
	if key == p.parkKey {
		p.once.Do(func() { close(p.entered) })
		<-p.release
	}
	return p.fakeStore.SetScore(key, member, score)
}

// "adds" 与 "removes56" 的哈希值对 64 取模相同，remove 仍然不能被 add 阻塞
func TestAddAndRemoveGuardsAreIndependent(t *testing.T) {
	store := &parkingStore{
		fakeStore: newFakeStore(),
		parkKey:   "adds",
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	cfg := &Config{AddSetKey: "adds", RemoveSetKey: "removes56"}
	s := MakeSet[string](store, lww.StringCodec{}, cfg)

	addDone := make(chan error, 1)
	go func() {
		addDone <- s.Add("a", 1)
	}()
	<-store.entered

	// 另一个实例在 remove key 上也不会被阻塞
	other := MakeSet[string](store, lww.StringCodec{}, cfg)
	for _, set := range []*Set[string]{s, other} {
		removeDone := make(chan error, 1)
		go func() {
			removeDone <- set.Remove("b", 1)
		}()
		select {
		case err := <-removeDone:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal(`remove on "removes56" blocked by an in-flight add on "adds"`)
		}
	}

	close(store.release)
	require.NoError(t, <-addDone)
	ok, err := s.Exist("a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Exist("b")
	require.NoError(t, err)
	assert.False(t, ok)
}
