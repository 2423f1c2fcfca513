package remote

// ScoreStore 远程的有序集合存储，key 下每个 member 对应一个 score
type ScoreStore interface {
	// GetScore member 不存在时 ok 为 false
	GetScore(key string, member string) (score float64, ok bool, err error)
	SetScore(key string, member string, score float64) error
	ListMembers(key string) ([]string, error)
}

// ScoreRaiser 存储本身支持 "只在新 score 更大时写入"（ZADD GT）
// 实现了该接口的存储可以在多个进程之间保证 compare-and-raise 的原子性
type ScoreRaiser interface {
	RaiseScore(key string, member string, score float64) error
}
