// Package store 通过 RESP 协议访问远程有序集合，实现 remote.ScoreStore
package store

import (
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/dawnzzz/lww-set/interface/redis"
	"github.com/dawnzzz/lww-set/lib/pool"
	"github.com/dawnzzz/lww-set/lib/utils"
	"github.com/dawnzzz/lww-set/lww/remote"
	"github.com/dawnzzz/lww-set/redis/client"
	"github.com/dawnzzz/lww-set/redis/protocol/reply"
)

var (
	zAddCmd = []byte("ZADD")
	gtFlag  = []byte("GT")

	// ErrUnexpectedReply 服务器返回了无法识别的回复
	ErrUnexpectedReply = errors.New("unexpected reply")
)

var (
	_ remote.ScoreStore  = (*Store)(nil)
	_ remote.ScoreRaiser = (*Store)(nil)
)

// Config 连接池配置
type Config struct {
	Addr          string
	Keepalive     int // 心跳，单位秒
	MaxIdleConn   int
	MaxActiveConn int
}

// Store 持有到同一个服务器的多个连接
type Store struct {
	addr  string
	conns *pool.Pool[*client.Client]
}

// Dial 建立连接池并检查服务器是否可用
func Dial(cfg Config) (*Store, error) {
	factory := func() (*client.Client, error) {
		c, err := client.MakeClient(cfg.Addr, cfg.Keepalive)
		if err != nil {
			return nil, err
		}
		c.Start()
		return c, nil
	}
	finalizer := func(c *client.Client) {
		c.Close()
	}
	checkAlive := func(c *client.Client) bool {
		return !c.StatusClosed()
	}

	s := &Store{
		addr: cfg.Addr,
		conns: pool.New(factory, finalizer, checkAlive, pool.Config{
			MaxIdleNum:   cfg.MaxIdleConn,
			MaxActiveNum: cfg.MaxActiveConn,
			MaxRetryNum:  3,
		}),
	}

	if err := s.Ping(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close 关闭所有连接
func (s *Store) Close() {
	s.conns.Close()
}

// do 借出一个连接执行命令，服务器的错误回复转换为 error
func (s *Store) do(args ...[]byte) (redis.Reply, error) {
	c, err := s.conns.Get()
	if err != nil {
		return nil, errors.Wrapf(err, "get connection to %s", s.addr)
	}

	r, err := c.Do(args...)
	if err != nil {
		s.conns.Discard(c)
		return nil, err
	}
	s.conns.Put(c)

	if errReply, ok := r.(reply.ErrorReply); ok {
		return nil, errors.Newf("%s: %s", args[0], errReply.Error())
	}
	return r, nil
}

func (s *Store) Ping() error {
	r, err := s.do(utils.ToCmdLine("PING")...)
	if err != nil {
		return err
	}
	if r.DataString() != "PONG" {
		return errors.Wrapf(ErrUnexpectedReply, "PING: %s", r.DataString())
	}
	return nil
}

func (s *Store) GetScore(key string, member string) (float64, bool, error) {
	r, err := s.do(utils.ToCmdLineWithName("ZSCORE", key, member)...)
	if err != nil {
		return 0, false, err
	}

	switch r := r.(type) {
	case *reply.NullBulkStringReply:
		return 0, false, nil
	case *reply.BulkStringReply:
		score, err := strconv.ParseFloat(string(r.Arg), 64)
		if err != nil {
			return 0, false, errors.Wrapf(ErrUnexpectedReply, "ZSCORE: bad score %q", r.Arg)
		}
		return score, true, nil
	}
	return 0, false, errors.Wrapf(ErrUnexpectedReply, "ZSCORE: %T", r)
}

func (s *Store) SetScore(key string, member string, score float64) error {
	return s.zAdd(key, member, score)
}

// RaiseScore ZADD GT，只在新的 score 更大时更新，member 不存在时插入
func (s *Store) RaiseScore(key string, member string, score float64) error {
	return s.zAdd(key, member, score, gtFlag)
}

func (s *Store) zAdd(key string, member string, score float64, flags ...[]byte) error {
	args := make([][]byte, 0, 4+len(flags))
	args = append(args, zAddCmd, []byte(key))
	args = append(args, flags...)
	args = append(args, []byte(utils.FormatScore(score)), []byte(member))

	r, err := s.do(args...)
	if err != nil {
		return err
	}
	if _, ok := r.(*reply.IntReply); !ok {
		return errors.Wrapf(ErrUnexpectedReply, "ZADD: %T", r)
	}
	return nil
}

func (s *Store) ListMembers(key string) ([]string, error) {
	r, err := s.do(utils.ToCmdLineWithName("ZRANGE", key, "0", "-1")...)
	if err != nil {
		return nil, err
	}

	switch r := r.(type) {
	case *reply.EmptyMultiBulkStringReply:
		return []string{}, nil
	case *reply.MultiBulkStringReply:
		members := make([]string, len(r.Args))
		for i, arg := range r.Args {
			members[i] = string(arg)
		}
		return members, nil
	}
	return nil, errors.Wrapf(ErrUnexpectedReply, "ZRANGE: %T", r)
}
