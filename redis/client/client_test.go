package client

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawnzzz/lww-set/database"
	"github.com/dawnzzz/lww-set/redis/protocol/reply"
	"github.com/dawnzzz/lww-set/redis/server"
	"github.com/dawnzzz/lww-set/tcp"
)

func startServer(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tcp.ListenAndServe(ctx, listener, server.MakeHandler(database.MakeDB(), 0))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return listener.Addr().String()
}

func TestClient(t *testing.T) {
	addr := startServer(t)
	c, err := MakeClient(addr, 0)
	require.NoError(t, err)
	c.Start()

	r, err := c.Do([]byte("PING"))
	require.NoError(t, err)
	assert.Equal(t, "PONG", r.DataString())

	r, err = c.Do([]byte("ZADD"), []byte("k"), []byte("1.5"), []byte("m"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.(*reply.IntReply).Code)

	r, err = c.Do([]byte("ZSCORE"), []byte("k"), []byte("m"))
	require.NoError(t, err)
	assert.Equal(t, "1.5", r.DataString())

	// 服务器的错误回复不是 error
	r, err = c.Do([]byte("NOPE"))
	require.NoError(t, err)
	assert.True(t, reply.IsErrorReply(r))

	c.Close()
	assert.True(t, c.StatusClosed())
	_, err = c.Do([]byte("PING"))
	assert.ErrorIs(t, err, ErrClosed)

	// 重复关闭没有影响
	c.Close()
}

func TestClientPipelining(t *testing.T) {
	addr := startServer(t)
	c, err := MakeClient(addr, 0)
	require.NoError(t, err)
	c.Start()
	defer c.Close()

	done := make(chan struct{})
	for i := 0; i < 32; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			r, err := c.Do([]byte("PING"))
			if assert.NoError(t, err) {
				assert.Equal(t, "PONG", r.DataString())
			}
		}()
	}
	for i := 0; i < 32; i++ {
		<-done
	}
}
