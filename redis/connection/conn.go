// Package connection 服务器端的客户端连接
package connection

import (
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/dawnzzz/lww-set/lib/sync/wait"
)

const closeWaitTimeout = 10 * time.Second

// Connection represents a connection with a client
type Connection struct {
	conn net.Conn
	name string

	// wait until finish sending data, used for graceful shutdown
	sendingData wait.Wait

	// 多个协程（命令回复、协议错误）可能同时写
	mu     sync.Mutex
	closed atomic.Bool
}

// NewConn creates Connection instance
func NewConn(conn net.Conn) *Connection {
	c := &Connection{
		conn: conn,
	}
	if addr := conn.RemoteAddr(); addr != nil {
		c.name = addr.String()
	}
	return c
}

// Write sends response to client over tcp connection
func (c *Connection) Write(bytes []byte) (int, error) {
	if len(bytes) == 0 {
		return 0, nil
	}

	c.sendingData.Add(1)
	defer c.sendingData.Done()

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.Write(bytes)
}

// Close 等待正在发送的回复写完后断开连接，重复调用只关闭一次
func (c *Connection) Close() error {
	if !c.closed.CAS(false, true) {
		return nil
	}
	c.sendingData.WaitWithTimeout(closeWaitTimeout)
	return c.conn.Close()
}

// Name 客户端地址，用于日志
func (c *Connection) Name() string {
	return c.name
}
