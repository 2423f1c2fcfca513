package tcp

import (
	"context"
	"net"
)

// Handler 处理一个 tcp 连接上的应用层协议
type Handler interface {
	Handle(ctx context.Context, conn net.Conn)
	Close() error
}
