// Package server 在 tcp 连接上解析 RESP 命令并交给 database 执行
package server

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"

	"github.com/dawnzzz/lww-set/database"
	"github.com/dawnzzz/lww-set/logger"
	"github.com/dawnzzz/lww-set/redis/connection"
	"github.com/dawnzzz/lww-set/redis/parser"
	"github.com/dawnzzz/lww-set/redis/protocol/reply"
)

var (
	unknownErrReplyBytes = []byte("-ERR unknown\r\n")
)

type Handler struct {
	activeConn sync.Map // *connection.Connection -> 最近一次收到命令的时间
	db         *database.DB
	closing    atomic.Bool // refusing new client and new request
	// 关闭时取消，停止心跳检查
	ctx    context.Context
	cancel context.CancelFunc
}

// MakeHandler creates a Handler instance，keepalive 大于 0 时关闭超时没有消息的连接
func MakeHandler(db *database.DB, keepalive int) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		db:     db,
		ctx:    ctx,
		cancel: cancel,
	}

	if keepalive > 0 {
		go h.checkActiveHeartbeat(time.Second * time.Duration(keepalive)) // 开启心跳检查
	}

	return h
}

// DB 返回处理命令的数据库
func (h *Handler) DB() *database.DB {
	return h.db
}

func (h *Handler) closeClient(client *connection.Connection) {
	_ = client.Close()
	h.activeConn.Delete(client)
	logger.Debugf("connection closed: %s", client.Name())
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}

// Handle 逐条读取命令并回复，直到连接关闭
func (h *Handler) Handle(ctx context.Context, conn net.Conn) {
	if h.closing.Load() {
		// closing handler refuse new connection
		_ = conn.Close()
		return
	}

	client := connection.NewConn(conn)
	h.activeConn.Store(client, time.Now())
	defer h.closeClient(client)

	// ctx 结束时关闭连接，解析协程随之退出
	stop := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})
	defer stop()

	for payload := range parser.ParseStream(conn) {
		if payload.Err != nil {
			if isClosedErr(payload.Err) {
				return
			}
			// protocol err
			errReply := reply.MakeErrReply(payload.Err.Error())
			if _, err := client.Write(errReply.ToBytes()); err != nil {
				return
			}
			continue
		}

		r, ok := payload.Data.(*reply.MultiBulkStringReply)
		if !ok {
			logger.Errorf("require multi bulk protocol, got %T", payload.Data)
			continue
		}
		h.activeConn.Store(client, time.Now())

		result := h.db.Exec(client, r.Args)
		if result == nil {
			_, _ = client.Write(unknownErrReplyBytes)
			continue
		}
		_, _ = client.Write(result.ToBytes())
	}
}

// Close 拒绝新的连接，关闭已有连接，并关闭数据库的 AOF
func (h *Handler) Close() error {
	if !h.closing.CAS(false, true) {
		return nil
	}
	logger.Info("handler shutting down...")
	h.cancel()
	h.activeConn.Range(func(key, _ any) bool { // close all active conn
		_ = key.(*connection.Connection).Close()
		return true
	})
	h.db.Close()
	return nil
}

func (h *Handler) checkActiveHeartbeat(timeout time.Duration) {
	ticker := time.NewTicker(timeout / 2) // 每keepalive/2检查一次客户端的心跳
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			h.activeConn.Range(func(key, value any) bool {
				if now.After(value.(time.Time).Add(timeout)) {
					// 心跳超时，关闭连接
					logger.Debugf("heartbeat timeout: %s", key.(*connection.Connection).Name())
					_ = key.(*connection.Connection).Close()
				}
				return true
			})
		case <-h.ctx.Done():
			return
		}
	}
}
