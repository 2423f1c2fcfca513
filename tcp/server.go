// Package tcp 通用的 TCP 服务器，具体协议由 tcp.Handler 处理
package tcp

import (
	"context"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dawnzzz/lww-set/interface/tcp"
	"github.com/dawnzzz/lww-set/lib/sync/wait"
	"github.com/dawnzzz/lww-set/logger"
)

const (
	// 关闭时最多等待连接处理完成的时间
	shutdownTimeout = 10 * time.Second
	// Accept 临时错误后的重试间隔
	acceptRetryDelay = 50 * time.Millisecond
)

// ListenAndServeWithSignal 服务器开启监听，收到 SIGHUP/SIGQUIT/SIGTERM/SIGINT 时退出
func ListenAndServeWithSignal(address string, handler tcp.Handler) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	logger.Infoln("tcp server is listening at:", address)
	return ListenAndServe(ctx, listener, handler)
}

// ListenAndServe 在 listener 上接受连接，ctx 结束时关闭 listener 与 handler
func ListenAndServe(ctx context.Context, listener net.Listener, handler tcp.Handler) error {
	ctx, cancel := context.WithCancel(ctx)

	// 开启一个协程检查退出信号
	shutdown := make(chan struct{})
	go func() {
		defer close(shutdown)
		<-ctx.Done()
		logger.Info("server shutting down...")
		_ = listener.Close()
		_ = handler.Close()
	}()

	var conns wait.Wait
	defer func() {
		cancel()
		<-shutdown
		// 等待所有请求处理完成
		if timeout := conns.WaitWithTimeout(shutdownTimeout); timeout {
			logger.Warn("server shut down before all connections finished")
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				logger.Warnf("accept err, retry in %v: %v", acceptRetryDelay, err)
				time.Sleep(acceptRetryDelay)
				continue
			}
			return err
		}

		// 来了一个请求，开启协程处理请求
		logger.Debugf("accept a conn from: %s", conn.RemoteAddr().String())
		conns.Add(1)
		go func() {
			defer conns.Done()
			handler.Handle(ctx, conn)
		}()
	}
}
