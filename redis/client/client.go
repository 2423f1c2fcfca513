package client

import (
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"

	"github.com/dawnzzz/lww-set/interface/redis"
	"github.com/dawnzzz/lww-set/lib/sync/wait"
	"github.com/dawnzzz/lww-set/logger"
	"github.com/dawnzzz/lww-set/redis/parser"
	"github.com/dawnzzz/lww-set/redis/protocol/reply"
)

const (
	created = iota
	running
	closed
)

var (
	ErrClosed  = errors.New("client closed")
	ErrTimeout = errors.New("server time out")
)

// Client 流水线式的 RESP 客户端：请求按顺序写出，回复按顺序与请求对应
type Client struct {
	conn        net.Conn      // 与服务器的tcp连接
	pendingReqs chan *request // 等待发送的请求
	waitingReqs chan *request // 等待服务器响应的请求
	ticker      *time.Ticker  // 发送心跳的计时器
	stopping    chan struct{} // Close 时关闭，停止心跳协程
	addr        string

	status  atomic.Int32 // 客户端状态（创建/运行/关闭）
	working *sync.WaitGroup
	mu      sync.Mutex // 保护 waitingReqs 的关闭与替换

	keepalive time.Duration // 服务器存活检查时间
	timeout   time.Duration // 单个请求的超时时间
}

type request struct {
	args      [][]byte    // 上行参数
	reply     redis.Reply // 收到的返回值
	heartbeat bool        // 标记是否是心跳请求
	waiting   *wait.Wait  // 调用协程发送请求后通过 waitgroup 等待请求异步处理完成
	err       error
}

const (
	chanSize = 256
	maxWait  = 3 * time.Second
)

// MakeClient keepalive 单位为秒，为 0 时不发送心跳
func MakeClient(addr string, keepalive int) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}

	return &Client{
		conn:        conn,
		pendingReqs: make(chan *request, chanSize),
		waitingReqs: make(chan *request, chanSize),
		addr:        addr,
		working:     &sync.WaitGroup{},
		stopping:    make(chan struct{}),

		keepalive: time.Second * time.Duration(keepalive),
		timeout:   maxWait,
	}, nil
}

// Start starts asynchronous goroutines
func (client *Client) Start() {
	go client.handleWrite()
	go client.handleRead()

	if client.keepalive > 0 {
		// 开启心跳，每 keepalive/2 发送一次
		client.ticker = time.NewTicker(client.keepalive / 2)
		go client.heartbeat()
	}

	client.status.Store(running)
}

// Close stops asynchronous goroutines and close connection
func (client *Client) Close() {
	if !client.status.CAS(running, closed) {
		return
	}
	if client.ticker != nil {
		client.ticker.Stop()
	}
	close(client.stopping)
	// wait working process stop
	client.working.Wait()

	// stop new request
	close(client.pendingReqs)

	client.mu.Lock()
	defer client.mu.Unlock()
	_ = client.conn.Close()
	close(client.waitingReqs)
}

func (client *Client) StatusClosed() bool {
	return client.status.Load() == closed
}

// Do 发送请求并等待回复，连接故障与超时以 error 返回，服务器的错误回复原样返回
func (client *Client) Do(args ...[]byte) (redis.Reply, error) {
	// 先登记再检查状态，Close 会等待已经登记的请求
	client.working.Add(1)
	defer client.working.Done()
	if client.status.Load() != running {
		return nil, ErrClosed
	}

	request := &request{
		args:      args,
		heartbeat: false,
		waiting:   &wait.Wait{},
	}
	request.waiting.Add(1)

	client.pendingReqs <- request

	if timeout := request.waiting.WaitWithTimeout(client.timeout); timeout {
		return nil, errors.Wrapf(ErrTimeout, "%s after %v", args[0], client.timeout)
	}
	if request.err != nil {
		return nil, errors.Wrapf(request.err, "request %s failed", args[0])
	}

	return request.reply, nil
}

func (client *Client) handleWrite() {
	for req := range client.pendingReqs {
		client.doRequest(req)
	}
}

func (client *Client) doRequest(req *request) {
	re := reply.MakeMultiBulkStringReply(req.args)
	bytes := re.ToBytes()

	client.mu.Lock()
	conn := client.conn
	client.mu.Unlock()

	// 最多失败重试3次
	var err error
	for i := 0; i < 3; i++ {
		_, err = conn.Write(bytes)
		if err == nil || (!strings.Contains(err.Error(), "timeout") && // only retry timeout
			!strings.Contains(err.Error(), "deadline exceeded")) {
			break
		}
	}

	if err != nil {
		req.err = err
		req.waiting.Done()
		return
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if client.status.Load() == closed {
		req.err = ErrClosed
		req.waiting.Done()
		return
	}
	client.waitingReqs <- req
}

func (client *Client) handleRead() {
	client.mu.Lock()
	conn := client.conn
	client.mu.Unlock()

	ch := parser.ParseStream(conn)
	for payload := range ch {
		if payload.Err != nil {
			var protocolErr *parser.ProtocolError
			if errors.As(payload.Err, &protocolErr) {
				client.finishRequest(nil, payload.Err)
				continue
			}
			if client.status.Load() == closed {
				return
			}
			client.reconnect()
			return
		}
		client.finishRequest(payload.Data, nil)
	}
}

func (client *Client) finishRequest(r redis.Reply, err error) {
	defer func() {
		if err := recover(); err != nil {
			debug.PrintStack()
			logger.Error(err)
		}
	}()
	request := <-client.waitingReqs
	if request == nil {
		return
	}
	request.reply = r
	request.err = err
	if request.waiting != nil {
		request.waiting.Done()
	}
}

func (client *Client) reconnect() {
	logger.Info("reconnect with: " + client.addr)

	_ = client.conn.Close() // ignore possible errors from repeated closes

	var conn net.Conn
	for i := 0; i < 3; i++ {
		var err error
		conn, err = net.Dial("tcp", client.addr)
		if err != nil {
			logger.Error("reconnect error: " + err.Error())
			time.Sleep(time.Second)
			continue
		} else {
			break
		}
	}
	if conn == nil { // reach max retry, abort
		client.Close()
		return
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if client.status.Load() == closed {
		// 重连期间客户端已经被关闭
		_ = conn.Close()
		return
	}
	client.conn = conn

	close(client.waitingReqs)
	for req := range client.waitingReqs {
		req.err = errors.New("connection closed")
		req.waiting.Done()
	}

	client.waitingReqs = make(chan *request, chanSize)

	// restart handle read
	go client.handleRead()
}

func (client *Client) heartbeat() {
	for {
		select {
		case <-client.ticker.C:
			client.doHeartbeat()
		case <-client.stopping:
			return
		}
	}
}

func (client *Client) doHeartbeat() {
	client.working.Add(1)
	defer client.working.Done()
	if client.status.Load() != running {
		return
	}
	request := &request{
		args:      [][]byte{[]byte("PING")},
		heartbeat: true,
		waiting:   &wait.Wait{},
	}
	request.waiting.Add(1)
	client.pendingReqs <- request
	request.waiting.WaitWithTimeout(maxWait)
}
