package aof

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dawnzzz/lww-set/interface/redis"
	"github.com/dawnzzz/lww-set/logger"
	"github.com/dawnzzz/lww-set/redis/parser"
	"github.com/dawnzzz/lww-set/redis/protocol/reply"
)

const (
	FsyncAlways   = iota // 每一个命令都会进行刷盘操作
	FsyncEverySec        // 每秒进行一次刷盘操作
	FsyncNo              // 不主动进行刷盘操作，交给操作系统去决定
)

type CmdLine = [][]byte

const (
	aofQueueSize = 1 << 16
)

// Persister 将写命令追加到 AOF 文件，重启时重放
type Persister struct {
	ctx         context.Context
	cancel      context.CancelFunc
	aofChan     chan CmdLine
	aofFile     *os.File
	aofFilename string
	aofFsync    int // AOF 刷盘策略
	// aof goroutine will send msg to main goroutine through this channel when aof tasks finished and ready to shut down
	aofFinished chan struct{}
	// 写文件与定时刷盘互斥
	pausingAof sync.Mutex
	// 关闭后不再接收命令
	closeMu sync.RWMutex
	closed  bool
}

// NewPersister 打开（或创建）AOF 文件，此时还没有开始接收命令
func NewPersister(filename string, fsync int) (*Persister, error) {
	if fsync < FsyncAlways || fsync > FsyncNo {
		return nil, errors.New("aof fsync must be: 0: always, 1: every sec, 2: no")
	}

	aofFile, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "open aof file %s", filename)
	}

	ctx, cancel := context.WithCancel(context.Background())
	persister := &Persister{
		ctx:         ctx,
		cancel:      cancel,
		aofFile:     aofFile,
		aofFilename: filename,
		aofFsync:    fsync,
		aofChan:     make(chan CmdLine, aofQueueSize),
		aofFinished: make(chan struct{}),
	}

	go func() {
		// 监听aofChan，写入 AOF 文件
		persister.listenCmd()
	}()

	if persister.aofFsync == FsyncEverySec { // 每秒钟进行刷盘同步
		persister.fsyncEverySecond()
	}

	return persister, nil
}

func (persister *Persister) fsyncEverySecond() {
	ticker := time.NewTicker(time.Second)
	go func() {
		for {
			select {
			case <-ticker.C:
				persister.pausingAof.Lock()
				if err := persister.aofFile.Sync(); err != nil {
					logger.Errorf("fsync failed: %v", err)
				}
				persister.pausingAof.Unlock()
			case <-persister.ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// Close 写完队列中的命令后关闭文件
func (persister *Persister) Close() {
	persister.closeMu.Lock()
	if persister.closed {
		persister.closeMu.Unlock()
		return
	}
	persister.closed = true
	// 先关闭 aofChan，等待 listenCmd 写完，再关闭文件
	close(persister.aofChan)
	persister.closeMu.Unlock()

	<-persister.aofFinished
	persister.cancel()

	persister.pausingAof.Lock()
	defer persister.pausingAof.Unlock()
	_ = persister.aofFile.Sync()
	if err := persister.aofFile.Close(); err != nil {
		logger.Warn(err)
	}
}

// Load 读取 AOF 文件并逐条执行，在开始 SaveCmdLine 之前调用
// 返回成功执行的命令数
func (persister *Persister) Load(exec func(cmdLine CmdLine) redis.Reply) (int, error) {
	file, err := os.Open(persister.aofFilename)
	if err != nil {
		return 0, errors.Wrapf(err, "open aof file %s", persister.aofFilename)
	}
	defer file.Close()

	// 读取 AOF 文件复用了协议解析器
	n := 0
	ch := parser.ParseStream(file)
	for p := range ch {
		if p.Err != nil {
			if p.Err == io.EOF {
				// aof file read finish
				break
			}
			if p.Err == io.ErrUnexpectedEOF {
				// 最后一条命令没有写完整，丢弃
				logger.Warn("aof file ends with a truncated command")
				break
			}
			logger.Error("parse error: " + p.Err.Error())
			continue
		}

		r, ok := p.Data.(*reply.MultiBulkStringReply)
		if !ok {
			logger.Error("require multi bulk protocol")
			continue
		}
		ret := exec(r.Args)
		if reply.IsErrorReply(ret) {
			logger.Error("exec err ", string(ret.ToBytes()))
			continue
		}
		n++
	}

	return n, nil
}

// 监听aofChan，写入 AOF 文件
func (persister *Persister) listenCmd() {
	for cmdLine := range persister.aofChan {
		persister.writeAof(cmdLine)
	}
	persister.aofFinished <- struct{}{}
}

// 用于将一条命令写入到 AOF 文件中。
func (persister *Persister) writeAof(cmdLine CmdLine) {
	persister.pausingAof.Lock()
	defer persister.pausingAof.Unlock()

	data := reply.MakeMultiBulkStringReply(cmdLine).ToBytes()
	if _, err := persister.aofFile.Write(data); err != nil {
		logger.Warn(err)
		return
	}

	if persister.aofFsync == FsyncAlways {
		_ = persister.aofFile.Sync()
	}
}

// SaveCmdLine 记录一条写命令，Close 之后的命令会被丢弃
func (persister *Persister) SaveCmdLine(cmdLine CmdLine) {
	persister.closeMu.RLock()
	defer persister.closeMu.RUnlock()
	if persister.closed {
		logger.Warnf("aof closed, drop command %s", cmdLine[0])
		return
	}

	if persister.aofFsync == FsyncAlways {
		persister.writeAof(cmdLine)
		return
	}

	persister.aofChan <- cmdLine
}
