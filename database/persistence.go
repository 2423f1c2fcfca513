package database

import (
	"github.com/dawnzzz/lww-set/database/aof"
	"github.com/dawnzzz/lww-set/interface/redis"
	"github.com/dawnzzz/lww-set/lib/utils"
	"github.com/dawnzzz/lww-set/logger"
)

// OpenAof 重放 AOF 文件恢复数据，之后的写命令都会追加到 AOF 文件
func (db *DB) OpenAof(filename string, fsync int) error {
	persister, err := aof.NewPersister(filename, fsync)
	if err != nil {
		return err
	}

	// 重放时还没有绑定 addAof，命令不会被重复写入
	n, err := persister.Load(func(cmdLine aof.CmdLine) redis.Reply {
		return db.Exec(aofConn{}, cmdLine)
	})
	if err != nil {
		persister.Close()
		return err
	}
	logger.Infof("aof loaded, %d commands replayed from %s (%d bytes)", n, filename, utils.GetFileSizeByName(filename))

	db.bindPersister(persister)
	return nil
}

func (db *DB) bindPersister(persister *aof.Persister) {
	db.persister = persister
	db.addAof = persister.SaveCmdLine
}

// Close 关闭 AOF，未写入的命令会先落盘
func (db *DB) Close() {
	if db.persister != nil {
		db.persister.Close()
	}
}

// aofConn 重放 AOF 时使用的连接
type aofConn struct{}

func (aofConn) Write([]byte) (int, error) {
	return 0, nil
}

func (aofConn) Close() error {
	return nil
}

func (aofConn) Name() string {
	return "aof"
}
