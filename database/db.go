// Package database 只保存有序集合的内存数据库，作为 lww-set 的远程存储
package database

import (
	"strings"

	"github.com/dawnzzz/lww-set/database/aof"
	"github.com/dawnzzz/lww-set/datastruct/dict"
	"github.com/dawnzzz/lww-set/datastruct/lock"
	"github.com/dawnzzz/lww-set/datastruct/sortedset"
	"github.com/dawnzzz/lww-set/interface/redis"
	"github.com/dawnzzz/lww-set/logger"
	"github.com/dawnzzz/lww-set/redis/protocol/reply"
)

const (
	dataDictSize = 1 << 10
	lockSize     = 1024
)

// DB key -> 有序集合
type DB struct {
	data   *dict.ConcurrentDict[string, *sortedset.SortedSet]
	locker *lock.Locks

	// 执行成功的写命令通过 addAof 追加到 AOF 文件，nil 表示不持久化
	addAof    func(aof.CmdLine)
	persister *aof.Persister
}

func MakeDB() *DB {
	return &DB{
		data:   dict.MakeStringDict[*sortedset.SortedSet](dataDictSize),
		locker: lock.Make(lockSize),
	}
}

// Exec executes command, c 用于日志
func (db *DB) Exec(c redis.Connection, cmdLine [][]byte) redis.Reply {
	if len(cmdLine) == 0 {
		return reply.MakeErrReply("ERR empty command")
	}
	cmdName := strings.ToLower(string(cmdLine[0]))

	switch cmdName {
	case "ping":
		logger.Debugf("received heart beat from %v", c.Name())
		return reply.MakePongStatusReply()
	case "flushall":
		db.Flush()
		db.appendAof(cmdLine)
		return reply.MakeOkReply()
	}

	return db.execNormalCommand(cmdLine)
}

func (db *DB) execNormalCommand(cmdLine [][]byte) redis.Reply {
	cmdName := strings.ToLower(string(cmdLine[0]))
	// 获取命令
	cmd, ok := cmdTable[cmdName]
	if !ok {
		return reply.MakeErrReply("ERR unknown command '" + cmdName + "'")
	}
	if !validateArity(cmd.arity, cmdLine) {
		return reply.MakeArgNumErrReply(cmdName)
	}

	// 执行前的加锁
	write, read := cmd.prepare(cmdLine[1:])
	unlock := db.locker.RWLocks(write, read)
	defer unlock()

	result := cmd.executor(db, cmdLine[1:])
	if cmd.flags&FlagReadOnly == 0 && !reply.IsErrorReply(result) {
		db.appendAof(cmdLine)
	}
	return result
}

func (db *DB) appendAof(cmdLine [][]byte) {
	if db.addAof != nil {
		db.addAof(cmdLine)
	}
}

// Flush Warning! clean all db data
func (db *DB) Flush() {
	db.data.Clear()
}

// Len key 的数量
func (db *DB) Len() int {
	return db.data.Len()
}

func (db *DB) getSortedSet(key string) (*sortedset.SortedSet, bool) {
	return db.data.Get(key)
}

func (db *DB) getOrInitSortedSet(key string) *sortedset.SortedSet {
	sortedSet, ok := db.data.Get(key)
	if ok {
		return sortedSet
	}
	// 调用方持有 key 的写锁，这里不会并发初始化
	sortedSet = sortedset.MakeSortedSet()
	db.data.PutIfAbsent(key, sortedSet)
	return sortedSet
}

func (db *DB) remove(key string) bool {
	return db.data.Remove(key) == 1
}
