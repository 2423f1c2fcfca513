package database

import (
	"strings"

	"github.com/dawnzzz/lww-set/interface/redis"
)

// ExecFunc is interface for command executor
// args don't include cmd line
type ExecFunc func(db *DB, args [][]byte) redis.Reply

// PreFunc returns related write keys and read keys
type PreFunc func(args [][]byte) ([]string, []string)

var cmdTable = make(map[string]*command)

type command struct {
	executor ExecFunc
	prepare  PreFunc // return related keys command
	arity    int     // allow number of args, arity < 0 means len(args) >= -arity
	flags    int
}

const (
	FlagWrite    = 0
	FlagReadOnly = 1
)

// RegisterCommand registers a new command
// arity means allowed number of cmdArgs, arity < 0 means len(args) >= -arity.
// for example: the arity of `zscore` is 3, `zadd` is -4
// 只有 FlagWrite 的命令会写入 AOF
func RegisterCommand(name string, executor ExecFunc, prepare PreFunc, arity int, flags int) {
	name = strings.ToLower(name)
	cmdTable[name] = &command{
		executor: executor,
		prepare:  prepare,
		arity:    arity,
		flags:    flags,
	}
}

// 验证参数数量是否正确
func validateArity(arity int, cmdArgs [][]byte) bool {
	argNum := len(cmdArgs)
	if arity >= 0 {
		return argNum == arity
	}
	return argNum >= -arity
}

func readFirstKey(args [][]byte) ([]string, []string) {
	// assert len(args) > 0
	key := string(args[0])
	return nil, []string{key}
}

func writeFirstKey(args [][]byte) ([]string, []string) {
	key := string(args[0])
	return []string{key}, nil
}

func writeAllKeys(args [][]byte) ([]string, []string) {
	keys := make([]string, len(args))
	for i, arg := range args {
		keys[i] = string(arg)
	}
	return keys, nil
}
