package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawnzzz/lww-set/database/aof"
	"github.com/dawnzzz/lww-set/redis/protocol/reply"
)

func TestAofReplay(t *testing.T) {
	for _, fsync := range []int{aof.FsyncAlways, aof.FsyncEverySec, aof.FsyncNo} {
		filename := filepath.Join(t.TempDir(), "lww.aof")

		db := MakeDB()
		require.NoError(t, db.OpenAof(filename, fsync))
		exec(db, "ZADD", "lww_add_set", "30", "e")
		exec(db, "ZADD", "lww_add_set", "GT", "10", "e") // 不生效，但重放结果一致
		exec(db, "ZADD", "lww_remove_set", "20", "e")
		exec(db, "ZADD", "lww_add_set", "5", "f")
		exec(db, "ZADD", "tmp", "1", "x")
		exec(db, "DEL", "tmp")
		exec(db, "ZSCORE", "lww_add_set", "e")
		exec(db, "ZADD", "lww_add_set", "nan?", "g") // 错误的命令不会写入
		db.Close()

		restored := MakeDB()
		require.NoError(t, restored.OpenAof(filename, fsync))
		assert.Equal(t, "30", exec(restored, "ZSCORE", "lww_add_set", "e").DataString())
		assert.Equal(t, "20", exec(restored, "ZSCORE", "lww_remove_set", "e").DataString())
		assert.Equal(t, "5", exec(restored, "ZSCORE", "lww_add_set", "f").DataString())
		assert.IsType(t, &reply.NullBulkStringReply{}, exec(restored, "ZSCORE", "lww_add_set", "g"))
		assert.Equal(t, 2, restored.Len())
		restored.Close()
	}
}

func TestAofFlushAll(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "lww.aof")

	db := MakeDB()
	require.NoError(t, db.OpenAof(filename, aof.FsyncAlways))
	exec(db, "ZADD", "lww_add_set", "30", "e")
	exec(db, "FLUSHALL")
	exec(db, "ZADD", "lww_remove_set", "40", "e")
	db.Close()

	restored := MakeDB()
	require.NoError(t, restored.OpenAof(filename, aof.FsyncAlways))
	defer restored.Close()
	assert.IsType(t, &reply.NullBulkStringReply{}, exec(restored, "ZSCORE", "lww_add_set", "e"))
	assert.Equal(t, "40", exec(restored, "ZSCORE", "lww_remove_set", "e").DataString())
}

func TestAofTruncatedTail(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "lww.aof")
	content := "*4\r\n$4\r\nZADD\r\n$11\r\nlww_add_set\r\n$2\r\n30\r\n$1\r\ne\r\n" +
		"*4\r\n$4\r\nZADD\r\n$11\r\nlww_add_set\r\n$2\r\n40\r\n$3\r\nf" // 最后一条没有写完
	require.NoError(t, os.WriteFile(filename, []byte(content), 0666))

	db := MakeDB()
	require.NoError(t, db.OpenAof(filename, aof.FsyncNo))
	defer db.Close()
	assert.Equal(t, "30", exec(db, "ZSCORE", "lww_add_set", "e").DataString())
	assert.IsType(t, &reply.NullBulkStringReply{}, exec(db, "ZSCORE", "lww_add_set", "f"))
}

func TestAofInvalidFsync(t *testing.T) {
	db := MakeDB()
	assert.Error(t, db.OpenAof(filepath.Join(t.TempDir(), "lww.aof"), 7))
}

func TestCloseWithoutAof(t *testing.T) {
	db := MakeDB()
	db.Close()
	exec(db, "ZADD", "k", "1", "m")
	assert.Equal(t, 1, db.Len())
}
