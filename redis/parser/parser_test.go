package parser

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawnzzz/lww-set/redis/protocol/reply"
)

func TestParseOne(t *testing.T) {
	r, err := ParseOne([]byte("+OK\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "OK", r.DataString())

	r, err = ParseOne([]byte(":12\r\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), r.(*reply.IntReply).Code)

	r, err = ParseOne([]byte("$-1\r\n"))
	require.NoError(t, err)
	assert.IsType(t, &reply.NullBulkStringReply{}, r)

	r, err = ParseOne([]byte("$2\r\n30\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte("30"), r.(*reply.BulkStringReply).Arg)

	r, err = ParseOne([]byte("-ERR boom\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "ERR boom", r.(*reply.StandardErrReply).Status)

	r, err = ParseOne([]byte("*2\r\n$2\r\ns1\r\n$2\r\ns2\r\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("s1"), []byte("s2")}, r.(*reply.MultiBulkStringReply).Args)

	r, err = ParseOne([]byte("*0\r\n"))
	require.NoError(t, err)
	assert.IsType(t, &reply.EmptyMultiBulkStringReply{}, r)
}

func TestParseOneErrors(t *testing.T) {
	_, err := ParseOne([]byte(":abc\r\n"))
	var protocolErr *ProtocolError
	assert.ErrorAs(t, err, &protocolErr)

	_, err = ParseOne([]byte("$5\r\nab\r\n"))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestParseStream(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(reply.MakeMultiBulkStringReply([][]byte{[]byte("ZADD"), []byte("k"), []byte("1"), []byte("m")}).ToBytes())
	buf.WriteString(":abc\r\n")
	buf.WriteString("PING\r\n")

	ch := ParseStream(&buf)

	payload := <-ch
	require.NoError(t, payload.Err)
	assert.Len(t, payload.Data.(*reply.MultiBulkStringReply).Args, 4)

	// 格式错误不会关闭 channel
	payload = <-ch
	assert.Error(t, payload.Err)

	payload = <-ch
	require.NoError(t, payload.Err)
	assert.Equal(t, [][]byte{[]byte("PING")}, payload.Data.(*reply.MultiBulkStringReply).Args)

	payload = <-ch
	assert.ErrorIs(t, payload.Err, io.EOF)
	_, ok := <-ch
	assert.False(t, ok)
}
