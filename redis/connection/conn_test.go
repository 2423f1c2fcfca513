package connection

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnection(t *testing.T) {
	server, peer := net.Pipe()
	c := NewConn(server)
	assert.Equal(t, "pipe", c.Name())

	go func() {
		_, _ = c.Write([]byte("+PONG\r\n"))
	}()
	buf := make([]byte, 7)
	_, err := io.ReadFull(peer, buf)
	require.NoError(t, err)
	assert.Equal(t, "+PONG\r\n", string(buf))

	n, err := c.Write(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	_, err = peer.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}
