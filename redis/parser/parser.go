package parser

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/dawnzzz/lww-set/interface/redis"
	"github.com/dawnzzz/lww-set/logger"
	"github.com/dawnzzz/lww-set/redis/protocol/reply"
)

type Payload struct {
	Data redis.Reply
	Err  error
}

// ProtocolError 格式错误，连接仍然可以继续使用
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Msg
}

// ParseStream 异步解析 reader 中的 RESP 消息，reader 出错时关闭 channel
func ParseStream(reader io.Reader) <-chan *Payload {
	ch := make(chan *Payload)
	go parse(reader, ch)
	return ch
}

// ParseOne 同步解析一条消息
func ParseOne(data []byte) (redis.Reply, error) {
	reader := bufio.NewReader(bytes.NewReader(data))
	for {
		r, err := readReply(reader)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
	}
}

func parse(rawReader io.Reader, ch chan<- *Payload) {
	defer func() {
		if err := recover(); err != nil {
			logger.Error(err)
		}
	}()

	reader := bufio.NewReader(rawReader)
	for {
		r, err := readReply(reader)
		var protocolErr *ProtocolError
		if errors.As(err, &protocolErr) {
			ch <- &Payload{Err: err}
			continue
		}
		if err != nil {
			ch <- &Payload{Err: err}
			close(ch)
			return
		}
		if r == nil {
			continue
		}
		ch <- &Payload{Data: r}
	}
}

// readReply 读出一条完整的消息；不是以 \r\n 结尾的行被忽略，此时返回 nil, nil
func readReply(reader *bufio.Reader) (redis.Reply, error) {
	line, err := readLine(reader)
	if err != nil || line == nil {
		return nil, err
	}

	switch line[0] {
	case '+':
		return reply.MakeStatusReply(string(line[1:])), nil
	case '-':
		return reply.MakeErrReply(string(line[1:])), nil
	case ':':
		value, err := strconv.ParseInt(string(line[1:]), 10, 64)
		if err != nil {
			return nil, &ProtocolError{Msg: "illegal number " + string(line[1:])}
		}
		return reply.MakeIntReply(value), nil
	case '$':
		body, err := readBulk(line, reader)
		if err != nil {
			return nil, err
		}
		if body == nil {
			return reply.MakeNullBulkStringReply(), nil
		}
		return reply.MakeBulkStringReply(body), nil
	case '*':
		return readArray(line, reader)
	}

	// 兼容 inline 命令，比如 telnet 中直接输入 PING
	return reply.MakeMultiBulkStringReply(bytes.Fields(line)), nil
}

// readLine 读一行并去除结尾的 \r\n
func readLine(reader *bufio.Reader) ([]byte, error) {
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	length := len(line)
	if length <= 2 || line[length-2] != '\r' {
		// 检查格式，必须以 \r\n 结尾
		return nil, nil
	}
	return line[:length-2], nil
}

// readBulk header 形如 $3，长度为 -1 时返回 nil
func readBulk(header []byte, reader *bufio.Reader) ([]byte, error) {
	strLen, err := strconv.ParseInt(string(header[1:]), 10, 64)
	if err != nil || strLen < -1 {
		return nil, &ProtocolError{Msg: "illegal bulk string header: " + string(header)}
	} else if strLen == -1 {
		return nil, nil
	}
	// 根据长度读取 body
	body := make([]byte, strLen+2) // 2 为 CRLF 的长度
	if _, err = io.ReadFull(reader, body); err != nil {
		return nil, err
	}
	return body[:len(body)-2], nil
}

func readArray(header []byte, reader *bufio.Reader) (redis.Reply, error) {
	// 解析出数组长度
	nStrs, err := strconv.ParseInt(string(header[1:]), 10, 64)
	if err != nil || nStrs < -1 {
		return nil, &ProtocolError{Msg: "illegal array header " + string(header[1:])}
	} else if nStrs <= 0 {
		return reply.MakeEmptyMultiBulkStringReply(), nil
	}

	lines := make([][]byte, 0, nStrs)
	for i := int64(0); i < nStrs; i++ {
		line, err := readLine(reader)
		if err != nil {
			return nil, err
		}
		if len(line) < 2 || line[0] != '$' {
			return nil, &ProtocolError{Msg: "illegal bulk string header " + string(line)}
		}
		body, err := readBulk(line, reader)
		if err != nil {
			return nil, err
		}
		if body == nil {
			body = []byte{}
		}
		lines = append(lines, body)
	}

	return reply.MakeMultiBulkStringReply(lines), nil
}
