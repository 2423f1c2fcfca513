package reply

import (
	"github.com/dawnzzz/lww-set/interface/redis"
)

// StatusReply 记录 RESP 中的状态信息（以+开头的信息）
type StatusReply struct {
	Status string
}

func MakeStatusReply(status string) *StatusReply {
	return &StatusReply{
		Status: status,
	}
}

func (r *StatusReply) ToBytes() []byte {
	return []byte("+" + r.Status + CRLF)
}

func (r *StatusReply) DataString() string {
	return r.Status
}

// 固定内容的状态回复，直接返回预先编码好的字节
type constStatusReply struct {
	status string
	bytes  []byte
}

func (r *constStatusReply) ToBytes() []byte {
	return r.bytes
}

func (r *constStatusReply) DataString() string {
	return r.status
}

var (
	theOkReply   = &constStatusReply{status: "OK", bytes: []byte("+OK\r\n")}
	thePongReply = &constStatusReply{status: "PONG", bytes: []byte("+PONG\r\n")}
)

// MakeOkReply is +OK
func MakeOkReply() redis.Reply {
	return theOkReply
}

// MakePongStatusReply is +PONG
func MakePongStatusReply() redis.Reply {
	return thePongReply
}
