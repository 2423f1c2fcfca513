// Package reply RESP 协议中各种类型的消息
package reply

import (
	"strconv"
	"strings"
)

const (
	CRLF = "\r\n"
)

var (
	// 空字符串
	nullBulkBytes = []byte("$-1\r\n")
	// 空列表
	emptyMultiBulkBytes = []byte("*0\r\n")
)

// appendHeader 写入形如 $3\r\n 的头部
func appendHeader(buf []byte, prefix byte, n int64) []byte {
	buf = append(buf, prefix)
	buf = strconv.AppendInt(buf, n, 10)
	return append(buf, CRLF...)
}

func appendBulk(buf []byte, arg []byte) []byte {
	if arg == nil {
		return append(buf, nullBulkBytes...)
	}
	buf = appendHeader(buf, '$', int64(len(arg)))
	buf = append(buf, arg...)
	return append(buf, CRLF...)
}

/* BULK STRING */

// BulkStringReply $3\r\nfoo\r\n，Arg 为 nil 时编码为空字符串
type BulkStringReply struct {
	Arg []byte
}

func MakeBulkStringReply(arg []byte) *BulkStringReply {
	return &BulkStringReply{
		Arg: arg,
	}
}

func (r *BulkStringReply) ToBytes() []byte {
	return appendBulk(make([]byte, 0, len(r.Arg)+16), r.Arg)
}

func (r *BulkStringReply) DataString() string {
	return string(r.Arg)
}

// NullBulkStringReply $-1，ZSCORE 查询不到成员时返回
type NullBulkStringReply struct{}

func MakeNullBulkStringReply() *NullBulkStringReply {
	return &NullBulkStringReply{}
}

func (r *NullBulkStringReply) ToBytes() []byte {
	return nullBulkBytes
}

func (r *NullBulkStringReply) DataString() string {
	return "(nil)"
}

/* INTEGER */

// IntReply stores an int64 number
type IntReply struct {
	Code int64
}

func MakeIntReply(code int64) *IntReply {
	return &IntReply{
		Code: code,
	}
}

func (r *IntReply) ToBytes() []byte {
	return appendHeader(make([]byte, 0, 24), ':', r.Code)
}

func (r *IntReply) DataString() string {
	return "(integer) " + strconv.FormatInt(r.Code, 10)
}

/* MULTI BULK STRING */

// MultiBulkStringReply 命令与 ZRANGE 的结果都使用这种格式
type MultiBulkStringReply struct {
	Args [][]byte
}

func MakeMultiBulkStringReply(args [][]byte) *MultiBulkStringReply {
	return &MultiBulkStringReply{
		Args: args,
	}
}

func (r *MultiBulkStringReply) ToBytes() []byte {
	size := 16
	for _, arg := range r.Args {
		size += len(arg) + 16
	}

	buf := appendHeader(make([]byte, 0, size), '*', int64(len(r.Args)))
	for _, arg := range r.Args {
		buf = appendBulk(buf, arg)
	}
	return buf
}

func (r *MultiBulkStringReply) DataString() string {
	if len(r.Args) == 0 {
		return "(empty list or set)"
	}

	lines := make([]string, len(r.Args))
	for i, arg := range r.Args {
		lines[i] = strconv.Itoa(i+1) + ") " + string(arg)
	}
	return strings.Join(lines, "\n")
}

type EmptyMultiBulkStringReply struct{}

func MakeEmptyMultiBulkStringReply() *EmptyMultiBulkStringReply {
	return &EmptyMultiBulkStringReply{}
}

func (r *EmptyMultiBulkStringReply) ToBytes() []byte {
	return emptyMultiBulkBytes
}

func (r *EmptyMultiBulkStringReply) DataString() string {
	return "(empty list or set)"
}
