package reply

// ErrorReply 错误回复
type ErrorReply interface {
	Error() string
	ToBytes() []byte
}

// StandardErrReply 以 - 开头的错误信息
type StandardErrReply struct {
	Status string
}

// MakeErrReply creates StandardErrReply
func MakeErrReply(status string) *StandardErrReply {
	return &StandardErrReply{
		Status: status,
	}
}

func (r *StandardErrReply) ToBytes() []byte {
	return []byte("-" + r.Status + CRLF)
}

func (r *StandardErrReply) Error() string {
	return r.Status
}

func (r *StandardErrReply) DataString() string {
	return "(error) " + r.Status
}

// MakeArgNumErrReply 参数数量错误
func MakeArgNumErrReply(cmd string) *StandardErrReply {
	return MakeErrReply("ERR wrong number of arguments for '" + cmd + "' command")
}

// MakeSyntaxErrReply 语法错误
func MakeSyntaxErrReply() *StandardErrReply {
	return MakeErrReply("ERR syntax error")
}

// MakeWrongTypeErrReply key 对应的值类型不对
func MakeWrongTypeErrReply() *StandardErrReply {
	return MakeErrReply("WRONGTYPE Operation against a key holding the wrong kind of value")
}

// IsErrorReply 判断是否为错误回复
func IsErrorReply(r interface{ ToBytes() []byte }) bool {
	bytes := r.ToBytes()
	return len(bytes) > 0 && bytes[0] == '-'
}
