package lww

import (
	"strconv"

	"github.com/cockroachdb/errors"
)

// Codec 元素与远程存储中 member 字符串之间的转换
// 同一个元素必须总是编码为同一个字符串
type Codec[T comparable] interface {
	Encode(element T) string
	Decode(member string) (T, error)
}

// StringCodec 字符串元素，原样存储
type StringCodec struct{}

func (StringCodec) Encode(element string) string {
	return element
}

func (StringCodec) Decode(member string) (string, error) {
	return member, nil
}

// IntCodec 整数元素，以十进制存储
type IntCodec struct{}

func (IntCodec) Encode(element int) string {
	return strconv.Itoa(element)
}

func (IntCodec) Decode(member string) (int, error) {
	v, err := strconv.Atoi(member)
	if err != nil {
		return 0, errors.Wrapf(err, "member %q is not an int", member)
	}
	return v, nil
}
