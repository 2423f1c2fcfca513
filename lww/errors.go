package lww

import (
	"github.com/cockroachdb/errors"

	"github.com/dawnzzz/lww-set/interface/crdt"
)

var (
	// ErrInvalidArgument 参数错误（时间戳不合法），属于调用方的 bug，不应重试
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInternal 底层存储出错，可以重试：相同 (element, timestamp) 的 add/remove 是幂等的
	ErrInternal = errors.New("internal error")
)

// InvalidTimestamp 构造时间戳不合法的错误
func InvalidTimestamp(ts crdt.Timestamp, reason string) error {
	return errors.Wrapf(ErrInvalidArgument, "bad timestamp %d: %s", ts, reason)
}

// Internal 将底层存储的错误标记为 ErrInternal，保留原始错误链
func Internal(err error, format string, args ...interface{}) error {
	if err == nil {
		err = errors.New("unknown fault")
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrInternal)
}

// IsInvalidArgument 判断是否为参数错误
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsRetryable 判断错误是否可以通过重试解决
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInternal)
}
