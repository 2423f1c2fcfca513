package lww

import (
	"math"

	"github.com/dawnzzz/lww-set/interface/crdt"
)

// MaxScoreTimestamp float64 能够精确表示的最大整数，远程存储以 float64 作为 score
const MaxScoreTimestamp crdt.Timestamp = 1 << 53

// ValidateTimestamp 时间戳必须非负
func ValidateTimestamp(ts crdt.Timestamp) error {
	if ts < 0 {
		return InvalidTimestamp(ts, "must be non-negative")
	}
	return nil
}

// ValidateScoreTimestamp 在 ValidateTimestamp 的基础上，要求时间戳能够无损地转换为 score
func ValidateScoreTimestamp(ts crdt.Timestamp) error {
	if err := ValidateTimestamp(ts); err != nil {
		return err
	}
	if ts > MaxScoreTimestamp {
		return InvalidTimestamp(ts, "not exactly representable as a score")
	}
	return nil
}

// ScoreToTimestamp 将远程存储中的 score 转换为时间戳
func ScoreToTimestamp(score float64) (crdt.Timestamp, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 || score != math.Trunc(score) ||
		score > float64(MaxScoreTimestamp) {
		return 0, Internal(nil, "stored score %v is not a timestamp", score)
	}
	return crdt.Timestamp(score), nil
}
