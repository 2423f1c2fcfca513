package lww

import (
	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"

	"github.com/dawnzzz/lww-set/interface/crdt"
)

// Clock 基于 snowflake 生成时间戳：同一节点上单调递增，不同节点之间按毫秒有序
// 不传时间戳的调用方（比如命令行）使用它
type Clock struct {
	node *snowflake.Node
}

// NewClock nodeID 取值范围 [0, 1023]，不同副本应该使用不同的 nodeID
func NewClock(nodeID int64) (*Clock, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, errors.Wrapf(err, "create clock for node %d", nodeID)
	}
	return &Clock{node: node}, nil
}

// Now 返回一个新的时间戳
func (c *Clock) Now() crdt.Timestamp {
	return crdt.Timestamp(c.node.Generate().Int64())
}

// NowScore 返回一个可以无损存为 float64 score 的时间戳
// snowflake id 超过了 2^53，这里去掉节点位，只保留毫秒时间与序列号
func (c *Clock) NowScore() crdt.Timestamp {
	id := c.node.Generate()
	ms := id.Time() - snowflake.Epoch
	return crdt.Timestamp(ms<<snowflake.StepBits | id.Step())
}
