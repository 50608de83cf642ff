package entity

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// int64 主键按雪花布局生成：41 位毫秒时间戳 | 10 位节点号 | 12 位序列号。
const (
	idEpoch    int64 = 1672531200000 // 2023-01-01T00:00:00Z
	nodeBits         = 10
	seqBits          = 12
	maxNode          = -1 ^ (-1 << nodeBits)
	maxSeq           = -1 ^ (-1 << seqBits)
	nodeShift        = seqBits
	stampShift       = seqBits + nodeBits
)

// ErrClockMovedBackwards 系统时钟回拨，拒绝生成可能重复的主键
var ErrClockMovedBackwards = errors.New("entity: clock moved backwards")

// IDGenerator 单节点内单调递增的 int64 主键生成器，可并发使用。
type IDGenerator struct {
	mu    sync.Mutex
	node  int64
	seq   int64
	last  int64
	clock func() time.Time
}

// NewIDGenerator 创建节点号为 node（0..1023）的生成器
func NewIDGenerator(node int64) (*IDGenerator, error) {
	if node < 0 || node > maxNode {
		return nil, fmt.Errorf("entity: node %d out of range [0, %d]", node, maxNode)
	}
	return &IDGenerator{node: node, last: -1, clock: time.Now}, nil
}

// Next 生成下一个主键。同一毫秒内序列号用尽时等待下一毫秒。
func (g *IDGenerator) Next() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock().UnixMilli()
	switch {
	case now < g.last:
		return 0, ErrClockMovedBackwards
	case now == g.last:
		g.seq = (g.seq + 1) & maxSeq
		if g.seq == 0 {
			for now <= g.last {
				time.Sleep(100 * time.Microsecond)
				now = g.clock().UnixMilli()
			}
		}
	default:
		g.seq = 0
	}
	g.last = now
	return (now-idEpoch)<<stampShift | g.node<<nodeShift | g.seq, nil
}

// IDTime 返回主键中编码的生成时间（毫秒精度，UTC）
func IDTime(id int64) time.Time {
	return time.UnixMilli((id >> stampShift) + idEpoch).UTC()
}

var defaultIDs, _ = NewIDGenerator(0)

// NextInt64ID 使用进程级默认生成器生成 int64 主键
func NextInt64ID() (int64, error) { return defaultIDs.Next() }

// NewInt64ID 同 NextInt64ID，时钟回拨时 panic
func NewInt64ID() int64 {
	id, err := NextInt64ID()
	if err != nil {
		panic(err)
	}
	return id
}
