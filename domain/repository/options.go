package repository

import (
	"math"

	"github.com/tbarracha/Spirekit-sub001/domain"
)

// ListOptions 列表查询的状态过滤。
//
// 默认只返回 Active；AnyState 为 true 时不做状态过滤。
type ListOptions struct {
	State    domain.State
	AnyState bool
}

// ListOption 用于配置 ListOptions。
type ListOption func(*ListOptions)

// WithState 只返回指定状态的实体。传入 StateUnset 等价于 WithAnyState。
func WithState(s domain.State) ListOption {
	return func(o *ListOptions) {
		if s == domain.StateUnset {
			o.AnyState = true
			return
		}
		o.State = s
		o.AnyState = false
	}
}

// WithAnyState 不按状态过滤。
func WithAnyState() ListOption {
	return func(o *ListOptions) {
		o.AnyState = true
	}
}

// CollectListOptions 聚合 ListOption。
func CollectListOptions(opts ...ListOption) ListOptions {
	o := ListOptions{State: domain.StateActive}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 1000
)

// PageRequest 分页请求。
type PageRequest struct {
	Page    int
	Size    int
	Filter  Filter
	OrderBy string
	Desc    bool
	Options []ListOption
}

// Normalize 调整分页参数：Page 最小为 1，Size 取默认值并限制上限。
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset 当前页的起始偏移量
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Size
}

// PageResult 分页结果
type PageResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalPages int   `json:"total_pages"`
}

// NewPageResult 根据总数计算总页数。
func NewPageResult[T any](items []T, total int64, req PageRequest) *PageResult[T] {
	size := req.Size
	if size <= 0 {
		size = 1
	}
	if items == nil {
		items = []T{}
	}
	return &PageResult[T]{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		Size:       size,
		TotalPages: int(math.Ceil(float64(total) / float64(size))),
	}
}
