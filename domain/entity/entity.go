// Package entity 提供可嵌入的实体基础结构。
//
// 业务实体只需嵌入 Entity[ID]（或 AuditedEntity[ID]），即可获得统一的生命周期字段：
// 主键、创建/更新时间与状态位。生命周期字段的写入由仓储负责，业务代码只读。
package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/tbarracha/Spirekit-sub001/domain"
)

// Entity 通用生命周期字段（用于嵌入）。
//
// 列名通过 db 标签固定，以便与既有数据库保持兼容。
type Entity[ID comparable] struct {
	ID        ID           `json:"id" db:"id"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
	State     domain.State `json:"state" db:"state_flag"`
}

func (e *Entity[ID]) GetID() ID                 { return e.ID }
func (e *Entity[ID]) GetCreatedAt() time.Time   { return e.CreatedAt }
func (e *Entity[ID]) GetUpdatedAt() time.Time   { return e.UpdatedAt }
func (e *Entity[ID]) GetState() domain.State    { return e.State }
func (e *Entity[ID]) SetCreatedAt(at time.Time) { e.CreatedAt = at }
func (e *Entity[ID]) SetUpdatedAt(at time.Time) { e.UpdatedAt = at }
func (e *Entity[ID]) SetState(s domain.State)   { e.State = s }

// IsActive 是否处于 Active 状态
func (e *Entity[ID]) IsActive() bool { return e.State == domain.StateActive }

// IsDeleted 是否已软删除
func (e *Entity[ID]) IsDeleted() bool { return e.State == domain.StateDeleted }

// AuditedEntity 在 Entity 基础上附加操作人信息。
//
// CreatedBy / UpdatedBy 可为空：没有操作人上下文的写入（例如后台任务）保持 NULL。
type AuditedEntity[ID comparable] struct {
	Entity[ID]
	CreatedBy *string `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy *string `json:"updated_by,omitempty" db:"updated_by"`
}

func (e *AuditedEntity[ID]) GetCreatedBy() *string   { return e.CreatedBy }
func (e *AuditedEntity[ID]) GetUpdatedBy() *string   { return e.UpdatedBy }
func (e *AuditedEntity[ID]) SetCreatedBy(by *string) { e.CreatedBy = by }
func (e *AuditedEntity[ID]) SetUpdatedBy(by *string) { e.UpdatedBy = by }

// NewStringID 生成字符串主键（UUID v4）。
func NewStringID() string {
	return uuid.NewString()
}

var (
	_ domain.IEntity[string] = (*Entity[string])(nil)
	_ domain.ILifecycle      = (*Entity[string])(nil)
	_ domain.IAuditable      = (*AuditedEntity[int64])(nil)
)
