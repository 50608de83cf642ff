package schema

// 生命周期字段的 Go 字段名，与 domain/entity 中的基础结构体保持一致。
const (
	FieldID        = "ID"
	FieldCreatedAt = "CreatedAt"
	FieldUpdatedAt = "UpdatedAt"
	FieldState     = "State"
	FieldCreatedBy = "CreatedBy"
	FieldUpdatedBy = "UpdatedBy"
)

// ActorMaxLength 审计人列的最大长度。
const ActorMaxLength = 64

// ConfigureEntity 生命周期字段的共享默认配置：
// ID 为主键，时间戳必填，状态位为单字符定长列并默认 'a'。
//
// 未提供配置函数的实体直接使用该配置；自定义配置函数应首先调用它
// （或调用 ConfigureAudited）。
func ConfigureEntity(b *Builder) {
	b.HasKey(FieldID)
	b.Property(FieldCreatedAt).Required()
	b.Property(FieldUpdatedAt).Required()
	b.Property(FieldState).
		Required().
		MaxLength(1).
		Fixed().
		Default("'a'").
		Indexed()
}

// ConfigureAudited 在 ConfigureEntity 之上配置审计人列。
func ConfigureAudited(b *Builder) {
	ConfigureEntity(b)
	b.Property(FieldCreatedBy).Optional().MaxLength(ActorMaxLength)
	b.Property(FieldUpdatedBy).Optional().MaxLength(ActorMaxLength)
}
