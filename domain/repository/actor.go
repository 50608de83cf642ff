package repository

import "context"

type actorKey struct{}

// WithActor 在上下文中携带当前操作人，供审计实体填充 CreatedBy / UpdatedBy。
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom 取出操作人；未设置或为空串时返回 false。
func ActorFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	actor, ok := ctx.Value(actorKey{}).(string)
	if !ok || actor == "" {
		return "", false
	}
	return actor, true
}
