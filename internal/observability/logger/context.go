package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ToContext guarda l en ctx. La CLI inyecta así el logger del comando
// (driver, colección) y el store lo recupera con From.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From retorna el logger de ctx o el global si no hay uno.
func From(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return L()
}

// FromWithFields es From(ctx).With(fields...).
func FromWithFields(ctx context.Context, fields ...zap.Field) *zap.Logger {
	return From(ctx).With(fields...)
}

// Scope retorna un ctx cuyo logger suma fields (p. ej. el user_id de un import).
func Scope(ctx context.Context, fields ...zap.Field) context.Context {
	return ToContext(ctx, FromWithFields(ctx, fields...))
}
