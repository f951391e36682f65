// Package audit registra eventos administrativos sobre usuarios.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/identitystore/internal/observability/logger"
	"github.com/dropDatabas3/identitystore/internal/util"
)

// Eventos emitidos por la CLI.
const (
	UserCreated     = "user.created"
	UserDeleted     = "user.deleted"
	UserRenamed     = "user.renamed"
	UserEmailSet    = "user.email_set"
	PasswordChanged = "user.password_changed"
	UserLocked      = "user.locked"
	UserUnlocked    = "user.unlocked"
	LoginAdded      = "user.login_added"
	LoginRemoved    = "user.login_removed"
	UsersImported   = "users.imported"
)

// Log escribe un evento de auditoría en el logger "audit" del contexto.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	base := []zap.Field{
		zap.String("event", event),
		zap.String("ts", time.Now().UTC().Format(time.RFC3339Nano)),
	}
	logger.From(ctx).Named("audit").Info("audit", append(base, fields...)...)
}

// Email es un campo con el email enmascarado.
func Email(v string) zap.Field {
	return zap.String("email", util.MaskEmail(v))
}
