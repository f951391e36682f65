// Package noop implementa el adapter no-op para modo sin almacenamiento.
package noop

import (
	"context"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	store "github.com/dropDatabas3/identitystore/internal/store"
)

// El adapter noop NO se auto-registra porque es un fallback especial.
// Se usa explícitamente cuando no hay driver configurado: cada operación
// retorna ErrNotImplemented y los callers lo tratan como capacidad ausente.

type noopAdapter struct{}

// New retorna el adapter noop.
func New() store.Adapter {
	return &noopAdapter{}
}

func (a *noopAdapter) Name() string { return "noop" }

func (a *noopAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	return &noopConnection{}, nil
}

type noopConnection struct{}

func (c *noopConnection) Name() string                           { return "noop" }
func (c *noopConnection) Ping(ctx context.Context) error         { return nil }
func (c *noopConnection) Close(ctx context.Context) error        { return nil }
func (c *noopConnection) EnsureSchema(ctx context.Context) error { return nil }

func (c *noopConnection) Users() repository.UserStore            { return &noopUserStore{} }
func (c *noopConnection) Logins() repository.UserLoginStore      { return &noopUserStore{} }
func (c *noopConnection) Emails() repository.UserEmailStore      { return nil }
func (c *noopConnection) Claims() repository.UserClaimStore      { return nil }
func (c *noopConnection) Security() repository.UserSecurityStore { return nil }

// ─── Store que retorna ErrNotImplemented ───

type noopUserStore struct{}

func (r *noopUserStore) GetUserID(ctx context.Context, u *repository.User) (string, error) {
	return "", repository.ErrNotImplemented
}
func (r *noopUserStore) GetUserName(ctx context.Context, u *repository.User) (string, error) {
	return "", repository.ErrNotImplemented
}
func (r *noopUserStore) SetUserName(ctx context.Context, u *repository.User, name string) error {
	return repository.ErrNotImplemented
}
func (r *noopUserStore) GetNormalizedUserName(ctx context.Context, u *repository.User) (string, error) {
	return "", repository.ErrNotImplemented
}
func (r *noopUserStore) SetNormalizedUserName(ctx context.Context, u *repository.User, name string) error {
	return repository.ErrNotImplemented
}
func (r *noopUserStore) Create(ctx context.Context, u *repository.User) error {
	return repository.ErrNotImplemented
}
func (r *noopUserStore) Update(ctx context.Context, u *repository.User) error {
	return repository.ErrNotImplemented
}
func (r *noopUserStore) Delete(ctx context.Context, u *repository.User) error {
	return repository.ErrNotImplemented
}
func (r *noopUserStore) FindByID(ctx context.Context, id string) (*repository.User, error) {
	return nil, repository.ErrNotImplemented
}
func (r *noopUserStore) FindByName(ctx context.Context, normalizedUserName string) (*repository.User, error) {
	return nil, repository.ErrNotImplemented
}

func (r *noopUserStore) AddLogin(ctx context.Context, u *repository.User, info repository.LoginInfo) error {
	return repository.ErrNotImplemented
}
func (r *noopUserStore) RemoveLogin(ctx context.Context, u *repository.User, provider, key string) error {
	return repository.ErrNotImplemented
}
func (r *noopUserStore) GetLogins(ctx context.Context, u *repository.User) ([]repository.LoginInfo, error) {
	return nil, repository.ErrNotImplemented
}
func (r *noopUserStore) FindByLogin(ctx context.Context, provider, key string) (*repository.User, error) {
	return nil, repository.ErrNotImplemented
}
