package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	store "github.com/dropDatabas3/identitystore/internal/store"
	_ "github.com/dropDatabas3/identitystore/internal/store/adapters/dal"
	"github.com/dropDatabas3/identitystore/internal/store/adapters/noop"
)

func TestListAdapters(t *testing.T) {
	assert.Equal(t, []string{"memory", "mongo"}, store.ListAdapters())

	_, ok := store.GetAdapter("memory")
	assert.True(t, ok)
	_, ok = store.GetAdapter("postgres")
	assert.False(t, ok)
}

func TestRegisterAdapterTwicePanics(t *testing.T) {
	a, ok := store.GetAdapter("memory")
	require.True(t, ok)
	assert.Panics(t, func() { store.RegisterAdapter(a) })
}

func TestOpenAdapterUnknown(t *testing.T) {
	_, err := store.OpenAdapter(context.Background(), store.AdapterConfig{Name: "nope"})
	require.Error(t, err)
}

func TestOpenAdapterMemoryEnsuresSchema(t *testing.T) {
	ctx := context.Background()
	cfg := store.AdapterConfig{Name: "memory", Database: "registry_test", UsersCollection: "users_schema"}

	conn, err := store.OpenAdapter(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close(ctx)

	assert.Equal(t, "memory", conn.Name())
	require.NoError(t, conn.Ping(ctx))

	users := conn.Users()
	require.NotNil(t, users)
	require.NotNil(t, conn.Logins())
	require.NotNil(t, conn.Emails())
	require.NotNil(t, conn.Claims())
	require.NotNil(t, conn.Security())

	a, _ := repository.NewUser("alice")
	a.NormalizedUserName = "ALICE"
	require.NoError(t, users.Create(ctx, a))

	b, _ := repository.NewUser("alice")
	b.NormalizedUserName = "ALICE"
	assert.True(t, repository.IsUniqueViolation(users.Create(ctx, b)))

	// otra conexión al mismo database/collection ve los mismos datos
	other, err := store.OpenAdapter(ctx, cfg)
	require.NoError(t, err)
	got, err := other.Users().FindByName(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestOpenAdapterFailsWhenSchemaCannotBeBuilt(t *testing.T) {
	ctx := context.Background()
	cfg := store.AdapterConfig{Name: "memory", Database: "registry_test", UsersCollection: "users_dups", SkipEnsureSchema: true}

	conn, err := store.OpenAdapter(ctx, cfg)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		u, _ := repository.NewUser("dup")
		u.NormalizedUserName = "DUP"
		require.NoError(t, conn.Users().Create(ctx, u))
	}

	cfg.SkipEnsureSchema = false
	_, err = store.OpenAdapter(ctx, cfg)
	require.Error(t, err)
}

func TestOpenAdapterOnWriteError(t *testing.T) {
	ctx := context.Background()
	var ops []string
	cfg := store.AdapterConfig{
		Name:            "memory",
		Database:        "registry_test",
		UsersCollection: "users_hook",
		OnWriteError:    func(ctx context.Context, op string, err error) { ops = append(ops, op) },
	}
	conn, err := store.OpenAdapter(ctx, cfg)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		u, _ := repository.NewUser("x")
		u.NormalizedUserName = "X"
		_ = conn.Users().Create(ctx, u)
	}
	assert.Equal(t, []string{"create"}, ops)
}

func TestMongoAdapterValidatesConfig(t *testing.T) {
	a, ok := store.GetAdapter("mongo")
	require.True(t, ok)

	_, err := a.Connect(context.Background(), store.AdapterConfig{Name: "mongo"})
	assert.True(t, repository.IsInvalidArgument(err))

	_, err = a.Connect(context.Background(), store.AdapterConfig{Name: "mongo", URI: "mongodb://localhost:27017"})
	assert.True(t, repository.IsInvalidArgument(err))
}

func TestNoopAdapter(t *testing.T) {
	ctx := context.Background()
	conn, err := noop.New().Connect(ctx, store.AdapterConfig{})
	require.NoError(t, err)
	require.NoError(t, conn.EnsureSchema(ctx))

	_, err = conn.Users().FindByID(ctx, "x")
	assert.True(t, errors.Is(err, repository.ErrNotImplemented))
	assert.True(t, errors.Is(conn.Logins().AddLogin(ctx, &repository.User{}, repository.LoginInfo{}), repository.ErrNotImplemented))
	assert.Nil(t, conn.Emails())
	assert.Nil(t, conn.Security())
}
