package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/identitystore/internal/config"
	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	"github.com/dropDatabas3/identitystore/internal/observability/logger"
	"github.com/dropDatabas3/identitystore/internal/security/password"
	store "github.com/dropDatabas3/identitystore/internal/store"
	mongostore "github.com/dropDatabas3/identitystore/internal/store/adapters/mongo"
	"github.com/dropDatabas3/identitystore/internal/store/docstore"
)

func newTestCLI(t *testing.T) *cli {
	t.Helper()
	logger.Init(logger.Config{Env: "test"})
	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{
		Name:            "memory",
		Database:        "cli_test",
		UsersCollection: t.Name(),
	})
	require.NoError(t, err)
	return &cli{
		out:    "json",
		cfg:    config.Default(),
		conn:   conn,
		policy: password.Policy{MinLength: 6},
		params: password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32, SaltLen: 16},
	}
}

func TestBuildUserNormalizesAndHashes(t *testing.T) {
	c := newTestCLI(t)
	in := userInput{UserName: "  Alice ", Email: "Alice@Example.COM", Password: "hunter22"}
	in.Logins = append(in.Logins, struct {
		Provider    string `yaml:"provider"`
		Key         string `yaml:"key"`
		DisplayName string `yaml:"displayName"`
	}{Provider: "github", Key: "1"})

	u, err := c.buildUser(in)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.NormalizedUserName)
	assert.Equal(t, "alice@example.com", u.Email.Value)
	assert.True(t, password.Verify("hunter22", u.PasswordHash))
	assert.NotEmpty(t, u.SecurityStamp)
	assert.Len(t, u.Logins, 1)

	_, err = c.buildUser(userInput{UserName: "bob", Password: "123"})
	require.Error(t, err)

	_, err = c.buildUser(userInput{})
	assert.True(t, repository.IsInvalidArgument(err))
}

func TestImportUsersSkipsDuplicates(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()

	var in []userInput
	for i := 0; i < 10; i++ {
		in = append(in, userInput{UserName: fmt.Sprintf("user%d", i)})
	}
	in = append(in, userInput{UserName: "USER3"}, userInput{UserName: "user4"}, userInput{UserName: ""})

	sum, err := c.importUsers(ctx, in, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, sum.Created)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 1, sum.Failed)
	assert.Len(t, sum.Errors, 1)

	u, err := c.find(ctx, selector{name: "User7"})
	require.NoError(t, err)
	assert.Equal(t, "user7", u.UserName)
}

func TestRenameRejectsEmptyTargetBeforeWriting(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()
	_, err := c.importUsers(ctx, []userInput{{UserName: "alice"}}, 1)
	require.NoError(t, err)

	u, err := c.find(ctx, selector{name: "alice"})
	require.NoError(t, err)

	for _, to := range []string{"", "   "} {
		err = c.rename(ctx, u, to)
		assert.True(t, repository.IsInvalidArgument(err), "to=%q", to)
	}

	got, err := c.find(ctx, selector{name: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserName)
	assert.Equal(t, "alice", got.NormalizedUserName)
}

func TestRenameRestoresNormalizedNameWhenUserNameWriteFails(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()
	_, err := c.importUsers(ctx, []userInput{{UserName: "alice"}}, 1)
	require.NoError(t, err)
	u, err := c.find(ctx, selector{name: "alice"})
	require.NoError(t, err)

	coll, ok := c.conn.(*mongostore.Connection).Store().Collection().(*docstore.Memory)
	require.True(t, ok)
	updates := 0
	coll.SetFault(func(op string) (docstore.Ack, error) {
		updates++
		if updates == 2 {
			return docstore.Ack{Code: docstore.CodeBadValue, Message: "write not acknowledged"}, nil
		}
		return docstore.Ack{OK: true}, nil
	})

	err = c.rename(ctx, u, "bob")
	assert.True(t, repository.IsStorageConflict(err))
	assert.Equal(t, 3, updates)
	coll.SetFault(nil)

	got, err := c.find(ctx, selector{name: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserName)
	assert.Equal(t, "alice", got.NormalizedUserName)

	_, err = c.find(ctx, selector{name: "bob"})
	assert.True(t, repository.IsNotFound(err))
}

func TestFindRequiresSelector(t *testing.T) {
	c := newTestCLI(t)
	_, err := c.find(context.Background(), selector{})
	assert.True(t, repository.IsInvalidArgument(err))
	assert.Equal(t, 4, exitCode(err))
}

func TestRunTearsDownWhenCommandFails(t *testing.T) {
	logger.Init(logger.Config{Env: "test"})
	metricsFile := filepath.Join(t.TempDir(), "store.prom")
	c := &cli{params: password.Default}

	err := c.run(context.Background(), []string{
		"--driver", "memory",
		"--metrics-file", metricsFile,
		"users", "get", "--name", "nobody",
	})
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Nil(t, c.conn)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "identity_store_op_duration_seconds")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(fmt.Errorf("x: %w", repository.ErrNotFound)))
	assert.Equal(t, 3, exitCode(&repository.StorageError{Kind: repository.ErrUniqueViolation}))
	assert.Equal(t, 5, exitCode(&repository.StorageError{Kind: repository.ErrStorageConflict}))
	assert.Equal(t, 6, exitCode(repository.ErrNotImplemented))
	assert.Equal(t, 1, exitCode(fmt.Errorf("boom")))
}

func TestCapability(t *testing.T) {
	var missing repository.UserEmailStore
	_, err := capability(missing, "emails")
	assert.ErrorIs(t, err, repository.ErrNotImplemented)
}
