package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	"github.com/dropDatabas3/identitystore/internal/store/docstore"
)

// Estos tests corren contra un MongoDB real. Cada test usa una base propia
// que se borra al terminar.
//
//	MONGO_TEST_URI=mongodb://localhost:27017 go test ./internal/store/adapters/mongo/ -run Backend

func newBackendCollection(t *testing.T) *mongodriver.Collection {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("requires MONGO_TEST_URI")
	}
	if testing.Short() {
		t.Skip("skipping MongoDB backend test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongodriver.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, readpref.Primary()))

	db := client.Database("identitystore_test_" + bson.NewObjectID().Hex())
	t.Cleanup(func() {
		ctx := context.Background()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db.Collection("users")
}

func newBackendStore(t *testing.T) *UserStore {
	t.Helper()
	s, err := Open(context.Background(), docstore.NewMongo(newBackendCollection(t)), Options{})
	require.NoError(t, err)
	return s
}

func requireDuplicateKey(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, repository.IsUniqueViolation(err), "got %v", err)
	var se *repository.StorageError
	require.True(t, errors.As(err, &se))
	assert.True(t, docstore.IsDuplicateKeyCode(se.Code), "code %d", se.Code)
}

func TestBackendCreateUniqueViolations(t *testing.T) {
	s := newBackendStore(t)
	ctx := context.Background()
	mustCreate(t, s, "alice")

	dup := newUser(t, "Alice")
	dup.NormalizedUserName = "ALICE"
	requireDuplicateKey(t, s.Create(ctx, dup))
	assert.True(t, dup.ID.IsZero())

	a, err := repository.NewUserWithEmail("a", "same@example.com")
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, a))
	b, err := repository.NewUserWithEmail("b", "same@example.com")
	require.NoError(t, err)
	requireDuplicateKey(t, s.Create(ctx, b))

	// sin nombre normalizado ni email no hay colisión (índices parciales)
	for i := 0; i < 3; i++ {
		u, err := repository.NewUser(fmt.Sprintf("anon-%d", i))
		require.NoError(t, err)
		require.NoError(t, s.Create(ctx, u))
	}
}

func TestBackendSetNormalizedUserNameCollision(t *testing.T) {
	s := newBackendStore(t)
	ctx := context.Background()
	mustCreate(t, s, "alice")
	b := mustCreate(t, s, "bob")

	requireDuplicateKey(t, s.SetNormalizedUserName(ctx, b, "ALICE"))
	assert.Equal(t, "BOB", b.NormalizedUserName)

	stored, err := s.FindByID(ctx, b.IDHex())
	require.NoError(t, err)
	assert.Equal(t, "BOB", stored.NormalizedUserName)

	require.NoError(t, s.SetNormalizedUserName(ctx, b, ""))
	_, err = s.FindByName(ctx, "BOB")
	assert.True(t, repository.IsNotFound(err))
}

func TestBackendAddLoginCollision(t *testing.T) {
	s := newBackendStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")
	info := repository.LoginInfo{LoginProvider: "github", ProviderKey: "42"}

	require.NoError(t, s.AddLogin(ctx, a, info))
	requireDuplicateKey(t, s.AddLogin(ctx, b, info))
	requireDuplicateKey(t, s.AddLogin(ctx, a, info))

	c := newUser(t, "c")
	c.Logins = []repository.Login{{LoginProvider: "github", ProviderKey: "42"}}
	requireDuplicateKey(t, s.Create(ctx, c))

	found, err := s.FindByLogin(ctx, "github", "42")
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)
	assert.Len(t, found.Logins, 1)

	require.NoError(t, s.RemoveLogin(ctx, a, "github", "42"))
	require.NoError(t, s.AddLogin(ctx, b, info))
}

func TestBackendConcurrentSameNameCreates(t *testing.T) {
	s := newBackendStore(t)
	ctx := context.Background()
	const n = 16

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		u := newUser(t, "race")
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Create(ctx, u)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, repository.IsUniqueViolation(err), "got %v", err)
	}
	assert.Equal(t, 1, ok)
}

func TestBackendConcurrentAddSameLogin(t *testing.T) {
	s := newBackendStore(t)
	ctx := context.Background()
	const n = 8

	users := make([]*repository.User, n)
	for i := range users {
		users[i] = mustCreate(t, s, fmt.Sprintf("u%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.AddLogin(ctx, users[i], repository.LoginInfo{LoginProvider: "github", ProviderKey: "shared"})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.True(t, repository.IsUniqueViolation(err), "got %v", err)
	}
	assert.Equal(t, 1, winners)
}

func TestBackendEnsureSchemaBackfillsAndFailsOnDuplicates(t *testing.T) {
	coll := newBackendCollection(t)
	ctx := context.Background()

	_, err := coll.InsertOne(ctx, legacyUser("legacy", legacyLogin("github", "1")))
	require.NoError(t, err)

	s, err := Open(ctx, docstore.NewMongo(coll), Options{})
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))

	legacy, err := s.FindByName(ctx, "LEGACY")
	require.NoError(t, err)
	assert.Equal(t, []string{repository.LoginKey("github", "1")}, legacy.LoginKeys)

	other := mustCreate(t, s, "other")
	requireDuplicateKey(t, s.AddLogin(ctx, other, repository.LoginInfo{LoginProvider: "github", ProviderKey: "1"}))

	// datos duplicados previos impiden crear los índices
	dupColl := coll.Database().Collection("users_dup")
	_, err = dupColl.InsertOne(ctx, legacyUser("a", legacyLogin("google", "g-1")))
	require.NoError(t, err)
	_, err = dupColl.InsertOne(ctx, legacyUser("b", legacyLogin("google", "g-1")))
	require.NoError(t, err)

	_, err = Open(ctx, docstore.NewMongo(dupColl), Options{})
	require.Error(t, err)
	var ce *docstore.CommandError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, docstore.CodeDuplicateKey, ce.Code)
}
