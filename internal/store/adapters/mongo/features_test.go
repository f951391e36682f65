package mongo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
)

// ─── Logins ───

func TestAddLoginAndFind(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustCreate(t, s, "alice")

	require.NoError(t, s.AddLogin(ctx, u, repository.LoginInfo{LoginProvider: "github", ProviderKey: "1", DisplayName: "GitHub"}))
	require.NoError(t, s.AddLogin(ctx, u, repository.LoginInfo{LoginProvider: "google", ProviderKey: "1"}))

	logins, err := s.GetLogins(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []repository.LoginInfo{
		{LoginProvider: "github", ProviderKey: "1", DisplayName: "GitHub"},
		{LoginProvider: "google", ProviderKey: "1"},
	}, logins)

	got, err := s.FindByLogin(ctx, "google", "1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Len(t, got.Logins, 2)

	// provider y key no se mezclan entre logins distintos
	_, err = s.FindByLogin(ctx, "github", "2")
	assert.True(t, repository.IsNotFound(err))
}

func TestAddLoginCollisionLeavesOwnerUnchanged(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")
	info := repository.LoginInfo{LoginProvider: "github", ProviderKey: "42"}

	require.NoError(t, s.AddLogin(ctx, a, info))
	err := s.AddLogin(ctx, b, info)
	require.Error(t, err)
	assert.True(t, repository.IsUniqueViolation(err))
	assert.Empty(t, b.Logins)

	owner, err := s.FindByLogin(ctx, "github", "42")
	require.NoError(t, err)
	assert.Equal(t, a.ID, owner.ID)

	storedB, err := s.FindByID(ctx, b.IDHex())
	require.NoError(t, err)
	assert.Empty(t, storedB.Logins)

	storedA, err := s.FindByID(ctx, a.IDHex())
	require.NoError(t, err)
	assert.Len(t, storedA.Logins, 1)
}

func TestAddLoginTwiceOnSameUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustCreate(t, s, "alice")
	info := repository.LoginInfo{LoginProvider: "github", ProviderKey: "42"}

	require.NoError(t, s.AddLogin(ctx, u, info))
	err := s.AddLogin(ctx, u, info)
	assert.True(t, repository.IsUniqueViolation(err))
	assert.Len(t, u.Logins, 1)
}

func TestAddLoginAmbiguousPairsAreDistinct(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")

	require.NoError(t, s.AddLogin(ctx, a, repository.LoginInfo{LoginProvider: "a:b", ProviderKey: "c"}))
	require.NoError(t, s.AddLogin(ctx, b, repository.LoginInfo{LoginProvider: "a", ProviderKey: "b:c"}))
}

func TestAddLoginValidation(t *testing.T) {
	s, coll := newTestStore(t)
	ctx := context.Background()
	u := mustCreate(t, s, "alice")
	calls := coll.Calls()

	assert.True(t, repository.IsInvalidArgument(s.AddLogin(ctx, u, repository.LoginInfo{ProviderKey: "k"})))
	assert.True(t, repository.IsInvalidArgument(s.AddLogin(ctx, u, repository.LoginInfo{LoginProvider: "p"})))
	assert.True(t, repository.IsInvalidArgument(s.AddLogin(ctx, nil, repository.LoginInfo{LoginProvider: "p", ProviderKey: "k"})))
	assert.Equal(t, calls, coll.Calls())
}

func TestAddLoginOnDeletedUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustCreate(t, s, "alice")
	require.NoError(t, s.Delete(ctx, u))

	err := s.AddLogin(ctx, u, repository.LoginInfo{LoginProvider: "p", ProviderKey: "k"})
	assert.True(t, repository.IsNotFound(err))
}

func TestRemoveLoginReleasesPair(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")
	info := repository.LoginInfo{LoginProvider: "github", ProviderKey: "42"}

	require.NoError(t, s.AddLogin(ctx, a, info))
	require.NoError(t, s.RemoveLogin(ctx, a, "github", "42"))
	assert.Empty(t, a.Logins)
	assert.Empty(t, a.LoginKeys)

	_, err := s.FindByLogin(ctx, "github", "42")
	assert.True(t, repository.IsNotFound(err))

	require.NoError(t, s.AddLogin(ctx, b, info))

	// quitar un par inexistente es no-op
	require.NoError(t, s.RemoveLogin(ctx, a, "github", "42"))
}

func TestFindByLoginValidation(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.FindByLogin(context.Background(), "", "k")
	assert.True(t, repository.IsInvalidArgument(err))
	_, err = s.FindByLogin(context.Background(), "p", "")
	assert.True(t, repository.IsInvalidArgument(err))
}

// ─── Email ───

func TestEmailLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustCreate(t, s, "alice")

	email, err := s.GetEmail(ctx, u)
	require.NoError(t, err)
	assert.Empty(t, email)

	require.NoError(t, s.SetEmail(ctx, u, "alice@example.com"))
	confirmed, err := s.IsEmailConfirmed(ctx, u)
	require.NoError(t, err)
	assert.False(t, confirmed)

	require.NoError(t, s.SetEmailConfirmed(ctx, u, true))
	confirmed, _ = s.IsEmailConfirmed(ctx, u)
	assert.True(t, confirmed)

	got, err := s.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got.Email)
	require.NotNil(t, got.Email.Confirmation)
	assert.True(t, got.Email.Confirmation.ConfirmedOn.Equal(u.Email.Confirmation.ConfirmedOn))

	// un email nuevo arranca sin confirmar
	require.NoError(t, s.SetEmail(ctx, u, "alice@new.example.com"))
	confirmed, _ = s.IsEmailConfirmed(ctx, u)
	assert.False(t, confirmed)
	got, err = s.FindByID(ctx, u.IDHex())
	require.NoError(t, err)
	assert.Nil(t, got.Email.Confirmation)

	require.NoError(t, s.SetEmail(ctx, u, ""))
	assert.Nil(t, u.Email)
	_, err = s.FindByEmail(ctx, "alice@new.example.com")
	assert.True(t, repository.IsNotFound(err))
}

func TestSetEmailCollision(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")

	require.NoError(t, s.SetEmail(ctx, a, "shared@example.com"))
	err := s.SetEmail(ctx, b, "shared@example.com")
	assert.True(t, repository.IsUniqueViolation(err))
	assert.Nil(t, b.Email)
}

func TestSetEmailConfirmedWithoutEmail(t *testing.T) {
	s, _ := newTestStore(t)
	u := mustCreate(t, s, "alice")
	assert.True(t, repository.IsInvalidArgument(s.SetEmailConfirmed(context.Background(), u, true)))
}

// ─── Claims ───

func TestClaims(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustCreate(t, s, "alice")

	admin := repository.Claim{Type: "role", Value: "admin"}
	dev := repository.Claim{Type: "role", Value: "dev"}
	require.NoError(t, s.AddClaims(ctx, u, admin, dev))
	require.NoError(t, s.AddClaims(ctx, u))

	claims, err := s.GetClaims(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []repository.Claim{admin, dev}, claims)

	require.NoError(t, s.RemoveClaim(ctx, u, admin))
	got, err := s.FindByID(ctx, u.IDHex())
	require.NoError(t, err)
	assert.Equal(t, []repository.Claim{dev}, got.Claims)
	assert.Equal(t, []repository.Claim{dev}, u.Claims)

	assert.True(t, repository.IsInvalidArgument(s.AddClaims(ctx, u, repository.Claim{Value: "x"})))
}

// ─── Seguridad ───

func TestPasswordAndStamp(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustCreate(t, s, "alice")

	has, err := s.HasPassword(ctx, u)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.SetPasswordHash(ctx, u, "$argon2id$v=19$m=1,t=1,p=1$c2FsdA$a2V5"))
	require.NoError(t, s.SetSecurityStamp(ctx, u, "stamp-1"))

	got, err := s.FindByID(ctx, u.IDHex())
	require.NoError(t, err)
	has, _ = s.HasPassword(ctx, got)
	assert.True(t, has)
	stamp, _ := s.GetSecurityStamp(ctx, got)
	assert.Equal(t, "stamp-1", stamp)

	require.NoError(t, s.SetPasswordHash(ctx, u, ""))
	got, err = s.FindByID(ctx, u.IDHex())
	require.NoError(t, err)
	assert.Empty(t, got.PasswordHash)
}

func TestPhoneNumber(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustCreate(t, s, "alice")

	assert.True(t, repository.IsInvalidArgument(s.SetPhoneNumberConfirmed(ctx, u, true)))

	require.NoError(t, s.SetPhoneNumber(ctx, u, "+5491100000000"))
	require.NoError(t, s.SetPhoneNumberConfirmed(ctx, u, true))

	got, err := s.FindByID(ctx, u.IDHex())
	require.NoError(t, err)
	require.NotNil(t, got.PhoneNumber)
	assert.Equal(t, "+5491100000000", got.PhoneNumber.Value)
	assert.True(t, got.PhoneNumber.IsConfirmed())

	// el teléfono no es único
	b := mustCreate(t, s, "bob")
	require.NoError(t, s.SetPhoneNumber(ctx, b, "+5491100000000"))

	require.NoError(t, s.SetPhoneNumber(ctx, u, ""))
	assert.Nil(t, u.PhoneNumber)
}

func TestLockout(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustCreate(t, s, "alice")

	require.NoError(t, s.SetLockoutEnabled(ctx, u, true))
	require.NoError(t, s.SetTwoFactorEnabled(ctx, u, true))

	end := time.Date(2030, 1, 2, 3, 4, 5, 678901234, time.FixedZone("ART", -3*3600))
	require.NoError(t, s.SetLockoutEndDate(ctx, u, &end))
	require.NotNil(t, u.LockoutEndDate)
	assert.Equal(t, time.UTC, u.LockoutEndDate.Location())
	assert.True(t, u.LockoutEndDate.Equal(end.Truncate(time.Millisecond)))

	got, err := s.FindByID(ctx, u.IDHex())
	require.NoError(t, err)
	assert.True(t, got.IsLockoutEnabled)
	assert.True(t, got.IsTwoFactorEnabled)
	require.NotNil(t, got.LockoutEndDate)
	assert.True(t, got.LockoutEndDate.Equal(*u.LockoutEndDate))

	require.NoError(t, s.SetLockoutEndDate(ctx, u, nil))
	got, err = s.FindByID(ctx, u.IDHex())
	require.NoError(t, err)
	assert.Nil(t, got.LockoutEndDate)
}

func TestAccessFailedCountIsAtomic(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustCreate(t, s, "alice")
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		// cada goroutine usa su propia copia del usuario
		cp := *u
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementAccessFailedCount(ctx, &cp)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.FindByID(ctx, u.IDHex())
	require.NoError(t, err)
	assert.Equal(t, n, got.AccessFailedCount)

	c, err := s.IncrementAccessFailedCount(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, n+1, c)
	assert.Equal(t, n+1, got.AccessFailedCount)

	require.NoError(t, s.ResetAccessFailedCount(ctx, got))
	got, err = s.FindByID(ctx, u.IDHex())
	require.NoError(t, err)
	assert.Zero(t, got.AccessFailedCount)
}

func TestIncrementAccessFailedCountOnDeletedUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustCreate(t, s, "alice")
	require.NoError(t, s.Delete(ctx, u))

	_, err := s.IncrementAccessFailedCount(ctx, u)
	assert.True(t, repository.IsNotFound(err))
}
