package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	"github.com/dropDatabas3/identitystore/internal/store/docstore"
)

// El store guarda passwordHash y securityStamp tal cual: no interpreta su formato.

func (s *UserStore) GetPasswordHash(ctx context.Context, u *repository.User) (string, error) {
	if err := begin(ctx); err != nil {
		return "", err
	}
	if u == nil {
		return "", repository.InvalidArgument("user")
	}
	return u.PasswordHash, nil
}

func (s *UserStore) SetPasswordHash(ctx context.Context, u *repository.User, hash string) (err error) {
	const op = "set_password_hash"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	if err := s.updateByID(ctx, op, u, fieldUpdate("passwordHash", optional(hash))); err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (s *UserStore) HasPassword(ctx context.Context, u *repository.User) (bool, error) {
	hash, err := s.GetPasswordHash(ctx, u)
	return hash != "", err
}

func (s *UserStore) GetSecurityStamp(ctx context.Context, u *repository.User) (string, error) {
	if err := begin(ctx); err != nil {
		return "", err
	}
	if u == nil {
		return "", repository.InvalidArgument("user")
	}
	return u.SecurityStamp, nil
}

func (s *UserStore) SetSecurityStamp(ctx context.Context, u *repository.User, stamp string) (err error) {
	const op = "set_security_stamp"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	if err := s.updateByID(ctx, op, u, fieldUpdate("securityStamp", optional(stamp))); err != nil {
		return err
	}
	u.SecurityStamp = stamp
	return nil
}

func (s *UserStore) SetPhoneNumber(ctx context.Context, u *repository.User, phone string) (err error) {
	const op = "set_phone_number"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	if phone == "" {
		if err := s.updateByID(ctx, op, u, fieldUpdate("phoneNumber", nil)); err != nil {
			return err
		}
		u.PhoneNumber = nil
		return nil
	}
	p, err := repository.NewPhoneNumber(phone)
	if err != nil {
		return err
	}
	if err := s.updateByID(ctx, op, u, fieldUpdate("phoneNumber", p)); err != nil {
		return err
	}
	u.PhoneNumber = p
	return nil
}

func (s *UserStore) SetPhoneNumberConfirmed(ctx context.Context, u *repository.User, confirmed bool) (err error) {
	const op = "set_phone_number_confirmed"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	if u.PhoneNumber == nil {
		return repository.InvalidArgument("phoneNumber")
	}
	var conf *repository.ConfirmationRecord
	update := fieldUpdate("phoneNumber.confirmation", nil)
	if confirmed {
		conf = repository.NewConfirmationAt(time.Now().Truncate(time.Millisecond))
		update = fieldUpdate("phoneNumber.confirmation", conf)
	}
	if err := s.updateByID(ctx, op, u, update); err != nil {
		return err
	}
	u.PhoneNumber.Confirmation = conf
	return nil
}

func (s *UserStore) SetTwoFactorEnabled(ctx context.Context, u *repository.User, enabled bool) (err error) {
	const op = "set_two_factor_enabled"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	if err := s.updateByID(ctx, op, u, fieldUpdate("isTwoFactorEnabled", enabled)); err != nil {
		return err
	}
	u.IsTwoFactorEnabled = enabled
	return nil
}

func (s *UserStore) SetLockoutEnabled(ctx context.Context, u *repository.User, enabled bool) (err error) {
	const op = "set_lockout_enabled"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	if err := s.updateByID(ctx, op, u, fieldUpdate("isLockoutEnabled", enabled)); err != nil {
		return err
	}
	u.IsLockoutEnabled = enabled
	return nil
}

// SetLockoutEndDate guarda el instante en UTC con precisión de milisegundos
// (la de un datetime BSON); nil lo elimina.
func (s *UserStore) SetLockoutEndDate(ctx context.Context, u *repository.User, end *time.Time) (err error) {
	const op = "set_lockout_end_date"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	var value any
	var stored *time.Time
	if end != nil {
		t := end.UTC().Truncate(time.Millisecond)
		value, stored = t, &t
	}
	if err := s.updateByID(ctx, op, u, fieldUpdate("lockoutEndDate", value)); err != nil {
		return err
	}
	u.LockoutEndDate = stored
	return nil
}

// IncrementAccessFailedCount usa $inc para no perder incrementos concurrentes.
func (s *UserStore) IncrementAccessFailedCount(ctx context.Context, u *repository.User) (n int, err error) {
	const op = "increment_access_failed_count"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return 0, err
	}
	var after struct {
		AccessFailedCount int `bson:"accessFailedCount"`
	}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "accessFailedCount", Value: 1}}}}
	ack, err := s.execute(ctx, op, func(ctx context.Context) (docstore.Ack, error) {
		return s.users.FindOneAndUpdate(ctx, byID(u.ID), update, &after)
	})
	if err != nil {
		return 0, err
	}
	if ack.MatchedCount == 0 {
		return 0, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	if err := begin(ctx); err != nil {
		return 0, err
	}
	u.AccessFailedCount = after.AccessFailedCount
	return after.AccessFailedCount, nil
}

func (s *UserStore) ResetAccessFailedCount(ctx context.Context, u *repository.User) (err error) {
	const op = "reset_access_failed_count"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	if err := s.updateByID(ctx, op, u, fieldUpdate("accessFailedCount", 0)); err != nil {
		return err
	}
	u.AccessFailedCount = 0
	return nil
}
