package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
)

func (s *UserStore) GetEmail(ctx context.Context, u *repository.User) (string, error) {
	if err := begin(ctx); err != nil {
		return "", err
	}
	if u == nil {
		return "", repository.InvalidArgument("user")
	}
	if u.Email == nil {
		return "", nil
	}
	return u.Email.Value, nil
}

// SetEmail reemplaza el email completo: un email nuevo nunca hereda la
// confirmación del anterior.
func (s *UserStore) SetEmail(ctx context.Context, u *repository.User, email string) (err error) {
	const op = "set_email"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	if email == "" {
		if err := s.updateByID(ctx, op, u, fieldUpdate("email", nil)); err != nil {
			return err
		}
		u.Email = nil
		return nil
	}

	e, err := repository.NewEmail(email)
	if err != nil {
		return err
	}
	if err := s.updateByID(ctx, op, u, fieldUpdate("email", e)); err != nil {
		return err
	}
	u.Email = e
	return nil
}

func (s *UserStore) IsEmailConfirmed(ctx context.Context, u *repository.User) (bool, error) {
	if err := begin(ctx); err != nil {
		return false, err
	}
	if u == nil {
		return false, repository.InvalidArgument("user")
	}
	return u.Email != nil && u.Email.IsConfirmed(), nil
}

func (s *UserStore) SetEmailConfirmed(ctx context.Context, u *repository.User, confirmed bool) (err error) {
	const op = "set_email_confirmed"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	if u.Email == nil {
		return repository.InvalidArgument("email")
	}

	var conf *repository.ConfirmationRecord
	update := fieldUpdate("email.confirmation", nil)
	if confirmed {
		conf = repository.NewConfirmationAt(time.Now().Truncate(time.Millisecond))
		update = fieldUpdate("email.confirmation", conf)
	}
	if err := s.updateByID(ctx, op, u, update); err != nil {
		return err
	}
	u.Email.Confirmation = conf
	return nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (u *repository.User, err error) {
	const op = "find_by_email"
	defer track(op, time.Now(), &err)

	if err := begin(ctx); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, repository.InvalidArgument("email")
	}
	return s.findOne(ctx, op, bson.D{{Key: "email.value", Value: email}})
}
