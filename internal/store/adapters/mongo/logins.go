package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	"github.com/dropDatabas3/identitystore/internal/store/docstore"
)

// AddLogin agrega el par con un único $push condicional. La unicidad entre
// usuarios la resuelve el índice único sobre loginKeys: de dos AddLogin
// concurrentes con el mismo par, sólo uno pasa.
func (s *UserStore) AddLogin(ctx context.Context, u *repository.User, info repository.LoginInfo) (err error) {
	const op = "add_login"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	login, err := repository.NewLogin(info)
	if err != nil {
		return err
	}
	key := login.Key()

	filter := bson.D{
		{Key: "_id", Value: u.ID},
		{Key: "loginKeys", Value: bson.D{{Key: "$ne", Value: key}}},
	}
	update := bson.D{{Key: "$push", Value: bson.D{
		{Key: "logins", Value: login},
		{Key: "loginKeys", Value: key},
	}}}
	ack, err := s.execute(ctx, op, func(ctx context.Context) (docstore.Ack, error) {
		return s.users.UpdateOne(ctx, filter, update)
	})
	if err != nil {
		return err
	}
	if ack.MatchedCount == 0 {
		return s.loginNotAdded(ctx, op, u)
	}
	if err := begin(ctx); err != nil {
		return err
	}
	u.Logins = append(u.Logins, login)
	u.LoginKeys = append(u.LoginKeys, key)
	return nil
}

// loginNotAdded distingue usuario inexistente de par ya asociado al mismo usuario.
func (s *UserStore) loginNotAdded(ctx context.Context, op string, u *repository.User) error {
	var probe struct {
		ID bson.ObjectID `bson:"_id"`
	}
	err := s.users.FindOne(ctx, byID(u.ID), &probe)
	switch {
	case errors.Is(err, docstore.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	case err != nil && isContextErr(err):
		return cancelled(err)
	case err != nil:
		return &repository.StorageError{Op: op, Kind: repository.ErrStorageConflict, Message: "backend read failed", Cause: err}
	}
	verr := &repository.StorageError{
		Op:      op,
		Kind:    repository.ErrUniqueViolation,
		Code:    docstore.CodeDuplicateKey,
		Message: "login already associated with this user",
	}
	s.onWriteError(ctx, op, verr)
	return verr
}

// RemoveLogin quita el par del usuario; no-op si no lo tiene.
func (s *UserStore) RemoveLogin(ctx context.Context, u *repository.User, provider, key string) (err error) {
	const op = "remove_login"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	update := bson.D{{Key: "$pull", Value: bson.D{
		{Key: "logins", Value: bson.D{
			{Key: "loginProvider", Value: provider},
			{Key: "providerKey", Value: key},
		}},
		{Key: "loginKeys", Value: repository.LoginKey(provider, key)},
	}}}
	if err := s.updateByID(ctx, op, u, update); err != nil {
		return err
	}

	logins := make([]repository.Login, 0, len(u.Logins))
	for _, l := range u.Logins {
		if !l.Matches(provider, key) {
			logins = append(logins, l)
		}
	}
	u.Logins = logins
	u.LoginKeys = repository.LoginKeys(logins)
	return nil
}

func (s *UserStore) GetLogins(ctx context.Context, u *repository.User) ([]repository.LoginInfo, error) {
	if err := begin(ctx); err != nil {
		return nil, err
	}
	if u == nil {
		return nil, repository.InvalidArgument("user")
	}
	out := make([]repository.LoginInfo, 0, len(u.Logins))
	for _, l := range u.Logins {
		out = append(out, l.Info())
	}
	return out, nil
}

func (s *UserStore) FindByLogin(ctx context.Context, provider, key string) (u *repository.User, err error) {
	const op = "find_by_login"
	defer track(op, time.Now(), &err)

	if err := begin(ctx); err != nil {
		return nil, err
	}
	if provider == "" {
		return nil, repository.InvalidArgument("loginProvider")
	}
	if key == "" {
		return nil, repository.InvalidArgument("providerKey")
	}
	filter := bson.D{{Key: "logins", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
		{Key: "loginProvider", Value: provider},
		{Key: "providerKey", Value: key},
	}}}}}
	return s.findOne(ctx, op, filter)
}
