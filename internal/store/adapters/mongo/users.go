package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	"github.com/dropDatabas3/identitystore/internal/store/docstore"
)

func (s *UserStore) GetUserID(ctx context.Context, u *repository.User) (string, error) {
	if err := begin(ctx); err != nil {
		return "", err
	}
	if u == nil {
		return "", repository.InvalidArgument("user")
	}
	return u.IDHex(), nil
}

func (s *UserStore) GetUserName(ctx context.Context, u *repository.User) (string, error) {
	if err := begin(ctx); err != nil {
		return "", err
	}
	if u == nil {
		return "", repository.InvalidArgument("user")
	}
	return u.UserName, nil
}

func (s *UserStore) SetUserName(ctx context.Context, u *repository.User, name string) (err error) {
	const op = "set_user_name"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	if name == "" {
		return repository.InvalidArgument("userName")
	}
	if err := s.updateByID(ctx, op, u, fieldUpdate("userName", name)); err != nil {
		return err
	}
	u.UserName = name
	return nil
}

func (s *UserStore) GetNormalizedUserName(ctx context.Context, u *repository.User) (string, error) {
	if err := begin(ctx); err != nil {
		return "", err
	}
	if u == nil {
		return "", repository.InvalidArgument("user")
	}
	return u.NormalizedUserName, nil
}

func (s *UserStore) SetNormalizedUserName(ctx context.Context, u *repository.User, name string) (err error) {
	const op = "set_normalized_user_name"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	if err := s.updateByID(ctx, op, u, fieldUpdate("normalizedUserName", optional(name))); err != nil {
		return err
	}
	u.NormalizedUserName = name
	return nil
}

// prepare valida y arma la copia que se persiste: colecciones no nulas (para
// que $push funcione) y LoginKeys derivado de Logins.
func prepare(u *repository.User) (repository.User, error) {
	if u.AccessFailedCount < 0 {
		return repository.User{}, repository.InvalidArgument("accessFailedCount")
	}
	doc := *u
	if doc.Claims == nil {
		doc.Claims = []repository.Claim{}
	}
	if doc.Logins == nil {
		doc.Logins = []repository.Login{}
	}
	doc.LoginKeys = repository.LoginKeys(doc.Logins)
	return doc, nil
}

func (s *UserStore) Create(ctx context.Context, u *repository.User) (err error) {
	const op = "create"
	defer track(op, time.Now(), &err)

	if err := begin(ctx); err != nil {
		return err
	}
	if u == nil {
		return repository.InvalidArgument("user")
	}

	doc, err := prepare(u)
	if err != nil {
		return err
	}
	ack, err := s.execute(ctx, op, func(ctx context.Context) (docstore.Ack, error) {
		return s.users.InsertOne(ctx, &doc)
	})
	if err != nil {
		return err
	}
	if err := begin(ctx); err != nil {
		return err
	}
	if id, ok := ack.InsertedID.(bson.ObjectID); ok {
		doc.ID = id
	}
	*u = doc
	return nil
}

// Update reemplaza el documento completo (last-writer-wins). Si el usuario
// aún no tiene ID se le asigna uno y se inserta.
func (s *UserStore) Update(ctx context.Context, u *repository.User) (err error) {
	const op = "update"
	defer track(op, time.Now(), &err)

	if err := begin(ctx); err != nil {
		return err
	}
	if u == nil {
		return repository.InvalidArgument("user")
	}

	doc, err := prepare(u)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		doc.ID = bson.NewObjectID()
	}
	if _, err := s.execute(ctx, op, func(ctx context.Context) (docstore.Ack, error) {
		return s.users.ReplaceOne(ctx, byID(doc.ID), &doc, true)
	}); err != nil {
		return err
	}
	if err := begin(ctx); err != nil {
		return err
	}
	*u = doc
	return nil
}

// Delete elimina el documento; un usuario sin ID o ya borrado es no-op.
func (s *UserStore) Delete(ctx context.Context, u *repository.User) (err error) {
	const op = "delete"
	defer track(op, time.Now(), &err)

	if err := begin(ctx); err != nil {
		return err
	}
	if u == nil {
		return repository.InvalidArgument("user")
	}
	if u.ID.IsZero() {
		return nil
	}
	_, err = s.execute(ctx, op, func(ctx context.Context) (docstore.Ack, error) {
		return s.users.DeleteOne(ctx, byID(u.ID))
	})
	return err
}

// FindByID busca por ID hex. Un ID mal formado no puede existir: ErrNotFound.
func (s *UserStore) FindByID(ctx context.Context, id string) (u *repository.User, err error) {
	const op = "find_by_id"
	defer track(op, time.Now(), &err)

	if err := begin(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, repository.InvalidArgument("id")
	}
	oid, perr := bson.ObjectIDFromHex(id)
	if perr != nil {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return s.findOne(ctx, op, byID(oid))
}

func (s *UserStore) FindByName(ctx context.Context, normalizedUserName string) (u *repository.User, err error) {
	const op = "find_by_name"
	defer track(op, time.Now(), &err)

	if err := begin(ctx); err != nil {
		return nil, err
	}
	if normalizedUserName == "" {
		return nil, repository.InvalidArgument("normalizedUserName")
	}
	return s.findOne(ctx, op, bson.D{{Key: "normalizedUserName", Value: normalizedUserName}})
}
