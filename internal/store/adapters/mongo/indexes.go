package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	"github.com/dropDatabas3/identitystore/internal/observability/logger"
	"github.com/dropDatabas3/identitystore/internal/store/docstore"
)

// Nombres de los índices de la colección de usuarios.
const (
	IndexNormalizedUserName = "ux_users_normalized_user_name"
	IndexEmail              = "ux_users_email_value"
	IndexLogins             = "ix_users_logins"
	IndexLoginKeys          = "ux_users_login_keys"
)

// UserIndexes retorna los índices que requiere el store.
//
// El índice compuesto sobre logins sólo acelera FindByLogin: un índice
// multikey compuesto no garantiza unicidad del par entre documentos. La
// unicidad la impone ux_users_login_keys, un índice único sobre la clave
// derivada de cada par.
func UserIndexes() []docstore.Index {
	return []docstore.Index{
		{Name: IndexNormalizedUserName, Keys: []string{"normalizedUserName"}, Unique: true},
		{Name: IndexEmail, Keys: []string{"email.value"}, Unique: true},
		{Name: IndexLogins, Keys: []string{"logins.loginProvider", "logins.providerKey"}},
		{Name: IndexLoginKeys, Keys: []string{"loginKeys"}, Unique: true},
	}
}

// EnsureSchema completa loginKeys en documentos que no lo tienen y crea los
// índices que falten. Es idempotente; si el backend rechaza un índice (p. ej.
// datos existentes duplicados) el store no debe usarse.
func (s *UserStore) EnsureSchema(ctx context.Context) error {
	if err := begin(ctx); err != nil {
		return err
	}
	log := logger.FromWithFields(ctx, logger.Component("user_store"), logger.Collection(s.users.Name()))

	n, err := s.backfillLoginKeys(ctx)
	if err != nil {
		if isContextErr(err) {
			return cancelled(err)
		}
		log.Error("login keys backfill failed", logger.Count(n), logger.Err(err))
		return fmt.Errorf("mongo: backfill loginKeys on %q: %w", s.users.Name(), err)
	}
	if n > 0 {
		log.Info("login keys backfilled", logger.Count(n))
	}

	indexes := UserIndexes()
	if err := s.users.EnsureIndexes(ctx, indexes); err != nil {
		if isContextErr(err) {
			return cancelled(err)
		}
		log.Error("ensure indexes failed", logger.Err(err))
		return fmt.Errorf("mongo: ensure indexes on %q: %w", s.users.Name(), err)
	}
	for _, ix := range indexes {
		log.Debug("index ensured", logger.Index(ix.Name))
	}
	return nil
}

// backfillLoginKeys deriva loginKeys de logins en los documentos escritos sin
// el campo (datos previos o de otro cliente), uno por vez. Corre antes de
// crear ux_users_login_keys para que pares duplicados hagan fallar el índice.
func (s *UserStore) backfillLoginKeys(ctx context.Context) (int, error) {
	missing := bson.E{Key: "loginKeys", Value: bson.D{{Key: "$exists", Value: false}}}
	n := 0
	for {
		var doc struct {
			ID     bson.ObjectID      `bson:"_id"`
			Logins []repository.Login `bson:"logins"`
		}
		err := s.users.FindOne(ctx, bson.D{missing}, &doc)
		if errors.Is(err, docstore.ErrNoDocuments) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		ack, err := s.users.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: doc.ID}, missing},
			fieldUpdate("loginKeys", repository.LoginKeys(doc.Logins)))
		if err != nil {
			return n, err
		}
		if !ack.OK {
			return n, &docstore.CommandError{Code: ack.Code, Message: ack.Message}
		}
		n += int(ack.ModifiedCount)
	}
}
