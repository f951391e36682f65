// Package mongo implementa el user store de identidad sobre una colección
// documental (driver de MongoDB o colección en memoria).
//
// El store no toma locks ni guarda estado mutable propio: la exclusión mutua
// se delega en la atomicidad por documento y en los índices únicos del backend.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	"github.com/dropDatabas3/identitystore/internal/metrics"
	"github.com/dropDatabas3/identitystore/internal/observability/logger"
	"github.com/dropDatabas3/identitystore/internal/store/docstore"
)

// Options configura el store.
type Options struct {
	// OnWriteError observa cada escritura fallida antes de propagarla al caller.
	// Default: log vía logger.From(ctx).
	OnWriteError func(ctx context.Context, op string, err error)
}

// UserStore implementa las capacidades de repository sobre una Collection.
type UserStore struct {
	users        docstore.Collection
	onWriteError func(ctx context.Context, op string, err error)
}

var (
	_ repository.UserStore         = (*UserStore)(nil)
	_ repository.UserLoginStore    = (*UserStore)(nil)
	_ repository.UserEmailStore    = (*UserStore)(nil)
	_ repository.UserClaimStore    = (*UserStore)(nil)
	_ repository.UserSecurityStore = (*UserStore)(nil)
)

// New liga el store a una colección sin tocar el backend.
// Llamar EnsureSchema antes de usarlo (o usar Open).
func New(users docstore.Collection, opts Options) (*UserStore, error) {
	if users == nil {
		return nil, repository.InvalidArgument("collection")
	}
	s := &UserStore{users: users, onWriteError: opts.OnWriteError}
	if s.onWriteError == nil {
		s.onWriteError = logWriteError
	}
	return s, nil
}

// Open crea el store y asegura los índices; falla si no se pueden crear.
func Open(ctx context.Context, users docstore.Collection, opts Options) (*UserStore, error) {
	s, err := New(users, opts)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Collection retorna la colección subyacente.
func (s *UserStore) Collection() docstore.Collection { return s.users }

// ─── Helpers ───

func byID(id bson.ObjectID) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", repository.ErrCancelled, err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// begin corta la operación si el caller ya canceló.
func begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	return nil
}

// check valida contexto y que el usuario esté persistido.
func check(ctx context.Context, u *repository.User) error {
	if err := begin(ctx); err != nil {
		return err
	}
	if u == nil {
		return repository.InvalidArgument("user")
	}
	if u.ID.IsZero() {
		return repository.InvalidArgument("user.id")
	}
	return nil
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// fieldUpdate arma un $set, o $unset si value es nil.
func fieldUpdate(field string, value any) bson.D {
	if value == nil {
		return bson.D{{Key: "$unset", Value: bson.D{{Key: field, Value: ""}}}}
	}
	return bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: value}}}}
}

// execute es el único camino de escritura: traduce el acuse del backend a la
// taxonomía de errores, notifica el hook y nunca traga el error.
func (s *UserStore) execute(ctx context.Context, op string, write func(context.Context) (docstore.Ack, error)) (docstore.Ack, error) {
	ack, err := write(ctx)
	switch {
	case err != nil && isContextErr(err):
		err = cancelled(err)
	case err != nil:
		err = &repository.StorageError{
			Op:      op,
			Kind:    repository.ErrStorageConflict,
			Message: "backend write failed",
			Cause:   err,
		}
	case !ack.OK:
		kind := repository.ErrStorageConflict
		if docstore.IsDuplicateKeyCode(ack.Code) {
			kind = repository.ErrUniqueViolation
		}
		err = &repository.StorageError{Op: op, Kind: kind, Code: ack.Code, Message: ack.Message}
	}
	if err != nil {
		s.onWriteError(ctx, op, err)
		return ack, err
	}
	return ack, nil
}

// updateByID aplica una actualización puntual y re-chequea cancelación antes
// de que el caller toque la copia en memoria.
func (s *UserStore) updateByID(ctx context.Context, op string, u *repository.User, update bson.D) error {
	ack, err := s.execute(ctx, op, func(ctx context.Context) (docstore.Ack, error) {
		return s.users.UpdateOne(ctx, byID(u.ID), update)
	})
	if err != nil {
		return err
	}
	if ack.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return begin(ctx)
}

func (s *UserStore) findOne(ctx context.Context, op string, filter bson.D) (*repository.User, error) {
	var u repository.User
	err := s.users.FindOne(ctx, filter, &u)
	switch {
	case err == nil:
		return &u, nil
	case errors.Is(err, docstore.ErrNoDocuments):
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	case isContextErr(err):
		return nil, cancelled(err)
	default:
		return nil, &repository.StorageError{
			Op:      op,
			Kind:    repository.ErrStorageConflict,
			Message: "backend read failed",
			Cause:   err,
		}
	}
}

// track registra la métrica de la operación según el error final.
func track(op string, started time.Time, errp *error) {
	metrics.ObserveOp(op, resultOf(*errp), started)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case repository.IsCancelled(err):
		return metrics.ResultCancelled
	case repository.IsInvalidArgument(err):
		return metrics.ResultInvalid
	case repository.IsUniqueViolation(err):
		return metrics.ResultUnique
	case repository.IsStorageConflict(err):
		return metrics.ResultConflict
	case repository.IsNotFound(err):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}

func logWriteError(ctx context.Context, op string, err error) {
	fields := []zap.Field{logger.Component("user_store"), logger.Op(op), logger.Err(err)}
	var se *repository.StorageError
	if errors.As(err, &se) {
		fields = append(fields, logger.Code(se.Code))
	}
	log := logger.FromWithFields(ctx, fields...)
	switch {
	case repository.IsUniqueViolation(err), repository.IsCancelled(err):
		log.Debug("user store write rejected")
	default:
		log.Error("user store write failed")
	}
}
