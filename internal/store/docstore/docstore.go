// Package docstore define el contrato mínimo de colección documental que
// consume el store de identidad, con una implementación sobre el driver de
// MongoDB y otra en memoria.
//
// Las escrituras nunca devuelven el rechazo del servidor como error Go: lo
// normalizan en Ack{OK:false, Code, Message}. El error queda reservado para
// fallas de transporte y cancelación del contexto.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Códigos de error del servidor que el store necesita distinguir.
const (
	CodeBadValue             = 2
	CodeImmutableField       = 66
	CodeIndexOptionsConflict = 85
	CodeDuplicateKey         = 11000
	CodeDuplicateKeyLegacy   = 11001
	CodeDuplicateKeyUpdate   = 12582
)

// ErrNoDocuments indica que FindOne no encontró documento.
var ErrNoDocuments = errors.New("docstore: no documents in result")

// IsDuplicateKeyCode indica si el código corresponde a violación de índice único.
func IsDuplicateKeyCode(code int) bool {
	switch code {
	case CodeDuplicateKey, CodeDuplicateKeyLegacy, CodeDuplicateKeyUpdate:
		return true
	}
	return false
}

// Ack es el acuse de una escritura.
type Ack struct {
	OK      bool
	Code    int
	Message string

	InsertedID    any
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
	DeletedCount  int64
}

// Index declara un índice. Los índices únicos sólo consideran valores string
// (los documentos sin el campo no participan).
type Index struct {
	Name   string
	Keys   []string
	Unique bool
}

// Collection es el contrato del backend documental.
type Collection interface {
	Name() string

	InsertOne(ctx context.Context, doc any) (Ack, error)

	// ReplaceOne reemplaza el primer documento que cumple filter; con upsert
	// lo inserta si no existe.
	ReplaceOne(ctx context.Context, filter bson.D, doc any, upsert bool) (Ack, error)

	UpdateOne(ctx context.Context, filter bson.D, update bson.D) (Ack, error)

	// FindOneAndUpdate aplica update y decodifica el documento resultante en out.
	// MatchedCount es 0 si ningún documento cumple filter.
	FindOneAndUpdate(ctx context.Context, filter bson.D, update bson.D, out any) (Ack, error)

	DeleteOne(ctx context.Context, filter bson.D) (Ack, error)

	// FindOne decodifica en out el primer documento; ErrNoDocuments si no hay.
	FindOne(ctx context.Context, filter bson.D, out any) error

	// EnsureIndexes crea los índices que falten. Es idempotente para
	// definiciones idénticas.
	EnsureIndexes(ctx context.Context, indexes []Index) error
}

// CommandError es un error de comando del backend (p. ej. creación de índices).
type CommandError struct {
	Code    int
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("docstore: command failed (code=%d): %s", e.Code, e.Message)
}
