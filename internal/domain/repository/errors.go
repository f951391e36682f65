package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indica que el usuario solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indica que falta un argumento requerido (user, id, nombre).
	// Se detecta siempre antes de cualquier I/O.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUniqueViolation indica que el backend rechazó la escritura por un índice único
	// (normalizedUserName, email.value o par provider+key).
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrStorageConflict indica que el backend no confirmó la escritura por otro motivo.
	ErrStorageConflict = errors.New("storage conflict")

	// ErrCancelled indica que el contexto del caller fue cancelado.
	ErrCancelled = errors.New("cancelled")

	// ErrNotImplemented indica que la operación no está soportada por este driver.
	ErrNotImplemented = errors.New("not implemented")
)

// StorageError transporta el diagnóstico del backend para una escritura rechazada.
// Kind es ErrUniqueViolation o ErrStorageConflict.
type StorageError struct {
	Op      string
	Kind    error
	Code    int
	Message string
	Cause   error
}

func (e *StorageError) Error() string {
	msg := fmt.Sprintf("%s: %v (code=%d", e.Op, e.Kind, e.Code)
	if e.Message != "" {
		msg += ", message=" + e.Message
	}
	msg += ")"
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StorageError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// InvalidArgument envuelve ErrInvalidArgument con el nombre del argumento.
func InvalidArgument(name string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, name)
}

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidArgument verifica si el error es ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsUniqueViolation verifica si el error es ErrUniqueViolation.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// IsStorageConflict verifica si el error es ErrStorageConflict.
func IsStorageConflict(err error) bool {
	return errors.Is(err, ErrStorageConflict)
}

// IsCancelled verifica si el error es ErrCancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
