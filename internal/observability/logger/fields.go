package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - STORE
// =================================================================================

// Op crea un campo para la operación del store (create, set_user_name, ...).
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Collection crea un campo para el nombre de la colección.
func Collection(v string) zap.Field {
	return zap.String("collection", v)
}

// Driver crea un campo para el adapter de almacenamiento.
func Driver(v string) zap.Field {
	return zap.String("driver", v)
}

// Code crea un campo para el código de error del backend.
func Code(v int) zap.Field {
	return zap.Int("code", v)
}

// Index crea un campo para el nombre de un índice.
func Index(v string) zap.Field {
	return zap.String("index", v)
}

// Duration crea un campo para la duración de una operación.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - IDENTIDAD
// =================================================================================

// UserID crea un campo para el ID del usuario.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// UserName crea un campo para el nombre normalizado (usar con cuidado en prod).
func UserName(v string) zap.Field {
	return zap.String("user_name", v)
}

// Provider crea un campo para el provider de un login externo.
func Provider(v string) zap.Field {
	return zap.String("provider", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}
