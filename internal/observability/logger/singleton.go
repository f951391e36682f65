package logger

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance atomic.Pointer[zap.Logger]
)

// Init construye el logger global. Sólo la primera llamada tiene efecto;
// la CLI lo llama en el pre-run con la config ya cargada.
func Init(cfg Config) {
	once.Do(func() {
		instance.Store(build(cfg))
	})
}

// L retorna el logger global. Sin Init previo queda el default (dev, info).
func L() *zap.Logger {
	if l := instance.Load(); l != nil {
		return l
	}
	Init(Config{Env: "dev", Level: "info"})
	return instance.Load()
}

// Named retorna el logger global con un nombre de subsistema ("audit", ...).
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// With retorna el logger global con campos fijos.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Store es el logger del user store sobre una colección.
func Store(collection string) *zap.Logger {
	return With(Component("user_store"), Collection(collection))
}

func Sync() error {
	if l := instance.Load(); l != nil {
		return l.Sync()
	}
	return nil
}
