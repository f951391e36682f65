// Package store provee el registry de adaptadores de almacenamiento del user store.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
)

// Adapter representa un adaptador capaz de abrir un user store.
type Adapter interface {
	// Name retorna el nombre del adapter (ej: "mongo", "memory").
	Name() string

	// Connect establece conexión con el almacenamiento. No crea índices.
	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection representa una conexión activa.
type AdapterConnection interface {
	// Name retorna el nombre del adapter.
	Name() string

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close(ctx context.Context) error

	// EnsureSchema crea los índices requeridos (idempotente).
	EnsureSchema(ctx context.Context) error

	// ─── Capacidades (nil si no soportado) ───

	Users() repository.UserStore
	Logins() repository.UserLoginStore
	Emails() repository.UserEmailStore
	Claims() repository.UserClaimStore
	Security() repository.UserSecurityStore
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "mongo", "memory"
	Name string

	// URI connection string (mongodb://...)
	URI string

	// Database y UsersCollection donde viven los documentos de usuario.
	Database        string
	UsersCollection string

	// ConnectTimeout limita el connect + ping inicial. 0 = sin límite propio.
	ConnectTimeout time.Duration

	// SkipEnsureSchema evita crear índices en OpenAdapter.
	SkipEnsureSchema bool

	// OnWriteError hook opcional para escrituras fallidas.
	OnWriteError func(ctx context.Context, op string, err error)
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter en el registry global.
// Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres de todos los adapters registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAdapter conecta y, salvo SkipEnsureSchema, asegura los índices.
// Si los índices fallan la conexión se cierra y se retorna el error: un
// store sin sus garantías de unicidad no se entrega al caller.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered", cfg.Name)
	}
	conn, err := a.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.SkipEnsureSchema {
		return conn, nil
	}
	if err := conn.EnsureSchema(ctx); err != nil {
		_ = conn.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("adapter %q: %w", cfg.Name, err)
	}
	return conn, nil
}
