// Package memory registra el adapter "memory": el mismo user store que el
// adapter mongo, sobre una colección en memoria. Para desarrollo y tests.
package memory

import (
	"context"
	"sync"

	store "github.com/dropDatabas3/identitystore/internal/store"
	mongostore "github.com/dropDatabas3/identitystore/internal/store/adapters/mongo"
	"github.com/dropDatabas3/identitystore/internal/store/docstore"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{collections: map[string]*docstore.Memory{}})
}

// memoryAdapter comparte las colecciones por database/collection dentro del
// proceso, así dos Connect ven los mismos datos.
type memoryAdapter struct {
	mu          sync.Mutex
	collections map[string]*docstore.Memory
}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := cfg.UsersCollection
	if name == "" {
		name = mongostore.DefaultUsersCollection
	}
	key := cfg.Database + "/" + name

	a.mu.Lock()
	coll, ok := a.collections[key]
	if !ok {
		coll = docstore.NewMemory(name)
		a.collections[key] = coll
	}
	a.mu.Unlock()

	s, err := mongostore.New(coll, mongostore.Options{OnWriteError: cfg.OnWriteError})
	if err != nil {
		return nil, err
	}
	return mongostore.NewConnection("memory", s, nil, nil), nil
}
