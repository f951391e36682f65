package mongo

import (
	"context"
	"fmt"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	"github.com/dropDatabas3/identitystore/internal/observability/logger"
	store "github.com/dropDatabas3/identitystore/internal/store"
	"github.com/dropDatabas3/identitystore/internal/store/docstore"
	"github.com/dropDatabas3/identitystore/internal/util"
)

// DefaultUsersCollection es la colección usada si la config no indica otra.
const DefaultUsersCollection = "users"

func init() {
	store.RegisterAdapter(&mongoAdapter{})
}

type mongoAdapter struct{}

func (a *mongoAdapter) Name() string { return "mongo" }

func (a *mongoAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: %w: uri", repository.ErrInvalidArgument)
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongo: %w: database", repository.ErrInvalidArgument)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	client, err := mongodriver.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	name := cfg.UsersCollection
	if name == "" {
		name = DefaultUsersCollection
	}
	users := docstore.NewMongo(client.Database(cfg.Database).Collection(name))
	s, err := New(users, Options{OnWriteError: cfg.OnWriteError})
	if err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	logger.Store(name).Debug("mongo connected",
		logger.Driver(a.Name()),
		logger.String("database", cfg.Database),
		logger.String("uri", util.MaskURI(cfg.URI)))
	return NewConnection("mongo", s, client.Ping, client.Disconnect), nil
}

// Connection expone un UserStore como store.AdapterConnection.
type Connection struct {
	name  string
	store *UserStore
	ping  func(ctx context.Context, rp *readpref.ReadPref) error
	close func(ctx context.Context) error
}

// NewConnection arma una conexión; ping y closeFn pueden ser nil.
func NewConnection(name string, s *UserStore, ping func(ctx context.Context, rp *readpref.ReadPref) error, closeFn func(ctx context.Context) error) *Connection {
	return &Connection{name: name, store: s, ping: ping, close: closeFn}
}

func (c *Connection) Name() string { return c.name }

func (c *Connection) Ping(ctx context.Context) error {
	if c.ping == nil {
		return ctx.Err()
	}
	return c.ping(ctx, readpref.Primary())
}

func (c *Connection) Close(ctx context.Context) error {
	if c.close == nil {
		return nil
	}
	return c.close(ctx)
}

func (c *Connection) EnsureSchema(ctx context.Context) error { return c.store.EnsureSchema(ctx) }

// Store retorna el UserStore concreto.
func (c *Connection) Store() *UserStore { return c.store }

func (c *Connection) Users() repository.UserStore            { return c.store }
func (c *Connection) Logins() repository.UserLoginStore      { return c.store }
func (c *Connection) Emails() repository.UserEmailStore      { return c.store }
func (c *Connection) Claims() repository.UserClaimStore      { return c.store }
func (c *Connection) Security() repository.UserSecurityStore { return c.store }
