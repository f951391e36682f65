// Command identity-store administra el user store de identidad desde la terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/identitystore/internal/config"
	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	"github.com/dropDatabas3/identitystore/internal/metrics"
	"github.com/dropDatabas3/identitystore/internal/observability/logger"
	"github.com/dropDatabas3/identitystore/internal/security/password"
	store "github.com/dropDatabas3/identitystore/internal/store"
	_ "github.com/dropDatabas3/identitystore/internal/store/adapters/dal"
	"github.com/dropDatabas3/identitystore/internal/store/adapters/noop"
	"github.com/dropDatabas3/identitystore/internal/util"
)

// cli guarda el estado compartido entre comandos (config, conexión, policy).
type cli struct {
	cfgPath     string
	driver      string
	out         string
	metricsFile string

	cfg    *config.Config
	conn   store.AdapterConnection
	policy password.Policy
	params password.Params
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{params: password.Default}
	err := c.run(ctx, os.Args[1:])
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(exitCode(err))
	}
}

// run ejecuta el comando y siempre cierra: cobra no corre los post-run si
// RunE falla, y el store y el textfile de métricas se cierran igual.
func (c *cli) run(ctx context.Context, args []string) error {
	root := c.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, c.teardown(ctx))
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "identity-store",
		Short:         "CLI del user store de identidad (MongoDB)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := c.setup(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(ctx)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.cfgPath, "config", envOr("IDENTITY_STORE_CONFIG", ""), "Ruta al config.yaml (env IDENTITY_STORE_CONFIG)")
	root.PersistentFlags().StringVar(&c.driver, "driver", "", "Driver de storage: mongo|memory|noop (pisa config/env)")
	root.PersistentFlags().StringVar(&c.out, "out", envOr("IDENTITY_STORE_OUT", "text"), "Formato de salida: json|text")
	root.PersistentFlags().StringVar(&c.metricsFile, "metrics-file", "", "Escribe las métricas en formato textfile al terminar (opcional)")

	root.AddCommand(c.schemaCmd())
	root.AddCommand(c.usersCmd())
	root.AddCommand(c.loginsCmd())
	root.AddCommand(c.secretsCmd())
	return root
}

// setup carga config, logger y métricas, abre el store y retorna el ctx del
// comando con el logger de la CLI.
func (c *cli) setup(ctx context.Context) (context.Context, error) {
	_ = godotenv.Load(".env")     // base
	_ = godotenv.Load(".env.dev") // dev overrides

	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return ctx, fmt.Errorf("config: %w", err)
	}
	if c.driver != "" {
		cfg.Storage.Driver = c.driver
		if err := cfg.Validate(); err != nil {
			return ctx, err
		}
	}
	c.cfg = cfg

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: cfg.App.Name})
	log := logger.Named("cli").With(logger.Driver(cfg.Storage.Driver))
	ctx = logger.ToContext(ctx, log)

	if err := metrics.RegisterStore(prometheus.DefaultRegisterer); err != nil {
		return ctx, fmt.Errorf("metrics: %w", err)
	}

	bl, err := password.LoadBlacklist(cfg.Password.BlacklistPath)
	if err != nil {
		return ctx, fmt.Errorf("password blacklist: %w", err)
	}
	c.policy = password.Policy{
		MinLength:     cfg.Password.MinLength,
		RequireUpper:  cfg.Password.RequireUpper,
		RequireLower:  cfg.Password.RequireLower,
		RequireDigit:  cfg.Password.RequireDigit,
		RequireSymbol: cfg.Password.RequireSymbol,
		Blacklist:     bl,
	}

	conn, err := c.open(ctx)
	if err != nil {
		log.Error("open store failed", logger.Err(err))
		return ctx, err
	}
	c.conn = conn
	log.Debug("store ready",
		logger.String("uri", util.MaskURI(cfg.Storage.Mongo.URI)),
		logger.String("database", cfg.Storage.Mongo.Database),
		logger.Collection(cfg.Storage.Mongo.UsersCollection))
	return ctx, nil
}

func (c *cli) open(ctx context.Context) (store.AdapterConnection, error) {
	if c.cfg.Storage.Driver == "noop" {
		return noop.New().Connect(ctx, store.AdapterConfig{Name: "noop"})
	}
	return store.OpenAdapter(ctx, store.AdapterConfig{
		Name:             c.cfg.Storage.Driver,
		URI:              c.cfg.Storage.Mongo.URI,
		Database:         c.cfg.Storage.Mongo.Database,
		UsersCollection:  c.cfg.Storage.Mongo.UsersCollection,
		ConnectTimeout:   c.cfg.ConnectTimeout(),
		SkipEnsureSchema: !*c.cfg.Storage.EnsureSchema,
	})
}

func (c *cli) teardown(ctx context.Context) error {
	var errs []error
	if c.conn != nil {
		errs = append(errs, c.conn.Close(context.WithoutCancel(ctx)))
		c.conn = nil
	}
	if c.metricsFile != "" {
		errs = append(errs, prometheus.WriteToTextfile(c.metricsFile, prometheus.DefaultGatherer))
	}
	return errors.Join(errs...)
}

func (c *cli) schemaCmd() *cobra.Command {
	schema := &cobra.Command{Use: "schema", Short: "Operaciones sobre índices"}
	schema.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Crea los índices únicos del store (idempotente)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.conn.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			c.printf("ok\n")
			return nil
		},
	})
	schema.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Verifica la conexión al storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.conn.Ping(cmd.Context()); err != nil {
				return err
			}
			c.printf("ok (%s)\n", c.conn.Name())
			return nil
		},
	})
	return schema
}

// exitCode mapea la taxonomía de errores del store a códigos de salida.
func exitCode(err error) int {
	switch {
	case repository.IsNotFound(err):
		return 2
	case repository.IsUniqueViolation(err):
		return 3
	case repository.IsInvalidArgument(err):
		return 4
	case repository.IsStorageConflict(err):
		return 5
	case repository.IsCancelled(err):
		return 130
	case errors.Is(err, repository.ErrNotImplemented):
		return 6
	default:
		return 1
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
