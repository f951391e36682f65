package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/identitystore/internal/audit"
	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	"github.com/dropDatabas3/identitystore/internal/identity/normalize"
	"github.com/dropDatabas3/identitystore/internal/observability/logger"
)

// userInput es un usuario tal como llega por flags o por archivo de import.
type userInput struct {
	UserName       string `yaml:"userName"`
	Email          string `yaml:"email"`
	EmailConfirmed bool   `yaml:"emailConfirmed"`
	PhoneNumber    string `yaml:"phoneNumber"`
	Password       string `yaml:"password"`
	// PasswordHash se guarda tal cual (migraciones desde otro sistema).
	PasswordHash string `yaml:"passwordHash"`

	Claims []struct {
		Type  string `yaml:"type"`
		Value string `yaml:"value"`
	} `yaml:"claims"`
	Logins []struct {
		Provider    string `yaml:"provider"`
		Key         string `yaml:"key"`
		DisplayName string `yaml:"displayName"`
	} `yaml:"logins"`
}

type importFile struct {
	Users []userInput `yaml:"users"`
}

type importSummary struct {
	Created int           `json:"created"`
	Skipped int           `json:"skipped"`
	Failed  int           `json:"failed"`
	Elapsed time.Duration `json:"elapsedNs"`
	Errors  []string      `json:"errors,omitempty"`
}

// buildUser arma el documento: normaliza, hashea y asigna security stamp.
func (c *cli) buildUser(in userInput) (*repository.User, error) {
	u, err := repository.NewUser(in.UserName)
	if err != nil {
		return nil, err
	}
	u.NormalizedUserName = normalize.UserName(in.UserName)
	if in.Email != "" {
		e, err := repository.NewEmail(normalize.Email(in.Email))
		if err != nil {
			return nil, err
		}
		if in.EmailConfirmed {
			e.Confirm()
		}
		u.Email = e
	}
	if in.PhoneNumber != "" {
		if u.PhoneNumber, err = repository.NewPhoneNumber(in.PhoneNumber); err != nil {
			return nil, err
		}
	}
	switch {
	case in.PasswordHash != "":
		u.PasswordHash = in.PasswordHash
	case in.Password != "":
		if u.PasswordHash, err = c.hashPassword(in.Password); err != nil {
			return nil, err
		}
	}
	u.SecurityStamp = uuid.NewString()

	for _, cl := range in.Claims {
		if cl.Type == "" {
			return nil, repository.InvalidArgument("claim.type")
		}
		u.Claims = append(u.Claims, repository.Claim{Type: cl.Type, Value: cl.Value})
	}
	for _, l := range in.Logins {
		login, err := repository.NewLogin(repository.LoginInfo{LoginProvider: l.Provider, ProviderKey: l.Key, DisplayName: l.DisplayName})
		if err != nil {
			return nil, err
		}
		u.Logins = append(u.Logins, login)
	}
	return u, nil
}

func (c *cli) usersImportCmd() *cobra.Command {
	var file string
	var concurrency int
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Importa usuarios desde un YAML (los que ya existen se saltean)",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var f importFile
			if err := yaml.Unmarshal(b, &f); err != nil {
				return fmt.Errorf("import: parse %s: %w", file, err)
			}
			if concurrency <= 0 {
				concurrency = c.cfg.Import.Concurrency
			}
			sum, err := c.importUsers(cmd.Context(), f.Users, concurrency)
			audit.Log(cmd.Context(), audit.UsersImported,
				logger.String("file", file),
				logger.Int("created", sum.Created),
				logger.Int("skipped", sum.Skipped))
			c.print(sum)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Archivo YAML con la lista users:")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Creates en paralelo (default: import.concurrency)")
	return cmd
}

// importUsers crea cada usuario en paralelo. Las violaciones de unicidad
// cuentan como salteadas; sólo la cancelación corta el import.
func (c *cli) importUsers(ctx context.Context, in []userInput, concurrency int) (importSummary, error) {
	ctx = logger.Scope(ctx, logger.Component("import"))
	log := logger.From(ctx)
	started := time.Now()

	var mu sync.Mutex
	var sum importSummary
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			sum.Created++
		case repository.IsUniqueViolation(err):
			sum.Skipped++
		default:
			sum.Failed++
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", name, err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, item := range in {
		item := item // per-iteration copy (go.mod targets go1.21)
		g.Go(func() error {
			ictx := logger.Scope(gctx, logger.UserName(item.UserName))
			u, err := c.buildUser(item)
			if err == nil {
				err = c.conn.Users().Create(ictx, u)
			}
			if repository.IsCancelled(err) {
				return err
			}
			if err != nil {
				logger.From(ictx).Debug("import item rejected", logger.Err(err))
			}
			record(item.UserName, err)
			return nil
		})
	}
	err := g.Wait()
	sum.Elapsed = time.Since(started)
	log.Info("import finished",
		logger.Count(len(in)),
		logger.Int("created", sum.Created),
		logger.Int("skipped", sum.Skipped),
		logger.Int("failed", sum.Failed),
		logger.Duration(sum.Elapsed))
	return sum, err
}
