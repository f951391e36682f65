package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/identitystore/internal/audit"
	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	"github.com/dropDatabas3/identitystore/internal/identity/normalize"
	"github.com/dropDatabas3/identitystore/internal/observability/logger"
	"github.com/dropDatabas3/identitystore/internal/security/password"
)

// selector identifica a un usuario por ID, nombre o email (el primero que venga).
type selector struct {
	id, name, email string
}

func (s *selector) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.id, "id", "", "ID del usuario (hex)")
	cmd.Flags().StringVar(&s.name, "name", "", "Nombre de usuario (se normaliza)")
	cmd.Flags().StringVar(&s.email, "email", "", "Email del usuario (se normaliza)")
}

// capability falla con ErrNotImplemented si el driver no soporta la capacidad.
func capability[T any](v T, name string) (T, error) {
	if any(v) == nil {
		return v, fmt.Errorf("%s: %w", name, repository.ErrNotImplemented)
	}
	return v, nil
}

func (c *cli) find(ctx context.Context, sel selector) (*repository.User, error) {
	switch {
	case sel.id != "":
		return c.conn.Users().FindByID(ctx, sel.id)
	case sel.name != "":
		return c.conn.Users().FindByName(ctx, normalize.UserName(sel.name))
	case sel.email != "":
		emails, err := capability(c.conn.Emails(), "emails")
		if err != nil {
			return nil, err
		}
		return emails.FindByEmail(ctx, normalize.Email(sel.email))
	}
	return nil, repository.InvalidArgument("--id, --name o --email")
}

func (c *cli) hashPassword(plain string) (string, error) {
	return password.HashWithPolicy(c.policy, c.params, plain)
}

func (c *cli) usersCmd() *cobra.Command {
	users := &cobra.Command{Use: "users", Short: "Operaciones sobre usuarios"}
	users.AddCommand(
		c.usersCreateCmd(),
		c.usersGetCmd(),
		c.usersRenameCmd(),
		c.usersSetEmailCmd(),
		c.usersConfirmEmailCmd(),
		c.usersSetPasswordCmd(),
		c.usersLockCmd(),
		c.usersUnlockCmd(),
		c.usersClaimsCmd(),
		c.usersDeleteCmd(),
		c.usersImportCmd(),
	)
	return users
}

func (c *cli) usersCreateCmd() *cobra.Command {
	var in userInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Crea un usuario",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.buildUser(in)
			if err != nil {
				return err
			}
			if err := c.conn.Users().Create(cmd.Context(), u); err != nil {
				return err
			}
			audit.Log(cmd.Context(), audit.UserCreated, logger.UserID(u.IDHex()), logger.UserName(u.NormalizedUserName))
			c.print(viewOf(u))
			return nil
		},
	}
	cmd.Flags().StringVar(&in.UserName, "name", "", "Nombre de usuario (requerido)")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email (opcional)")
	cmd.Flags().StringVar(&in.PhoneNumber, "phone", "", "Teléfono (opcional)")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password en claro (se hashea con argon2id)")
	return cmd
}

func (c *cli) usersGetCmd() *cobra.Command {
	var sel selector
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Busca un usuario por --id, --name o --email",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.find(cmd.Context(), sel)
			if err != nil {
				return err
			}
			c.print(viewOf(u))
			return nil
		},
	}
	sel.bind(cmd)
	return cmd
}

func (c *cli) usersRenameCmd() *cobra.Command {
	var sel selector
	var to string
	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Cambia el nombre (y su forma normalizada)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := c.find(ctx, sel)
			if err != nil {
				return err
			}
			if err := c.rename(ctx, u, to); err != nil {
				return err
			}
			audit.Log(ctx, audit.UserRenamed, logger.UserID(u.IDHex()), logger.UserName(u.NormalizedUserName))
			c.print(viewOf(u))
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().StringVar(&to, "to", "", "Nuevo nombre de usuario")
	return cmd
}

// rename cambia el nombre en dos escrituras: primero el normalizado (si
// colisiona no se toca userName) y después userName. Si la segunda falla se
// restaura el normalizado anterior.
func (c *cli) rename(ctx context.Context, u *repository.User, to string) error {
	normalized := normalize.UserName(to)
	if normalized == "" {
		return repository.InvalidArgument("--to")
	}
	users := c.conn.Users()
	prev := u.NormalizedUserName
	if err := users.SetNormalizedUserName(ctx, u, normalized); err != nil {
		return err
	}
	if err := users.SetUserName(ctx, u, to); err != nil {
		if rerr := users.SetNormalizedUserName(context.WithoutCancel(ctx), u, prev); rerr != nil {
			logger.From(ctx).Error("rename rollback failed",
				logger.UserID(u.IDHex()), logger.UserName(prev), logger.Err(rerr))
			return errors.Join(err, rerr)
		}
		return err
	}
	return nil
}

func (c *cli) usersSetEmailCmd() *cobra.Command {
	var sel selector
	var to string
	cmd := &cobra.Command{
		Use:   "set-email",
		Short: "Reemplaza el email (queda sin confirmar); --to \"\" lo elimina",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			emails, err := capability(c.conn.Emails(), "emails")
			if err != nil {
				return err
			}
			u, err := c.find(ctx, sel)
			if err != nil {
				return err
			}
			if err := emails.SetEmail(ctx, u, normalize.Email(to)); err != nil {
				return err
			}
			audit.Log(ctx, audit.UserEmailSet, logger.UserID(u.IDHex()), audit.Email(to))
			c.print(viewOf(u))
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().StringVar(&to, "to", "", "Nuevo email")
	return cmd
}

func (c *cli) usersConfirmEmailCmd() *cobra.Command {
	var sel selector
	var revoke bool
	cmd := &cobra.Command{
		Use:   "confirm-email",
		Short: "Marca el email como confirmado (o lo revoca con --revoke)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			emails, err := capability(c.conn.Emails(), "emails")
			if err != nil {
				return err
			}
			u, err := c.find(ctx, sel)
			if err != nil {
				return err
			}
			if err := emails.SetEmailConfirmed(ctx, u, !revoke); err != nil {
				return err
			}
			c.print(viewOf(u))
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Quita la confirmación")
	return cmd
}

func (c *cli) usersSetPasswordCmd() *cobra.Command {
	var sel selector
	var plain string
	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Hashea y guarda un password nuevo; rota el security stamp",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sec, err := capability(c.conn.Security(), "security")
			if err != nil {
				return err
			}
			hash, err := c.hashPassword(plain)
			if err != nil {
				return err
			}
			u, err := c.find(ctx, sel)
			if err != nil {
				return err
			}
			if err := sec.SetPasswordHash(ctx, u, hash); err != nil {
				return err
			}
			if err := sec.SetSecurityStamp(ctx, u, uuid.NewString()); err != nil {
				return err
			}
			if err := sec.ResetAccessFailedCount(ctx, u); err != nil {
				return err
			}
			audit.Log(ctx, audit.PasswordChanged, logger.UserID(u.IDHex()))
			c.print(viewOf(u))
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().StringVar(&plain, "password", "", "Password en claro")
	return cmd
}

func (c *cli) usersLockCmd() *cobra.Command {
	var sel selector
	var d time.Duration
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Bloquea al usuario por --for (habilita lockout)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sec, err := capability(c.conn.Security(), "security")
			if err != nil {
				return err
			}
			if d <= 0 {
				return repository.InvalidArgument("--for")
			}
			u, err := c.find(ctx, sel)
			if err != nil {
				return err
			}
			if err := sec.SetLockoutEnabled(ctx, u, true); err != nil {
				return err
			}
			end := time.Now().Add(d)
			if err := sec.SetLockoutEndDate(ctx, u, &end); err != nil {
				return err
			}
			audit.Log(ctx, audit.UserLocked, logger.UserID(u.IDHex()), logger.Duration(d))
			c.print(viewOf(u))
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().DurationVar(&d, "for", time.Hour, "Duración del bloqueo")
	return cmd
}

func (c *cli) usersUnlockCmd() *cobra.Command {
	var sel selector
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Levanta el bloqueo y resetea los intentos fallidos",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sec, err := capability(c.conn.Security(), "security")
			if err != nil {
				return err
			}
			u, err := c.find(ctx, sel)
			if err != nil {
				return err
			}
			if err := sec.SetLockoutEndDate(ctx, u, nil); err != nil {
				return err
			}
			if err := sec.ResetAccessFailedCount(ctx, u); err != nil {
				return err
			}
			audit.Log(ctx, audit.UserUnlocked, logger.UserID(u.IDHex()))
			c.print(viewOf(u))
			return nil
		},
	}
	sel.bind(cmd)
	return cmd
}

func (c *cli) usersClaimsCmd() *cobra.Command {
	claims := &cobra.Command{Use: "claims", Short: "Gestiona los claims de un usuario"}

	run := func(add bool) func(cmd *cobra.Command, sel selector, claim repository.Claim) error {
		return func(cmd *cobra.Command, sel selector, claim repository.Claim) error {
			ctx := cmd.Context()
			cs, err := capability(c.conn.Claims(), "claims")
			if err != nil {
				return err
			}
			u, err := c.find(ctx, sel)
			if err != nil {
				return err
			}
			if add {
				err = cs.AddClaims(ctx, u, claim)
			} else {
				err = cs.RemoveClaim(ctx, u, claim)
			}
			if err != nil {
				return err
			}
			c.print(viewOf(u))
			return nil
		}
	}

	for _, def := range []struct {
		use, short string
		add        bool
	}{
		{"add", "Agrega un claim", true},
		{"remove", "Quita todas las ocurrencias de un claim", false},
	} {
		var sel selector
		var claim repository.Claim
		fn := run(def.add)
		cmd := &cobra.Command{
			Use:   def.use,
			Short: def.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return fn(cmd, sel, claim)
			},
		}
		sel.bind(cmd)
		cmd.Flags().StringVar(&claim.Type, "type", "", "Tipo del claim")
		cmd.Flags().StringVar(&claim.Value, "value", "", "Valor del claim")
		claims.AddCommand(cmd)
	}
	return claims
}

func (c *cli) usersDeleteCmd() *cobra.Command {
	var sel selector
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Elimina un usuario",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := c.find(ctx, sel)
			if err != nil {
				return err
			}
			if err := c.conn.Users().Delete(ctx, u); err != nil {
				return err
			}
			audit.Log(ctx, audit.UserDeleted, logger.UserID(u.IDHex()))
			c.printf("deleted %s\n", u.IDHex())
			return nil
		},
	}
	sel.bind(cmd)
	return cmd
}
