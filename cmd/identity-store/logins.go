package main

import (
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/identitystore/internal/audit"
	"github.com/dropDatabas3/identitystore/internal/domain/repository"
	"github.com/dropDatabas3/identitystore/internal/observability/logger"
)

func (c *cli) loginsCmd() *cobra.Command {
	logins := &cobra.Command{Use: "logins", Short: "Logins externos (provider + key)"}

	var addSel selector
	var addInfo repository.LoginInfo
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Asocia un login externo; falla si el par ya pertenece a otro usuario",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ls, err := capability(c.conn.Logins(), "logins")
			if err != nil {
				return err
			}
			u, err := c.find(ctx, addSel)
			if err != nil {
				return err
			}
			if err := ls.AddLogin(ctx, u, addInfo); err != nil {
				return err
			}
			audit.Log(ctx, audit.LoginAdded, logger.UserID(u.IDHex()), logger.Provider(addInfo.LoginProvider))
			c.print(loginViews(u.Logins))
			return nil
		},
	}
	addSel.bind(addCmd)
	addCmd.Flags().StringVar(&addInfo.LoginProvider, "provider", "", "Provider (ej. github)")
	addCmd.Flags().StringVar(&addInfo.ProviderKey, "key", "", "Key del usuario en el provider")
	addCmd.Flags().StringVar(&addInfo.DisplayName, "display-name", "", "Nombre a mostrar (opcional)")

	var rmSel selector
	var rmProvider, rmKey string
	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Quita un login externo (no-op si no existe)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ls, err := capability(c.conn.Logins(), "logins")
			if err != nil {
				return err
			}
			u, err := c.find(ctx, rmSel)
			if err != nil {
				return err
			}
			if err := ls.RemoveLogin(ctx, u, rmProvider, rmKey); err != nil {
				return err
			}
			audit.Log(ctx, audit.LoginRemoved, logger.UserID(u.IDHex()), logger.Provider(rmProvider))
			c.print(loginViews(u.Logins))
			return nil
		},
	}
	rmSel.bind(removeCmd)
	removeCmd.Flags().StringVar(&rmProvider, "provider", "", "Provider")
	removeCmd.Flags().StringVar(&rmKey, "key", "", "Key en el provider")

	var listSel selector
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lista los logins de un usuario",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ls, err := capability(c.conn.Logins(), "logins")
			if err != nil {
				return err
			}
			u, err := c.find(ctx, listSel)
			if err != nil {
				return err
			}
			infos, err := ls.GetLogins(ctx, u)
			if err != nil {
				return err
			}
			out := make([]loginView, 0, len(infos))
			for _, i := range infos {
				out = append(out, loginView{Provider: i.LoginProvider, Key: i.ProviderKey, DisplayName: i.DisplayName})
			}
			c.print(out)
			return nil
		},
	}
	listSel.bind(listCmd)

	var findProvider, findKey string
	findCmd := &cobra.Command{
		Use:   "find",
		Short: "Busca el usuario dueño de un par provider+key",
		RunE: func(cmd *cobra.Command, args []string) error {
			ls, err := capability(c.conn.Logins(), "logins")
			if err != nil {
				return err
			}
			u, err := ls.FindByLogin(cmd.Context(), findProvider, findKey)
			if err != nil {
				return err
			}
			c.print(viewOf(u))
			return nil
		},
	}
	findCmd.Flags().StringVar(&findProvider, "provider", "", "Provider")
	findCmd.Flags().StringVar(&findKey, "key", "", "Key en el provider")

	logins.AddCommand(addCmd, removeCmd, listCmd, findCmd)
	return logins
}
