package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/identitystore/internal/security/secretbox"
)

// secretsCmd no abre el store: sólo necesita SECRETBOX_MASTER_KEY.
func (c *cli) secretsCmd() *cobra.Command {
	secrets := &cobra.Command{
		Use:   "secrets",
		Short: "Sella valores de config (ej. storage.mongo.uri_enc)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	var value string
	seal := &cobra.Command{
		Use:   "seal",
		Short: "Cifra --value con la clave de " + secretbox.EnvVar,
		RunE: func(cmd *cobra.Command, args []string) error {
			if value == "" {
				return fmt.Errorf("--value es requerido")
			}
			box, err := secretbox.FromEnv()
			if err != nil {
				return err
			}
			sealed, err := box.Seal(value)
			if err != nil {
				return err
			}
			fmt.Println(sealed)
			return nil
		},
	}
	seal.Flags().StringVar(&value, "value", "", "Valor en claro (ej. la URI de Mongo)")
	secrets.AddCommand(seal)
	return secrets
}
