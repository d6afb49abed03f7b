package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pos-backoffice/config"
)

// AdminCreateOptions holds flags for admin create.
type AdminCreateOptions struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// NewAdminCommand groups admin account maintenance.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(NewAdminCreateCommand(rootOpts))
	return cmd
}

// NewAdminCreateCommand seeds a verified SuperAdmin, bypassing email
// verification. It is how the first account of a deployment is made.
func NewAdminCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AdminCreateOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a verified SuperAdmin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogger(cmd.ErrOrStderr(), cfg, rootOpts.Verbose)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			admin, err := a.ctrl.Auth.CreateSuperAdmin(ctx, opts.Name, opts.Email, opts.Phone, opts.Password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created SuperAdmin %s (%s)\n", admin.Email, admin.ID.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "login email")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "10 digit phone number")
	cmd.Flags().StringVar(&opts.Password, "password", "", "initial password (min 6 characters)")
	for _, f := range []string{"name", "email", "phone", "password"} {
		_ = cmd.MarkFlagRequired(f)
	}

	return cmd
}
