package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/avatarctic/email-auth/internal/bootstrap"
)

type openFunc func(ctx context.Context) (*bootstrap.App, error)

func newRootCommand(open openFunc, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "emailauthctl",
		Short:         "Administrative tasks for the email-auth service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	cmd.AddCommand(newMigrateCommand(open))
	cmd.AddCommand(newIdentitiesCommand(open))
	cmd.AddCommand(newAddressesCommand(open))
	return cmd
}

// withApp opens the application for the duration of fn.
func withApp(cmd *cobra.Command, open openFunc, fn func(ctx context.Context, app *bootstrap.App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, app.Close())
	}()
	return fn(ctx, app)
}

func newMigrateCommand(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				if app.Database == nil {
					return errors.New("migrations require STORE_DRIVER=postgres")
				}
				if err := app.Migrate(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				if app.Database == nil {
					return errors.New("migrations require STORE_DRIVER=postgres")
				}
				if err := app.Database.MigrateDown(app.Config.Database.MigrationsPath); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	})
	return cmd
}

func newIdentitiesCommand(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identities",
		Short: "Manage identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var (
		password    string
		displayName string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an active identity and print its ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				i, err := app.Addresses.CreateIdentity(ctx, displayName, password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&password, "password", "", "Initial password (checked against the password policy)")
	create.Flags().StringVar(&displayName, "display-name", "", "Human readable name")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

func newAddressesCommand(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addresses",
		Short: "Manage the email addresses of an identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var sendVerification bool
	add := &cobra.Command{
		Use:   "add <identity-id> <address>",
		Short: "Register an unverified address for an identity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid identity id %q: %w", args[0], err)
			}
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				addr, err := app.Addresses.AddAddress(ctx, ownerID, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), addr.ID)

				if !sendVerification {
					return nil
				}
				if _, err := app.Verification.RequestVerification(ctx, addr.Address); err != nil {
					return fmt.Errorf("address added but verification email failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "verification email sent")
				return nil
			})
		},
	}
	add.Flags().BoolVar(&sendVerification, "send-verification", false, "Send a verification email after adding the address")

	list := &cobra.Command{
		Use:   "list <identity-id>",
		Short: "List the addresses of an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid identity id %q: %w", args[0], err)
			}
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				addresses, err := app.Addresses.ListAddresses(ctx, ownerID)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tADDRESS\tVERIFIED\tCREATED")
				for _, a := range addresses {
					fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", a.ID, a.Address, a.IsVerified, a.CreatedAt.Format("2006-01-02 15:04:05"))
				}
				return w.Flush()
			})
		},
	}

	remove := &cobra.Command{
		Use:   "delete <address-id>",
		Short: "Delete an address together with its pending verification and reset tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addressID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid address id %q: %w", args[0], err)
			}
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				deleted, err := app.Addresses.DeleteAddress(ctx, addressID)
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("address %s not found", addressID)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "address deleted")
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}
