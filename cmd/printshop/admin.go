package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aliuyar1234/printshop/internal/app"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/config"
	"github.com/aliuyar1234/printshop/internal/db"
	"github.com/aliuyar1234/printshop/internal/live"
	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator maintenance commands",
	}
	cmd.PersistentFlags().String("db-dsn", "", "Postgres DSN (defaults to PS_DB_DSN)")

	cmd.AddCommand(
		newResetPasswordCmd(),
		newRepairMembersCmd(),
	)
	return cmd
}

func dsnFromEnv() (string, error) {
	dsn := strings.TrimSpace(os.Getenv("PS_DB_DSN"))
	if dsn == "" {
		return "", errors.New("PS_DB_DSN is required")
	}
	return dsn, nil
}

func adminDSN(cmd *cobra.Command) (string, error) {
	dsn, _ := cmd.Flags().GetString("db-dsn")
	if dsn = strings.TrimSpace(dsn); dsn != "" {
		return dsn, nil
	}
	dsn, err := dsnFromEnv()
	if err != nil {
		return "", fmt.Errorf("--db-dsn is required (or set PS_DB_DSN)")
	}
	return dsn, nil
}

func newResetPasswordCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a user's password",
		Long: `Set a user's password.

If --password is omitted, a random password is generated and printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return errors.New("--email is required")
			}
			dsn, err := adminDSN(cmd)
			if err != nil {
				return err
			}

			generated := false
			if password == "" {
				pw, err := generatePassword(24)
				if err != nil {
					return fmt.Errorf("failed to generate password: %w", err)
				}
				password = pw
				generated = true
			}

			passwordHash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			pool, err := db.Connect(ctx, dsn, db.DefaultPoolSettings())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			if err := auth.NewUsers(pool).SetPassword(ctx, email, passwordHash); err != nil {
				if errors.Is(err, auth.ErrUserNotFound) {
					return fmt.Errorf("no user found with email %q", email)
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Password updated.")
			if generated {
				fmt.Fprintln(cmd.OutOrStdout(), password)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().StringVar(&password, "password", "", "New password (if empty, generates one)")
	return cmd
}

func newRepairMembersCmd() *cobra.Command {
	var provisionOrphans bool

	cmd := &cobra.Command{
		Use:   "repair-members",
		Short: "Rebuild the member index and optionally provision orphaned users",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := adminDSN(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			pool, err := db.Connect(ctx, dsn, db.DefaultPoolSettings())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			// No server runs here, so changes have no live subscribers.
			services := app.NewServices(pool, &config.Config{DesignHourlyRate: config.DefaultDesignHourlyRate}, live.NewMemoryBus(), nil)

			repaired, err := services.Orgs.RepairMemberIndex(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Repaired %d organization(s).\n", repaired)

			if !provisionOrphans {
				return nil
			}

			users, err := services.Users.List(ctx)
			if err != nil {
				return err
			}
			identities := make([]auth.Identity, 0, len(users))
			for _, u := range users {
				identities = append(identities, u.Identity())
			}

			provisioned, err := services.Orgs.ProvisionOrphans(ctx, identities)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Provisioned %d organization(s) for users without one.\n", provisioned)
			return nil
		},
	}

	cmd.Flags().BoolVar(&provisionOrphans, "provision-orphans", false, "Create a personal organization for every user without one")
	return cmd
}

func generatePassword(bytesLen int) (string, error) {
	if bytesLen < 8 {
		bytesLen = 8
	}

	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	// URL-safe, printable, without padding.
	return base64.RawURLEncoding.EncodeToString(b), nil
}
