package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pillow12360/eureka-ssul/internal/auth"

	"github.com/spf13/cobra"
)

var adminPassword string

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage the admin allow-list",
	Long: `Add or remove admin accounts. Only listed emails can use the admin sign-in.

Examples:
  eurekactl admin add ops@example.com --password 's3cret-pass'
  eurekactl admin remove ops@example.com`,
}

var adminAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Add an admin with a password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(adminPassword) < 8 {
			return errors.New("--password must be at least 8 characters")
		}
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}
		email := strings.ToLower(strings.TrimSpace(args[0]))
		if _, found, err := rt.Admins.GetByEmail(ctx, email); err != nil {
			return err
		} else if found {
			return fmt.Errorf("%s is already an admin", email)
		}
		hash, err := auth.HashPassword(adminPassword)
		if err != nil {
			return err
		}
		if _, err := rt.Admins.Create(ctx, email, hash); err != nil {
			return err
		}
		cmd.Printf("added admin %s\n", email)
		return nil
	},
}

var adminRemoveCmd = &cobra.Command{
	Use:   "remove <email>",
	Short: "Remove an admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}
		email := strings.ToLower(strings.TrimSpace(args[0]))
		if err := rt.Admins.Delete(ctx, email); err != nil {
			return err
		}
		cmd.Printf("removed admin %s\n", email)
		return nil
	},
}

func init() {
	adminAddCmd.Flags().StringVar(&adminPassword, "password", "", "admin sign-in password")
	_ = adminAddCmd.MarkFlagRequired("password")
	adminCmd.AddCommand(adminAddCmd, adminRemoveCmd)
}
