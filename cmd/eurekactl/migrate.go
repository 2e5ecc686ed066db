package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/config"
	"github.com/pillow12360/eureka-ssul/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply, roll back or inspect SQL migrations",
	Long: `Manage the embedded SQL migrations.

Examples:
  eurekactl migrate up
  eurekactl migrate status
  eurekactl migrate down 2`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := migrateDB()
		if err != nil {
			return err
		}
		if err := database.RunMigrations(cmd.Context(), db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		cmd.Println("sql migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down <version>",
	Short: "Roll back one migration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		db, err := migrateDB()
		if err != nil {
			return err
		}
		if err := database.RollbackMigration(cmd.Context(), db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		cmd.Printf("rolled back migration %d\n", version)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether each is applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := migrateDB()
		if err != nil {
			return err
		}
		statuses, err := database.Status(cmd.Context(), db)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied() {
				state = "applied " + s.AppliedAt.Format(time.RFC3339)
			}
			cmd.Printf("%s\t%s\n", s.Migration, state)
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func migrateDB() (*gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
