package main

import (
	"context"
	"fmt"

	"github.com/pillow12360/eureka-ssul/internal/bootstrap"
	"github.com/pillow12360/eureka-ssul/internal/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "eurekactl",
	Short:         "Maintenance commands for eureka-ssul",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd, adminCmd, recountCmd)
}

// loadRuntime connects with the same configuration the server uses.
func loadRuntime(ctx context.Context) (*bootstrap.Runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
}
