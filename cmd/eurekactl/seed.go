package main

import (
	"github.com/pillow12360/eureka-ssul/internal/seed"

	"github.com/spf13/cobra"
)

var (
	seedProfiles    int
	seedMaxComments int
	seedFixtures    string
	seedDryRun      bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with demo profiles",
	Long: `Create demo profiles and comments through the services, so counters stay correct.

With --fixtures the profiles come from a YAML file; otherwise they are generated.

Examples:
  eurekactl seed --profiles 20
  eurekactl seed --fixtures testdata/profiles.yml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}
		s := seed.NewSeeder(rt.Services, seed.Options{
			Profiles:    seedProfiles,
			MaxComments: seedMaxComments,
			DryRun:      seedDryRun,
		})

		var rep seed.Report
		if seedFixtures != "" {
			fx, err := seed.LoadFixtures(seedFixtures)
			if err != nil {
				return err
			}
			rep, err = s.Apply(ctx, fx)
			if err != nil {
				return err
			}
		} else {
			rep, err = s.Generate(ctx)
			if err != nil {
				return err
			}
		}
		cmd.Printf("created %d profiles and %d comments\n", rep.Profiles, rep.Comments)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedProfiles, "profiles", 10, "number of generated profiles")
	seedCmd.Flags().IntVar(&seedMaxComments, "max-comments", 4, "maximum comments per generated profile")
	seedCmd.Flags().StringVar(&seedFixtures, "fixtures", "", "YAML fixture file to apply instead of generating")
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "build the data without writing it")
}
