package main

import (
	"github.com/pillow12360/eureka-ssul/internal/repository"

	"github.com/spf13/cobra"
)

var recountCmd = &cobra.Command{
	Use:   "recount [profileID]",
	Short: "Repair comment and like counters from the source rows",
	Long: `Recompute the denormalized comment and like counters.

Without an argument every profile is checked and only the repaired ones are printed.

Examples:
  eurekactl recount
  eurekactl recount 7f1c2a4e-3b9d-4c61-8f0a-2d5e6b7c8a90`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}

		var results []repository.RecountResult
		if len(args) == 1 {
			res, err := rt.Services.Profiles.RecountProfile(ctx, args[0])
			if err != nil {
				return err
			}
			results = append(results, *res)
		} else {
			results, err = rt.Services.Profiles.RecountAll(ctx)
			if err != nil {
				return err
			}
		}

		for _, r := range results {
			cmd.Printf("%s\tcomments=%d\tlikes=%d\tchanged=%t\n", r.ProfileID, r.Comments, r.LikeCount, r.Changed)
		}
		cmd.Printf("%d profile(s) reported\n", len(results))
		return nil
	},
}
