package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/portfolio-engine/internal/achievements"
)

func newBadgesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "badges",
		Short: "List the achievement badge catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := achievements.Catalog()
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), catalog)
			}
			opts.printer(cmd).PrintBadges(catalog)
			return nil
		},
	}
}
