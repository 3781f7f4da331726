package main

import (
	"github.com/spf13/cobra"
)

func newFacetsCmd(opts *rootOptions) *cobra.Command {
	var narrow bool
	var flags criteriaFlags
	cmd := &cobra.Command{
		Use:   "facets",
		Short: "Show the distinct values of every filter dimension",
		Long: `Show the years, categories, companies, clients, roles and tags present in
the dataset, plus the tag tree pruned to used tags. With --narrow the values
are computed from the projects matching the criteria instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			facets := catalog.Facets()
			if narrow {
				facets = catalog.FacetsFor(catalog.Filter(flags.criteria(catalog.Hierarchy())))
			}

			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), facets)
			}
			opts.printer(cmd).PrintFacets(facets)
			return nil
		},
	}
	cmd.Flags().BoolVar(&narrow, "narrow", false, "Compute facets from the filtered projects")
	flags.register(cmd)
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var flags criteriaFlags
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the (filtered) projects by year, category, client and tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			stats := catalog.Stats(catalog.Filter(flags.criteria(catalog.Hierarchy())))

			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			opts.printer(cmd).PrintStats(stats)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newMarkersCmd(opts *rootOptions) *cobra.Command {
	var flags criteriaFlags
	cmd := &cobra.Command{
		Use:   "markers",
		Short: "List map markers for the (filtered) projects",
		Long: `List a map marker, coloured by company, for every filtered project with
usable coordinates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			markers := catalog.Markers(catalog.Filter(flags.criteria(catalog.Hierarchy())))

			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), markers)
			}
			opts.printer(cmd).PrintMarkers(markers)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
