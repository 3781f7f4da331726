package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/portfolio-engine/internal/filter"
)

func newExportTagsCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-tags",
		Short: "Export the tag hierarchy as CSV",
		Long: `Write the tag hierarchy as "Top Level Tag,Sub Tag" rows. Tags used by
projects but missing from the hierarchy are listed under "(Uncategorized)".
Writes to stdout unless --out is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := opts.loadDataset()
			if err != nil {
				return err
			}

			data, orphans, err := filter.TagCSV(ds.Hierarchy, ds.Projects)
			if err != nil {
				return fmt.Errorf("failed to export tags: %w", err)
			}
			if orphans > 0 {
				opts.logger.Warn("tags missing from hierarchy", zap.Int("count", orphans))
			}

			if out == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}

			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported tag hierarchy (%d uncategorized)\n", orphans)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Path to output CSV file")
	return cmd
}
