package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/portfolio-engine/internal/portfolio"
)

// errInvalidDataset is returned when validation finds errors. The report has
// already been printed by then.
var errInvalidDataset = errors.New("dataset has validation errors")

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var assetRoot string
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a project dataset against the schema and data-quality rules",
		Long: `Validate a project dataset. Schema violations, missing image files and
unparseable dates are reported; duplicate names and non-WebP images are
warnings. Exits non-zero when any error is found.

When a tag hierarchy is configured it is checked against its schema too.

The file defaults to the configured project dataset. Image paths are resolved
against --asset-root, which defaults to the dataset's directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.cfg.Projects
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no project dataset: pass a file or --projects")
			}

			root := assetRoot
			if root == "" {
				root = opts.cfg.AssetRoot
			}
			if root == "" {
				root = filepath.Dir(path)
			}

			report, err := portfolio.ValidateDatasetFile(path, portfolio.ValidateOptions{AssetRoot: root})
			if err != nil {
				return err
			}
			if opts.cfg.TagHierarchy != "" {
				tags, err := portfolio.ValidateHierarchyFile(opts.cfg.TagHierarchy)
				if err != nil {
					return err
				}
				report.Merge(tags)
			}

			if opts.jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				opts.printer(cmd).PrintReport(report)
			}

			if !report.OK() {
				return errInvalidDataset
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&assetRoot, "asset-root", "", "Directory image paths resolve against")
	return cmd
}
