package main

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jonathan/portfolio-engine/internal/filter"
	"github.com/jonathan/portfolio-engine/internal/types"
)

// criteriaFlags binds the filter dimensions to repeatable flags. Every
// command that narrows the dataset shares them.
type criteriaFlags struct {
	text       string
	years      []string
	clients    []string
	companies  []string
	categories []string
	roles      []string
	tags       []string
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.text, "query", "q", "", "Case-insensitive free-text search")
	fs.StringArrayVar(&f.years, "year", nil, "Year label to include (repeatable)")
	fs.StringArrayVar(&f.clients, "client", nil, "Client to include (repeatable)")
	fs.StringArrayVar(&f.companies, "company", nil, "Company to include (repeatable)")
	fs.StringArrayVar(&f.categories, "category", nil, "Category to include (repeatable)")
	fs.StringArrayVar(&f.roles, "role", nil, "Project role to include (repeatable)")
	fs.StringArrayVar(&f.tags, "tag", nil, "Tag to include with its descendants (repeatable)")
}

// criteria converts the flags to query values so the CLI and the HTTP API
// share one parser.
func (f *criteriaFlags) criteria(hierarchy types.TagHierarchy) *filter.Criteria {
	values := url.Values{}
	if f.text != "" {
		values.Set("q", f.text)
	}
	values[string(filter.DimYears)] = f.years
	values[string(filter.DimClients)] = f.clients
	values[string(filter.DimCompanies)] = f.companies
	values[string(filter.DimCategories)] = f.categories
	values[string(filter.DimRoles)] = f.roles
	values[string(filter.DimTags)] = f.tags
	return filter.ParseCriteria(values, hierarchy)
}

type filterResult struct {
	Projects []types.Project  `json:"projects"`
	Count    int              `json:"count"`
	Total    int              `json:"total"`
	Criteria *filter.Criteria `json:"criteria"`
}

func newFilterCmd(opts *rootOptions) *cobra.Command {
	var flags criteriaFlags
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "List projects matching the given criteria",
		Long: `Filter the project dataset. Values within one dimension are OR-ed and
dimensions are AND-ed. Results are sorted most recent first; with no
criteria the dataset order is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			criteria := flags.criteria(catalog.Hierarchy())
			projects := catalog.Filter(criteria)

			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), filterResult{
					Projects: projects,
					Count:    len(projects),
					Total:    catalog.Len(),
					Criteria: criteria,
				})
			}
			opts.printer(cmd).PrintProjects(projects, catalog.Len())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
