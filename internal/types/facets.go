package types

// UnknownYear buckets records with no parseable year.
const UnknownYear = "Unknown"

// Facets holds the distinct values available for each filter dimension.
type Facets struct {
	Years      []string  `json:"years"`
	Clients    []string  `json:"clients"`
	Companies  []string  `json:"companies"`
	Categories []string  `json:"categories"`
	Roles      []string  `json:"roles"`
	Tags       []string  `json:"tags"`
	TagTree    []TagNode `json:"tag_tree,omitempty"`
}

// Count is a label with the number of records carrying it.
type Count struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Stats summarizes a set of projects for the dashboard widgets.
type Stats struct {
	Total      int     `json:"total"`
	ByYear     []Count `json:"by_year"`
	ByCategory []Count `json:"by_category"`
	TopClients []Count `json:"top_clients"`
	TopTags    []Count `json:"top_tags"`
}
