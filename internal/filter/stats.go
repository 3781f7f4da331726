package filter

import (
	"sort"

	"github.com/jonathan/portfolio-engine/internal/parsing"
	"github.com/jonathan/portfolio-engine/internal/types"
)

const (
	topClientLimit = 5
	topTagLimit    = 15

	otherCategory = "Other"
	unknownClient = "Unknown"
)

// Stats summarizes projects for the dashboard: total, count by first active
// year, count by category, top clients and top tags.
func (c *Catalog) Stats(projects []types.Project) types.Stats {
	now := c.now()
	byYear := map[string]int{}
	byCategory := map[string]int{}
	byClient := map[string]int{}
	byTag := map[string]int{}

	for _, p := range projects {
		labels := parsing.ProjectSpan(p, now).YearLabels()
		byYear[labels[0]]++

		cats := parsing.SplitList(p.Category)
		if len(cats) == 0 {
			cats = []string{otherCategory}
		}
		for _, cat := range cats {
			byCategory[cat]++
		}

		client := p.Client
		if client == "" {
			client = unknownClient
		}
		byClient[client]++

		for _, t := range p.Tags {
			byTag[t]++
		}
	}

	years := toCounts(byYear)
	order := SortYears(countNames(years))
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	sort.Slice(years, func(i, j int) bool {
		return rank[years[i].Name] < rank[years[j].Name]
	})

	return types.Stats{
		Total:      len(projects),
		ByYear:     years,
		ByCategory: byValue(toCounts(byCategory), 0),
		TopClients: byValue(toCounts(byClient), topClientLimit),
		TopTags:    byValue(toCounts(byTag), topTagLimit),
	}
}

func toCounts(m map[string]int) []types.Count {
	out := make([]types.Count, 0, len(m))
	for name, v := range m {
		out = append(out, types.Count{Name: name, Value: v})
	}
	return out
}

func countNames(counts []types.Count) []string {
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Name
	}
	return out
}

// byValue orders counts descending with names breaking ties, truncated to
// limit when limit > 0.
func byValue(counts []types.Count, limit int) []types.Count {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Value != counts[j].Value {
			return counts[i].Value > counts[j].Value
		}
		return counts[i].Name < counts[j].Name
	})
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
