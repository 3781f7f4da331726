// Package observability provides formatted terminal output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonathan/portfolio-engine/internal/portfolio"
	"github.com/jonathan/portfolio-engine/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow caps list previews inside boxes
	maxItemsToShow = 12
	// maxCellWidth truncates long table cells
	maxCellWidth = 48
)

// Printer handles formatted output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

func preview(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	shown := values[:min(len(values), maxItemsToShow)]
	out := strings.Join(shown, ", ")
	if extra := len(values) - len(shown); extra > 0 {
		out += fmt.Sprintf(" … and %d more", extra)
	}
	return out
}

// PrintProjects renders the filtered projects as a table.
func (p *Printer) PrintProjects(projects []types.Project, total int) {
	t := p.newTable(fmt.Sprintf("PROJECTS (%d of %d)", len(projects), total))
	t.AppendHeader(table.Row{"Name", "Client", "Company", "Category", "Dates", "Tags"})
	for _, pr := range projects {
		t.AppendRow(table.Row{
			truncate(pr.Name, maxCellWidth),
			truncate(pr.Client, maxCellWidth/2),
			truncate(pr.Company, maxCellWidth/2),
			truncate(pr.Category, maxCellWidth/2),
			dates(pr),
			truncate(strings.Join(pr.Tags, ", "), maxCellWidth),
		})
	}
	t.Render()
}

func dates(p types.Project) string {
	switch {
	case p.StartDate != "" && p.EndDate != "":
		return p.StartDate + " – " + p.EndDate
	case p.StartDate != "":
		return p.StartDate
	case p.Year != "":
		return p.Year
	default:
		return types.UnknownYear
	}
}

// PrintFacets outputs the available filter values and the pruned tag tree.
func (p *Printer) PrintFacets(f types.Facets) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Years:      %s\n", preview(f.Years))
	fmt.Fprintf(&sb, "Categories: %s\n", preview(f.Categories))
	fmt.Fprintf(&sb, "Companies:  %s\n", preview(f.Companies))
	fmt.Fprintf(&sb, "Clients:    %s\n", preview(f.Clients))
	fmt.Fprintf(&sb, "Roles:      %s\n", preview(f.Roles))
	fmt.Fprintf(&sb, "Tags:       %s\n", preview(f.Tags))

	if len(f.TagTree) > 0 {
		sb.WriteString("\nTag tree:\n")
		writeTree(&sb, f.TagTree, 1)
	}

	p.printBox("FACETS", sb.String())
}

func writeTree(sb *strings.Builder, nodes []types.TagNode, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(sb, "%s• %s\n", strings.Repeat("  ", depth), n.Label)
		writeTree(sb, n.Children, depth+1)
	}
}

// PrintStats renders the dashboard summaries.
func (p *Printer) PrintStats(s types.Stats) {
	p.printBox("STATS", fmt.Sprintf("Projects: %d", s.Total))
	p.printCounts("BY YEAR", s.ByYear)
	p.printCounts("BY CATEGORY", s.ByCategory)
	p.printCounts("TOP CLIENTS", s.TopClients)
	p.printCounts("TOP TAGS", s.TopTags)
}

func (p *Printer) printCounts(title string, counts []types.Count) {
	if len(counts) == 0 {
		return
	}
	t := p.newTable(title)
	t.AppendHeader(table.Row{"Name", "Projects"})
	for _, c := range counts {
		t.AppendRow(table.Row{c.Name, c.Value})
	}
	t.Render()
}

// PrintMarkers lists map placements.
func (p *Printer) PrintMarkers(markers []types.Marker) {
	t := p.newTable(fmt.Sprintf("MARKERS (%d)", len(markers)))
	t.AppendHeader(table.Row{"Name", "Company", "Lon", "Lat", "Color"})
	for _, m := range markers {
		t.AppendRow(table.Row{
			truncate(m.Name, maxCellWidth),
			m.Company,
			fmt.Sprintf("%.5f", m.Lon),
			fmt.Sprintf("%.5f", m.Lat),
			m.Color,
		})
	}
	t.Render()
}

// PrintBadges lists the badge catalog.
func (p *Printer) PrintBadges(badges []types.Badge) {
	t := p.newTable(fmt.Sprintf("BADGES (%d)", len(badges)))
	t.AppendHeader(table.Row{"ID", "Name", "Description"})
	for _, b := range badges {
		t.AppendRow(table.Row{b.ID, b.Name, b.Description})
	}
	t.Render()
}

// PrintReport outputs a dataset validation report. Nothing is printed for
// a nil report.
func (p *Printer) PrintReport(r *portfolio.Report) {
	if r == nil {
		return
	}

	status := "OK"
	if !r.OK() {
		status = "FAILED"
	}
	p.printBox("DATASET VALIDATION", fmt.Sprintf(
		"Records:  %d\nErrors:   %d\nWarnings: %d\nStatus:   %s",
		r.Records, len(r.Errors), len(r.Warnings), status,
	))

	issues := append(append([]portfolio.Issue{}, r.Errors...), r.Warnings...)
	if len(issues) == 0 {
		return
	}
	t := p.newTable("")
	t.AppendHeader(table.Row{"Severity", "Record", "Field", "Message"})
	for _, i := range issues {
		t.AppendRow(table.Row{string(i.Severity), truncate(i.Record, maxCellWidth/2), i.Field, truncate(i.Message, maxCellWidth)})
	}
	t.Render()
}

// PrintTray lists unlocked badges with their display state.
func (p *Printer) PrintTray(tray []types.TrayBadge, total int) {
	t := p.newTable(fmt.Sprintf("UNLOCKED %d/%d", len(tray), total))
	t.AppendHeader(table.Row{"ID", "Name", "Unlocked", "State"})
	for _, b := range tray {
		state := "collapsed"
		switch {
		case b.Recent && !b.Dismissed:
			state = "recent"
		case !b.Collapsed:
			state = "expanded"
		}
		t.AppendRow(table.Row{b.ID, b.Name, b.UnlockedAt.Format("2006-01-02 15:04:05"), state})
	}
	t.Render()
}
