// Package achievements implements the badge unlock state machine fed by
// interaction signals.
package achievements

import (
	"time"

	"github.com/jonathan/portfolio-engine/internal/types"
)

// Badge ids.
const (
	SectionScout         = "section-scout"
	BubbleCollector100   = "bubble-collector-100"
	BubbleCollector1000  = "bubble-collector-1000"
	BubbleCollector5000  = "bubble-collector-5000"
	BuddaBadge           = "budda-badge"
	ProjectFirstSteps    = "project-first-steps"
	ProjectExplorer      = "project-explorer"
	ProjectCompletionist = "project-completionist"
	JournalReader        = "journal-reader"
	Journeyman           = "journeyman"
	FooterFriend         = "footer-friend"
	FiveMinuteMark       = "five-minute-mark"
	QuarterHour          = "quarter-hour"
	HourMark             = "hour-mark"
	SpaceNerd            = "space-nerd"
)

var catalog = []types.Badge{
	{ID: SectionScout, Name: "Section Scout", Description: "Visited every main section.", Icon: "badge-sections.svg"},
	{ID: BubbleCollector100, Name: "Bubble Novice", Description: "Collected 100 floating bubbles.", Icon: "badge-bubbles.svg"},
	{ID: BubbleCollector1000, Name: "Bubble Enthusiast", Description: "Collected 1,000 floating bubbles.", Icon: "badge-bubbles.svg"},
	{ID: BubbleCollector5000, Name: "Bubble Master", Description: "Collected 5,000 floating bubbles.", Icon: "badge-bubbles.svg"},
	{ID: BuddaBadge, Name: "Budda Badge", Description: "Rubbed the portrait head area.", Icon: "badge-budda.svg"},
	{ID: ProjectFirstSteps, Name: "First Steps", Description: "Opened your first project card.", Icon: "badge-project-1.svg"},
	{ID: ProjectExplorer, Name: "Project Explorer", Description: "Opened 10 project cards.", Icon: "badge-project-10.svg"},
	{ID: ProjectCompletionist, Name: "Project Completionist", Description: "Opened every project card.", Icon: "badge-project-all.svg"},
	{ID: JournalReader, Name: "Journal Reader", Description: "Opened a journal paper link.", Icon: "badge-journal.svg"},
	{ID: Journeyman, Name: "Journeyman", Description: "Opened every role in the professional journey.", Icon: "badge-journeyman.svg"},
	{ID: FooterFriend, Name: "Footer Friend", Description: "Clicked every footer link.", Icon: "badge-footer.svg"},
	{ID: FiveMinuteMark, Name: "Five Minute Mark", Description: "Spent five minutes on the page.", Icon: "badge-time-1.svg"},
	{ID: QuarterHour, Name: "Quarter Hour", Description: "Spent fifteen minutes on the page.", Icon: "badge-time-5.svg"},
	{ID: HourMark, Name: "Hour Mark", Description: "Spent one hour on the page.", Icon: "badge-time-15.svg"},
	{ID: SpaceNerd, Name: "Space Nerd", Description: "Entered space nerd mode.", Icon: "badge-space-nerd.svg"},
}

// Catalog returns a copy of the badge catalog in display order.
func Catalog() []types.Badge {
	out := make([]types.Badge, len(catalog))
	copy(out, catalog)
	return out
}

// Threshold unlocks Badge once a counter reaches At.
type Threshold struct {
	At    int
	Badge string
}

// Milestone unlocks Badge after a fixed time on the page.
type Milestone struct {
	After time.Duration
	Badge string
}

// Rules holds the unlock predicates' parameters.
type Rules struct {
	// RequiredSections must all be seen for SectionScout.
	RequiredSections []string
	// MinVisibleRatio is the visibility a section report needs to count.
	MinVisibleRatio float64

	BubbleThresholds []Threshold
	// ProjectExplorerAt is the distinct-project count for ProjectExplorer.
	ProjectExplorerAt int
	// FooterLinksRequired is the distinct-link count for FooterFriend.
	FooterLinksRequired int

	Milestones []Milestone

	// DwellDuration is the continuous time inside the head zone for BuddaBadge.
	DwellDuration time.Duration
	// HeadZoneRatio is the fraction of the portrait height, from the top,
	// that counts as the head zone.
	HeadZoneRatio float64
}

// DefaultRules returns the production rule set.
func DefaultRules() Rules {
	return Rules{
		RequiredSections: []string{"skills", "timeline", "achievements", "projects", "footer"},
		MinVisibleRatio:  0.45,
		BubbleThresholds: []Threshold{
			{At: 100, Badge: BubbleCollector100},
			{At: 1000, Badge: BubbleCollector1000},
			{At: 5000, Badge: BubbleCollector5000},
		},
		ProjectExplorerAt:   10,
		FooterLinksRequired: 4,
		Milestones: []Milestone{
			{After: 5 * time.Minute, Badge: FiveMinuteMark},
			{After: 15 * time.Minute, Badge: QuarterHour},
			{After: time.Hour, Badge: HourMark},
		},
		DwellDuration: 10 * time.Second,
		HeadZoneRatio: 0.45,
	}
}

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// InHeadZone reports whether (x, y) lies horizontally within r and no lower
// than ratio of r's height below its top edge.
func (r Rect) InHeadZone(x, y, ratio float64) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	if x < r.Left || x > r.Left+r.Width {
		return false
	}
	return y >= r.Top && y <= r.Top+r.Height*ratio
}
