package types

import "time"

// Badge is a static catalog entry for a one-time achievement.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// TrayBadge is an unlocked badge with its current display state.
type TrayBadge struct {
	Badge
	UnlockedAt time.Time `json:"unlocked_at"`
	Recent     bool      `json:"recent"`
	Dismissed  bool      `json:"dismissed"`
	Collapsed  bool      `json:"collapsed"`
}

// BadgeSnapshotVersion tags persisted snapshots and is the default storage key.
const BadgeSnapshotVersion = "portfolio-badges-v1"

// BadgeSnapshot is the persisted form of achievement state. Every set is a
// plain array so the record stays portable.
type BadgeSnapshot struct {
	Version     string            `json:"version"`
	Unlocked    []string          `json:"unlocked"`
	UnlockedAt  map[string]string `json:"unlocked_at,omitempty"`
	Dismissed   []string          `json:"dismissed"`
	BubbleCount int               `json:"bubble_count"`
	Projects    []string          `json:"projects"`
	Roles       []string          `json:"roles"`
	FooterLinks []string          `json:"footer_links"`
	Sections    []string          `json:"sections"`
}
