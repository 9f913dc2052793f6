package board

import "github.com/riskibarqy/matchboard/internal/domain/match"

// PlaceholderLogo is rendered in place of a missing competition or team logo.
const PlaceholderLogo = "placeholder"

// Board is the grouped, ordered, presentation-ready view of every tracked
// match. It is rebuilt from a store snapshot on every render.
type Board struct {
	Sports           []SportGroup `json:"sports"`
	TotalMatches     int          `json:"totalMatches"`
	CompetitionCount int          `json:"competitionCount"`
	LiveCount        int          `json:"liveCount"`
	Height           int          `json:"height"`
	Empty            bool         `json:"empty"`
	Visible          bool         `json:"visible"`
}

type SportGroup struct {
	Name         string             `json:"name"`
	Competitions []CompetitionGroup `json:"competitions"`
}

type CompetitionGroup struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Category      string      `json:"category,omitempty"`
	Logo          string      `json:"logo"`
	Href          string      `json:"href,omitempty"`
	HrefWithParam string      `json:"hrefWithParam,omitempty"`
	Matches       []MatchView `json:"matches"`
	LiveCount     int         `json:"liveCount"`
}

// MatchView is one rendered row.
type MatchView struct {
	ID            string      `json:"id"`
	HomeTeam      string      `json:"homeTeam"`
	AwayTeam      string      `json:"awayTeam"`
	HomeScore     string      `json:"homeScore"`
	AwayScore     string      `json:"awayScore"`
	HomeLogo      string      `json:"homeLogo"`
	AwayLogo      string      `json:"awayLogo"`
	HomeHref      string      `json:"homeHref,omitempty"`
	AwayHref      string      `json:"awayHref,omitempty"`
	SourceURL     string      `json:"url,omitempty"`
	State         match.State `json:"state"`
	DisplayState  match.State `json:"displayState"`
	DisplayTime   string      `json:"displayTime"`
	DisplayStage  string      `json:"displayStage"`
	Blinking      bool        `json:"blinking"`
	OriginChannel string      `json:"originChannel,omitempty"`
}

// LogoOrPlaceholder returns the placeholder marker for a blank logo.
func LogoOrPlaceholder(logo string) string {
	if logo == "" {
		return PlaceholderLogo
	}
	return logo
}
