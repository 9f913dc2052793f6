package match

import "strings"

// EventType names an inbound message from a producer.
type EventType string

const (
	EventAddMatch      EventType = "addMatch"
	EventRemoveMatch   EventType = "removeMatch"
	EventUpdateMatches EventType = "updateMatches"
	EventPing          EventType = "ping"
)

// MatchPayload is a raw match record scraped by a producer. Nothing in it is
// trusted; Normalize must run before the record reaches the store.
type MatchPayload struct {
	ID            string `json:"id,omitempty"`
	MatchID       string `json:"matchId,omitempty"`
	InternalID    int64  `json:"internalId,omitempty"`
	CompetitionID string `json:"competitionId,omitempty"`
	HomeTeam      string `json:"homeTeam,omitempty"`
	AwayTeam      string `json:"awayTeam,omitempty"`
	HomeScore     string `json:"homeScore,omitempty"`
	AwayScore     string `json:"awayScore,omitempty"`
	Time          string `json:"time,omitempty"`
	Stage         string `json:"stage,omitempty"`
	URL           string `json:"url,omitempty"`
	HomeLogo      string `json:"homeLogo,omitempty"`
	AwayLogo      string `json:"awayLogo,omitempty"`
	HomeHref      string `json:"homeHref,omitempty"`
	AwayHref      string `json:"awayHref,omitempty"`
}

type CompetitionPayload struct {
	ID            string `json:"id,omitempty"`
	Title         string `json:"title,omitempty"`
	Category      string `json:"category,omitempty"`
	Sport         string `json:"sport,omitempty"`
	Logo          string `json:"logo,omitempty"`
	Href          string `json:"href,omitempty"`
	HrefWithParam string `json:"hrefWithParam,omitempty"`
}

type AddMatch struct {
	Match         MatchPayload        `json:"match"`
	Competition   *CompetitionPayload `json:"competition,omitempty"`
	OriginChannel string              `json:"originChannel,omitempty"`
}

type RemoveMatch struct {
	MatchID string `json:"matchId"`
}

type ReconcileSnapshot struct {
	Matches       []MatchPayload       `json:"matches"`
	Competitions  []CompetitionPayload `json:"competitions,omitempty"`
	OriginChannel string               `json:"originChannel,omitempty"`
}

type Ping struct{}

type Pong struct {
	Matches int `json:"matches"`
}

// Normalize trims every field and fills display defaults. The origin channel
// is stamped by the caller.
func (p MatchPayload) Normalize(originChannel string) Match {
	return Match{
		OverlayID:     strings.TrimSpace(p.ID),
		ExternalID:    strings.TrimSpace(p.MatchID),
		InternalRefID: max(p.InternalID, 0),
		CompetitionID: strings.TrimSpace(p.CompetitionID),
		HomeTeam:      FirstNonBlank(p.HomeTeam, PlaceholderHomeTeam),
		AwayTeam:      FirstNonBlank(p.AwayTeam, PlaceholderAwayTeam),
		HomeScore:     strings.TrimSpace(p.HomeScore),
		AwayScore:     strings.TrimSpace(p.AwayScore),
		Time:          strings.TrimSpace(p.Time),
		Stage:         strings.TrimSpace(p.Stage),
		SourceURL:     strings.TrimSpace(p.URL),
		HomeLogo:      strings.TrimSpace(p.HomeLogo),
		AwayLogo:      strings.TrimSpace(p.AwayLogo),
		HomeHref:      strings.TrimSpace(p.HomeHref),
		AwayHref:      strings.TrimSpace(p.AwayHref),
		OriginChannel: strings.TrimSpace(originChannel),
	}
}

// Normalize returns nil when the payload carries no usable identity.
func (p *CompetitionPayload) Normalize() *Competition {
	if p == nil {
		return nil
	}
	item := Competition{
		ID:            strings.TrimSpace(p.ID),
		Title:         strings.TrimSpace(p.Title),
		Category:      strings.TrimSpace(p.Category),
		Sport:         strings.TrimSpace(p.Sport),
		Logo:          strings.TrimSpace(p.Logo),
		Href:          strings.TrimSpace(p.Href),
		HrefWithParam: strings.TrimSpace(p.HrefWithParam),
	}
	if ResolveCompetitionID(item) == "" {
		return nil
	}
	return &item
}

// CommandType names an outbound message addressed to one producer.
type CommandType string

const (
	CommandNavigate CommandType = "navigate"
	CommandUncheck  CommandType = "uncheck"
)

type Command struct {
	Type    CommandType `json:"type"`
	Href    string      `json:"href,omitempty"`
	MatchID string      `json:"matchId,omitempty"`
}

func NavigateCommand(href string) Command {
	return Command{Type: CommandNavigate, Href: href}
}

func UncheckCommand(matchID string) Command {
	return Command{Type: CommandUncheck, MatchID: matchID}
}
