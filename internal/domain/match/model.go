package match

import "time"

const (
	// DefaultCompetitionKey groups matches that carry neither a competition id
	// nor stage text.
	DefaultCompetitionKey = "default"

	PlaceholderHomeTeam = "Local"
	PlaceholderAwayTeam = "Visitante"
)

// Match is one pinned sporting event.
type Match struct {
	ID            string
	OverlayID     string
	ExternalID    string
	InternalRefID int64
	CompetitionID string
	HomeTeam      string
	AwayTeam      string
	HomeScore     string
	AwayScore     string
	Time          string
	Stage         string
	SourceURL     string
	HomeLogo      string
	AwayLogo      string
	HomeHref      string
	AwayHref      string
	OriginChannel string
	RawDocument   string
	Seq           uint64
	UpdatedAt     time.Time
}

// Competition is one league or tournament.
type Competition struct {
	ID            string
	Title         string
	Category      string
	Sport         string
	Logo          string
	Href          string
	HrefWithParam string
}

// Snapshot is an immutable point-in-time copy of the store. Matches are in
// insertion order.
type Snapshot struct {
	Matches      []Match
	Competitions map[string]Competition
}

func (s Snapshot) Competition(id string) (Competition, bool) {
	if s.Competitions == nil {
		return Competition{}, false
	}
	item, ok := s.Competitions[id]
	return item, ok
}

// RefreshTarget carries what the fetch collaborator needs to locate a match
// inside its source document.
type RefreshTarget struct {
	ID            string
	OverlayID     string
	ExternalID    string
	InternalRefID int64
	SourceURL     string
}

// RefreshField flags one mutable field of a match.
type RefreshField uint8

const (
	RefreshTime RefreshField = 1 << iota
	RefreshStage
	RefreshHomeScore
	RefreshAwayScore

	RefreshAllFields = RefreshTime | RefreshStage | RefreshHomeScore | RefreshAwayScore
)

// RefreshResult holds the mutable fields extracted from a re-fetched document.
// Found marks the fields the document actually carried; the others keep their
// stored value on merge.
type RefreshResult struct {
	ID          string
	Time        string
	Stage       string
	HomeScore   string
	AwayScore   string
	RawDocument string
	Found       RefreshField
}

func (r RefreshResult) Has(field RefreshField) bool {
	return r.Found&field == field
}

// Apply returns item with every found field of r written over it.
func (r RefreshResult) Apply(item Match) Match {
	if r.Has(RefreshTime) {
		item.Time = r.Time
	}
	if r.Has(RefreshStage) {
		item.Stage = r.Stage
	}
	if r.Has(RefreshHomeScore) {
		item.HomeScore = r.HomeScore
	}
	if r.Has(RefreshAwayScore) {
		item.AwayScore = r.AwayScore
	}
	return item
}

func (m Match) RefreshTarget() RefreshTarget {
	return RefreshTarget{
		ID:            m.ID,
		OverlayID:     m.OverlayID,
		ExternalID:    m.ExternalID,
		InternalRefID: m.InternalRefID,
		SourceURL:     m.SourceURL,
	}
}
