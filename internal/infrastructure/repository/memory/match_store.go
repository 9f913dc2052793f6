package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/id"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
)

// MatchStore keeps every tracked match for the lifetime of the process. Every mutation holds the
// write lock for its whole duration, so Snapshot never sees a torn state.
type MatchStore struct {
	mu           sync.RWMutex
	matches      map[string]match.Match
	competitions map[string]match.Competition
	nextSeq      uint64
	ids          id.Generator
	now          func() time.Time
	logger       *logging.Logger
}

var _ match.Store = (*MatchStore)(nil)

func NewMatchStore(ids id.Generator, logger *logging.Logger) *MatchStore {
	if ids == nil {
		ids = id.NewUUIDGenerator("")
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &MatchStore{
		matches:      make(map[string]match.Match),
		competitions: make(map[string]match.Competition),
		ids:          ids,
		now:          time.Now,
		logger:       logger.Named("match_store"),
	}
}

func (s *MatchStore) Upsert(item match.Match, competition *match.Competition) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matchID := match.ExplicitID(item)
	if matchID == "" {
		matchID = match.ContentID(item)
	}
	if matchID == "" {
		generated, err := s.ids.NewID()
		if err != nil {
			s.logger.Warn("generate match id failed", "error", err)
			return "", false
		}
		matchID = strings.TrimSpace(generated)
	}
	if matchID == "" {
		return "", false
	}

	if competition != nil {
		if competitionID := s.upsertCompetitionLocked(*competition); competitionID != "" {
			item.CompetitionID = competitionID
		}
	}
	s.putLocked(matchID, item)
	return matchID, true
}

func (s *MatchStore) Remove(matchID string) bool {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[matchID]; !ok {
		return false
	}
	delete(s.matches, matchID)
	return true
}

// Reconcile applies a full snapshot: every entry is upserted, then every
// stored match absent from the snapshot is deleted. Entries without an
// identity get the same content-derived id Upsert would give them, so applying
// the same snapshot twice is a no-op the second time. Entries with neither an
// identity nor content are dropped.
func (s *MatchStore) Reconcile(matches []match.Match, competitions []match.Competition) match.ReconcileResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range competitions {
		s.upsertCompetitionLocked(item)
	}

	result := match.ReconcileResult{}
	keep := make(map[string]struct{}, len(matches))
	for _, item := range matches {
		matchID := match.ExplicitID(item)
		if matchID == "" {
			matchID = match.ContentID(item)
		}
		if matchID == "" {
			result.Dropped++
			continue
		}
		if _, seen := keep[matchID]; seen {
			result.Dropped++
		}
		keep[matchID] = struct{}{}
		s.putLocked(matchID, item)
	}
	result.Upserted = len(keep)

	for matchID := range s.matches {
		if _, ok := keep[matchID]; ok {
			continue
		}
		delete(s.matches, matchID)
		result.Removed++
	}

	return result
}

// MergeRefreshResult writes the fields the fetch actually found over an
// existing match. A result for a match removed in the meantime is discarded;
// a result that changes none of the visible fields leaves UpdatedAt alone.
func (s *MatchStore) MergeRefreshResult(result match.RefreshResult) match.MergeOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.matches[result.ID]
	if !ok {
		return match.MergeDiscarded
	}

	merged := result.Apply(item)
	if result.RawDocument != "" {
		merged.RawDocument = result.RawDocument
	}
	outcome := match.MergeUnchanged
	if merged.Time != item.Time || merged.Stage != item.Stage ||
		merged.HomeScore != item.HomeScore || merged.AwayScore != item.AwayScore {
		merged.UpdatedAt = s.now().UTC()
		outcome = match.MergeApplied
	}
	s.matches[result.ID] = merged
	return outcome
}

func (s *MatchStore) Get(matchID string) (match.Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.matches[strings.TrimSpace(matchID)]
	return item, ok
}

func (s *MatchStore) Snapshot() match.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := match.Snapshot{
		Matches:      make([]match.Match, 0, len(s.matches)),
		Competitions: make(map[string]match.Competition, len(s.competitions)),
	}
	for _, item := range s.matches {
		out.Matches = append(out.Matches, item)
	}
	for competitionID, item := range s.competitions {
		out.Competitions[competitionID] = item
	}

	sort.Slice(out.Matches, func(i, j int) bool {
		if out.Matches[i].Seq != out.Matches[j].Seq {
			return out.Matches[i].Seq < out.Matches[j].Seq
		}
		return out.Matches[i].ID < out.Matches[j].ID
	})
	return out
}

func (s *MatchStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.matches)
}

func (s *MatchStore) upsertCompetitionLocked(item match.Competition) string {
	competitionID := match.ResolveCompetitionID(item)
	if competitionID == "" {
		return ""
	}
	item.ID = competitionID
	s.competitions[competitionID] = item
	return competitionID
}

// putLocked overwrites the whole record. The insertion sequence survives an
// overwrite; a record inserted after removal gets a fresh one.
func (s *MatchStore) putLocked(matchID string, item match.Match) {
	item.ID = matchID
	if existing, ok := s.matches[matchID]; ok {
		item.Seq = existing.Seq
	} else {
		s.nextSeq++
		item.Seq = s.nextSeq
	}
	item.UpdatedAt = s.now().UTC()
	s.matches[matchID] = item
}
