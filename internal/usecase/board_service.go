package usecase

import (
	"sort"
	"strings"

	"github.com/riskibarqy/matchboard/internal/domain/board"
	"github.com/riskibarqy/matchboard/internal/domain/match"
)

// BoardBuilder turns a store snapshot into the grouped board. It is pure: the
// same snapshot always yields the same board.
type BoardBuilder struct {
	layout         LayoutConfig
	closeWhenEmpty bool
}

func NewBoardBuilder(layout LayoutConfig, closeWhenEmpty bool) *BoardBuilder {
	return &BoardBuilder{
		layout:         layout.normalize(),
		closeWhenEmpty: closeWhenEmpty,
	}
}

type competitionBucket struct {
	key         string
	competition match.Competition
	sport       string
	matches     []match.Match
}

func (b *BoardBuilder) Build(snapshot match.Snapshot) board.Board {
	buckets := make(map[string]*competitionBucket)
	for _, item := range snapshot.Matches {
		key := GroupKey(item)
		bucket, ok := buckets[key]
		if !ok {
			competition := ResolveGroupCompetition(key, snapshot)
			bucket = &competitionBucket{
				key:         key,
				competition: competition,
				sport:       match.ResolveSport(competition),
			}
			buckets[key] = bucket
		}
		bucket.matches = append(bucket.matches, item)
	}

	bySport := make(map[string][]*competitionBucket)
	for _, bucket := range buckets {
		bySport[bucket.sport] = append(bySport[bucket.sport], bucket)
	}

	sportNames := make([]string, 0, len(bySport))
	for name := range bySport {
		sportNames = append(sportNames, name)
	}
	sort.Slice(sportNames, func(i, j int) bool {
		return lessFold(sportNames[i], sportNames[j])
	})

	out := board.Board{Sports: make([]board.SportGroup, 0, len(sportNames))}
	for _, name := range sportNames {
		group := bySport[name]
		sort.Slice(group, func(i, j int) bool {
			if group[i].competition.Title != group[j].competition.Title {
				return lessFold(group[i].competition.Title, group[j].competition.Title)
			}
			return group[i].key < group[j].key
		})

		sportGroup := board.SportGroup{
			Name:         name,
			Competitions: make([]board.CompetitionGroup, 0, len(group)),
		}
		for _, bucket := range group {
			competitionGroup := buildCompetitionGroup(bucket)
			out.TotalMatches += len(competitionGroup.Matches)
			out.LiveCount += competitionGroup.LiveCount
			sportGroup.Competitions = append(sportGroup.Competitions, competitionGroup)
		}
		out.CompetitionCount += len(sportGroup.Competitions)
		out.Sports = append(out.Sports, sportGroup)
	}

	out.Empty = out.TotalMatches == 0
	out.Visible = !(out.Empty && b.closeWhenEmpty)
	out.Height = b.layout.DisplayHeight(len(out.Sports), out.CompetitionCount, out.TotalMatches)
	return out
}

// GroupKey picks the first non-blank of competition id, stage text and the
// default key.
func GroupKey(item match.Match) string {
	return match.FirstNonBlank(item.CompetitionID, item.Stage, match.DefaultCompetitionKey)
}

// ResolveGroupCompetition finds the competition for a group key, or fabricates
// one from the key text when the store has none.
func ResolveGroupCompetition(key string, snapshot match.Snapshot) match.Competition {
	if competition, ok := snapshot.Competition(key); ok {
		if strings.TrimSpace(competition.Title) == "" {
			competition.Title = match.FirstNonBlank(competition.Category, key)
		}
		return competition
	}
	if category, title, ok := match.SplitCompetitionKey(key); ok {
		return match.Competition{
			ID:       key,
			Category: category,
			Title:    match.FirstNonBlank(title, category, key),
		}
	}
	if key == match.DefaultCompetitionKey {
		return match.Competition{ID: key, Title: match.FallbackCompetition}
	}
	return match.Competition{ID: key, Title: key}
}

func buildCompetitionGroup(bucket *competitionBucket) board.CompetitionGroup {
	sort.Slice(bucket.matches, func(i, j int) bool {
		if bucket.matches[i].Seq != bucket.matches[j].Seq {
			return bucket.matches[i].Seq < bucket.matches[j].Seq
		}
		return bucket.matches[i].ID < bucket.matches[j].ID
	})

	group := board.CompetitionGroup{
		ID:            bucket.key,
		Title:         bucket.competition.Title,
		Category:      bucket.competition.Category,
		Logo:          board.LogoOrPlaceholder(bucket.competition.Logo),
		Href:          bucket.competition.Href,
		HrefWithParam: bucket.competition.HrefWithParam,
		Matches:       make([]board.MatchView, 0, len(bucket.matches)),
	}
	for _, item := range bucket.matches {
		view := BuildMatchView(item)
		if view.State == match.StateLive {
			group.LiveCount++
		}
		group.Matches = append(group.Matches, view)
	}
	return group
}

// BuildMatchView classifies one match and applies presentation defaults.
func BuildMatchView(item match.Match) board.MatchView {
	classification := match.Describe(item.Time, item.Stage)
	return board.MatchView{
		ID:            item.ID,
		HomeTeam:      match.FirstNonBlank(item.HomeTeam, match.PlaceholderHomeTeam),
		AwayTeam:      match.FirstNonBlank(item.AwayTeam, match.PlaceholderAwayTeam),
		HomeScore:     item.HomeScore,
		AwayScore:     item.AwayScore,
		HomeLogo:      board.LogoOrPlaceholder(item.HomeLogo),
		AwayLogo:      board.LogoOrPlaceholder(item.AwayLogo),
		HomeHref:      item.HomeHref,
		AwayHref:      item.AwayHref,
		SourceURL:     item.SourceURL,
		State:         classification.State,
		DisplayState:  classification.DisplayState,
		DisplayTime:   classification.DisplayTime,
		DisplayStage:  classification.DisplayStage,
		Blinking:      classification.Blinking,
		OriginChannel: item.OriginChannel,
	}
}

// lessFold orders case-insensitively and falls back to a byte comparison so
// two titles differing only by case still have a fixed order.
func lessFold(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}
