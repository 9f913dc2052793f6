package usecase

import (
	"fmt"
	"testing"

	"github.com/riskibarqy/matchboard/internal/domain/board"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/matchboard/internal/platform/id"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
)

func newTestMatchStore() *memory.MatchStore {
	return memory.NewMatchStore(&id.Sequence{Prefix: "gen-"}, logging.NewNop())
}

func TestBoardBuilder_EndToEndGrouping(t *testing.T) {
	t.Parallel()

	store := newTestMatchStore()
	builder := NewBoardBuilder(DefaultLayoutConfig(), false)

	store.Upsert(match.Match{OverlayID: "A", HomeTeam: "Betis", AwayTeam: "Sevilla"}, nil)
	got := builder.Build(store.Snapshot())
	if len(got.Sports) != 1 || len(got.Sports[0].Competitions) != 1 {
		t.Fatalf("unexpected hierarchy after first add: %+v", got)
	}
	fallback := got.Sports[0].Competitions[0]
	if fallback.ID != match.DefaultCompetitionKey || fallback.Title != match.FallbackCompetition {
		t.Fatalf("expected default/Otros group, got id=%q title=%q", fallback.ID, fallback.Title)
	}

	store.Upsert(
		match.Match{OverlayID: "B", CompetitionID: "X"},
		&match.Competition{ID: "X", Title: "Copa", Category: "España", Href: "/futbol/copa/"},
	)
	got = builder.Build(store.Snapshot())
	if got.TotalMatches != 2 || got.CompetitionCount != 2 {
		t.Fatalf("unexpected counts: total=%d competitions=%d", got.TotalMatches, got.CompetitionCount)
	}
	if groupOf(got, "B") != "X" || groupOf(got, "A") != match.DefaultCompetitionKey {
		t.Fatalf("unexpected grouping: B in %q, A in %q", groupOf(got, "B"), groupOf(got, "A"))
	}

	store.Remove("A")
	got = builder.Build(store.Snapshot())
	if len(got.Sports) != 1 {
		t.Fatalf("expected one sport group, got %d", len(got.Sports))
	}
	competitions := got.Sports[0].Competitions
	if len(competitions) != 1 || competitions[0].ID != "X" || competitions[0].Title != "Copa" {
		t.Fatalf("expected only competition X, got %+v", competitions)
	}
	if len(competitions[0].Matches) != 1 || competitions[0].Matches[0].ID != "B" {
		t.Fatalf("expected [B], got %+v", competitions[0].Matches)
	}
	if got.Sports[0].Name != "Futbol" {
		t.Fatalf("expected sport derived from href, got %q", got.Sports[0].Name)
	}
}

func TestBoardBuilder_DeterministicOrdering(t *testing.T) {
	t.Parallel()

	snapshot := match.Snapshot{
		Matches: []match.Match{
			{ID: "m5", Seq: 5, CompetitionID: "Inglaterra:Premier League"},
			{ID: "m1", Seq: 1, CompetitionID: "c-tenis"},
			{ID: "m3", Seq: 3, CompetitionID: "España:LaLiga"},
			{ID: "m2", Seq: 2, CompetitionID: "España:LaLiga"},
			{ID: "m4", Seq: 4, CompetitionID: "c-baloncesto"},
			{ID: "m6", Seq: 6, Stage: "Amistoso"},
		},
		Competitions: map[string]match.Competition{
			"c-tenis":      {ID: "c-tenis", Title: "ATP Madrid", Sport: "Tenis"},
			"c-baloncesto": {ID: "c-baloncesto", Title: "ACB", Href: "/baloncesto/acb/"},
		},
	}

	builder := NewBoardBuilder(DefaultLayoutConfig(), false)
	first := builder.Build(snapshot)
	for i := 0; i < 20; i++ {
		again := builder.Build(snapshot)
		if fmt.Sprintf("%+v", again) != fmt.Sprintf("%+v", first) {
			t.Fatalf("board ordering is not deterministic")
		}
	}

	var sports []string
	for _, sport := range first.Sports {
		sports = append(sports, sport.Name)
	}
	if fmt.Sprint(sports) != "[Baloncesto Otros Tenis]" {
		t.Fatalf("unexpected sport order: %v", sports)
	}

	otros := first.Sports[1].Competitions
	var titles []string
	for _, competition := range otros {
		titles = append(titles, competition.Title)
	}
	if fmt.Sprint(titles) != "[Amistoso LaLiga Premier League]" {
		t.Fatalf("unexpected competition order: %v", titles)
	}
	laLiga := otros[1]
	if laLiga.Category != "España" || laLiga.Matches[0].ID != "m2" || laLiga.Matches[1].ID != "m3" {
		t.Fatalf("unexpected LaLiga group: %+v", laLiga)
	}
}

func TestBoardBuilder_PresentationDefaults(t *testing.T) {
	t.Parallel()

	builder := NewBoardBuilder(DefaultLayoutConfig(), false)
	got := builder.Build(match.Snapshot{Matches: []match.Match{
		{ID: "m1", Seq: 1, Time: "45'"},
		{ID: "m2", Seq: 2, Time: "90' Final", HomeTeam: "Betis", HomeLogo: "betis.png"},
	}})

	rows := got.Sports[0].Competitions[0].Matches
	if rows[0].HomeTeam != "Local" || rows[0].AwayTeam != "Visitante" {
		t.Fatalf("expected placeholder team names, got %q/%q", rows[0].HomeTeam, rows[0].AwayTeam)
	}
	if rows[0].HomeLogo != board.PlaceholderLogo || rows[1].HomeLogo != "betis.png" {
		t.Fatalf("unexpected logos: %q %q", rows[0].HomeLogo, rows[1].HomeLogo)
	}
	if !rows[0].Blinking || rows[0].State != match.StateLive {
		t.Fatalf("expected live blinking row, got %+v", rows[0])
	}
	if rows[1].State != match.StateFinished || rows[1].DisplayStage != "Final" || rows[1].DisplayTime != "90'" {
		t.Fatalf("unexpected finished row: %+v", rows[1])
	}
	if got.LiveCount != 1 || got.Sports[0].Competitions[0].LiveCount != 1 {
		t.Fatalf("unexpected live count: %d", got.LiveCount)
	}
	if got.Sports[0].Competitions[0].Logo != board.PlaceholderLogo {
		t.Fatalf("expected placeholder competition logo")
	}
}

func TestBoardBuilder_EmptyAndVisible(t *testing.T) {
	t.Parallel()

	layout := DefaultLayoutConfig()

	open := NewBoardBuilder(layout, false).Build(match.Snapshot{})
	if !open.Empty || !open.Visible || open.Height != layout.EmptyStateHeight {
		t.Fatalf("unexpected empty board: %+v", open)
	}
	if open.Sports == nil {
		t.Fatalf("expected empty slice, not nil")
	}

	closing := NewBoardBuilder(layout, true).Build(match.Snapshot{})
	if !closing.Empty || closing.Visible {
		t.Fatalf("expected hidden empty board, got %+v", closing)
	}

	filled := NewBoardBuilder(layout, true).Build(match.Snapshot{Matches: []match.Match{{ID: "m1", Seq: 1}}})
	if filled.Empty || !filled.Visible {
		t.Fatalf("expected visible board, got %+v", filled)
	}
	if want := layout.DisplayHeight(1, 1, 1); filled.Height != want {
		t.Fatalf("unexpected height: got=%d want=%d", filled.Height, want)
	}
}

func TestResolveGroupCompetition(t *testing.T) {
	t.Parallel()

	snapshot := match.Snapshot{Competitions: map[string]match.Competition{
		"X": {ID: "X", Category: "Copa"},
	}}

	cases := []struct {
		key, title, category string
	}{
		{key: "X", title: "Copa", category: "Copa"},
		{key: "Italia:Serie A", title: "Serie A", category: "Italia"},
		{key: "default", title: "Otros"},
		{key: "Amistoso", title: "Amistoso"},
	}
	for _, tc := range cases {
		got := ResolveGroupCompetition(tc.key, snapshot)
		if got.Title != tc.title || got.Category != tc.category {
			t.Fatalf("ResolveGroupCompetition(%q)=%+v want title=%q category=%q", tc.key, got, tc.title, tc.category)
		}
	}
}

func groupOf(item board.Board, matchID string) string {
	for _, sport := range item.Sports {
		for _, competition := range sport.Competitions {
			for _, row := range competition.Matches {
				if row.ID == matchID {
					return competition.ID
				}
			}
		}
	}
	return ""
}
