package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/matchboard/internal/domain/board"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
)

// CommandSink delivers an outbound command to the producer behind an origin
// channel.
type CommandSink interface {
	Send(ctx context.Context, originChannel string, cmd match.Command) error
}

// BoardPublisher pushes a freshly built board to the presentation layer.
type BoardPublisher interface {
	PublishBoard(ctx context.Context, item board.Board) error
}

// Event is the generic inbound envelope. Payload is decoded according to Type.
type Event struct {
	Type          match.EventType `json:"type"`
	OriginChannel string          `json:"originChannel,omitempty"`
	Payload       []byte          `json:"-"`
}

type EventResult struct {
	Type      match.EventType        `json:"type"`
	Applied   bool                   `json:"applied"`
	MatchID   string                 `json:"matchId,omitempty"`
	Reconcile *match.ReconcileResult `json:"reconcile,omitempty"`
	Pong      *match.Pong            `json:"pong,omitempty"`
}

// TrackerService applies producer events to the store, answers viewer
// commands and re-renders the board after every applied mutation.
type TrackerService struct {
	store     match.Store
	builder   *BoardBuilder
	commands  CommandSink
	publisher BoardPublisher
	validate  *validator.Validate
	logger    *logging.Logger

	// renderMu keeps boards reaching the publisher in the order they were built.
	renderMu sync.Mutex
}

func NewTrackerService(store match.Store, builder *BoardBuilder, logger *logging.Logger) *TrackerService {
	if builder == nil {
		builder = NewBoardBuilder(DefaultLayoutConfig(), false)
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &TrackerService{
		store:    store,
		builder:  builder,
		validate: validator.New(),
		logger:   logger.Named("tracker"),
	}
}

// AttachChannels wires the outbound collaborators. It must run before the
// service starts receiving events.
func (s *TrackerService) AttachChannels(commands CommandSink, publisher BoardPublisher) {
	s.commands = commands
	s.publisher = publisher
}

func (s *TrackerService) HandleEvent(ctx context.Context, event Event) (EventResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackerService.HandleEvent")
	defer span.End()

	result := EventResult{Type: event.Type}
	switch event.Type {
	case match.EventAddMatch:
		var payload match.AddMatch
		if err := decodePayload(event.Payload, &payload); err != nil {
			return result, err
		}
		if strings.TrimSpace(payload.OriginChannel) == "" {
			payload.OriginChannel = event.OriginChannel
		}
		result.MatchID, result.Applied = s.AddMatch(ctx, payload)
	case match.EventRemoveMatch:
		var payload match.RemoveMatch
		if err := decodePayload(event.Payload, &payload); err != nil {
			return result, err
		}
		result.MatchID = strings.TrimSpace(payload.MatchID)
		result.Applied = s.RemoveMatch(ctx, payload.MatchID)
	case match.EventUpdateMatches:
		var payload match.ReconcileSnapshot
		if err := decodePayload(event.Payload, &payload); err != nil {
			return result, err
		}
		if strings.TrimSpace(payload.OriginChannel) == "" {
			payload.OriginChannel = event.OriginChannel
		}
		reconciled := s.ReconcileSnapshot(ctx, payload)
		result.Reconcile = &reconciled
		result.Applied = true
	case match.EventPing:
		pong := s.Ping(ctx)
		result.Pong = &pong
		result.Applied = true
	default:
		s.logger.WarnContext(ctx, "drop event with unknown type", "type", event.Type, "origin_channel", event.OriginChannel)
		return result, fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, event.Type)
	}

	return result, nil
}

// AddMatch normalizes an untrusted record and upserts it. A record that still
// has no usable identity is dropped and reported as not applied.
func (s *TrackerService) AddMatch(ctx context.Context, event match.AddMatch) (string, bool) {
	item := s.normalizeMatch(ctx, event.Match, event.OriginChannel)
	matchID, ok := s.store.Upsert(item, event.Competition.Normalize())
	if !ok {
		s.logger.WarnContext(ctx, "drop match without identity", "origin_channel", item.OriginChannel)
		return "", false
	}

	s.logger.InfoContext(ctx, "match tracked", "match_id", matchID, "origin_channel", item.OriginChannel)
	s.Rerender(ctx)
	return matchID, true
}

func (s *TrackerService) RemoveMatch(ctx context.Context, matchID string) bool {
	if !s.store.Remove(matchID) {
		return false
	}

	s.logger.InfoContext(ctx, "match removed", "match_id", strings.TrimSpace(matchID))
	s.Rerender(ctx)
	return true
}

func (s *TrackerService) ReconcileSnapshot(ctx context.Context, event match.ReconcileSnapshot) match.ReconcileResult {
	matches := make([]match.Match, 0, len(event.Matches))
	for _, payload := range event.Matches {
		matches = append(matches, s.normalizeMatch(ctx, payload, event.OriginChannel))
	}
	competitions := make([]match.Competition, 0, len(event.Competitions))
	for i := range event.Competitions {
		if item := event.Competitions[i].Normalize(); item != nil {
			competitions = append(competitions, *item)
		}
	}

	result := s.store.Reconcile(matches, competitions)
	s.logger.InfoContext(ctx, "snapshot reconciled",
		"upserted", result.Upserted,
		"removed", result.Removed,
		"dropped", result.Dropped,
	)
	s.Rerender(ctx)
	return result
}

func (s *TrackerService) Ping(_ context.Context) match.Pong {
	return match.Pong{Matches: s.store.Len()}
}

func (s *TrackerService) Board(ctx context.Context) board.Board {
	_, span := startUsecaseSpan(ctx, "usecase.TrackerService.Board")
	defer span.End()

	return s.builder.Build(s.store.Snapshot())
}

// Rerender rebuilds the board and publishes it. Publish failures are logged;
// the board is returned either way. Concurrent calls build and publish one at
// a time, so a board built from an older snapshot never follows a newer one.
func (s *TrackerService) Rerender(ctx context.Context) board.Board {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	item := s.Board(ctx)
	if s.publisher == nil {
		return item
	}
	if err := s.publisher.PublishBoard(ctx, item); err != nil {
		s.logger.WarnContext(ctx, "publish board failed", "error", err)
	}
	return item
}

// Navigate asks the producer that added the match to open href.
func (s *TrackerService) Navigate(ctx context.Context, matchID, href string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackerService.Navigate")
	defer span.End()

	href = strings.TrimSpace(href)
	if href == "" {
		return fmt.Errorf("%w: href is required", ErrInvalidInput)
	}
	item, ok := s.store.Get(matchID)
	if !ok {
		return fmt.Errorf("%w: match %q", ErrNotFound, matchID)
	}
	if err := s.send(ctx, item.OriginChannel, match.NavigateCommand(href)); err != nil {
		return err
	}
	return nil
}

// Dismiss removes a match on behalf of the viewer and tells its producer to
// uncheck it.
func (s *TrackerService) Dismiss(ctx context.Context, matchID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackerService.Dismiss")
	defer span.End()

	item, ok := s.store.Get(matchID)
	if !ok {
		return fmt.Errorf("%w: match %q", ErrNotFound, matchID)
	}
	s.store.Remove(item.ID)

	if err := s.send(ctx, item.OriginChannel, match.UncheckCommand(item.ID)); err != nil {
		s.logger.WarnContext(ctx, "send uncheck failed", "match_id", item.ID, "origin_channel", item.OriginChannel, "error", err)
	}
	s.Rerender(ctx)
	return nil
}

func (s *TrackerService) send(ctx context.Context, originChannel string, cmd match.Command) error {
	if s.commands == nil || strings.TrimSpace(originChannel) == "" {
		return fmt.Errorf("%w: no channel to deliver %s", ErrDependencyUnavailable, cmd.Type)
	}
	if err := s.commands.Send(ctx, originChannel, cmd); err != nil {
		return fmt.Errorf("%w: send %s: %v", ErrDependencyUnavailable, cmd.Type, err)
	}
	return nil
}

func (s *TrackerService) normalizeMatch(ctx context.Context, payload match.MatchPayload, originChannel string) match.Match {
	item := payload.Normalize(originChannel)
	if item.SourceURL != "" {
		if err := s.validate.Var(item.SourceURL, "http_url"); err != nil {
			s.logger.WarnContext(ctx, "clear invalid source url", "source_url", item.SourceURL, "error", err)
			item.SourceURL = ""
		}
	}
	return item
}

func decodePayload(raw []byte, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: payload is required", ErrInvalidInput)
	}
	if err := sonic.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: decode payload: %v", ErrInvalidInput, err)
	}
	return nil
}
