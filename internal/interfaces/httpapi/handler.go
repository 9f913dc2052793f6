package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/riskibarqy/matchboard/internal/usecase"
)

// ChannelServer upgrades websocket requests for producers and board viewers.
type ChannelServer interface {
	ServeProducer(w http.ResponseWriter, r *http.Request)
	ServeViewer(w http.ResponseWriter, r *http.Request)
}

type Handler struct {
	tracker   *usecase.TrackerService
	refresher *usecase.RefreshService
	logger    *logging.Logger
	validator *validator.Validate
}

func NewHandler(
	tracker *usecase.TrackerService,
	refresher *usecase.RefreshService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		tracker:   tracker,
		refresher: refresher,
		logger:    logger.Named("httpapi"),
		validator: validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetBoard")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, h.tracker.Board(ctx))
}

func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PostEvent")
	defer span.End()

	var req eventRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.tracker.HandleEvent(ctx, usecase.Event{
		Type:          match.EventType(strings.TrimSpace(req.Type)),
		OriginChannel: strings.TrimSpace(req.OriginChannel),
		Payload:       req.Payload,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "handle event failed", "type", req.Type, "origin_channel", req.OriginChannel, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) AddMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AddMatch")
	defer span.End()

	var req addMatchRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	matchID, ok := h.tracker.AddMatch(ctx, match.AddMatch{
		Match:         req.Match,
		Competition:   req.Competition,
		OriginChannel: req.OriginChannel,
	})
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: match has no usable identity", usecase.ErrInvalidInput))
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, matchMutationDTO{MatchID: matchID, Applied: true})
}

func (h *Handler) RemoveMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemoveMatch")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	if !h.tracker.RemoveMatch(ctx, matchID) {
		writeError(ctx, w, fmt.Errorf("%w: match %q", usecase.ErrNotFound, matchID))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchMutationDTO{MatchID: matchID, Applied: true})
}

func (h *Handler) ReconcileMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReconcileMatches")
	defer span.End()

	var req reconcileRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result := h.tracker.ReconcileSnapshot(ctx, match.ReconcileSnapshot{
		Matches:       req.Matches,
		Competitions:  req.Competitions,
		OriginChannel: req.OriginChannel,
	})

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) DismissMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DismissMatch")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	if err := h.tracker.Dismiss(ctx, matchID); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchMutationDTO{MatchID: matchID, Applied: true})
}

func (h *Handler) NavigateMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.NavigateMatch")
	defer span.End()

	var req navigateRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	if err := h.tracker.Navigate(ctx, matchID, req.Href); err != nil {
		h.logger.WarnContext(ctx, "navigate failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusAccepted, matchMutationDTO{MatchID: matchID, Applied: true})
}

func (h *Handler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.TriggerRefresh")
	defer span.End()

	if h.refresher == nil {
		writeError(ctx, w, fmt.Errorf("%w: refresh is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.refresher.RunOnce(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual refresh failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) decodeRequest(ctx context.Context, r *http.Request, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return h.validateRequest(ctx, dst)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type eventRequest struct {
	Type          string          `json:"type" validate:"required"`
	OriginChannel string          `json:"originChannel" validate:"omitempty,max=128"`
	Payload       json.RawMessage `json:"payload"`
}

type addMatchRequest struct {
	Match         match.MatchPayload        `json:"match"`
	Competition   *match.CompetitionPayload `json:"competition"`
	OriginChannel string                    `json:"originChannel" validate:"omitempty,max=128"`
}

type reconcileRequest struct {
	Matches       []match.MatchPayload       `json:"matches" validate:"max=500"`
	Competitions  []match.CompetitionPayload `json:"competitions" validate:"max=500"`
	OriginChannel string                     `json:"originChannel" validate:"omitempty,max=128"`
}

type navigateRequest struct {
	Href string `json:"href" validate:"required,max=2048"`
}

type matchMutationDTO struct {
	MatchID string `json:"matchId"`
	Applied bool   `json:"applied"`
}
