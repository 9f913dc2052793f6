package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/riskibarqy/matchboard/external/livescore"
	"github.com/riskibarqy/matchboard/internal/config"
	"github.com/riskibarqy/matchboard/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/matchboard/internal/interfaces/channel"
	"github.com/riskibarqy/matchboard/internal/interfaces/httpapi"
	idgen "github.com/riskibarqy/matchboard/internal/platform/id"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/riskibarqy/matchboard/internal/platform/resilience"
	"github.com/riskibarqy/matchboard/internal/usecase"
)

// App owns the HTTP server and the background collaborators that must be
// stopped with it.
type App struct {
	Server *http.Server

	hub            *channel.Hub
	refresher      *usecase.RefreshService
	refreshEnabled bool
	logger         *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	store := memory.NewMatchStore(idgen.NewUUIDGenerator("m-"), logger)

	layout := usecase.DefaultLayoutConfig()
	if cfg.LayoutScreenHeight > 0 {
		layout.ScreenHeight = cfg.LayoutScreenHeight
	}
	if cfg.LayoutMaxHeightFraction > 0 {
		layout.MaxHeightFraction = cfg.LayoutMaxHeightFraction
	}
	tracker := usecase.NewTrackerService(store, usecase.NewBoardBuilder(layout, cfg.BoardCloseWhenEmpty), logger)

	hub := channel.NewHub(tracker, channel.HubConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		IDs:            idgen.NewUUIDGenerator("ch-"),
		Logger:         logger,
	})
	tracker.AttachChannels(hub, hub)

	fetcher := livescore.NewClient(livescore.ClientConfig{
		Timeout:    cfg.RefreshFetchTimeout,
		MaxRetries: cfg.FetchMaxRetries,
		UserAgent:  cfg.FetchUserAgent,
		CacheTTL:   cfg.FetchDocumentCacheTTL,
		Layout:     livescore.DefaultFragmentLayout(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FetchCircuitEnabled,
			FailureThreshold: cfg.FetchCircuitFailureCount,
			OpenTimeout:      cfg.FetchCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FetchCircuitHalfOpenMaxReq,
		},
		Logger: logger,
	})

	refresher := usecase.NewRefreshService(store, fetcher, tracker, usecase.RefreshConfig{
		Interval:     cfg.RefreshInterval,
		FetchTimeout: cfg.RefreshFetchTimeout,
		MaxWorkers:   cfg.RefreshMaxWorkers,
	}, logger)

	handler := httpapi.NewHandler(tracker, refresher, logger)
	router := httpapi.NewRouter(handler, hub, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	return &App{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		hub:            hub,
		refresher:      refresher,
		refreshEnabled: cfg.RefreshEnabled,
		logger:         logger,
	}, nil
}

// Start launches the refresh scheduler when it is enabled. The HTTP server is
// started by the caller.
func (a *App) Start(ctx context.Context) {
	if !a.refreshEnabled {
		a.logger.Info("refresh scheduler disabled", "reason", "REFRESH_ENABLED=false")
		return
	}
	a.refresher.Start(ctx)
}

func (a *App) Shutdown(ctx context.Context) error {
	a.refresher.Stop()
	a.hub.Close()
	return a.Server.Shutdown(ctx)
}
