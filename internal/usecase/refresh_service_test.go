package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/matchboard/internal/domain/board"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/infrastructure/repository/memory"
	usecasemock "github.com/riskibarqy/matchboard/internal/mocks/usecase"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fetchFunc func(ctx context.Context, target match.RefreshTarget) (match.RefreshResult, error)

func (f fetchFunc) FetchMatch(ctx context.Context, target match.RefreshTarget) (match.RefreshResult, error) {
	return f(ctx, target)
}

func seedRefreshStore(t *testing.T, count int) *memory.MatchStore {
	t.Helper()

	store := newTestMatchStore()
	for i := 1; i <= count; i++ {
		store.Upsert(match.Match{
			OverlayID: fmt.Sprintf("m%d", i),
			SourceURL: fmt.Sprintf("https://example.com/match/%d", i),
			Time:      "15:00",
		}, nil)
	}
	return store
}

func targetID(matchID string) any {
	return mock.MatchedBy(func(target match.RefreshTarget) bool { return target.ID == matchID })
}

func TestRefreshService_PartialFailureStillUpdatesOthers(t *testing.T) {
	t.Parallel()

	store := seedRefreshStore(t, 5)
	fetcher := usecasemock.NewDocumentFetcher(t)
	renderer := usecasemock.NewBoardRenderer(t)

	for _, failing := range []string{"m1", "m3", "m5"} {
		fetcher.On("FetchMatch", mock.Anything, targetID(failing)).
			Return(match.RefreshResult{}, errors.New("connection reset")).Once()
	}
	for _, ok := range []string{"m2", "m4"} {
		fetcher.On("FetchMatch", mock.Anything, targetID(ok)).
			Return(match.RefreshResult{Time: "67'", HomeScore: "2", AwayScore: "1", Found: match.RefreshTime | match.RefreshHomeScore | match.RefreshAwayScore}, nil).Once()
	}
	renderer.On("Rerender", mock.Anything).Return(board.Board{}).Once()

	svc := NewRefreshService(store, fetcher, renderer, RefreshConfig{FetchTimeout: time.Second, MaxWorkers: 3}, logging.NewNop())
	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, 5, result.Tracked)
	require.Equal(t, 2, result.Updated)
	require.Equal(t, 3, result.Failed)
	require.True(t, result.Rendered)

	for _, matchID := range []string{"m2", "m4"} {
		got, _ := store.Get(matchID)
		require.Equal(t, "67'", got.Time)
		require.Equal(t, "2", got.HomeScore)
	}
	for _, matchID := range []string{"m1", "m3", "m5"} {
		got, ok := store.Get(matchID)
		require.True(t, ok, "failed fetch must not remove the match")
		require.Equal(t, "15:00", got.Time)
	}
}

func TestRefreshService_NoUpdateNoRender(t *testing.T) {
	t.Parallel()

	store := seedRefreshStore(t, 2)
	renderer := usecasemock.NewBoardRenderer(t)
	fetcher := fetchFunc(func(context.Context, match.RefreshTarget) (match.RefreshResult, error) {
		return match.RefreshResult{}, errors.New("fragment missing")
	})

	svc := NewRefreshService(store, fetcher, renderer, RefreshConfig{}, logging.NewNop())
	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Failed)
	require.False(t, result.Rendered)
	renderer.AssertNotCalled(t, "Rerender", mock.Anything)
}

func TestRefreshService_SkipsMatchesWithoutSource(t *testing.T) {
	t.Parallel()

	store := newTestMatchStore()
	store.Upsert(match.Match{OverlayID: "no-url"}, nil)

	var calls atomic.Int32
	fetcher := fetchFunc(func(context.Context, match.RefreshTarget) (match.RefreshResult, error) {
		calls.Add(1)
		return match.RefreshResult{}, nil
	})

	svc := NewRefreshService(store, fetcher, nil, RefreshConfig{}, logging.NewNop())
	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.Tracked)
	require.Equal(t, int32(0), calls.Load())
}

func TestRefreshService_DiscardsMergeForRemovedMatch(t *testing.T) {
	t.Parallel()

	store := seedRefreshStore(t, 1)
	renderer := usecasemock.NewBoardRenderer(t)
	fetcher := fetchFunc(func(_ context.Context, target match.RefreshTarget) (match.RefreshResult, error) {
		store.Remove(target.ID)
		return match.RefreshResult{Time: "1'", Found: match.RefreshTime}, nil
	})

	svc := NewRefreshService(store, fetcher, renderer, RefreshConfig{}, logging.NewNop())
	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Discarded)
	require.Equal(t, 0, result.Updated)
	require.Equal(t, 0, store.Len())
	renderer.AssertNotCalled(t, "Rerender", mock.Anything)
}

func TestRefreshService_MissingFieldsKeepStoredValues(t *testing.T) {
	t.Parallel()

	store := newTestMatchStore()
	store.Upsert(match.Match{
		OverlayID: "m1",
		SourceURL: "https://example.com/match/1",
		Time:      "67'",
		Stage:     "2ª parte",
		HomeScore: "2",
		AwayScore: "1",
	}, nil)

	renderer := usecasemock.NewBoardRenderer(t)
	renderer.On("Rerender", mock.Anything).Return(board.Board{}).Once()
	fetcher := fetchFunc(func(context.Context, match.RefreshTarget) (match.RefreshResult, error) {
		return match.RefreshResult{Time: "70'", Found: match.RefreshTime}, nil
	})

	svc := NewRefreshService(store, fetcher, renderer, RefreshConfig{}, logging.NewNop())
	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)

	got, _ := store.Get("m1")
	require.Equal(t, "70'", got.Time)
	require.Equal(t, "2ª parte", got.Stage)
	require.Equal(t, "2", got.HomeScore)
	require.Equal(t, "1", got.AwayScore)
}

func TestRefreshService_UnchangedResultDoesNotRender(t *testing.T) {
	t.Parallel()

	store := seedRefreshStore(t, 2)
	renderer := usecasemock.NewBoardRenderer(t)
	fetcher := fetchFunc(func(context.Context, match.RefreshTarget) (match.RefreshResult, error) {
		return match.RefreshResult{Time: "15:00", Found: match.RefreshTime}, nil
	})

	svc := NewRefreshService(store, fetcher, renderer, RefreshConfig{}, logging.NewNop())
	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Unchanged)
	require.Zero(t, result.Updated)
	require.Zero(t, result.Discarded)
	require.False(t, result.Rendered)
	renderer.AssertNotCalled(t, "Rerender", mock.Anything)
}

type purgingFetcher struct {
	fetchFunc
	purges atomic.Int32
}

func (f *purgingFetcher) PurgeDocuments() int {
	f.purges.Add(1)
	return 0
}

func TestRefreshService_PurgesDocumentCacheEachCycle(t *testing.T) {
	t.Parallel()

	fetcher := &purgingFetcher{fetchFunc: func(context.Context, match.RefreshTarget) (match.RefreshResult, error) {
		return match.RefreshResult{}, errors.New("offline")
	}}

	svc := NewRefreshService(seedRefreshStore(t, 1), fetcher, nil, RefreshConfig{}, logging.NewNop())
	for i := 0; i < 2; i++ {
		_, err := svc.RunOnce(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, int32(2), fetcher.purges.Load())
}

func TestRefreshService_TimeoutAndPanicAreIsolated(t *testing.T) {
	t.Parallel()

	store := seedRefreshStore(t, 3)
	renderer := usecasemock.NewBoardRenderer(t)
	renderer.On("Rerender", mock.Anything).Return(board.Board{}).Once()

	fetcher := fetchFunc(func(ctx context.Context, target match.RefreshTarget) (match.RefreshResult, error) {
		switch target.ID {
		case "m1":
			<-ctx.Done()
			return match.RefreshResult{}, ctx.Err()
		case "m2":
			panic("parser exploded")
		default:
			return match.RefreshResult{Stage: "Descanso", Time: "45'", Found: match.RefreshTime | match.RefreshStage}, nil
		}
	})

	svc := NewRefreshService(store, fetcher, renderer, RefreshConfig{FetchTimeout: 20 * time.Millisecond}, logging.NewNop())
	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Failed)
	require.Equal(t, 1, result.Updated)

	got, _ := store.Get("m3")
	require.Equal(t, "Descanso", got.Stage)
}

func TestRefreshService_StartStop(t *testing.T) {
	t.Parallel()

	store := seedRefreshStore(t, 1)
	var calls atomic.Int32
	fetcher := fetchFunc(func(context.Context, match.RefreshTarget) (match.RefreshResult, error) {
		calls.Add(1)
		return match.RefreshResult{}, errors.New("offline")
	})

	svc := NewRefreshService(store, fetcher, nil, RefreshConfig{Interval: 10 * time.Millisecond}, logging.NewNop())
	svc.Start(context.Background())
	svc.Start(context.Background())

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		svc.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("Stop did not return")
	}

	after := calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, after, calls.Load())

	svc.Stop()
}

func TestRefreshService_StopsWithContext(t *testing.T) {
	t.Parallel()

	svc := NewRefreshService(newTestMatchStore(), nil, nil, RefreshConfig{Interval: 5 * time.Millisecond}, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("loop did not exit after context cancellation")
	}
}
