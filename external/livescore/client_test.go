package livescore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/cache"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/riskibarqy/matchboard/internal/platform/resilience"
	"github.com/riskibarqy/matchboard/internal/usecase"
)

func newTestClient(cfg ClientConfig) *Client {
	cfg.Logger = logging.NewNop()
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Millisecond
	}
	return NewClient(cfg)
}

func TestClient_FetchMatch(t *testing.T) {
	t.Parallel()

	var userAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.UserAgent())
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(htmlDocument))
	}))
	defer server.Close()

	client := newTestClient(ClientConfig{UserAgent: "matchboard-test"})
	got, err := client.FetchMatch(context.Background(), match.RefreshTarget{ID: "m-1", ExternalID: "ext-3", SourceURL: server.URL + "/partido/3"})
	if err != nil {
		t.Fatalf("FetchMatch error: %v", err)
	}
	if got.ID != "m-1" || got.Stage != "Finalizado" || got.AwayScore != "3" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if userAgent.Load() != "matchboard-test" {
		t.Fatalf("unexpected user agent: %v", userAgent.Load())
	}
}

func TestClient_SharedDocumentFetchedOnce(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(htmlDocument))
	}))
	defer server.Close()

	client := newTestClient(ClientConfig{CacheTTL: time.Minute})

	var wg sync.WaitGroup
	for _, externalID := range []string{"ext-1", "ext-2", "ext-3"} {
		wg.Add(1)
		go func(externalID string) {
			defer wg.Done()
			if _, err := client.FetchMatch(context.Background(), match.RefreshTarget{ExternalID: externalID, SourceURL: server.URL + "/jornada"}); err != nil {
				t.Errorf("FetchMatch error: %v", err)
			}
		}(externalID)
	}
	wg.Wait()

	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one upstream request, got %d", got)
	}
}

func TestClient_EvictsDocumentWithoutMatch(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = w.Write([]byte("<html><body><p>loading</p></body></html>"))
			return
		}
		_, _ = w.Write([]byte(htmlDocument))
	}))
	defer server.Close()

	client := newTestClient(ClientConfig{CacheTTL: time.Minute})
	target := match.RefreshTarget{ID: "m-1", ExternalID: "ext-2", SourceURL: server.URL + "/partido/2"}

	if _, err := client.FetchMatch(context.Background(), target); !errors.Is(err, ErrFragmentNotFound) {
		t.Fatalf("expected ErrFragmentNotFound, got %v", err)
	}
	got, err := client.FetchMatch(context.Background(), target)
	if err != nil {
		t.Fatalf("FetchMatch error: %v", err)
	}
	if got.Time != "67'" || hits.Load() != 2 {
		t.Fatalf("expected a fresh fetch after eviction: time=%q hits=%d", got.Time, hits.Load())
	}
}

func TestClient_PurgeDocumentsDropsExpired(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(htmlDocument))
	}))
	defer server.Close()

	client := newTestClient(ClientConfig{CacheTTL: time.Minute})
	for _, path := range []string{"/a", "/b"} {
		if _, err := client.FetchDocument(context.Background(), server.URL+path); err != nil {
			t.Fatalf("FetchDocument error: %v", err)
		}
	}
	if removed := client.PurgeDocuments(); removed != 0 {
		t.Fatalf("expected fresh documents to survive, purged %d", removed)
	}

	client.documents = cache.NewStore[[]byte](time.Nanosecond)
	if _, err := client.FetchDocument(context.Background(), server.URL+"/c"); err != nil {
		t.Fatalf("FetchDocument error: %v", err)
	}
	time.Sleep(time.Millisecond)
	if removed := client.PurgeDocuments(); removed != 1 {
		t.Fatalf("expected 1 expired document, purged %d", removed)
	}
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"ov-1","time":"3'"}]`))
	}))
	defer server.Close()

	client := newTestClient(ClientConfig{MaxRetries: 2})
	got, err := client.FetchMatch(context.Background(), match.RefreshTarget{OverlayID: "ov-1", SourceURL: server.URL})
	if err != nil {
		t.Fatalf("FetchMatch error: %v", err)
	}
	if got.Time != "3'" || hits.Load() != 3 {
		t.Fatalf("unexpected result=%+v hits=%d", got, hits.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(ClientConfig{MaxRetries: 3})
	if _, err := client.FetchDocument(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error for 404")
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", hits.Load())
	}
}

func TestClient_FollowsRedirect(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(htmlDocument))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(ClientConfig{})
	got, err := client.FetchMatch(context.Background(), match.RefreshTarget{OverlayID: "ov-2", SourceURL: server.URL + "/old"})
	if err != nil {
		t.Fatalf("FetchMatch error: %v", err)
	}
	if got.Time != "67'" {
		t.Fatalf("unexpected result after redirect: %+v", got)
	}
}

func TestClient_CircuitBreakerOpensPerHost(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(ClientConfig{CircuitBreaker: resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	}})

	for i := 0; i < 2; i++ {
		if _, err := client.FetchDocument(context.Background(), server.URL); err == nil {
			t.Fatalf("expected failure %d", i)
		}
	}
	_, err := client.FetchDocument(context.Background(), server.URL)
	if !crerr.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected open circuit error, got %v", err)
	}
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected wrapped ErrCircuitOpen, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected open circuit to short-circuit, hits=%d", hits.Load())
	}
}

func TestClient_RejectsUnsupportedURL(t *testing.T) {
	t.Parallel()

	client := newTestClient(ClientConfig{})
	for _, raw := range []string{"", "ftp://example.com/x", "/relative/path"} {
		if _, err := client.FetchDocument(context.Background(), raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestClient_HonorsContextDeadline(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(htmlDocument))
	}))
	defer server.Close()

	client := newTestClient(ClientConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := client.FetchDocument(ctx, server.URL); err == nil {
		t.Fatalf("expected deadline error")
	}
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Fatalf("fetch did not honor deadline, took %s", elapsed)
	}
}
