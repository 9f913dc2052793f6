package livescore

import (
	"context"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/cache"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/riskibarqy/matchboard/internal/platform/resilience"
	"github.com/riskibarqy/matchboard/internal/usecase"
	"github.com/valyala/fasthttp"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultUserAgent    = "matchboard/1.0"
	defaultMaxBodyBytes = 4 << 20
	defaultRetryBackoff = 500 * time.Millisecond
	maxRedirects        = 3
)

var errLivescoreTransient = crerr.New("livescore transient failure")

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	UserAgent      string
	MaxBodyBytes   int
	CacheTTL       time.Duration
	Layout         FragmentLayout
	CircuitBreaker resilience.CircuitBreakerConfig
	Logger         *logging.Logger
}

// Client fetches match documents and locates the fragment of one match in
// them. It implements usecase.DocumentFetcher.
type Client struct {
	httpClient   *fasthttp.Client
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	userAgent    string
	layout       FragmentLayout
	documents    *cache.Store[[]byte]
	breakers     *resilience.BreakerSet
	logger       *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := match.FirstNonBlank(cfg.UserAgent, defaultUserAgent)
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                userAgent,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxBody,
		}
	}

	return &Client{
		httpClient:   httpClient,
		timeout:      timeout,
		maxRetries:   max(cfg.MaxRetries, 0),
		retryBackoff: backoff,
		userAgent:    userAgent,
		layout:       cfg.Layout.normalize(),
		documents:    cache.NewStore[[]byte](cfg.CacheTTL),
		breakers:     resilience.NewBreakerSet(cfg.CircuitBreaker),
		logger:       logger.Named("livescore"),
	}
}

var (
	_ usecase.DocumentFetcher     = (*Client)(nil)
	_ usecase.DocumentCachePurger = (*Client)(nil)
)

// FetchMatch locates target inside its source document. A document that no
// longer holds the match is evicted so the next cycle fetches it again.
func (c *Client) FetchMatch(ctx context.Context, target match.RefreshTarget) (match.RefreshResult, error) {
	documentURL, err := normalizeDocumentURL(target.SourceURL)
	if err != nil {
		return match.RefreshResult{}, err
	}
	raw, err := c.fetchDocument(ctx, documentURL)
	if err != nil {
		return match.RefreshResult{}, err
	}

	result, err := ParseDocument(raw, target, c.layout)
	if err != nil {
		c.documents.Delete(ctx, documentURL.String())
		return match.RefreshResult{}, crerr.Wrapf(err, "locate match %s", target.ID)
	}
	return result, nil
}

// FetchDocument returns the body behind rawURL. Concurrent and recent calls
// for the same URL share one request.
func (c *Client) FetchDocument(ctx context.Context, rawURL string) ([]byte, error) {
	documentURL, err := normalizeDocumentURL(rawURL)
	if err != nil {
		return nil, err
	}
	return c.fetchDocument(ctx, documentURL)
}

// PurgeDocuments drops expired cached documents and reports how many went.
func (c *Client) PurgeDocuments() int {
	return c.documents.Purge()
}

func (c *Client) fetchDocument(ctx context.Context, documentURL *url.URL) ([]byte, error) {
	return c.documents.GetOrLoad(ctx, documentURL.String(), func(ctx context.Context) ([]byte, error) {
		return c.fetchGuarded(ctx, documentURL)
	})
}

func (c *Client) fetchGuarded(ctx context.Context, documentURL *url.URL) ([]byte, error) {
	if !c.breakers.Enabled() {
		return c.executeRequest(ctx, documentURL.String())
	}

	breaker := c.breakers.Get(documentURL.Host)
	if err := breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "livescore circuit breaker rejected request", "host", documentURL.Host, "state", breaker.State())
		return nil, crerr.Mark(crerr.Wrapf(err, "host %s", documentURL.Host), usecase.ErrDependencyUnavailable)
	}

	raw, err := c.executeRequest(ctx, documentURL.String())
	breaker.Record(isCircuitFailure(err))
	return raw, err
}

func (c *Client) executeRequest(ctx context.Context, documentURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		raw, err := c.doRequest(ctx, documentURL)
		if err == nil {
			return raw, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		if !crerr.Is(err, errLivescoreTransient) || attempt == c.maxRetries {
			break
		}

		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "livescore request failed", "url", documentURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, documentURL string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	current := documentURL
	for redirects := 0; ; redirects++ {
		req.Reset()
		resp.Reset()
		req.SetRequestURI(current)
		req.Header.SetMethod(fasthttp.MethodGet)
		req.Header.SetUserAgent(c.userAgent)
		req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")

		if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
			if crerr.Is(err, fasthttp.ErrBodyTooLarge) {
				return nil, crerr.Wrap(err, "read document")
			}
			return nil, crerr.Mark(crerr.Wrap(err, "send request"), errLivescoreTransient)
		}

		status := resp.StatusCode()
		if fasthttp.StatusCodeIsRedirect(status) && redirects < maxRedirects {
			location := string(resp.Header.Peek(fasthttp.HeaderLocation))
			next, err := resolveRedirect(current, location)
			if err != nil {
				return nil, err
			}
			current = next
			continue
		}

		switch {
		case status >= 200 && status < 300:
			return append([]byte(nil), resp.Body()...), nil
		case isRetryableStatus(status):
			return nil, crerr.Mark(crerr.Newf("document status=%d", status), errLivescoreTransient)
		default:
			return nil, crerr.Newf("document status=%d", status)
		}
	}
}

func normalizeDocumentURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, crerr.New("source url is empty")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, crerr.Wrapf(err, "parse %q", rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, crerr.Newf("%q uses unsupported scheme=%q; expected http or https", rawURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, crerr.Newf("%q has empty host", rawURL)
	}
	parsed.Fragment = ""
	return parsed, nil
}

func resolveRedirect(current, location string) (string, error) {
	if strings.TrimSpace(location) == "" {
		return "", crerr.New("redirect without location")
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", current)
	}
	next, err := base.Parse(location)
	if err != nil {
		return "", crerr.Wrapf(err, "parse redirect %q", location)
	}
	return next.String(), nil
}

func isRetryableStatus(status int) bool {
	return status == fasthttp.StatusTooManyRequests || status >= 500
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return crerr.Is(err, errLivescoreTransient) ||
		crerr.Is(err, context.DeadlineExceeded)
}
