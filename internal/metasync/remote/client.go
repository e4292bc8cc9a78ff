// Package remote implements metasync.Source over a metadata server's HTTP API.
//
// Requests are rate limited per host, bounded by a per-request timeout and retried with
// exponential backoff. Client errors (4xx) and undecodable bodies are not retried.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/metrics"
	"github.com/playlore/playlore-server/internal/ratelimit"
)

// Defaults applied to zero Config fields.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second

	maxErrorBody = 512
)

// Endpoint paths relative to the source base URL.
const (
	pathCount     = "/api/count"
	pathPlatforms = "/api/platforms"
	pathTags      = "/api/tags"
	pathGames     = "/api/games"
)

// Config configures a Client.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	HTTPClient      *http.Client
	Limiter         *ratelimit.KeyedRateLimiter
	Logger          *slog.Logger
}

// Client talks to one metadata source.
type Client struct {
	base   *url.URL
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New creates a client for the source at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, domainerrors.Validationf("invalid metadata source URL %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultMaxInterval
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		base:   base,
		cfg:    cfg,
		http:   httpClient,
		logger: logger.With("host", base.Host),
	}, nil
}

// CountSince returns the number of records of kind modified after the given time.
func (c *Client) CountSince(ctx context.Context, kind domain.SyncKind, after time.Time) (int, error) {
	q := url.Values{}
	q.Set("kind", string(kind))
	q.Set("after", formatAfter(after))

	var resp countResponse
	if err := c.get(ctx, pathCount, q, &resp); err != nil {
		return 0, err
	}
	return resp.Total, nil
}

// PlatformsSince returns platforms modified after the given time.
func (c *Client) PlatformsSince(ctx context.Context, after time.Time) (*domain.IdentityChanges, error) {
	q := url.Values{}
	q.Set("after", formatAfter(after))

	var resp platformsResponse
	if err := c.get(ctx, pathPlatforms, q, &resp); err != nil {
		return nil, err
	}
	return &domain.IdentityChanges{
		Records:   identities(resp.Platforms),
		Deletions: resp.Deletions,
	}, nil
}

// TagsSince returns categories and tags modified after the given time.
func (c *Client) TagsSince(ctx context.Context, after time.Time) (*domain.IdentityChanges, error) {
	q := url.Values{}
	q.Set("after", formatAfter(after))

	var resp tagsResponse
	if err := c.get(ctx, pathTags, q, &resp); err != nil {
		return nil, err
	}
	return &domain.IdentityChanges{
		Categories: categories(resp.Categories),
		Records:    identities(resp.Tags),
		Deletions:  resp.Deletions,
	}, nil
}

// GamesSince returns one page of games modified after the given time.
func (c *Client) GamesSince(ctx context.Context, after time.Time, cursor string, limit int) (*domain.GameBatch, error) {
	q := url.Values{}
	q.Set("after", formatAfter(after))
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var resp gamesResponse
	if err := c.get(ctx, pathGames, q, &resp); err != nil {
		return nil, err
	}

	b := &domain.GameBatch{
		Games:      make([]*domain.Game, 0, len(resp.Games)),
		Deletions:  resp.Deletions,
		NextCursor: resp.NextCursor,
	}
	for i := range resp.Games {
		if resp.Games[i].ID == "" {
			return nil, domainerrors.SyncTransportf(nil, "game at position %d has no id", i)
		}
		b.Games = append(b.Games, resp.Games[i].toDomain())
	}
	return b, nil
}

func formatAfter(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// get fetches path with query and decodes the JSON body into out, retrying transient
// failures.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()
	target := u.String()

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.cfg.InitialInterval),
		backoff.WithMaxInterval(c.cfg.MaxInterval),
		backoff.WithMaxElapsedTime(0),
	), c.cfg.MaxRetries)

	var attempt int
	err := backoff.Retry(func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := c.do(ctx, path, target, out)
		if err != nil && !errors.As(err, new(*backoff.PermanentError)) {
			c.logger.Warn("metadata request failed, retrying",
				"path", path,
				"attempt", attempt,
				"error", err)
		}
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return ctxErr
		}
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return domainerrors.SyncTransportf(err, "GET %s", path)
	}
	return nil
}

// do performs one attempt. Errors that must not be retried are wrapped with
// backoff.Permanent.
func (c *Client) do(ctx context.Context, path, target string, out any) error {
	if c.cfg.Limiter != nil {
		if err := c.cfg.Limiter.Wait(ctx, c.base.Host); err != nil {
			return backoff.Permanent(err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RemoteRequest(path, "error")
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return domainerrors.SyncTransportf(err, "GET %s", path)
	}
	defer resp.Body.Close()
	metrics.RemoteRequest(path, strconv.Itoa(resp.StatusCode))

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return domainerrors.SyncTransportf(nil, "GET %s: %s", path, readStatus(resp))
	case resp.StatusCode >= 400:
		return backoff.Permanent(domainerrors.SyncRejectedf(nil, "GET %s: %s", path, readStatus(resp)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(domainerrors.SyncRejectedf(err, "decode %s response", path))
	}
	return nil
}

// readStatus returns the status line with the start of the body for error messages.
func readStatus(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return resp.Status
	}
	return resp.Status + ": " + msg
}
