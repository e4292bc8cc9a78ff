package remote

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/ratelimit"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(Config{
		BaseURL:         server.URL + "/",
		Timeout:         2 * time.Second,
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		HTTPClient:      server.Client(),
		Logger:          slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "not a url", "http://"} {
		_, err := New(Config{BaseURL: raw})
		assert.ErrorIs(t, err, domainerrors.ErrValidation, raw)
	}
}

func TestClient_CountSince(t *testing.T) {
	after := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/count", r.URL.Path)
		assert.Equal(t, "games", r.URL.Query().Get("kind"))
		assert.Equal(t, after.Format(time.RFC3339Nano), r.URL.Query().Get("after"))
		w.Write([]byte(`{"total": 4321}`))
	})

	n, err := c.CountSince(context.Background(), domain.SyncGames, after)
	require.NoError(t, err)
	assert.Equal(t, 4321, n)
}

func TestClient_TagsSince(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{
			"categories": [{"name": "genre", "color": "#ff0000"}],
			"tags": [{"name": "Action", "aliases": ["Action", "Shooter"], "category": "genre",
				"description": "Fast", "date_modified": "2024-02-01T10:00:00Z"}],
			"deletions": ["Obsolete"]
		}`))
	})

	changes, err := c.TagsSince(context.Background(), domain.Epoch)
	require.NoError(t, err)
	require.Len(t, changes.Categories, 1)
	assert.Equal(t, "genre", changes.Categories[0].Name)
	require.Len(t, changes.Records, 1)
	assert.Equal(t, []string{"Action", "Shooter"}, changes.Records[0].Aliases)
	assert.Equal(t, "genre", changes.Records[0].Category)
	assert.Equal(t, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), changes.Records[0].DateModified)
	assert.Equal(t, []string{"Obsolete"}, changes.Deletions)
}

func TestClient_PlatformsSince(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/platforms", r.URL.Path)
		w.Write([]byte(`{"platforms": [{"name": "Flash", "aliases": ["Flash"], "date_modified": "2024-01-01T00:00:00Z"}]}`))
	})

	changes, err := c.PlatformsSince(context.Background(), domain.Epoch)
	require.NoError(t, err)
	require.Len(t, changes.Records, 1)
	assert.Equal(t, "Flash", changes.Records[0].Name)
	assert.Empty(t, changes.Deletions)
}

func TestClient_GamesSince(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/games", r.URL.Path)
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "page-2", q.Get("cursor"))
		w.Write([]byte(`{
			"games": [{
				"id": "a1b2", "title": "Alpha", "developer": "Studio", "library": "arcade",
				"tags": ["Action"], "platforms": ["Flash"],
				"date_added": "2023-05-01T00:00:00Z", "date_modified": "2024-01-02T00:00:00Z",
				"active_data_id": "gd_1",
				"add_apps": [{"id": "app1", "name": "Manual", "application_path": "manual.pdf"}],
				"game_data": [{"id": "gd_1", "title": "Alpha", "sha256": "abc", "size": 10, "date_added": "2023-05-01T00:00:00Z"}]
			}],
			"deletions": ["gone"],
			"next_cursor": "page-3"
		}`))
	})

	batch, err := c.GamesSince(context.Background(), domain.Epoch, "page-2", 50)
	require.NoError(t, err)
	require.Len(t, batch.Games, 1)
	g := batch.Games[0]
	assert.Equal(t, "a1b2", g.ID)
	assert.Equal(t, "Studio", g.Developer)
	assert.Equal(t, []string{"Action"}, g.Tags)
	require.NotNil(t, g.ActiveDataID)
	assert.Equal(t, "gd_1", *g.ActiveDataID)
	require.Len(t, g.AddApps, 1)
	assert.Equal(t, "a1b2", g.AddApps[0].GameID)
	require.Len(t, g.Data, 1)
	assert.Equal(t, "a1b2", g.Data[0].GameID)
	assert.Equal(t, []string{"gone"}, batch.Deletions)
	assert.Equal(t, "page-3", batch.NextCursor)
}

func TestClient_GamesSince_MissingID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"games": [{"title": "No id"}]}`))
	})

	_, err := c.GamesSince(context.Background(), domain.Epoch, "", 10)
	assert.ErrorIs(t, err, domainerrors.ErrSyncTransport)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"total": 7}`))
	})

	n, err := c.CountSince(context.Background(), domain.SyncTags, domain.Epoch)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.CountSince(context.Background(), domain.SyncTags, domain.Epoch)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrSyncTransport)
	assert.True(t, domainerrors.IsRetryable(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such source", http.StatusNotFound)
	})

	_, err := c.PlatformsSince(context.Background(), domain.Epoch)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrSyncTransport)
	assert.False(t, domainerrors.IsRetryable(err))
	assert.Contains(t, err.Error(), "no such source")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DecodeErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"total": `))
	})

	_, err := c.CountSince(context.Background(), domain.SyncGames, domain.Epoch)
	assert.ErrorIs(t, err, domainerrors.ErrSyncTransport)
	assert.False(t, domainerrors.IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_CancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total": 1}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CountSince(ctx, domain.SyncGames, domain.Epoch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_UsesLimiter(t *testing.T) {
	limiter := ratelimit.New(1000, 1)
	t.Cleanup(limiter.Stop)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total": 0}`))
	}))
	t.Cleanup(server.Close)

	c, err := New(Config{BaseURL: server.URL, HTTPClient: server.Client(), Limiter: limiter})
	require.NoError(t, err)

	for range 3 {
		_, err := c.CountSince(context.Background(), domain.SyncPlatforms, domain.Epoch)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, limiter.Len())
}
