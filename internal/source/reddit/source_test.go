package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media_syndicator/internal/domain"
)

const listingJSON = `{
  "kind": "Listing",
  "data": {
    "after": "t3_ccc",
    "children": [
      {"kind": "t3", "data": {
        "id": "aaa", "subreddit": "Pics", "title": "An image",
        "permalink": "/r/pics/comments/aaa/an_image/", "author": "alice",
        "url": "https://i.redd.it/aaa.jpg", "post_hint": "image", "over_18": true
      }},
      {"kind": "t3", "data": {
        "id": "bbb", "subreddit": "Pics", "title": "A video",
        "permalink": "/r/pics/comments/bbb/a_video/", "author": "bob",
        "url": "https://v.redd.it/bbb", "post_hint": "hosted:video", "over_18": false,
        "media": {"reddit_video": {"fallback_url": "https://v.redd.it/bbb/DASH_720.mp4", "width": 1280, "height": 720, "duration": 12}}
      }},
      {"kind": "t1", "data": {"id": "comment"}}
    ]
  }
}`

func newTestSource(t *testing.T, handler http.Handler) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(Config{
		BaseURL:           srv.URL,
		UserAgent:         "test-agent/1.0",
		Timeout:           5 * time.Second,
		RequestsPerMinute: 60000,
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
	}, logger)
}

func TestFetchRecent(t *testing.T) {
	var gotUA, gotPath, gotLimit string
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		gotLimit = r.URL.Query().Get("limit")
		fmt.Fprint(w, listingJSON)
	}))

	items, err := src.FetchRecent(context.Background(), "pics", 30)
	require.NoError(t, err)

	assert.Equal(t, "test-agent/1.0", gotUA)
	assert.Equal(t, "/r/pics/new.json", gotPath)
	assert.Equal(t, "30", gotLimit)

	require.Len(t, items, 2)
	assert.Equal(t, domain.ContentItem{
		ID:        "aaa",
		SourceID:  "pics",
		Title:     "An image",
		Permalink: "/r/pics/comments/aaa/an_image/",
		Author:    "alice",
		URL:       "https://i.redd.it/aaa.jpg",
		Hint:      domain.HintImage,
		Adult:     true,
	}, items[0])

	assert.Equal(t, domain.HintHostedVideo, items[1].Hint)
	assert.False(t, items[1].Adult)
	require.NotNil(t, items[1].Media)
	assert.Equal(t, "https://v.redd.it/bbb/DASH_720.mp4", items[1].Media.FallbackURL)
	assert.Equal(t, 12, items[1].Media.DurationSec)
}

func TestFetchRecent_NotFound(t *testing.T) {
	var calls atomic.Int32
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := src.FetchRecent(context.Background(), "nosuchsub", 30)

	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	assert.Equal(t, int32(1), calls.Load(), "not found must not be retried")
}

func TestFetchRecent_RedirectMeansNotFound(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/subreddits/search.json?q=nosuchsub", http.StatusFound)
	}))

	_, err := src.FetchRecent(context.Background(), "nosuchsub", 30)

	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestFetchRecent_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, listingJSON)
	}))

	items, err := src.FetchRecent(context.Background(), "pics", 30)

	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchRecent_GivesUpAsUnavailable(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := src.FetchRecent(context.Background(), "pics", 30)

	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.ErrorContains(t, err, "after 3 attempts")
}

func TestFetchRecent_MalformedBody(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>")
	}))

	_, err := src.FetchRecent(context.Background(), "pics", 30)

	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestIsAdultFlagged(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/r/adult/about.json":
			fmt.Fprint(w, `{"kind": "t5", "data": {"display_name": "adult", "over18": true}}`)
		case "/r/wholesome/about.json":
			fmt.Fprint(w, `{"kind": "t5", "data": {"display_name": "wholesome", "over18": false}}`)
		case "/r/ghost/about.json":
			fmt.Fprint(w, `{"kind": "Listing", "data": {"children": []}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	ctx := context.Background()

	adult, err := src.IsAdultFlagged(ctx, "adult")
	require.NoError(t, err)
	assert.True(t, adult)

	adult, err = src.IsAdultFlagged(ctx, "wholesome")
	require.NoError(t, err)
	assert.False(t, adult)

	_, err = src.IsAdultFlagged(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	_, err = src.IsAdultFlagged(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestOAuthClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != "client" || secret != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "tok", "token_type": "bearer", "expires_in": 3600}`)
	})
	mux.HandleFunc("/r/pics/new.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, listingJSON)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	src := New(Config{
		BaseURL:           srv.URL,
		TokenURL:          srv.URL + "/api/v1/access_token",
		ClientID:          "client",
		ClientSecret:      "secret",
		UserAgent:         "test-agent/1.0",
		Timeout:           5 * time.Second,
		RequestsPerMinute: 60000,
		MaxAttempts:       1,
	}, logger)

	items, err := src.FetchRecent(context.Background(), "pics", 10)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCalculateBackoff(t *testing.T) {
	s := &Source{initialBackoff: time.Second, maxBackoff: 5 * time.Second}

	assert.Equal(t, time.Second, s.calculateBackoff(1))
	assert.Equal(t, 2*time.Second, s.calculateBackoff(2))
	assert.Equal(t, 4*time.Second, s.calculateBackoff(3))
	assert.Equal(t, 5*time.Second, s.calculateBackoff(4))
}
