package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"media_syndicator/internal/domain"
)

const (
	kindLink      = "t3"
	kindSubreddit = "t5"
)

// Config holds Reddit source configuration.
type Config struct {
	BaseURL           string
	TokenURL          string
	ClientID          string
	ClientSecret      string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
}

// Source reads subreddit listings over the Reddit JSON API.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a Reddit source. With client credentials configured requests
// are authorised through the application-only OAuth flow.
func New(cfg Config, logger *slog.Logger) *Source {
	base := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &userAgentTransport{next: http.DefaultTransport, userAgent: cfg.UserAgent},
	}

	transport := base.Transport
	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		transport = cc.Client(ctx).Transport
	}

	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	return &Source{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				// unknown subreddits redirect to search
				return http.ErrUseLastResponse
			},
		},
		baseURL:        cfg.BaseURL,
		limiter:        rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", "reddit"),
	}
}

// FetchRecent returns up to limit of the newest posts of a subreddit.
func (s *Source) FetchRecent(ctx context.Context, sourceID string, limit int) ([]domain.ContentItem, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")

	var listing Thing[Listing]
	if err := s.get(ctx, fmt.Sprintf("/r/%s/new", url.PathEscape(sourceID)), q, &listing); err != nil {
		return nil, err
	}
	if listing.Kind != "Listing" {
		return nil, fmt.Errorf("r/%s: unexpected kind %q: %w", sourceID, listing.Kind, domain.ErrSourceNotFound)
	}

	items := s.transform(sourceID, listing.Data.Children)

	s.logger.Debug("fetched listing",
		"subreddit", sourceID,
		"items", len(items),
	)

	return items, nil
}

// IsAdultFlagged reports whether the subreddit is marked over 18.
func (s *Source) IsAdultFlagged(ctx context.Context, sourceID string) (bool, error) {
	q := url.Values{}
	q.Set("raw_json", "1")

	var about Thing[Subreddit]
	if err := s.get(ctx, fmt.Sprintf("/r/%s/about", url.PathEscape(sourceID)), q, &about); err != nil {
		return false, err
	}
	if about.Kind != kindSubreddit {
		return false, fmt.Errorf("r/%s: %w", sourceID, domain.ErrSourceNotFound)
	}
	return about.Data.Over18, nil
}

func (s *Source) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := s.baseURL + path + ".json?" + query.Encode()

	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.doRequest(ctx, endpoint, out)
		if err == nil {
			return nil
		}

		if errors.Is(err, domain.ErrSourceNotFound) || attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
	}

	if errors.Is(err, domain.ErrSourceNotFound) {
		return err
	}
	return fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, endpoint string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", domain.ErrSourceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", domain.ErrSourceUnavailable, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: execute request: %w", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode >= 300 && resp.StatusCode < 400:
		return fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrSourceNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d: %w", resp.StatusCode, domain.ErrSourceUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", domain.ErrSourceUnavailable, err)
	}

	return nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(sourceID string, children []Thing[Link]) []domain.ContentItem {
	items := make([]domain.ContentItem, 0, len(children))

	for _, child := range children {
		if child.Kind != kindLink {
			continue
		}
		l := child.Data

		item := domain.ContentItem{
			ID:        l.ID,
			SourceID:  sourceID,
			Title:     l.Title,
			Permalink: l.Permalink,
			Author:    l.Author,
			URL:       l.URL,
			Hint:      domain.ContentHint(l.PostHint),
			Adult:     l.Over18,
		}

		if l.Media != nil && l.Media.RedditVideo != nil {
			v := l.Media.RedditVideo
			item.Media = &domain.MediaDescriptor{
				FallbackURL: v.FallbackURL,
				Width:       v.Width,
				Height:      v.Height,
				DurationSec: v.Duration,
			}
		}

		items = append(items, item)
	}

	return items
}

type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(req)
}
