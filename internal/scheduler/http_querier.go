package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fixturefox/fixturefox/internal/engine"
	"github.com/fixturefox/fixturefox/internal/models"
)

// HTTPQuerier fetches JSON feeds from source endpoints. Errors come back
// classified: transport failures as transient network errors, 429 responses
// as rate-limit signals with the Retry-After honored, and other non-2xx
// responses as source rejections.
type HTTPQuerier struct {
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewHTTPQuerier creates a feed querier with a shared HTTP client. Per-source
// timeouts are applied via the request context.
func NewHTTPQuerier(logger *logrus.Logger) *HTTPQuerier {
	return &HTTPQuerier{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// Query fetches the source's feed endpoint and decodes the items
func (q *HTTPQuerier) Query(ctx context.Context, source *models.Source) ([]*engine.FeedItem, error) {
	timeout := time.Duration(source.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", source.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, &models.TransientNetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &models.RateLimitedError{
			SourceID:   source.ID,
			RetryAfter: retryAfter(resp, time.Now()),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.SourceRejectionError{
			SourceID: source.ID,
			Message:  fmt.Sprintf("HTTP %d from feed endpoint", resp.StatusCode),
		}
	}

	var feed struct {
		Items []*engine.FeedItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, &models.SourceRejectionError{
			SourceID: source.ID,
			Message:  fmt.Sprintf("malformed feed response: %v", err),
		}
	}

	// Stamp the source onto items the feed left unattributed
	for _, item := range feed.Items {
		if item.SourceID == 0 {
			item.SourceID = source.ID
		}
	}

	q.logger.WithFields(logrus.Fields{
		"source_id": source.ID,
		"items":     len(feed.Items),
		"duration":  time.Since(start).String(),
	}).Debug("Feed query completed")

	return feed.Items, nil
}

// retryAfter derives the throttle horizon from the Retry-After header,
// defaulting to one hour when the header is absent or unparsable
func retryAfter(resp *http.Response, now time.Time) time.Time {
	raw := resp.Header.Get("Retry-After")
	if raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			return now.Add(time.Duration(seconds) * time.Second)
		}
		if at, err := http.ParseTime(raw); err == nil {
			return at
		}
	}
	return now.Add(time.Hour)
}
