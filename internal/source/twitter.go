package source

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

	"github.com/chainsignal-io/chainsignal/internal/event"
	"github.com/chainsignal-io/chainsignal/internal/session"
)

const (
	twitterBaseURL = "https://api.twitter.com"

	twitterQuery      = "supply chain OR semiconductor"
	twitterMaxResults = 50

	// Tweets scoring below this relevance are discarded.
	tweetRelevanceFloor = 3
)

var tweetRelevanceKeywords = []string{"supply chain", "semiconductor"}

// TwitterClient searches recent tweets for supply chain chatter using the
// v2 recent search endpoint.
type TwitterClient struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// TwitterOptions narrow a social signal fetch.
type TwitterOptions struct {
	// MaxResults caps the tweets examined. Values above 50 are clamped; zero
	// means the full 50.
	MaxResults int
	// IncludeRetweets keeps retweets in the search. Off by default since they
	// only duplicate signal.
	IncludeRetweets bool
}

// Fetch searches recent tweets and keeps those relevant enough to count as a
// social signal.
func (c *TwitterClient) Fetch(ctx context.Context, opts TwitterOptions) ([]event.Event, error) {
	log := logger(c.Logger)

	if c.BearerToken == "" {
		return nil, newError("Twitter", session.StatusNotConfigured,
			errors.New("bearer token not configured"))
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 || maxResults > twitterMaxResults {
		maxResults = twitterMaxResults
	}
	log.Info("fetching Twitter signals", "max_results", maxResults)

	query := twitterQuery
	if !opts.IncludeRetweets {
		query += " -is:retweet"
	}

	base := c.BaseURL
	if base == "" {
		base = twitterBaseURL
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("max_results", strconv.Itoa(maxResults))
	q.Set("tweet.fields", "created_at,author_id,public_metrics")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		base+"/2/tweets/search/recent?"+q.Encode(), nil)
	if err != nil {
		return nil, newError("Twitter", session.StatusError, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.BearerToken)

	resp, err := httpClient(c.HTTPClient).Do(req)
	if err != nil {
		return nil, transportError("Twitter", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, newError("Twitter", session.StatusAuthFailed,
			errors.New("authentication failed"))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, newError("Twitter", session.StatusRateLimited,
			errors.New("rate limit exceeded"))
	case resp.StatusCode != http.StatusOK:
		return nil, newError("Twitter", session.StatusError,
			fmt.Errorf("request failed with status %d", resp.StatusCode))
	}

	var payload struct {
		Data []struct {
			ID            string         `json:"id"`
			Text          string         `json:"text"`
			AuthorID      string         `json:"author_id"`
			CreatedAt     time.Time      `json:"created_at"`
			PublicMetrics map[string]int `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, newError("Twitter", session.StatusError, fmt.Errorf("decode response: %w", err))
	}

	var events []event.Event
	for _, tweet := range payload.Data {
		relevance := event.RelevanceScore(tweet.Text, tweetRelevanceKeywords)
		if relevance < tweetRelevanceFloor {
			continue
		}

		ev := event.New("Twitter", "social_signal")
		if !tweet.CreatedAt.IsZero() {
			ev.Timestamp = tweet.CreatedAt
		}
		ev.Severity = event.TextSeverity(tweet.Text)
		ev.Description = truncate(tweet.Text, 200)
		ev.Metadata = map[string]any{
			"tweet_id":        tweet.ID,
			"author_id":       tweet.AuthorID,
			"relevance_score": relevance,
		}
		ev.Raw = map[string]any{
			"text":       tweet.Text,
			"created_at": tweet.CreatedAt.Format(time.RFC3339),
		}
		events = append(events, ev)
	}

	log.Info("collected social signals from Twitter",
		"count", len(events), "tweets_processed", len(payload.Data))
	return events, nil
}

// truncate cuts s to at most n runes. Tweet text is UTF-8; cutting at a byte
// offset could split a rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
