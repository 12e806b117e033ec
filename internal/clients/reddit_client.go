package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/spacesedan/sentilyst/internal/models"
)

const (
	REDDIT_AUTH_URL      = "https://www.reddit.com/api/v1/access_token"
	REDDIT_API_URL       = "https://oauth.reddit.com"
	REDDIT_PUBLIC_URL    = "https://www.reddit.com"
	REDDIT_PERMALINK_URL = "https://reddit.com"
	REDDIT_DEFAULT_LIMIT = 20
)

// RedditClient searches Reddit for posts about a query. With credentials it
// goes through the OAuth API, otherwise through the public JSON listing.
type RedditClient struct {
	Client  *http.Client
	BaseURL string
	Limit   int

	retry retryPolicy
}

func NewRedditClient(clientID, clientSecret string, limit int) *RedditClient {
	if limit <= 0 {
		limit = REDDIT_DEFAULT_LIMIT
	}

	rc := &RedditClient{
		Client:  &http.Client{Timeout: DEFAULT_HTTP_TIMEOUT},
		BaseURL: REDDIT_PUBLIC_URL,
		Limit:   limit,
		retry:   newRetryPolicy("RedditClient", INITIAL_BACKOFF),
	}

	if clientID != "" && clientSecret != "" {
		oauthConf := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     REDDIT_AUTH_URL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, rc.Client)
		rc.Client = oauthConf.Client(ctx)
		rc.BaseURL = REDDIT_API_URL
		slog.Info("[RedditClient] Using OAuth API")
	}

	return rc
}

func (rc *RedditClient) Name() string {
	return models.SourceReddit
}

// Fetch returns "<title> - https://reddit.com<permalink>" for each hit.
func (rc *RedditClient) Fetch(ctx context.Context, query string) ([]string, error) {
	searchURL, err := url.Parse(rc.BaseURL + "/search.json")
	if err != nil {
		return nil, fmt.Errorf("[RedditClient] Failed to parse URL: %w", err)
	}
	params := searchURL.Query()
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(rc.Limit))
	params.Set("raw_json", "1")
	searchURL.RawQuery = params.Encode()

	start := time.Now()
	resp, err := rc.retry.do(ctx, rc.Client, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("[RedditClient] search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("[RedditClient] unexpected status code %d", resp.StatusCode)
	}

	var listing models.RedditAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("[RedditClient] failed to decode listing: %w", err)
	}

	items := make([]string, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		title := strings.TrimSpace(child.Data.Title)
		if title == "" {
			continue
		}
		items = append(items, title+" - "+REDDIT_PERMALINK_URL+child.Data.Permalink)
	}

	slog.Debug("[RedditClient] Search complete",
		slog.String("query", query),
		slog.Int("items", len(items)),
		slog.Duration("elapsed", time.Since(start)))
	return items, nil
}
