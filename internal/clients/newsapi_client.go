package clients

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

	"github.com/spacesedan/sentilyst/internal/models"
)

const (
	NEWS_API_ENDPOINT      = "https://newsapi.org/v2/everything"
	NEWS_API_DEFAULT_PAGES = 20
)

var ErrNewsAPIKeyMissing = errors.New("[NewsAPIClient] API key is missing")

type NewsAPIClient struct {
	Client   *http.Client
	Endpoint string
	APIKey   string
	PageSize int

	retry retryPolicy
}

func NewNewsAPIClient(apiKey string, pageSize int) *NewsAPIClient {
	if pageSize <= 0 {
		pageSize = NEWS_API_DEFAULT_PAGES
	}
	return &NewsAPIClient{
		Client:   &http.Client{Timeout: DEFAULT_HTTP_TIMEOUT},
		Endpoint: NEWS_API_ENDPOINT,
		APIKey:   apiKey,
		PageSize: pageSize,
		retry:    newRetryPolicy("NewsAPIClient", INITIAL_BACKOFF),
	}
}

func (n *NewsAPIClient) Name() string {
	return models.SourceNewsAPI
}

// Fetch searches /v2/everything and returns "<title> - <url>" per article.
func (n *NewsAPIClient) Fetch(ctx context.Context, query string) ([]string, error) {
	if n.APIKey == "" {
		return nil, ErrNewsAPIKeyMissing
	}

	searchURL, err := url.Parse(n.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("[NewsAPIClient] invalid endpoint: %w", err)
	}
	params := searchURL.Query()
	params.Set("q", query)
	params.Set("pageSize", strconv.Itoa(n.PageSize))
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	searchURL.RawQuery = params.Encode()

	start := time.Now()
	res, err := n.retry.do(ctx, n.Client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Api-Key", n.APIKey)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("[NewsAPIClient] search failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		slog.Error("[NewsAPIClient] Failed to read response body", slog.String("error", err.Error()))
		return nil, err
	}

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return nil, errors.New("[NewsAPIClient] Bad request: check query parameters")
	case http.StatusUnauthorized:
		return nil, errors.New("[NewsAPIClient] Invalid API Key, check credentials")
	case http.StatusForbidden:
		return nil, errors.New("[NewsAPIClient] API key lacks required permissions")
	default:
		return nil, fmt.Errorf("[NewsAPIClient] unexpected status code %d", res.StatusCode)
	}

	var response models.NewsAPIEverythingResponse
	if err := json.Unmarshal(body, &response); err != nil {
		slog.Error("[NewsAPIClient] Failed to parse JSON response",
			slog.String("error", err.Error()),
			getPreview(body))
		return nil, err
	}
	if response.Status != "ok" {
		return nil, fmt.Errorf("[NewsAPIClient] %s: %s", response.Code, response.Message)
	}

	items := make([]string, 0, len(response.Articles))
	for _, article := range response.Articles {
		title := strings.TrimSpace(article.Title)
		if title == "" || title == "[Removed]" {
			continue
		}
		items = append(items, title+" - "+article.URL)
	}

	slog.Debug("[NewsAPIClient] Search complete",
		slog.String("query", query),
		slog.Int("items", len(items)),
		slog.Duration("elapsed", time.Since(start)))
	return items, nil
}
