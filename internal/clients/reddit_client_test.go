package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redditListing = `{
  "data": {
    "after": null,
    "children": [
      {"data": {"title": "Acme posts record profits", "permalink": "/r/stocks/comments/abc/acme/", "subreddit": "stocks", "ups": 12}},
      {"data": {"title": "  ", "permalink": "/r/stocks/comments/empty/"}},
      {"data": {"title": "Acme layoffs - again", "permalink": "/r/news/comments/def/layoffs/", "subreddit": "news"}}
    ]
  }
}`

func TestRedditClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "acme corp", r.URL.Query().Get("q"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, USER_AGENT, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(redditListing))
	}))
	defer srv.Close()

	rc := NewRedditClient("", "", 0)
	rc.BaseURL = srv.URL

	items, err := rc.Fetch(context.Background(), "acme corp")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Acme posts record profits - https://reddit.com/r/stocks/comments/abc/acme/",
		"Acme layoffs - again - https://reddit.com/r/news/comments/def/layoffs/",
	}, items)
}

func TestRedditClient_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	rc := NewRedditClient("", "", 5)
	rc.BaseURL = srv.URL
	rc.retry = newRetryPolicy("RedditClient", time.Millisecond)

	items, err := rc.Fetch(context.Background(), "acme")
	require.Error(t, err)
	assert.Nil(t, items)
	assert.Contains(t, err.Error(), "403")
}

func TestNewRedditClient_SelectsAPI(t *testing.T) {
	assert.Equal(t, REDDIT_PUBLIC_URL, NewRedditClient("", "", 0).BaseURL)
	assert.Equal(t, REDDIT_API_URL, NewRedditClient("id", "secret", 0).BaseURL)
	assert.Equal(t, REDDIT_DEFAULT_LIMIT, NewRedditClient("", "", -1).Limit)
}
