package clients

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/spacesedan/sentilyst/internal/models"
)

const GOOGLE_NEWS_URL = "https://news.google.com"

// GoogleNewsClient scrapes the Google News search page. Every <article>
// yields its first anchor that has visible text.
type GoogleNewsClient struct {
	Client      *http.Client
	BaseURL     string
	QuerySuffix string

	retry retryPolicy
}

func NewGoogleNewsClient(querySuffix string) *GoogleNewsClient {
	return &GoogleNewsClient{
		Client:      &http.Client{Timeout: DEFAULT_HTTP_TIMEOUT},
		BaseURL:     GOOGLE_NEWS_URL,
		QuerySuffix: querySuffix,
		retry:       newRetryPolicy("GoogleNewsClient", INITIAL_BACKOFF),
	}
}

func (g *GoogleNewsClient) Name() string {
	return models.SourceGoogleNews
}

// Fetch returns "<headline> - <absolute article URL>" per article.
func (g *GoogleNewsClient) Fetch(ctx context.Context, query string) ([]string, error) {
	base, err := url.Parse(g.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("[GoogleNewsClient] invalid base url: %w", err)
	}

	searchURL := base.JoinPath("search")
	q := strings.TrimSpace(query + " " + g.QuerySuffix)
	searchURL.RawQuery = url.Values{"q": {q}}.Encode()

	start := time.Now()
	doc, err := g.fetchDocument(ctx, searchURL.String())
	if err != nil {
		return nil, err
	}

	items := extractHeadlines(doc, base)
	slog.Debug("[GoogleNewsClient] Search complete",
		slog.String("query", q),
		slog.Int("items", len(items)),
		slog.Duration("elapsed", time.Since(start)))
	return items, nil
}

func (g *GoogleNewsClient) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := g.retry.do(ctx, g.Client, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("[GoogleNewsClient] request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("[GoogleNewsClient] google news returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[GoogleNewsClient] parse document: %w", err)
	}
	return doc, nil
}

func extractHeadlines(doc *goquery.Document, base *url.URL) []string {
	var items []string

	doc.Find("article").Each(func(_ int, article *goquery.Selection) {
		article.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			text := strings.Join(strings.Fields(a.Text()), " ")
			if text == "" {
				return true
			}
			href, _ := a.Attr("href")
			ref, err := url.Parse(href)
			if err != nil {
				return true
			}
			items = append(items, text+" - "+base.ResolveReference(ref).String())
			return false
		})
	})

	return items
}
