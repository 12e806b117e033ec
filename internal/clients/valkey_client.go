package clients

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/spacesedan/sentilyst/internal/models"
)

const (
	VALKEY_ANALYSIS_KEY_PREFIX = "sentilyst:analysis:"
	VALKEY_DEFAULT_TTL         = 10 * time.Minute
	VALKEY_RETRIES             = 3
	VALKEY_RETRY_DELAY         = 250 * time.Millisecond
)

type ValkeyConfig struct {
	Address  string
	Password string
	TLS      bool
	TTL      time.Duration
}

// ValkeyClient caches computed analyses per normalized query.
type ValkeyClient struct {
	Client valkey.Client
	cfg    ValkeyConfig
	mu     sync.Mutex

	retryDelay time.Duration
}

func clientOptions(cfg ValkeyConfig) valkey.ClientOption {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.Address},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

func connect(cfg ValkeyConfig) (valkey.Client, error) {
	client, err := valkey.NewClient(clientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}
	return client, nil
}

func NewValkeyClient(cfg ValkeyConfig) (*ValkeyClient, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = VALKEY_DEFAULT_TTL
	}

	client, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey",
		slog.String("address", cfg.Address),
		slog.Duration("ttl", cfg.TTL))
	return &ValkeyClient{Client: client, cfg: cfg}, nil
}

func (vc *ValkeyClient) Close() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if vc.Client != nil {
		vc.Client.Close()
	}
}

func (vc *ValkeyClient) recreateClient() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")

	client, err := connect(vc.cfg)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed", slog.String("error", err.Error()))
		return
	}
	vc.Client.Close()
	vc.Client = client
	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
}

func (vc *ValkeyClient) client() valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.Client
}

// GetAnalysis returns the cached analysis for query. A miss is (_, false, nil).
func (vc *ValkeyClient) GetAnalysis(ctx context.Context, query string) (models.Analysis, bool, error) {
	var analysis models.Analysis
	key := AnalysisCacheKey(query)

	res := vc.DoWithRetry(ctx, func(b valkey.Builder) valkey.Completed {
		return b.Get().Key(key).Build()
	}, VALKEY_RETRIES)
	raw, err := res.AsBytes()
	if valkey.IsValkeyNil(err) {
		return analysis, false, nil
	}
	if err != nil {
		return analysis, false, fmt.Errorf("[ValkeyClient] get analysis: %w", err)
	}

	if err := json.Unmarshal(raw, &analysis); err != nil {
		return analysis, false, fmt.Errorf("[ValkeyClient] decode analysis: %w", err)
	}
	return analysis, true, nil
}

// SetAnalysis stores analysis under its query with the configured TTL.
func (vc *ValkeyClient) SetAnalysis(ctx context.Context, analysis models.Analysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("[ValkeyClient] encode analysis: %w", err)
	}

	key := AnalysisCacheKey(analysis.Query)
	results := vc.DoMultiWithRetry(ctx, func(b valkey.Builder) []valkey.Completed {
		return setWithTTL(b, key, payload, vc.cfg.TTL)
	}, VALKEY_RETRIES)

	for _, res := range results {
		if err := res.Error(); err != nil {
			return fmt.Errorf("[ValkeyClient] set analysis: %w", err)
		}
	}

	slog.Debug("[ValkeyClient] Cached analysis", slog.String("key", key))
	return nil
}

func setWithTTL(b valkey.Builder, key string, payload []byte, ttl time.Duration) []valkey.Completed {
	return []valkey.Completed{
		b.Set().Key(key).Value(valkey.BinaryString(payload)).Build(),
		b.Expire().Key(key).Seconds(int64(ttl.Seconds())).Build(),
	}
}

// AnalysisCacheKey normalizes query so trivially different spellings share an entry.
func AnalysisCacheKey(query string) string {
	return VALKEY_ANALYSIS_KEY_PREFIX + strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// DoMultiWithRetry sends the commands produced by build, calling it again on
// every attempt: valkey-go recycles a command once it has been sent.
func (vc *ValkeyClient) DoMultiWithRetry(ctx context.Context, build func(valkey.Builder) []valkey.Completed, retries int) []valkey.ValkeyResult {
	var results []valkey.ValkeyResult
	vc.retry(ctx, retries, func(c valkey.Client) error {
		results = c.DoMulti(ctx, build(c.B())...)
		for _, r := range results {
			if err := r.Error(); err != nil {
				return err
			}
		}
		return nil
	})
	return results
}

// DoWithRetry is DoMultiWithRetry for a single command. A nil reply is not retried.
func (vc *ValkeyClient) DoWithRetry(ctx context.Context, build func(valkey.Builder) valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	vc.retry(ctx, retries, func(c valkey.Client) error {
		result = c.Do(ctx, build(c.B()))
		if err := result.Error(); err != nil && !valkey.IsValkeyNil(err) {
			return err
		}
		return nil
	})
	return result
}

// retry runs attempt against the current client until it succeeds, retries
// run out or ctx is done. Connection errors swap in a fresh client first.
func (vc *ValkeyClient) retry(ctx context.Context, retries int, attempt func(valkey.Client) error) error {
	delay := vc.retryDelay
	if delay <= 0 {
		delay = VALKEY_RETRY_DELAY
	}

	var err error
	for i := 0; i < retries; i++ {
		if err = attempt(vc.client()); err == nil {
			return nil
		}

		slog.Warn("[ValkeyClient] Command failed",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
		if isConnectionError(err) {
			vc.recreateClient()
		}
		if i == retries-1 || sleepContext(ctx, delay) != nil {
			break
		}
	}
	return err
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
