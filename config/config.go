package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "SENTILYST_CONFIG"
	defaultTimezone = "UTC"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Risk       RiskConfig       `yaml:"risk"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Sources    SourcesConfig    `yaml:"sources"`
	Store      StoreConfig      `yaml:"store"`
	Cache      CacheConfig      `yaml:"cache"`
	Kafka      KafkaConfig      `yaml:"kafka"`

	location *time.Location
}

type ServerConfig struct {
	Port      string `yaml:"port"`
	ClientURL string `yaml:"clientUrl"`
	// TrustUserHeader accepts X-User-ID as the caller's identity. Only enable
	// it when an auth gateway in front of the service sets the header.
	TrustUserHeader bool `yaml:"trustUserHeader"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PipelineConfig bounds a single analysis run.
type PipelineConfig struct {
	MaxItems       int           `yaml:"maxItems"`
	MaxTextChars   int           `yaml:"maxTextChars"`
	SourceTimeout  time.Duration `yaml:"sourceTimeout"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	Timezone       string        `yaml:"timezone"`
}

type RiskConfig struct {
	PercentWeight    float64 `yaml:"percentWeight"`
	ConfidenceWeight float64 `yaml:"confidenceWeight"`
}

// ClassifierConfig selects and tunes the sentiment model backend.
type ClassifierConfig struct {
	Backend        string            `yaml:"backend"`
	ModelName      string            `yaml:"modelName"`
	ModelDir       string            `yaml:"modelDir"`
	RemoteEndpoint string            `yaml:"remoteEndpoint"`
	RemoteAPIKey   string            `yaml:"remoteApiKey"`
	BatchSize      int               `yaml:"batchSize"`
	MaxTokens      int               `yaml:"maxTokens"`
	LabelAliases   map[string]string `yaml:"labelAliases"`
	WarmUp         bool              `yaml:"warmUp"`
	HealthInterval time.Duration     `yaml:"healthInterval"`
}

type SourcesConfig struct {
	Reddit     RedditConfig     `yaml:"reddit"`
	GoogleNews GoogleNewsConfig `yaml:"googleNews"`
	NewsAPI    NewsAPIConfig    `yaml:"newsApi"`
}

type RedditConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	Limit        int    `yaml:"limit"`
}

type GoogleNewsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	QuerySuffix string `yaml:"querySuffix"`
}

type NewsAPIConfig struct {
	APIKey   string `yaml:"apiKey"`
	PageSize int    `yaml:"pageSize"`
}

// StoreConfig picks the persistence backend; an empty Backend disables saving.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	PostgresDSN string `yaml:"postgresDsn"`
	DynamoTable string `yaml:"dynamoTable"`
	AWSRegion   string `yaml:"awsRegion"`
	AWSEndpoint string `yaml:"awsEndpoint"`
}

type CacheConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	TLS      bool          `yaml:"tls"`
	TTL      time.Duration `yaml:"ttl"`
}

type KafkaConfig struct {
	Broker string `yaml:"broker"`
	Topic  string `yaml:"topic"`
}

// Location resolves Pipeline.Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	return time.UTC
}

// Load starts from defaults, overlays the YAML file named by SENTILYST_CONFIG
// (if any) and finally applies environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	cfg.bindTimezone()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		Server:  ServerConfig{Port: "8000"},
		Logging: LoggingConfig{Level: "info"},
		Pipeline: PipelineConfig{
			MaxItems:       30,
			MaxTextChars:   500,
			SourceTimeout:  10 * time.Second,
			RequestTimeout: 60 * time.Second,
			Timezone:       defaultTimezone,
		},
		Risk: RiskConfig{PercentWeight: 0.8, ConfidenceWeight: 0.2},
		Classifier: ClassifierConfig{
			Backend:        "hugot",
			ModelName:      "KnightsAnalytics/distilbert-base-uncased-finetuned-sst-2-english",
			ModelDir:       "./models",
			BatchSize:      32,
			MaxTokens:      512,
			WarmUp:         true,
			HealthInterval: 15 * time.Second,
		},
		Sources: SourcesConfig{
			Reddit:     RedditConfig{Enabled: true, Limit: 20},
			GoogleNews: GoogleNewsConfig{Enabled: true, QuerySuffix: "mergers acquisition"},
			NewsAPI:    NewsAPIConfig{PageSize: 20},
		},
		Store: StoreConfig{
			DynamoTable: "AnalyzedData",
			AWSRegion:   "us-west-2",
		},
		Cache: CacheConfig{TTL: 10 * time.Minute},
		Kafka: KafkaConfig{Topic: "sentiment-results"},
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Pipeline.MaxItems < 0 {
		return fmt.Errorf("pipeline.maxItems must be >= 0, got %d", c.Pipeline.MaxItems)
	}
	if c.Pipeline.MaxTextChars <= 0 {
		return fmt.Errorf("pipeline.maxTextChars must be > 0, got %d", c.Pipeline.MaxTextChars)
	}
	if c.Risk.PercentWeight < 0 || c.Risk.ConfidenceWeight < 0 {
		return fmt.Errorf("risk weights must be >= 0, got percentWeight=%v confidenceWeight=%v",
			c.Risk.PercentWeight, c.Risk.ConfidenceWeight)
	}
	if c.Classifier.BatchSize <= 0 {
		return fmt.Errorf("classifier.batchSize must be > 0, got %d", c.Classifier.BatchSize)
	}
	switch c.Classifier.Backend {
	case "hugot", "vader":
	case "remote":
		if c.Classifier.RemoteEndpoint == "" {
			return fmt.Errorf("classifier.remoteEndpoint is required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown classifier backend %q", c.Classifier.Backend)
	}
	switch c.Store.Backend {
	case "":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgresDsn is required for the postgres store")
		}
	case "dynamodb":
		if c.Store.DynamoTable == "" {
			return fmt.Errorf("store.dynamoTable is required for the dynamodb store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.ClientURL, "CLIENT_URL")
	setString(&c.Logging.Level, "LOG_LEVEL")

	setString(&c.Pipeline.Timezone, "RECORD_TIMEZONE")
	setString(&c.Classifier.Backend, "CLASSIFIER_BACKEND")
	setString(&c.Classifier.ModelName, "CLASSIFIER_MODEL")
	setString(&c.Classifier.ModelDir, "CLASSIFIER_MODEL_DIR")
	setString(&c.Classifier.RemoteEndpoint, "CLASSIFIER_ENDPOINT")
	setString(&c.Classifier.RemoteAPIKey, "CLASSIFIER_API_KEY")

	setString(&c.Sources.Reddit.ClientID, "REDDIT_CLIENT_ID")
	setString(&c.Sources.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	setString(&c.Sources.GoogleNews.QuerySuffix, "GOOGLE_NEWS_QUERY_SUFFIX")
	setString(&c.Sources.NewsAPI.APIKey, "NEWS_API_KEY")

	setString(&c.Store.Backend, "STORE_BACKEND")
	setString(&c.Store.PostgresDSN, "DATABASE_DSN")
	setString(&c.Store.DynamoTable, "DYNAMODB_TABLE")
	setString(&c.Store.AWSRegion, "AWS_REGION")
	setString(&c.Store.AWSEndpoint, "AWS_ENDPOINT")

	setString(&c.Cache.Address, "VALKEY_INIT_ADDRESS")
	setString(&c.Cache.Password, "VALKEY_PASSWORD")
	setString(&c.Kafka.Broker, "KAFKA_BROKER")
	setString(&c.Kafka.Topic, "KAFKA_RESULTS_TOPIC")

	if v, ok := os.LookupEnv("CLASSIFIER_LABEL_ALIASES"); ok {
		aliases, err := parseAliases(v)
		if err != nil {
			return fmt.Errorf("CLASSIFIER_LABEL_ALIASES: %w", err)
		}
		c.Classifier.LabelAliases = aliases
	}

	ints := []struct {
		dst *int
		key string
	}{
		{&c.Pipeline.MaxItems, "MAX_ITEMS"},
		{&c.Pipeline.MaxTextChars, "MAX_TEXT_CHARS"},
		{&c.Classifier.BatchSize, "CLASSIFIER_BATCH_SIZE"},
		{&c.Classifier.MaxTokens, "CLASSIFIER_MAX_TOKENS"},
		{&c.Sources.Reddit.Limit, "REDDIT_LIMIT"},
	}
	for _, i := range ints {
		if err := setInt(i.dst, i.key); err != nil {
			return err
		}
	}

	durations := []struct {
		dst *time.Duration
		key string
	}{
		{&c.Pipeline.SourceTimeout, "SOURCE_TIMEOUT"},
		{&c.Pipeline.RequestTimeout, "REQUEST_TIMEOUT"},
		{&c.Classifier.HealthInterval, "CLASSIFIER_HEALTH_INTERVAL"},
		{&c.Cache.TTL, "CACHE_TTL"},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.key); err != nil {
			return err
		}
	}

	floats := []struct {
		dst *float64
		key string
	}{
		{&c.Risk.PercentWeight, "RISK_PERCENT_WEIGHT"},
		{&c.Risk.ConfidenceWeight, "RISK_CONFIDENCE_WEIGHT"},
	}
	for _, f := range floats {
		if err := setFloat(f.dst, f.key); err != nil {
			return err
		}
	}

	bools := []struct {
		dst *bool
		key string
	}{
		{&c.Server.TrustUserHeader, "TRUST_USER_HEADER"},
		{&c.Classifier.WarmUp, "CLASSIFIER_WARMUP"},
		{&c.Sources.Reddit.Enabled, "REDDIT_ENABLED"},
		{&c.Sources.GoogleNews.Enabled, "GOOGLE_NEWS_ENABLED"},
		{&c.Cache.TLS, "VALKEY_TLS"},
	}
	for _, b := range bools {
		if err := setBool(b.dst, b.key); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) bindTimezone() {
	tz := c.Pipeline.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		slog.Warn("[Config] Unknown timezone, reverting to UTC", slog.String("timezone", tz))
		loc = time.UTC
	}
	c.location = loc
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

// parseAliases reads "LABEL_0=negative,LABEL_1=neutral" pairs.
func parseAliases(raw string) (map[string]string, error) {
	aliases := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		from, to, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
			return nil, fmt.Errorf("malformed alias %q", pair)
		}
		aliases[strings.TrimSpace(from)] = strings.TrimSpace(to)
	}
	return aliases, nil
}
