package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/sentilyst/config"
	"github.com/spacesedan/sentilyst/internal/api"
	"github.com/spacesedan/sentilyst/internal/classifier"
	"github.com/spacesedan/sentilyst/internal/clients"
	"github.com/spacesedan/sentilyst/internal/clients/kafka_client"
	"github.com/spacesedan/sentilyst/internal/db"
	"github.com/spacesedan/sentilyst/internal/logging"
	"github.com/spacesedan/sentilyst/internal/monitoring"
	"github.com/spacesedan/sentilyst/internal/pipeline"
	"github.com/spacesedan/sentilyst/internal/sentiment"
)

const shutdownTimeout = 15 * time.Second

func main() {
	env := config.AppEnv()
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		logging.InitLogger("info")
		slog.Error("[Main] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(cfg.Logging.Level)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clf, err := classifier.New(newBackend(cfg.Classifier), classifier.Options{
		BatchSize:    cfg.Classifier.BatchSize,
		LabelAliases: cfg.Classifier.LabelAliases,
	})
	if err != nil {
		slog.Error("[Main] Failed to build classifier", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer clf.Close()

	deps := pipeline.Deps{
		Sources:    newSources(cfg.Sources),
		Classifier: clf,
		Metrics:    pipeline.NewMetrics(nil),
	}

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("[Main] Failed to open analysis store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()
	deps.Store = store

	if cfg.Cache.Address != "" {
		cache, err := clients.NewValkeyClient(clients.ValkeyConfig{
			Address:  cfg.Cache.Address,
			Password: cfg.Cache.Password,
			TLS:      cfg.Cache.TLS,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			slog.Warn("[Main] Result cache disabled", slog.String("error", err.Error()))
		} else {
			defer cache.Close()
			deps.Cache = cache
		}
	}

	kafkaCfg := kafka_client.KafkaConfig{Broker: cfg.Kafka.Broker, Topic: cfg.Kafka.Topic}
	if kafkaCfg.Enabled() {
		producer, err := kafka_client.NewEventProducer(kafkaCfg)
		if err != nil {
			slog.Warn("[Main] Event publishing disabled", slog.String("error", err.Error()))
		} else {
			defer producer.Close()
			deps.Events = producer
		}
	}

	analyzer, err := pipeline.NewAnalyzer(deps, pipeline.Options{
		MaxItems:      cfg.Pipeline.MaxItems,
		MaxTextChars:  cfg.Pipeline.MaxTextChars,
		SourceTimeout: cfg.Pipeline.SourceTimeout,
		Location:      cfg.Location(),
		Risk: &sentiment.RiskScorer{
			PercentWeight:    cfg.Risk.PercentWeight,
			ConfidenceWeight: cfg.Risk.ConfidenceWeight,
		},
	})
	if err != nil {
		slog.Error("[Main] Failed to build analyzer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer analyzer.Wait()

	var classifierHealthy atomic.Bool
	if cfg.Classifier.WarmUp {
		go monitoring.MonitorClassifierHealth(ctx, clf, &classifierHealthy, cfg.Classifier.HealthInterval)
	} else {
		classifierHealthy.Store(true)
	}

	router := api.Setup(api.Handlers{
		Analysis: api.NewAnalysisHandler(analyzer, cfg.Pipeline.RequestTimeout),
		Health:   api.NewHealthHandler(&classifierHealthy),
	}, api.RouterConfig{
		ClientURL:       cfg.Server.ClientURL,
		TrustUserHeader: cfg.Server.TrustUserHeader,
	})
	if !cfg.Server.TrustUserHeader {
		slog.Warn("[Main] TRUST_USER_HEADER is off; every caller is anonymous and nothing is saved")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("[Main] HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[Main] HTTP server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("[Main] Shutdown signal received...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("[Main] HTTP server shutdown failed", slog.String("error", err.Error()))
	}
	slog.Info("[Main] Waiting for pending events before exit")
}

func newBackend(cfg config.ClassifierConfig) classifier.Backend {
	switch cfg.Backend {
	case "vader":
		slog.Info("[Main] Using VADER lexicon classifier")
		return sentiment.NewVaderBackend()
	case "remote":
		slog.Info("[Main] Using remote inference classifier", slog.String("endpoint", cfg.RemoteEndpoint))
		client := clients.GetHuggingFaceClient(cfg.RemoteEndpoint, cfg.RemoteAPIKey)
		return classifier.NewRemoteBackend(client, cfg.MaxTokens)
	default:
		slog.Info("[Main] Using local ONNX classifier", slog.String("model", cfg.ModelName))
		return classifier.NewHugotBackend(cfg.ModelName, cfg.ModelDir, cfg.MaxTokens)
	}
}

func newSources(cfg config.SourcesConfig) []pipeline.Source {
	var sources []pipeline.Source
	if cfg.Reddit.Enabled {
		sources = append(sources, clients.NewRedditClient(cfg.Reddit.ClientID, cfg.Reddit.ClientSecret, cfg.Reddit.Limit))
	}
	if cfg.GoogleNews.Enabled {
		sources = append(sources, clients.NewGoogleNewsClient(cfg.GoogleNews.QuerySuffix))
	}
	if cfg.NewsAPI.APIKey != "" {
		sources = append(sources, clients.NewNewsAPIClient(cfg.NewsAPI.APIKey, cfg.NewsAPI.PageSize))
	}
	if len(sources) == 0 {
		slog.Warn("[Main] No text sources enabled; every analysis will be empty")
	}
	return sources
}

// newStore returns nil when history is disabled.
func newStore(ctx context.Context, cfg config.Config) (pipeline.AnalysisStore, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		pg, err := clients.GetPostgresClient(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, func() {}, err
		}
		store := db.NewPostgresStore(pg.DB, cfg.Location())
		if err := store.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, func() {}, err
		}
		slog.Info("[Main] Saving analyses to PostgreSQL")
		return store, pg.Close, nil
	case "dynamodb":
		client, err := clients.GetDynamoDBClient(ctx, cfg.Store.AWSRegion, cfg.Store.AWSEndpoint)
		if err != nil {
			return nil, func() {}, err
		}
		slog.Info("[Main] Saving analyses to DynamoDB", slog.String("table", cfg.Store.DynamoTable))
		return db.NewDynamoStore(client, cfg.Store.DynamoTable), func() {}, nil
	default:
		slog.Info("[Main] Analysis history disabled")
		return nil, func() {}, nil
	}
}
