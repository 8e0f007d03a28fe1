package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/talmzip/awwwe-feedback-form/cmd/mainconfig"
	appconfig "github.com/talmzip/awwwe-feedback-form/internal/config"
	"github.com/talmzip/awwwe-feedback-form/internal/flow"
	httpmiddleware "github.com/talmzip/awwwe-feedback-form/internal/http/middleware"
	"github.com/talmzip/awwwe-feedback-form/internal/observability/metrics"
	"github.com/talmzip/awwwe-feedback-form/internal/questionnaire"
	"github.com/talmzip/awwwe-feedback-form/internal/session"
	"github.com/talmzip/awwwe-feedback-form/internal/sheet"
	"github.com/talmzip/awwwe-feedback-form/internal/submission"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

// application holds everything the router needs plus the resources to
// release on shutdown.
type application struct {
	catalog        *questionnaire.Catalog
	sessions       *session.Manager
	sheet          *sheet.Service
	limiter        *httpmiddleware.RateLimiter
	metricsHandler http.Handler

	closers []func()
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	app := &application{limiter: limiterFor(cfg)}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	app.catalog = catalog

	metricsHandler, formMetrics := setupMetrics()
	app.metricsHandler = metricsHandler

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		awsCfg = &loaded
	}

	var pool *pgxpool.Pool
	if cfg.SheetBackend == appconfig.BackendPostgres {
		if pool = connectPostgresPool(ctx, cfg.DatabaseURL, logger); pool == nil {
			return nil, fmt.Errorf("postgres backend selected but database is unreachable")
		}
		app.closers = append(app.closers, pool.Close)
	}

	appender, err := buildAppender(ctx, cfg, awsCfg, pool)
	if err != nil {
		return nil, err
	}
	appender = mainconfig.WrapAppender(appender, cfg, awsCfg, logger)
	app.sheet = sheet.NewService(appender, cfg.SheetBackend, logger, formMetrics)

	var store session.Store
	if redisClient := connectRedis(ctx, cfg, logger); redisClient != nil {
		store = session.NewRedisStore(redisClient)
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
	}

	client := submission.NewClient(submission.ClientConfig{
		URL:      cfg.SubmitURL,
		Encoding: submission.ParseEncoding(cfg.SubmitEncoding),
		Timeout:  cfg.SubmitTimeout,
	}, catalog, logger, formMetrics)
	if err := submission.ValidateURL(cfg.SubmitURL); err != nil {
		logger.Warn("submissions will fail until SUBMIT_URL is set", "error", err)
	}

	app.sessions = session.NewManager(store, func() *flow.Flow {
		return flow.New(catalog, client, flow.Options{
			AllowRetreat: cfg.AllowRetreat,
			Logger:       logger,
			Metrics:      formMetrics,
		})
	}, cfg.SessionTTL, logger)

	return app, nil
}

func loadCatalog(path string) (*questionnaire.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return questionnaire.DefaultCatalog()
	}
	return questionnaire.LoadCatalog(path)
}

// setupMetrics registers form metrics on a private registry alongside the
// Go and process collectors.
func setupMetrics() (http.Handler, *metrics.FormMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewFormMetrics(reg)
}

func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("connected to postgres")
	return pool
}

// connectRedis returns nil when REDIS_ADDR is unset or unreachable; sessions
// then stay in process memory.
func connectRedis(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, keeping sessions in memory", "error", err, "addr", cfg.RedisAddr)
		_ = client.Close()
		return nil
	}
	logger.Info("connected to redis", "addr", cfg.RedisAddr)
	return client
}

func buildAppender(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, pool *pgxpool.Pool) (sheet.Appender, error) {
	switch cfg.SheetBackend {
	case appconfig.BackendMemory:
		return sheet.NewMemoryAppender(), nil
	case appconfig.BackendPostgres:
		if pool == nil {
			return nil, fmt.Errorf("postgres backend requires a pool")
		}
		return sheet.NewPostgresAppender(pool), nil
	case appconfig.BackendSheets:
		var opts []option.ClientOption
		if cfg.GoogleCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
		}
		return sheet.NewSheetsAppender(ctx, cfg.GoogleSheetsSpreadsheetID, cfg.GoogleSheetsRange, opts...)
	case appconfig.BackendDynamoDB:
		if awsCfg == nil {
			return nil, fmt.Errorf("dynamodb backend requires AWS config")
		}
		return sheet.NewDynamoAppender(dynamodb.NewFromConfig(*awsCfg), cfg.DynamoDBSubmissionsTable), nil
	default:
		return nil, fmt.Errorf("unknown sheet backend %q", cfg.SheetBackend)
	}
}
