/*
Copyright 2026 Altaira Labs.

SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/altairalabs/secureflow/internal/api"
	"github.com/altairalabs/secureflow/internal/archive"
	"github.com/altairalabs/secureflow/internal/auth"
	"github.com/altairalabs/secureflow/internal/config"
	"github.com/altairalabs/secureflow/internal/events"
	"github.com/altairalabs/secureflow/internal/extract"
	"github.com/altairalabs/secureflow/internal/hints"
	"github.com/altairalabs/secureflow/internal/retention"
	"github.com/altairalabs/secureflow/internal/service"
	"github.com/altairalabs/secureflow/internal/store"
	"github.com/altairalabs/secureflow/internal/store/postgres"
	"github.com/altairalabs/secureflow/internal/store/redisstats"
	"github.com/altairalabs/secureflow/internal/tracing"
	"github.com/altairalabs/secureflow/pkg/detect"
	"github.com/altairalabs/secureflow/pkg/engine"
	"github.com/altairalabs/secureflow/pkg/logging"
	"github.com/altairalabs/secureflow/pkg/masking"
	"github.com/altairalabs/secureflow/pkg/metrics"
	"github.com/altairalabs/secureflow/pkg/redaction"
	"github.com/altairalabs/secureflow/pkg/securelog"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// parseOptions loads .env files, parses flags and applies environment fallbacks.
func parseOptions(fs *flag.FlagSet, args []string) (config.Options, error) {
	opts := config.DefaultOptions()
	opts.RegisterFlags(fs)
	envFile := fs.String("env-file", ".env", "Optional dotenv file loaded before reading the environment")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if err := config.LoadDotEnv(*envFile); err != nil {
		return opts, fmt.Errorf("loading %s: %w", *envFile, err)
	}
	opts.ApplyEnvFallbacks()
	return opts, opts.Validate()
}

// collaborators groups everything that needs closing on shutdown.
type collaborators struct {
	store     store.Store
	counter   *redisstats.Counter
	publisher events.Publisher
	purger    *retention.Purger
	tracing   *tracing.Provider
}

func (c *collaborators) close(ctx context.Context, log logr.Logger) {
	if c.purger != nil {
		c.purger.Stop()
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			log.Error(err, "event publisher close error")
		}
	}
	if c.counter != nil {
		_ = c.counter.Close()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
	if c.tracing != nil {
		if err := c.tracing.Shutdown(ctx); err != nil {
			log.Error(err, "tracing shutdown error")
		}
	}
}

func run() error {
	opts, err := parseOptions(flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}

	// --- Logger ---
	zapLog, err := logging.NewZapLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = zapLog.Sync() }()
	log := zapr.NewLogger(zapLog)
	slogLog := logging.SlogFromZap(zapLog)

	// --- Signal context ---
	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	// --- Metrics ---
	scannerMetrics := metrics.NewScannerMetrics()
	auditMetrics := metrics.NewAuditMetrics()
	retentionMetrics := metrics.NewRetentionMetrics()
	retentionMetrics.Initialize()
	httpMetrics := api.NewHTTPMetrics(nil)

	c := &collaborators{}
	defer func() {
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()
		c.close(shutCtx, log)
	}()

	// --- Tracing ---
	c.tracing, err = tracing.NewProvider(ctx, tracing.Config{
		Enabled:        opts.TracingEndpoint != "",
		Endpoint:       opts.TracingEndpoint,
		ServiceName:    "secureflow",
		ServiceVersion: version,
		Environment:    os.Getenv("ENVIRONMENT"),
		SampleRate:     opts.TracingSampleRate,
		Insecure:       opts.TracingInsecure,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	// --- Engine ---
	codec, err := securelog.LoadCodec(ctx, opts.Key)
	if err != nil {
		return fmt.Errorf("loading encryption key: %w", err)
	}
	eng, err := buildEngine(opts, codec, scannerMetrics, log)
	if err != nil {
		return err
	}

	// --- Storage ---
	if c.store, err = initStore(ctx, opts, log); err != nil {
		return err
	}
	if opts.RedisAddr != "" {
		c.counter, err = redisstats.New(ctx, redisstats.Config{
			Addrs:    strings.Split(opts.RedisAddr, ","),
			Password: os.Getenv("REDIS_PASSWORD"),
			Tracing:  opts.TracingEndpoint != "",
		})
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
	}

	// --- Events ---
	if c.publisher, err = initPublisher(opts, slogLog, auditMetrics); err != nil {
		return err
	}

	// --- Retention ---
	if c.purger, err = initRetention(ctx, opts, c.store, retentionMetrics, zapLog.Sugar()); err != nil {
		return err
	}

	// --- Service ---
	issuer, err := auth.NewIssuer(opts.JWTSecret, auth.WithTTL(opts.TokenTTL))
	if err != nil {
		return err
	}
	svcCfg := service.Config{
		Hints:     initHints(opts, slogLog, scannerMetrics),
		Extractor: initExtractor(opts, log),
		Publisher: c.publisher,
		Metrics:   auditMetrics,
		Tracing:   c.tracing,
	}
	if c.counter != nil {
		svcCfg.Counter = c.counter
	}
	svc, err := service.New(eng, c.store, issuer, svcCfg, log)
	if err != nil {
		return err
	}
	handler := api.NewHandler(svc, issuer, api.Config{
		MaxUploadBytes: opts.MaxUploadBytes,
		Metrics:        httpMetrics,
	}, log)

	// --- Servers ---
	apiSrv := &http.Server{
		Addr:              opts.APIAddr,
		Handler:           otelhttp.NewHandler(handler.Routes(), "secureflow-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	healthSrv := &http.Server{Addr: opts.HealthAddr, Handler: handler.HealthRoutes(), ReadHeaderTimeout: 5 * time.Second}
	metricsSrv := newMetricsServer(opts.MetricsAddr)

	tlsCfg := opts.GetAPITLSConfig()
	if tlsCfg.IsConfigured() {
		apiSrv.TLSConfig = opts.BuildTLSConfig()
		startHTTPSServer(log, "api", apiSrv, tlsCfg)
	} else {
		startHTTPServer(log, "api", apiSrv)
	}
	startHTTPServer(log, "health", healthSrv)
	startHTTPServer(log, "metrics", metricsSrv)

	log.Info("secureflow ready",
		"version", version,
		"api", opts.APIAddr,
		"health", opts.HealthAddr,
		"metrics", opts.MetricsAddr,
		"tls", tlsCfg.IsConfigured(),
		"postgres", opts.PostgresConn != "",
		"redis", opts.RedisAddr != "",
		"hints", opts.HintsURL != "",
		"extractor", opts.ExtractorURL != "",
		"kafka", len(opts.KafkaBrokers) > 0,
		"retentionDays", opts.RetentionDays,
	)

	// --- Wait for shutdown ---
	<-ctx.Done()
	log.Info("shutting down")

	shutdownServers(log, apiSrv, healthSrv, metricsSrv)
	return nil
}

// buildRegistry assembles the detector registry from the selected built-in
// patterns and an optional pattern file.
func buildRegistry(opts config.Options) (*detect.Registry, error) {
	var regOpts []detect.Option
	if len(opts.Patterns) > 0 {
		regOpts = append(regOpts, detect.WithPatterns(opts.Patterns...))
	}
	if opts.PatternFile != "" {
		pf, err := detect.LoadPatternFile(opts.PatternFile)
		if err != nil {
			return nil, err
		}
		fileOpts, err := pf.Options()
		if err != nil {
			return nil, err
		}
		regOpts = append(regOpts, fileOpts...)
	}
	reg, err := detect.NewRegistry(regOpts...)
	if err != nil {
		return nil, fmt.Errorf("building detector registry: %w", err)
	}
	return reg, nil
}

func buildEngine(opts config.Options, codec *securelog.Codec, m *metrics.ScannerMetrics, log logr.Logger) (*engine.Engine, error) {
	reg, err := buildRegistry(opts)
	if err != nil {
		return nil, err
	}
	runner := detect.NewRunner(reg, detect.WithLogger(log), detect.WithFaultHandler(m.RecordDetectorFault))
	redactor := redaction.New(redaction.WithStrategy(redaction.ParseStrategy(opts.RedactionStrategy)))

	return engine.New(runner, masking.DefaultTable(), redactor, codec,
		engine.WithMaxInputRunes(opts.MaxInputRunes),
		engine.WithSealOriginal(opts.SealOriginal),
		engine.WithOriginalPrefixRunes(opts.OriginalPrefixRunes),
		engine.WithLogger(log),
		engine.WithObserver(m),
	)
}

// Pool configuration defaults.
const (
	defaultMaxConns        = 25
	defaultMinConns        = 5
	defaultMaxConnLifetime = time.Hour
	defaultMaxConnIdleTime = 30 * time.Minute
)

// initStore opens Postgres after migrating it, or falls back to memory.
func initStore(ctx context.Context, opts config.Options, log logr.Logger) (store.Store, error) {
	if opts.PostgresConn == "" {
		log.Info("no postgres connection configured, audit logs are kept in memory")
		return store.NewMemoryStore(), nil
	}
	if err := runMigrations(opts.PostgresConn, log); err != nil {
		return nil, err
	}

	cfg := postgres.DefaultConfig()
	cfg.ConnString = opts.PostgresConn
	cfg.MaxConns = envInt32("PG_MAX_CONNS", defaultMaxConns)
	cfg.MinConns = envInt32("PG_MIN_CONNS", defaultMinConns)
	cfg.MaxConnLifetime = envDuration("PG_MAX_CONN_LIFETIME", defaultMaxConnLifetime)
	cfg.MaxConnIdleTime = envDuration("PG_MAX_CONN_IDLE_TIME", defaultMaxConnIdleTime)
	st, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.V(1).Info("postgres pool created", "maxConns", cfg.MaxConns, "minConns", cfg.MinConns)
	return st, nil
}

func runMigrations(connStr string, log logr.Logger) error {
	migrator, err := postgres.NewMigrator(connStr, log)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()
	version, err := migrator.Up()
	if err != nil {
		return err
	}
	log.Info("audit schema ready", "version", version)
	return nil
}

func initHints(opts config.Options, log *slog.Logger, m *metrics.ScannerMetrics) hints.Hinter {
	if opts.HintsURL == "" {
		return hints.Noop{}
	}
	burst := int(math.Max(1, math.Ceil(opts.HintsRPS)))
	return hints.New(opts.HintsURL,
		hints.WithTimeout(opts.HintsTimeout),
		hints.WithRateLimit(opts.HintsRPS, burst),
		hints.WithLogger(log),
		hints.WithFailureRecorder(m.RecordHintFailure),
	)
}

func initExtractor(opts config.Options, log logr.Logger) extract.Extractor {
	router := &extract.Router{MaxBytes: opts.MaxUploadBytes}
	if opts.ExtractorURL != "" {
		router.Remote = extract.NewSidecar(extract.DefaultSidecarConfig(opts.ExtractorURL), log)
	}
	return router
}

func initPublisher(opts config.Options, log *slog.Logger, m *metrics.AuditMetrics) (events.Publisher, error) {
	if len(opts.KafkaBrokers) == 0 {
		return events.Noop{}, nil
	}
	kp, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:           opts.KafkaBrokers,
		Topic:             opts.KafkaTopic,
		PartitionStrategy: events.PartitionByUsername,
		Compression:       envOr("KAFKA_COMPRESSION", "snappy"),
		Acks:              envOr("KAFKA_ACKS", "1"),
		Retries:           3,
	}, log, events.WithErrorHandler(m.RecordPublishError))
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}
	return kp, nil
}

// initRetention starts the purge schedule when a retention period is set.
func initRetention(ctx context.Context, opts config.Options, st store.LogStore, m *metrics.RetentionMetrics, log *zap.SugaredLogger) (*retention.Purger, error) {
	if opts.RetentionDays == 0 {
		return nil, nil
	}

	var archiver archive.Archiver
	if opts.ArchiveBucket != "" {
		s3a, err := archive.NewS3Archiver(ctx, archive.S3Config{
			Bucket:       opts.ArchiveBucket,
			Region:       opts.ArchiveRegion,
			Endpoint:     opts.ArchiveEndpoint,
			UsePathStyle: opts.ArchiveEndpoint != "",
		})
		if err != nil {
			return nil, fmt.Errorf("creating archiver: %w", err)
		}
		archiver = s3a
	}

	cfg := retention.DefaultConfig()
	cfg.RetentionDays = opts.RetentionDays
	cfg.Schedule = opts.RetentionSchedule
	purger, err := retention.NewPurger(st, archiver, cfg, m, log)
	if err != nil {
		return nil, err
	}
	if err := purger.Start(ctx); err != nil {
		return nil, err
	}
	return purger, nil
}

// newMetricsServer creates a dedicated HTTP server for Prometheus metrics.
func newMetricsServer(addr string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: metricsMux, ReadHeaderTimeout: 5 * time.Second}
}

// startHTTPServer starts an HTTP server in a background goroutine.
func startHTTPServer(log logr.Logger, name string, srv *http.Server) {
	go func() {
		log.Info("starting server", "server", name, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "server error", "server", name)
		}
	}()
}

func startHTTPSServer(log logr.Logger, name string, srv *http.Server, tlsCfg config.TLSConfig) {
	go func() {
		log.Info("starting TLS server", "server", name, "addr", srv.Addr, "certDir", tlsCfg.CertDir)
		if err := srv.ListenAndServeTLS(tlsCfg.CertFile(), tlsCfg.KeyFile()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "server error", "server", name)
		}
	}()
}

// shutdownServers gracefully stops all servers with a 30-second timeout.
func shutdownServers(log logr.Logger, servers ...*http.Server) {
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutCancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutCtx); err != nil {
			log.Error(err, "server shutdown error", "addr", srv.Addr)
		}
	}
}

// envInt32 reads an environment variable as int32, returning def on missing/invalid values.
func envInt32(key string, def int32) int32 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return def
	}
	return int32(n)
}

// envDuration reads an environment variable as a time.Duration, returning def on missing/invalid.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
