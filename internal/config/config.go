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

// Package config holds the secureflow server configuration: flag
// definitions, environment fallbacks, .env loading and validation.
package config

import (
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/altairalabs/secureflow/pkg/redaction"
	"github.com/altairalabs/secureflow/pkg/securelog"
)

// ErrInvalidOptions wraps every validation failure.
var ErrInvalidOptions = errors.New("invalid options")

// Options holds all configuration for the secureflow server.
type Options struct {
	// Listen addresses.
	APIAddr     string
	HealthAddr  string
	MetricsAddr string

	// API TLS. An empty cert dir serves plain HTTP.
	APICertDir  string
	APICertName string
	APICertKey  string
	EnableHTTP2 bool

	// PostgresConn selects the Postgres store. Empty means in-memory.
	PostgresConn string
	// RedisAddr enables per-user scan counters in Redis.
	RedisAddr string

	// JWTSecret signs bearer tokens.
	JWTSecret string
	// TokenTTL is the bearer token lifetime.
	TokenTTL time.Duration

	// Key describes the audit encryption key source.
	Key securelog.KeyConfig

	// PatternFile is an optional YAML file of custom detectors.
	PatternFile string
	// Patterns restricts the built-in detectors; "custom:<regex>" entries add ad-hoc ones.
	Patterns []string
	// RedactionStrategy is one of replace, hash or mask.
	RedactionStrategy string
	// MaxInputRunes bounds every analyzed text.
	MaxInputRunes int
	// SealOriginal stores an encrypted prefix of the original text.
	SealOriginal bool
	// OriginalPrefixRunes bounds the sealed original text.
	OriginalPrefixRunes int
	// MaxUploadBytes bounds uploaded documents.
	MaxUploadBytes int64

	// HintsURL is the external classifier base URL. Empty disables hints.
	HintsURL     string
	HintsTimeout time.Duration
	HintsRPS     float64
	// ExtractorURL is the document extraction sidecar. Empty means plain text only.
	ExtractorURL string

	// KafkaBrokers and KafkaTopic enable scan event publication.
	KafkaBrokers []string
	KafkaTopic   string

	// Archive settings for expired audit entries.
	ArchiveBucket   string
	ArchiveRegion   string
	ArchiveEndpoint string

	// RetentionDays deletes audit entries older than this. Zero keeps forever.
	RetentionDays     int
	RetentionSchedule string

	// TracingEndpoint enables OTLP tracing.
	TracingEndpoint   string
	TracingSampleRate float64
	TracingInsecure   bool
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		APIAddr:             ":8080",
		HealthAddr:          ":8081",
		MetricsAddr:         ":9090",
		APICertName:         "tls.crt",
		APICertKey:          "tls.key",
		TokenTTL:            7 * 24 * time.Hour,
		Key:                 securelog.KeyConfig{Provider: securelog.ProviderEnv},
		RedactionStrategy:   string(redaction.StrategyReplace),
		MaxInputRunes:       20000,
		SealOriginal:        true,
		OriginalPrefixRunes: 2000,
		MaxUploadBytes:      10 << 20,
		HintsTimeout:        10 * time.Second,
		HintsRPS:            20,
		KafkaTopic:          "secureflow.scans",
		RetentionSchedule:   "@daily",
		TracingSampleRate:   1.0,
	}
}

// RegisterFlags binds the options to fs.
func (o *Options) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.APIAddr, "api-addr", o.APIAddr, "API server listen address")
	fs.StringVar(&o.HealthAddr, "health-addr", o.HealthAddr, "Health probe listen address")
	fs.StringVar(&o.MetricsAddr, "metrics-addr", o.MetricsAddr, "Metrics server listen address")
	fs.StringVar(&o.APICertDir, "api-cert-dir", o.APICertDir, "Directory holding the API TLS certificate")
	fs.BoolVar(&o.EnableHTTP2, "enable-http2", o.EnableHTTP2, "Enable HTTP/2 for the API server")
	fs.StringVar(&o.PostgresConn, "postgres-conn", o.PostgresConn, "Postgres connection string (empty uses an in-memory store)")
	fs.StringVar(&o.RedisAddr, "redis-addr", o.RedisAddr, "Redis address for scan counters")
	fs.StringVar(&o.PatternFile, "pattern-file", o.PatternFile, "YAML file of custom detectors")
	fs.StringVar(&o.RedactionStrategy, "redaction-strategy", o.RedactionStrategy, "Redaction rendering: replace, hash or mask")
	fs.StringVar(&o.HintsURL, "hints-url", o.HintsURL, "External classifier base URL")
	fs.StringVar(&o.ExtractorURL, "extractor-url", o.ExtractorURL, "Document extraction sidecar URL")
	fs.StringVar(&o.KafkaTopic, "kafka-topic", o.KafkaTopic, "Kafka topic for scan events")
	fs.StringVar(&o.ArchiveBucket, "archive-bucket", o.ArchiveBucket, "S3 bucket for expired audit entries")
	fs.StringVar(&o.ArchiveRegion, "archive-region", o.ArchiveRegion, "S3 region")
	fs.StringVar(&o.ArchiveEndpoint, "archive-endpoint", o.ArchiveEndpoint, "S3 endpoint override")
	fs.StringVar(&o.RetentionSchedule, "retention-schedule", o.RetentionSchedule, "Cron schedule for the retention purge")
	fs.StringVar(&o.TracingEndpoint, "tracing-endpoint", o.TracingEndpoint, "OTLP gRPC collector endpoint")
	fs.IntVar(&o.RetentionDays, "retention-days", o.RetentionDays, "Delete audit entries older than this many days (0 keeps forever)")
	fs.IntVar(&o.MaxInputRunes, "max-input-runes", o.MaxInputRunes, "Maximum analyzed characters per request")
	fs.BoolVar(&o.SealOriginal, "seal-original", o.SealOriginal, "Store an encrypted prefix of the original text")
	fs.BoolVar(&o.TracingInsecure, "tracing-insecure", o.TracingInsecure, "Disable TLS for the OTLP connection")
	fs.DurationVar(&o.TokenTTL, "token-ttl", o.TokenTTL, "Bearer token lifetime")
	fs.DurationVar(&o.HintsTimeout, "hints-timeout", o.HintsTimeout, "External classifier timeout")
}

// ApplyEnvFallbacks fills options still at their defaults from the
// environment. Secrets are only read from the environment.
func (o *Options) ApplyEnvFallbacks() {
	def := DefaultOptions()

	envFallback(&o.APIAddr, def.APIAddr, "API_ADDR")
	envFallback(&o.HealthAddr, def.HealthAddr, "HEALTH_ADDR")
	envFallback(&o.MetricsAddr, def.MetricsAddr, "METRICS_ADDR")
	envFallback(&o.PostgresConn, "", "POSTGRES_CONN")
	envFallback(&o.RedisAddr, "", "REDIS_ADDR")
	envFallback(&o.PatternFile, "", "PATTERN_FILE")
	envFallback(&o.RedactionStrategy, def.RedactionStrategy, "REDACTION_STRATEGY")
	envFallback(&o.HintsURL, "", "ML_SERVICE_URL")
	envFallback(&o.ExtractorURL, "", "EXTRACTOR_URL")
	envFallback(&o.KafkaTopic, def.KafkaTopic, "KAFKA_TOPIC")
	envFallback(&o.ArchiveBucket, "", "ARCHIVE_BUCKET")
	envFallback(&o.ArchiveRegion, "", "ARCHIVE_REGION")
	envFallback(&o.ArchiveEndpoint, "", "ARCHIVE_ENDPOINT")
	envFallback(&o.RetentionSchedule, def.RetentionSchedule, "RETENTION_SCHEDULE")
	envFallback(&o.TracingEndpoint, "", "OTEL_EXPORTER_OTLP_ENDPOINT")

	envIntFallback(&o.RetentionDays, 0, "RETENTION_DAYS")
	envIntFallback(&o.MaxInputRunes, def.MaxInputRunes, "MAX_INPUT_RUNES")
	envBoolFallback(&o.TracingInsecure, "TRACING_INSECURE")
	envDurationFallback(&o.TokenTTL, def.TokenTTL, "TOKEN_TTL")
	envDurationFallback(&o.HintsTimeout, def.HintsTimeout, "ML_SERVICE_TIMEOUT")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" && len(o.KafkaBrokers) == 0 {
		o.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("PATTERNS"); v != "" && len(o.Patterns) == 0 {
		o.Patterns = splitList(v)
	}
	if v := os.Getenv("SEAL_ORIGINAL"); v != "" {
		o.SealOriginal = v == "true" || v == "1"
	}

	o.JWTSecret = os.Getenv("JWT_SECRET")
	o.Key.Provider = securelog.ProviderType(envOr("ENCRYPTION_KEY_PROVIDER", string(securelog.ProviderEnv)))
	o.Key.Key = os.Getenv("ENCRYPTION_KEY")
	o.Key.KeyID = os.Getenv("ENCRYPTION_KEY_ID")
	o.Key.VaultURL = os.Getenv("ENCRYPTION_VAULT_URL")
	o.Key.Credentials = kmsCredentials()
}

// Validate checks the options. Key and signing secrets are required: the
// server refuses to start rather than run without encryption.
func (o *Options) Validate() error {
	var errs []error
	if strings.TrimSpace(o.Key.Key) == "" {
		errs = append(errs, fmt.Errorf("ENCRYPTION_KEY: %w", securelog.ErrEncryptionKeyMissing))
	}
	if len(o.JWTSecret) < 16 {
		errs = append(errs, fmt.Errorf("%w: JWT_SECRET must be at least 16 characters", ErrInvalidOptions))
	}
	if o.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("%w: token TTL must be positive", ErrInvalidOptions))
	}
	switch redaction.Strategy(strings.ToLower(o.RedactionStrategy)) {
	case redaction.StrategyReplace, redaction.StrategyHash, redaction.StrategyMask:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown redaction strategy %q", ErrInvalidOptions, o.RedactionStrategy))
	}
	if o.MaxInputRunes <= 0 {
		errs = append(errs, fmt.Errorf("%w: max input runes must be positive", ErrInvalidOptions))
	}
	if o.OriginalPrefixRunes <= 0 {
		errs = append(errs, fmt.Errorf("%w: original prefix runes must be positive", ErrInvalidOptions))
	}
	if o.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("%w: max upload bytes must be positive", ErrInvalidOptions))
	}
	if o.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("%w: retention days must not be negative", ErrInvalidOptions))
	}
	if o.ArchiveBucket != "" && o.ArchiveRegion == "" {
		errs = append(errs, fmt.Errorf("%w: archive region is required with an archive bucket", ErrInvalidOptions))
	}
	if o.TracingSampleRate < 0 || o.TracingSampleRate > 1 {
		errs = append(errs, fmt.Errorf("%w: tracing sample rate must be within [0,1]", ErrInvalidOptions))
	}
	return errors.Join(errs...)
}

// TLSConfig holds TLS-related configuration.
type TLSConfig struct {
	CertDir  string
	CertName string
	KeyName  string
}

// IsConfigured returns true if the TLS config has a cert directory specified.
func (t *TLSConfig) IsConfigured() bool {
	return t.CertDir != ""
}

// CertFile returns the certificate path.
func (t *TLSConfig) CertFile() string {
	return filepath.Join(t.CertDir, t.CertName)
}

// KeyFile returns the private key path.
func (t *TLSConfig) KeyFile() string {
	return filepath.Join(t.CertDir, t.KeyName)
}

// GetAPITLSConfig returns TLS configuration for the API server.
func (o *Options) GetAPITLSConfig() TLSConfig {
	return TLSConfig{
		CertDir:  o.APICertDir,
		CertName: o.APICertName,
		KeyName:  o.APICertKey,
	}
}

// BuildTLSConfig returns the server tls.Config. HTTP/2 is disabled unless
// explicitly enabled.
func (o *Options) BuildTLSConfig() *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if !o.EnableHTTP2 {
		cfg.NextProtos = []string{"http/1.1"}
	}
	return cfg
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// envFallback sets *dst from envKey when *dst still equals the default and
// the variable is non-empty.
func envFallback(dst *string, defaultVal, envKey string) {
	if *dst == defaultVal {
		if v := os.Getenv(envKey); v != "" {
			*dst = v
		}
	}
}

func envBoolFallback(dst *bool, envKey string) {
	if !*dst && os.Getenv(envKey) == "true" {
		*dst = true
	}
}

func envIntFallback(dst *int, defaultVal int, envKey string) {
	if *dst != defaultVal {
		return
	}
	if n, err := strconv.Atoi(os.Getenv(envKey)); err == nil {
		*dst = n
	}
}

func envDurationFallback(dst *time.Duration, defaultVal time.Duration, envKey string) {
	if *dst != defaultVal {
		return
	}
	if d, err := time.ParseDuration(os.Getenv(envKey)); err == nil {
		*dst = d
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// kmsCredentials collects provider credentials from the environment using
// the key names securelog expects.
func kmsCredentials() map[string]string {
	creds := map[string]string{}
	for key, env := range map[string]string{
		"region":            "AWS_REGION",
		"access-key-id":     "AWS_ACCESS_KEY_ID",
		"secret-access-key": "AWS_SECRET_ACCESS_KEY",
		"credentials-json":  "GCP_CREDENTIALS_JSON",
		"tenant-id":         "AZURE_TENANT_ID",
		"client-id":         "AZURE_CLIENT_ID",
		"client-secret":     "AZURE_CLIENT_SECRET",
		"key-version":       "ENCRYPTION_KEY_VERSION",
	} {
		if v := os.Getenv(env); v != "" {
			creds[key] = v
		}
	}
	return creds
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
