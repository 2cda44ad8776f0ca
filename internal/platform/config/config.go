// Package config reads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	kstrings "kycflow/pkg/platform/strings"
)

// Config holds all process configuration.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	PII      PIIConfig
	Workflow WorkflowConfig
	Risk     RiskConfig
	Intake   IntakeConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Env             string
	LogLevel        string
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects Postgres. An empty URL runs on the in-memory store.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

// RedisConfig enables the distributed lock and watchlist. Empty URL falls
// back to process-local implementations.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables event publishing. No brokers means events are logged.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	ClientID          string
	Partitions        int32
	ReplicationFactor int16
	BufferCapacity    int
	BatchSize         int
	FlushInterval     time.Duration
}

// PIIConfig carries hex-encoded 32-byte keys.
type PIIConfig struct {
	EncryptionKeyHex string
	IndexKeyHex      string
}

type WorkflowConfig struct {
	AutoApprovalThreshold      decimal.Decimal
	AutoRejectionThreshold     decimal.Decimal
	EnableAutoReview           bool
	FailedCheckForcesRejection bool
	MaxSubmissions             int
	ReviewTimeout              time.Duration
	ApprovalValidity           time.Duration
	EnableBlacklistCheck       bool
	EnableDuplicateCheck       bool
	EnableAMLCheck             bool
	CheckTimeout               time.Duration
	LockTTL                    time.Duration
	LockWait                   time.Duration
	BatchConcurrency           int
	SweepInterval              time.Duration
	SweepBatchSize             int
	BreakerFailureThreshold    int
	BreakerCooldown            time.Duration
	// SanctionedNationalities seed the watchlist at startup.
	SanctionedNationalities []string
	// AMLFlaggedCountries seed the AML screener at startup.
	AMLFlaggedCountries []string
}

type RiskConfig struct {
	AgeWeight         decimal.Decimal
	LocationWeight    decimal.Decimal
	OccupationWeight  decimal.Decimal
	IncomeWeight      decimal.Decimal
	LowRiskCountries  []string
	HighRiskCountries []string
	MinimumAge        int
}

type IntakeConfig struct {
	MinimumAge      int
	MaximumAge      int
	DefaultKYCLevel int
	MaxKYCLevel     int
}

// Load reads configuration from the environment. A malformed value is an
// error rather than a silent default.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	r := &reader{}
	cfg := &Config{}

	cfg.Server.Addr = r.str("KYC_ADDR", ":8080")
	cfg.Server.Env = r.str("ENV", "development")
	cfg.Server.LogLevel = r.str("LOG_LEVEL", "info")
	cfg.Server.ShutdownTimeout = r.duration("SHUTDOWN_TIMEOUT", 10*time.Second)

	cfg.Database.URL = r.str("DATABASE_URL", "")
	cfg.Database.MaxOpenConns = r.int("DATABASE_MAX_OPEN_CONNS", 25)
	cfg.Database.MaxIdleConns = r.int("DATABASE_MAX_IDLE_CONNS", 5)
	cfg.Database.ConnMaxLifetime = r.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.Database.MigrateOnStart = r.bool("DATABASE_MIGRATE", true)

	cfg.Redis.URL = r.str("REDIS_URL", "")
	cfg.Redis.PoolSize = r.int("REDIS_POOL_SIZE", 10)
	cfg.Redis.MinIdleConns = r.int("REDIS_MIN_IDLE_CONNS", 2)
	cfg.Redis.DialTimeout = r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.Redis.ReadTimeout = r.duration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.Redis.WriteTimeout = r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second)

	cfg.Kafka.Brokers = r.list("KAFKA_BROKERS", nil)
	cfg.Kafka.Topic = r.str("KAFKA_TOPIC", "kyc.events")
	cfg.Kafka.ClientID = r.str("KAFKA_CLIENT_ID", "kycflow")
	cfg.Kafka.Partitions = int32(r.int("KAFKA_TOPIC_PARTITIONS", 3))
	cfg.Kafka.ReplicationFactor = int16(r.int("KAFKA_TOPIC_REPLICATION", 1))
	cfg.Kafka.BufferCapacity = r.int("KAFKA_BUFFER_CAPACITY", 10000)
	cfg.Kafka.BatchSize = r.int("KAFKA_BATCH_SIZE", 100)
	cfg.Kafka.FlushInterval = r.duration("KAFKA_FLUSH_INTERVAL", time.Second)

	cfg.PII.EncryptionKeyHex = r.str("PII_ENCRYPTION_KEY", "")
	cfg.PII.IndexKeyHex = r.str("PII_INDEX_KEY", "")

	w := &cfg.Workflow
	w.AutoApprovalThreshold = r.decimal("KYC_AUTO_APPROVAL_THRESHOLD", "30")
	w.AutoRejectionThreshold = r.decimal("KYC_AUTO_REJECTION_THRESHOLD", "70")
	w.EnableAutoReview = r.bool("KYC_ENABLE_AUTO_REVIEW", true)
	w.FailedCheckForcesRejection = r.bool("KYC_FAILED_CHECK_FORCES_REJECTION", true)
	w.MaxSubmissions = r.int("KYC_MAX_SUBMISSIONS", 3)
	w.ReviewTimeout = r.duration("KYC_REVIEW_TIMEOUT", 24*time.Hour)
	w.ApprovalValidity = r.duration("KYC_APPROVAL_VALIDITY", 365*24*time.Hour)
	w.EnableBlacklistCheck = r.bool("KYC_ENABLE_BLACKLIST_CHECK", true)
	w.EnableDuplicateCheck = r.bool("KYC_ENABLE_DUPLICATE_CHECK", true)
	w.EnableAMLCheck = r.bool("KYC_ENABLE_AML_CHECK", true)
	w.CheckTimeout = r.duration("KYC_CHECK_TIMEOUT", 5*time.Second)
	w.LockTTL = r.duration("KYC_LOCK_TTL", 30*time.Second)
	w.LockWait = r.duration("KYC_LOCK_WAIT", 2*time.Second)
	w.BatchConcurrency = r.int("KYC_BATCH_CONCURRENCY", 4)
	w.SweepInterval = r.duration("KYC_SWEEP_INTERVAL", 5*time.Minute)
	w.SweepBatchSize = r.int("KYC_SWEEP_BATCH_SIZE", 100)
	w.BreakerFailureThreshold = r.int("KYC_BREAKER_FAILURES", 5)
	w.BreakerCooldown = r.duration("KYC_BREAKER_COOLDOWN", 30*time.Second)
	w.SanctionedNationalities = r.codes("KYC_SANCTIONED_NATIONALITIES", nil)
	w.AMLFlaggedCountries = r.codes("KYC_AML_FLAGGED_COUNTRIES", nil)

	k := &cfg.Risk
	k.AgeWeight = r.decimal("RISK_WEIGHT_AGE", "0.2")
	k.LocationWeight = r.decimal("RISK_WEIGHT_LOCATION", "0.3")
	k.OccupationWeight = r.decimal("RISK_WEIGHT_OCCUPATION", "0.2")
	k.IncomeWeight = r.decimal("RISK_WEIGHT_INCOME", "0.1")
	k.LowRiskCountries = r.codes("RISK_LOW_RISK_COUNTRIES", []string{"CN", "US", "JP", "KR", "SG"})
	k.HighRiskCountries = r.codes("RISK_HIGH_RISK_COUNTRIES", []string{"AF", "SY", "IQ", "SO", "KP", "IR"})

	i := &cfg.Intake
	i.MinimumAge = r.int("KYC_MINIMUM_AGE", 18)
	i.MaximumAge = r.int("KYC_MAXIMUM_AGE", 120)
	i.DefaultKYCLevel = r.int("KYC_DEFAULT_LEVEL", 1)
	i.MaxKYCLevel = r.int("KYC_MAX_LEVEL", 3)
	k.MinimumAge = i.MinimumAge

	if r.err != nil {
		return nil, r.err
	}
	if cfg.IsProduction() && (cfg.PII.EncryptionKeyHex == "" || cfg.PII.IndexKeyHex == "") {
		return nil, fmt.Errorf("PII_ENCRYPTION_KEY and PII_INDEX_KEY are required in production")
	}
	return cfg, nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// reader keeps the first parse error so Load can report it once.
type reader struct {
	err error
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("config %s: %w", key, err)
	}
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *reader) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}

func (r *reader) decimal(key, def string) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.fail(key, err)
		return decimal.RequireFromString(def)
	}
	return d
}

// list parses a comma-separated value, dropping empty and repeated entries.
func (r *reader) list(key string, def []string) []string {
	if v := kstrings.SplitList(os.Getenv(key), nil); len(v) > 0 {
		return v
	}
	return def
}

// codes is list for ISO country codes, upper-cased.
func (r *reader) codes(key string, def []string) []string {
	if v := kstrings.SplitList(os.Getenv(key), strings.ToUpper); len(v) > 0 {
		return v
	}
	return def
}
