package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Scorer     ScorerConfig
	Anchor     AnchorConfig
	Ledger     LedgerConfig
	Oracle     OracleConfig
	Plagiarism PlagiarismConfig
	Batch      BatchConfig
	Verify     VerifyConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ScorerConfig points at the external scoring oracle. An empty URL switches
// the client into its deterministic offline mode.
type ScorerConfig struct {
	URL     string
	Timeout time.Duration
}

// AnchorConfig configures the content-addressed pinning service. An empty
// token means anchoring is not configured and the pipeline skips it.
type AnchorConfig struct {
	APIURL  string
	Gateway string
	Token   string
	Timeout time.Duration
}

// LedgerConfig points at the read-only asset indexer.
type LedgerConfig struct {
	IndexerURL string
	Timeout    time.Duration
}

// OracleConfig carries attestation key material. When PrivateKey is empty the
// service runs in the symmetric fallback mode.
type OracleConfig struct {
	PrivateKey string
	PublicKey  string
	HMACSecret string
}

// PlagiarismConfig tunes the fingerprint engine thresholds and bounds.
type PlagiarismConfig struct {
	NGramSize          int
	MaxStoredHashes    int
	CorpusScanLimit    int
	MaxFiles           int
	MaxFileBytes       int
	MinorThreshold     float64
	HighThreshold      float64
	SuspicionThreshold float64
	FetchTimeout       time.Duration
}

// BatchConfig governs the campus batch worker pool.
type BatchConfig struct {
	Workers    int
	BufferSize int
}

// VerifyConfig tunes the public verification endpoint cache.
type VerifyConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scorer = ScorerConfig{
		URL:     v.GetString("SCORER_URL"),
		Timeout: parseDuration(v.GetString("SCORER_TIMEOUT"), 60*time.Second),
	}

	cfg.Anchor = AnchorConfig{
		APIURL:  v.GetString("ANCHOR_API_URL"),
		Gateway: v.GetString("ANCHOR_GATEWAY"),
		Token:   v.GetString("ANCHOR_TOKEN"),
		Timeout: parseDuration(v.GetString("ANCHOR_TIMEOUT"), 30*time.Second),
	}

	cfg.Ledger = LedgerConfig{
		IndexerURL: v.GetString("LEDGER_INDEXER_URL"),
		Timeout:    parseDuration(v.GetString("LEDGER_TIMEOUT"), 10*time.Second),
	}

	cfg.Oracle = OracleConfig{
		PrivateKey: v.GetString("ORACLE_PRIVATE_KEY"),
		PublicKey:  v.GetString("ORACLE_PUBLIC_KEY"),
		HMACSecret: v.GetString("ORACLE_HMAC_SECRET"),
	}

	cfg.Plagiarism = PlagiarismConfig{
		NGramSize:          v.GetInt("PLAGIARISM_NGRAM_SIZE"),
		MaxStoredHashes:    v.GetInt("PLAGIARISM_MAX_STORED_HASHES"),
		CorpusScanLimit:    v.GetInt("PLAGIARISM_CORPUS_SCAN_LIMIT"),
		MaxFiles:           v.GetInt("PLAGIARISM_MAX_FILES"),
		MaxFileBytes:       v.GetInt("PLAGIARISM_MAX_FILE_BYTES"),
		MinorThreshold:     v.GetFloat64("PLAGIARISM_MINOR_THRESHOLD"),
		HighThreshold:      v.GetFloat64("PLAGIARISM_HIGH_THRESHOLD"),
		SuspicionThreshold: v.GetFloat64("PLAGIARISM_SUSPICION_THRESHOLD"),
		FetchTimeout:       parseDuration(v.GetString("PLAGIARISM_FETCH_TIMEOUT"), 10*time.Second),
	}

	cfg.Batch = BatchConfig{
		Workers:    v.GetInt("BATCH_WORKERS"),
		BufferSize: v.GetInt("BATCH_BUFFER_SIZE"),
	}

	cfg.Verify = VerifyConfig{
		CacheTTL: parseDuration(v.GetString("VERIFY_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "certifyme")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCORER_URL", "")
	v.SetDefault("SCORER_TIMEOUT", "60s")

	v.SetDefault("ANCHOR_API_URL", "https://api.pinata.cloud")
	v.SetDefault("ANCHOR_GATEWAY", "https://gateway.pinata.cloud/ipfs")
	v.SetDefault("ANCHOR_TOKEN", "")
	v.SetDefault("ANCHOR_TIMEOUT", "30s")

	v.SetDefault("LEDGER_INDEXER_URL", "")
	v.SetDefault("LEDGER_TIMEOUT", "10s")

	v.SetDefault("ORACLE_PRIVATE_KEY", "")
	v.SetDefault("ORACLE_PUBLIC_KEY", "")
	v.SetDefault("ORACLE_HMAC_SECRET", "")

	v.SetDefault("PLAGIARISM_NGRAM_SIZE", 4)
	v.SetDefault("PLAGIARISM_MAX_STORED_HASHES", 500)
	v.SetDefault("PLAGIARISM_CORPUS_SCAN_LIMIT", 100)
	v.SetDefault("PLAGIARISM_MAX_FILES", 8)
	v.SetDefault("PLAGIARISM_MAX_FILE_BYTES", 3000)
	v.SetDefault("PLAGIARISM_MINOR_THRESHOLD", 15.0)
	v.SetDefault("PLAGIARISM_HIGH_THRESHOLD", 50.0)
	v.SetDefault("PLAGIARISM_SUSPICION_THRESHOLD", 30.0)
	v.SetDefault("PLAGIARISM_FETCH_TIMEOUT", "10s")

	v.SetDefault("BATCH_WORKERS", 1)
	v.SetDefault("BATCH_BUFFER_SIZE", 16)

	v.SetDefault("VERIFY_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
