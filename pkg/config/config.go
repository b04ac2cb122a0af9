package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/richipal/tmsagent/pkg/models"
)

// Config holds all configuration for tmsagent.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. Secrets
// (database password, API keys) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// Database holds the warehouse connection (PostgreSQL). The entity
	// vector index lives in the same database, in the entity_vectors table.
	Database DatabaseConfig `yaml:"database"`

	// Redis backs the conversation session store. Optional: when Host is
	// empty, session context is held in memory only.
	Redis RedisConfig `yaml:"redis"`

	// LLM holds the OpenAI-compatible endpoint used for SQL generation,
	// entity extraction, and embeddings.
	LLM LLMConfig `yaml:"llm"`

	// Resolution holds entity resolution thresholds.
	Resolution ResolutionConfig `yaml:"resolution"`

	// Indexer holds entity index build settings.
	Indexer IndexerConfig `yaml:"indexer"`

	// Executor holds query validation/execution settings.
	Executor ExecutorConfig `yaml:"executor"`
}

// DatabaseConfig holds PostgreSQL warehouse configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"tmsagent"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"timemanagement"`
	Schema         string `yaml:"schema" env:"PGSCHEMA" env-default:"public"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds the optional Redis session store configuration.
type RedisConfig struct {
	Host              string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port              int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password          string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB                int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes" env:"REDIS_SESSION_TTL_MINUTES" env-default:"60"`
}

// LLMConfig holds the OpenAI-compatible model endpoint configuration.
// BaseURL empty means the public OpenAI API.
type LLMConfig struct {
	BaseURL        string `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:""`
	APIKey         string `yaml:"-" env:"OPENAI_API_KEY"` // Secret - not in YAML
	Model          string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o"`
	EmbeddingModel string `yaml:"embedding_model" env:"EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"60"`
}

// ResolutionConfig holds entity resolution tuning. The defaults are
// calibration points, not laws: accept controls which matches substitute
// into queries, query_trust is the floor below which the whole rewrite is
// discarded, exploratory gates "did you mean" analysis on empty results.
type ResolutionConfig struct {
	AcceptThreshold      float64 `yaml:"accept_threshold" env:"RESOLUTION_ACCEPT_THRESHOLD" env-default:"0.5"`
	QueryTrustThreshold  float64 `yaml:"query_trust_threshold" env:"RESOLUTION_QUERY_TRUST_THRESHOLD" env-default:"0.3"`
	ExploratoryThreshold float64 `yaml:"exploratory_threshold" env:"RESOLUTION_EXPLORATORY_THRESHOLD" env-default:"0.5"`
	TopK                 int     `yaml:"top_k" env:"RESOLUTION_TOP_K" env-default:"5"`
	MaxSuggestions       int     `yaml:"max_suggestions" env:"RESOLUTION_MAX_SUGGESTIONS" env-default:"3"`
}

// IndexerConfig holds entity index build settings.
type IndexerConfig struct {
	// AutoIndexOnStartup rebuilds missing category indexes when the ask
	// command starts. Off by default; index builds cost embedding calls.
	AutoIndexOnStartup  bool `yaml:"auto_index_on_startup" env:"INDEXER_AUTO_INDEX_ON_STARTUP" env-default:"false"`
	RefreshIntervalHours int  `yaml:"refresh_interval_hours" env:"INDEXER_REFRESH_INTERVAL_HOURS" env-default:"24"`
	// EmbedWorkers bounds concurrent embedding calls during index builds.
	EmbedWorkers int `yaml:"embed_workers" env:"INDEXER_EMBED_WORKERS" env-default:"8"`
}

// ExecutorConfig holds query execution settings.
type ExecutorConfig struct {
	// RowCap is appended as a LIMIT to generated SELECTs that lack one.
	RowCap              int `yaml:"row_cap" env:"EXECUTOR_ROW_CAP" env-default:"80"`
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"EXECUTOR_QUERY_TIMEOUT_SECONDS" env-default:"30"`
}

// Load reads configuration from the given YAML path with environment
// variable overrides. When the file does not exist, configuration comes
// from environment variables alone — the CLI must work from a bare shell.
// The version parameter is injected at build time.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks configuration consistency and returns a structured
// report. Out-of-range knobs are errors; missing optional backends are
// warnings. It never panics and never hits the network.
func (c *Config) Validate() models.ValidationReport {
	report := models.ValidationReport{Valid: true}

	checkThreshold := func(name string, v float64) {
		if v < 0 || v > 1 {
			report.AddError(fmt.Sprintf("%s must be between 0.0 and 1.0, got %g", name, v))
		}
	}
	checkThreshold("resolution.accept_threshold", c.Resolution.AcceptThreshold)
	checkThreshold("resolution.query_trust_threshold", c.Resolution.QueryTrustThreshold)
	checkThreshold("resolution.exploratory_threshold", c.Resolution.ExploratoryThreshold)

	if c.Resolution.QueryTrustThreshold > c.Resolution.AcceptThreshold {
		report.AddWarning("resolution.query_trust_threshold exceeds accept_threshold; rewrites will be discarded more often than matches are accepted")
	}
	if c.Resolution.TopK < 1 {
		report.AddError(fmt.Sprintf("resolution.top_k must be at least 1, got %d", c.Resolution.TopK))
	}
	if c.Resolution.MaxSuggestions < 1 {
		report.AddError(fmt.Sprintf("resolution.max_suggestions must be at least 1, got %d", c.Resolution.MaxSuggestions))
	}

	if c.Executor.RowCap < 1 {
		report.AddError(fmt.Sprintf("executor.row_cap must be at least 1, got %d", c.Executor.RowCap))
	}
	if c.Indexer.EmbedWorkers < 1 {
		report.AddError(fmt.Sprintf("indexer.embed_workers must be at least 1, got %d", c.Indexer.EmbedWorkers))
	}

	if c.LLM.APIKey == "" {
		report.AddWarning("OPENAI_API_KEY is not set; SQL generation, entity extraction, and index builds will fail")
	}
	if c.Redis.Host == "" {
		report.AddWarning("redis is not configured; conversation context will not survive process restarts")
	}

	return report
}
