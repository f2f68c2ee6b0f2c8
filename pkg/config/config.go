package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMongoDB  = "mongodb"

	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderKeyword = "keyword"
)

type Config struct {
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	MongoDB    MongoDBConfig    `mapstructure:"mongodb"`
	Search     SearchConfig     `mapstructure:"search"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
	Debug bool   `mapstructure:"debug"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory postgres sqlite mongodb"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type SearchConfig struct {
	// IndexPath enables the full-text knowledge index when set.
	IndexPath string `mapstructure:"index_path"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=openai gemini keyword"`
}

type ClassifierConfig struct {
	MinConfidence       float64 `mapstructure:"min_confidence" validate:"min=0,max=1"`
	MaxTags             int     `mapstructure:"max_tags" validate:"min=1,max=20"`
	MaxKnowledgeContext int     `mapstructure:"max_knowledge_context" validate:"min=1,max=100"`
}

type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Model       string        `mapstructure:"model" validate:"required"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"min=1"`
	Temperature float64       `mapstructure:"temperature" validate:"min=0,max=2"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=1s,max=10m"`
}

type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Model       string        `mapstructure:"model" validate:"required"`
	Temperature float64       `mapstructure:"temperature" validate:"min=0,max=2"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=1s,max=10m"`
}

type MetricsConfig struct {
	// Addr for the Prometheus endpoint, e.g. ":9090". Empty disables it.
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.debug", false)

	v.SetDefault("storage.backend", BackendMemory)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "council")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("sqlite.path", "council.db")

	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "council")

	v.SetDefault("search.index_path", "")

	v.SetDefault("llm.provider", ProviderOpenAI)

	v.SetDefault("classifier.min_confidence", 0.7)
	v.SetDefault("classifier.max_tags", 5)
	v.SetDefault("classifier.max_knowledge_context", 10)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 800)
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.timeout", time.Minute)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.temperature", 0.3)
	v.SetDefault("gemini.timeout", time.Minute)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// parseDatabaseURL accepts postgres:// and sqlite:// style URLs. For SQLite
// only the returned path is set.
func parseDatabaseURL(dbURL string) (DatabaseConfig, string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, "", err
	}

	if strings.HasPrefix(u.Scheme, "sqlite") {
		path := u.Opaque
		if path == "" {
			path = u.Host + u.Path
		}
		// sqlite:///./data/x.db keeps a leading slash before the relative part.
		path = strings.TrimPrefix(path, "/./")
		if path == "" {
			return DatabaseConfig{}, "", errors.New("sqlite url has no path")
		}
		return DatabaseConfig{}, path, nil
	}

	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, "", fmt.Errorf("unsupported database url scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		if port, err = strconv.Atoi(u.Port()); err != nil {
			return DatabaseConfig{}, "", fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, "", nil
}

// LoadConfig reads the YAML file at path, if it exists, and applies
// environment overrides. Nested keys map to upper-case variables with dots
// replaced by underscores, e.g. OPENAI_API_KEY for openai.api_key. A .env
// file in the working directory is loaded first.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyLegacyEnv(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyLegacyEnv honours variable names that do not follow the key scheme.
func applyLegacyEnv(config *Config) error {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		dbConfig, sqlitePath, err := parseDatabaseURL(dbURL)
		if err != nil {
			return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		if sqlitePath != "" {
			config.SQLite.Path = sqlitePath
		} else {
			config.Database = dbConfig
		}
	}

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" && config.Telegram.Token == "" {
		config.Telegram.Token = token
	}

	if mongoURL := os.Getenv("MONGODB_URL"); mongoURL != "" {
		config.MongoDB.URI = mongoURL
	}

	return nil
}

var validate = validator.New()

// Validate checks field constraints and the settings required by the
// selected storage backend and LLM provider.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			return errors.New("invalid config: database.host and database.dbname are required for the postgres backend")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return errors.New("invalid config: sqlite.path is required for the sqlite backend")
		}
	case BackendMongoDB:
		if c.MongoDB.URI == "" || c.MongoDB.Database == "" {
			return errors.New("invalid config: mongodb.uri and mongodb.database are required for the mongodb backend")
		}
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return errors.New("invalid config: OPENAI_API_KEY is required when using the openai provider")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return errors.New("invalid config: GEMINI_API_KEY is required when using the gemini provider")
		}
	}

	return nil
}
