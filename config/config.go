// Package config loads engine configuration from an optional YAML file,
// a .env file, and TENDERLENS_* environment overrides, in that order of
// precedence (environment wins). Every knob has a production default, so
// Load succeeds with no configuration present at all.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tenderlens/tenderlens/analysis"
	"github.com/tenderlens/tenderlens/apperr"
	"github.com/tenderlens/tenderlens/logging"
	"github.com/tenderlens/tenderlens/tender"
)

type Config struct {
	Scoring    tender.ScoringWeights `mapstructure:"scoring"`
	Thresholds analysis.Thresholds   `mapstructure:"thresholds"`
	Database   DatabaseConfig        `mapstructure:"database"`
	Log        logging.Config        `mapstructure:"log"`
	Recompute  RecomputeConfig       `mapstructure:"recompute"`
}

// DatabaseConfig covers the postgres connection and its pool tuning.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN renders the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RecomputeConfig tunes the retry loop around score recomputation.
type RecomputeConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts" validate:"min=1"`
	InitialDelay  time.Duration `mapstructure:"initial_delay" validate:"min=0"`
	MaxDelay      time.Duration `mapstructure:"max_delay" validate:"min=0"`
	BackoffFactor float64       `mapstructure:"backoff_factor" validate:"gte=1"`
	JitterEnabled bool          `mapstructure:"jitter_enabled"`
}

var validate = validator.New()

// Load reads configuration from ./configs or the working directory plus
// the process environment.
func Load() (*Config, error) {
	// a .env file is optional; without one the process environment is used
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	return load(v)
}

// LoadFrom reads configuration from an explicit directory. Intended for
// tests and embedding applications that manage their own paths.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("TENDERLENS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperr.NewConfigurationError("failed to read config file", err)
		}
		// no config file, defaults plus environment apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperr.NewConfigurationError("failed to unmarshal config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scoring.technical_weight", 70.0)
	v.SetDefault("scoring.financial_weight", 30.0)

	v.SetDefault("thresholds.outlier_z_score", 2.0)
	v.SetDefault("thresholds.high_severity_z_score", 3.0)
	v.SetDefault("thresholds.cluster_tolerance", 0.10)
	v.SetDefault("thresholds.bias_deviation", 15.0)
	v.SetDefault("thresholds.bias_min_evaluations", 3)
	v.SetDefault("thresholds.consistency_issue_limit", 5)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tenderlens")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "tenderlens")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("recompute.max_attempts", 3)
	v.SetDefault("recompute.initial_delay", "100ms")
	v.SetDefault("recompute.max_delay", "2s")
	v.SetDefault("recompute.backoff_factor", 2.0)
	v.SetDefault("recompute.jitter_enabled", true)
}

func bindEnvVariables(v *viper.Viper) {
	// Scoring
	v.BindEnv("scoring.technical_weight", "TENDERLENS_TECHNICAL_WEIGHT")
	v.BindEnv("scoring.financial_weight", "TENDERLENS_FINANCIAL_WEIGHT")

	// Database
	v.BindEnv("database.host", "TENDERLENS_DB_HOST")
	v.BindEnv("database.port", "TENDERLENS_DB_PORT")
	v.BindEnv("database.user", "TENDERLENS_DB_USER")
	v.BindEnv("database.password", "TENDERLENS_DB_PASSWORD")
	v.BindEnv("database.dbname", "TENDERLENS_DB_NAME")
	v.BindEnv("database.sslmode", "TENDERLENS_DB_SSLMODE")

	// Logging
	v.BindEnv("log.level", "TENDERLENS_LOG_LEVEL")
	v.BindEnv("log.output", "TENDERLENS_LOG_OUTPUT")
	v.BindEnv("log.file_path", "TENDERLENS_LOG_FILE_PATH")
}

// Validate checks field ranges and the cross-field constraints the tag
// rules cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperr.NewConfigurationError("invalid configuration", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if c.Thresholds.HighSeverityZScore < c.Thresholds.OutlierZScore {
		return apperr.NewConfigurationError(
			fmt.Sprintf("high severity z-score %.2f must not be below the outlier threshold %.2f",
				c.Thresholds.HighSeverityZScore, c.Thresholds.OutlierZScore), nil)
	}
	if c.Recompute.MaxDelay < c.Recompute.InitialDelay {
		return apperr.NewConfigurationError(
			fmt.Sprintf("recompute max delay %s must not be below the initial delay %s",
				c.Recompute.MaxDelay, c.Recompute.InitialDelay), nil)
	}
	return nil
}
