// Package config loads application configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Datasets DatasetsConfig `yaml:"datasets" mapstructure:"datasets"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ModelConfig configures the SIR fit and projection.
type ModelConfig struct {
	Population        float64 `yaml:"population" mapstructure:"population"`
	TrainingWindowEnd string  `yaml:"training_window_end" mapstructure:"training_window_end"`
	ForecastHorizon   int     `yaml:"forecast_horizon" mapstructure:"forecast_horizon"`
}

// TrainEnd parses the configured training window end date.
func (m ModelConfig) TrainEnd() (time.Time, error) {
	if m.TrainingWindowEnd == "" {
		return time.Time{}, eris.New("config: model.training_window_end is required")
	}
	t, err := time.Parse("2006-01-02", m.TrainingWindowEnd)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "config: parse training_window_end %q", m.TrainingWindowEnd)
	}
	return t, nil
}

// DatasetsConfig holds per-dataset source locations. ElectionCharset names
// the encoding of the election export when it is not UTF-8 (board exports
// have shipped as windows-1252); empty means no transcoding.
type DatasetsConfig struct {
	CovidURL        string `yaml:"covid_url" mapstructure:"covid_url"`
	ShootingsURL    string `yaml:"shootings_url" mapstructure:"shootings_url"`
	ElectionURL     string `yaml:"election_url" mapstructure:"election_url"`
	ElectionCharset string `yaml:"election_charset" mapstructure:"election_charset"`
	TempDir         string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// FetchConfig configures the HTTP/FTP fetchers.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "epi.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("model.population", 330_000_000)
	v.SetDefault("model.forecast_horizon", 12)
	v.SetDefault("datasets.covid_url", "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/time_series_covid19_combined_US.csv")
	v.SetDefault("datasets.shootings_url", "https://data.cityofnewyork.us/resource/833y-fsy8.json")
	v.SetDefault("datasets.election_url", "https://www.vote.nyc/sites/default/files/results/precinct_results.csv")
	v.SetDefault("datasets.election_charset", "")
	v.SetDefault("datasets.temp_dir", "/tmp/epi-cli")
	v.SetDefault("fetch.user_agent", "epi-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
