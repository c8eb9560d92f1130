// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	ETL       ETLConfig       `yaml:"etl" mapstructure:"etl"`
	Analytics AnalyticsConfig `yaml:"analytics" mapstructure:"analytics"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ETLConfig configures pipeline batching.
type ETLConfig struct {
	BatchSize     int `yaml:"batch_size" mapstructure:"batch_size"`
	FactBatchSize int `yaml:"fact_batch_size" mapstructure:"fact_batch_size"`
}

// AnalyticsConfig configures the dimensional load.
type AnalyticsConfig struct {
	// DimUpdateMode is "overwrite" or "scd2".
	DimUpdateMode string `yaml:"dim_update_mode" mapstructure:"dim_update_mode"`
}

// ExtractConfig configures workbook parsing.
type ExtractConfig struct {
	SheetName   string `yaml:"sheet_name" mapstructure:"sheet_name"`
	SkipRows    int    `yaml:"skip_rows" mapstructure:"skip_rows"`
	CropCatalog string `yaml:"crop_catalog" mapstructure:"crop_catalog"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AGROETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a meaningful default still get one so
	// AutomaticEnv picks them up during Unmarshal.
	v.SetDefault("store.database_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("etl.batch_size", 500)
	v.SetDefault("etl.fact_batch_size", 1000)
	v.SetDefault("analytics.dim_update_mode", "overwrite")
	v.SetDefault("extract.sheet_name", "")
	v.SetDefault("extract.skip_rows", 0)
	v.SetDefault("extract.crop_catalog", "")

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
