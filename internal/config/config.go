package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Read  ReadConfig  `yaml:"read" mapstructure:"read"`
	Attrs AttrsConfig `yaml:"attrs" mapstructure:"attrs"`
	Store StoreConfig `yaml:"store" mapstructure:"store"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// ReadConfig controls how shapefiles are decoded.
type ReadConfig struct {
	Mode        string `yaml:"mode" mapstructure:"mode"` // auto, sequential, indexed
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// AttrsConfig controls attribute table decoding.
type AttrsConfig struct {
	Encoding string `yaml:"encoding" mapstructure:"encoding"` // used when no .cpg is present
}

// StoreConfig configures the load target.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
	Table       string `yaml:"table" mapstructure:"table"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	SRID        int    `yaml:"srid" mapstructure:"srid"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
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
	v.SetEnvPrefix("SHAPECODEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("read.mode", "auto")
	v.SetDefault("read.concurrency", 4)
	v.SetDefault("read.temp_dir", "")
	v.SetDefault("attrs.encoding", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "shapecodec.db")
	v.SetDefault("store.schema", "public")
	v.SetDefault("store.table", "")
	v.SetDefault("store.batch_size", 5000)
	v.SetDefault("store.srid", 4326)
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command depends on. command is "read"
// for the decoding commands or "load".
func (c *Config) Validate(command string) error {
	var errs []string

	switch command {
	case "read", "load":
	default:
		return eris.Errorf("config: unknown mode %q", command)
	}

	switch strings.ToLower(c.Read.Mode) {
	case "", "auto", "sequential", "indexed":
	default:
		errs = append(errs, fmt.Sprintf("read.mode %q must be auto, sequential or indexed", c.Read.Mode))
	}
	if c.Read.Concurrency < 1 || c.Read.Concurrency > 64 {
		errs = append(errs, "read.concurrency must be between 1 and 64")
	}

	if command == "load" {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Store.BatchSize < 1 {
			errs = append(errs, "store.batch_size must be > 0")
		}
		if c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns {
			errs = append(errs, "store.min_conns must not exceed store.max_conns")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
