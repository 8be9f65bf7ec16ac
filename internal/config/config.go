package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "NOTELINK"
	configFileName = "notelink"
)

type Config struct {
	RepoPath        string        `mapstructure:"repo_path"`
	DataPath        string        `mapstructure:"data_path"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	LinkScheme      string        `mapstructure:"link_scheme"`
	CaseInsensitive bool          `mapstructure:"case_insensitive"`
	MinNameLength   int           `mapstructure:"min_name_length"`
	StopNames       []string      `mapstructure:"stop_names"`
	Budget          time.Duration `mapstructure:"budget"`
	Workers         int           `mapstructure:"workers"`
	APIKeysFile     string        `mapstructure:"api_keys_file"`
	HighlightStyle  string        `mapstructure:"highlight_style"`
	DBLockTimeout   time.Duration `mapstructure:"db_lock_timeout"`
	Watch           bool          `mapstructure:"watch"`
}

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

// New returns a viper instance with notelink defaults, NOTELINK_* env
// binding and the config search path. Flags may be bound on top.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("repo_path", ".")
	v.SetDefault("data_path", "")
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("link_scheme", "mf://")
	v.SetDefault("case_insensitive", false)
	v.SetDefault("min_name_length", 2)
	v.SetDefault("stop_names", []string{"http", "https", "ftp", "mailto", "file"})
	v.SetDefault("budget", "0s")
	v.SetDefault("workers", 1)
	v.SetDefault("api_keys_file", "")
	v.SetDefault("highlight_style", "github")
	v.SetDefault("db_lock_timeout", "5s")
	v.SetDefault("watch", false)

	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "notelink"))
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file, decodes and validates.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DataPath == "" {
		cfg.DataPath = filepath.Join(cfg.RepoPath, ".notelink")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RepoPath, validation.Required),
		validation.Field(&c.DataPath, validation.Required),
		validation.Field(&c.ListenAddr, validation.Required),
		validation.Field(&c.LinkScheme, validation.Required, validation.Match(schemeRe)),
		validation.Field(&c.MinNameLength, validation.Min(1)),
		validation.Field(&c.Workers, validation.Min(0)),
		validation.Field(&c.Budget, validation.Min(time.Duration(0))),
		validation.Field(&c.DBLockTimeout, validation.Min(time.Duration(0))),
	)
}

func (c Config) IndexPath() string {
	return filepath.Join(c.DataPath, "index.sqlite")
}

func (c Config) IndexLockPath() string {
	return filepath.Join(c.DataPath, "index.lock")
}
