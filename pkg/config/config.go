// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/primeword/pkg/define"
	"github.com/japaniel/primeword/pkg/wordlist"
)

// Config is the complete service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Sources     SourcesConfig     `yaml:"sources"`
	Definitions DefinitionsConfig `yaml:"definitions"`
	Query       QueryConfig       `yaml:"query"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	StaticDir       string        `yaml:"static_dir"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// SourcesConfig locates the word lists. Either may be a URL or a file path;
// an empty location leaves that list empty.
type SourcesConfig struct {
	Corpus       string        `yaml:"corpus"`
	Common       string        `yaml:"common"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBytes     int64         `yaml:"max_bytes" validate:"gte=0"`
}

type DefinitionsConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// LookupTimeout bounds every single definition lookup.
	LookupTimeout time.Duration `yaml:"lookup_timeout" validate:"required,gt=0"`
	Workers       int           `yaml:"workers" validate:"gt=0,lte=1024"`
	Queue         int           `yaml:"queue" validate:"gte=0"`
	// RateLimit is requests per second to the dictionary; 0 disables limiting.
	RateLimit   float64       `yaml:"rate_limit" validate:"gte=0"`
	Burst       int           `yaml:"burst" validate:"gte=0"`
	CacheDSN    string        `yaml:"cache_dsn"`
	CacheTTL    time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	NegativeTTL time.Duration `yaml:"negative_ttl" validate:"gte=0"`
}

type QueryConfig struct {
	// MaxLength rejects longer words; 0 means unlimited.
	MaxLength int `yaml:"max_length" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// Default returns the configuration of the original service: the dwyl
// word list, the google-10000 common words and dictionaryapi.dev on :3000.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Sources: SourcesConfig{
			Corpus:       wordlist.DefaultCorpusURL,
			Common:       wordlist.DefaultCommonURL,
			FetchTimeout: 60 * time.Second,
			UserAgent:    "primeword",
			MaxBytes:     wordlist.DefaultMaxBytes,
		},
		Definitions: DefinitionsConfig{
			BaseURL:       define.DefaultBaseURL,
			LookupTimeout: 5 * time.Second,
			Workers:       16,
			RateLimit:     20,
			Burst:         10,
			CacheDSN:      ":memory:",
			CacheTTL:      define.DefaultTTL,
			NegativeTTL:   define.DefaultNegativeTTL,
		},
		Query: QueryConfig{MaxLength: 64},
		Log:   LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path over Default, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides. PORT replaces the listen address.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
