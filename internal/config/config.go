package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

type Config struct {
	Env      string `yaml:"env" env:"LINKDECK_ENV"`
	PageSize int    `yaml:"page_size" env:"LINKDECK_PAGE_SIZE"`
	API      API    `yaml:"api"`
	State    State  `yaml:"state"`
}

type API struct {
	BaseURL string        `yaml:"base_url" env:"LINKDECK_API_URL"`
	Timeout time.Duration `yaml:"timeout"`
}

var defaultAPI = API{
	BaseURL: "http://localhost:8000",
	Timeout: 10 * time.Second,
}

type State struct {
	Path string `yaml:"path" env:"LINKDECK_STATE_PATH"`
}

var defaultState = State{
	Path: "linkdeck.db",
}

// Load reads the optional config file at path and applies environment
// overrides on top. An empty path skips the file and uses defaults.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
		}
	}

	for _, v := range []any{&cfg, &cfg.API, &cfg.State} {
		if err := env.Parse(v); err != nil {
			return nil, fmt.Errorf("%s: failed to parse environment: %w", op, err)
		}
	}

	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("%s: page_size must be positive", op)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.PageSize = 10
	cfg.API = defaultAPI
	cfg.State = defaultState
}
