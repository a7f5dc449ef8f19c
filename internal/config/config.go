package config

import (
	"os"

	"github.com/LdDl/taglab-go/taglab"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// EnvLogLevel overrides log.level
	EnvLogLevel = "TAGLAB_LOG_LEVEL"
	// EnvStorePath overrides store.path
	EnvStorePath = "TAGLAB_STORE_PATH"
)

// Config is the configuration of the taglab command line tool
type Config struct {
	Matching MatchingConfig `yaml:"matching"`
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
}

// MatchingConfig drives automatic correspondences computation
type MatchingConfig struct {
	BBoxThreshold float64 `yaml:"bbox_threshold"`
	MinOverlap    float64 `yaml:"min_overlap"`
	IgnoreClass   bool    `yaml:"ignore_class"`
	// greedy, best_first or hungarian
	Algorithm string `yaml:"algorithm"`
	// 0 means GOMAXPROCS
	Workers int `yaml:"workers"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig contains snapshot store settings
type StoreConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// Default returns configuration used when no file is given
func Default() *Config {
	return &Config{
		Matching: MatchingConfig{
			BBoxThreshold: taglab.DefaultBBoxThreshold,
			MinOverlap:    0.0,
			IgnoreClass:   false,
			Algorithm:     taglab.MatchingAlgorithmGreedy.String(),
			Workers:       0,
		},
		Log: LogConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Path: "taglab-snapshots",
		},
	}
}

// Load reads YAML configuration on top of defaults. Empty path means defaults only.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "can't read config file '%s'", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "can't parse config file '%s'", path)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// LoadEnv loads .env files (".env" when none given) into the process environment.
// Missing files are not an error.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.WithError(err).Debug("No .env file loaded")
	}
}

func (cfg *Config) applyEnv() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if path := os.Getenv(EnvStorePath); path != "" {
		cfg.Store.Path = path
	}
}

// Validate checks value ranges and names
func (cfg *Config) Validate() error {
	if cfg.Matching.BBoxThreshold < 0 || cfg.Matching.BBoxThreshold >= 1 {
		return errors.Errorf("matching.bbox_threshold must be in [0, 1), got %v", cfg.Matching.BBoxThreshold)
	}
	if cfg.Matching.MinOverlap < 0 || cfg.Matching.MinOverlap >= 1 {
		return errors.Errorf("matching.min_overlap must be in [0, 1), got %v", cfg.Matching.MinOverlap)
	}
	if cfg.Matching.Workers < 0 {
		return errors.Errorf("matching.workers must not be negative, got %d", cfg.Matching.Workers)
	}
	if _, err := taglab.ParseMatchingAlgorithm(cfg.Matching.Algorithm); err != nil {
		return err
	}
	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	if !cfg.Store.InMemory && cfg.Store.Path == "" {
		return errors.New("store.path is required unless store.in_memory is set")
	}
	return nil
}

// MatchOptions converts matching section into library options
func (cfg *Config) MatchOptions() (taglab.MatchOptions, error) {
	algorithm, err := taglab.ParseMatchingAlgorithm(cfg.Matching.Algorithm)
	if err != nil {
		return taglab.MatchOptions{}, err
	}
	return taglab.MatchOptions{
		BBoxThreshold: cfg.Matching.BBoxThreshold,
		MinOverlap:    cfg.Matching.MinOverlap,
		IgnoreClass:   cfg.Matching.IgnoreClass,
		Algorithm:     algorithm,
		Workers:       cfg.Matching.Workers,
	}, nil
}

// LogLevel returns parsed log level (info when invalid)
func (cfg *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
