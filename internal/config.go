package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hbomb79/mediagetter/internal/acquire"
	"github.com/hbomb79/mediagetter/internal/api"
	"github.com/hbomb79/mediagetter/internal/database"
	"github.com/hbomb79/mediagetter/internal/http/httpx"
	"github.com/hbomb79/mediagetter/internal/scraper"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
)

const USER_DIR_SUFFIX = "mediagetter"

// Config is the struct used to contain the various user config
// supplied by file and/or environment variables.
type Config struct {
	RestConfig api.RestConfig          `yaml:"rest"`
	StoreRoot  string                  `yaml:"store_root" env:"STORE_ROOT" env-required:"true"`
	ScratchDir string                  `yaml:"scratch_dir" env:"SCRATCH_DIR"`
	LogLevel   string                  `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Twitter    scraper.TwitterConfig   `yaml:"twitter"`
	HTTP       httpx.Config            `yaml:"http"`
	Acquire    acquire.Config          `yaml:"acquire"`
	Database   database.DatabaseConfig `yaml:"database"`
}

// LoadFromFile loads a YAML configuration file, with any matching
// environment variables taking precedence over the values in the file.
func (config *Config) LoadFromFile(configPath string) error {
	path, err := homedir.Expand(configPath)
	if err != nil {
		return fmt.Errorf("failed to expand configuration path %s - %v", configPath, err)
	}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return fmt.Errorf("failed to load configuration from %s - %v", path, err)
	}

	return config.normalise()
}

// LoadFromEnv populates the configuration solely from environment variables.
func (config *Config) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration from environment - %v", err)
	}

	return config.normalise()
}

// normalise expands home-relative paths, derives defaults which depend on
// the host and resolves the twitter bearer token file, if any.
func (config *Config) normalise() error {
	if strings.TrimSpace(config.StoreRoot) == "" {
		return errors.New("store root must not be empty")
	}

	var err error
	if config.StoreRoot, err = homedir.Expand(config.StoreRoot); err != nil {
		return fmt.Errorf("failed to expand store root: %w", err)
	}

	if config.ScratchDir == "" {
		config.ScratchDir = defaultScratchDir()
	} else if config.ScratchDir, err = homedir.Expand(config.ScratchDir); err != nil {
		return fmt.Errorf("failed to expand scratch dir: %w", err)
	}

	if config.Twitter.BearerToken == "" && config.Twitter.BearerTokenFile != "" {
		path, err := homedir.Expand(config.Twitter.BearerTokenFile)
		if err != nil {
			return fmt.Errorf("failed to expand twitter bearer token file: %w", err)
		}

		token, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read twitter bearer token file: %w", err)
		}
		config.Twitter.BearerToken = strings.TrimSpace(string(token))
	}

	return nil
}

// defaultScratchDir returns the staging directory used when none is
// configured. If the user cache dir cannot be found, the OS temp dir is used.
func defaultScratchDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		log.Warnf("Unable to find user cache dir (%v), staging in temp dir instead\n", err)
		dir = os.TempDir()
	}

	return filepath.Join(dir, USER_DIR_SUFFIX, "staging")
}
