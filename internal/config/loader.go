package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/citec-spbu/Transport/internal/model"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".transitcrawl"

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "TRANSITCRAWL_"

// LoadConfigFile loads and validates a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}

	v := validator.New()
	if err := v.Struct(cf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}

	if cf.Cities == nil {
		cf.Cities = make(map[string]string)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, when specified
//  2. .transitcrawl in the current directory
//  3. config.yaml in the XDG config directory
//  4. .transitcrawl in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// ParseModes converts mode names into transport modes, dropping duplicates.
func ParseModes(names []string) ([]model.TransportMode, error) {
	seen := make(map[model.TransportMode]bool, len(names))
	modes := make([]model.TransportMode, 0, len(names))
	for _, name := range names {
		m, err := model.ParseTransportMode(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMode, err)
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		modes = append(modes, m)
	}
	return modes, nil
}

// LoadEnv loads envFile (ignored when missing) into the process environment
// and applies TRANSITCRAWL_* variables to cfg. Variables already present in
// the environment win over the file.
func LoadEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if v := getEnv("SITE_URL"); v != "" {
		cfg.SiteURL = v
	}
	if v := getEnv("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := getEnv("DB_DIR"); v != "" {
		cfg.DBDir = v
	}
	if v := getEnv("PROXY"); v != "" {
		cfg.ProxyAddress = v
	}
	if v := getEnv("USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if err := envDuration("TIMEOUT", &cfg.Timeout); err != nil {
		return err
	}
	if err := envDuration("MAIN_PAGE_TIMEOUT", &cfg.MainPageTimeout); err != nil {
		return err
	}
	if err := envDuration("CACHE_EXPIRY", &cfg.CacheExpiry); err != nil {
		return err
	}
	if err := envDuration("REQUEST_PAUSE", &cfg.RequestPause); err != nil {
		return err
	}
	if v := getEnv("MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_RETRIES: %w", EnvPrefix, err)
		}
		cfg.MaxRetries = n
	}
	return nil
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

func envDuration(key string, dst *time.Duration) error {
	v := getEnv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = d
	return nil
}
