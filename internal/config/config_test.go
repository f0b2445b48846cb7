package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/citec-spbu/Transport/internal/model"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default SiteURL is kudikina.ru", func(t *testing.T) {
		t.Parallel()
		if cfg.SiteURL != "https://kudikina.ru/" {
			t.Errorf("expected SiteURL to be 'https://kudikina.ru/', got '%s'", cfg.SiteURL)
		}
	})

	t.Run("default Timeout is 10 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 10*time.Second {
			t.Errorf("expected Timeout to be 10s, got %v", cfg.Timeout)
		}
	})

	t.Run("default CacheExpiry is 30 days", func(t *testing.T) {
		t.Parallel()
		if cfg.CacheExpiry != 30*24*time.Hour {
			t.Errorf("expected CacheExpiry to be 720h, got %v", cfg.CacheExpiry)
		}
	})

	t.Run("default retry policy is 5 retries from 2s", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxRetries != 5 {
			t.Errorf("expected MaxRetries to be 5, got %d", cfg.MaxRetries)
		}
		if cfg.RetryInterval != 2*time.Second {
			t.Errorf("expected RetryInterval to be 2s, got %v", cfg.RetryInterval)
		}
	})

	t.Run("default pacing is 2s plus 0.3-1.2s jitter", func(t *testing.T) {
		t.Parallel()
		if cfg.RequestPause != 2*time.Second {
			t.Errorf("expected RequestPause to be 2s, got %v", cfg.RequestPause)
		}
		if cfg.JitterMin != 300*time.Millisecond || cfg.JitterMax != 1200*time.Millisecond {
			t.Errorf("unexpected jitter bounds %v..%v", cfg.JitterMin, cfg.JitterMax)
		}
		if cfg.RegionPause != 1500*time.Millisecond {
			t.Errorf("expected RegionPause to be 1.5s, got %v", cfg.RegionPause)
		}
	})

	t.Run("default StopTolerance is 0.005", func(t *testing.T) {
		t.Parallel()
		if cfg.StopTolerance != 0.005 {
			t.Errorf("expected StopTolerance to be 0.005, got %v", cfg.StopTolerance)
		}
	})

	t.Run("default mode is bus with cache enabled", func(t *testing.T) {
		t.Parallel()
		if len(cfg.Modes) != 1 || cfg.Modes[0] != model.ModeBus {
			t.Errorf("expected [bus], got %v", cfg.Modes)
		}
		if !cfg.UseCache {
			t.Error("expected UseCache to be true")
		}
		if cfg.Offline {
			t.Error("expected Offline to be false")
		}
	})

	t.Run("default directories live under XDG", func(t *testing.T) {
		t.Parallel()
		if !strings.HasSuffix(cfg.CacheDir, AppName) {
			t.Errorf("unexpected cache dir %q", cfg.CacheDir)
		}
		if !strings.HasSuffix(cfg.DBDir, AppName) {
			t.Errorf("unexpected db dir %q", cfg.DBDir)
		}
	})

	t.Run("defaults pass validation", func(t *testing.T) {
		t.Parallel()
		if err := NewConfig().Validate(); err != nil {
			t.Errorf("expected defaults to validate, got %v", err)
		}
	})
}

// TestValidate tests Config.Validate error cases.
func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		modify   func(*Config)
		expected error
	}{
		{"relative site url", func(c *Config) { c.SiteURL = "kudikina.ru" }, ErrInvalidSiteURL},
		{"empty cache dir", func(c *Config) { c.CacheDir = "" }, ErrNoCacheDir},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"zero main page timeout", func(c *Config) { c.MainPageTimeout = 0 }, ErrInvalidTimeout},
		{"zero expiry", func(c *Config) { c.CacheExpiry = 0 }, ErrInvalidCacheExpiry},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, ErrInvalidMaxRetries},
		{"negative pause", func(c *Config) { c.RequestPause = -time.Second }, ErrInvalidPause},
		{"inverted jitter", func(c *Config) { c.JitterMin = 2 * time.Second }, ErrInvalidJitter},
		{"zero tolerance", func(c *Config) { c.StopTolerance = 0 }, ErrInvalidTolerance},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"parallel network crawl", func(c *Config) { c.Concurrency = 4 }, ErrParallelNetworkCrawl},
		{"bad proxy", func(c *Config) { c.ProxyAddress = "localhost" }, ErrInvalidProxyAddress},
		{"proxy port out of range", func(c *Config) { c.ProxyAddress = "127.0.0.1:70000" }, ErrInvalidProxyAddress},
		{"unknown mode", func(c *Config) { c.Modes = []model.TransportMode{model.ModeUnknown} }, ErrInvalidMode},
		{"both report formats", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			cfg.CacheDir = "/tmp/transitcrawl-test"
			tc.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, err)
			}
		})
	}

	t.Run("parallel offline rebuild is allowed", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Concurrency = 4
		cfg.Offline = true
		cfg.ProxyAddress = "127.0.0.1:9050"
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestLoadConfigFile tests loading and validating the YAML file.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("valid file is applied", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `crawl:
  timeout: 20s
  cache_expiry: 48h
  request_pause: 3s
  stop_tolerance: 0.001
  proxy: "127.0.0.1:9050"
  modes: [tram, mtaxi]
cities:
  "Пермь": "/perm/"
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		if err := cf.ApplyTo(cfg); err != nil {
			t.Fatalf("ApplyTo: %v", err)
		}

		if cfg.Timeout != 20*time.Second {
			t.Errorf("expected timeout 20s, got %v", cfg.Timeout)
		}
		if cfg.CacheExpiry != 48*time.Hour {
			t.Errorf("expected expiry 48h, got %v", cfg.CacheExpiry)
		}
		if cfg.RequestPause != 3*time.Second {
			t.Errorf("expected pause 3s, got %v", cfg.RequestPause)
		}
		if cfg.StopTolerance != 0.001 {
			t.Errorf("expected tolerance 0.001, got %v", cfg.StopTolerance)
		}
		if cfg.ProxyAddress != "127.0.0.1:9050" {
			t.Errorf("unexpected proxy %q", cfg.ProxyAddress)
		}
		if len(cfg.Modes) != 2 || cfg.Modes[0] != model.ModeTram || cfg.Modes[1] != model.ModeMinibus {
			t.Errorf("unexpected modes %v", cfg.Modes)
		}
		if cfg.CityPaths["Пермь"] != "/perm/" {
			t.Errorf("city override not applied: %v", cfg.CityPaths)
		}
		if cfg.MaxRetries != DefaultMaxRetries {
			t.Errorf("unset field changed: %d", cfg.MaxRetries)
		}
	})

	t.Run("explicit zero retries is applied", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := "crawl:\n  max_retries: 0\n  main_page_timeout: 40s\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg := NewConfig()
		if err := cf.ApplyTo(cfg); err != nil {
			t.Fatalf("ApplyTo: %v", err)
		}
		if cfg.MaxRetries != 0 {
			t.Errorf("expected retries 0, got %d", cfg.MaxRetries)
		}
		if cfg.MainPageTimeout != 40*time.Second {
			t.Errorf("expected main page timeout 40s, got %v", cfg.MainPageTimeout)
		}
	})

	t.Run("invalid values fail validation", func(t *testing.T) {
		t.Parallel()

		testCases := map[string]string{
			"bad mode":       "crawl:\n  modes: [ferry]\n",
			"bad url":        "crawl:\n  site_url: not a url\n",
			"bad proxy":      "crawl:\n  proxy: nohostport\n",
			"empty city":     "cities:\n  \"\": /x/\n",
			"empty path":     "cities:\n  Perm: \"\"\n",
			"huge retries":   "crawl:\n  max_retries: 100\n",
			"neg retries":    "crawl:\n  max_retries: -1\n",
			"malformed yaml": "crawl: [",
		}

		for name, content := range testCases {
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				path := filepath.Join(t.TempDir(), "cfg.yaml")
				if err := os.WriteFile(path, []byte(content), 0600); err != nil {
					t.Fatal(err)
				}
				if _, err := LoadConfigFile(path); !errors.Is(err, ErrInvalidConfigFile) {
					t.Errorf("expected ErrInvalidConfigFile, got %v", err)
				}
			})
		}
	})
}

// TestFindConfigFile tests explicit path handling.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		t.Parallel()
		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})
}

func TestLookupCity(t *testing.T) {
	t.Parallel()

	paths := map[string]string{
		"Санкт-Петербург": "/spb/",
		"Perm":            "/perm/",
	}

	testCases := []struct {
		name  string
		city  string
		path  string
		found bool
	}{
		{"exact", "Perm", "/perm/", true},
		{"case folded latin", "PERM", "/perm/", true},
		{"case folded cyrillic", "санкт-петербург", "/spb/", true},
		{"surrounding space", "  Perm ", "/perm/", true},
		{"missing", "Moscow", "", false},
	}

	t.Run("ambiguous folded names pick the smallest", func(t *testing.T) {
		t.Parallel()
		folded := map[string]string{
			"пермь":  "/perm-lower/",
			"ПЕРМЬ":  "/perm-upper/",
			"Пермь ": "/perm-space/",
		}
		for range 20 {
			if path, ok := LookupCity(folded, "ПеРмЬ"); !ok || path != "/perm-upper/" {
				t.Fatalf("LookupCity() = (%q, %v), expected /perm-upper/", path, ok)
			}
		}
	})

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path, ok := LookupCity(paths, tc.city)
			if ok != tc.found || path != tc.path {
				t.Errorf("LookupCity(%q) = (%q, %v), expected (%q, %v)", tc.city, path, ok, tc.path, tc.found)
			}
		})
	}
}

func TestParseModes(t *testing.T) {
	t.Parallel()

	modes, err := ParseModes([]string{"bus", "trolley", "bus", "trolleybus"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(modes) != 2 || modes[0] != model.ModeBus || modes[1] != model.ModeTrolleybus {
		t.Errorf("unexpected modes %v", modes)
	}

	if _, err := ParseModes([]string{"rail"}); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}

// TestLoadEnv is not parallel because it mutates the process environment.
func TestLoadEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "TRANSITCRAWL_SITE_URL=http://mirror.example/\nTRANSITCRAWL_TIMEOUT=45s\nTRANSITCRAWL_MAX_RETRIES=2\n"
	if err := os.WriteFile(envFile, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRANSITCRAWL_SITE_URL", "")
	t.Setenv("TRANSITCRAWL_TIMEOUT", "")
	t.Setenv("TRANSITCRAWL_MAX_RETRIES", "")
	t.Setenv("TRANSITCRAWL_CACHE_DIR", "/var/cache/tc")
	os.Unsetenv("TRANSITCRAWL_SITE_URL")
	os.Unsetenv("TRANSITCRAWL_TIMEOUT")
	os.Unsetenv("TRANSITCRAWL_MAX_RETRIES")

	cfg := NewConfig()
	if err := LoadEnv(cfg, envFile); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}

	if cfg.SiteURL != "http://mirror.example/" {
		t.Errorf("unexpected site url %q", cfg.SiteURL)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("unexpected timeout %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("unexpected retries %d", cfg.MaxRetries)
	}
	if cfg.CacheDir != "/var/cache/tc" {
		t.Errorf("process env should win, got %q", cfg.CacheDir)
	}

	t.Run("missing env file is ignored", func(t *testing.T) {
		if err := LoadEnv(NewConfig(), filepath.Join(t.TempDir(), "absent.env")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
