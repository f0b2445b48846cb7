package config

import (
	"maps"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Settings are the crawl options that may be set in the config file.
// Zero values mean "keep the current value", except for MaxRetries where
// only an absent key does.
type Settings struct {
	SiteURL         string        `yaml:"site_url,omitempty" validate:"omitempty,url"`
	CacheDir        string        `yaml:"cache_dir,omitempty"`
	DBDir           string        `yaml:"db_dir,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	CacheExpiry     time.Duration `yaml:"cache_expiry,omitempty" validate:"gte=0"`
	MaxRetries      *int          `yaml:"max_retries,omitempty" validate:"omitempty,gte=0,lte=20"`
	RetryInterval   time.Duration `yaml:"retry_interval,omitempty" validate:"gte=0"`
	RequestPause    time.Duration `yaml:"request_pause,omitempty" validate:"gte=0"`
	JitterMin       time.Duration `yaml:"jitter_min,omitempty" validate:"gte=0"`
	JitterMax       time.Duration `yaml:"jitter_max,omitempty" validate:"gte=0"`
	RegionPause     time.Duration `yaml:"region_pause,omitempty" validate:"gte=0"`
	MainPageTimeout time.Duration `yaml:"main_page_timeout,omitempty" validate:"gte=0"`
	StopTolerance   float64       `yaml:"stop_tolerance,omitempty" validate:"gte=0,lt=1"`
	UserAgent       string        `yaml:"user_agent,omitempty"`
	Proxy           string        `yaml:"proxy,omitempty" validate:"omitempty,hostname_port"`
	MemoryCacheSize int           `yaml:"memory_cache_size,omitempty" validate:"gte=0"`
	Modes           []string      `yaml:"modes,omitempty" validate:"dive,oneof=bus tram trolleybus minibus trolley mtaxi"`
}

// File represents the structure of the .transitcrawl configuration file.
type File struct {
	// Crawl overrides the built-in defaults.
	Crawl Settings `yaml:"crawl,omitempty"`

	// Cities maps a city display name to its site path, e.g. "Пермь": "/perm/".
	// Entries here take precedence over the crawled city lookup.
	Cities map[string]string `yaml:"cities,omitempty" validate:"dive,keys,required,endkeys,required"`
}

// CityPath returns the configured path for city. Names are compared
// exactly first and then case-folded.
func (f *File) CityPath(city string) (string, bool) {
	return LookupCity(f.Cities, city)
}

// LookupCity finds city in paths, first exactly and then case-folded.
// Among several case-folded matches the smallest name wins.
func LookupCity(paths map[string]string, city string) (string, bool) {
	if p, ok := paths[city]; ok {
		return p, true
	}
	folder := cases.Fold()
	want := folder.String(strings.TrimSpace(city))
	for _, name := range slices.Sorted(maps.Keys(paths)) {
		if folder.String(strings.TrimSpace(name)) == want {
			return paths[name], true
		}
	}
	return "", false
}

// ApplyTo copies the non-zero settings and city overrides into cfg.
func (f *File) ApplyTo(cfg *Config) error {
	s := f.Crawl
	if s.SiteURL != "" {
		cfg.SiteURL = s.SiteURL
	}
	if s.CacheDir != "" {
		cfg.CacheDir = s.CacheDir
	}
	if s.DBDir != "" {
		cfg.DBDir = s.DBDir
	}
	if s.Timeout > 0 {
		cfg.Timeout = s.Timeout
	}
	if s.CacheExpiry > 0 {
		cfg.CacheExpiry = s.CacheExpiry
	}
	if s.MaxRetries != nil {
		cfg.MaxRetries = *s.MaxRetries
	}
	if s.RetryInterval > 0 {
		cfg.RetryInterval = s.RetryInterval
	}
	if s.RequestPause > 0 {
		cfg.RequestPause = s.RequestPause
	}
	if s.JitterMin > 0 {
		cfg.JitterMin = s.JitterMin
	}
	if s.JitterMax > 0 {
		cfg.JitterMax = s.JitterMax
	}
	if s.RegionPause > 0 {
		cfg.RegionPause = s.RegionPause
	}
	if s.MainPageTimeout > 0 {
		cfg.MainPageTimeout = s.MainPageTimeout
	}
	if s.StopTolerance > 0 {
		cfg.StopTolerance = s.StopTolerance
	}
	if s.UserAgent != "" {
		cfg.UserAgent = s.UserAgent
	}
	if s.Proxy != "" {
		cfg.ProxyAddress = s.Proxy
	}
	if s.MemoryCacheSize > 0 {
		cfg.MemoryCacheSize = s.MemoryCacheSize
	}
	if len(s.Modes) > 0 {
		modes, err := ParseModes(s.Modes)
		if err != nil {
			return err
		}
		cfg.Modes = modes
	}

	if cfg.CityPaths == nil {
		cfg.CityPaths = make(map[string]string, len(f.Cities))
	}
	for name, path := range f.Cities {
		cfg.CityPaths[name] = path
	}
	return nil
}
