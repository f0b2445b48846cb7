package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/citec-spbu/Transport/internal/model"
)

// ErrMiss is returned by Load when a document is absent or unreadable.
var ErrMiss = errors.New("cache miss")

const (
	citiesDir  = "cities"
	routesDir  = "routes_data"
	cityURLs   = "city_urls.json"
	routeIndex = "routes_index.json"
)

// unsafeChars matches everything not allowed in a cache file name.
var unsafeChars = regexp.MustCompile(`[^a-zA-Zа-яА-Я0-9_-]`)

// SafeName turns a route number into a file name stem.
func SafeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// CityURLsPath is the relative path of the city lookup document.
func CityURLsPath() string {
	return filepath.Join(citiesDir, cityURLs)
}

// RouteDir is the relative directory holding one city and mode.
func RouteDir(city string, mode model.TransportMode) string {
	return filepath.Join(routesDir, strings.ToLower(city), mode.CacheDir())
}

// RouteIndexPath is the relative path of a cached route index.
func RouteIndexPath(city string, mode model.TransportMode) string {
	return filepath.Join(RouteDir(city, mode), routeIndex)
}

// RoutePath is the relative path of a cached route record.
func RoutePath(city string, mode model.TransportMode, route string) string {
	return filepath.Join(RouteDir(city, mode), SafeName(route)+".json")
}

// Store persists JSON documents under Root. Documents older than Expiry
// are stale. Concurrent writers to the same Root are not coordinated.
type Store struct {
	Root   string
	Expiry time.Duration
}

// NewStore returns a Store rooted at root.
func NewStore(root string, expiry time.Duration) *Store {
	return &Store{Root: root, Expiry: expiry}
}

func (s *Store) abs(rel string) string {
	return filepath.Join(s.Root, rel)
}

// IsFresh reports whether the document exists and its age is within Expiry.
func (s *Store) IsFresh(rel string) bool {
	info, err := os.Stat(s.abs(rel))
	if err != nil || info.IsDir() {
		return false
	}
	return time.Since(info.ModTime()) <= s.Expiry
}

// Load decodes the document at rel into v. Missing and corrupt files
// both return ErrMiss.
func (s *Store) Load(rel string, v any) error {
	data, err := os.ReadFile(s.abs(rel))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMiss, rel, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMiss, rel, err)
	}
	return nil
}

// Save writes v as indented JSON. The file is written to a temporary name
// in the same directory, synced and renamed, so readers never see a
// partial document.
func (s *Store) Save(rel string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", rel, err)
	}

	path := s.abs(rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", rel, err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", rel, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", rel, err)
	}
	return nil
}

// Usage describes the documents under Root.
type Usage struct {
	Files int
	Bytes int64
	Stale int
}

// Usage walks Root and counts documents. A missing Root is empty.
func (s *Store) Usage() (Usage, error) {
	var u Usage
	err := s.walk(func(_ string, info fs.FileInfo) error {
		u.Files++
		u.Bytes += info.Size()
		if time.Since(info.ModTime()) > s.Expiry {
			u.Stale++
		}
		return nil
	})
	return u, err
}

// PurgeStale removes documents older than Expiry and returns how many
// were removed.
func (s *Store) PurgeStale() (int, error) {
	removed := 0
	err := s.walk(func(path string, info fs.FileInfo) error {
		if time.Since(info.ModTime()) <= s.Expiry {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed++
		return nil
	})
	return removed, err
}

// walk calls fn for each JSON document under Root.
func (s *Store) walk(fn func(path string, info fs.FileInfo) error) error {
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(path, info)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
