package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/citec-spbu/Transport/internal/model"
)

func TestSafeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"12", "12"},
		{"12К", "12К"},
		{"4/2", "4_2"},
		{"А-7 (экспресс)", "А-7__экспресс_"},
		{"route_1", "route_1"},
		{"Ёлка", "_лка"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := SafeName(tt.in); got != tt.want {
				t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	t.Parallel()

	if got := CityURLsPath(); got != filepath.Join("cities", "city_urls.json") {
		t.Errorf("CityURLsPath() = %q", got)
	}
	if got := RouteIndexPath("Пермь", model.ModeTrolleybus); got != filepath.Join("routes_data", "пермь", "trolley", "routes_index.json") {
		t.Errorf("RouteIndexPath() = %q", got)
	}
	if got := RoutePath("Perm", model.ModeBus, "4/2"); got != filepath.Join("routes_data", "perm", "bus", "4_2.json") {
		t.Errorf("RoutePath() = %q", got)
	}
}

func TestStore_SaveLoad(t *testing.T) {
	t.Parallel()

	t.Run("round trip keeps non-ascii text", func(t *testing.T) {
		t.Parallel()

		s := NewStore(t.TempDir(), time.Hour)
		in := map[string]string{"Пермь": "perm/"}
		if err := s.Save(CityURLsPath(), in); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		raw, err := os.ReadFile(filepath.Join(s.Root, CityURLsPath()))
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if !strings.Contains(string(raw), "Пермь") {
			t.Errorf("non-ASCII text escaped: %s", raw)
		}

		var out map[string]string
		if err := s.Load(CityURLsPath(), &out); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if out["Пермь"] != "perm/" {
			t.Errorf("Load() = %v", out)
		}
	})

	t.Run("missing file is a miss", func(t *testing.T) {
		t.Parallel()

		s := NewStore(t.TempDir(), time.Hour)
		var out map[string]string
		if err := s.Load("nope.json", &out); !errors.Is(err, ErrMiss) {
			t.Errorf("expected ErrMiss, got %v", err)
		}
	})

	t.Run("corrupt file is a miss", func(t *testing.T) {
		t.Parallel()

		s := NewStore(t.TempDir(), time.Hour)
		path := filepath.Join(s.Root, "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
			t.Fatal(err)
		}
		var out map[string]string
		if err := s.Load("bad.json", &out); !errors.Is(err, ErrMiss) {
			t.Errorf("expected ErrMiss, got %v", err)
		}
	})

	t.Run("save leaves no temp files", func(t *testing.T) {
		t.Parallel()

		s := NewStore(t.TempDir(), time.Hour)
		rel := RoutePath("Perm", model.ModeBus, "12")
		for i := range 3 {
			if err := s.Save(rel, map[string]int{"v": i}); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
		}
		entries, err := os.ReadDir(filepath.Dir(filepath.Join(s.Root, rel)))
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("expected one file, got %d", len(entries))
		}
	})
}

func TestStore_Freshness(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), 30*24*time.Hour)
	fresh := RoutePath("Perm", model.ModeBus, "1")
	stale := RoutePath("Perm", model.ModeBus, "2")
	for _, rel := range []string{fresh, stale} {
		if err := s.Save(rel, map[string]string{}); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-31 * 24 * time.Hour)
	if err := os.Chtimes(filepath.Join(s.Root, stale), old, old); err != nil {
		t.Fatal(err)
	}

	if !s.IsFresh(fresh) {
		t.Error("new document should be fresh")
	}
	if s.IsFresh(stale) {
		t.Error("31 day old document should be stale")
	}
	if s.IsFresh("missing.json") {
		t.Error("missing document cannot be fresh")
	}

	u, err := s.Usage()
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if u.Files != 2 || u.Stale != 1 || u.Bytes == 0 {
		t.Errorf("Usage() = %+v", u)
	}

	n, err := s.PurgeStale()
	if err != nil {
		t.Fatalf("PurgeStale() error = %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
	if _, err := os.Stat(filepath.Join(s.Root, stale)); !os.IsNotExist(err) {
		t.Error("stale document still present")
	}
}

func TestStore_UsageMissingRoot(t *testing.T) {
	t.Parallel()

	s := NewStore(filepath.Join(t.TempDir(), "absent"), time.Hour)
	u, err := s.Usage()
	if err != nil || u.Files != 0 {
		t.Errorf("Usage() = %+v, %v", u, err)
	}
}
