package crawler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/citec-spbu/Transport/internal/cache"
	"github.com/citec-spbu/Transport/internal/config"
)

// Selectors of the region index and of region pages.
const (
	regionListSelector = "ul.list-unstyled.cities.block-regions"
	cityListSelector   = "ul.list-unstyled.cities"
	cityNameSelector   = "span.city-name"
)

// ResolveCityURL returns the site path of city.
// Manual overrides are consulted first, then the stored lookup. When the
// stored lookup is stale, absent or lacks the city it is rebuilt once per
// Site from the region index.
func (s *Site) ResolveCityURL(ctx context.Context, city string) (string, error) {
	if path, ok := config.LookupCity(s.overrides, city); ok {
		return path, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cities == nil {
		s.cities = s.loadCities()
	}
	if path, ok := config.LookupCity(s.cities, city); ok {
		return path, nil
	}
	if s.refreshed {
		return "", fmt.Errorf("%w: %s", ErrCityNotFound, city)
	}

	if err := s.refreshCities(ctx); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrCityNotFound, city, err)
	}
	if path, ok := config.LookupCity(s.cities, city); ok {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s", ErrCityNotFound, city)
}

// Cities returns the known city lookup merged with the manual overrides.
// With refresh the lookup is rebuilt from the site first.
func (s *Site) Cities(ctx context.Context, refresh bool) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cities == nil && !refresh {
		s.cities = s.loadCities()
	}
	if refresh || len(s.cities) == 0 {
		if err := s.refreshCities(ctx); err != nil {
			return nil, err
		}
	}

	out := make(map[string]string, len(s.cities)+len(s.overrides))
	maps.Copy(out, s.cities)
	maps.Copy(out, s.overrides)
	return out, nil
}

// loadCities reads a fresh stored lookup. Any problem yields an empty map.
func (s *Site) loadCities() map[string]string {
	cities := make(map[string]string)
	if s.store == nil || !s.store.IsFresh(cache.CityURLsPath()) {
		return cities
	}
	if err := s.store.Load(cache.CityURLsPath(), &cities); err != nil {
		s.logger.Debug("city lookup unreadable", "error", err)
		return make(map[string]string)
	}
	return cities
}

// refreshCities rebuilds and stores the lookup. Callers hold s.mu.
func (s *Site) refreshCities(ctx context.Context) error {
	s.refreshed = true

	cities, err := s.ParseAllCityURLs(ctx)
	if err != nil {
		return err
	}
	if len(cities) == 0 {
		return errors.New("region index lists no cities")
	}
	s.cities = cities

	if s.store != nil {
		if err := s.store.Save(cache.CityURLsPath(), cities); err != nil {
			s.logger.Warn("failed to store city lookup", "error", err)
		}
	}
	return nil
}

// ParseAllCityURLs crawls the region index and every region page and
// returns city name to site path. A region page without a city list
// stands for a single city. Unreachable region pages are skipped.
func (s *Site) ParseAllCityURLs(ctx context.Context) (map[string]string, error) {
	s.logger.Info("rebuilding city lookup", "site", s.base.String())

	doc, _, err := s.document(ctx, s.base.String(), s.mainPageTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch region index: %w", err)
	}

	cities := make(map[string]string)
	for _, region := range parseCityLinks(doc.Find(regionListSelector)) {
		regionDoc, fromCache, err := s.document(ctx, region.path, s.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("region page unavailable", "region", region.name, "error", err)
			continue
		}

		blocks := regionDoc.Find(cityListSelector).Not(".block-regions")
		if blocks.Length() == 0 {
			cities[region.name] = region.path
		} else {
			for _, c := range parseCityLinks(blocks.First()) {
				cities[c.name] = c.path
			}
		}

		if !fromCache {
			if err := Pause(ctx, s.regionPause); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Info("city lookup rebuilt", "cities", len(cities))
	return cities, nil
}

type cityLink struct {
	name string
	path string
}

// parseCityLinks reads the anchors of the given lists. Anchors without a
// span.city-name or an href are ignored.
func parseCityLinks(lists *goquery.Selection) []cityLink {
	var links []cityLink
	lists.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		nameTag := a.Find(cityNameSelector).First()
		if nameTag.Length() == 0 {
			return
		}
		name := cleanText(nameTag.Text())
		if name == "" {
			return
		}
		links = append(links, cityLink{name: name, path: strings.TrimSpace(href)})
	})
	return links
}
