package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/citec-spbu/Transport/internal/cache"
	"github.com/citec-spbu/Transport/internal/graph"
	"github.com/citec-spbu/Transport/internal/model"
)

// CityResolver maps a city name to its site path. *crawler.Site satisfies it.
type CityResolver interface {
	ResolveCityURL(ctx context.Context, city string) (string, error)
}

// IndexResolver lists the routes of a city. *crawler.Site satisfies it.
type IndexResolver interface {
	ResolveRoutes(ctx context.Context, cityPath string, mode model.TransportMode) []model.RouteRef
}

// RouteAssembler builds a route record. *graph.Assembler satisfies it.
type RouteAssembler interface {
	AssembleRoute(ctx context.Context, ref model.RouteRef) (*model.RouteRecord, []model.Warning)
}

// documents wraps an optional cache.Store. A nil store never hits.
type documents struct {
	store  *cache.Store
	anyAge bool
	logger *slog.Logger
}

// load reads rel into v when caching is enabled and the document is usable.
func (d documents) load(rel string, v any) bool {
	if d.store == nil {
		return false
	}
	if !d.anyAge && !d.store.IsFresh(rel) {
		return false
	}
	if err := d.store.Load(rel, v); err != nil {
		d.logger.Debug("cache miss", "path", rel, "error", err)
		return false
	}
	return true
}

func (d documents) save(rel string, v any) error {
	if d.store == nil {
		return nil
	}
	return d.store.Save(rel, v)
}

// CityStep resolves the site path of the city.
type CityStep struct {
	resolver CityResolver
	logger   *slog.Logger
}

// Name returns the step name.
func (s *CityStep) Name() string {
	return "resolve_city"
}

// Do executes the step.
func (s *CityStep) Do(ctx context.Context, res *CrawlResult) error {
	path, err := s.resolver.ResolveCityURL(ctx, res.City)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error("city not found", "city", res.City, "error", err)
		res.AddWarning(model.WarningCityNotFound, "", err.Error())
		return err
	}
	res.CityPath = path
	return nil
}

// IndexStep loads the route index from the cache or the site.
type IndexStep struct {
	resolver IndexResolver
	docs     documents
	logger   *slog.Logger
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return "route_index"
}

// Do executes the step.
func (s *IndexStep) Do(ctx context.Context, res *CrawlResult) error {
	rel := cache.RouteIndexPath(res.City, res.Mode)

	var cached []model.RouteRef
	if res.UseCache && s.docs.load(rel, &cached) && len(cached) > 0 {
		s.logger.Info("route index loaded from cache", "routes", len(cached))
		res.Index = cached
		res.IndexCached = true
		return nil
	}

	routes := s.resolver.ResolveRoutes(ctx, res.CityPath, res.Mode)
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(routes) == 0 {
		s.logger.Error("route index unavailable", "city", res.City, "mode", res.Mode)
		res.AddWarning(model.WarningIndexUnavailable, "", "no routes listed at "+res.CityPath+res.Mode.Path())
		return ErrIndexUnavailable
	}

	res.Index = routes
	if err := s.docs.save(rel, routes); err != nil {
		s.logger.Warn("failed to cache route index", "error", err)
		res.AddWarning(model.WarningCacheWrite, "", err.Error())
	}
	s.logger.Info("route index fetched", "routes", len(routes))
	return nil
}

// RoutesStep walks the route index and merges every route into the graph.
type RoutesStep struct {
	assembler RouteAssembler
	docs      documents
	traffic   TrafficCounter
	pause     func(ctx context.Context) error
	logger    *slog.Logger
}

// Name returns the step name.
func (s *RoutesStep) Name() string {
	return "routes"
}

// Do executes the step. It returns only on cancellation; every other
// problem skips the affected route.
func (s *RoutesStep) Do(ctx context.Context, res *CrawlResult) error {
	for i, ref := range res.Index {
		if err := ctx.Err(); err != nil {
			return err
		}

		before := s.requests()
		rec, outcome, err := s.route(ctx, res, ref)
		if err != nil {
			return err
		}

		ro := RouteOutcome{Route: ref, Outcome: outcome}
		if rec != nil {
			ro.Nodes, ro.Edges = graph.Merge(res.Graph, rec)
		}
		res.Routes = append(res.Routes, ro)

		s.logger.Info("route processed",
			"route", ref.Number,
			"outcome", outcome,
			"progress", fmt.Sprintf("%d/%d", i+1, len(res.Index)),
		)

		if s.hitNetwork(before, outcome) && i < len(res.Index)-1 {
			if err := s.pause(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *RoutesStep) requests() int64 {
	if s.traffic == nil {
		return 0
	}
	return s.traffic.Stats().Requests
}

// hitNetwork reports whether the last route caused HTTP requests.
func (s *RoutesStep) hitNetwork(before int64, o Outcome) bool {
	if s.traffic == nil {
		return o != OutcomeCached
	}
	return s.requests() > before
}

// route returns the record of ref and where it came from. A nil record
// with OutcomeSkipped means the route contributes nothing.
func (s *RoutesStep) route(ctx context.Context, res *CrawlResult, ref model.RouteRef) (*model.RouteRecord, Outcome, error) {
	rel := cache.RoutePath(res.City, res.Mode, ref.Number)

	if res.UseCache {
		var rec model.RouteRecord
		if s.docs.load(rel, &rec) {
			return &rec, OutcomeCached, nil
		}
	}

	rec, warnings := s.assembler.AssembleRoute(ctx, ref)
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	res.Warnings = append(res.Warnings, warnings...)
	if rec == nil {
		return nil, OutcomeSkipped, nil
	}

	// A route with no usable stop is not cached so the next run retries it.
	if len(rec.Nodes) == 0 {
		return rec, OutcomeFetched, nil
	}
	if err := s.docs.save(rel, rec); err != nil {
		s.logger.Warn("failed to cache route", "route", ref.Number, "error", err)
		res.AddWarning(model.WarningCacheWrite, ref.Number, err.Error())
	}
	return rec, OutcomeFetched, nil
}
