// Package crawler reads the public pages of the schedule site.
//
// Site wraps a Fetcher and knows the page layout:
//
//   - the region index and region pages, which give the city lookup
//   - the per-mode route listing of a city
//   - the forward (/A) and backward (/B) timetable of a route
//   - the route map (/map), whose inline drawMap script carries stop
//     coordinates
//
// HTML is queried with goquery. Every page-level failure degrades to an
// empty result and is logged; only an unknown city is reported as an error
// (ErrCityNotFound).
//
// # Usage
//
//	site, err := crawler.NewSite(client, "https://kudikina.ru/",
//		crawler.WithCityStore(store))
//	path, err := site.ResolveCityURL(ctx, "Пермь")
//	routes := site.ResolveRoutes(ctx, path, model.ModeBus)
package crawler
