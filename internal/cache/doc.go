// Package cache stores crawl documents as JSON files.
//
// Layout under the store root:
//
//	cities/city_urls.json
//	routes_data/<city>/<mode>/routes_index.json
//	routes_data/<city>/<mode>/<route>.json
//
// Freshness is judged by file modification time.
package cache
