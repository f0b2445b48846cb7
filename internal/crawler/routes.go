package crawler

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/citec-spbu/Transport/internal/model"
)

// ResolveRoutes lists the routes of mode published under cityPath, in
// page order. An unreachable page or a page without matching entries
// yields an empty list.
func (s *Site) ResolveRoutes(ctx context.Context, cityPath string, mode model.TransportMode) []model.RouteRef {
	if !strings.HasSuffix(cityPath, "/") {
		cityPath += "/"
	}
	ref := cityPath + mode.Path()

	doc, _, err := s.document(ctx, ref, s.timeout)
	if err != nil {
		s.logger.Warn("route index unavailable", "page", ref, "error", err)
		return []model.RouteRef{}
	}

	routes := parseRouteIndex(doc, mode)
	s.logger.Debug("route index parsed", "page", ref, "routes", len(routes))
	return routes
}

// parseRouteIndex extracts route anchors carrying the mode marker.
// The number is the anchor's own text and the name is its <span>.
func parseRouteIndex(doc *goquery.Document, mode model.TransportMode) []model.RouteRef {
	routes := make([]model.RouteRef, 0)
	doc.Find(mode.Selector()).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		name := cleanText(a.Find("span").First().Text())
		number := cleanText(ownText(a))
		if number == "" {
			number = cleanText(a.Text())
		}
		if number == "" {
			return
		}
		routes = append(routes, model.RouteRef{
			Number: number,
			Name:   name,
			URL:    strings.TrimSpace(href),
		})
	})
	return routes
}

// ownText concatenates the text nodes directly under sel.
func ownText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return b.String()
}
