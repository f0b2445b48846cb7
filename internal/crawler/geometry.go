package crawler

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/citec-spbu/Transport/internal/model"
)

// mapMarker identifies the inline script that draws the route map.
const mapMarker = "drawMap"

// stopPattern matches {"name": "...", "lat": n, "long": n} in the map script.
var stopPattern = regexp.MustCompile(`\{"name":\s*"(.*?)",\s*"lat":\s*(-?\d+\.?\d*),\s*"long":\s*(-?\d+\.?\d*)\}`)

// GetStopCoordinates returns stop positions from the route map page.
// X is longitude and Y is latitude. A missing page or script yields an
// empty map.
func (s *Site) GetStopCoordinates(ctx context.Context, routeURL string) map[string]model.Coordinate {
	ref := routePage(routeURL, mapSuffix)
	doc, _, err := s.document(ctx, ref, s.timeout)
	if err != nil {
		s.logger.Debug("route map unavailable", "page", ref, "error", err)
		return map[string]model.Coordinate{}
	}
	return parseStopCoordinates(doc)
}

func parseStopCoordinates(doc *goquery.Document) map[string]model.Coordinate {
	coords := make(map[string]model.Coordinate)

	var script string
	doc.Find(`script[type="text/javascript"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := sel.Text(); strings.Contains(text, mapMarker) {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		return coords
	}

	for _, m := range stopPattern.FindAllStringSubmatch(script, -1) {
		lat, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		coords[stopName(m[1])] = model.NewCoordinate(lon, lat)
	}
	return coords
}

// stopName decodes a JSON string body from the map script. Escapes that
// do not decode are dropped along with their backslashes.
func stopName(raw string) string {
	var decoded string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &decoded); err != nil {
		decoded = strings.ReplaceAll(raw, `\`, "")
	}
	return cleanText(html.UnescapeString(decoded))
}
