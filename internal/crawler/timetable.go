package crawler

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/citec-spbu/Transport/internal/model"
)

const minutesPerDay = 24 * 60

// ordinalPrefix matches the "12) " numbering in front of stop names.
var ordinalPrefix = regexp.MustCompile(`\d+\) `)

// GetTimetable returns the forward then backward timetable of a route.
// The flag is false only when neither direction produced an entry.
func (s *Site) GetTimetable(ctx context.Context, routeURL string) ([]model.TimetableEntry, bool) {
	var combined []model.TimetableEntry

	for _, suffix := range []string{forwardSuffix, backwardSuffix} {
		ref := routePage(routeURL, suffix)
		doc, _, err := s.document(ctx, ref, s.timeout)
		if err != nil {
			s.logger.Debug("timetable direction unavailable", "page", ref, "error", err)
			continue
		}
		combined = append(combined, parseTimetable(doc)...)
	}

	if len(combined) == 0 {
		return nil, false
	}
	return combined, true
}

// parseTimetable reads one direction page. Each div.bus-stop holds the
// stop link; the time is the first span of the next div.col-xs-12 sibling.
func parseTimetable(doc *goquery.Document) []model.TimetableEntry {
	entries := make([]model.TimetableEntry, 0)
	doc.Find("div.bus-stop").Each(func(_ int, stop *goquery.Selection) {
		link := stop.Find("a").First()
		if link.Length() == 0 {
			return
		}
		timeTag := stop.NextAllFiltered("div.col-xs-12").First().Find("span").First()
		if timeTag.Length() == 0 {
			return
		}

		name := cleanText(ordinalPrefix.ReplaceAllString(strings.TrimSpace(link.Text()), ""))
		if name == "" {
			return
		}
		entries = append(entries, model.TimetableEntry{
			StopName:  name,
			TimePoint: strings.TrimRight(strings.TrimSpace(timeTag.Text()), "K"),
		})
	})
	return entries
}

// CalculateDuration returns the minutes from t1 to t2, both "HH:MM",
// wrapping past midnight. It returns false for malformed input and for a
// zero difference.
func CalculateDuration(t1, t2 string) (int, bool) {
	m1, ok := minutesOfDay(t1)
	if !ok {
		return 0, false
	}
	m2, ok := minutesOfDay(t2)
	if !ok {
		return 0, false
	}

	diff := ((m2-m1)%minutesPerDay + minutesPerDay) % minutesPerDay
	if diff == 0 {
		return 0, false
	}
	return diff, true
}

func minutesOfDay(s string) (int, bool) {
	hh, mm, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil || h < 0 {
		return 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(mm))
	if err != nil || m < 0 {
		return 0, false
	}
	return h*60 + m, true
}
