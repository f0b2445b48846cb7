package model

// Severity ranks a crawl warning by how much of the graph it costs.
type Severity int

const (
	// SeverityInfo marks degraded but complete data, e.g. approximated coordinates.
	SeverityInfo Severity = iota

	// SeverityLow marks a single dropped stop.
	SeverityLow

	// SeverityMedium marks a skipped route.
	SeverityMedium

	// SeverityHigh marks a failure that left the whole crawl empty or partial,
	// e.g. an unresolved city or an unreachable route index.
	SeverityHigh
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// WarningKind identifies what went wrong.
type WarningKind string

// Warning kinds recorded during a crawl.
const (
	WarningCityNotFound     WarningKind = "city_not_found"
	WarningIndexUnavailable WarningKind = "index_unavailable"
	WarningRouteSkipped     WarningKind = "route_skipped"
	WarningStopDropped      WarningKind = "stop_dropped"
	WarningNoGeometry       WarningKind = "no_geometry"
	WarningCacheWrite       WarningKind = "cache_write_failed"
	WarningInterrupted      WarningKind = "interrupted"
)

// kindSeverity maps each kind to its fixed severity.
var kindSeverity = map[WarningKind]Severity{
	WarningCityNotFound:     SeverityHigh,
	WarningIndexUnavailable: SeverityHigh,
	WarningInterrupted:      SeverityHigh,
	WarningRouteSkipped:     SeverityMedium,
	WarningCacheWrite:       SeverityMedium,
	WarningStopDropped:      SeverityLow,
	WarningNoGeometry:       SeverityInfo,
}

// Severity returns the severity of the kind, SeverityInfo if unknown.
func (k WarningKind) Severity() Severity {
	return kindSeverity[k]
}

// Warning is a non-fatal problem recorded while crawling.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Route   string      `json:"route,omitempty"`
	Stop    string      `json:"stop,omitempty"`
	Message string      `json:"message"`
}

// Severity returns the severity derived from the warning kind.
func (w Warning) Severity() Severity {
	return w.Kind.Severity()
}

// CountBySeverity tallies warnings per severity level.
func CountBySeverity(warnings []Warning) map[Severity]int {
	counts := make(map[Severity]int)
	for _, w := range warnings {
		counts[w.Severity()]++
	}
	return counts
}

// FilterBySeverity returns warnings of exactly the given severity.
func FilterBySeverity(warnings []Warning, s Severity) []Warning {
	var out []Warning
	for _, w := range warnings {
		if w.Severity() == s {
			out = append(out, w)
		}
	}
	return out
}
