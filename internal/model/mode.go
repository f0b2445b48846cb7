package model

import (
	"errors"
	"fmt"
	"strings"
)

// TransportMode selects which kind of vehicle a crawl covers.
// Each mode carries the listing path segment and the anchor class used on
// the route listing page.
type TransportMode int

const (
	// ModeUnknown is the zero value and never valid for a crawl.
	ModeUnknown TransportMode = iota
	// ModeBus is the city bus network.
	ModeBus
	// ModeTram is the tram network.
	ModeTram
	// ModeTrolleybus is the trolleybus network.
	ModeTrolleybus
	// ModeMinibus is the fixed-route taxi network.
	ModeMinibus
)

// ErrUnknownMode is returned by ParseTransportMode for unrecognised names.
var ErrUnknownMode = errors.New("unknown transport mode")

type modeInfo struct {
	name   string
	path   string
	marker string
	label  string
}

var modeTable = map[TransportMode]modeInfo{
	ModeBus:        {name: "bus", path: "bus/", marker: "bus-item bus-icon", label: "Bus"},
	ModeTram:       {name: "tram", path: "tram/", marker: "bus-item tram-icon", label: "Tram"},
	ModeTrolleybus: {name: "trolleybus", path: "trolley/", marker: "bus-item trolley-icon", label: "Trolley"},
	ModeMinibus:    {name: "minibus", path: "mtaxi/", marker: "bus-item mtaxi-icon", label: "MiniBus"},
}

// AllModes returns every valid mode in a stable order.
func AllModes() []TransportMode {
	return []TransportMode{ModeBus, ModeTram, ModeTrolleybus, ModeMinibus}
}

// ParseTransportMode accepts a mode name or its site path alias
// ("trolley", "mtaxi"). Matching is case-insensitive.
func ParseTransportMode(s string) (TransportMode, error) {
	key := strings.ToLower(strings.Trim(strings.TrimSpace(s), "/"))
	for _, m := range AllModes() {
		info := modeTable[m]
		if key == info.name || key == strings.TrimSuffix(info.path, "/") {
			return m, nil
		}
	}
	return ModeUnknown, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Valid reports whether m is one of the four supported modes.
func (m TransportMode) Valid() bool {
	_, ok := modeTable[m]
	return ok
}

// String returns the canonical mode name.
func (m TransportMode) String() string {
	if info, ok := modeTable[m]; ok {
		return info.name
	}
	return "unknown"
}

// Path returns the listing path segment appended to a city path, e.g. "bus/".
func (m TransportMode) Path() string {
	return modeTable[m].path
}

// Marker returns the class attribute of route anchors for this mode.
func (m TransportMode) Marker() string {
	return modeTable[m].marker
}

// Selector returns a CSS selector matching route anchors for this mode.
func (m TransportMode) Selector() string {
	classes := strings.Fields(m.Marker())
	if len(classes) == 0 {
		return ""
	}
	return "a." + strings.Join(classes, ".")
}

// CacheDir returns the directory name used for this mode's cache files.
func (m TransportMode) CacheDir() string {
	return strings.Trim(m.Path(), "/")
}

// NodeLabel returns the graph label for stops of city in this mode.
func (m TransportMode) NodeLabel(city string) string {
	return city + modeTable[m].label + "Stop"
}

// RelationshipLabel returns the graph label for segments of city in this mode.
func (m TransportMode) RelationshipLabel(city string) string {
	return city + modeTable[m].label + "RouteSegment"
}

// MarshalText implements encoding.TextMarshaler.
func (m TransportMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *TransportMode) UnmarshalText(text []byte) error {
	parsed, err := ParseTransportMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
