package model

import (
	"errors"
	"testing"
)

func TestParseTransportMode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected TransportMode
	}{
		{"bus", ModeBus},
		{"Bus", ModeBus},
		{"bus/", ModeBus},
		{"tram", ModeTram},
		{"trolleybus", ModeTrolleybus},
		{"trolley", ModeTrolleybus},
		{"minibus", ModeMinibus},
		{"mtaxi", ModeMinibus},
		{" MTAXI/ ", ModeMinibus},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTransportMode(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("got %v, expected %v", got, tc.expected)
			}
		})
	}

	t.Run("unknown mode", func(t *testing.T) {
		t.Parallel()
		_, err := ParseTransportMode("ferry")
		if !errors.Is(err, ErrUnknownMode) {
			t.Errorf("expected ErrUnknownMode, got %v", err)
		}
	})
}

func TestTransportModeData(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		mode     TransportMode
		path     string
		marker   string
		selector string
		cacheDir string
		node     string
		rel      string
	}{
		{ModeBus, "bus/", "bus-item bus-icon", "a.bus-item.bus-icon", "bus", "SpbBusStop", "SpbBusRouteSegment"},
		{ModeTram, "tram/", "bus-item tram-icon", "a.bus-item.tram-icon", "tram", "SpbTramStop", "SpbTramRouteSegment"},
		{ModeTrolleybus, "trolley/", "bus-item trolley-icon", "a.bus-item.trolley-icon", "trolley", "SpbTrolleyStop", "SpbTrolleyRouteSegment"},
		{ModeMinibus, "mtaxi/", "bus-item mtaxi-icon", "a.bus-item.mtaxi-icon", "mtaxi", "SpbMiniBusStop", "SpbMiniBusRouteSegment"},
	}

	for _, tc := range testCases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			t.Parallel()
			if tc.mode.Path() != tc.path {
				t.Errorf("Path() = %q, expected %q", tc.mode.Path(), tc.path)
			}
			if tc.mode.Marker() != tc.marker {
				t.Errorf("Marker() = %q, expected %q", tc.mode.Marker(), tc.marker)
			}
			if tc.mode.Selector() != tc.selector {
				t.Errorf("Selector() = %q, expected %q", tc.mode.Selector(), tc.selector)
			}
			if tc.mode.CacheDir() != tc.cacheDir {
				t.Errorf("CacheDir() = %q, expected %q", tc.mode.CacheDir(), tc.cacheDir)
			}
			if got := tc.mode.NodeLabel("Spb"); got != tc.node {
				t.Errorf("NodeLabel() = %q, expected %q", got, tc.node)
			}
			if got := tc.mode.RelationshipLabel("Spb"); got != tc.rel {
				t.Errorf("RelationshipLabel() = %q, expected %q", got, tc.rel)
			}
		})
	}
}

func TestTransportModeText(t *testing.T) {
	t.Parallel()

	for _, m := range AllModes() {
		text, err := m.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", m, err)
		}
		var back TransportMode
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", text, err)
		}
		if back != m {
			t.Errorf("round trip of %v produced %v", m, back)
		}
	}

	if _, err := ModeUnknown.MarshalText(); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode for zero mode, got %v", err)
	}
	if ModeUnknown.Valid() {
		t.Error("zero mode must not be valid")
	}
}
