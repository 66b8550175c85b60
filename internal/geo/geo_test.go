package geo

import (
	"math"
	"testing"
)

func TestValidateCoordinates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr bool
	}{
		{name: "valid downtown", lat: 30.2672, lng: -97.7431},
		{name: "poles and antimeridian", lat: 90, lng: 180},
		{name: "latitude too high", lat: 90.1, lng: 0, wantErr: true},
		{name: "latitude too low", lat: -90.1, lng: 0, wantErr: true},
		{name: "longitude too high", lat: 0, lng: 180.5, wantErr: true},
		{name: "longitude too low", lat: 0, lng: -181, wantErr: true},
		{name: "nan latitude", lat: math.NaN(), lng: 0, wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateCoordinates(tc.lat, tc.lng)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for (%v, %v)", tc.lat, tc.lng)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDistance(t *testing.T) {
	t.Parallel()

	t.Run("zero distance for identical points", func(t *testing.T) {
		t.Parallel()
		p := Point{Lat: 30.2672, Lng: -97.7431}
		if d := Distance(p, p); d != 0 {
			t.Fatalf("expected 0, got %v", d)
		}
	})

	t.Run("short urban hop is roughly 42 meters", func(t *testing.T) {
		t.Parallel()
		a := Point{Lat: 30.2672, Lng: -97.7431}
		b := Point{Lat: 30.2675, Lng: -97.7428}
		d := Distance(a, b)
		if d < 35 || d > 50 {
			t.Fatalf("expected ~42m, got %v", d)
		}
	})

	t.Run("distance is symmetric", func(t *testing.T) {
		t.Parallel()
		a := Point{Lat: 35.6762, Lng: 139.6503}
		b := Point{Lat: 34.6937, Lng: 135.5023}
		if ab, ba := Distance(a, b), Distance(b, a); math.Abs(ab-ba) > 1e-6 {
			t.Fatalf("asymmetric distance: %v vs %v", ab, ba)
		}
	})

	t.Run("tokyo to osaka is about 400km", func(t *testing.T) {
		t.Parallel()
		a := Point{Lat: 35.6762, Lng: 139.6503}
		b := Point{Lat: 34.6937, Lng: 135.5023}
		d := Distance(a, b)
		if d < 390_000 || d > 410_000 {
			t.Fatalf("expected ~400km, got %v", d)
		}
	})
}

func TestWithinRadius(t *testing.T) {
	t.Parallel()

	center := Point{Lat: 30.2672, Lng: -97.7431}

	ok, d := WithinRadius(center, Point{Lat: 30.2675, Lng: -97.7428}, 100)
	if !ok {
		t.Fatalf("expected point %.1fm away to be within 100m", d)
	}

	ok, d = WithinRadius(center, Point{Lat: 30.2700, Lng: -97.7500}, 100)
	if ok {
		t.Fatalf("expected point %.1fm away to be outside 100m", d)
	}
	if d < 500 || d > 1000 {
		t.Fatalf("expected distance in the 500-1000m band, got %v", d)
	}
}
