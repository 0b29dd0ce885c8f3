package geoapify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/domain/geo"
)

const cupertinoResponse = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "properties": {
      "country": "United States",
      "state": "California",
      "city": "Cupertino",
      "postcode": "95014",
      "formatted": "1 Infinite Loop, Cupertino, CA 95014, United States of America"
    }
  }]
}`

func TestReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geocode/reverse" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("lat") != "37.33" || q.Get("lon") != "-122.03" || q.Get("apiKey") != "key" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cupertinoResponse))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key", BaseURL: srv.URL})
	addr, err := c.Reverse(context.Background(), geo.Point{Lat: 37.33, Lon: -122.03})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.City != "Cupertino" || addr.State != "California" || addr.Zip != "95014" || addr.Country != "United States" {
		t.Errorf("unexpected address %+v", addr)
	}
	if addr.Formatted == "" {
		t.Error("formatted address missing")
	}
}

func TestReverse_NoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	addr, err := New(Config{BaseURL: srv.URL}).Reverse(context.Background(), geo.Point{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !addr.IsZero() {
		t.Errorf("expected empty address, got %+v", addr)
	}
}

func TestReverse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"unauthorized", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
		}},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(Config{BaseURL: srv.URL}).Reverse(context.Background(), geo.Point{Lat: 1, Lon: 1})
			if !errors.Is(err, domain.ErrGeocodingProviderError) {
				t.Fatalf("expected ErrGeocodingProviderError, got %v", err)
			}
		})
	}
}

func TestReverse_RateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RatePerSecond: 0.01})
	if _, err := c.Reverse(context.Background(), geo.Point{}); err != nil {
		t.Fatalf("first call within burst failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Reverse(ctx, geo.Point{}); err == nil {
		t.Fatal("expected the limiter to give up before the deadline")
	}
}
