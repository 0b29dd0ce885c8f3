// Package geoapify reverse-geocodes coordinates with the Geoapify API.
package geoapify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/domain/geo"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/logger"
	"github.com/kailas-cloud/memento/internal/metrics"
)

// DefaultBaseURL is the public Geoapify API.
const DefaultBaseURL = "https://api.geoapify.com/v1"

const providerName = "geoapify"

const maxErrorBody = 1 << 10

// Config holds the Geoapify client settings.
type Config struct {
	APIKey        string
	BaseURL       string
	RatePerSecond float64
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client is a rate-limited reverse geocoder.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Geoapify client.
func New(cfg Config) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if cfg.RatePerSecond > 0 {
		burst := max(int(cfg.RatePerSecond), 1)
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return c
}

type properties struct {
	Formatted string `json:"formatted"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
}

type reverseResponse struct {
	Features []struct {
		Properties properties `json:"properties"`
	} `json:"features"`
}

// Reverse returns the address nearest to p. A response without features
// yields an empty address.
func (c *Client) Reverse(ctx context.Context, p geo.Point) (dommem.Address, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return dommem.Address{}, fmt.Errorf("geocoding rate limit: %w", err)
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon, 'f', -1, 64))
	q.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geocode/reverse?"+q.Encode(), http.NoBody)
	if err != nil {
		return dommem.Address{}, fmt.Errorf("build geocoding request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	out, err := c.fetch(req)
	metrics.ObserveProvider(providerName, "reverse", start, err)
	if err != nil {
		return dommem.Address{}, err
	}

	logger.FromContext(ctx, c.logger).Debug("reverse geocoded",
		zap.Int("features", len(out.Features)), zap.Duration("duration", time.Since(start)))

	if len(out.Features) == 0 {
		return dommem.Address{}, nil
	}
	props := out.Features[0].Properties
	return dommem.Address{
		Formatted: props.Formatted,
		City:      props.City,
		State:     props.State,
		Zip:       props.Postcode,
		Country:   props.Country,
	}, nil
}

func (c *Client) fetch(req *http.Request) (reverseResponse, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return reverseResponse{}, fmt.Errorf("%w: %w", domain.ErrGeocodingProviderError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return reverseResponse{}, fmt.Errorf("%w: status %d: %s", domain.ErrGeocodingProviderError, resp.StatusCode, body)
	}

	var out reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return reverseResponse{}, fmt.Errorf("%w: decode response: %w", domain.ErrGeocodingProviderError, err)
	}
	return out, nil
}
