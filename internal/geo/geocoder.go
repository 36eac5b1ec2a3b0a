package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"entrepreneur-connect-backend/internal/config"
	"entrepreneur-connect-backend/internal/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Resolver turns a city name into coordinates. Known cities come from the
// built-in table; anything else goes to Nominatim, once, without caching.
type Resolver struct {
	baseURL   string
	userAgent string
	country   string
	remote    bool
	client    *http.Client
	limiter   *rate.Limiter
}

// NewResolver creates a resolver from the geocoding config
func NewResolver(cfg config.GeocodingConfig) *Resolver {
	return &Resolver{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		country:   cfg.Country,
		remote:    cfg.Enabled,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Resolve returns the coordinates of city. Failures are logged and reported
// as ok=false, never as an error.
func (r *Resolver) Resolve(ctx context.Context, city string) (Point, bool) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Point{}, false
	}

	if p, ok := LookupCity(city); ok {
		metrics.GeocodeLookups.WithLabelValues("table").Inc()
		return p, true
	}

	if !r.remote {
		metrics.GeocodeLookups.WithLabelValues("disabled").Inc()
		return Point{}, false
	}

	p, err := r.search(ctx, city)
	if err != nil {
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("city", city).Msg("Geocoding failed")
		return Point{}, false
	}
	if p == nil {
		metrics.GeocodeLookups.WithLabelValues("miss").Inc()
		return Point{}, false
	}

	metrics.GeocodeLookups.WithLabelValues("remote").Inc()
	return *p, true
}

func (r *Resolver) search(ctx context.Context, city string) (*Point, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	q := city
	if r.country != "" {
		q = city + ", " + r.country
	}
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", q)
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query geocoder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}

	log.Debug().
		Str("city", city).
		Str("display_name", results[0].DisplayName).
		Dur("took", time.Since(start)).
		Msg("City geocoded")

	return &Point{Lat: lat, Lon: lon}, nil
}
