// Package geocoding resolves locality names to coordinates through a
// Nominatim-compatible search API and computes road-agnostic distances.
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL       = "https://nominatim.openstreetmap.org"
	DefaultUserAgent     = "OratoriGestionale/1.0"
	DefaultCountrySuffix = "Italia"
	defaultParallelism   = 4
)

// Options configures a Client.
type Options struct {
	BaseURL       string
	UserAgent     string
	CountrySuffix string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Cache         Cache
	Logger        *slog.Logger
}

// Client looks up localities and memoizes results in its Cache. Transport
// failures are returned to the caller and are not cached.
type Client struct {
	baseURL       string
	userAgent     string
	countrySuffix string
	http          *http.Client
	cache         Cache
	group         singleflight.Group
	logger        *slog.Logger
}

// NewClient builds a Client, filling unset options with defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.HTTPClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}
	if opts.Cache == nil {
		opts.Cache = NewMemoryCache()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		userAgent:     opts.UserAgent,
		countrySuffix: opts.CountrySuffix,
		http:          opts.HTTPClient,
		cache:         opts.Cache,
		logger:        opts.Logger,
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup resolves a locality. It returns nil coordinates and a nil error when
// the locality is blank or the service has no match.
func (c *Client) Lookup(ctx context.Context, locality string) (*Coordinates, error) {
	key := NormalizeLocality(locality)
	if key == "" {
		return nil, nil
	}
	if coords, ok := c.cache.Get(key); ok {
		return coords, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		coords, err := c.search(ctx, strings.TrimSpace(locality))
		if err != nil {
			return nil, err
		}
		c.cache.Store(key, coords)
		return coords, nil
	})
	if err != nil {
		return nil, err
	}
	coords, _ := v.(*Coordinates)
	if coords == nil {
		return nil, nil
	}
	cloned := *coords
	return &cloned, nil
}

func (c *Client) search(ctx context.Context, locality string) (*Coordinates, error) {
	q := locality
	if c.countrySuffix != "" {
		q = locality + ", " + c.countrySuffix
	}
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", q)
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocoding request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding request: unexpected status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", results[0].Lon, err)
	}
	return &Coordinates{Lat: lat, Lon: lon}, nil
}

// Distance returns the rounded distance in km between two localities. It
// returns nil when either locality is blank or cannot be resolved. Equal
// localities are 0 km apart without a lookup.
func (c *Client) Distance(ctx context.Context, from, to string) (*int, error) {
	a, b := NormalizeLocality(from), NormalizeLocality(to)
	if a == "" || b == "" {
		return nil, nil
	}
	if a == b {
		zero := 0
		return &zero, nil
	}

	origin, err := c.Lookup(ctx, from)
	if err != nil || origin == nil {
		return nil, err
	}
	dest, err := c.Lookup(ctx, to)
	if err != nil || dest == nil {
		return nil, err
	}
	km := RoundKm(Haversine(*origin, *dest))
	return &km, nil
}

// Distances computes distances from one locality to many, keyed like the
// input. Lookups run concurrently; a failed lookup leaves that entry nil and
// is logged, never returned.
func (c *Client) Distances(ctx context.Context, from string, targets map[string]string) map[string]*int {
	out := make(map[string]*int, len(targets))
	if NormalizeLocality(from) == "" || len(targets) == 0 {
		return out
	}

	type result struct {
		key string
		km  *int
	}
	results := make(chan result, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultParallelism)
	for key, locality := range targets {
		g.Go(func() error {
			km, err := c.Distance(gctx, from, locality)
			if err != nil {
				c.logger.WarnContext(ctx, "distance lookup failed",
					"from", from,
					"to", locality,
					"error", err,
				)
			}
			results <- result{key: key, km: km}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	for r := range results {
		out[r.key] = r.km
	}
	return out
}
