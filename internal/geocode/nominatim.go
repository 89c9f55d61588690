// Package geocode resolves place names to coordinates through a
// Nominatim-compatible search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/observability"
)

// ErrNotFound means the service answered but had no match for the query.
var ErrNotFound = errors.New("no geocoding match")

type Geocoder interface {
	Geocode(ctx context.Context, query string) (model.Coordinate, error)
}

type Client struct {
	logger    *slog.Logger
	client    *http.Client
	searchURL *url.URL
	userAgent string
	startNow  func() time.Time // for tests
}

var _ Geocoder = (*Client)(nil)

func NewClient(logger *slog.Logger, client *http.Client, baseURL, userAgent string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/search")
	if err != nil {
		return nil, fmt.Errorf("parse geocoder url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("geocoder url %q must be absolute", baseURL)
	}
	if strings.TrimSpace(userAgent) == "" {
		return nil, errors.New("geocoder user agent is required")
	}
	return &Client{
		logger:    logger,
		client:    client,
		searchURL: u,
		userAgent: userAgent,
		startNow:  time.Now,
	}, nil
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode returns the best match for query, ErrNotFound when there is none,
// or a transport error.
func (c *Client) Geocode(ctx context.Context, query string) (model.Coordinate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	u := *c.searchURL
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := c.startNow()
	resp, err := c.client.Do(req)
	if err != nil {
		observability.ObserveUpstream("geocoder", err, time.Since(start).Seconds())
		return model.Coordinate{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		err := fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		observability.ObserveUpstream("geocoder", err, time.Since(start).Seconds())
		return model.Coordinate{}, err
	}

	var places []place
	err = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&places)
	observability.ObserveUpstream("geocoder", err, time.Since(start).Seconds())
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("decode response: %w", err)
	}
	c.logger.DebugContext(ctx, "geocode done", "query", query, "matches", len(places),
		"duration", time.Since(start).String())
	if len(places) == 0 {
		return model.Coordinate{}, fmt.Errorf("%q: %w", query, ErrNotFound)
	}
	return parsePlace(places[0])
}

func parsePlace(p place) (model.Coordinate, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(p.Lat), 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("lat: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(p.Lon), 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("lon: %w", err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return model.Coordinate{}, fmt.Errorf("coordinate %v,%v out of range", lat, lon)
	}
	return model.Coordinate{Lat: lat, Lon: lon}, nil
}

// Query builds the disambiguated search text for a city.
func Query(city, country string) string {
	city = strings.TrimSpace(city)
	country = strings.TrimSpace(country)
	if country == "" {
		return city
	}
	return city + ", " + country
}
