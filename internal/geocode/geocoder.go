package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"droneDeliveryTracker/internal/logger"
	"droneDeliveryTracker/models"
)

// DefaultBaseURL is the public Nominatim search endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org/search"

const (
	defaultMaxRetries = 3
	defaultLimit      = 5
	defaultBackoff    = time.Second
	requestTimeout    = 10 * time.Second
	userAgent         = "droneDeliveryTracker/1.0"
)

// Client resolves free-text addresses against a Nominatim-compatible endpoint,
// restricted to a single country. Resolution failure is an expected outcome,
// not an error: callers substitute a fallback coordinate.
type Client struct {
	BaseURL     string
	CountryCode string
	MaxRetries  int
	Backoff     time.Duration
	HTTPClient  *http.Client
	Log         logger.Logger
}

// New creates a geocoding client. Empty baseURL falls back to the public endpoint.
func New(baseURL, countryCode string, log logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		BaseURL:     baseURL,
		CountryCode: countryCode,
		MaxRetries:  defaultMaxRetries,
		Backoff:     defaultBackoff,
		HTTPClient:  &http.Client{Timeout: requestTimeout},
		Log:         log,
	}
}

// candidate mirrors one entry of the service's JSON response.
// Latitude and longitude arrive as string-encoded floats.
type candidate struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves an address to a coordinate. It requests up to five
// candidates and takes the first (highest-ranked) one.
//
// Retry policy, bounded by MaxRetries attempts in total:
//   - empty result set with a comma in the query: retry with the substring
//     before the first comma (progressive simplification)
//   - network or parse error: retry after a fixed backoff
//
// A nil result with a nil error means the address could not be resolved;
// only context cancellation yields a non-nil error.
func (c *Client) Geocode(ctx context.Context, address string) (*models.GeocodeResult, error) {
	retries := c.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	query := strings.TrimSpace(address)
	for retries > 0 && query != "" {
		retries--

		candidates, err := c.search(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.Log.Error("geocode_request_failed", err)
			select {
			case <-time.After(c.backoff()):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		if len(candidates) == 0 {
			// Progressive simplification: drop everything after the first comma.
			if i := strings.Index(query, ","); i >= 0 {
				query = strings.TrimSpace(query[:i])
				continue
			}
			c.Log.Warn("geocode_no_results", fmt.Sprintf("no candidates for %q", address))
			return nil, nil
		}

		res, err := candidates[0].toResult()
		if err != nil {
			c.Log.Error("geocode_bad_candidate", err)
			select {
			case <-time.After(c.backoff()):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		return res, nil
	}

	c.Log.Warn("geocode_retries_exhausted", fmt.Sprintf("giving up on %q", address))
	return nil, nil
}

func (c *Client) backoff() time.Duration {
	if c.Backoff > 0 {
		return c.Backoff
	}
	return defaultBackoff
}

// search performs one GET against the geocoding endpoint.
func (c *Client) search(ctx context.Context, query string) ([]candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(defaultLimit))
	if c.CountryCode != "" {
		params.Set("countrycodes", c.CountryCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	var candidates []candidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}
	return candidates, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: requestTimeout}
}

func (cd candidate) toResult() (*models.GeocodeResult, error) {
	lat, err := strconv.ParseFloat(cd.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse candidate lat %q: %w", cd.Lat, err)
	}
	lng, err := strconv.ParseFloat(cd.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse candidate lon %q: %w", cd.Lon, err)
	}
	coord := models.Coordinate{Lat: lat, Lng: lng}
	if err := coord.Validate(); err != nil {
		return nil, fmt.Errorf("candidate out of range (%v, %v): %w", lat, lng, err)
	}
	return &models.GeocodeResult{Coordinate: coord, DisplayName: cd.DisplayName}, nil
}
