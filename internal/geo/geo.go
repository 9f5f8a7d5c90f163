// Package geo resolves source addresses to geographic locations through an
// ip-api style JSON endpoint. Lookups are rate limited and cached; any
// failure degrades to "no geographic data" and never aborts analysis.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// ErrNotFound signals that the service has no location for the address.
var ErrNotFound = errors.New("geo: location not found")

// ErrPrivateAddress signals an RFC 1918 or otherwise reserved address that
// public geolocation cannot resolve.
var ErrPrivateAddress = errors.New("geo: private or reserved address")

// Location is the geographic record for one address.
type Location struct {
	Country      string  `json:"country"`
	CountryCode  string  `json:"country_code"`
	Region       string  `json:"region"`
	City         string  `json:"city"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	ISP          string  `json:"isp"`
	Organization string  `json:"organization"`
}

// Config holds geolocation client settings.
type Config struct {
	APIURL            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	CacheSize         int
}

// Client looks up addresses with its own timeout, rate limiting, and an
// in-process LRU cache. The cache and limiter are owned by the client;
// callers share one client per process, injected where needed.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	cache      *lru.Cache[string, *Location]
	logger     *slog.Logger
}

// NewClient creates a geolocation client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("geo: timeout must be positive")
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("geo: requests_per_second must be positive")
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[string, *Location](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("geo: failed to create cache: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cache:      cache,
		logger:     logger,
	}, nil
}

// apiResponse mirrors the ip-api JSON payload.
type apiResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ISP         string  `json:"isp"`
	Org         string  `json:"org"`
}

// Lookup resolves one address. Returns ErrNotFound when the service has no
// data and ErrPrivateAddress for addresses public geolocation cannot serve.
func (c *Client) Lookup(ctx context.Context, address string) (*Location, error) {
	if IsPrivateIPv4(address) {
		return nil, ErrPrivateAddress
	}

	if loc, ok := c.cache.Get(address); ok {
		return loc, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geo: rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/%s?fields=status,message,country,countryCode,regionName,city,lat,lon,isp,org", c.baseURL, address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("geo: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo: unexpected status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("geo: decode response: %w", err)
	}

	if body.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, body.Message)
	}

	loc := &Location{
		Country:      body.Country,
		CountryCode:  body.CountryCode,
		Region:       body.RegionName,
		City:         body.City,
		Latitude:     body.Lat,
		Longitude:    body.Lon,
		ISP:          body.ISP,
		Organization: body.Org,
	}
	c.cache.Add(address, loc)
	return loc, nil
}

// Enrich resolves a set of suspect addresses, skipping any that fail.
// The returned map only contains addresses that resolved.
func (c *Client) Enrich(ctx context.Context, addresses []string) map[string]*Location {
	locations := make(map[string]*Location, len(addresses))
	for _, addr := range addresses {
		loc, err := c.Lookup(ctx, addr)
		if err != nil {
			if !errors.Is(err, ErrPrivateAddress) && !errors.Is(err, ErrNotFound) {
				c.logger.Warn("geolocation lookup failed", "address", addr, "error", err)
			}
			continue
		}
		locations[addr] = loc
	}
	return locations
}

// IsPrivateIPv4 reports whether the dotted-quad address falls in an
// RFC 1918, loopback, or link-local range.
func IsPrivateIPv4(address string) bool {
	parts := strings.Split(address, ".")
	if len(parts) != 4 {
		return false
	}
	octets := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return false
		}
		octets[i] = n
	}

	switch {
	case octets[0] == 10:
		return true
	case octets[0] == 172 && octets[1] >= 16 && octets[1] <= 31:
		return true
	case octets[0] == 192 && octets[1] == 168:
		return true
	case octets[0] == 127:
		return true
	case octets[0] == 169 && octets[1] == 254:
		return true
	}
	return false
}
