// Package geo resolves client IP addresses to a best-effort location.
//
// Resolution is always total: a resolver returns an empty Location on any
// failure and never propagates an error into the ingestion path. Loopback
// addresses short-circuit to an empty Location without touching the network
// or the local database.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pagebeam/internal/config"
)

const lookupTimeout = 5 * time.Second

// Location is the contextual metadata attached to a page view. Empty fields
// mean the lookup did not produce a value.
type Location struct {
	Country string
	City    string
}

// Resolver turns an IP address into a Location.
type Resolver interface {
	Resolve(ctx context.Context, ip string) Location
}

// IsLoopback reports whether ip is a loopback address (127.0.0.0/8, ::1).
func IsLoopback(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	return parsed != nil && parsed.IsLoopback()
}

// NewResolver picks the resolver implementation for the current config: the
// local GeoLite2 database when one is readable, the HTTP lookup service
// otherwise.
func NewResolver(cfg *config.Config, logger *slog.Logger) Resolver {
	if cfg.GeoDBPath != "" {
		if _, err := os.Stat(cfg.GeoDBPath); err == nil {
			reader, err := geoip2.Open(cfg.GeoDBPath)
			if err == nil {
				logger.Info("Using local GeoLite2 database", slog.String("path", cfg.GeoDBPath))
				return NewMMDBResolver(reader, logger)
			}
			logger.Warn("Failed to open GeoLite2 database, falling back to HTTP lookup",
				slog.String("path", cfg.GeoDBPath),
				slog.Any("error", err))
		} else {
			logger.Info("GeoLite2 database not found, using HTTP lookup",
				slog.String("path", cfg.GeoDBPath))
		}
	}
	return NewHTTPResolver(cfg.GeoAPIBaseURL, logger)
}

// HTTPResolver queries an ipapi.co-compatible JSON endpoint.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPResolver creates a resolver against an ipapi.co-compatible service.
func NewHTTPResolver(baseURL string, logger *slog.Logger) *HTTPResolver {
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: lookupTimeout},
		logger:  logger,
	}
}

// Resolve looks up the IP over HTTP. Timeouts, non-2xx responses and
// malformed bodies all degrade to an empty Location.
func (r *HTTPResolver) Resolve(ctx context.Context, ip string) Location {
	if IsLoopback(ip) {
		return Location{}
	}

	url := fmt.Sprintf("%s/%s/json/", r.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}
	}
	req.Header.Set("User-Agent", "pagebeam/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("Location lookup failed", slog.String("ip", ip), slog.Any("error", err))
		return Location{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.Debug("Location lookup returned non-2xx",
			slog.String("ip", ip),
			slog.Int("status", resp.StatusCode))
		return Location{}
	}

	var body struct {
		CountryName string `json:"country_name"`
		City        string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		r.logger.Debug("Location lookup returned malformed body",
			slog.String("ip", ip),
			slog.Any("error", err))
		return Location{}
	}

	return Location{Country: body.CountryName, City: body.City}
}

// MMDBResolver resolves locations from a local GeoLite2 database.
type MMDBResolver struct {
	reader    *geoip2.Reader
	countries *gountries.Query
	caser     cases.Caser
	logger    *slog.Logger
}

// NewMMDBResolver wraps an opened GeoLite2 reader.
func NewMMDBResolver(reader *geoip2.Reader, logger *slog.Logger) *MMDBResolver {
	return &MMDBResolver{
		reader:    reader,
		countries: gountries.New(),
		caser:     cases.Title(language.AmericanEnglish),
		logger:    logger,
	}
}

// Resolve looks up the IP in the local database. Parse or lookup failures
// degrade to an empty Location.
func (r *MMDBResolver) Resolve(_ context.Context, ip string) Location {
	if IsLoopback(ip) {
		return Location{}
	}

	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return Location{}
	}

	record, err := r.reader.City(parsed)
	if err != nil {
		r.logger.Debug("GeoLite2 lookup failed", slog.String("ip", ip), slog.Any("error", err))
		return Location{}
	}

	loc := Location{City: record.City.Names["en"]}
	iso := record.Country.IsoCode
	if iso == "" || iso == "--" {
		return loc
	}

	if country, err := r.countries.FindCountryByAlpha(iso); err == nil {
		loc.Country = country.Name.Common
	} else {
		loc.Country = r.caser.String(iso)
	}
	return loc
}

// Close releases the underlying GeoLite2 reader.
func (r *MMDBResolver) Close() error {
	return r.reader.Close()
}
