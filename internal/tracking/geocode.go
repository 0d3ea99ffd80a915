package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/config"
	"github.com/greenbasket/orderapi/internal/domain"
	apperrors "github.com/greenbasket/orderapi/pkg/errors"
)

// Coordinates is a geographic point
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocoder resolves a delivery address to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, addr domain.Address) (*Coordinates, error)
}

// HTTPGeocoder calls a Nominatim-style search endpoint
type HTTPGeocoder struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPGeocoder creates a new geocoder client
func NewHTTPGeocoder(cfg config.GeocoderConfig, logger *zap.Logger) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (g *HTTPGeocoder) Geocode(ctx context.Context, addr domain.Address) (*Coordinates, error) {
	query := strings.Join([]string{addr.Street, addr.City, addr.State, addr.PostalCode}, ", ")

	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", g.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.ErrUpstreamUnavailable{Service: "geocoder", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &apperrors.ErrUpstreamUnavailable{
			Service: "geocoder",
			Err:     fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(results) == 0 {
		return nil, &apperrors.ErrNotFound{Resource: "geocode result", ID: query}
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse longitude: %w", err)
	}

	return &Coordinates{Latitude: lat, Longitude: lng}, nil
}
