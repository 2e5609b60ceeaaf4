package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"homefind-backend/internal/domain"

	"github.com/mmcloughlin/geohash"
)

const mapboxAPI = "https://api.mapbox.com/geocoding/v5/mapbox.places/"

// GeohashPrecision is the cell length stored on listings (about 150m).
const GeohashPrecision = 7

// Result is one geocoding match.
type Result struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
}

// Geocoder resolves a free-text address. No match is (nil, nil).
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

// MapboxClient geocodes through the Mapbox places API. Without a token every
// lookup is a miss.
type MapboxClient struct {
	Token string
	// BaseURL overrides the API root.
	BaseURL string
	Client  *http.Client
}

type mapboxResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
	} `json:"features"`
}

func (c *MapboxClient) base() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/") + "/"
	}
	return mapboxAPI
}

// Geocode returns the best match for address. Addresses shorter than three
// characters are not looked up.
func (c *MapboxClient) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if len(address) < 3 || c.Token == "" {
		return nil, nil
	}
	u := fmt.Sprintf("%s%s.json?access_token=%s&limit=1",
		c.base(), url.PathEscape(address), url.QueryEscape(c.Token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox geocode: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mapbox geocode: status %d", resp.StatusCode)
	}

	var body mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("mapbox geocode: decode: %w", err)
	}
	if len(body.Features) == 0 || len(body.Features[0].Center) < 2 {
		return nil, nil
	}
	f := body.Features[0]
	// center is [lng, lat]
	return &Result{Latitude: f.Center[1], Longitude: f.Center[0], FormattedAddress: f.PlaceName}, nil
}

// BuildAddress is the lookup string for a listing address.
func BuildAddress(a domain.Address) string {
	return a.Line()
}

// Cell is the geohash of a coordinate at GeohashPrecision.
func Cell(lat, lng float64) string {
	return geohash.EncodeWithPrecision(lat, lng, GeohashPrecision)
}
