package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"qibla/internal/modules/location"
	"qibla/internal/types"
)

const defaultOpenCageURL = "https://api.opencagedata.com/geocode/v1/json"

// OpenCageClient queries the OpenCage forward geocoding endpoint.
type OpenCageClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewOpenCageClient creates a client. An empty baseURL selects the public
// endpoint; timeout guards against stalled connections while context
// cancellation is still honoured.
func NewOpenCageClient(baseURL, apiKey string, timeout time.Duration) *OpenCageClient {
	if baseURL == "" {
		baseURL = defaultOpenCageURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenCageClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type openCageResponse struct {
	Results []struct {
		Formatted string `json:"formatted"`
		Geometry  struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
	} `json:"results"`
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

// Geocode resolves query to the first OpenCage result.
func (c *OpenCageClient) Geocode(ctx context.Context, query string) (location.Place, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return location.Place{}, fmt.Errorf("opencage: parse url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("key", c.apiKey)
	q.Set("limit", "1")
	q.Set("no_annotations", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return location.Place{}, fmt.Errorf("opencage: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return location.Place{}, fmt.Errorf("opencage: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return location.Place{}, fmt.Errorf("opencage: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return location.Place{}, fmt.Errorf("opencage: status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var or openCageResponse
	if err := json.Unmarshal(body, &or); err != nil {
		return location.Place{}, fmt.Errorf("opencage: unmarshal response: %w", err)
	}
	if len(or.Results) == 0 {
		return location.Place{}, location.ErrNoMatch
	}

	r := or.Results[0]
	p := types.Point{Lat: r.Geometry.Lat, Lng: r.Geometry.Lng}
	if !p.Valid() {
		return location.Place{}, fmt.Errorf("opencage: invalid coordinate %v", p)
	}
	return location.Place{Name: r.Formatted, Point: p, Source: location.SourceOpenCage}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
