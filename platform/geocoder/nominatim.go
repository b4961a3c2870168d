// Package geocoder reverse-geocodes issue locations through a
// Nominatim-compatible HTTP API.
package geocoder

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
)

type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatim(baseURL, userAgent string) *Nominatim {
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// ReverseGeocode returns the display address for a point, or "" when the
// service knows nothing there.
func (n *Nominatim) ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(latitude, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling geocoder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("geocoder error %d: %s", resp.StatusCode, string(body))
	}

	var result reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding geocoder response: %w", err)
	}
	if result.Error != "" {
		return "", nil
	}
	return result.DisplayName, nil
}
