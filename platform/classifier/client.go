// Package classifier talks to the image analysis service that verifies
// report photos and scores resolution photos.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fixit-be/models"
)

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type classifyRequest struct {
	ImageURL string `json:"image_url"`
}

type compareRequest struct {
	OriginalURL   string `json:"original_url"`
	ResolutionURL string `json:"resolution_url"`
}

type compareResponse struct {
	Confidence int `json:"confidence"`
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshalling analysis request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling analysis service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("analysis service error %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding analysis response: %w", err)
	}
	return nil
}

// Classify describes the problem shown in a report photo.
func (c *Client) Classify(ctx context.Context, imageURL string) (*models.ImageAnalysis, error) {
	var out models.ImageAnalysis
	if err := c.post(ctx, "/classify", classifyRequest{ImageURL: imageURL}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompareResolution scores how convincingly resolutionURL shows the problem
// in originalURL fixed.
func (c *Client) CompareResolution(ctx context.Context, originalURL, resolutionURL string) (int, error) {
	var out compareResponse
	if err := c.post(ctx, "/compare", compareRequest{OriginalURL: originalURL, ResolutionURL: resolutionURL}, &out); err != nil {
		return 0, err
	}
	return out.Confidence, nil
}
