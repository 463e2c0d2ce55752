package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/neumerance/kerberos-swarm/internal/models"
)

// Client talks to a running viewer's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Health() (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := c.get("/api/health", &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Cameras() ([]models.CameraStatus, error) {
	var result struct {
		Cameras []models.CameraStatus `json:"cameras"`
	}
	if err := c.get("/api/v1/cameras", &result); err != nil {
		return nil, err
	}
	return result.Cameras, nil
}

func (c *Client) Operations(limit int) ([]*models.Operation, error) {
	path := "/api/v1/operations"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}

	var result struct {
		Operations []*models.Operation `json:"operations"`
	}
	if err := c.get(path, &result); err != nil {
		return nil, err
	}
	return result.Operations, nil
}

func (c *Client) get(path string, out interface{}) error {
	url := c.baseURL + path

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
