package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const PlatformSaramin = "saramin"

var ErrWebhookNotConfigured = errors.New("scraping webhook url is not configured")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type scrapeRequest struct {
	Action   string `json:"action"`
	Platform string `json:"platform"`
}

// Client asks the external scraper to start collecting candidates.
type Client struct {
	httpClient HTTPClient
	webhookURL string
}

func NewClient(webhookURL string) *Client {
	return &Client{httpClient: &http.Client{}, webhookURL: webhookURL}
}

func (c *Client) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

func (c *Client) RequestScraping(ctx context.Context, platform string) error {

	if c.webhookURL == "" {
		return ErrWebhookNotConfigured
	}

	payload, err := json.Marshal(scrapeRequest{Action: "start_scraping", Platform: platform})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %v, body: %v", resp.StatusCode, string(body))
	}

	return nil
}
