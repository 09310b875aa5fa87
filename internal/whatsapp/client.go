// Package whatsapp sends outbound replies via the WhatsApp Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://graph.facebook.com"

// Client posts text replies to the Graph API. When no API token is
// configured (development), replies are logged instead of sent.
type Client struct {
	apiToken      string
	phoneNumberID string
	graphVersion  string
	baseURL       string
	httpClient    *http.Client
}

// NewClient creates an outbound WhatsApp client.
func NewClient(apiToken, phoneNumberID, graphVersion string) *Client {
	return &Client{
		apiToken:      apiToken,
		phoneNumberID: phoneNumberID,
		graphVersion:  graphVersion,
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

type textPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// SendText delivers a text reply to the given recipient.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	if c.apiToken == "" {
		slog.Warn("WHATSAPP_API_TOKEN not set, reply logged only", "to", to, "text", text)
		return nil
	}

	payload := textPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
	}
	payload.Text.Body = text

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal reply payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.graphVersion, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build reply request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send reply to %s: %w", to, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close reply response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("reply to %s failed: status %d: %s", to, resp.StatusCode, detail)
	}

	slog.Info("Reply sent", "to", to)
	return nil
}
