package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the transactional email relay's HTTP API.
type Client struct {
	relayURL   string
	apiKey     string
	sender     string
	httpClient *http.Client
}

// NewClient builds a relay client. httpClient may be nil, in which case a
// default client with a send timeout is used.
func NewClient(relayURL, apiKey, sender string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		relayURL:   relayURL,
		apiKey:     apiKey,
		sender:     sender,
		httpClient: httpClient,
	}
}

// Configured reports whether the relay endpoint is set. An unconfigured
// client is a valid degraded state, not an error.
func (c *Client) Configured() bool {
	return c.relayURL != ""
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Send posts one rendered email to the relay. Any non-2xx status is returned
// as an error; the caller decides whether that is fatal.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	payload, err := json.Marshal(sendRequest{
		From:    c.sender,
		To:      to,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build email request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach email relay: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email relay rejected message: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
