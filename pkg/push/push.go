package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client talks to the push provider's REST API: a token-exchange endpoint and
// a targeted-send endpoint that accepts a subscriber filter.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient builds a provider client. httpClient may be nil.
func NewClient(baseURL, clientID, clientSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

// Configured reports whether provider credentials are present. Missing
// credentials degrade push delivery to a simulated local notification.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.clientID != "" && c.clientSecret != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken exchanges client credentials for a transient bearer token,
// reusing a cached one until shortly before it expires.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach push provider: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token exchange failed: status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %v", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned empty access token")
	}

	c.token = tok.AccessToken
	// Refresh a minute early so an in-flight send never carries a stale token.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

type sendRequest struct {
	IncludeSubscribers []string          `json:"include_subscriber_ids"`
	Title              string            `json:"title"`
	Message            string            `json:"message"`
	Data               map[string]string `json:"data,omitempty"`
}

// Send issues a targeted push scoped to a single subscriber ID.
func (c *Client) Send(ctx context.Context, subscriberID, title, message, link string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	body := sendRequest{
		IncludeSubscribers: []string{subscriberID},
		Title:              title,
		Message:            message,
	}
	if link != "" {
		body.Data = map[string]string{"link": link}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notifications", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach push provider: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push provider rejected send: status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
