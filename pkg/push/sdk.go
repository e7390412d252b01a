package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Permission mirrors the browser notification permission states reported by
// the provider for a device session.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// SubscriberSDK is the server-side view of one device's push SDK session.
// The lifecycle manager drives its state machine through this interface so
// tests can substitute a scripted fake.
type SubscriberSDK interface {
	// Ready reports whether the device's SDK session is known to the provider.
	Ready(ctx context.Context) bool
	// PermissionState returns the current permission without prompting.
	PermissionState(ctx context.Context) (Permission, error)
	// RequestPermission asks the device to prompt the user and returns the outcome.
	RequestPermission(ctx context.Context) (Permission, error)
	// SubscriberID returns the provider-assigned subscriber ID, or "" while unassigned.
	SubscriberID(ctx context.Context) (string, error)
	// Platform names the device platform ("web", "android", ...).
	Platform() string
}

type deviceStateResponse struct {
	Permission   Permission `json:"permission"`
	SubscriberID string     `json:"subscriber_id"`
}

// DeviceSession implements SubscriberSDK against the provider's device
// handshake endpoints, keyed by the opaque token the browser SDK registered.
type DeviceSession struct {
	client      *Client
	deviceToken string
	platform    string
}

func NewDeviceSession(client *Client, deviceToken, platform string) *DeviceSession {
	if platform == "" {
		platform = "web"
	}
	return &DeviceSession{client: client, deviceToken: deviceToken, platform: platform}
}

func (d *DeviceSession) Ready(ctx context.Context) bool {
	_, err := d.client.deviceState(ctx, d.deviceToken)
	return err == nil
}

func (d *DeviceSession) PermissionState(ctx context.Context) (Permission, error) {
	state, err := d.client.deviceState(ctx, d.deviceToken)
	if err != nil {
		return PermissionDefault, err
	}
	return state.Permission, nil
}

func (d *DeviceSession) RequestPermission(ctx context.Context) (Permission, error) {
	state, err := d.client.promptDevice(ctx, d.deviceToken)
	if err != nil {
		return PermissionDefault, err
	}
	return state.Permission, nil
}

func (d *DeviceSession) SubscriberID(ctx context.Context) (string, error) {
	state, err := d.client.deviceState(ctx, d.deviceToken)
	if err != nil {
		return "", err
	}
	return state.SubscriberID, nil
}

func (d *DeviceSession) Platform() string {
	return d.platform
}

// deviceState fetches the provider's registration state for a device token.
func (c *Client) deviceState(ctx context.Context, deviceToken string) (*deviceStateResponse, error) {
	return c.deviceCall(ctx, http.MethodGet, "/devices/"+deviceToken)
}

// promptDevice asks the provider to trigger the device-side permission prompt.
func (c *Client) promptDevice(ctx context.Context, deviceToken string) (*deviceStateResponse, error) {
	return c.deviceCall(ctx, http.MethodPost, "/devices/"+deviceToken+"/prompt")
}

func (c *Client) deviceCall(ctx context.Context, method, path string) (*deviceStateResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build device request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach push provider: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("device call failed: status %d: %s", resp.StatusCode, string(body))
	}

	var state deviceStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode device state: %v", err)
	}
	return &state, nil
}
