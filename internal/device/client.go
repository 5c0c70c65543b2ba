package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
)

const (
	// DefaultTimeout is the default per-request timeout
	DefaultTimeout = 10 * time.Second

	// maxBodySize bounds how much of a response body is read
	maxBodySize = 1 << 20
)

// Route paths. Each route lists its primary path first and the /api/ alias
// used by newer firmware second.
var (
	statusPaths = []string{"/status", "/api/status"}
	scanPaths   = []string{"/wifi/scan", "/api/scan"}
	wifiPaths   = []string{"/wifi", "/api/wifi"}
)

const (
	wifiVerifyPath    = "/wifi/verify"
	channelSearchPath = "/youtube/search"
	channelPath       = "/youtube"
	channelVerifyPath = "/youtube/verify"
)

// Client talks to the device's provisioning API.
// The zero value is not usable; create clients with NewClient.
type Client struct {
	// HTTPClient is the underlying HTTP client. Its Timeout bounds every call.
	HTTPClient *http.Client
}

// NewClient creates a client whose requests time out after timeout.
// A non-positive timeout selects DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// GetStatus retrieves the device status.
func (c *Client) GetStatus(ctx context.Context, addr Address) (*Status, error) {
	body, err := c.getFirst(ctx, addr, statusPaths)
	if err != nil {
		return nil, err
	}

	var wire statusWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, NewParseError(addr, "failed to parse status response", err)
	}
	return wire.toStatus(), nil
}

// ScanNetworks asks the device for the access points it can see. Networks
// outside the supported 2.4 GHz channels are dropped.
func (c *Client) ScanNetworks(ctx context.Context, addr Address) ([]AccessPoint, error) {
	body, err := c.getFirst(ctx, addr, scanPaths)
	if err != nil {
		return nil, err
	}

	aps, err := parseScanResponse(body)
	if err != nil {
		return nil, NewParseError(addr, "failed to parse scan response", err)
	}

	filtered := FilterSupportedBand(aps)
	if dropped := len(aps) - len(filtered); dropped > 0 {
		logging.Debug("Dropped networks outside supported band",
			zap.String("address", addr.String()),
			zap.Int("dropped", dropped),
		)
	}
	return filtered, nil
}

// SubmitWifi sends station-mode credentials. A nil error only means the
// device took the request; whether it joined the network is a separate
// question answered by VerifyWifi.
func (c *Client) SubmitWifi(ctx context.Context, addr Address, ssid, secret string) error {
	payload := wifiRequest{SSID: ssid, Password: secret}

	var lastErr error
	for _, path := range wifiPaths {
		_, status, err := c.do(ctx, addr, http.MethodPost, path, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isMissingRoute(status) {
			break
		}
	}
	return lastErr
}

// VerifyWifi reports whether the device is associated with the network it
// was given. Any failure, including a transport error, reports false: the
// device may be rebooting while it switches networks.
func (c *Client) VerifyWifi(ctx context.Context, addr Address) bool {
	body, _, err := c.do(ctx, addr, http.MethodGet, wifiVerifyPath, nil)
	if err != nil {
		return false
	}

	var resp wifiVerifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logging.Debug("Unparsable wifi verify response", zap.Error(err))
		return false
	}
	return resp.Connected
}

// SearchChannel resolves a query against the device's channel catalog. It
// returns nil without error when nothing matches.
func (c *Client) SearchChannel(ctx context.Context, addr Address, query string) (*ChannelCandidate, error) {
	path := channelSearchPath + "?q=" + url.QueryEscape(query)

	body, status, err := c.do(ctx, addr, http.MethodGet, path, nil)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 || string(bytes.TrimSpace(body)) == "null" {
		return nil, nil
	}

	var candidate ChannelCandidate
	if err := json.Unmarshal(body, &candidate); err != nil {
		return nil, NewParseError(addr, "failed to parse channel search response", err)
	}
	if candidate.ID == "" {
		return nil, nil
	}
	return &candidate, nil
}

// SubmitChannel sets the channel the device tracks.
func (c *Client) SubmitChannel(ctx context.Context, addr Address, id string) error {
	_, _, err := c.do(ctx, addr, http.MethodPost, channelPath, channelRequest{ChannelID: id})
	return err
}

// VerifyChannel reports whether the device's stored channel equals id. A
// 4xx answer is an explicit rejection and reads as false. A transport
// failure or a 5xx is returned as an error so it is not mistaken for a
// negative answer.
func (c *Client) VerifyChannel(ctx context.Context, addr Address, id string) (bool, error) {
	body, status, err := c.do(ctx, addr, http.MethodPost, channelVerifyPath, channelRequest{ChannelID: id})
	if status == http.StatusMethodNotAllowed {
		body, status, err = c.do(ctx, addr, http.MethodGet, channelVerifyPath+"?channelId="+url.QueryEscape(id), nil)
	}
	if status >= 400 && status < 500 {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var resp channelVerifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, NewParseError(addr, "failed to parse channel verify response", err)
	}
	return resp.Valid, nil
}

// getFirst GETs the first path the device serves.
func (c *Client) getFirst(ctx context.Context, addr Address, paths []string) ([]byte, error) {
	var lastErr error
	for _, path := range paths {
		body, status, err := c.do(ctx, addr, http.MethodGet, path, nil)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isMissingRoute(status) {
			break
		}
	}
	return nil, lastErr
}

// do performs one request. It returns the response status code alongside the
// error so callers can decide on fallbacks; status is 0 when no response
// arrived.
func (c *Client) do(ctx context.Context, addr Address, method, path string, payload any) ([]byte, int, error) {
	if addr.IsZero() {
		return nil, 0, NewValidationError("device address is not set")
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	target := addr.URL(path)
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, 0, NewNetworkError("failed to create request", addr, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		devErr := NewNetworkError(fmt.Sprintf("%s %s failed", method, stripQuery(path)), addr, err)
		logging.LogDeviceRequest(method, target, 0, time.Since(start), devErr)
		return nil, 0, devErr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		devErr := NewNetworkError("failed to read response body", addr, err)
		logging.LogDeviceRequest(method, target, resp.StatusCode, time.Since(start), devErr)
		return nil, resp.StatusCode, devErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("%s %s returned %d", method, stripQuery(path), resp.StatusCode)
		if detail := strings.TrimSpace(string(body)); detail != "" && len(detail) < 200 {
			msg += ": " + detail
		}
		devErr := NewHTTPError(addr, resp.StatusCode, msg)
		logging.LogDeviceRequest(method, target, resp.StatusCode, time.Since(start), devErr)
		return body, resp.StatusCode, devErr
	}

	logging.LogDeviceRequest(method, target, resp.StatusCode, time.Since(start), nil)
	return body, resp.StatusCode, nil
}

func isMissingRoute(status int) bool {
	return status == http.StatusNotFound || status == http.StatusMethodNotAllowed
}

func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
