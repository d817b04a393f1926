package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a running ridewatch daemon over its HTTP API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string        // daemon API base, e.g. http://localhost:8080/api
	Token   string        // optional bearer token for mutating endpoints
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 10 * time.Second,
	}
}

func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080/api"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		token:   config.Token,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// CreateRideRequest mirrors the daemon's create endpoint body.
type CreateRideRequest struct {
	Recipient   string `json:"recipient"`
	Origin      string `json:"origem"`
	Destination string `json:"destino"`
	Fare        string `json:"valor,omitempty"`
	Note        string `json:"observacao,omitempty"`
}

type createRideResponse struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"request_id"`
}

// CreateRide submits a ride and returns the new request id; a monitor is
// started daemon-side.
func (c *Client) CreateRide(ctx context.Context, req CreateRideRequest) (string, error) {
	c.logger.Debug("creating ride", "origin", req.Origin, "destination", req.Destination)
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	var out createRideResponse
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/rides", data, &out); err != nil {
		return "", err
	}
	return out.RequestID, nil
}

// CancelRide asks the daemon to cancel a request upstream.
func (c *Client) CancelRide(ctx context.Context, requestID string) error {
	u := c.baseURL + "/rides/cancel?id=" + url.QueryEscape(requestID)
	return c.doJSON(ctx, http.MethodPost, u, nil, nil)
}

// MonitorStatus mirrors the daemon's status payload.
type MonitorStatus struct {
	RequestID      string    `json:"request_id"`
	Recipient      string    `json:"recipient"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	Attempts       int       `json:"attempts"`
	LastStatus     string    `json:"last_status"`
	DriverAssigned bool      `json:"driver_assigned"`
	DriverName     string    `json:"driver_name,omitempty"`
	AssignedAt     time.Time `json:"assigned_at"`
	RetryAllowed   bool      `json:"retry_allowed"`
}

// RideStatus fetches the monitor snapshot for one request id.
func (c *Client) RideStatus(ctx context.Context, requestID string) (MonitorStatus, error) {
	var st MonitorStatus
	u := c.baseURL + "/rides/status?id=" + url.QueryEscape(requestID)
	err := c.doJSON(ctx, http.MethodGet, u, nil, &st)
	return st, err
}

// AllRideStatuses fetches snapshots for every active monitor.
func (c *Client) AllRideStatuses(ctx context.Context) ([]MonitorStatus, error) {
	var sts []MonitorStatus
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/rides/status?all=true", nil, &sts)
	return sts, err
}

type errorResp struct {
	Error string `json:"error"`
}

func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er errorResp
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			return fmt.Errorf("daemon: %s", er.Error)
		}
		return fmt.Errorf("daemon: status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
