package dispatch

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

	"github.com/rideline/ridewatch/internal/ride"
)

// Client talks to the MoveDriver dispatch API. It is the only component that
// knows the upstream wire format; monitors consume it through the Stager and
// Creator interfaces below.
type Client struct {
	baseURL   string
	basicAuth string
	client    *http.Client
	logger    *slog.Logger
}

// Config holds dispatch API connection settings.
type Config struct {
	BaseURL   string        // e.g. https://api.movedriver.example/v1/
	BasicAuth string        // full Authorization header value ("Basic ...")
	Timeout   time.Duration // per-request timeout
	Logger    *slog.Logger
}

// DefaultConfig returns dispatch client defaults matching the reference bot.
func DefaultConfig() Config {
	return Config{Timeout: 15 * time.Second}
}

func New(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimSuffix(config.BaseURL, "/") + "/",
		basicAuth: config.BasicAuth,
		client:    &http.Client{Timeout: config.Timeout},
		logger:    config.Logger,
	}
}

// Stager queries the current stage of one request.
type Stager interface {
	Stage(ctx context.Context, requestID string) (ride.StageSnapshot, error)
}

// Creator submits a new trip request and returns its id.
type Creator interface {
	Create(ctx context.Context, req ride.Request) (string, error)
}

// stageEnvelope mirrors the upstream response; the snapshot may arrive
// wrapped in an EtapaSolicitacao object or as the top-level body.
type stageEnvelope struct {
	Stage *ride.StageSnapshot `json:"EtapaSolicitacao"`
	ride.StageSnapshot
}

// Stage fetches the EtapaSolicitacao for a request. Any transport failure or
// non-2xx response is returned as a *QueryError; callers treat all query
// failures identically.
func (c *Client) Stage(ctx context.Context, requestID string) (ride.StageSnapshot, error) {
	u := c.baseURL + "EtapaSolicitacao?solicitacaoID=" + url.QueryEscape(requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ride.StageSnapshot{}, &QueryError{RequestID: requestID, Err: err}
	}
	req.Header.Set("Authorization", c.basicAuth)

	resp, err := c.client.Do(req)
	if err != nil {
		return ride.StageSnapshot{}, &QueryError{RequestID: requestID, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ride.StageSnapshot{}, &QueryError{
			RequestID: requestID,
			Err:       fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var env stageEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return ride.StageSnapshot{}, &QueryError{RequestID: requestID, Err: fmt.Errorf("decode: %w", err)}
	}
	if env.Stage != nil {
		return *env.Stage, nil
	}
	return env.StageSnapshot, nil
}

type createResponse struct {
	RequestID json.Number `json:"SolicitacaoID"`
	Message   string      `json:"Mensagem"`
}

// Create submits a new trip request with the same origin, destination, fare
// and note. Failures are returned as *CreationError carrying the upstream
// reason when one is available.
func (c *Client) Create(ctx context.Context, r ride.Request) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", &CreationError{Reason: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"Solicitacao", bytes.NewReader(data))
	if err != nil {
		return "", &CreationError{Reason: err.Error()}
	}
	req.Header.Set("Authorization", c.basicAuth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &CreationError{Reason: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := strings.TrimSpace(string(body))
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", &CreationError{Reason: reason}
	}

	var cr createResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", &CreationError{Reason: fmt.Sprintf("decode: %v", err)}
	}
	id := cr.RequestID.String()
	if id == "" {
		return "", &CreationError{Reason: "resposta sem SolicitacaoID"}
	}
	c.logger.Info("ride request created", "id", id, "origin", r.Origin, "destination", r.Destination)
	return id, nil
}

// Cancel asks the platform to cancel a request. Monitors never call this;
// it serves the operator-initiated cancel endpoint, and the owning monitor
// picks up the resulting terminal status on its next poll.
func (c *Client) Cancel(ctx context.Context, requestID string) error {
	u := c.baseURL + "CancelarSolicitacao?solicitacaoID=" + url.QueryEscape(requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.basicAuth)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("cancel %s: status %d: %s", requestID, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	c.logger.Info("ride request canceled", "id", requestID)
	return nil
}
