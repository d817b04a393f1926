package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WhatsApp delivers notices through the WhatsApp gateway used by the
// reference bot. Messages are plain text; the accepted-ride notice may carry
// an interactive cancel button whose payload encodes the request id.
type WhatsApp struct {
	baseURL string
	token   string
	client  *http.Client
}

// WhatsAppConfig holds gateway connection settings.
type WhatsAppConfig struct {
	BaseURL string        // gateway message endpoint base
	Token   string        // bearer token
	Timeout time.Duration // per-request timeout, default 10s
}

func NewWhatsApp(cfg WhatsAppConfig) *WhatsApp {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WhatsApp{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type waTextMessage struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

type waInteractiveMessage struct {
	To          string `json:"to"`
	Type        string `json:"type"`
	Interactive struct {
		Type string `json:"type"`
		Body struct {
			Text string `json:"text"`
		} `json:"body"`
		Action struct {
			Buttons []waButton `json:"buttons"`
		} `json:"action"`
	} `json:"interactive"`
}

type waButton struct {
	Type  string `json:"type"`
	Reply struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"reply"`
}

func (w *WhatsApp) Send(ctx context.Context, recipient, text string) error {
	msg := waTextMessage{To: recipient, Type: "text"}
	msg.Text.Body = text
	return w.post(ctx, msg)
}

// SendWithCancelButton sends text with a "Cancelar corrida" reply button whose
// id carries the request to cancel, matching the reference bot's affordance.
func (w *WhatsApp) SendWithCancelButton(ctx context.Context, recipient, requestID, text string) error {
	msg := waInteractiveMessage{To: recipient, Type: "interactive"}
	msg.Interactive.Type = "button"
	msg.Interactive.Body.Text = text
	btn := waButton{Type: "reply"}
	btn.Reply.ID = "cancelar:" + requestID
	btn.Reply.Title = "Cancelar corrida"
	msg.Interactive.Action.Buttons = []waButton{btn}
	return w.post(ctx, msg)
}

func (w *WhatsApp) post(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
