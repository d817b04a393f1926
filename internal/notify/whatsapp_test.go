package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppSendText(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	wa := NewWhatsApp(WhatsAppConfig{BaseURL: ts.URL, Token: "tok"})
	require.NoError(t, wa.Send(context.Background(), "5531999990000", "olá"))

	assert.Equal(t, "5531999990000", got["to"])
	assert.Equal(t, "text", got["type"])
	text := got["text"].(map[string]any)
	assert.Equal(t, "olá", text["body"])
}

func TestWhatsAppSendWithCancelButton(t *testing.T) {
	var got waInteractiveMessage
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	wa := NewWhatsApp(WhatsAppConfig{BaseURL: ts.URL, Token: "tok"})
	require.NoError(t, wa.SendWithCancelButton(context.Background(), "5531999990000", "100", "CORRIDA ACEITA"))

	assert.Equal(t, "interactive", got.Type)
	assert.Equal(t, "button", got.Interactive.Type)
	assert.Equal(t, "CORRIDA ACEITA", got.Interactive.Body.Text)
	require.Len(t, got.Interactive.Action.Buttons, 1)
	btn := got.Interactive.Action.Buttons[0]
	assert.Equal(t, "cancelar:100", btn.Reply.ID)
	assert.Equal(t, "Cancelar corrida", btn.Reply.Title)
}

func TestWhatsAppGatewayError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid recipient", http.StatusBadRequest)
	}))
	defer ts.Close()

	wa := NewWhatsApp(WhatsAppConfig{BaseURL: ts.URL, Token: "tok"})
	err := wa.Send(context.Background(), "bad", "olá")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
