package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(ts *httptest.Server, token string) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = ts.URL + "/api"
	cfg.Token = token
	return New(cfg)
}

func TestIsReachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/healthz" {
			_, _ = w.Write([]byte(`{"ok":true}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer ts.Close()

	assert.True(t, newTestClient(ts, "").IsReachable(context.Background()))

	ts.Close()
	assert.False(t, newTestClient(ts, "").IsReachable(context.Background()))
}

func TestCreateRide(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rides", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body CreateRideRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "5531999990000", body.Recipient)
		assert.Equal(t, "Rua A, 10", body.Origin)

		_, _ = w.Write([]byte(`{"ok":true,"request_id":"123"}`))
	}))
	defer ts.Close()

	id, err := newTestClient(ts, "tok").CreateRide(context.Background(), CreateRideRequest{
		Recipient:   "5531999990000",
		Origin:      "Rua A, 10",
		Destination: "Av. B, 20",
	})
	require.NoError(t, err)
	assert.Equal(t, "123", id)
}

func TestCreateRideDaemonError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"sem saldo"}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts, "").CreateRide(context.Background(), CreateRideRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sem saldo")
}

func TestRideStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rides/status", r.URL.Path)
		assert.Equal(t, "123", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{"request_id":"123","recipient":"5531999990000","attempts":7,"driver_assigned":true,"driver_name":"Carlos"}`))
	}))
	defer ts.Close()

	st, err := newTestClient(ts, "").RideStatus(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "123", st.RequestID)
	assert.Equal(t, 7, st.Attempts)
	assert.True(t, st.DriverAssigned)
	assert.Equal(t, "Carlos", st.DriverName)
}

func TestAllRideStatuses(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("all"))
		_, _ = w.Write([]byte(`[{"request_id":"1"},{"request_id":"2"}]`))
	}))
	defer ts.Close()

	sts, err := newTestClient(ts, "").AllRideStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, sts, 2)
	assert.Equal(t, "2", sts[1].RequestID)
}

func TestCancelRide(t *testing.T) {
	var path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "123", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	require.NoError(t, newTestClient(ts, "").CancelRide(context.Background(), "123"))
	assert.Equal(t, "/api/rides/cancel", path)
}

func TestStatusErrorWithoutJSONBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "plain failure", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := newTestClient(ts, "").RideStatus(context.Background(), "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
