package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rideline/ridewatch/internal/ride"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(ts *httptest.Server) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = ts.URL
	cfg.BasicAuth = "Basic dGVzdDp0ZXN0"
	return New(cfg)
}

func TestStageTopLevelBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/EtapaSolicitacao", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("solicitacaoID"))
		assert.Equal(t, "Basic dGVzdDp0ZXN0", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"Etapa":2,"StatusSolicitacao":"Aguardando motorista","NomePrestador":"Carlos","Veiculo":"Fit","Placa":"ABC1D23"}`))
	}))
	defer ts.Close()

	snap, err := newTestClient(ts).Stage(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Stage)
	assert.Equal(t, "Aguardando motorista", snap.RawStatus)
	assert.Equal(t, "Carlos", snap.DriverName)
	assert.True(t, snap.HasDriverDetails())
}

func TestStageWrappedEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"EtapaSolicitacao":{"Etapa":3,"StatusSolicitacao":"Em viagem","EmViagem":true}}`))
	}))
	defer ts.Close()

	snap, err := newTestClient(ts).Stage(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Stage)
	assert.Equal(t, "Em viagem", snap.RawStatus)
	assert.True(t, snap.InProgress)
}

func TestStageNon2xxIsQueryError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := newTestClient(ts).Stage(context.Background(), "100")
	require.Error(t, err)
	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "100", qe.RequestID)
	assert.Contains(t, qe.Error(), "502")
}

func TestStageNetworkFailureIsQueryError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	ts.Close() // refuse connections

	_, err := newTestClient(ts).Stage(context.Background(), "100")
	var qe *QueryError
	require.True(t, errors.As(err, &qe))
}

func TestCreate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Solicitacao", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"SolicitacaoID":12345,"Mensagem":"ok"}`))
	}))
	defer ts.Close()

	id, err := newTestClient(ts).Create(context.Background(), ride.Request{
		Origin:      "Rua A, 10",
		Destination: "Av. B, 20",
	})
	require.NoError(t, err)
	assert.Equal(t, "12345", id)
}

func TestCreateStringID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"SolicitacaoID":"12345"}`))
	}))
	defer ts.Close()

	id, err := newTestClient(ts).Create(context.Background(), ride.Request{Origin: "a", Destination: "b"})
	require.NoError(t, err)
	assert.Equal(t, "12345", id)
}

func TestCreateUpstreamRejection(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sem saldo", http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	_, err := newTestClient(ts).Create(context.Background(), ride.Request{Origin: "a", Destination: "b"})
	require.Error(t, err)
	assert.True(t, IsCreationError(err))
	assert.Contains(t, err.Error(), "sem saldo")
}

func TestCreateMissingID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Mensagem":"ok"}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts).Create(context.Background(), ride.Request{Origin: "a", Destination: "b"})
	assert.True(t, IsCreationError(err))
}

func TestCancel(t *testing.T) {
	var called bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "/CancelarSolicitacao", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("solicitacaoID"))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	require.NoError(t, newTestClient(ts).Cancel(context.Background(), "100"))
	assert.True(t, called)
}

func TestCancelFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "não encontrada", http.StatusNotFound)
	}))
	defer ts.Close()

	err := newTestClient(ts).Cancel(context.Background(), "100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
