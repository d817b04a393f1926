package ridewatch

import (
	"net/http"
	"time"

	cfg "github.com/rideline/ridewatch/internal/config"
	"github.com/rideline/ridewatch/internal/dispatch"
	"github.com/rideline/ridewatch/internal/history"
	"github.com/rideline/ridewatch/internal/history/factory"
	"github.com/rideline/ridewatch/internal/metrics"
	"github.com/rideline/ridewatch/internal/monitor"
	"github.com/rideline/ridewatch/internal/notify"
	"github.com/rideline/ridewatch/internal/ride"
	iapi "github.com/rideline/ridewatch/internal/server"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Request = ride.Request

type Status = monitor.Status

type Config = monitor.Config

type Deps = monitor.Deps

type Notifier = notify.Notifier

type HistorySink = history.Sink

// Manager is a thin facade over internal/monitor.Manager.
// It provides a stable public API for embedding.

type Manager struct{ inner *monitor.Manager }

func New(c Config, deps Deps) *Manager {
	return &Manager{inner: monitor.NewManager(c, deps)}
}

func (m *Manager) StartMonitor(requestID, recipient string, details Request, retryAllowed bool) error {
	return m.inner.StartMonitor(requestID, recipient, details, retryAllowed)
}
func (m *Manager) Snapshot(requestID string) (Status, error) { return m.inner.Snapshot(requestID) }
func (m *Manager) SnapshotAll() []Status                     { return m.inner.SnapshotAll() }
func (m *Manager) Count() int                                { return m.inner.Count() }
func (m *Manager) SetHistorySinks(sinks ...HistorySink)      { m.inner.SetHistorySinks(sinks...) }
func (m *Manager) Shutdown(wait time.Duration)               { m.inner.Shutdown(wait) }

// NewDispatchClient builds a client for the upstream ride-dispatch API. It
// satisfies both monitor.Deps roles (Stager, Creator).
func NewDispatchClient(c dispatch.Config) *dispatch.Client { return dispatch.New(c) }

type DispatchConfig = dispatch.Config

func LoadConfig(path string) (*cfg.FileConfig, error) {
	return cfg.Load(path)
}

// NewSinkFromDSN builds a history sink from a DSN string
// (postgres://, clickhouse://, sqlite:// or a plain file path).
func NewSinkFromDSN(dsn string) (HistorySink, error) {
	return factory.NewSinkFromDSN(dsn)
}

// NewHTTPServer starts an HTTP server exposing the daemon API using the given manager.
func NewHTTPServer(addr, basePath string, m *Manager, d iapi.Dispatcher, hub *notify.Hub, jwtSecret string) *http.Server {
	return iapi.NewServer(addr, iapi.NewRouter(m.inner, d, hub, basePath, jwtSecret))
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
