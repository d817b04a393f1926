package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rideline/ridewatch/internal/dispatch"
	"github.com/rideline/ridewatch/internal/history"
	"github.com/rideline/ridewatch/internal/metrics"
	"github.com/rideline/ridewatch/internal/notify"
	"github.com/rideline/ridewatch/internal/registry"
	"github.com/rideline/ridewatch/internal/ride"
)

// Manager supervises one monitor per active ride request. It owns the shared
// driver-trip registry, spawns each monitor's polling goroutine, and reacts
// to tick dispositions, including spawning the retry child with retries
// permanently disabled.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry
	closed  bool

	cfg       Config
	stager    dispatch.Stager
	creator   dispatch.Creator
	notifier  notify.Notifier
	trips     *registry.DriverTrips
	histSinks []history.Sink
	logger    *slog.Logger
	wg        sync.WaitGroup
}

type entry struct {
	m      *Monitor
	cancel context.CancelFunc
}

// Deps bundles the collaborators a Manager needs.
type Deps struct {
	Stager   dispatch.Stager
	Creator  dispatch.Creator
	Notifier notify.Notifier
	Logger   *slog.Logger
}

func NewManager(cfg Config, deps Deps) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		entries:  make(map[string]*entry),
		cfg:      cfg.Normalize(),
		stager:   deps.Stager,
		creator:  deps.Creator,
		notifier: deps.Notifier,
		trips:    registry.New(),
		logger:   logger,
	}
}

// SetHistorySinks configures external audit sinks (SQL, ClickHouse, ...).
// Passing no sinks clears the list.
func (mg *Manager) SetHistorySinks(sinks ...history.Sink) {
	mg.mu.Lock()
	mg.histSinks = append([]history.Sink(nil), sinks...)
	mg.mu.Unlock()
}

// Trips exposes the shared registry, mainly for tests and the status API.
func (mg *Manager) Trips() *registry.DriverTrips { return mg.trips }

// StartMonitor begins monitoring a newly created ride request. It is the
// single entry point the transport layer calls once per creation; the retry
// child is started internally with retryAllowed=false.
func (mg *Manager) StartMonitor(requestID, recipient string, details ride.Request, retryAllowed bool) error {
	mg.mu.Lock()
	if mg.closed {
		mg.mu.Unlock()
		return fmt.Errorf("monitor manager shutting down")
	}
	if _, ok := mg.entries[requestID]; ok {
		mg.mu.Unlock()
		return fmt.Errorf("request %s is already monitored", requestID)
	}

	m := newMonitor(requestID, recipient, details, retryAllowed,
		mg.cfg, mg.stager, mg.creator, mg.notifier, mg.trips,
		mg.recorder(requestID, recipient, details), mg.logger)
	ctx, cancel := context.WithCancel(context.Background())
	mg.entries[requestID] = &entry{m: m, cancel: cancel}
	n := len(mg.entries)
	mg.mu.Unlock()

	metrics.SetActiveMonitors(n)
	mg.recordEvent(requestID, recipient, details, history.EventCreated, "", "")
	mg.logger.Info("monitoring started", "request", requestID, "recipient", recipient, "retry_allowed", retryAllowed)

	mg.wg.Add(1)
	go mg.run(ctx, m)
	return nil
}

// run drives one monitor at the configured cadence. Ticks are serialized by
// construction: the next tick cannot start before the previous one, and any
// ride creation nested inside it, has returned.
func (mg *Manager) run(ctx context.Context, m *Monitor) {
	defer mg.wg.Done()
	ticker := time.NewTicker(mg.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mg.remove(m.requestID)
			return
		case <-ticker.C:
			res := m.tick(ctx)
			switch res.disposition {
			case Continue:
				continue
			case Stop:
				mg.finish(m, res)
				return
			case StopAndSpawn:
				mg.finish(m, res)
				if err := mg.StartMonitor(res.childID, m.recipient, m.details, false); err != nil {
					mg.logger.Error("failed to start retry monitor", "request", res.childID, "error", err)
				}
				return
			}
		}
	}
}

func (mg *Manager) finish(m *Monitor, res tickResult) {
	mg.remove(m.requestID)
	if res.outcome != "" {
		metrics.IncOutcome(string(res.outcome))
		st := m.Snapshot()
		mg.recordEvent(m.requestID, m.recipient, m.details, res.outcome, st.DriverName, st.LastStatus)
	}
	mg.logger.Info("monitoring stopped", "request", m.requestID, "outcome", string(res.outcome))
}

func (mg *Manager) remove(requestID string) {
	mg.mu.Lock()
	delete(mg.entries, requestID)
	n := len(mg.entries)
	mg.mu.Unlock()
	metrics.SetActiveMonitors(n)
}

// Status is the read-only view of one monitor exposed over the HTTP API.
type Status struct {
	RequestID      string    `json:"request_id"`
	Recipient      string    `json:"recipient"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	Attempts       int       `json:"attempts"`
	LastStatus     string    `json:"last_status"`
	DriverAssigned bool      `json:"driver_assigned"`
	DriverName     string    `json:"driver_name,omitempty"`
	AssignedAt     time.Time `json:"assigned_at,omitzero"`
	RetryAllowed   bool      `json:"retry_allowed"`
}

// Snapshot returns the status of one monitored request.
func (mg *Manager) Snapshot(requestID string) (Status, error) {
	mg.mu.RLock()
	e := mg.entries[requestID]
	mg.mu.RUnlock()
	if e == nil {
		return Status{}, fmt.Errorf("unknown request: %s", requestID)
	}
	return statusOf(e.m), nil
}

// SnapshotAll returns the status of every active monitor.
func (mg *Manager) SnapshotAll() []Status {
	mg.mu.RLock()
	ms := make([]*Monitor, 0, len(mg.entries))
	for _, e := range mg.entries {
		ms = append(ms, e.m)
	}
	mg.mu.RUnlock()
	out := make([]Status, 0, len(ms))
	for _, m := range ms {
		out = append(out, statusOf(m))
	}
	return out
}

func statusOf(m *Monitor) Status {
	st := m.Snapshot()
	return Status{
		RequestID:      m.requestID,
		Recipient:      m.recipient,
		Origin:         m.details.Origin,
		Destination:    m.details.Destination,
		Attempts:       st.Attempts,
		LastStatus:     st.LastStatus,
		DriverAssigned: st.DriverAssigned,
		DriverName:     st.DriverName,
		AssignedAt:     st.DriverAssignedAt,
		RetryAllowed:   m.retryAllowed,
	}
}

// Count returns the number of active monitors.
func (mg *Manager) Count() int {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	return len(mg.entries)
}

// Shutdown cancels every monitor and waits for their goroutines, bounded by
// the given grace period.
func (mg *Manager) Shutdown(wait time.Duration) {
	mg.mu.Lock()
	mg.closed = true
	cancels := make([]context.CancelFunc, 0, len(mg.entries))
	for _, e := range mg.entries {
		cancels = append(cancels, e.cancel)
	}
	mg.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		mg.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(wait):
		mg.logger.Warn("shutdown wait elapsed before all monitors stopped")
	}
}

// recorder binds request identity into the per-event history callback given
// to a monitor.
func (mg *Manager) recorder(requestID, recipient string, details ride.Request) func(history.EventType, string, string) {
	return func(evt history.EventType, driver, rawStatus string) {
		mg.recordEvent(requestID, recipient, details, evt, driver, rawStatus)
	}
}

func (mg *Manager) recordEvent(requestID, recipient string, details ride.Request, evt history.EventType, driver, rawStatus string) {
	mg.mu.RLock()
	sinks := append([]history.Sink(nil), mg.histSinks...)
	mg.mu.RUnlock()
	if len(sinks) == 0 {
		return
	}
	e := history.Event{
		Type:       evt,
		OccurredAt: time.Now().UTC(),
		Record: history.Record{
			RequestID: requestID,
			Recipient: recipient,
			Driver:    driver,
			RawStatus: rawStatus,
			Origin:    details.Origin,
			Dest:      details.Destination,
		},
	}
	for _, s := range sinks {
		if err := s.Send(context.Background(), e); err != nil {
			mg.logger.Warn("history sink send failed", "request", requestID, "error", err)
		}
	}
}
