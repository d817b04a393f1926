package monitor

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/rideline/ridewatch/internal/dispatch"
	"github.com/rideline/ridewatch/internal/history"
	"github.com/rideline/ridewatch/internal/metrics"
	"github.com/rideline/ridewatch/internal/notify"
	"github.com/rideline/ridewatch/internal/registry"
	"github.com/rideline/ridewatch/internal/ride"
	"github.com/rideline/ridewatch/internal/status"
)

// Config holds the polling cadence and thresholds. The zero value is not
// usable; call Normalize or start from DefaultConfig.
type Config struct {
	PollInterval time.Duration // cadence between ticks
	MaxWindow    time.Duration // total monitoring window, enforced by attempt count
	OverdueAfter time.Duration // advisory threshold after driver assignment
}

// DefaultConfig returns the reference cadence: 20 s polls, 6 h window,
// 30 min overdue advisory.
func DefaultConfig() Config {
	return Config{
		PollInterval: 20 * time.Second,
		MaxWindow:    6 * time.Hour,
		OverdueAfter: 30 * time.Minute,
	}
}

// Normalize fills unset fields with the reference defaults.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxWindow <= 0 {
		c.MaxWindow = d.MaxWindow
	}
	if c.OverdueAfter <= 0 {
		c.OverdueAfter = d.OverdueAfter
	}
	return c
}

// MaxAttempts converts the wall-clock window into an attempt ceiling.
// The ceiling counts polls, not elapsed time, so slow ticks extend the
// window rather than cutting it short.
func (c Config) MaxAttempts() int {
	return int(math.Ceil(float64(c.MaxWindow) / float64(c.PollInterval)))
}

// Disposition tells the supervisor what to do after a tick.
type Disposition int

const (
	Continue Disposition = iota
	Stop
	StopAndSpawn
)

type tickResult struct {
	disposition Disposition
	childID     string // set when disposition == StopAndSpawn
	outcome     history.EventType
}

// State is the mutable per-monitor bookkeeping. It is owned by the monitor's
// run goroutine; Snapshot copies it under the lock for readers.
//
// Each Sent* flag latches: set at most once, never cleared. They are the
// only guard against duplicate notices per category.
type State struct {
	Attempts         int
	LastStatus       string // normalized form of the last observed raw status
	DriverAssigned   bool
	DriverAssignedAt time.Time
	DriverName       string

	SentDriverInfo     bool
	SentNoDriver       bool
	SentDriverCanceled bool
	SentCanceled       bool
	SentOverdue        bool
	SentInProgress     bool
	SentFinished       bool
}

// Monitor polls one ride request and relays every meaningful change to the
// operator. A monitor is single-writer: only its own run loop mutates state,
// and ticks never overlap.
type Monitor struct {
	requestID    string
	recipient    string
	details      ride.Request
	retryAllowed bool

	cfg      Config
	stager   dispatch.Stager
	creator  dispatch.Creator
	notifier notify.Notifier
	trips    *registry.DriverTrips
	record   func(history.EventType, string, string)
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

func newMonitor(
	requestID, recipient string,
	details ride.Request,
	retryAllowed bool,
	cfg Config,
	stager dispatch.Stager,
	creator dispatch.Creator,
	notifier notify.Notifier,
	trips *registry.DriverTrips,
	record func(history.EventType, string, string),
	logger *slog.Logger,
) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if record == nil {
		record = func(history.EventType, string, string) {}
	}
	return &Monitor{
		requestID:    requestID,
		recipient:    recipient,
		details:      details,
		retryAllowed: retryAllowed,
		cfg:          cfg,
		stager:       stager,
		creator:      creator,
		notifier:     notifier,
		trips:        trips,
		record:       record,
		logger:       logger.With("request", requestID),
	}
}

// Snapshot returns a copy of the monitor state for API readers.
func (m *Monitor) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// deliver sends a notice and swallows delivery errors; a failed delivery
// must never stop the monitor or unlatch a flag.
func (m *Monitor) deliver(ctx context.Context, category, text string) {
	if err := m.notifier.Send(ctx, m.recipient, text); err != nil {
		m.logger.Warn("notice delivery failed", "category", category, "error", err)
	}
	metrics.IncNotice(category)
}

func (m *Monitor) deliverWithCancelButton(ctx context.Context, category, text string) {
	var err error
	if bn, ok := m.notifier.(notify.ButtonNotifier); ok {
		err = bn.SendWithCancelButton(ctx, m.recipient, m.requestID, text)
	} else {
		err = m.notifier.Send(ctx, m.recipient, text)
	}
	if err != nil {
		m.logger.Warn("notice delivery failed", "category", category, "error", err)
	}
	metrics.IncNotice(category)
}

// tick performs one poll. It runs on the monitor's own goroutine only, so
// reads and writes of m.state need the lock solely for Snapshot readers.
func (m *Monitor) tick(ctx context.Context) tickResult {
	m.mu.Lock()
	m.state.Attempts++
	m.mu.Unlock()
	metrics.IncPoll(m.requestID)

	snap, err := m.stager.Stage(ctx, m.requestID)
	if err != nil {
		// A failed poll spends an attempt but changes nothing else; the
		// next tick retries implicitly.
		metrics.IncPollFailure(m.requestID)
		m.logger.Warn("status query failed", "error", err)
		return m.ceilingCheck(ctx)
	}

	raw := status.Normalize(snap.RawStatus)
	cat := status.Classify(snap)
	m.logger.Debug("poll", "status", raw, "category", cat.String(), "stage", snap.Stage)

	m.genericChangeNotice(ctx, raw, snap)
	m.driverAssignedTransition(ctx, snap)
	m.inProgressTransition(ctx, cat, snap)

	if res, terminal := m.terminalTransition(ctx, cat, snap); terminal {
		return res
	}

	m.overdueCheck(ctx, raw, snap)
	return m.ceilingCheck(ctx)
}

// genericChangeNotice emits the plain "status atualizado" notice on any
// status change whose phrase has no dedicated notification. The last
// observed status always advances on change, notice or not.
func (m *Monitor) genericChangeNotice(ctx context.Context, raw string, snap ride.StageSnapshot) {
	m.mu.Lock()
	changed := raw != "" && raw != m.state.LastStatus
	if changed {
		m.state.LastStatus = raw
	}
	m.mu.Unlock()
	if changed && !status.IsReserved(raw) {
		m.deliver(ctx, "status_updated", msgStatusUpdated(m.requestID, snap.RawStatus, m.details))
	}
}

// driverAssignedTransition latches the assignment flags. It keys off the
// snapshot, not the winning category: a first poll that already reads
// "em viagem" or "cancelado pelo motorista" with full driver details still
// counts as an assignment, so the rich accepted notice and the later
// transitions that require DriverAssigned are not skipped.
func (m *Monitor) driverAssignedTransition(ctx context.Context, snap ride.StageSnapshot) {
	if !status.IndicatesAssignment(snap) {
		return
	}
	m.mu.Lock()
	if m.state.DriverAssigned {
		if snap.DriverName != "" {
			m.state.DriverName = snap.DriverName
		}
		m.mu.Unlock()
		return
	}
	m.state.DriverAssigned = true
	if m.state.DriverAssignedAt.IsZero() {
		m.state.DriverAssignedAt = time.Now()
	}
	if snap.DriverName != "" {
		m.state.DriverName = snap.DriverName
	}
	sendInfo := !m.state.SentDriverInfo
	m.state.SentDriverInfo = true
	m.mu.Unlock()

	if sendInfo {
		m.deliverWithCancelButton(ctx, "ride_accepted", msgRideAccepted(m.requestID, snap, m.details))
		m.record(history.EventAssigned, snap.DriverName, snap.RawStatus)
	}

	// One-shot queue advisory: fires only inside this once-only assignment
	// block, when the driver already has a different trip underway.
	if snap.DriverName != "" {
		others := m.trips.ActiveOthersFor(snap.DriverName, m.requestID)
		if len(others) > 0 {
			m.deliver(ctx, "next_trip", msgNextTrip(m.requestID, snap.DriverName, others[0], m.details))
		}
	}
}

func (m *Monitor) inProgressTransition(ctx context.Context, cat status.Category, snap ride.StageSnapshot) {
	m.mu.Lock()
	fire := cat == status.InProgress && m.state.DriverAssigned && !m.state.SentInProgress
	if fire {
		m.state.SentInProgress = true
	}
	m.mu.Unlock()
	if !fire {
		return
	}
	m.trips.AddTrip(snap.DriverName, m.requestID)
	m.deliver(ctx, "in_progress", msgInProgress(m.requestID, snap, m.details))
	m.record(history.EventInProgress, snap.DriverName, snap.RawStatus)
}

func (m *Monitor) terminalTransition(ctx context.Context, cat status.Category, snap ride.StageSnapshot) (tickResult, bool) {
	m.mu.Lock()
	st := m.state
	m.mu.Unlock()

	// Registry cleanup uses the snapshot's driver when present and the last
	// known driver otherwise; terminal payloads do not always repeat it.
	driver := snap.DriverName
	if driver == "" {
		driver = st.DriverName
	}

	switch {
	case cat == status.NoDriverFound && !st.DriverAssigned && !st.SentNoDriver:
		return m.handleNoDriver(ctx, snap), true

	case cat == status.CanceledByDriver && st.DriverAssigned && !st.SentDriverCanceled:
		m.setFlag(func(s *State) { s.SentDriverCanceled = true })
		m.trips.RemoveTrip(driver, m.requestID)
		m.deliver(ctx, "driver_canceled", msgDriverCanceled(m.requestID, snap, m.details))
		return tickResult{disposition: Stop, outcome: history.EventCanceled}, true

	case cat == status.CanceledOther && !st.SentCanceled:
		m.setFlag(func(s *State) { s.SentCanceled = true })
		m.trips.RemoveTrip(driver, m.requestID)
		m.deliver(ctx, "canceled", msgCanceled(m.requestID, snap.RawStatus, m.details))
		return tickResult{disposition: Stop, outcome: history.EventCanceled}, true

	case (cat == status.Finished || snap.Finished) && !st.SentFinished:
		m.setFlag(func(s *State) { s.SentFinished = true })
		m.trips.RemoveTrip(driver, m.requestID)
		m.deliver(ctx, "finished", msgFinished(m.requestID, snap.RawStatus, m.details))
		return tickResult{disposition: Stop, outcome: history.EventFinished}, true
	}
	return tickResult{}, false
}

// handleNoDriver runs the bounded retry protocol. A parent monitor
// re-submits the same ride once; the child it spawns never retries, so the
// chain depth is capped at one.
func (m *Monitor) handleNoDriver(ctx context.Context, snap ride.StageSnapshot) tickResult {
	m.setFlag(func(s *State) { s.SentNoDriver = true })

	if !m.retryAllowed {
		m.deliver(ctx, "no_driver_again", msgNoDriverAgain(m.requestID, snap.RawStatus, m.details))
		return tickResult{disposition: Stop, outcome: history.EventNoDriver}
	}

	m.deliver(ctx, "no_driver_retrying", msgNoDriverRetrying(m.requestID, snap.RawStatus, m.details))

	newID, err := m.creator.Create(ctx, m.details)
	if err != nil {
		m.logger.Error("automatic re-submission failed", "error", err)
		m.deliver(ctx, "retry_failed", msgRetryCreationFailed(err.Error()))
		return tickResult{disposition: Stop, outcome: history.EventNoDriver}
	}

	metrics.IncRetry()
	m.deliver(ctx, "retry_created", msgNewRequestCreated(newID, m.details))
	return tickResult{disposition: StopAndSpawn, childID: newID, outcome: history.EventNoDriver}
}

func (m *Monitor) overdueCheck(ctx context.Context, raw string, snap ride.StageSnapshot) {
	m.mu.Lock()
	st := m.state
	m.mu.Unlock()

	if !st.DriverAssigned || st.DriverAssignedAt.IsZero() || st.SentOverdue {
		return
	}
	if snap.Finished || raw == "viagem finalizada" || status.IsAnyCancellation(raw) {
		return
	}
	if time.Since(st.DriverAssignedAt) <= m.cfg.OverdueAfter {
		return
	}
	m.setFlag(func(s *State) { s.SentOverdue = true })
	minutes := int(m.cfg.OverdueAfter / time.Minute)
	m.deliver(ctx, "overdue", msgOverdue(m.requestID, snap.RawStatus, minutes, m.details))
}

func (m *Monitor) ceilingCheck(ctx context.Context) tickResult {
	m.mu.Lock()
	attempts := m.state.Attempts
	m.mu.Unlock()
	if attempts < m.cfg.MaxAttempts() {
		return tickResult{disposition: Continue}
	}
	m.logger.Info("monitoring window exhausted", "attempts", attempts)
	maxMinutes := int(m.cfg.MaxWindow / time.Minute)
	m.deliver(ctx, "monitoring_ended", msgMonitoringEnded(m.requestID, maxMinutes))
	return tickResult{disposition: Stop, outcome: history.EventExpired}
}

func (m *Monitor) setFlag(f func(*State)) {
	m.mu.Lock()
	f(&m.state)
	m.mu.Unlock()
}
