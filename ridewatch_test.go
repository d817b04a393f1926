package ridewatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rideline/ridewatch/internal/ride"
)

type stubStager struct{ snap ride.StageSnapshot }

func (s stubStager) Stage(_ context.Context, _ string) (ride.StageSnapshot, error) {
	return s.snap, nil
}

type stubCreator struct{}

func (stubCreator) Create(_ context.Context, _ ride.Request) (string, error) {
	return "", errors.New("not implemented")
}

type stubNotifier struct{}

func (stubNotifier) Send(_ context.Context, _, _ string) error { return nil }

func TestManagerFacadeStartSnapshotShutdown(t *testing.T) {
	m := New(Config{}, Deps{
		Stager:   stubStager{snap: ride.StageSnapshot{RawStatus: "aguardando motorista aceitar"}},
		Creator:  stubCreator{},
		Notifier: stubNotifier{},
	})
	req := Request{Origin: "Rua A, 10", Destination: "Av. B, 20"}
	if err := m.StartMonitor("100", "5531999990000", req, true); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.Count() != 1 {
		t.Fatalf("expected 1 active monitor, got %d", m.Count())
	}
	st, err := m.Snapshot("100")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if st.RequestID != "100" || st.Recipient != "5531999990000" {
		t.Fatalf("unexpected snapshot: %+v", st)
	}
	if len(m.SnapshotAll()) != 1 {
		t.Fatalf("expected 1 snapshot")
	}
	m.Shutdown(time.Second)
	if m.Count() != 0 {
		t.Fatalf("expected 0 monitors after shutdown, got %d", m.Count())
	}
}

func TestConfigHelpers(t *testing.T) {
	dir := t.TempDir()
	cfg := `
[dispatch]
base_url = "https://dispatch.example.com/api"
basic_auth = "user:pass"

[monitor]
poll_interval = "10s"
max_window = "1h"
`
	p := filepath.Join(dir, "cfg.toml")
	if err := os.WriteFile(p, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	config, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.Dispatch.BaseURL != "https://dispatch.example.com/api" {
		t.Fatalf("dispatch base url: %q", config.Dispatch.BaseURL)
	}
	mc := config.MonitorConfig()
	if mc.PollInterval != 10*time.Second {
		t.Fatalf("poll interval: %v", mc.PollInterval)
	}
	if mc.MaxAttempts() != 360 {
		t.Fatalf("max attempts: %d", mc.MaxAttempts())
	}
}

func TestNewSinkFromDSN(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSinkFromDSN("sqlite://" + filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("NewSinkFromDSN: %v", err)
	}
	if sink == nil {
		t.Fatal("nil sink")
	}
	if _, err := NewSinkFromDSN("redis://localhost"); err == nil {
		t.Fatal("expected error for unsupported DSN")
	}
	if _, err := NewSinkFromDSN("redis://localhost"); err != nil && !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMetricsHelpers(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := RegisterMetrics(reg); err != nil {
		t.Fatalf("RegisterMetrics: %v", err)
	}
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("RegisterMetricsDefault: %v", err)
	}
}
