package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(typ EventType) Event {
	return Event{
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		Record: Record{
			RequestID: "100",
			Recipient: "5531999990000",
			Driver:    "Carlos",
			RawStatus: "em viagem",
			Origin:    "Rua A, 10",
			Dest:      "Av. B, 20",
		},
	}
}

func TestSQLSinkSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	sink, err := NewSQLSinkFromDSN("sqlite://" + path)
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	require.NoError(t, sink.Send(ctx, testEvent(EventCreated)))
	require.NoError(t, sink.Send(ctx, testEvent(EventInProgress)))
	require.NoError(t, sink.Send(ctx, testEvent(EventFinished)))

	var n int
	require.NoError(t, sink.db.QueryRow(`SELECT COUNT(*) FROM ride_history WHERE request_id = ?`, "100").Scan(&n))
	assert.Equal(t, 3, n)

	var event, driver, origin string
	require.NoError(t, sink.db.QueryRow(
		`SELECT event, driver, origin FROM ride_history ORDER BY id LIMIT 1`).Scan(&event, &driver, &origin))
	assert.Equal(t, "created", event)
	assert.Equal(t, "Carlos", driver)
	assert.Equal(t, "Rua A, 10", origin)
}

func TestSQLSinkPlainPathDefaultsToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	sink, err := NewSQLSinkFromDSN(path)
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()
	assert.Equal(t, "sqlite", sink.dialect)

	require.NoError(t, sink.Send(context.Background(), testEvent(EventNoDriver)))
}

func TestSQLSinkSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	first, err := NewSQLSinkFromDSN(path)
	require.NoError(t, err)
	require.NoError(t, first.Send(context.Background(), testEvent(EventCreated)))
	require.NoError(t, first.Close())

	// Re-opening the same file must keep existing rows.
	second, err := NewSQLSinkFromDSN(path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	var n int
	require.NoError(t, second.db.QueryRow(`SELECT COUNT(*) FROM ride_history`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLSinkEmptyDSN(t *testing.T) {
	_, err := NewSQLSinkFromDSN("   ")
	assert.Error(t, err)
}
