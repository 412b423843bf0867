package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, capUSD float64) *Tracker {
	t.Helper()
	t.Setenv("FORGELOOP_DIR", t.TempDir())
	tr, err := NewTracker(capUSD)
	require.NoError(t, err)
	return tr
}

func TestReserveUnderCap(t *testing.T) {
	tr := newTestTracker(t, 5.00)

	for i := 0; i < 4; i++ {
		ok, err := tr.Reserve(1.20)
		require.NoError(t, err)
		assert.True(t, ok, "reservation %d should be allowed", i+1)
	}

	rem, err := tr.Remaining()
	require.NoError(t, err)
	assert.InDelta(t, 0.20, rem, 1e-9)
}

func TestReserveDeniedOverCap(t *testing.T) {
	tr := newTestTracker(t, 5.00)

	for i := 0; i < 4; i++ {
		ok, err := tr.Reserve(1.20)
		require.NoError(t, err)
		require.True(t, ok)
	}

	// 4.80 spent; another 1.20 would total 6.00 > 5.00.
	ok, err := tr.Reserve(1.20)
	require.NoError(t, err)
	assert.False(t, ok)

	// Denied reservation leaves the ledger untouched.
	spent, err := tr.Spent()
	require.NoError(t, err)
	assert.InDelta(t, 4.80, spent, 1e-9)

	tasks, err := tr.TasksToday()
	require.NoError(t, err)
	assert.Equal(t, 4, tasks)
}

func TestRollover(t *testing.T) {
	tr := newTestTracker(t, 10.00)

	yesterday := time.Now().AddDate(0, 0, -1)
	tr.now = func() time.Time { return yesterday }

	ok, err := tr.Reserve(3.00)
	require.NoError(t, err)
	require.True(t, ok)

	tr.now = time.Now

	spent, err := tr.Spent()
	require.NoError(t, err)
	assert.Zero(t, spent, "spend resets when the date advances")

	tasks, err := tr.TasksToday()
	require.NoError(t, err)
	assert.Zero(t, tasks)

	rem, err := tr.Remaining()
	require.NoError(t, err)
	assert.InDelta(t, 10.00, rem, 1e-9)
}

func TestLedgerSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FORGELOOP_DIR", dir)

	tr1, err := NewTracker(5.00)
	require.NoError(t, err)
	ok, err := tr1.Reserve(2.50)
	require.NoError(t, err)
	require.True(t, ok)

	tr2, err := NewTracker(5.00)
	require.NoError(t, err)
	spent, err := tr2.Spent()
	require.NoError(t, err)
	assert.InDelta(t, 2.50, spent, 1e-9)
}

func TestRecordBypassesCap(t *testing.T) {
	tr := newTestTracker(t, 1.00)

	require.NoError(t, tr.Record(2.50))

	spent, err := tr.Spent()
	require.NoError(t, err)
	assert.InDelta(t, 2.50, spent, 1e-9)

	// Further reservations are denied once over the cap.
	ok, err := tr.Reserve(0.10)
	require.NoError(t, err)
	assert.False(t, ok)

	rem, err := tr.Remaining()
	require.NoError(t, err)
	assert.Zero(t, rem, "remaining never goes negative")
}
