package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeloop-io/forgeloop/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	t.Setenv("FORGELOOP_DIR", t.TempDir())
	m, err := NewManager()
	require.NoError(t, err)
	return m
}

func TestRegisterAndLookup(t *testing.T) {
	m := newTestManager(t)

	ws, err := m.Register("MyApp", "/tmp/myapp", "")
	require.NoError(t, err)
	assert.Equal(t, "myapp", ws.ID, "ids are normalized to lower case")
	assert.Equal(t, "/tmp/myapp", ws.Root)

	got, err := m.Lookup("MYAPP")
	require.NoError(t, err)
	assert.Equal(t, ws.ID, got.ID)
}

func TestRegisterDuplicate(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Register("app", "/tmp/a", "")
	require.NoError(t, err)

	_, err = m.Register("app", "/tmp/b", "")
	assert.ErrorIs(t, err, ErrDuplicateWorkspace)
}

func TestLookupMissing(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Lookup("nope")
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
}

func TestRename(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Register("old", "/tmp/ws", "")
	require.NoError(t, err)

	ws, err := m.Rename("old", "new")
	require.NoError(t, err)
	assert.Equal(t, "new", ws.ID)

	_, err = m.Lookup("old")
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)

	got, err := m.Lookup("new")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ws", got.Root)
}

func TestRenameToExisting(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Register("a", "/tmp/a", "")
	require.NoError(t, err)
	_, err = m.Register("b", "/tmp/b", "")
	require.NoError(t, err)

	_, err = m.Rename("a", "b")
	assert.ErrorIs(t, err, ErrDuplicateWorkspace)
}

func TestRemoveNotifiesSubscribers(t *testing.T) {
	m := newTestManager(t)

	var removed []models.Workspace
	m.SubscribeRemoval(func(ws models.Workspace) {
		removed = append(removed, ws)
	})

	_, err := m.Register("app", "/tmp/app", "")
	require.NoError(t, err)

	require.NoError(t, m.Remove("app"))
	require.Len(t, removed, 1)
	assert.Equal(t, "app", removed[0].ID)

	_, err = m.Lookup("app")
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
}

func TestRegistrySurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FORGELOOP_DIR", dir)

	m1, err := NewManager()
	require.NoError(t, err)
	_, err = m1.Register("app", "/tmp/app", "My App")
	require.NoError(t, err)

	m2, err := NewManager()
	require.NoError(t, err)
	ws, err := m2.Lookup("app")
	require.NoError(t, err)
	assert.Equal(t, "My App", ws.Name)
}

func TestTryAcquireBusy(t *testing.T) {
	m := newTestManager(t)

	release, err := m.TryAcquire("app")
	require.NoError(t, err)

	_, err = m.TryAcquire("app")
	assert.ErrorIs(t, err, ErrWorkspaceBusy)

	// A different workspace is unaffected.
	release2, err := m.TryAcquire("other")
	require.NoError(t, err)
	release2()

	release()
	release3, err := m.TryAcquire("app")
	require.NoError(t, err)
	release3()
}

func TestAcquireSerializesSameWorkspace(t *testing.T) {
	m := newTestManager(t)

	release, err := m.Acquire(context.Background(), "app")
	require.NoError(t, err)

	entered := make(chan struct{})
	go func() {
		r, err := m.Acquire(context.Background(), "app")
		if err == nil {
			close(entered)
			r()
		}
	}()

	select {
	case <-entered:
		t.Fatal("second acquire should block while lock is held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("second acquire never proceeded after release")
	}
}

func TestAcquireRespectsContext(t *testing.T) {
	m := newTestManager(t)

	release, err := m.Acquire(context.Background(), "app")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = m.Acquire(ctx, "app")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRenameKeepsLockHeld(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Register("old", "/tmp/ws", "")
	require.NoError(t, err)

	release, err := m.TryAcquire("old")
	require.NoError(t, err)

	_, err = m.Rename("old", "new")
	require.NoError(t, err)

	_, err = m.TryAcquire("new")
	assert.ErrorIs(t, err, ErrWorkspaceBusy, "same workspace must stay busy across a rename")

	release()
	release2, err := m.TryAcquire("new")
	require.NoError(t, err)
	release2()
}

func TestRenameNotifiesSubscribers(t *testing.T) {
	m := newTestManager(t)

	type move struct{ from, to string }
	var moves []move
	m.SubscribeRename(func(oldID, newID string) {
		moves = append(moves, move{oldID, newID})
	})

	_, err := m.Register("old", "/tmp/ws", "")
	require.NoError(t, err)

	_, err = m.Rename("OLD", "New")
	require.NoError(t, err)

	require.Len(t, moves, 1)
	assert.Equal(t, move{"old", "new"}, moves[0], "subscribers see normalized ids")
}
