package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestStoreSaveLoad(t *testing.T) {
	store := newTestStore(t)

	cp := &Checkpoint{
		SessionID: "sess-1",
		Items:     []string{"111", "222", "333"},
		NextIndex: 1,
	}
	require.NoError(t, store.Save(cp))

	loaded, err := store.Load("sess-1")
	require.NoError(t, err)
	assert.Equal(t, cp.SessionID, loaded.SessionID)
	assert.Equal(t, cp.Items, loaded.Items)
	assert.Equal(t, 1, loaded.NextIndex)
}

// A checkpoint written with nextIndex=1 and read back after the worker
// context was torn down must still identify item 0 as the one whose outcome
// the current page shows.
func TestStoreRoundTripIdentifiesPreviousItem(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(&Checkpoint{
		SessionID: "sess-rt",
		Items:     []string{"A", "B", "C"},
		NextIndex: 1,
	}))

	// Simulate context destruction: a fresh store over the same directory.
	reopened, err := NewStore(dir)
	require.NoError(t, err)

	loaded, err := reopened.Load("sess-rt")
	require.NoError(t, err)

	prev := loaded.NextIndex - 1
	require.GreaterOrEqual(t, prev, 0)
	assert.Equal(t, "A", loaded.Items[prev])
}

func TestStoreSaveReplaces(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(&Checkpoint{SessionID: "s", Items: []string{"x"}, NextIndex: 0}))
	require.NoError(t, store.Save(&Checkpoint{SessionID: "s", Items: []string{"x"}, NextIndex: 1}))

	loaded, err := store.Load("s")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.NextIndex)
}

func TestStoreLoadAbsent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(&Checkpoint{SessionID: "s", Items: []string{"x"}, NextIndex: 0}))
	require.NoError(t, store.Delete("s"))

	_, err := store.Load("s")
	assert.ErrorIs(t, err, ErrNotFound)

	// Idempotent: terminal paths may race to clean up.
	assert.NoError(t, store.Delete("s"))
}

func TestStoreRejectsInvalid(t *testing.T) {
	store := newTestStore(t)

	assert.Error(t, store.Save(nil))
	assert.Error(t, store.Save(&Checkpoint{Items: []string{"x"}}))
}

func TestStorePendingListing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadPending()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SavePending(&PendingListing{PendingIdentifier: "SN-42"}))

	p, err := store.LoadPending()
	require.NoError(t, err)
	assert.Equal(t, "SN-42", p.PendingIdentifier)

	require.NoError(t, store.DeletePending())
	_, err = store.LoadPending()
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.SavePending(&PendingListing{}))
}
