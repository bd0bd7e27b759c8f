package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHappyPath(t *testing.T) {
	fsm := NewFSM()
	session := NewSession()

	assert.Equal(t, StateSelectingDate, session.GetState())
	require.True(t, fsm.Transition(session, StateSelectingTime))
	require.True(t, fsm.Transition(session, StateEnteringDetails))
	require.True(t, fsm.Transition(session, StateSubmitting))
	require.True(t, fsm.Transition(session, StateSuccess))
}

func TestDuplicateSubmitBlocked(t *testing.T) {
	fsm := NewFSM()
	session := NewSession()
	fsm.Transition(session, StateSelectingTime)
	fsm.Transition(session, StateEnteringDetails)

	require.True(t, fsm.Transition(session, StateSubmitting))
	// Second submit while the first is in flight must be rejected.
	assert.False(t, fsm.Transition(session, StateSubmitting))
}

func TestConflictRetriesTimeSelection(t *testing.T) {
	fsm := NewFSM()
	session := NewSession()
	fsm.Transition(session, StateSelectingTime)
	fsm.Transition(session, StateEnteringDetails)
	fsm.Transition(session, StateSubmitting)

	require.True(t, fsm.Transition(session, StateConflict))
	assert.True(t, fsm.Transition(session, StateSelectingTime))
}

func TestResetAllowedFromAnyState(t *testing.T) {
	fsm := NewFSM()
	for _, from := range []State{
		StateSelectingDate, StateSelectingTime, StateEnteringDetails,
		StateSubmitting, StateSuccess, StateConflict, StateError,
	} {
		assert.True(t, fsm.CanTransition(from, StateSelectingDate), "from %s", from)
	}
}

func TestResetClearsSelection(t *testing.T) {
	fsm := NewFSM()
	session := NewSession()
	fsm.Transition(session, StateSelectingTime)
	session.SetSelection("2026-02-02", "10:00 AM")

	require.True(t, fsm.Transition(session, StateSelectingDate))
	assert.Empty(t, session.Selection.Date)
	assert.Empty(t, session.Selection.Time)
}

func TestIllegalJumps(t *testing.T) {
	fsm := NewFSM()

	assert.False(t, fsm.CanTransition(StateSelectingDate, StateSubmitting))
	assert.False(t, fsm.CanTransition(StateSelectingTime, StateSuccess))
	assert.False(t, fsm.CanTransition(StateSuccess, StateSubmitting))
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore(50 * time.Millisecond)
	session := store.Create()

	require.NotNil(t, store.Get(session.ID))

	time.Sleep(80 * time.Millisecond)
	assert.Nil(t, store.Get(session.ID))

	fresh := store.GetOrCreate(session.ID)
	require.NotNil(t, fresh)
	assert.NotEqual(t, session.ID, fresh.ID)
	assert.Equal(t, StateSelectingDate, fresh.GetState())
}

func TestCleanup(t *testing.T) {
	store := NewSessionStore(30 * time.Millisecond)
	store.Create()
	store.Create()

	time.Sleep(60 * time.Millisecond)
	live := store.Create()

	removed := store.Cleanup()
	assert.Equal(t, 2, removed)
	assert.NotNil(t, store.Get(live.ID))
}

func TestUnknownSessionGetsFreshDialog(t *testing.T) {
	store := NewSessionStore(time.Minute)
	session := store.GetOrCreate("no-such-id")
	require.NotNil(t, session)
	assert.Equal(t, StateSelectingDate, session.GetState())
}
