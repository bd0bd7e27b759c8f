// Package flow tracks each client's position in the booking dialog:
// picking a date, picking a time, entering details, submitting, and the
// terminal outcomes. The guard on Submitting is what blocks duplicate
// submissions from a double-clicked button.
package flow

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State represents the current step of the booking dialog.
type State string

const (
	StateSelectingDate   State = "selecting_date"
	StateSelectingTime   State = "selecting_time"
	StateEnteringDetails State = "entering_details"
	StateSubmitting      State = "submitting"
	StateSuccess         State = "success"
	StateConflict        State = "conflict"
	StateError           State = "error"
)

// Selection holds what the client has picked so far.
type Selection struct {
	Date string
	Time string
}

// Session is one client's dialog, safe for concurrent use.
type Session struct {
	ID        string
	State     State
	Selection Selection
	StartedAt time.Time
	UpdatedAt time.Time
	mu        sync.Mutex
}

// NewSession starts a dialog at date selection.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		State:     StateSelectingDate,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// GetState returns the current state.
func (s *Session) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

// SetSelection records the picked date or time.
func (s *Session) SetSelection(date, timeLabel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if date != "" {
		s.Selection.Date = date
	}
	if timeLabel != "" {
		s.Selection.Time = timeLabel
	}
	s.UpdatedAt = time.Now()
}

// CurrentSelection returns a copy of what the client has picked so far.
func (s *Session) CurrentSelection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Selection
}

// IsExpired checks whether the session outlived the timeout.
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.UpdatedAt) > timeout
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
	s.UpdatedAt = time.Now()
}

// FSM holds the allowed dialog transitions.
type FSM struct {
	transitions map[State][]State
}

// NewFSM builds the dialog graph. Every state may restart at date
// selection; only EnteringDetails may enter Submitting, and Submitting
// has no edge back into itself.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateSelectingDate:   {StateSelectingTime},
			StateSelectingTime:   {StateEnteringDetails, StateSelectingDate},
			StateEnteringDetails: {StateSubmitting, StateSelectingTime, StateSelectingDate},
			StateSubmitting:      {StateSuccess, StateConflict, StateError},
			StateSuccess:         {},
			StateConflict:        {StateSelectingTime, StateSelectingDate},
			StateError:           {StateEnteringDetails, StateSelectingDate},
		},
	}
}

// CanTransition checks whether from → to is an allowed edge. Restarting
// at SelectingDate is always allowed.
func (f *FSM) CanTransition(from, to State) bool {
	if to == StateSelectingDate {
		return true
	}
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the session if the edge is allowed.
func (f *FSM) Transition(session *Session, to State) bool {
	session.mu.Lock()
	defer session.mu.Unlock()
	if !f.canTransitionLocked(session.State, to) {
		return false
	}
	session.State = to
	session.UpdatedAt = time.Now()
	if to == StateSelectingDate {
		session.Selection = Selection{}
	}
	return true
}

func (f *FSM) canTransitionLocked(from, to State) bool {
	if to == StateSelectingDate {
		return true
	}
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SessionStore keeps dialog sessions by ID with expiry.
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	timeout  time.Duration
}

// NewSessionStore creates a store. Non-positive timeout defaults to
// 30 minutes.
func NewSessionStore(timeout time.Duration) *SessionStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		timeout:  timeout,
	}
}

// Get returns the session for id, or nil when unknown or expired.
func (ss *SessionStore) Get(id string) *Session {
	ss.mu.RLock()
	session := ss.sessions[id]
	ss.mu.RUnlock()
	if session == nil || session.IsExpired(ss.timeout) {
		return nil
	}
	return session
}

// Create starts and registers a fresh session.
func (ss *SessionStore) Create() *Session {
	session := NewSession()
	ss.mu.Lock()
	ss.sessions[session.ID] = session
	ss.mu.Unlock()
	return session
}

// GetOrCreate resolves id to a live session, starting a fresh one for
// unknown or expired ids.
func (ss *SessionStore) GetOrCreate(id string) *Session {
	if session := ss.Get(id); session != nil {
		return session
	}
	return ss.Create()
}

// Delete removes a session.
func (ss *SessionStore) Delete(id string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, id)
}

// Cleanup removes expired sessions and reports how many were dropped.
func (ss *SessionStore) Cleanup() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for id, session := range ss.sessions {
		if session.IsExpired(ss.timeout) {
			delete(ss.sessions, id)
			removed++
		}
	}
	return removed
}
