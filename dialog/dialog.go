// Package dialog implements the multi-step dialog session manager. Each user
// is in at most one of three dialogs at a time (profile registration, the
// premium-settings questionnaire, or bulk diary intake); this package
// tracks the step position, collects answers, and flushes them to the store
// when the final step completes.
package dialog

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomasmach/himekuri/store"
)

// Type identifies which dialog a session is in.
type Type int

const (
	None Type = iota
	Registration
	PremiumSetup
	DiaryIntake
)

func (t Type) String() string {
	switch t {
	case Registration:
		return "registration"
	case PremiumSetup:
		return "premium_setup"
	case DiaryIntake:
		return "diary_intake"
	}
	return "none"
}

// Label returns the user-facing Japanese name of the dialog.
func (t Type) Label() string {
	switch t {
	case Registration:
		return "情報登録"
	case PremiumSetup:
		return "プレミアム設定"
	case DiaryIntake:
		return "日記追加"
	}
	return ""
}

// Session is the per-user dialog state. It lives only in memory; answers are
// flushed to the store on completion and the session is cleared.
type Session struct {
	Active  Type
	Step    int
	Answers map[string]string
	// IntakeCategory is the diary type selected in the first intake step,
	// used as the fallback tag for entries the classifier cannot place.
	IntakeCategory store.Category
}

// Manager owns the sessions and the step handlers. Callers must serialize
// turns per user; the internal mutex only guards the session map itself.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	st       *store.Store
}

// NewManager builds a Manager flushing completed dialogs into st.
func NewManager(st *store.Store) *Manager {
	return &Manager{sessions: make(map[string]*Session), st: st}
}

// session returns the user's session, creating an idle one if absent.
func (m *Manager) session(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = &Session{Answers: make(map[string]string)}
		m.sessions[userID] = s
	}
	return s
}

// Active returns the dialog the user is currently in.
func (m *Manager) Active(userID string) Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s.Active
	}
	return None
}

// Step returns the user's current step index, for collision messages and
// tests.
func (m *Manager) Step(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s.Step
	}
	return 0
}

// reset puts a session at step 0 of the given dialog, discarding any
// previously accumulated answers.
func (s *Session) reset(t Type) {
	s.Active = t
	s.Step = 0
	s.Answers = make(map[string]string)
	s.IntakeCategory = ""
}

// clear returns a session to idle.
func (s *Session) clear() {
	s.reset(None)
}

// HandleStep feeds one message into the user's active dialog and returns the
// reply. It must only be called while a dialog is active.
func (m *Manager) HandleStep(ctx context.Context, userID, text string) (string, error) {
	s := m.session(userID)
	switch s.Active {
	case Registration:
		return m.registrationStep(ctx, userID, s, text)
	case PremiumSetup:
		return m.premiumStep(ctx, userID, s, text)
	case DiaryIntake:
		return m.intakeStep(ctx, userID, s, text)
	}
	return "", fmt.Errorf("no active dialog for user %s", userID)
}
