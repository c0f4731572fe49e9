package session

import (
	"sync"
	"time"

	"narravox-server/internal/models"

	"github.com/google/uuid"
)

// Session owns the full mutable state of one ongoing story interaction.
// All mutation goes through the methods below; callers never touch fields
// directly. The internal mutex only guards individual accessors — whole
// operations (check-call-commit sequences spanning an upstream request)
// must be bracketed with BeginOp/EndOp to get the one-operation-at-a-time
// interaction model.
type Session struct {
	// opMu serializes entire operations against this session, including
	// the upstream call in the middle. Held via BeginOp/EndOp by the
	// orchestrator, never by the accessors below.
	opMu sync.Mutex

	mu sync.Mutex

	id              uuid.UUID
	entries         []models.StoryEntry
	turnCount       int
	culturalContext string
	explanations    []models.CulturalExplanation
	branching       []string
	lastError       *models.SessionError
	preferences     map[string][]string
	suggestions     []string
	profileSource   models.ProfileSource
	started         bool
	createdAt       time.Time
}

func newSession(id uuid.UUID) *Session {
	return &Session{
		id:          id,
		preferences: make(map[string][]string),
		createdAt:   time.Now().UTC(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// BeginOp takes the operation lock. A second operation against the same
// session blocks until the first one, upstream call included, finishes.
func (s *Session) BeginOp() {
	s.opMu.Lock()
}

// EndOp releases the operation lock.
func (s *Session) EndOp() {
	s.opMu.Unlock()
}

// AppendEntry appends a StoryEntry authored by role at the current turn
// index. Validation is the orchestrator's job, not the store's.
func (s *Session) AppendEntry(content string, role models.EntryRole) models.StoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := models.StoryEntry{
		ID:        uuid.New(),
		Content:   content,
		Role:      role,
		TurnIndex: s.turnCount,
		CreatedAt: time.Now().UTC(),
	}
	s.entries = append(s.entries, entry)
	return entry
}

// DropLastEntry removes the most recent entry if it was authored by role.
// Used to roll back a user entry after a failed generation.
func (s *Session) DropLastEntry(role models.EntryRole) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 || s.entries[len(s.entries)-1].Role != role {
		return false
	}
	s.entries = s.entries[:len(s.entries)-1]
	return true
}

// IncrementTurn advances the turn counter by exactly one. This is the only
// way turnCount grows; it never decreases outside Reset.
func (s *Session) IncrementTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnCount++
}

// Reset replaces all state except the session identifier with defaults.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.turnCount = 0
	s.culturalContext = ""
	s.explanations = nil
	s.branching = nil
	s.lastError = nil
	s.preferences = make(map[string][]string)
	s.suggestions = nil
	s.profileSource = ""
	s.started = false
}

// SetCulturalContext replaces the cultural context string. Within a
// session the context only grows (callers merge, never truncate).
func (s *Session) SetCulturalContext(context string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.culturalContext = context
}

// CulturalContext returns the current semicolon-joined context string.
func (s *Session) CulturalContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.culturalContext
}

// AddCulturalExplanation records an explanation under a label. A repeated
// label overwrites the previous text in place.
func (s *Session) AddCulturalExplanation(label, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.explanations {
		if s.explanations[i].Label == label {
			s.explanations[i].Text = text
			return
		}
	}
	s.explanations = append(s.explanations, models.CulturalExplanation{Label: label, Text: text})
}

// CulturalExplanations returns a copy of the recorded explanations.
func (s *Session) CulturalExplanations() []models.CulturalExplanation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CulturalExplanation, len(s.explanations))
	copy(out, s.explanations)
	return out
}

// SetBranchingOptions replaces the cached branching options.
func (s *Session) SetBranchingOptions(options []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branching = append([]string(nil), options...)
}

// ClearBranchingOptions drops the cached branching options.
func (s *Session) ClearBranchingOptions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branching = nil
}

// BranchingOptions returns a copy of the cached branching options.
func (s *Session) BranchingOptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.branching...)
}

// SetError records the last error for display.
func (s *Session) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = &models.SessionError{Message: message, Timestamp: time.Now().UTC()}
}

// ClearError drops the recorded error.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = nil
}

// LastError returns the recorded error, or nil.
func (s *Session) LastError() *models.SessionError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastError == nil {
		return nil
	}
	e := *s.lastError
	return &e
}

// MarkStarted flags the session as having an active story.
func (s *Session) MarkStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
}

// Started reports whether a story opener has been generated.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// SetTasteProfile stores preferences plus derived suggestions.
func (s *Session) SetTasteProfile(profile models.TasteProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preferences = make(map[string][]string, len(profile.Preferences))
	for category, items := range profile.Preferences {
		s.preferences[category] = append([]string(nil), items...)
	}
	s.suggestions = append([]string(nil), profile.Suggestions...)
	s.profileSource = profile.Source
}

// Preferences returns a copy of the stored taste-profile preferences.
func (s *Session) Preferences() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]string, len(s.preferences))
	for category, items := range s.preferences {
		out[category] = append([]string(nil), items...)
	}
	return out
}

// HasPreferences reports whether any taste-profile category is non-empty.
func (s *Session) HasPreferences() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, items := range s.preferences {
		if len(items) > 0 {
			return true
		}
	}
	return false
}

// Suggestions returns the stored story suggestions.
func (s *Session) Suggestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.suggestions...)
}

// TurnCount returns the number of completed turns.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnCount
}

// IsComplete reports whether the story reached the turn limit. A complete
// session is terminal: read-only except for Reset.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnCount >= models.MaxTurns
}

// Entries returns a copy of the ordered story entries.
func (s *Session) Entries() []models.StoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.StoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// StoryText returns the concatenated entry contents in narrative order.
func (s *Session) StoryText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return joinEntryContents(s.entries)
}

// RecentText returns the concatenated contents of the last n entries.
func (s *Session) RecentText(n int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || len(s.entries) == 0 {
		return ""
	}
	start := len(s.entries) - n
	if start < 0 {
		start = 0
	}
	return joinEntryContents(s.entries[start:])
}

// Stats returns a read-only projection of the session for display.
func (s *Session) Stats() models.SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := joinEntryContents(s.entries)
	return models.SessionStats{
		SessionID:                 s.id.String(),
		TurnsCompleted:            s.turnCount,
		MaxTurns:                  models.MaxTurns,
		StoryLength:               len(text),
		StoryTokens:               countTokens(text),
		EntriesCount:              len(s.entries),
		HasCulturalContext:        s.culturalContext != "",
		CulturalExplanationsCount: len(s.explanations),
	}
}

// ExportData returns the snapshot consumed by the export renderers.
func (s *Session) ExportData() models.SessionExport {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]models.StoryEntry, len(s.entries))
	copy(entries, s.entries)
	explanations := make([]models.CulturalExplanation, len(s.explanations))
	copy(explanations, s.explanations)
	preferences := make(map[string][]string, len(s.preferences))
	for category, items := range s.preferences {
		preferences[category] = append([]string(nil), items...)
	}

	return models.SessionExport{
		SessionID:            s.id.String(),
		Entries:              entries,
		CulturalContext:      s.culturalContext,
		TurnCount:            s.turnCount,
		Preferences:          preferences,
		CulturalExplanations: explanations,
		ExportedAt:           time.Now().UTC(),
	}
}

func joinEntryContents(entries []models.StoryEntry) string {
	var b []byte
	for i, entry := range entries {
		if i > 0 {
			b = append(b, "\n\n"...)
		}
		b = append(b, entry.Content...)
	}
	return string(b)
}

// Store keeps the live sessions for this process, keyed by session id.
// Sessions are memory-resident for the process lifetime; there is no
// on-disk persistence.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[uuid.UUID]*Session)}
}

// Create allocates a fresh session with a generated identifier.
func (st *Store) Create() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess := newSession(uuid.New())
	st.sessions[sess.id] = sess
	return sess
}

// Get returns the session with the given id, if present.
func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// GetOrCreate returns the existing session for id or initializes a new
// one under that id. Calling it for an existing session is a no-op.
func (st *Store) GetOrCreate(id uuid.UUID) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if sess, ok := st.sessions[id]; ok {
		return sess
	}
	sess := newSession(id)
	st.sessions[id] = sess
	return sess
}

// Delete removes a session from the store.
func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
