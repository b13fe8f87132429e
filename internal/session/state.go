// Package session holds per-browser-session state: the active table, the
// archive it came from and the chat transcript about it.
//
// Each session owns one State. A State is replaced wholesale on every
// successful ingestion; nothing is merged and no history is kept. States are
// looked up by an opaque ID in a Store, which expires idle sessions.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/JonMunkholm/nexus/internal/analyst"
	"github.com/JonMunkholm/nexus/internal/ingest"
)

// Speaker identifies who wrote a transcript message.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Message is one entry of the chat transcript.
type Message struct {
	Speaker Speaker        `json:"speaker"`
	Text    string         `json:"text"`
	SQL     string         `json:"sql,omitempty"`
	Failed  bool           `json:"failed,omitempty"`
	Chart   *analyst.Chart `json:"chart,omitempty"`
	At      time.Time      `json:"at"`
}

// Snapshot is a consistent copy of a State at one moment. Table is shared,
// not copied; tables are never mutated after ingestion.
type Snapshot struct {
	Table      *ingest.Table
	Name       string
	Roles      ingest.Roles
	Kind       ingest.ContainerKind
	Source     string
	Candidates []string
	Messages   []Message
	UpdatedAt  time.Time
}

// Loaded reports whether a table is active.
func (s Snapshot) Loaded() bool {
	return s.Table != nil
}

// State is the mutable slot for one session. All methods are safe for
// concurrent use.
type State struct {
	mu sync.RWMutex

	table *ingest.Table
	name  string
	roles ingest.Roles
	kind  ingest.ContainerKind

	// archive is kept while an archive is active so another entry can be
	// selected without re-uploading.
	source     string
	archive    []byte
	candidates []string

	messages  []Message
	updatedAt time.Time

	// roleConfig resolves column roles for tables given to Replace.
	roleConfig ingest.RoleConfig
}

// NewState returns an empty State that resolves column roles with cfg, or
// with the default candidates when cfg is nil.
func NewState(cfg ingest.RoleConfig) *State {
	if cfg == nil {
		cfg = ingest.DefaultRoleConfig()
	}
	return &State{roleConfig: cfg}
}

// Replace makes t the active table under the given display name. The
// previous table is discarded. The transcript is cleared when the name
// changes.
func (s *State) Replace(t *ingest.Table, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaceLocked(t, name, ingest.ResolveRoles(t, s.roleConfig))
}

// Apply stores a successful ingestion result. When the result came from an
// archive, archive holds its bytes so Candidates can be switched later;
// otherwise any previously kept archive is dropped. Results that are not OK
// leave the State untouched and Apply returns false.
func (s *State) Apply(res ingest.Result, archive []byte) bool {
	if !res.OK() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaceLocked(res.Table, res.Name, res.Roles)
	s.kind = res.Kind
	s.source = res.Source
	if res.Kind == ingest.KindArchive && archive != nil {
		s.archive = archive
		s.candidates = slices.Clone(res.Candidates)
	} else {
		s.archive = nil
		s.candidates = nil
	}
	return true
}

func (s *State) replaceLocked(t *ingest.Table, name string, roles ingest.Roles) {
	if name != s.name {
		s.messages = nil
	}
	s.table = t
	s.name = name
	s.roles = roles
	s.kind = ""
	s.source = name
	s.archive = nil
	s.candidates = nil
	s.updatedAt = time.Now()
}

// Current returns a snapshot of the active table and transcript. The zero
// Snapshot (Loaded() == false) means nothing has been ingested.
func (s *State) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Table:      s.table,
		Name:       s.name,
		Roles:      s.roles,
		Kind:       s.kind,
		Source:     s.source,
		Candidates: slices.Clone(s.candidates),
		Messages:   slices.Clone(s.messages),
		UpdatedAt:  s.updatedAt,
	}
}

// Archive returns the bytes and file name of the active archive, if any.
func (s *State) Archive() (source string, data []byte, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.archive == nil {
		return "", nil, false
	}
	return s.source, s.archive, true
}

// Clear drops the table, archive and transcript.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table = nil
	s.name = ""
	s.roles = nil
	s.kind = ""
	s.source = ""
	s.archive = nil
	s.candidates = nil
	s.messages = nil
	s.updatedAt = time.Now()
}

// AppendMessage adds m to the transcript, stamping it if At is zero.
func (s *State) AppendMessage(m Message) {
	if m.At.IsZero() {
		m.At = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	s.updatedAt = time.Now()
}

// ClearMessages empties the transcript and keeps the table.
func (s *State) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
