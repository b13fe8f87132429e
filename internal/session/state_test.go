package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/nexus/internal/ingest"
)

func table(t *testing.T, text string) *ingest.Table {
	t.Helper()
	tbl, _, err := ingest.DecodeCSV([]byte(text))
	require.NoError(t, err)
	return tbl
}

func TestState_EmptyByDefault(t *testing.T) {
	snap := NewState(nil).Current()
	assert.False(t, snap.Loaded())
	assert.Nil(t, snap.Table)
	assert.Empty(t, snap.Name)
}

func TestState_ReplaceOverwrites(t *testing.T) {
	s := NewState(nil)
	a := table(t, "x\n1\n")
	b := table(t, "y\n2\n3\n")

	s.Replace(a, "a.csv")
	s.Replace(b, "b.csv")

	snap := s.Current()
	require.True(t, snap.Loaded())
	assert.Same(t, b, snap.Table)
	assert.Equal(t, "b.csv", snap.Name)
}

func TestState_ReplaceResolvesRoles(t *testing.T) {
	s := NewState(nil)
	s.Replace(table(t, "cliente,valor_total\nAna,1\n"), "sales.csv")

	assert.Equal(t, "valor_total", s.Current().Roles[ingest.RoleAmount])
}

func TestState_ReplaceUsesConfiguredRoles(t *testing.T) {
	s := NewState(ingest.RoleConfig{ingest.RoleAmount: {"montante"}})
	s.Replace(table(t, "cliente,valor_total,montante\nAna,1,2\n"), "sales.csv")

	roles := s.Current().Roles
	assert.Equal(t, "montante", roles[ingest.RoleAmount])
	assert.NotContains(t, roles, ingest.RoleCustomer)
}

func TestState_Clear(t *testing.T) {
	s := NewState(nil)
	s.Replace(table(t, "x\n1\n"), "a.csv")
	s.AppendMessage(Message{Speaker: SpeakerUser, Text: "quanto?"})

	s.Clear()

	snap := s.Current()
	assert.False(t, snap.Loaded())
	assert.Empty(t, snap.Name)
	assert.Empty(t, snap.Messages)
	_, _, ok := s.Archive()
	assert.False(t, ok)
}

func TestState_TranscriptClearedWhenEntryChanges(t *testing.T) {
	s := NewState(nil)
	s.Replace(table(t, "x\n1\n"), "jan.csv")
	s.AppendMessage(Message{Speaker: SpeakerUser, Text: "total?"})

	// Re-loading the same entry keeps the conversation.
	s.Replace(table(t, "x\n1\n"), "jan.csv")
	assert.Len(t, s.Current().Messages, 1)

	s.Replace(table(t, "x\n2\n"), "fev.csv")
	assert.Empty(t, s.Current().Messages)
}

func TestState_ApplyKeepsArchive(t *testing.T) {
	s := NewState(nil)
	archive := []byte("zip bytes")
	res := ingest.Result{
		Status:     ingest.StatusSuccess,
		Kind:       ingest.KindArchive,
		Table:      table(t, "x\n1\n"),
		Name:       "jan.csv",
		Source:     "notas.zip",
		Candidates: []string{"jan.csv", "fev.csv"},
	}

	require.True(t, s.Apply(res, archive))

	snap := s.Current()
	assert.Equal(t, "jan.csv", snap.Name)
	assert.Equal(t, "notas.zip", snap.Source)
	assert.Equal(t, []string{"jan.csv", "fev.csv"}, snap.Candidates)

	source, data, ok := s.Archive()
	require.True(t, ok)
	assert.Equal(t, "notas.zip", source)
	assert.Equal(t, archive, data)

	// A flat file replaces the archive.
	require.True(t, s.Apply(ingest.Result{
		Status: ingest.StatusSuccess,
		Kind:   ingest.KindFlatTable,
		Table:  table(t, "y\n2\n"),
		Name:   "b.csv",
		Source: "b.csv",
	}, nil))
	_, _, ok = s.Archive()
	assert.False(t, ok)
	assert.Empty(t, s.Current().Candidates)
}

func TestState_ApplyIgnoresFailures(t *testing.T) {
	s := NewState(nil)
	s.Replace(table(t, "x\n1\n"), "a.csv")

	applied := s.Apply(ingest.Result{Status: ingest.StatusFailure, Err: ingest.ErrCorruptArchive}, nil)

	assert.False(t, applied)
	assert.Equal(t, "a.csv", s.Current().Name)
}

func TestState_SnapshotIsolated(t *testing.T) {
	s := NewState(nil)
	s.AppendMessage(Message{Speaker: SpeakerUser, Text: "one"})

	snap := s.Current()
	snap.Messages[0].Text = "changed"

	assert.Equal(t, "one", s.Current().Messages[0].Text)
	assert.False(t, s.Current().Messages[0].At.IsZero())
}

func TestState_ConcurrentAccess(t *testing.T) {
	s := NewState(nil)
	tbl := table(t, "x\n1\n")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			s.Replace(tbl, "a.csv")
		}()
		go func() {
			defer wg.Done()
			_ = s.Current()
		}()
		go func() {
			defer wg.Done()
			s.AppendMessage(Message{Speaker: SpeakerUser, Text: "q"})
		}()
	}
	wg.Wait()

	assert.True(t, s.Current().Loaded())
}
