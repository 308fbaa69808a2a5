package query

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/season-qa/backend/internal/storage/models"
)

type fakeStore struct {
	mu sync.Mutex

	matches  []models.MatchRecord
	stats    []models.PlayerGameStat
	tagged   []models.KnowledgeNote
	searched []models.KnowledgeNote

	matchErr  error
	statsErr  error
	tagErr    error
	searchErr error

	calls       map[string]int
	searchTerms []string
}

func (f *fakeStore) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeStore) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeStore) ListMatches(ctx context.Context, teamID string) ([]models.MatchRecord, error) {
	f.hit("matches")
	return f.matches, f.matchErr
}

func (f *fakeStore) ListPlayerGameStats(ctx context.Context, teamID, season string) ([]models.PlayerGameStat, error) {
	f.hit("stats")
	return f.stats, f.statsErr
}

func (f *fakeStore) NotesByTags(ctx context.Context, teamID string, tags []string, limit int) ([]models.KnowledgeNote, error) {
	f.hit("tagged")
	return f.tagged, f.tagErr
}

func (f *fakeStore) SearchNotes(ctx context.Context, teamID string, terms []string, limit int) ([]models.KnowledgeNote, error) {
	f.hit("searched")
	f.mu.Lock()
	f.searchTerms = terms
	f.mu.Unlock()
	return f.searched, f.searchErr
}

func newTestSelector(store Store) *Selector {
	return NewSelector(store, SelectorConfig{NoteTags: []string{"roster"}, MaxNotes: 8, FetchAttempts: 1})
}

func TestNeeds(t *testing.T) {
	assert.Equal(t, Requirements{Matches: true}, Needs(IntentWinLossRecord))
	assert.Equal(t, Requirements{Matches: true}, Needs(IntentToughOpponents))
	assert.Equal(t, Requirements{Stats: true}, Needs(IntentPasserRating))
	assert.Equal(t, Requirements{Stats: true}, Needs(IntentKillsLeader))

	all := Requirements{Matches: true, Stats: true, Notes: true}
	assert.Equal(t, all, Needs(IntentProjectedLineup))
	assert.Equal(t, all, Needs(IntentStrengthsWeaknesses))
	assert.Equal(t, all, Needs(IntentGenericBroad))
}

func TestFetch_NarrowReadsOnlyWhatItNeeds(t *testing.T) {
	store := &fakeStore{matches: scenarioMatches()}

	data, err := newTestSelector(store).Fetch(context.Background(), testScope, "record?", Needs(IntentWinLossRecord), true)
	require.NoError(t, err)

	assert.Len(t, data.Matches, 3)
	assert.Equal(t, 1, store.count("matches"))
	assert.Zero(t, store.count("stats"))
	assert.Zero(t, store.count("tagged"))
	assert.Zero(t, store.count("searched"))
}

func TestFetch_StrictFailureIsDataUnavailable(t *testing.T) {
	store := &fakeStore{statsErr: errors.New("disk I/O error")}

	_, err := newTestSelector(store).Fetch(context.Background(), testScope, "kills leader", Needs(IntentKillsLeader), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestFetch_BroadFailureDegrades(t *testing.T) {
	store := &fakeStore{
		matchErr: errors.New("locked"),
		stats:    []models.PlayerGameStat{statRow("Avery", map[string]any{"kills": 3})},
		tagErr:   errors.New("locked"),
	}

	data, err := newTestSelector(store).Fetch(context.Background(), testScope, "summarize", Needs(IntentGenericBroad), false)
	require.NoError(t, err)
	assert.Empty(t, data.Matches)
	assert.Len(t, data.Stats, 1)
	assert.Empty(t, data.Notes)
}

func TestFetch_RetriesStoreReads(t *testing.T) {
	store := &fakeStore{matchErr: errors.New("busy")}
	selector := NewSelector(store, SelectorConfig{FetchAttempts: 3})

	_, err := selector.Fetch(context.Background(), testScope, "record", Needs(IntentWinLossRecord), true)
	require.Error(t, err)
	assert.Equal(t, 3, store.count("matches"))
}

func TestFetch_DoesNotRetryPermanentFailures(t *testing.T) {
	schemaErr := errors.New("no such table: player_game_stats")
	store := &fakeStore{statsErr: schemaErr}
	selector := NewSelector(store, SelectorConfig{
		FetchAttempts: 3,
		IsTransient:   func(err error) bool { return !errors.Is(err, schemaErr) },
	})

	_, err := selector.Fetch(context.Background(), testScope, "kills leader", Needs(IntentKillsLeader), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, 1, store.count("stats"))
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	store := &fakeStore{matchErr: errors.New("database is locked")}
	selector := NewSelector(store, SelectorConfig{
		FetchAttempts: 2,
		IsTransient:   func(err error) bool { return true },
	})

	_, err := selector.Fetch(context.Background(), testScope, "record", Needs(IntentWinLossRecord), true)
	require.Error(t, err)
	assert.Equal(t, 2, store.count("matches"))
}

func TestFetch_MergesNotesWithoutDuplicates(t *testing.T) {
	store := &fakeStore{
		tagged: []models.KnowledgeNote{
			{ID: "n1", Title: "Roster"},
			{ID: "n2", Title: "Injuries"},
		},
		searched: []models.KnowledgeNote{
			{ID: "n2", Title: "Injuries"},
			{ID: "n3", Title: "Serve receive drills"},
		},
	}

	data, err := newTestSelector(store).Fetch(context.Background(), testScope, "What should our practice focus on?", Needs(IntentGenericBroad), false)
	require.NoError(t, err)

	var ids []string
	for _, n := range data.Notes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"n1", "n2", "n3"}, ids)
	assert.Equal(t, []string{"practice", "focus"}, store.searchTerms)
}

func TestMergeNotes_Limit(t *testing.T) {
	a := []models.KnowledgeNote{{ID: "1"}, {ID: "2"}}
	b := []models.KnowledgeNote{{ID: "3"}, {ID: "4"}}

	assert.Len(t, mergeNotes(3, a, b), 3)
	assert.Len(t, mergeNotes(0, a, b), 4)
}

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, []string{"best", "passer"}, SearchTerms("Who's the BEST passer???"))
	assert.Equal(t, []string{"serve", "receive", "plan"}, SearchTerms("serve-receive plan; serve"))
	assert.Empty(t, SearchTerms("a an of ?!"))
	assert.Len(t, SearchTerms("alpha bravo charlie delta echo foxtrot golf hotel india juliet"), maxSearchTerms)
}
