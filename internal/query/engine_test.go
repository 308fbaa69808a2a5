package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/season-qa/backend/internal/storage/models"
)

type fakeHistory struct {
	mu      sync.Mutex
	records []*models.AnswerRecord
	err     error
}

func (f *fakeHistory) InsertAnswerRecord(ctx context.Context, record *models.AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return f.err
}

type fakeCounter struct {
	names []string
}

func (f *fakeCounter) IncrementMetric(ctx context.Context, name string) error {
	f.names = append(f.names, name)
	return nil
}

func newTestEngine(store Store, enricher Enricher, history AnswerLog, counter PathCounter) *Engine {
	return NewEngine(
		newTestSelector(store),
		NewOrchestrator(enricher, 200*time.Millisecond),
		history,
		counter,
		EngineConfig{DefaultScope: testScope, MinPasserAttempts: DefaultMinPasserAttempts},
	)
}

func broadStore() *fakeStore {
	return &fakeStore{
		matches: scenarioMatches(),
		stats: []models.PlayerGameStat{
			statRow("PlayerA", map[string]any{"serve_receive_attempts": 30, "serve_receive_rating": 2.1}),
			statRow("PlayerB", map[string]any{"kills": 14, "serve_errors": 3}),
		},
		tagged: []models.KnowledgeNote{{ID: "n1", Title: "Roster", Body: "PlayerB is a senior outside hitter."}},
	}
}

func TestEngine_EmptyQuestion(t *testing.T) {
	engine := newTestEngine(&fakeStore{}, nil, nil, nil)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := engine.Answer(context.Background(), AskRequest{Question: q})
		assert.ErrorIs(t, err, ErrEmptyQuestion)
	}
}

func TestEngine_NarrowQuestionSkipsEnrichment(t *testing.T) {
	store := &fakeStore{matches: scenarioMatches()}
	enricher := &fakeEnricher{text: "should not be used"}
	history := &fakeHistory{}
	counter := &fakeCounter{}
	engine := newTestEngine(store, enricher, history, counter)

	resp, err := engine.Answer(context.Background(), AskRequest{Question: "What is our record?"})
	require.NoError(t, err)

	assert.Equal(t, "1-2", resp.Answer)
	assert.Equal(t, IntentWinLossRecord, resp.Intent)
	assert.Equal(t, SourceDeterministic, resp.Source)
	assert.NotEmpty(t, resp.ID)
	assert.Zero(t, enricher.calls)
	assert.Zero(t, store.count("stats"))

	require.Len(t, history.records, 1)
	assert.Equal(t, resp.ID, history.records[0].ID)
	assert.Equal(t, "varsity", history.records[0].TeamID)
	assert.Equal(t, []string{"answers:deterministic"}, counter.names)
}

func TestEngine_NarrowFetchFailure(t *testing.T) {
	engine := newTestEngine(&fakeStore{statsErr: errors.New("no such table")}, nil, nil, nil)

	_, err := engine.Answer(context.Background(), AskRequest{Question: "Who leads in kills?"})
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestEngine_BroadQuestionEnriched(t *testing.T) {
	enricher := &fakeEnricher{text: "**PlayerB** leads with 14 kills."}
	engine := newTestEngine(broadStore(), enricher, nil, nil)

	resp, err := engine.Answer(context.Background(), AskRequest{Question: "Summarize our season"})
	require.NoError(t, err)

	assert.Equal(t, SourceEnriched, resp.Source)
	assert.Equal(t, "**PlayerB** leads with 14 kills.", resp.Answer)

	require.Equal(t, 1, enricher.calls)
	assert.Equal(t, "Summarize our season", enricher.last.Question)
	assert.Equal(t, 1, enricher.last.Facts.Record.Wins)
	assert.Equal(t, "PlayerA", enricher.last.Facts.BestPasser.Player)
	require.Len(t, enricher.last.Notes, 1)
	assert.Equal(t, "n1", enricher.last.Notes[0].ID)
}

func TestEngine_EnrichmentFailureMatchesDeterministicText(t *testing.T) {
	question := "What are our strengths and weaknesses?"
	class := Classify(question)
	want := NewNarrator(DefaultMinPasserAttempts).Narrate(class.Intent, BuildSeasonFacts(testScope, &Dataset{
		Matches: broadStore().matches,
		Stats:   broadStore().stats,
	}))

	for _, enricher := range []Enricher{
		nil,
		&fakeEnricher{err: errors.New("dial tcp: connection refused")},
		&fakeEnricher{text: "   "},
	} {
		engine := newTestEngine(broadStore(), enricher, nil, nil)

		resp, err := engine.Answer(context.Background(), AskRequest{Question: question})
		require.NoError(t, err)
		assert.Equal(t, SourceDeterministic, resp.Source)
		assert.Equal(t, want, resp.Answer)
	}
}

func TestEngine_NoSeasonData(t *testing.T) {
	enricher := &fakeEnricher{text: "made up"}
	engine := newTestEngine(&fakeStore{}, enricher, nil, nil)

	resp, err := engine.Answer(context.Background(), AskRequest{Question: "strengths and weaknesses"})
	require.NoError(t, err)

	assert.Equal(t, InsufficientSeasonData, resp.Answer)
	assert.Equal(t, SourceDeterministic, resp.Source)
	assert.Zero(t, enricher.calls)
}

func TestEngine_RequestScope(t *testing.T) {
	history := &fakeHistory{err: errors.New("read-only database")}
	engine := newTestEngine(&fakeStore{matches: scenarioMatches()}, nil, history, nil)

	resp, err := engine.Answer(context.Background(), AskRequest{Question: "record", TeamID: " jv ", Season: "2024"})
	require.NoError(t, err)
	assert.Equal(t, "1-2", resp.Answer)

	require.Len(t, history.records, 1)
	assert.Equal(t, "jv", history.records[0].TeamID)
	assert.Equal(t, "2024", history.records[0].Season)
}
