package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/season-qa/backend/internal/storage/models"
)

func match(opponent, result string, setDiff int) models.MatchRecord {
	return models.MatchRecord{TeamID: "varsity", Opponent: opponent, RawResult: result, SetDiff: setDiff}
}

func TestParseResult(t *testing.T) {
	tests := map[string]models.MatchResult{
		"W":       models.ResultWin,
		" won ":   models.ResultWin,
		"Victory": models.ResultWin,
		"l":       models.ResultLoss,
		"LOST":    models.ResultLoss,
		"Defeat":  models.ResultLoss,
		"":        models.ResultUnknown,
		"T":       models.ResultUnknown,
		"forfeit": models.ResultUnknown,
	}

	for raw, want := range tests {
		assert.Equal(t, want, ParseResult(raw), raw)
	}
}

func TestAggregateMatches(t *testing.T) {
	summary := AggregateMatches([]models.MatchRecord{
		match("OpponentB", "W", 2),
		match("OpponentA", "L", -1),
		match("OpponentA", "L", -3),
		match("", "?", 0),
	})

	assert.Equal(t, 4, summary.Matches)
	assert.Equal(t, 1, summary.Wins)
	assert.Equal(t, 2, summary.Losses)
	assert.Equal(t, 1, summary.Unknown)
	assert.Equal(t, -2, summary.SetDiff)

	require.Len(t, summary.Opponents, 3)
	assert.Equal(t, "OpponentB", summary.Opponents[0].Opponent)
	assert.Equal(t, UnknownOpponent, summary.Opponents[2].Opponent)
}

func TestToughOpponents_Ordering(t *testing.T) {
	summary := AggregateMatches([]models.MatchRecord{
		match("Alpha", "L", -1),
		match("Bravo", "L", -2),
		match("Bravo", "W", 1),
		match("Charlie", "L", -2),
		match("Charlie", "L", -1),
		match("Delta", "W", 3),
		match("Echo", "L", -3),
		match("Foxtrot", "L", -1),
	})

	tough := summary.ToughOpponents()
	var names []string
	for _, opp := range tough {
		names = append(names, opp.Opponent)
		assert.Greater(t, opp.Losses, 0)
	}
	assert.Equal(t, []string{"Charlie", "Echo", "Alpha", "Bravo", "Foxtrot"}, names)

	for i := 1; i < len(tough); i++ {
		prev, cur := tough[i-1], tough[i]
		require.GreaterOrEqual(t, prev.Losses, cur.Losses)
		if prev.Losses == cur.Losses {
			assert.LessOrEqual(t, prev.SetDiff, cur.SetDiff)
		}
	}
}

func TestToughOpponents_NoLosses(t *testing.T) {
	summary := AggregateMatches([]models.MatchRecord{match("Alpha", "W", 2), match("Bravo", "", 0)})
	assert.Empty(t, summary.ToughOpponents())
}
