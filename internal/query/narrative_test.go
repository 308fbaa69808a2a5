package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/season-qa/backend/internal/storage/models"
)

var testScope = Scope{TeamID: "varsity", Season: "2025"}

func statRow(name string, stats map[string]any) models.PlayerGameStat {
	return models.PlayerGameStat{TeamID: testScope.TeamID, Season: testScope.Season, PlayerName: name, Stats: stats}
}

func matchRow(opponent, result string, setDiff int) models.MatchRecord {
	return models.MatchRecord{TeamID: testScope.TeamID, Opponent: opponent, RawResult: result, SetDiff: setDiff}
}

func scenarioMatches() []models.MatchRecord {
	return []models.MatchRecord{
		matchRow("OpponentB", "W", 2),
		matchRow("OpponentA", "L", -1),
		matchRow("OpponentA", "L", -3),
	}
}

func narrate(intent Intent, data *Dataset) string {
	return NewNarrator(DefaultMinPasserAttempts).Narrate(intent, BuildSeasonFacts(testScope, data))
}

func TestNarrate_WinLossRecord(t *testing.T) {
	assert.Equal(t, "1-2", narrate(IntentWinLossRecord, &Dataset{Matches: scenarioMatches()}))
}

func TestNarrate_WinLossRecordWithoutMatches(t *testing.T) {
	got := narrate(IntentWinLossRecord, &Dataset{})
	assert.Equal(t, insufficientMatchData, got)
	assert.Contains(t, got, "match records")
}

func TestNarrate_ToughOpponents(t *testing.T) {
	got := narrate(IntentToughOpponents, &Dataset{Matches: scenarioMatches()})

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1) OpponentA — losses 2/2", lines[1])
}

func TestNarrate_ToughOpponentsCapsAtFive(t *testing.T) {
	var matches []models.MatchRecord
	for _, opp := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		matches = append(matches, matchRow(opp, "L", -1))
	}

	got := narrate(IntentToughOpponents, &Dataset{Matches: matches})
	assert.Len(t, strings.Split(got, "\n"), 1+maxToughOpponentsListed)
	assert.NotContains(t, got, "6)")
}

func TestNarrate_ToughOpponentsWithoutLosses(t *testing.T) {
	got := narrate(IntentToughOpponents, &Dataset{Matches: []models.MatchRecord{matchRow("A", "W", 3)}})
	assert.Equal(t, noLossesFound, got)
}

func TestNarrate_PasserRatingRespectsThreshold(t *testing.T) {
	got := narrate(IntentPasserRating, &Dataset{Stats: []models.PlayerGameStat{
		statRow("PlayerA", map[string]any{"serve_receive_attempts": 30, "serve_receive_rating": 2.1}),
		statRow("PlayerB", map[string]any{"serve_receive_attempts": 10, "serve_receive_rating": 2.8}),
	}})

	assert.Contains(t, got, "**PlayerA**")
	assert.Contains(t, got, "2.10")
	assert.NotContains(t, got, "PlayerB")
}

func TestNarrate_PasserRatingInsufficient(t *testing.T) {
	got := narrate(IntentPasserRating, &Dataset{Stats: []models.PlayerGameStat{
		statRow("PlayerB", map[string]any{"serve_receive_attempts": 10, "serve_receive_rating": 2.8}),
	}})

	assert.True(t, strings.HasPrefix(got, "Insufficient data"))
	assert.Contains(t, got, "serve_receive_attempts")
	assert.Contains(t, got, "serve_receive_rating")
}

func TestNarrate_KillsLeader(t *testing.T) {
	got := narrate(IntentKillsLeader, &Dataset{Stats: []models.PlayerGameStat{
		statRow("Avery", map[string]any{"kills": 4}),
		statRow("Blake", map[string]any{"kills": "11"}),
		statRow("Avery", map[string]any{"kills": "abc"}),
	}})
	assert.Equal(t, "**Blake** leads the team with 11 kills.", got)
}

func TestNarrate_KillsLeaderNeverNamesZero(t *testing.T) {
	got := narrate(IntentKillsLeader, &Dataset{Stats: []models.PlayerGameStat{
		statRow("Avery", map[string]any{"kills": 0}),
		statRow("Blake", map[string]any{"kills": "abc", "digs": 3}),
	}})

	assert.Equal(t, insufficientKillsData, got)
	assert.NotContains(t, got, "Avery")
	assert.NotContains(t, got, "Blake")
}

func TestNarrate_EmptyBroadQuestion(t *testing.T) {
	for _, intent := range []Intent{IntentStrengthsWeaknesses, IntentGenericBroad, IntentProjectedLineup} {
		got := narrate(intent, &Dataset{})
		assert.Equal(t, InsufficientSeasonData, got, string(intent))
	}
	assert.Contains(t, InsufficientSeasonData, "match records")
	assert.Contains(t, InsufficientSeasonData, "per-game player stat records")
}

func TestNarrate_StrengthsWeaknesses(t *testing.T) {
	data := &Dataset{
		Matches: scenarioMatches(),
		Stats: []models.PlayerGameStat{
			statRow("PlayerA", map[string]any{"serve_receive_attempts": 30, "serve_receive_rating": 2.1, "digs": 12}),
			statRow("PlayerB", map[string]any{"kills": 20, "serve_errors": 5}),
			statRow("PlayerC", map[string]any{"aces": 6, "kills": 3}),
		},
	}

	got := narrate(IntentStrengthsWeaknesses, data)

	assert.Contains(t, got, "**Record:** 1-2")
	assert.Contains(t, got, "**PlayerA** is the most reliable passer")
	assert.Contains(t, got, "**PlayerB** leads the attack with 20 kills")
	assert.Contains(t, got, "**PlayerC** brings serve pressure with 6 aces")
	assert.Contains(t, got, "**PlayerA** anchors the defense with 12 digs")
	assert.Contains(t, got, "**PlayerB** has the most serve errors (5)")
	assert.Contains(t, got, "1) OpponentA — losses 2/2")
	assert.Contains(t, got, "**What to do next**")
	assert.Contains(t, got, "Scout OpponentA")

	assert.Equal(t, got, narrate(IntentGenericBroad, data))
}

func TestNarrate_StrengthsWeaknessesOnlyActsOnFoundLeaders(t *testing.T) {
	got := narrate(IntentStrengthsWeaknesses, &Dataset{
		Matches: []models.MatchRecord{matchRow("OpponentB", "W", 2)},
		Stats:   []models.PlayerGameStat{statRow("PlayerA", map[string]any{"digs": 4})},
	})

	assert.Contains(t, got, "No repeat-loss opponent")
	assert.NotContains(t, got, "serve-consistency")
	assert.NotContains(t, got, "Scout")
	assert.NotContains(t, got, "serve-receive formations")
	assert.NotContains(t, got, "transition")
	assert.Contains(t, got, "Load more per-game player stats")
}

func TestNarrate_NeverEmpty(t *testing.T) {
	datasets := []*Dataset{
		{},
		{Matches: scenarioMatches()},
		{Stats: []models.PlayerGameStat{statRow("PlayerA", map[string]any{"kills": "?"})}},
	}
	intents := []Intent{
		IntentPasserRating, IntentKillsLeader, IntentWinLossRecord, IntentToughOpponents,
		IntentProjectedLineup, IntentStrengthsWeaknesses, IntentGenericBroad,
	}

	for _, data := range datasets {
		for _, intent := range intents {
			assert.NotEmpty(t, strings.TrimSpace(narrate(intent, data)), string(intent))
		}
	}
}

func TestNarrate_LeavesFactsUntouched(t *testing.T) {
	facts := &SeasonFacts{Scope: testScope}

	got := NewNarrator(DefaultMinPasserAttempts).Narrate(IntentKillsLeader, facts)

	assert.Equal(t, insufficientKillsData, got)
	assert.Nil(t, facts.Players)
}
