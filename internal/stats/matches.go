package stats

import (
	"sort"
	"strings"

	"github.com/season-qa/backend/internal/storage/models"
)

// UnknownOpponent groups matches imported without an opponent name.
const UnknownOpponent = "Unknown opponent"

var (
	winWords  = map[string]bool{"w": true, "win": true, "won": true, "victory": true}
	lossWords = map[string]bool{"l": true, "loss": true, "lost": true, "lose": true, "defeat": true}
)

// ParseResult maps the many textual encodings of a result onto Win, Loss or
// Unknown.
func ParseResult(raw string) models.MatchResult {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case winWords[s]:
		return models.ResultWin
	case lossWords[s]:
		return models.ResultLoss
	}
	return models.ResultUnknown
}

// OpponentRecord accumulates results against one opponent.
type OpponentRecord struct {
	Opponent string
	Matches  int
	Wins     int
	Losses   int
	SetDiff  int
}

// MatchSummary is the query-time fold over a team's matches.
type MatchSummary struct {
	Matches   int
	Wins      int
	Losses    int
	Unknown   int
	SetDiff   int
	Opponents []*OpponentRecord
}

func AggregateMatches(matches []models.MatchRecord) MatchSummary {
	var summary MatchSummary
	index := make(map[string]*OpponentRecord)

	for _, m := range matches {
		summary.Matches++
		summary.SetDiff += m.SetDiff

		name := strings.TrimSpace(m.Opponent)
		if name == "" {
			name = UnknownOpponent
		}
		opp, ok := index[name]
		if !ok {
			opp = &OpponentRecord{Opponent: name}
			index[name] = opp
			summary.Opponents = append(summary.Opponents, opp)
		}
		opp.Matches++
		opp.SetDiff += m.SetDiff

		switch ParseResult(m.RawResult) {
		case models.ResultWin:
			summary.Wins++
			opp.Wins++
		case models.ResultLoss:
			summary.Losses++
			opp.Losses++
		default:
			summary.Unknown++
		}
	}

	return summary
}

// ToughOpponents ranks opponents that beat the team at least once: most
// losses first, then the lowest cumulative set differential.
func (s MatchSummary) ToughOpponents() []*OpponentRecord {
	var out []*OpponentRecord
	for _, opp := range s.Opponents {
		if opp.Losses > 0 {
			out = append(out, opp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Losses != out[j].Losses {
			return out[i].Losses > out[j].Losses
		}
		return out[i].SetDiff < out[j].SetDiff
	})
	return out
}
