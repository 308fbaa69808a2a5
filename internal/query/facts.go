package query

import (
	"math"
	"strings"

	"github.com/season-qa/backend/internal/stats"
	"github.com/season-qa/backend/internal/storage/models"
)

const (
	compactLeaderLimit   = 6
	compactOpponentLimit = 6
	noteSnippetLength    = 600
)

// CompactFacts is the bounded summary handed to the enrichment service.
// Its size does not grow with the number of games in the season.
type CompactFacts struct {
	Team             string                  `json:"team"`
	Season           string                  `json:"season"`
	Record           RecordFacts             `json:"record"`
	Leaders          map[string][]LeaderFact `json:"leaders"`
	BestPasser       *PasserFact             `json:"best_passer,omitempty"`
	TeamPasserRating *float64                `json:"team_passer_rating,omitempty"`
	ToughOpponents   []OpponentFact          `json:"tough_opponents"`
	Availability     Availability            `json:"availability"`
}

type RecordFacts struct {
	Wins    int `json:"wins"`
	Losses  int `json:"losses"`
	Unknown int `json:"unlabeled"`
	Matches int `json:"matches"`
	SetDiff int `json:"set_differential"`
}

type LeaderFact struct {
	Player string  `json:"player"`
	Value  float64 `json:"value"`
}

type PasserFact struct {
	Player      string  `json:"player"`
	Rating      float64 `json:"rating"`
	Attempts    float64 `json:"attempts"`
	MinAttempts float64 `json:"min_attempts"`
}

type OpponentFact struct {
	Opponent string `json:"opponent"`
	Losses   int    `json:"losses"`
	Matches  int    `json:"matches"`
	SetDiff  int    `json:"set_differential"`
}

type Availability struct {
	HasMatches     bool `json:"has_matches"`
	HasPlayerStats bool `json:"has_player_stats"`
	HasPassingData bool `json:"has_passing_data"`
	HasNotes       bool `json:"has_notes"`
}

// NoteSnippet is a knowledge note trimmed for the enrichment payload.
type NoteSnippet struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`
}

// Compact reduces aggregated facts to the enrichment payload.
func Compact(facts *SeasonFacts, notes []models.KnowledgeNote, minPasserAttempts float64) CompactFacts {
	players := facts.Players
	if players == nil {
		players = stats.AggregatePlayers(nil)
	}

	out := CompactFacts{
		Team:   facts.Scope.TeamID,
		Season: facts.Scope.Season,
		Record: RecordFacts{
			Wins:    facts.Matches.Wins,
			Losses:  facts.Matches.Losses,
			Unknown: facts.Matches.Unknown,
			Matches: facts.Matches.Matches,
			SetDiff: facts.Matches.SetDiff,
		},
		Leaders:        make(map[string][]LeaderFact, len(stats.TrackedCategories)),
		ToughOpponents: []OpponentFact{},
		Availability: Availability{
			HasMatches:     facts.hasMatches(),
			HasPlayerStats: players.Len() > 0,
			HasNotes:       len(notes) > 0,
		},
	}

	for _, c := range stats.TrackedCategories {
		leaders := players.Leaders(c)
		list := make([]LeaderFact, 0, compactLeaderLimit)
		for i, p := range leaders {
			if i == compactLeaderLimit {
				break
			}
			list = append(list, LeaderFact{Player: p.Name, Value: round2(p.Value(c))})
		}
		out.Leaders[string(c)] = list
	}

	if best := players.BestPasser(minPasserAttempts); best != nil {
		out.BestPasser = &PasserFact{
			Player:      best.Name,
			Rating:      round2(best.PasserRating()),
			Attempts:    best.ReceiveAttempts,
			MinAttempts: minPasserAttempts,
		}
	}

	if rating, ok := players.TeamPasserRating(); ok {
		r := round2(rating)
		out.TeamPasserRating = &r
		out.Availability.HasPassingData = true
	}

	for i, opp := range facts.Matches.ToughOpponents() {
		if i == compactOpponentLimit {
			break
		}
		out.ToughOpponents = append(out.ToughOpponents, OpponentFact{
			Opponent: opp.Opponent,
			Losses:   opp.Losses,
			Matches:  opp.Matches,
			SetDiff:  opp.SetDiff,
		})
	}

	return out
}

// Snippets trims notes for the enrichment payload.
func Snippets(notes []models.KnowledgeNote) []NoteSnippet {
	out := make([]NoteSnippet, 0, len(notes))
	for _, n := range notes {
		body := strings.TrimSpace(n.Body)
		if r := []rune(body); len(r) > noteSnippetLength {
			body = string(r[:noteSnippetLength]) + "..."
		}
		out = append(out, NoteSnippet{ID: n.ID, Title: n.Title, Body: body, Tags: n.Tags})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
