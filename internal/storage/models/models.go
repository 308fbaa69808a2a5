package models

import "time"

// MatchResult is the normalized outcome of a completed match.
type MatchResult string

const (
	ResultWin     MatchResult = "Win"
	ResultLoss    MatchResult = "Loss"
	ResultUnknown MatchResult = "Unknown"
)

type MatchRecord struct {
	ID       string
	TeamID   string
	Date     *time.Time
	Opponent string
	// RawResult is the result exactly as it was imported ("W", "Won", "L", ...).
	RawResult string
	SetDiff   int
}

// PlayerGameStat is one player's line for one game. Stats is open-ended:
// values are whatever the import produced (numbers, numeric strings, junk).
type PlayerGameStat struct {
	ID         string
	TeamID     string
	Season     string
	GameDate   *time.Time
	PlayerName string
	Stats      map[string]any
}

type KnowledgeNote struct {
	ID        string
	TeamID    string
	Title     string
	Body      string
	Tags      []string
	CreatedAt time.Time
}

// AnswerRecord is one row of the answer log. It is written after the answer
// is produced and never read back by the engine.
type AnswerRecord struct {
	ID        string
	TeamID    string
	Season    string
	Question  string
	Intent    string
	Source    string
	Answer    string
	LatencyMS int
	CreatedAt time.Time
}
