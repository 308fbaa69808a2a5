package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/season-qa/backend/internal/storage/models"
	"github.com/season-qa/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		team_id TEXT NOT NULL,
		match_date INTEGER,
		opponent TEXT,
		result TEXT,
		set_diff INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_matches_team_date ON matches(team_id, match_date);

	CREATE TABLE IF NOT EXISTS player_game_stats (
		id TEXT PRIMARY KEY,
		team_id TEXT NOT NULL,
		season TEXT NOT NULL,
		game_date INTEGER,
		player_name TEXT NOT NULL,
		stats TEXT NOT NULL DEFAULT '{}',
		seq INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stats_team_season ON player_game_stats(team_id, season, seq);

	CREATE TABLE IF NOT EXISTS knowledge_notes (
		id TEXT PRIMARY KEY,
		team_id TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT ',',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notes_team ON knowledge_notes(team_id);

	CREATE TABLE IF NOT EXISTS answer_log (
		id TEXT PRIMARY KEY,
		team_id TEXT NOT NULL,
		season TEXT NOT NULL,
		question TEXT NOT NULL,
		intent TEXT NOT NULL,
		source TEXT NOT NULL,
		answer TEXT NOT NULL,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_answer_log_team ON answer_log(team_id, created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertMatch(ctx context.Context, m *models.MatchRecord) error {
	query := `
		INSERT INTO matches (id, team_id, match_date, opponent, result, set_diff)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	_, err := c.db.ExecContext(ctx, query, m.ID, m.TeamID, unixOrNull(m.Date), nullIfEmpty(m.Opponent), m.RawResult, m.SetDiff)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	return nil
}

// ListMatches returns a team's matches ordered by date, undated matches last.
func (c *Client) ListMatches(ctx context.Context, teamID string) ([]models.MatchRecord, error) {
	query := `
		SELECT id, team_id, match_date, opponent, result, set_diff
		FROM matches
		WHERE team_id = ?
		ORDER BY match_date IS NULL, match_date ASC, rowid ASC
	`

	rows, err := c.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []models.MatchRecord
	for rows.Next() {
		var m models.MatchRecord
		var date sql.NullInt64
		var opponent, result sql.NullString

		err := rows.Scan(&m.ID, &m.TeamID, &date, &opponent, &result, &m.SetDiff)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if date.Valid {
			t := time.Unix(date.Int64, 0).UTC()
			m.Date = &t
		}
		m.Opponent = opponent.String
		m.RawResult = result.String
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	return matches, nil
}

func (c *Client) InsertPlayerGameStat(ctx context.Context, s *models.PlayerGameStat) error {
	statsJSON, err := json.Marshal(s.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	query := `
		INSERT INTO player_game_stats (id, team_id, season, game_date, player_name, stats, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM player_game_stats))
		ON CONFLICT(id) DO NOTHING
	`

	_, err = c.db.ExecContext(ctx, query, s.ID, s.TeamID, s.Season, unixOrNull(s.GameDate), s.PlayerName, string(statsJSON))
	if err != nil {
		return fmt.Errorf("failed to insert player game stat: %w", err)
	}

	return nil
}

// ListPlayerGameStats returns the rows for a team and season in insertion
// order, which is the order the aggregator uses for first appearance.
func (c *Client) ListPlayerGameStats(ctx context.Context, teamID, season string) ([]models.PlayerGameStat, error) {
	query := `
		SELECT id, team_id, season, game_date, player_name, stats
		FROM player_game_stats
		WHERE team_id = ? AND season = ?
		ORDER BY seq ASC
	`

	rows, err := c.db.QueryContext(ctx, query, teamID, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list player game stats: %w", err)
	}
	defer rows.Close()

	var stats []models.PlayerGameStat
	for rows.Next() {
		var s models.PlayerGameStat
		var date sql.NullInt64
		var statsJSON string

		err := rows.Scan(&s.ID, &s.TeamID, &s.Season, &date, &s.PlayerName, &statsJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if date.Valid {
			t := time.Unix(date.Int64, 0).UTC()
			s.GameDate = &t
		}

		// A corrupt stats blob is treated like an empty one; the row still
		// counts as an appearance for the player.
		if err := json.Unmarshal([]byte(statsJSON), &s.Stats); err != nil {
			logger.Warn("Unreadable stats payload", zap.String("stat_id", s.ID), zap.Error(err))
			s.Stats = map[string]any{}
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate player game stats: %w", err)
	}

	return stats, nil
}

func (c *Client) UpsertNote(ctx context.Context, note *models.KnowledgeNote) error {
	query := `
		INSERT INTO knowledge_notes (id, team_id, title, body, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			tags = excluded.tags
	`

	_, err := c.db.ExecContext(ctx, query, note.ID, note.TeamID, note.Title, note.Body, encodeTags(note.Tags), note.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}

	logger.Debug("Note stored", zap.String("note_id", note.ID), zap.String("team_id", note.TeamID))
	return nil
}

// NotesByTags returns notes carrying at least one of the given tags.
func (c *Client) NotesByTags(ctx context.Context, teamID string, tags []string, limit int) ([]models.KnowledgeNote, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	clauses := make([]string, 0, len(tags))
	args := []any{teamID}
	for _, tag := range tags {
		clauses = append(clauses, "tags LIKE ?")
		args = append(args, "%,"+normalizeTag(tag)+",%")
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, team_id, title, body, tags, created_at
		FROM knowledge_notes
		WHERE team_id = ? AND (%s)
		ORDER BY created_at DESC
		LIMIT ?
	`, strings.Join(clauses, " OR "))

	return c.queryNotes(ctx, query, args...)
}

// SearchNotes matches notes whose title or body contains any of the terms.
// Terms are expected to be pre-cleaned to alphanumerics.
func (c *Client) SearchNotes(ctx context.Context, teamID string, terms []string, limit int) ([]models.KnowledgeNote, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	clauses := make([]string, 0, len(terms))
	args := []any{teamID}
	for _, term := range terms {
		clauses = append(clauses, "(LOWER(title) LIKE ? OR LOWER(body) LIKE ?)")
		pattern := "%" + strings.ToLower(term) + "%"
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, team_id, title, body, tags, created_at
		FROM knowledge_notes
		WHERE team_id = ? AND (%s)
		ORDER BY created_at DESC
		LIMIT ?
	`, strings.Join(clauses, " OR "))

	return c.queryNotes(ctx, query, args...)
}

func (c *Client) queryNotes(ctx context.Context, query string, args ...any) ([]models.KnowledgeNote, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []models.KnowledgeNote
	for rows.Next() {
		var n models.KnowledgeNote
		var tags string
		var createdAt int64

		err := rows.Scan(&n.ID, &n.TeamID, &n.Title, &n.Body, &tags, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		n.Tags = decodeTags(tags)
		n.CreatedAt = time.Unix(createdAt, 0)
		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}

	return notes, nil
}

func (c *Client) InsertAnswerRecord(ctx context.Context, record *models.AnswerRecord) error {
	query := `
		INSERT INTO answer_log (id, team_id, season, question, intent, source, answer, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.TeamID,
		record.Season,
		record.Question,
		record.Intent,
		record.Source,
		record.Answer,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert answer record: %w", err)
	}

	return nil
}

func (c *Client) GetAnswerHistory(ctx context.Context, teamID string, limit int) ([]models.AnswerRecord, error) {
	query := `
		SELECT id, team_id, season, question, intent, source, answer, latency_ms, created_at
		FROM answer_log
		WHERE team_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get answer history: %w", err)
	}
	defer rows.Close()

	var records []models.AnswerRecord
	for rows.Next() {
		var r models.AnswerRecord
		var createdAt int64

		err := rows.Scan(&r.ID, &r.TeamID, &r.Season, &r.Question, &r.Intent, &r.Source, &r.Answer, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate answer history: %w", err)
	}

	return records, nil
}

func unixOrNull(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Tags are stored as ",a,b," so a containment test is a single LIKE.
func encodeTags(tags []string) string {
	var b strings.Builder
	b.WriteString(",")
	for _, tag := range tags {
		tag = normalizeTag(tag)
		if tag == "" || strings.Contains(tag, ",") {
			continue
		}
		b.WriteString(tag)
		b.WriteString(",")
	}
	return b.String()
}

func decodeTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
