package ingestion

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/season-qa/backend/internal/metrics"
	"github.com/season-qa/backend/internal/storage/models"
	"github.com/season-qa/backend/pkg/logger"
	"github.com/season-qa/backend/pkg/utils"
)

var ErrEmptyNote = errors.New("note title and body are required")

// NoteStore is the write side used for knowledge notes.
type NoteStore interface {
	UpsertNote(ctx context.Context, note *models.KnowledgeNote) error
}

// Processor stores knowledge notes. Bodies often come from a rich-text
// editor, so markup is stripped before storage.
type Processor struct {
	db      NoteStore
	maxBody int
}

type NoteInput struct {
	ID     string
	TeamID string
	Title  string
	Body   string
	Tags   []string
}

func NewProcessor(db NoteStore) *Processor {
	return &Processor{
		db:      db,
		maxBody: 20000,
	}
}

func (p *Processor) ProcessNote(ctx context.Context, in NoteInput) (*models.KnowledgeNote, error) {
	title := strings.TrimSpace(cleanHTML(in.Title))
	body := cleanHTML(in.Body)
	if title == "" || body == "" {
		return nil, ErrEmptyNote
	}
	if r := []rune(body); len(r) > p.maxBody {
		body = string(r[:p.maxBody])
	}

	teamID := strings.TrimSpace(in.TeamID)
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = utils.StableID(teamID, title)
	}

	note := &models.KnowledgeNote{
		ID:        id,
		TeamID:    teamID,
		Title:     title,
		Body:      body,
		Tags:      normalizeTags(in.Tags),
		CreatedAt: time.Now(),
	}

	if err := p.db.UpsertNote(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to store note: %w", err)
	}
	metrics.NotesStored.Inc()

	logger.Info("Note processed successfully",
		zap.String("note_id", note.ID),
		zap.String("team_id", note.TeamID),
		zap.Strings("tags", note.Tags),
	)

	return note, nil
}

var whitespace = regexp.MustCompile(`\s+`)

func cleanHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}

	doc.Find("script, style, iframe, noscript").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	text = whitespace.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || strings.Contains(tag, ",") || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
