package query

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/season-qa/backend/internal/metrics"
	"github.com/season-qa/backend/internal/storage/models"
	"github.com/season-qa/backend/pkg/logger"
	"github.com/season-qa/backend/pkg/retry"
)

// Store is the read side of the persistent store the engine depends on.
type Store interface {
	ListMatches(ctx context.Context, teamID string) ([]models.MatchRecord, error)
	ListPlayerGameStats(ctx context.Context, teamID, season string) ([]models.PlayerGameStat, error)
	NotesByTags(ctx context.Context, teamID string, tags []string, limit int) ([]models.KnowledgeNote, error)
	SearchNotes(ctx context.Context, teamID string, terms []string, limit int) ([]models.KnowledgeNote, error)
}

// Scope identifies the team and season a request is about.
type Scope struct {
	TeamID string
	Season string
}

// Requirements says which record sets an intent needs.
type Requirements struct {
	Matches bool
	Stats   bool
	Notes   bool
}

// Needs returns the minimal record sets for an intent.
func Needs(intent Intent) Requirements {
	switch intent {
	case IntentWinLossRecord, IntentToughOpponents:
		return Requirements{Matches: true}
	case IntentPasserRating, IntentKillsLeader:
		return Requirements{Stats: true}
	default:
		return Requirements{Matches: true, Stats: true, Notes: true}
	}
}

// Dataset is what the selector fetched for one request.
type Dataset struct {
	Matches []models.MatchRecord
	Stats   []models.PlayerGameStat
	Notes   []models.KnowledgeNote
}

type SelectorConfig struct {
	NoteTags      []string
	MaxNotes      int
	FetchAttempts int
	// IsTransient reports whether a failed store read is worth repeating.
	// Nil treats every failure as transient.
	IsTransient func(error) bool
}

// Selector fetches only the record sets a classified question needs.
type Selector struct {
	store       Store
	noteTags    []string
	maxNotes    int
	isTransient func(error) bool
	retryConfig retry.Config
}

func NewSelector(store Store, cfg SelectorConfig) *Selector {
	if cfg.MaxNotes <= 0 {
		cfg.MaxNotes = 8
	}
	if cfg.FetchAttempts <= 0 {
		cfg.FetchAttempts = 1
	}

	return &Selector{
		store:    store,
		noteTags: cfg.NoteTags,
		maxNotes:    cfg.MaxNotes,
		isTransient: cfg.IsTransient,
		retryConfig: retry.Config{
			MaxAttempts:    cfg.FetchAttempts,
			InitialDelay:   50 * time.Millisecond,
			MaxDelay:       500 * time.Millisecond,
			Multiplier:     2.0,
			JitterFraction: 0.1,
			Logger:         logger.GetLogger(),
		},
	}
}

// Fetch reads the required record sets. Reads run concurrently and Fetch
// waits for all of them. With strict set, any failed read fails the whole
// fetch with ErrDataUnavailable; otherwise failed reads degrade to empty
// sets. Notes never fail a fetch.
func (s *Selector) Fetch(ctx context.Context, scope Scope, question string, req Requirements, strict bool) (*Dataset, error) {
	var data Dataset
	var g errgroup.Group

	if req.Matches {
		g.Go(func() error {
			matches, err := retry.DoWithResult(ctx, s.retryConfig, func() ([]models.MatchRecord, error) {
				matches, err := s.store.ListMatches(ctx, scope.TeamID)
				return matches, s.classify(err)
			})
			if err != nil {
				return s.fetchFailed("matches", scope, err, strict)
			}
			data.Matches = matches
			return nil
		})
	}

	if req.Stats {
		g.Go(func() error {
			rows, err := retry.DoWithResult(ctx, s.retryConfig, func() ([]models.PlayerGameStat, error) {
				rows, err := s.store.ListPlayerGameStats(ctx, scope.TeamID, scope.Season)
				return rows, s.classify(err)
			})
			if err != nil {
				return s.fetchFailed("stats", scope, err, strict)
			}
			data.Stats = rows
			return nil
		})
	}

	if req.Notes {
		g.Go(func() error {
			data.Notes = s.fetchNotes(ctx, scope, question)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &data, nil
}

// classify stops retries on failures that another attempt cannot fix.
func (s *Selector) classify(err error) error {
	if err == nil || s.isTransient == nil || s.isTransient(err) {
		return err
	}
	return retry.Permanent(err)
}

func (s *Selector) fetchFailed(kind string, scope Scope, err error, strict bool) error {
	metrics.StoreFetchFailures.WithLabelValues(kind).Inc()
	if strict {
		return fmt.Errorf("%w: failed to read %s: %v", ErrDataUnavailable, kind, err)
	}

	logger.Warn("Store read failed, continuing without it",
		zap.String("kind", kind),
		zap.String("team_id", scope.TeamID),
		zap.String("season", scope.Season),
		zap.Error(err),
	)
	return nil
}

// fetchNotes runs the tag query and the text query and merges them,
// dropping duplicates by note ID.
func (s *Selector) fetchNotes(ctx context.Context, scope Scope, question string) []models.KnowledgeNote {
	var byTag, bySearch []models.KnowledgeNote
	var g errgroup.Group

	g.Go(func() error {
		notes, err := s.store.NotesByTags(ctx, scope.TeamID, s.noteTags, s.maxNotes)
		if err != nil {
			metrics.StoreFetchFailures.WithLabelValues("notes_tagged").Inc()
			logger.Warn("Tagged note lookup failed", zap.String("team_id", scope.TeamID), zap.Error(err))
			return nil
		}
		byTag = notes
		return nil
	})

	g.Go(func() error {
		terms := SearchTerms(question)
		if len(terms) == 0 {
			return nil
		}
		notes, err := s.store.SearchNotes(ctx, scope.TeamID, terms, s.maxNotes)
		if err != nil {
			metrics.StoreFetchFailures.WithLabelValues("notes_search").Inc()
			logger.Warn("Note search failed", zap.String("team_id", scope.TeamID), zap.Error(err))
			return nil
		}
		bySearch = notes
		return nil
	})

	_ = g.Wait()

	return mergeNotes(s.maxNotes, byTag, bySearch)
}

func mergeNotes(limit int, lists ...[]models.KnowledgeNote) []models.KnowledgeNote {
	seen := make(map[string]bool)
	var out []models.KnowledgeNote
	for _, list := range lists {
		for _, n := range list {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			out = append(out, n)
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
	}
	return out
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

var searchStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "our": true, "are": true, "was": true,
	"what": true, "who": true, "how": true, "which": true, "with": true, "this": true,
	"that": true, "does": true, "did": true, "has": true, "have": true, "should": true,
	"team": true, "about": true, "from": true, "can": true, "you": true, "your": true,
}

const maxSearchTerms = 8

// SearchTerms reduces a question to lower-case alphanumeric search terms.
func SearchTerms(question string) []string {
	cleaned := nonAlnum.ReplaceAllString(strings.ToLower(question), " ")

	seen := make(map[string]bool)
	var terms []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) < 3 || searchStopwords[word] || seen[word] {
			continue
		}
		seen[word] = true
		terms = append(terms, word)
		if len(terms) == maxSearchTerms {
			break
		}
	}
	return terms
}
