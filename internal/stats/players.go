package stats

import (
	"sort"
	"strings"

	"github.com/season-qa/backend/internal/storage/models"
)

// Category is a recognized stat category accumulated into season totals.
type Category string

const (
	Kills                Category = "kills"
	Digs                 Category = "digs"
	Aces                 Category = "aces"
	ServeErrors          Category = "serve_errors"
	SettingAssists       Category = "setting_assists"
	TotalBlocks          Category = "total_blocks"
	ServeReceiveAttempts Category = "serve_receive_attempts"
)

// TrackedCategories lists the categories in the order they are reported.
var TrackedCategories = []Category{Kills, Digs, Aces, ServeErrors, SettingAssists, TotalBlocks, ServeReceiveAttempts}

var categoryAliases = map[Category][]string{
	Kills:                {"kills", "k"},
	Digs:                 {"digs", "d"},
	Aces:                 {"aces", "service_aces", "sa"},
	ServeErrors:          {"serve_errors", "service_errors", "se"},
	SettingAssists:       {"setting_assists", "assists", "ast"},
	TotalBlocks:          {"total_blocks", "blocks", "tb"},
	ServeReceiveAttempts: {"serve_receive_attempts", "receive_attempts", "sr_attempts"},
}

var ratingAliases = []string{"serve_receive_rating", "passer_rating", "sr_rating"}

// PlayerTotals is one player's season, rebuilt per request.
type PlayerTotals struct {
	Name           string
	Kills          float64
	Digs           float64
	Aces           float64
	ServeErrors    float64
	SettingAssists float64
	TotalBlocks    float64

	// Serve receive is accumulated as attempts and rating*attempts so that
	// the season rating is weighted by attempts, not by games.
	ReceiveAttempts    float64
	ReceiveWeightedSum float64
	rawRating          float64
}

// Value returns the season total for a category.
func (p *PlayerTotals) Value(c Category) float64 {
	switch c {
	case Kills:
		return p.Kills
	case Digs:
		return p.Digs
	case Aces:
		return p.Aces
	case ServeErrors:
		return p.ServeErrors
	case SettingAssists:
		return p.SettingAssists
	case TotalBlocks:
		return p.TotalBlocks
	case ServeReceiveAttempts:
		return p.ReceiveAttempts
	}
	return 0
}

// PasserRating is the attempts-weighted serve-receive rating. With no
// recorded attempts it falls back to the last raw rating seen.
func (p *PlayerTotals) PasserRating() float64 {
	if p.ReceiveAttempts > 0 {
		return p.ReceiveWeightedSum / p.ReceiveAttempts
	}
	return p.rawRating
}

// HasAnyStat reports whether any tracked quantity is non-zero.
func (p *PlayerTotals) HasAnyStat() bool {
	for _, c := range TrackedCategories {
		if p.Value(c) > 0 {
			return true
		}
	}
	return p.rawRating > 0
}

// SeasonTotals holds per-player totals in first-appearance order.
type SeasonTotals struct {
	order   []string
	players map[string]*PlayerTotals
}

// AggregatePlayers folds per-game rows into season totals. Rows with a blank
// player name are skipped.
func AggregatePlayers(rows []models.PlayerGameStat) *SeasonTotals {
	totals := &SeasonTotals{players: make(map[string]*PlayerTotals)}

	for _, row := range rows {
		name := strings.TrimSpace(row.PlayerName)
		if name == "" {
			continue
		}

		p, ok := totals.players[name]
		if !ok {
			p = &PlayerTotals{Name: name}
			totals.players[name] = p
			totals.order = append(totals.order, name)
		}

		fields := foldKeys(row.Stats)
		p.Kills += lookup(fields, categoryAliases[Kills])
		p.Digs += lookup(fields, categoryAliases[Digs])
		p.Aces += lookup(fields, categoryAliases[Aces])
		p.ServeErrors += lookup(fields, categoryAliases[ServeErrors])
		p.SettingAssists += lookup(fields, categoryAliases[SettingAssists])
		p.TotalBlocks += blocks(fields)

		attempts := lookup(fields, categoryAliases[ServeReceiveAttempts])
		rating := lookup(fields, ratingAliases)
		p.ReceiveAttempts += attempts
		p.ReceiveWeightedSum += rating * attempts
		if rating > 0 {
			p.rawRating = rating
		}
	}

	return totals
}

// Len is the number of distinct players.
func (s *SeasonTotals) Len() int {
	return len(s.order)
}

// Players returns totals in first-appearance order.
func (s *SeasonTotals) Players() []*PlayerTotals {
	out := make([]*PlayerTotals, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.players[name])
	}
	return out
}

func (s *SeasonTotals) Player(name string) (*PlayerTotals, bool) {
	p, ok := s.players[name]
	return p, ok
}

// Leaders ranks players with a non-zero total in the category, highest
// first. Ties keep first-appearance order.
func (s *SeasonTotals) Leaders(c Category) []*PlayerTotals {
	var out []*PlayerTotals
	for _, p := range s.Players() {
		if p.Value(c) > 0 {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value(c) > out[j].Value(c)
	})
	return out
}

// Leader is the top of Leaders, or nil when nobody has a non-zero total.
func (s *SeasonTotals) Leader(c Category) *PlayerTotals {
	leaders := s.Leaders(c)
	if len(leaders) == 0 {
		return nil
	}
	return leaders[0]
}

// BestPasser picks the highest weighted rating among players with at least
// minAttempts serve-receive attempts. Ties go to the first player seen.
func (s *SeasonTotals) BestPasser(minAttempts float64) *PlayerTotals {
	var best *PlayerTotals
	for _, p := range s.Players() {
		if p.ReceiveAttempts <= 0 || p.ReceiveAttempts < minAttempts {
			continue
		}
		if best == nil || p.PasserRating() > best.PasserRating() {
			best = p
		}
	}
	return best
}

// TeamPasserRating is the attempts-weighted rating over the whole roster.
// ok is false when no attempts were recorded.
func (s *SeasonTotals) TeamPasserRating() (rating float64, ok bool) {
	var attempts, weighted float64
	for _, p := range s.Players() {
		attempts += p.ReceiveAttempts
		weighted += p.ReceiveWeightedSum
	}
	if attempts <= 0 {
		return 0, false
	}
	return weighted / attempts, true
}

var keyFolder = strings.NewReplacer(" ", "_", "-", "_")

func foldKeys(stats map[string]any) map[string]any {
	out := make(map[string]any, len(stats))
	for k, v := range stats {
		out[keyFolder.Replace(strings.ToLower(strings.TrimSpace(k)))] = v
	}
	return out
}

func lookup(fields map[string]any, aliases []string) float64 {
	for _, alias := range aliases {
		if v, ok := fields[alias]; ok {
			return normalizeCount(v)
		}
	}
	return 0
}

func blocks(fields map[string]any) float64 {
	for _, alias := range categoryAliases[TotalBlocks] {
		if v, ok := fields[alias]; ok {
			return normalizeCount(v)
		}
	}
	// Scoring convention: a block assist is half a block.
	return normalizeCount(fields["block_solos"]) + 0.5*normalizeCount(fields["block_assists"])
}
