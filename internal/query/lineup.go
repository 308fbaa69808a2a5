package query

import "github.com/season-qa/backend/internal/stats"

const lineupSize = 6

// Lineup is a projected starting six with the players that filled each
// priority slot. Slot fields may name a player who was already chosen by an
// earlier slot; Six never repeats a name.
type Lineup struct {
	Setter          *stats.PlayerTotals
	Passer          *stats.PlayerTotals
	PrimaryScorer   *stats.PlayerTotals
	SecondaryScorer *stats.PlayerTotals
	Server          *stats.PlayerTotals
	Blocker         *stats.PlayerTotals

	Six []string

	NextHitter   *stats.PlayerTotals
	AltDefender  *stats.PlayerTotals
	BackupSetter *stats.PlayerTotals
}

// ProjectLineup fills six unique slots by priority: setter, best passer, two
// top scorers, top server, top blocker. Remaining slots are backfilled from
// digs, kills and aces, then the other tracked categories.
func ProjectLineup(totals *stats.SeasonTotals, minPasserAttempts float64) Lineup {
	var lu Lineup
	chosen := make(map[string]bool)

	add := func(p *stats.PlayerTotals) {
		if p == nil || chosen[p.Name] || len(lu.Six) == lineupSize {
			return
		}
		chosen[p.Name] = true
		lu.Six = append(lu.Six, p.Name)
	}

	lu.Setter = totals.Leader(stats.SettingAssists)
	add(lu.Setter)

	lu.Passer = totals.BestPasser(minPasserAttempts)
	add(lu.Passer)

	scorers := totals.Leaders(stats.Kills)
	if len(scorers) > 0 {
		lu.PrimaryScorer = scorers[0]
		add(lu.PrimaryScorer)
	}
	if len(scorers) > 1 {
		lu.SecondaryScorer = scorers[1]
		add(lu.SecondaryScorer)
	}

	lu.Server = totals.Leader(stats.Aces)
	add(lu.Server)

	lu.Blocker = totals.Leader(stats.TotalBlocks)
	add(lu.Blocker)

	backfill := []stats.Category{
		stats.Digs, stats.Kills, stats.Aces,
		stats.SettingAssists, stats.TotalBlocks, stats.ServeReceiveAttempts, stats.ServeErrors,
	}
	for _, c := range backfill {
		for _, p := range totals.Leaders(c) {
			add(p)
		}
	}
	for _, p := range totals.Players() {
		if p.HasAnyStat() {
			add(p)
		}
	}

	lu.NextHitter = firstBenched(totals.Leaders(stats.Kills), chosen, nil)
	lu.AltDefender = firstBenched(totals.Leaders(stats.Digs), chosen, lu.Passer)
	lu.BackupSetter = firstBenched(totals.Leaders(stats.SettingAssists), chosen, nil)

	return lu
}

func firstBenched(ranked []*stats.PlayerTotals, chosen map[string]bool, exclude *stats.PlayerTotals) *stats.PlayerTotals {
	for _, p := range ranked {
		if chosen[p.Name] {
			continue
		}
		if exclude != nil && p.Name == exclude.Name {
			continue
		}
		return p
	}
	return nil
}
