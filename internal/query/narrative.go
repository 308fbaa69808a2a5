package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/season-qa/backend/internal/stats"
)

// DefaultMinPasserAttempts is the serve-receive sample size below which a
// player is not ranked as a passer.
const DefaultMinPasserAttempts = 25

const maxToughOpponentsListed = 5

const (
	InsufficientSeasonData = "Insufficient data: no match results and no player game stats are loaded for this team and season. " +
		"Add match records (date, opponent, result, set differential) and per-game player stat records, then ask again."

	insufficientMatchData = "Insufficient data: no match results are loaded for this team. " +
		"Add match records (date, opponent, result, set differential) to get a win-loss record."

	insufficientKillsData = "Insufficient data: no player has recorded a kill yet. " +
		"Populate the kills field in the per-game player stat records."

	insufficientLineupData = "Insufficient data: no per-game player stat records are loaded for this team and season, so a lineup cannot be projected. " +
		"Add per-game player stat records (kills, digs, aces, setting_assists, total_blocks, serve_receive_attempts, serve_receive_rating)."

	noLossesFound = "No losses were found in the recorded matches, or the match results are unlabeled."

	lineupCaveat = "Caveat: this projection uses season stat totals only. It does not know positions, rotation order or matchups, so treat it as a starting point."
)

// SeasonFacts is the aggregated input to the narrative generator.
type SeasonFacts struct {
	Scope   Scope
	Players *stats.SeasonTotals
	Matches stats.MatchSummary
}

// BuildSeasonFacts aggregates a fetched dataset.
func BuildSeasonFacts(scope Scope, data *Dataset) *SeasonFacts {
	return &SeasonFacts{
		Scope:   scope,
		Players: stats.AggregatePlayers(data.Stats),
		Matches: stats.AggregateMatches(data.Matches),
	}
}

func (f *SeasonFacts) hasStats() bool {
	return f.Players != nil && f.Players.Len() > 0
}

func (f *SeasonFacts) hasMatches() bool {
	return f.Matches.Matches > 0
}

// Narrator composes complete answers from aggregated facts alone. Its output
// is never empty.
type Narrator struct {
	minPasserAttempts float64
}

func NewNarrator(minPasserAttempts int) *Narrator {
	if minPasserAttempts <= 0 {
		minPasserAttempts = DefaultMinPasserAttempts
	}
	return &Narrator{minPasserAttempts: float64(minPasserAttempts)}
}

func (n *Narrator) Narrate(intent Intent, facts *SeasonFacts) string {
	if facts.Players == nil {
		local := *facts
		local.Players = stats.AggregatePlayers(nil)
		facts = &local
	}

	switch intent {
	case IntentPasserRating:
		return n.passerRating(facts)
	case IntentKillsLeader:
		return n.killsLeader(facts)
	case IntentWinLossRecord:
		return n.winLossRecord(facts)
	case IntentToughOpponents:
		return n.toughOpponents(facts)
	case IntentProjectedLineup:
		return n.projectedLineup(facts)
	default:
		return n.strengthsWeaknesses(facts)
	}
}

func (n *Narrator) passerRating(f *SeasonFacts) string {
	best := f.Players.BestPasser(n.minPasserAttempts)
	if best == nil {
		return fmt.Sprintf("Insufficient data: no player has at least %s serve-receive attempts. "+
			"Populate serve_receive_attempts and serve_receive_rating in the per-game player stat records.",
			formatCount(n.minPasserAttempts))
	}

	return fmt.Sprintf("**%s** has the best passer rating: %s weighted serve-receive rating on %s attempts (minimum %s attempts to qualify).",
		best.Name, formatRating(best.PasserRating()), formatCount(best.ReceiveAttempts), formatCount(n.minPasserAttempts))
}

func (n *Narrator) killsLeader(f *SeasonFacts) string {
	leader := f.Players.Leader(stats.Kills)
	if leader == nil {
		return insufficientKillsData
	}
	return fmt.Sprintf("**%s** leads the team with %s kills.", leader.Name, formatCount(leader.Kills))
}

func (n *Narrator) winLossRecord(f *SeasonFacts) string {
	if !f.hasMatches() {
		return insufficientMatchData
	}
	return recordTally(f.Matches)
}

func (n *Narrator) toughOpponents(f *SeasonFacts) string {
	if !f.hasMatches() {
		return insufficientMatchData
	}

	tough := f.Matches.ToughOpponents()
	if len(tough) == 0 {
		return noLossesFound
	}

	lines := []string{"Toughest opponents:"}
	lines = append(lines, toughLines(tough)...)
	return strings.Join(lines, "\n")
}

func (n *Narrator) strengthsWeaknesses(f *SeasonFacts) string {
	if !f.hasMatches() && !f.hasStats() {
		return InsufficientSeasonData
	}

	var b strings.Builder

	if f.hasMatches() {
		fmt.Fprintf(&b, "**Record:** %s", recordTally(f.Matches))
		if f.Matches.Unknown > 0 {
			fmt.Fprintf(&b, " (%d matches have unlabeled results)", f.Matches.Unknown)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("**Record:** insufficient data (no match results loaded)\n")
	}

	passer := f.Players.BestPasser(n.minPasserAttempts)
	killer := f.Players.Leader(stats.Kills)
	server := f.Players.Leader(stats.Aces)
	digger := f.Players.Leader(stats.Digs)

	b.WriteString("\n**Strengths**\n")
	strengths := 0
	if passer != nil {
		fmt.Fprintf(&b, "- **%s** is the most reliable passer: %s weighted rating on %s serve-receive attempts.\n",
			passer.Name, formatRating(passer.PasserRating()), formatCount(passer.ReceiveAttempts))
		strengths++
	}
	if killer != nil {
		fmt.Fprintf(&b, "- **%s** leads the attack with %s kills.\n", killer.Name, formatCount(killer.Kills))
		strengths++
	}
	if server != nil {
		fmt.Fprintf(&b, "- **%s** brings serve pressure with %s aces.\n", server.Name, formatCount(server.Aces))
		strengths++
	}
	if digger != nil {
		fmt.Fprintf(&b, "- **%s** anchors the defense with %s digs.\n", digger.Name, formatCount(digger.Digs))
		strengths++
	}
	if strengths == 0 {
		b.WriteString("- Insufficient data: no stat leaders yet. Populate kills, digs, aces, serve_receive_attempts and serve_receive_rating.\n")
	}

	erratic := f.Players.Leader(stats.ServeErrors)
	tough := f.Matches.ToughOpponents()

	b.WriteString("\n**Weaknesses**\n")
	if erratic != nil {
		fmt.Fprintf(&b, "- **%s** has the most serve errors (%s).\n", erratic.Name, formatCount(erratic.ServeErrors))
	}
	switch {
	case !f.hasMatches():
		b.WriteString("- Opponent trends unknown: no match results loaded.\n")
	case len(tough) == 0:
		b.WriteString("- No repeat-loss opponent in the recorded matches.\n")
	default:
		b.WriteString("- Toughest opponents:\n")
		for _, line := range toughLines(tough) {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n**What to do next**\n")
	actions := 0
	if erratic != nil {
		fmt.Fprintf(&b, "- Run serve-consistency reps with **%s** to cut down the %s serve errors.\n", erratic.Name, formatCount(erratic.ServeErrors))
		actions++
	}
	if len(tough) > 0 {
		fmt.Fprintf(&b, "- Scout %s before the next meeting: %d losses in %d matches so far.\n", tough[0].Opponent, tough[0].Losses, tough[0].Matches)
		actions++
	}
	if passer != nil {
		fmt.Fprintf(&b, "- Build serve-receive formations around **%s**.\n", passer.Name)
		actions++
	}
	if killer != nil {
		fmt.Fprintf(&b, "- Keep **%s** involved in transition; they are the top attacking option.\n", killer.Name)
		actions++
	}
	if actions == 0 {
		b.WriteString("- Load more per-game player stats and labeled match results to get specific recommendations.\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func (n *Narrator) projectedLineup(f *SeasonFacts) string {
	if !f.hasMatches() && !f.hasStats() {
		return InsufficientSeasonData
	}
	if !f.hasStats() {
		return insufficientLineupData
	}

	lu := ProjectLineup(f.Players, n.minPasserAttempts)
	var b strings.Builder

	b.WriteString("**Projected lineup**\n")
	if lu.Setter != nil {
		fmt.Fprintf(&b, "- Setter: **%s** (%s setting assists)\n", lu.Setter.Name, formatCount(lu.Setter.SettingAssists))
	} else {
		b.WriteString("- Setter: insufficient data (no setting_assists recorded)\n")
	}
	if lu.Passer != nil {
		fmt.Fprintf(&b, "- Libero / primary passer: **%s** (%s rating on %s attempts)\n",
			lu.Passer.Name, formatRating(lu.Passer.PasserRating()), formatCount(lu.Passer.ReceiveAttempts))
	} else {
		fmt.Fprintf(&b, "- Libero / primary passer: insufficient data (nobody has %s serve-receive attempts)\n", formatCount(n.minPasserAttempts))
	}
	if lu.PrimaryScorer != nil {
		fmt.Fprintf(&b, "- Primary scorer: **%s** (%s kills)\n", lu.PrimaryScorer.Name, formatCount(lu.PrimaryScorer.Kills))
	} else {
		b.WriteString("- Primary scorer: insufficient data (no kills recorded)\n")
	}
	if lu.SecondaryScorer != nil {
		fmt.Fprintf(&b, "- Secondary scorer: **%s** (%s kills)\n", lu.SecondaryScorer.Name, formatCount(lu.SecondaryScorer.Kills))
	}
	if lu.Server != nil {
		fmt.Fprintf(&b, "- Serve pressure: **%s** (%s aces)\n", lu.Server.Name, formatCount(lu.Server.Aces))
	}
	if lu.Blocker != nil {
		fmt.Fprintf(&b, "- Blocking: **%s** (%s total blocks)\n", lu.Blocker.Name, formatCount(lu.Blocker.TotalBlocks))
	}

	names := make([]string, 0, len(lu.Six))
	for _, name := range lu.Six {
		names = append(names, "**"+name+"**")
	}
	fmt.Fprintf(&b, "\n**Starting six:** %s", strings.Join(names, ", "))
	if len(lu.Six) < lineupSize {
		fmt.Fprintf(&b, " (only %d players have enough data)", len(lu.Six))
	}
	b.WriteString("\n")

	b.WriteString("\n**Bench**\n")
	bench := 0
	if lu.NextHitter != nil {
		fmt.Fprintf(&b, "- Next hitter: **%s** (%s kills)\n", lu.NextHitter.Name, formatCount(lu.NextHitter.Kills))
		bench++
	}
	if lu.AltDefender != nil {
		fmt.Fprintf(&b, "- Alternate defender: **%s** (%s digs)\n", lu.AltDefender.Name, formatCount(lu.AltDefender.Digs))
		bench++
	}
	if lu.BackupSetter != nil {
		fmt.Fprintf(&b, "- Backup setter: **%s** (%s setting assists)\n", lu.BackupSetter.Name, formatCount(lu.BackupSetter.SettingAssists))
		bench++
	}
	if bench == 0 {
		b.WriteString("- No additional players with recorded stats.\n")
	}

	b.WriteString("\n" + lineupCaveat)
	return b.String()
}

func recordTally(m stats.MatchSummary) string {
	return fmt.Sprintf("%d-%d", m.Wins, m.Losses)
}

func toughLines(tough []*stats.OpponentRecord) []string {
	var lines []string
	for i, opp := range tough {
		if i == maxToughOpponentsListed {
			break
		}
		lines = append(lines, fmt.Sprintf("%d) %s — losses %d/%d", i+1, opp.Opponent, opp.Losses, opp.Matches))
	}
	return lines
}

func formatCount(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
