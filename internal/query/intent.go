package query

import "strings"

// Intent is the classified purpose of a question.
type Intent string

const (
	IntentPasserRating        Intent = "passer_rating"
	IntentKillsLeader         Intent = "kills_leader"
	IntentWinLossRecord       Intent = "win_loss_record"
	IntentToughOpponents      Intent = "tough_opponents"
	IntentProjectedLineup     Intent = "projected_lineup"
	IntentStrengthsWeaknesses Intent = "strengths_weaknesses"
	IntentGenericBroad        Intent = "generic_broad"
)

// Narrow intents are answered from a single fact without enrichment.
func (i Intent) Narrow() bool {
	switch i {
	case IntentPasserRating, IntentKillsLeader, IntentWinLossRecord, IntentToughOpponents:
		return true
	}
	return false
}

// Classification is the classifier output. Matched holds the keyword that
// decided the intent, empty for the GenericBroad default.
type Classification struct {
	Intent  Intent
	Narrow  bool
	Matched string
}

type intentRule struct {
	intent Intent
	match  func(q string) string
}

// Rules are evaluated in order; narrow intents come first so a question
// that mentions both a narrow and a broad topic gets the cheap answer.
var intentRules = []intentRule{
	{IntentPasserRating, anyOf("passer rating", "passing rating", "serve receive", "serve-receive", "best passer")},
	{IntentKillsLeader, killsLeader},
	{IntentWinLossRecord, winLoss},
	{IntentToughOpponents, anyOf("tough", "trouble", "hardest")},
	{IntentProjectedLineup, anyOf("lineup", "line up", "line-up", "rotation", "starting six", "starting 6")},
	{IntentStrengthsWeaknesses, anyOf("strength", "weakness")},
}

// Broad signal words. They never change the outcome (the default is already
// GenericBroad) but are reported as the match for logging.
var broadSignals = []string{"summarize", "summary", "season", "improve", "strategy", "overview", "focus", "practice"}

// Classify maps a question to exactly one intent. It never fails.
func Classify(question string) Classification {
	q := strings.ToLower(question)

	for _, rule := range intentRules {
		if kw := rule.match(q); kw != "" {
			return Classification{Intent: rule.intent, Narrow: rule.intent.Narrow(), Matched: kw}
		}
	}

	return Classification{Intent: IntentGenericBroad, Matched: anyOf(broadSignals...)(q)}
}

func anyOf(keywords ...string) func(string) string {
	return func(q string) string {
		for _, kw := range keywords {
			if strings.Contains(q, kw) {
				return kw
			}
		}
		return ""
	}
}

func killsLeader(q string) string {
	if !strings.Contains(q, "kills") {
		return ""
	}
	if kw := anyOf("lead", "most", "top")(q); kw != "" {
		return "kills+" + kw
	}
	return ""
}

func winLoss(q string) string {
	if strings.Contains(q, "record") {
		return "record"
	}
	if strings.Contains(q, "win") && strings.Contains(q, "loss") {
		return "win+loss"
	}
	return ""
}
