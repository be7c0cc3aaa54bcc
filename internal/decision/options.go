package decision

// universalMacros are emitted on every call, regardless of context (spec
// §4.11 phase 3 step 1).
var universalMacros = []string{"act", "wait", "communicate", "protect"}

// contextMacros adds context-specific macro categories on top of the
// universal four.
var contextMacros = map[string][]string{
	"reunion": {"negotiate", "defuse"},
	"meeting": {"negotiate", "defuse"},
	"project": {"plan", "delegate", "pivot"},
	"task":    {"plan", "delegate", "pivot"},
	"personal": {"express", "reflect", "support"},
}

// macroToActions expands a macro category into 2-3 concrete action names
// (spec §4.11 phase 3 step 2). Categories absent here fall back to a
// single synthesized "act_<macro>" option.
var macroToActions = map[string][]string{
	"act":         {"act_decisively", "act_cautiously"},
	"wait":        {"wait_and_observe", "wait_for_signal"},
	"communicate": {"state_needs", "ask_question", "share_feeling"},
	"protect":     {"withdraw", "set_boundary", "seek_support"},
	"negotiate":   {"propose_compromise", "hold_position"},
	"defuse":      {"acknowledge_tension", "change_subject"},
	"plan":        {"draft_plan", "set_milestones"},
	"delegate":    {"assign_task", "request_help"},
	"pivot":       {"change_approach", "abandon_subtask"},
	"express":     {"express_emotion", "write_it_down"},
	"reflect":     {"journal", "seek_perspective"},
	"support":     {"offer_support", "check_in"},
}

// actionCategory classifies an action name into a coarse category
// consulted for projection forecast/risk lookups and the veto step's
// aggressive/impulsive inflation rules.
func actionCategory(actionName string) string {
	switch actionName {
	case "withdraw", "set_boundary", "seek_support":
		return "protective"
	case "hold_position", "change_subject":
		return "aggressive"
	case "act_decisively", "change_approach", "abandon_subtask":
		return "impulsive"
	case "wait_and_observe", "wait_for_signal", "journal", "seek_perspective":
		return "passive"
	default:
		return "neutral"
	}
}

// categoryForecast gives the forecast/risk pair a projection defaults to
// before memory-based adjustment.
func categoryForecast(category string) (emotionalForecast, risk float64) {
	switch category {
	case "protective":
		return 0.2, 0.2
	case "aggressive":
		return -0.1, 0.6
	case "impulsive":
		return 0.0, 0.5
	case "passive":
		return 0.0, 0.1
	default:
		return 0.3, 0.3
	}
}

// macroScore scores a macro category by the heuristics of spec §4.11
// phase 3 step 2.
func macroScore(macro string, urgency, ft, ct float64) float64 {
	score := 0.5
	switch macro {
	case "protect":
		if urgency > 0.6 {
			score += 0.3
		}
	case "wait":
		if ft < 0 {
			score += 0.2
		}
	case "act":
		if ft > 0.3 {
			score += 0.2
		}
	case "communicate":
		if ct > 0.5 {
			score += 0.2
		}
	}
	return score
}
