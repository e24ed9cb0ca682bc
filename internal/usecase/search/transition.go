package search

import "github.com/smartapply/jobsearch/internal/domain/search/mode"

// outcome is what happened on the primary path of a mode.
type outcome int

const (
	primarySucceeded outcome = iota
	primaryFailed
)

// action is what the orchestrator does next.
type action int

const (
	returnPrimary action = iota
	runFallback
	returnEmpty
)

func (a action) String() string {
	switch a {
	case returnPrimary:
		return "primary"
	case runFallback:
		return "fallback"
	default:
		return "empty"
	}
}

// transitions maps {mode, primary outcome} to the next action.
// Keyword has no cheaper path to fall back to.
var transitions = map[mode.Mode]map[outcome]action{
	mode.Keyword: {
		primarySucceeded: returnPrimary,
		primaryFailed:    returnEmpty,
	},
	mode.Semantic: {
		primarySucceeded: returnPrimary,
		primaryFailed:    runFallback,
	},
	mode.Hybrid: {
		primarySucceeded: returnPrimary,
		primaryFailed:    runFallback,
	},
}

func next(m mode.Mode, o outcome) action {
	if a, ok := transitions[m][o]; ok {
		return a
	}
	return returnEmpty
}
