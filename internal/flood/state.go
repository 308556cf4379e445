package flood

import (
	"fmt"
	"math"
)

// Phase is the progress of one pipeline run.
type Phase string

const (
	PhaseAwaitingBranches Phase = "awaiting_branches"
	PhaseAnalyzing        Phase = "analyzing"
	PhaseNoAlert          Phase = "no_alert"
	PhaseAlertSent        Phase = "alert_sent"
	PhaseDone             Phase = "done"
)

const (
	CSVPlaceholder = "No CSV analysis available."
	WebPlaceholder = "No web scraper data available."
)

// State is the graph-local state shared by the two branches and the alert stage.
// Access goes through compose.ProcessState, which serialises the branches.
type State struct {
	CSVWeight       float64
	WebWeight       float64
	CSVAnalysis     *string
	WebIntelligence *string
	Orchestrator    *string
	EmailSent       bool
	SMSSent         bool
	Errors          []string
	Phase           Phase
	History         []Phase
}

// newState returns a state awaiting both branches.
func newState() *State {
	return &State{
		Phase:   PhaseAwaitingBranches,
		History: []Phase{PhaseAwaitingBranches},
	}
}

// setWeights stores csvWeight and derives the web weight from it.
func (s *State) setWeights(csvWeight float64) {
	s.CSVWeight = csvWeight
	s.WebWeight = 1 - csvWeight
}

// ValidateWeight checks that w is a usable trust weight.
func ValidateWeight(w float64) error {
	if math.IsNaN(w) || w < 0 || w > 1 {
		return fmt.Errorf("csv weight must be between 0 and 1, got %v", w)
	}
	return nil
}

func (s *State) recordError(source string, err error) {
	s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", source, err))
}

// ready reports whether both branch reports have been written.
func (s *State) ready() bool {
	return s.CSVAnalysis != nil && s.WebIntelligence != nil
}

func (s *State) setPhase(p Phase) {
	s.Phase = p
	s.History = append(s.History, p)
}
