package valueobject

import "fmt"

// AssessmentState tracks one assessment request through its lifecycle.
// Completed and Failed are terminal.
type AssessmentState struct {
	value string
}

var (
	StateReceived    = AssessmentState{value: "RECEIVED"}
	StateExtracting  = AssessmentState{value: "EXTRACTING"}
	StateConsensus   = AssessmentState{value: "CONSENSUS"}
	StateAggregating = AssessmentState{value: "AGGREGATING"}
	StateCompleted   = AssessmentState{value: "COMPLETED"}
	StateFailed      = AssessmentState{value: "FAILED"}
)

var stateTransitions = map[string][]string{
	"RECEIVED":    {"EXTRACTING", "FAILED"},
	"EXTRACTING":  {"CONSENSUS", "FAILED"},
	"CONSENSUS":   {"AGGREGATING", "FAILED"},
	"AGGREGATING": {"COMPLETED", "FAILED"},
}

// AssessmentStateFromString reconstructs an AssessmentState from its string representation.
func AssessmentStateFromString(s string) (AssessmentState, error) {
	switch s {
	case "RECEIVED":
		return StateReceived, nil
	case "EXTRACTING":
		return StateExtracting, nil
	case "CONSENSUS":
		return StateConsensus, nil
	case "AGGREGATING":
		return StateAggregating, nil
	case "COMPLETED":
		return StateCompleted, nil
	case "FAILED":
		return StateFailed, nil
	default:
		return AssessmentState{}, fmt.Errorf("invalid assessment state: %s", s)
	}
}

// CanTransitionTo reports whether moving to next is a legal state change.
func (s AssessmentState) CanTransitionTo(next AssessmentState) bool {
	for _, allowed := range stateTransitions[s.value] {
		if allowed == next.value {
			return true
		}
	}
	return false
}

// IsTerminal returns true for COMPLETED and FAILED.
func (s AssessmentState) IsTerminal() bool {
	return s.value == "COMPLETED" || s.value == "FAILED"
}

// String returns the string representation.
func (s AssessmentState) String() string {
	return s.value
}

// IsZero returns true if the state has not been set.
func (s AssessmentState) IsZero() bool {
	return s.value == ""
}

// Equal checks equality with another AssessmentState.
func (s AssessmentState) Equal(other AssessmentState) bool {
	return s.value == other.value
}
