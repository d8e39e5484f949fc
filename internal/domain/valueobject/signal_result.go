package valueobject

import (
	"encoding/json"
	"fmt"
)

// SignalStatus is an immutable value object representing the outcome class of
// one signal extraction.
type SignalStatus struct {
	value string
}

var (
	// StatusOk means the signal produced a usable score.
	StatusOk = SignalStatus{value: "OK"}
	// StatusUnavailable means no result could be produced (timeout, transport
	// failure, model unloaded). Unavailable signals are excluded from consensus.
	StatusUnavailable = SignalStatus{value: "UNAVAILABLE"}
	// StatusError means the input was malformed for this signal. Treated like
	// Unavailable by downstream consumers.
	StatusError = SignalStatus{value: "ERROR"}
)

// SignalStatusFromString reconstructs a SignalStatus from its string representation.
func SignalStatusFromString(s string) (SignalStatus, error) {
	switch s {
	case "OK":
		return StatusOk, nil
	case "UNAVAILABLE":
		return StatusUnavailable, nil
	case "ERROR":
		return StatusError, nil
	default:
		return SignalStatus{}, fmt.Errorf("invalid signal status: %s", s)
	}
}

// String returns the string representation.
func (s SignalStatus) String() string {
	return s.value
}

// IsZero returns true if the status has not been set.
func (s SignalStatus) IsZero() bool {
	return s.value == ""
}

// Equal checks equality with another SignalStatus.
func (s SignalStatus) Equal(other SignalStatus) bool {
	return s.value == other.value
}

// IsOk returns true if the status is OK.
func (s SignalStatus) IsOk() bool {
	return s.value == "OK"
}

// MarshalJSON encodes the status as its string value.
func (s SignalStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.value)
}

// UnmarshalJSON decodes the status from its string value.
func (s *SignalStatus) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == "" {
		*s = SignalStatus{}
		return nil
	}
	parsed, err := SignalStatusFromString(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Verdict is the qualitative judgement an external signal attaches to its
// result, independent of the numeric score.
type Verdict struct {
	value string
}

var (
	VerdictNone       = Verdict{value: ""}
	VerdictSuspicious = Verdict{value: "SUSPICIOUS"}
	VerdictMalicious  = Verdict{value: "MALICIOUS"}
)

// VerdictFromString reconstructs a Verdict from its string representation.
func VerdictFromString(s string) (Verdict, error) {
	switch s {
	case "":
		return VerdictNone, nil
	case "SUSPICIOUS":
		return VerdictSuspicious, nil
	case "MALICIOUS":
		return VerdictMalicious, nil
	default:
		return Verdict{}, fmt.Errorf("invalid verdict: %s", s)
	}
}

// String returns the string representation.
func (v Verdict) String() string {
	return v.value
}

// IsMalicious returns true for a confirmed-malicious verdict.
func (v Verdict) IsMalicious() bool {
	return v.value == "MALICIOUS"
}

// IsNone returns true when no verdict was attached.
func (v Verdict) IsNone() bool {
	return v.value == ""
}

// Equal checks equality with another Verdict.
func (v Verdict) Equal(other Verdict) bool {
	return v.value == other.value
}

// MarshalJSON encodes the verdict as its string value.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.value)
}

// UnmarshalJSON decodes the verdict from its string value.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := VerdictFromString(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// SignalResult is the output of one signal extraction for one target. It is
// produced once per signal per request and never mutated afterwards; evidence
// strings are tagged with the originating signal name so presentation layers
// can group them without re-deriving scoring logic.
type SignalResult struct {
	SignalName string       `json:"signal_name"`
	Score      int          `json:"score"`
	Confidence float64      `json:"confidence"`
	Evidence   []string     `json:"evidence"`
	Status     SignalStatus `json:"status"`
	Verdict    Verdict      `json:"verdict"`
	// Floor is the minimum overall score this signal proposes when it holds a
	// confirmed verdict. Zero means no floor. The aggregator owns whether and
	// how far the floor applies.
	Floor int `json:"floor,omitempty"`
}

// NewSignalResult creates an OK result. The score is clamped into [0,100] and
// the evidence slice is copied so the result stays immutable.
func NewSignalResult(name string, score int, confidence float64, evidence []string) SignalResult {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	ev := make([]string, len(evidence))
	copy(ev, evidence)
	return SignalResult{
		SignalName: name,
		Score:      score,
		Confidence: confidence,
		Evidence:   ev,
		Status:     StatusOk,
		Verdict:    VerdictNone,
	}
}

// UnavailableResult creates a result for a signal that could not run. The
// score carries no meaning and must never enter any sum.
func UnavailableResult(name, reason string) SignalResult {
	return SignalResult{
		SignalName: name,
		Evidence:   []string{reason},
		Status:     StatusUnavailable,
		Verdict:    VerdictNone,
	}
}

// ErrorResult creates a result for a signal that rejected its input as
// malformed. Downstream handling matches UnavailableResult.
func ErrorResult(name, reason string) SignalResult {
	return SignalResult{
		SignalName: name,
		Evidence:   []string{reason},
		Status:     StatusError,
		Verdict:    VerdictNone,
	}
}

// WithVerdict returns a copy of the result carrying a verdict and proposed floor.
func (r SignalResult) WithVerdict(v Verdict, floor int) SignalResult {
	r.Verdict = v
	r.Floor = floor
	return r
}

// IsOk returns true if the signal produced a usable score.
func (r SignalResult) IsOk() bool {
	return r.Status.IsOk()
}

// HasFinding reports whether an OK signal found anything at all: a nonzero
// score or an attached verdict. Non-OK signals never count as findings, and
// never count as clean either.
func (r SignalResult) HasFinding() bool {
	return r.IsOk() && (r.Score > 0 || !r.Verdict.IsNone())
}
