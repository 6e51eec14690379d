package services

// Outcome classifies how a pipeline run ended.
type Outcome string

const (
	// OutcomeSuccess means the tool output was kept.
	OutcomeSuccess Outcome = "success"
	// OutcomeIneffective means the tool output was discarded because it did
	// not shrink the document enough; the original was delivered instead.
	OutcomeIneffective Outcome = "ineffective"
	// OutcomePasswordProtected means the tool rejected an encrypted input.
	OutcomePasswordProtected Outcome = "password_protected"
	// OutcomeToolFailure means the tool produced no output.
	OutcomeToolFailure Outcome = "tool_failure"
	// OutcomeSkipped means there was nothing to do, such as a merge with too
	// few inputs.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeNotFound means an expected path vanished before processing.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeFailed covers every other error, including recovered panics.
	OutcomeFailed Outcome = "failed"
)

// Fallback reports whether the outcome delivered the original instead of
// the tool output.
func (o Outcome) Fallback() bool {
	switch o {
	case OutcomeIneffective, OutcomePasswordProtected, OutcomeToolFailure:
		return true
	default:
		return false
	}
}

// Problem reports whether the outcome deserves operator attention.
func (o Outcome) Problem() bool {
	switch o {
	case OutcomePasswordProtected, OutcomeToolFailure, OutcomeFailed:
		return true
	default:
		return false
	}
}
