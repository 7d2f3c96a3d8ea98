package domain

// Verdict is the outcome of the eligibility evaluation for one
// candidate. A rejection is an expected outcome, not an error; the
// reason is human-readable and shows up in the cycle report.
type Verdict struct {
	Accepted bool
	Reason   string
}

// Accept returns an accepting verdict.
func Accept() Verdict {
	return Verdict{Accepted: true}
}

// Reject returns a rejecting verdict with the given reason.
func Reject(reason string) Verdict {
	return Verdict{Accepted: false, Reason: reason}
}
