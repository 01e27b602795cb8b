package domain

type VerificationStatus string

const (
	StatusPassed VerificationStatus = "PASSED"
	StatusFailed VerificationStatus = "FAILED"
	StatusError  VerificationStatus = "ERROR"
)

// InteractionResult is the outcome of verifying a single interaction.
// Error is set when the interaction could not be verified at all (state
// change failure, transport failure); Mismatches when it was verified and
// differences were found.
type InteractionResult struct {
	InteractionID string
	Description   string
	State         string
	Status        VerificationStatus
	Pending       bool
	Mismatches    []Mismatch
	Error         error
}

func (r InteractionResult) Failed() bool {
	return r.Status != StatusPassed
}

// PactVerificationResult aggregates the interaction results of one pact, in
// the order the interactions were declared.
type PactVerificationResult struct {
	Consumer string
	Provider string
	Source   string
	Pending  bool
	Notices  []VerificationNotice
	Results  []InteractionResult
}

func (r PactVerificationResult) Passed() bool {
	for _, res := range r.Results {
		if res.Failed() && !res.Pending {
			return false
		}
	}
	return true
}

// PendingFailures returns the failures of pending interactions; these are
// reported but never fail the run.
func (r PactVerificationResult) PendingFailures() []InteractionResult {
	var out []InteractionResult
	for _, res := range r.Results {
		if res.Failed() && res.Pending {
			out = append(out, res)
		}
	}
	return out
}

// TestResult is the per-pact summary handed to result publishers: either all
// interactions passed and their ids are listed, or the failures are carried.
type TestResult struct {
	OK             bool
	InteractionIDs []string
	Failures       []InteractionResult
}

func NewTestResult(result PactVerificationResult) TestResult {
	out := TestResult{OK: true}
	for _, res := range result.Results {
		if res.Failed() && !res.Pending {
			out.OK = false
			out.Failures = append(out.Failures, res)
		} else {
			out.InteractionIDs = append(out.InteractionIDs, res.InteractionID)
		}
	}
	return out
}

// ExecutionSummary is the outcome of a whole verification run.
type ExecutionSummary struct {
	Pacts           []PactVerificationResult
	PendingFailures int
}

func (s ExecutionSummary) Passed() bool {
	for _, p := range s.Pacts {
		if !p.Passed() {
			return false
		}
	}
	return true
}
