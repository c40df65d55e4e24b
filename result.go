package mailscore

// Result is the full outcome of scoring one email address.
// Valid is true only if the syntax matched, the domain has at least one
// MX record and the domain is not disposable.
type Result struct {
	Email     string  `json:"email"`
	Valid     bool    `json:"valid"`
	Score     int     `json:"score"`
	Checks    Checks  `json:"checks"`
	Meta      Meta    `json:"meta"`
	Error     *string `json:"error"`
	LatencyMs int64   `json:"latencyMs"`
}

// BulkResult is the envelope returned by ValidateBulk.
type BulkResult struct {
	Count   int      `json:"count"`
	Results []Result `json:"results"`
}

func newResult(email string) Result {
	return Result{
		Email: email,
		Meta: Meta{
			MXRecords: []MXRecord{},
		},
	}
}

// FailedChecks returns the JSON names of the checks that did not pass.
func (r Result) FailedChecks() []string {
	var out []string
	if !r.Checks.Syntax {
		out = append(out, "syntax")
	}
	if !r.Checks.MXRecords {
		out = append(out, "mxRecords")
	}
	if !r.Checks.NotDisposable {
		out = append(out, "notDisposable")
	}
	if !r.Checks.NotRoleBased {
		out = append(out, "notRoleBased")
	}
	return out
}

// Suggested returns the corrected address, if the domain is a known typo.
func (r Result) Suggested() (string, bool) {
	if r.Meta.Suggestion == nil {
		return "", false
	}
	return *r.Meta.Suggestion, true
}

// ErrorMessage returns the structural error, or "" when the address
// passed the structural checks.
func (r Result) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}
