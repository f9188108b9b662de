package domain

// Severity classifies a violation. Warnings flag suspect but usable
// state; they never abort the operation that reported them.
type Severity string

const (
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation is one finding from a validation or read pass.
type Violation struct {
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Path     string   `json:"path,omitempty"`
	Message  string   `json:"message"`
}

// Result aggregates violations from one or more checks.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends the other result's violations.
func (r Result) Merge(other Result) Result {
	if len(other.Violations) == 0 {
		return r
	}
	merged := Result{Violations: make([]Violation, 0, len(r.Violations)+len(other.Violations))}
	merged.Violations = append(merged.Violations, r.Violations...)
	merged.Violations = append(merged.Violations, other.Violations...)
	return merged
}

// Empty reports whether the result holds no violations.
func (r Result) Empty() bool { return len(r.Violations) == 0 }

// Warnings returns the subset of violations with warn severity.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}
