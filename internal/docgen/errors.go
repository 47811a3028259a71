package docgen

import (
	"fmt"
	"strings"
)

// ValidationError is one recoverable failure found during the run. It is
// immutable and carries enough location context to be actionable on its own.
type ValidationError struct {
	Construct string
	Method    string
	Line      int
	Message   string
}

func (e ValidationError) String() string {
	var b strings.Builder
	b.WriteString(e.Construct)
	if e.Method != "" {
		b.WriteByte('.')
		b.WriteString(e.Method)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Aggregator collects every recoverable failure of one run. It is append
// only: errors are never mutated, removed or deduplicated, and it is read
// once at end of run. The run is single threaded, so no locking is needed.
type Aggregator struct {
	errs []ValidationError
}

// NewAggregator creates the error sink for one run.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add appends one error.
func (a *Aggregator) Add(e ValidationError) {
	a.errs = append(a.errs, e)
}

// AddAll appends a validator's output in order.
func (a *Aggregator) AddAll(errs []ValidationError) {
	a.errs = append(a.errs, errs...)
}

// Addf appends a formatted error.
func (a *Aggregator) Addf(construct, method string, line int, format string, args ...any) {
	a.Add(ValidationError{
		Construct: construct,
		Method:    method,
		Line:      line,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Len returns the number of collected errors.
func (a *Aggregator) Len() int { return len(a.errs) }

// Errors returns the collected errors in append order.
func (a *Aggregator) Errors() []ValidationError {
	out := make([]ValidationError, len(a.errs))
	copy(out, a.errs)
	return out
}

func errf(construct, method string, line int, format string, args ...any) ValidationError {
	return ValidationError{
		Construct: construct,
		Method:    method,
		Line:      line,
		Message:   fmt.Sprintf(format, args...),
	}
}
