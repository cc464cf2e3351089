// Package diag accumulates and formats the errors and warnings produced
// while elaborating a design. It mirrors the propagation policy of spec §7:
// every elaboration routine that fails returns a safe stand-in and records
// the failure here rather than aborting, so that a single run can surface as
// many issues as possible.
package diag

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
)

// Severity distinguishes a fatal problem from an advisory one. Both are
// accumulated the same way; only the user-visible prefix differs.
type Severity uint8

const (
	// Warning is an advisory diagnostic; it does not affect Counter.Failed.
	Warning Severity = iota
	// Error is a recoverable failure; it increments the design-wide error
	// count but elaboration continues past it.
	Error
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Pos is the file/line a diagnostic is anchored to. Column is not tracked;
// the source-file-line metadata spec §3 requires is line-granular.
type Pos struct {
	File string
	Line int
}

func (p Pos) String() string {
	if p.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Diagnostic is a single reported problem, of the reporting kinds taxonomy
// in spec §7 (structural / semantic / lookup / width-type / internal).
type Diagnostic struct {
	Severity Severity
	Pos      Pos
	Message  string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}

// Counter is the design-wide error/warning accumulator. It is safe to reuse
// across elaboration phases but is not safe for concurrent use -- the
// elaborator is single-threaded cooperative per spec §5.
type Counter struct {
	diags []Diagnostic
	// merged is kept alongside diags so callers that prefer the stdlib error
	// composition idiom (errors.Is/As across the whole run) can use it; the
	// per-diagnostic slice remains the source of truth for formatting.
	merged error
}

// Errorf records a fatal diagnostic and increments the error count.
func (c *Counter) Errorf(pos Pos, format string, args ...interface{}) {
	c.add(Error, pos, fmt.Sprintf(format, args...))
}

// Warnf records an advisory diagnostic. It never affects Failed.
func (c *Counter) Warnf(pos Pos, format string, args ...interface{}) {
	c.add(Warning, pos, fmt.Sprintf(format, args...))
}

func (c *Counter) add(sev Severity, pos Pos, msg string) {
	d := Diagnostic{Severity: sev, Pos: pos, Message: msg}
	c.diags = append(c.diags, d)
	if sev == Error {
		c.merged = multierr.Append(c.merged, d)
	}
}

// Errors returns every fatal diagnostic recorded so far combined into a
// single error via multierr, or nil if none were recorded.
func (c *Counter) Errors() error {
	return c.merged
}

// Failed reports whether at least one Error-severity diagnostic has been
// recorded.
func (c *Counter) Failed() bool {
	return len(multierr.Errors(c.merged)) > 0
}

// Count returns the number of Error-severity diagnostics recorded.
func (c *Counter) Count() int {
	return len(multierr.Errors(c.merged))
}

// All returns every recorded diagnostic (warnings and errors), ordered by
// file then line then insertion order, for user-facing reporting.
func (c *Counter) All() []Diagnostic {
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pos.File != out[j].Pos.File {
			return out[i].Pos.File < out[j].Pos.File
		}
		return out[i].Pos.Line < out[j].Pos.Line
	})
	return out
}
