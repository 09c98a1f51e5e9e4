package brep

import (
	"fmt"

	"github.com/chazu/surftree/pkg/kernel"
)

// DefaultClosureTol is the largest gap allowed between consecutive trims.
const DefaultClosureTol = 1e-6

// Severity indicates whether a validation finding blocks indexing or is
// merely informational.
type Severity int

const (
	SeverityError   Severity = iota // blocks indexing
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Validation codes.
const (
	CodeNoLoops       = "no-loops"
	CodeOuterNotFirst = "outer-not-first"
	CodeMultipleOuter = "multiple-outer"
	CodeEmptyLoop     = "empty-loop"
	CodeOpenLoop      = "open-loop"
	CodeOutsideDomain = "trim-outside-domain"
	CodeDegenerate    = "degenerate-trim"
)

// ValidationError describes a single validation finding. Loop and Trim
// are -1 when the finding concerns the face or a whole loop.
type ValidationError struct {
	Code     string
	Message  string
	Loop     int
	Trim     int
	Severity Severity
}

func (e ValidationError) Error() string {
	context := ""
	switch {
	case e.Trim >= 0:
		context = fmt.Sprintf(" (loop %d, trim %d)", e.Loop, e.Trim)
	case e.Loop >= 0:
		context = fmt.Sprintf(" (loop %d)", e.Loop)
	}
	return fmt.Sprintf("[%s] %s: %s%s", e.Severity, e.Code, e.Message, context)
}

// HasErrors reports whether any finding blocks indexing.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs the structural checks on a face and returns every
// finding. An empty slice means the face can be indexed. tol bounds loop
// closure gaps and domain overshoot; zero means DefaultClosureTol.
func Validate(f kernel.Face, tol float64) []ValidationError {
	if tol <= 0 {
		tol = DefaultClosureTol
	}
	var errs []ValidationError
	errs = append(errs, validateLoopOrder(f)...)
	errs = append(errs, validateClosure(f, tol)...)
	errs = append(errs, validateDomain(f, tol)...)
	return errs
}

// validateLoopOrder checks that exactly one outer loop exists and that it
// is listed first.
func validateLoopOrder(f kernel.Face) []ValidationError {
	loops := f.Loops()
	if len(loops) == 0 {
		return []ValidationError{{
			Code: CodeNoLoops, Message: "face has no trimming loops",
			Loop: -1, Trim: -1, Severity: SeverityError,
		}}
	}

	var errs []ValidationError
	if !loops[0].IsOuter() {
		errs = append(errs, ValidationError{
			Code: CodeOuterNotFirst, Message: "first loop is not an outer loop",
			Loop: 0, Trim: -1, Severity: SeverityError,
		})
	}
	seen := false
	for i, l := range loops {
		if !l.IsOuter() {
			continue
		}
		if seen {
			errs = append(errs, ValidationError{
				Code:     CodeMultipleOuter,
				Message:  "face has more than one outer loop",
				Loop:     i,
				Trim:     -1,
				Severity: SeverityError,
			})
		}
		seen = true
	}
	return errs
}

// validateClosure checks that each trim ends where the next one starts,
// wrapping from the last trim to the first.
func validateClosure(f kernel.Face, tol float64) []ValidationError {
	var errs []ValidationError
	for li, l := range f.Loops() {
		trims := l.Trims()
		if len(trims) == 0 {
			errs = append(errs, ValidationError{
				Code: CodeEmptyLoop, Message: "loop has no trims",
				Loop: li, Trim: -1, Severity: SeverityError,
			})
			continue
		}
		for ti, t := range trims {
			c := t.Curve()
			next := trims[(ti+1)%len(trims)].Curve()
			end := c.PointAt(c.Domain().Max)
			start := next.PointAt(next.Domain().Min)
			if gap := end.Sub(start).Length(); gap > tol {
				errs = append(errs, ValidationError{
					Code:     CodeOpenLoop,
					Message:  fmt.Sprintf("gap of %g after trim", gap),
					Loop:     li,
					Trim:     ti,
					Severity: SeverityError,
				})
			}
			if c.Length() <= tol {
				errs = append(errs, ValidationError{
					Code:     CodeDegenerate,
					Message:  "trim has zero length",
					Loop:     li,
					Trim:     ti,
					Severity: SeverityWarning,
				})
			}
		}
	}
	return errs
}

// validateDomain checks that every trim lies inside the surface domain.
func validateDomain(f kernel.Face, tol float64) []ValidationError {
	du := f.Surface().Domain(kernel.DirU)
	dv := f.Surface().Domain(kernel.DirV)
	var errs []ValidationError
	for li, l := range f.Loops() {
		for ti, t := range l.Trims() {
			b := t.Curve().BoundingBox()
			if b.IsEmpty() {
				continue
			}
			if !du.Contains(b.Min.X, tol) || !du.Contains(b.Max.X, tol) ||
				!dv.Contains(b.Min.Y, tol) || !dv.Contains(b.Max.Y, tol) {
				errs = append(errs, ValidationError{
					Code:     CodeOutsideDomain,
					Message:  fmt.Sprintf("trim bounds %s leave domain %s x %s", b, du, dv),
					Loop:     li,
					Trim:     ti,
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}
