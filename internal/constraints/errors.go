package constraints

import "fmt"

// Every build-time failure is one of SelectionError, ConflictError,
// ValidationError or InfeasibleStartError. NumericalError is the only error
// that can surface after a reparametrization was built. Use errors.Is with the
// sentinels below to classify an error; errors.As recovers the details.
var (
	ErrSelection       = &SelectionError{}
	ErrConflict        = &ConflictError{}
	ErrValidation      = &ValidationError{}
	ErrInfeasibleStart = &InfeasibleStartError{}
	ErrNumerical       = &NumericalError{}
)

// SelectionError reports an empty or ambiguous location expression.
type SelectionError struct {
	Constraint string // kind and id of the offending constraint, if known
	Reason     string
}

func (e *SelectionError) Error() string {
	if e.Constraint != "" {
		return "selection error: " + e.Constraint + ": " + e.Reason
	}
	return "selection error: " + e.Reason
}

func (e *SelectionError) Is(target error) bool {
	_, ok := target.(*SelectionError)
	return ok
}

// ConflictError reports constraints that touch the same positions in an
// incompatible way.
type ConflictError struct {
	First    string
	Second   string
	Position int
	Label    string
	Reason   string
}

func (e *ConflictError) Error() string {
	msg := "conflict error: "
	if e.First != "" {
		msg += e.First
		if e.Second != "" {
			msg += " and " + e.Second
		}
		msg += ": "
	}
	if e.Label != "" {
		msg += fmt.Sprintf("parameter %s (position %d): ", e.Label, e.Position)
	}
	return msg + e.Reason
}

func (e *ConflictError) Is(target error) bool {
	_, ok := target.(*ConflictError)
	return ok
}

// ValidationError reports a malformed declaration: missing kind-specific
// fields, malformed killers, duplicate ids or an invalid parameter table.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// InfeasibleStartError reports a start vector that violates a constraint it is
// assigned to, including covariance matrices that cannot be factorized.
type InfeasibleStartError struct {
	Constraint string
	Reason     string
}

func (e *InfeasibleStartError) Error() string {
	if e.Constraint != "" {
		return "infeasible start: " + e.Constraint + ": " + e.Reason
	}
	return "infeasible start: " + e.Reason
}

func (e *InfeasibleStartError) Is(target error) bool {
	_, ok := target.(*InfeasibleStartError)
	return ok
}

// NumericalError reports an internal vector that cannot be mapped back to a
// valid external vector. It only occurs for internal vectors outside the
// internal bounds.
type NumericalError struct {
	Constraint string
	Reason     string
}

func (e *NumericalError) Error() string {
	if e.Constraint != "" {
		return "numerical error: " + e.Constraint + ": " + e.Reason
	}
	return "numerical error: " + e.Reason
}

func (e *NumericalError) Is(target error) bool {
	_, ok := target.(*NumericalError)
	return ok
}
