package pbkernel

import "github.com/pkg/errors"

// Sentinel errors for malformed constraint construction. Propagation outcomes
// (a constraint going unsatisfiable under some assignment) are never reported
// through these: that is the ordinary PropState.Conflict path, not an error.
var (
	ErrNegativeDegree    = errors.New("pbkernel: degree must be non-negative")
	ErrNonPositiveCoeff  = errors.New("pbkernel: coefficient must be positive")
	ErrDuplicateVariable = errors.New("pbkernel: duplicate variable in constraint")
	ErrBadVariable       = errors.New("pbkernel: variable out of range")
	ErrCoeffOverflow     = errors.New("pbkernel: coefficient exceeds representation width")
	errFrozen            = errors.New("pbkernel: cannot modify a frozen constraint")
)

// errCoeffOverflow wraps ErrCoeffOverflow with the offending value so callers
// get a useful message without needing a distinct sentinel per width.
func errCoeffOverflow(v int64) error {
	return errors.Wrapf(ErrCoeffOverflow, "value %d", v)
}
