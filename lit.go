// Package pbkernel implements the propagation and redundancy-checking core of a
// pseudo-Boolean proof verifier: a constraint database with watched-literal
// Boolean constraint propagation, reverse-unit-propagation (RUP) checks, syntactic
// implication, and substitution/effected-constraint computation.
//
// The package does not parse proof files or dispatch proof rules; it exposes the
// primitives an external checker composes to verify one step at a time.
package pbkernel

import "fmt"

// Var is a Boolean variable identifier. Variables are numbered from 1; Var(0) is
// reserved to denote the constants true/false (see One).
type Var int32

// One is the reserved variable used to fold constants into a constraint's degree.
// The positive literal of One always denotes true.
const One Var = 0

// MaxVar is the largest variable id this package will accept. It leaves enough
// headroom for (var<<1)|sign to fit in a uint32 literal.
const MaxVar Var = 1<<30 - 1

// Lit is a literal: a variable together with a polarity, encoded as (var<<1)|sign
// so that the complement is a single XOR and literal-indexed arrays can be sized
// 2*(nVars+1).
type Lit uint32

// LitUndef is a sentinel literal that never equals a valid literal.
const LitUndef Lit = 1<<32 - 1

// NewLit builds the literal for v with the given polarity (neg=true for the
// negative literal).
func NewLit(v Var, neg bool) Lit {
	l := Lit(uint32(v) << 1)
	if neg {
		l |= 1
	}
	return l
}

// FromSigned converts a signed integer literal (as used in DIMACS/OPB input,
// where a negative integer denotes negation and 0 is forbidden) into a Lit.
func FromSigned(n int) (Lit, error) {
	if n == 0 {
		return 0, fmt.Errorf("literal must not be zero")
	}
	v := n
	neg := false
	if v < 0 {
		neg = true
		v = -v
	}
	if v > int(MaxVar) {
		return 0, fmt.Errorf("variable %d exceeds maximum of %d", v, MaxVar)
	}
	return NewLit(Var(v), neg), nil
}

// Var returns the variable underlying l.
func (l Lit) Var() Var { return Var(l >> 1) }

// IsNeg reports whether l is the negative literal of its variable.
func (l Lit) IsNeg() bool { return l&1 == 1 }

// Neg returns the complement of l.
func (l Lit) Neg() Lit { return l ^ 1 }

// Signed renders l the way DIMACS/OPB would: the variable id, negated if l is the
// negative literal.
func (l Lit) Signed() int {
	n := int(l.Var())
	if l.IsNeg() {
		return -n
	}
	return n
}

func (l Lit) String() string {
	if l.IsNeg() {
		return fmt.Sprintf("~x%d", l.Var())
	}
	return fmt.Sprintf("x%d", l.Var())
}

// litTrue and litFalse are the literals of the reserved constant variable One;
// constraints fold occurrences of these into their degree rather than keeping
// them as terms (see FatInequality.Load).
var (
	litTrue  = NewLit(One, false)
	litFalse = NewLit(One, true)
)
