package pbkernel

// litTrue/litFalse (declared in lit.go) stand in for the constants 1 and 0: the
// reserved variable One is never a real problem variable, so a substitution
// target of litTrue or litFalse is a genuine constant fold, not a variable
// rename. Grounded on constraints.hpp's Substitution class.
type Substitution struct {
	m map[Lit]Lit
}

// NewSubstitution builds a substitution from three parallel inputs:
// constants (literals fixed to true), and a from/to pair of literals being
// renamed. Both a literal and its complement are recorded so that Get never
// needs to special-case polarity.
func NewSubstitution(constants []Lit, from, to []Lit) (*Substitution, error) {
	if len(from) != len(to) {
		return nil, ErrBadVariable
	}
	s := &Substitution{m: make(map[Lit]Lit, len(constants)*2+len(from)*2)}
	for _, lit := range constants {
		s.m[lit] = litTrue
		s.m[lit.Neg()] = litFalse
	}
	for i := range from {
		s.m[from[i]] = to[i]
		s.m[from[i].Neg()] = to[i].Neg()
	}
	return s, nil
}

// Get returns the literal lit maps to, if any.
func (s *Substitution) Get(lit Lit) (Lit, bool) {
	to, ok := s.m[lit]
	return to, ok
}

// Substitute rewrites every literal of ineq's left-hand side through sub and
// renormalizes (which folds any literal mapped to a constant into the degree,
// via the same FatInequality.Load path used by NewInequality). ineq must not be
// frozen yet. Grounded on constraints.hpp's InplaceIneqOps::substitute functor,
// adapted: the original leaves the constraint denormalized and relies on a
// caller-triggered expand() to fold constants; doing the fold inline here keeps
// the representation always normalized.
func (ineq *Inequality) Substitute(sub *Substitution) error {
	if ineq.frozen {
		return errFrozen
	}
	ineq.contract()
	terms := ineq.Terms()
	newTerms := make([]Term, len(terms))
	for i, t := range terms {
		lit := t.lit
		if to, ok := sub.Get(lit); ok {
			lit = to
		}
		newTerms[i] = Term{Coeff: t.coeff, Lit: lit}
	}
	replaced, err := NewInequality(newTerms, ineq.Degree())
	if err != nil {
		return err
	}
	*ineq = *replaced
	return nil
}
