package pbkernel

import "math/big"

// Implies is a conservative (sufficient but not complete) syntactic check for
// "ineq, taken alone, entails other": it computes the total weakening cost of
// turning ineq into other term-by-term and accepts whenever that cost doesn't
// exceed the degree slack between them. Grounded on constraints.hpp's
// InplaceIneqOps::implies functor.
func (ineq *Inequality) Implies(other *Inequality) bool {
	ineq.contract()
	other.contract()

	lookup := make(map[Var]termView, len(other.Terms()))
	for _, t := range other.Terms() {
		lookup[t.lit.Var()] = t
	}

	weakenCost := new(big.Int)
	for _, t := range ineq.Terms() {
		theirs, ok := lookup[t.lit.Var()]
		switch {
		case !ok:
			weakenCost.Add(weakenCost, t.coeff)
		case t.lit != theirs.lit:
			weakenCost.Add(weakenCost, t.coeff)
		case t.coeff.Cmp(theirs.coeff) > 0:
			// Only weakening the excess matters, and only if their coefficient
			// isn't already saturated to their degree (saturating further
			// would change nothing observable).
			if theirs.coeff.Cmp(other.Degree()) < 0 {
				weakenCost.Add(weakenCost, t.coeff)
				weakenCost.Sub(weakenCost, theirs.coeff)
			}
		}
	}

	weakenCost.Sub(weakenCost, ineq.Degree())
	weakenCost.Add(weakenCost, other.Degree())

	return weakenCost.Sign() <= 0
}
