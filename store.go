package pbkernel

import (
	"math/big"
	"sort"

	"github.com/mitchellh/hashstructure"
)

// Term is a single a*l summand of a constraint's left-hand side, as supplied by
// callers building a fresh Inequality.
type Term struct {
	Coeff *big.Int
	Lit   Lit
}

// noMinID marks an Inequality's minID as unset, mirroring constraints.hpp's use
// of numeric_limits<uint64_t>::max() for the same purpose.
const noMinID = ^uint64(0)

type reprKind uint8

const (
	reprClause reprKind = iota
	reprSmall
	reprBig
)

// Inequality is the constraint façade: while being built or algebraically
// combined (add/multiply/divide/saturate/weaken/substitute/negate) it operates
// through its own FatInequality scratch buffer ("expanded"); once Freeze is
// called it contracts to whichever fixed representation fits (Clause when the
// constraint is coefficient-free and degree 1, otherwise FixedIneqSmall or
// FixedIneqBig) for attachment to a PropEngine. This mirrors the
// expand()/contract() pair on constraints.hpp's Inequality<T>, minus the fat
// buffer pool (Go's GC makes pooling unnecessary here).
type Inequality struct {
	fat *FatInequality

	kind  reprKind
	cls   *Clause
	small *FixedIneqSmall
	big   *FixedIneqBig

	frozen      bool
	isAttached  bool
	wasAttached bool
	isCore      bool
	ids         map[uint64]struct{}
	minID       uint64
	attachCount int

	// groupState is owned by whichever PropagatorGroup currently holds this
	// constraint (SPEC_FULL.md §4.7); NewInequality leaves it at its zero value
	// (stateUnhandled) until Add places it in a group.
	groupState groupLifecycle
}

// NewInequality builds a normalized constraint from raw terms and a degree.
// Terms may repeat a variable or be given in any order; normalization
// (duplicate-variable cancellation, folding of the reserved constant variable
// into the degree) happens via a FatInequality round-trip, exactly as
// constraints.hpp's Inequality(terms, degree) constructor does by calling
// normalize() immediately.
func NewInequality(terms []Term, degree *big.Int) (*Inequality, error) {
	if degree.Sign() < 0 {
		return nil, ErrNegativeDegree
	}
	for _, t := range terms {
		if t.Coeff.Sign() <= 0 {
			return nil, ErrNonPositiveCoeff
		}
	}
	ineq := &Inequality{ids: make(map[uint64]struct{}), minID: noMinID}
	fat := NewFatInequality()
	fat.Load(&rawView{terms: terms, degree: degree})
	ineq.fat = fat
	if err := ineq.contract(); err != nil {
		return nil, err
	}
	return ineq, nil
}

// NewInequalityFromCoeffsLitsDegree builds a detached inequality from parallel
// coefficient/literal slices and an int64 degree, converting each signed
// literal via FromSigned before delegating to NewInequality. coeffs and lits
// must have the same length.
func NewInequalityFromCoeffsLitsDegree(coeffs []int64, lits []int, degree int64) (*Inequality, error) {
	if len(coeffs) != len(lits) {
		return nil, ErrBadVariable
	}
	terms := make([]Term, len(coeffs))
	for i, c := range coeffs {
		l, err := FromSigned(lits[i])
		if err != nil {
			return nil, err
		}
		terms[i] = Term{Coeff: big.NewInt(c), Lit: l}
	}
	return NewInequality(terms, big.NewInt(degree))
}

// NewBigInequality is NewInequalityFromCoeffsLitsDegree's arbitrary-precision
// counterpart, for coefficients or a degree too wide for int64.
func NewBigInequality(coeffs []*big.Int, lits []int, degree *big.Int) (*Inequality, error) {
	if len(coeffs) != len(lits) {
		return nil, ErrBadVariable
	}
	terms := make([]Term, len(coeffs))
	for i, c := range coeffs {
		l, err := FromSigned(lits[i])
		if err != nil {
			return nil, err
		}
		terms[i] = Term{Coeff: c, Lit: l}
	}
	return NewInequality(terms, degree)
}

// rawView adapts a caller-supplied []Term/degree pair to constraintView so
// FatInequality.Load can normalize it the same way it normalizes an already-
// fixed representation.
type rawView struct {
	terms  []Term
	degree *big.Int
}

func (v *rawView) Degree() *big.Int { return v.degree }
func (v *rawView) Terms() []termView {
	out := make([]termView, len(v.terms))
	for i, t := range v.terms {
		out[i] = termView{coeff: t.Coeff, lit: t.Lit}
	}
	return out
}

// expand loads the current fixed representation into a freshly allocated fat
// buffer, if it isn't already loaded, so algebraic operations can mutate it. Mirrors
// Inequality::expand().
func (ineq *Inequality) expand() {
	if ineq.fat != nil {
		return
	}
	fat := NewFatInequality()
	switch ineq.kind {
	case reprClause:
		fat.Load(clauseView{ineq.cls})
	case reprSmall:
		fat.Load(ineq.small)
	case reprBig:
		fat.Load(ineq.big)
	}
	ineq.fat = fat
	ineq.cls, ineq.small, ineq.big = nil, nil, nil
}

// clauseView adapts a Clause to constraintView for the expand() round-trip.
type clauseView struct{ c *Clause }

func (v clauseView) Degree() *big.Int { return bigOne }
func (v clauseView) Terms() []termView {
	lits := v.c.Lits()
	out := make([]termView, len(lits))
	for i, l := range lits {
		out[i] = termView{coeff: bigOne, lit: l}
	}
	return out
}

// contract unloads the fat buffer back into the smallest fixed representation
// that fits: a Clause if every coefficient and the degree are 1, FixedIneqSmall
// if everything fits the 32-bit width, otherwise FixedIneqBig. Mirrors
// Inequality::contract().
func (ineq *Inequality) contract() error {
	if ineq.fat == nil {
		return nil
	}
	terms, degree := ineq.fat.Unload()
	ineq.fat = nil

	// A non-positive degree makes the constraint trivially satisfied by every
	// assignment regardless of its terms (SPEC_FULL.md §9 "Degree sign"): drop
	// every term and normalize the degree to 0 so every fixed representation's
	// own degree validation accepts it, rather than carrying a negative degree
	// (e.g. produced by Weaken) into a representation that will reject it.
	if degree.Sign() <= 0 {
		sm, err := newFixedIneqSmall(nil, 0)
		if err != nil {
			return err
		}
		ineq.kind = reprSmall
		ineq.small = sm
		return nil
	}

	allUnit := degree.Cmp(bigOne) == 0
	if allUnit {
		for _, t := range terms {
			if t.coeff.Cmp(bigOne) != 0 {
				allUnit = false
				break
			}
		}
	}
	if allUnit {
		lits := make([]Lit, len(terms))
		for i, t := range terms {
			lits[i] = NewLit(t.v, t.neg)
		}
		ineq.kind = reprClause
		ineq.cls = NewClause(lits)
		return nil
	}

	fitsSmall := degree.IsInt64() && degree.Int64() <= SmallCoeffMax
	if fitsSmall {
		small := make([]smallTerm, len(terms))
		for i, t := range terms {
			if !t.coeff.IsInt64() || t.coeff.Int64() > SmallCoeffMax {
				fitsSmall = false
				break
			}
			small[i] = smallTerm{coeff: t.coeff.Int64(), lit: NewLit(t.v, t.neg)}
		}
		if fitsSmall {
			sm, err := newFixedIneqSmall(small, degree.Int64())
			if err != nil {
				return err
			}
			ineq.kind = reprSmall
			ineq.small = sm
			return nil
		}
	}

	bigTerms := make([]bigTerm, len(terms))
	for i, t := range terms {
		bigTerms[i] = bigTerm{coeff: t.coeff, lit: NewLit(t.v, t.neg)}
	}
	bg, err := newFixedIneqBig(bigTerms, degree)
	if err != nil {
		return err
	}
	ineq.kind = reprBig
	ineq.big = bg
	return nil
}

func (ineq *Inequality) view() constraintView {
	switch ineq.kind {
	case reprClause:
		return clauseView{ineq.cls}
	case reprSmall:
		return ineq.small
	default:
		return ineq.big
	}
}

// Degree returns the constraint's current right-hand-side degree.
func (ineq *Inequality) Degree() *big.Int {
	if ineq.fat != nil {
		return ineq.fat.degree
	}
	return ineq.view().Degree()
}

// Terms returns the constraint's current left-hand-side terms.
func (ineq *Inequality) Terms() []termView {
	if ineq.fat != nil {
		terms := make([]termView, 0, len(ineq.fat.usedList))
		for _, v := range ineq.fat.usedList {
			c := ineq.fat.coeffs[v]
			if c.Sign() == 0 {
				continue
			}
			neg := c.Sign() < 0
			terms = append(terms, termView{coeff: new(big.Int).Abs(c), lit: NewLit(v, neg)})
		}
		return terms
	}
	return ineq.view().Terms()
}

func (ineq *Inequality) String() string { return ineqString(ineq.Terms(), ineq.Degree()) }

// Add adds other's terms and degree onto ineq (ineq must not be frozen).
func (ineq *Inequality) Add(other *Inequality) error {
	if ineq.frozen {
		return errFrozen
	}
	ineq.expand()
	other.contract()
	ineq.fat.Add(other.view())
	return nil
}

// Multiply scales every coefficient and the degree by factor (>= 1).
func (ineq *Inequality) Multiply(factor *big.Int) error {
	if ineq.frozen {
		return errFrozen
	}
	ineq.expand()
	ineq.fat.Multiply(factor)
	return nil
}

// Divide performs division-with-round-up on every coefficient and the degree.
func (ineq *Inequality) Divide(d *big.Int) error {
	if ineq.frozen {
		return errFrozen
	}
	ineq.contract()
	ineq.expand()
	ineq.fat.Divide(d)
	if err := ineq.contract(); err != nil {
		return err
	}
	return nil
}

// Saturate clips every coefficient to at most the degree.
func (ineq *Inequality) Saturate() error {
	if ineq.frozen {
		return errFrozen
	}
	ineq.contract()
	ineq.expand()
	ineq.fat.Saturate()
	if err := ineq.contract(); err != nil {
		return err
	}
	return nil
}

// Weaken drops v's term entirely, subtracting its absolute coefficient from the
// degree.
func (ineq *Inequality) Weaken(v Var) error {
	if ineq.frozen {
		return errFrozen
	}
	ineq.expand()
	ineq.fat.Weaken(v)
	return nil
}

// Negated replaces ineq with its logical negation (SPEC_FULL.md §4.8): flips
// every literal and sets the new degree to (sum of coefficients) - degree + 1.
func (ineq *Inequality) Negated() error {
	if ineq.frozen {
		return errFrozen
	}
	ineq.expand()
	sum := new(big.Int)
	for _, v := range ineq.fat.usedList {
		sum.Add(sum, new(big.Int).Abs(ineq.fat.coeffs[v]))
	}
	newDegree := new(big.Int).Sub(sum, ineq.fat.degree)
	newDegree.Add(newDegree, bigOne)
	for _, v := range ineq.fat.usedList {
		c := ineq.fat.coeffs[v]
		c.Neg(c)
	}
	ineq.fat.degree = newDegree
	return nil
}

// Copy returns an independent, unfrozen copy of ineq's terms and degree; ineq
// itself may be frozen (RupCheck and ComputeEffected copy attached constraints).
func (ineq *Inequality) Copy() (*Inequality, error) {
	ineq.contract()
	terms := ineq.Terms()
	rawTerms := make([]Term, len(terms))
	for i, t := range terms {
		rawTerms[i] = Term{Coeff: new(big.Int).Set(t.coeff), Lit: t.lit}
	}
	return NewInequality(rawTerms, new(big.Int).Set(ineq.Degree()))
}

// IsContradiction reports whether the constraint is unsatisfiable independent of
// any assignment (degree exceeds the sum of all coefficients).
func (ineq *Inequality) IsContradiction() bool {
	ineq.contract()
	sum := new(big.Int)
	for _, t := range ineq.Terms() {
		sum.Add(sum, t.coeff)
	}
	return sum.Cmp(ineq.Degree()) < 0
}

// IsTrivial reports whether the constraint is satisfied by every assignment
// (degree is at most zero).
func (ineq *Inequality) IsTrivial() bool {
	ineq.contract()
	return ineq.Degree().Sign() <= 0
}

// Freeze downgrades the constraint to a Clause when it is coefficient-free and
// degree 1, and marks it immutable; it must be called before attaching to a
// PropEngine. Mirrors Inequality::freeze(). Returns contract()'s error, if any,
// without marking the constraint frozen: a half-contracted Inequality (kind set
// but its representation pointer nil) must never be handed to a PropagatorGroup.
func (ineq *Inequality) Freeze() error {
	if ineq.frozen {
		return nil
	}
	if err := ineq.contract(); err != nil {
		return err
	}
	ineq.frozen = true
	return nil
}

// IsPropagatingAt0 reports whether the frozen constraint already forces a
// literal, or conflicts, under the empty assignment.
func (ineq *Inequality) IsPropagatingAt0() bool {
	switch ineq.kind {
	case reprClause:
		return len(ineq.cls.Lits()) <= 1
	case reprSmall:
		return ineq.small.IsPropagatingAt0()
	default:
		return ineq.big.IsPropagatingAt0()
	}
}

// IsSAT reports whether assignment satisfies the constraint: the sum of
// coefficients of its currently-true literals meets or exceeds the degree.
// Unassigned literals contribute nothing, so a complete assignment is
// required for a meaningful answer on a constraint that still has
// unassigned terms.
func (ineq *Inequality) IsSAT(assignment *Assignment) bool {
	ineq.contract()
	sum := new(big.Int)
	for _, t := range ineq.Terms() {
		if assignment.Value(t.lit) == True {
			sum.Add(sum, t.coeff)
		}
	}
	return sum.Cmp(ineq.Degree()) >= 0
}

// isMarkedReason reports whether the constraint's current fixed representation
// is presently serving as some trail entry's reason (set by the owning
// Reason's SetIsReason/UnsetIsReason, not by this façade directly).
func (ineq *Inequality) isMarkedReason() bool {
	switch ineq.kind {
	case reprClause:
		return ineq.cls.isReason
	case reprSmall:
		return ineq.small.isReason
	default:
		return ineq.big.isReason
	}
}

// setMarkedForDeletion flags the constraint's current fixed representation so
// that watch-list compaction (ClausePropagator/IneqPropagatorSmall/Big's
// Propagate) drops any watch entry still pointing at it, and so that
// IsTrailClean notices it while it is still a trail reason. Detach removes the
// watches it knows about eagerly (PropagatorGroup.Remove) before setting this.
func (ineq *Inequality) setMarkedForDeletion() {
	switch ineq.kind {
	case reprClause:
		ineq.cls.markedForDeletion = true
	case reprSmall:
		ineq.small.markedForDeletion = true
	default:
		ineq.big.markedForDeletion = true
	}
}

// hashKey is the canonical, order-independent representation hashed to detect
// semantically duplicate constraints (constraints.hpp's std::hash<Inequality>).
type hashKey struct {
	Degree string
	Terms  []string
}

// Hash returns a content hash over the constraint's normalized terms and
// degree, suitable for a dedup set keyed by semantic equality rather than
// pointer identity.
func (ineq *Inequality) Hash() (uint64, error) {
	ineq.contract()
	terms := ineq.Terms()
	key := hashKey{Degree: ineq.Degree().String(), Terms: make([]string, len(terms))}
	for i, t := range terms {
		key.Terms[i] = t.coeff.String() + "#" + t.lit.String()
	}
	sort.Strings(key.Terms)
	return hashstructure.Hash(key, nil)
}

// Eq reports whether ineq and other are the same normalized constraint
// (same terms up to ordering, same degree).
func (ineq *Inequality) Eq(other *Inequality) bool {
	ha, err := ineq.Hash()
	if err != nil {
		return false
	}
	hb, err := other.Hash()
	if err != nil {
		return false
	}
	if ha != hb {
		return false
	}
	at, bt := ineq.Terms(), other.Terms()
	if len(at) != len(bt) {
		return false
	}
	lookup := make(map[Lit]*big.Int, len(at))
	for _, t := range at {
		lookup[t.lit] = t.coeff
	}
	for _, t := range bt {
		c, ok := lookup[t.lit]
		if !ok || c.Cmp(t.coeff) != 0 {
			return false
		}
	}
	return ineq.Degree().Cmp(other.Degree()) == 0
}
