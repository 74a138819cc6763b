package pbkernel

import (
	"math"
	"math/big"
	"sort"
)

// SmallCoeffMax is the largest coefficient or degree FixedIneqSmall can hold; it
// matches the spec's "32-bit coefficients" width. Arithmetic within a single
// FixedIneqSmall is carried out in int64 to give headroom against intermediate
// overflow, but every stored value is validated against this bound.
const SmallCoeffMax = math.MaxInt32

type smallTerm struct {
	coeff int64
	lit   Lit
}

// FixedIneqSmall is the 32-bit-coefficient fixed (immutable once frozen) PB
// inequality representation. See SPEC_FULL.md §3/§4.2 for the normalization
// invariants and watch-size formula.
type FixedIneqSmall struct {
	terms []smallTerm
	degree int64

	maxCoeff      int64
	watchSize     int
	enoughWatches bool

	markedForDeletion bool
	isReason          bool
}

// newFixedIneqSmall builds a normalized small inequality from raw (unsorted,
// possibly duplicate-by-variable after simplification elsewhere) terms. Callers
// must have already merged duplicate variables; NewInequalityFromCoeffsLitsDegree
// does that via FatInequality before calling this.
func newFixedIneqSmall(terms []smallTerm, degree int64) (*FixedIneqSmall, error) {
	if degree < 0 {
		return nil, ErrNegativeDegree
	}
	if degree > SmallCoeffMax {
		return nil, errCoeffOverflow(degree)
	}
	for _, t := range terms {
		if t.coeff <= 0 {
			return nil, ErrNonPositiveCoeff
		}
		if t.coeff > SmallCoeffMax {
			return nil, errCoeffOverflow(t.coeff)
		}
	}
	c := &FixedIneqSmall{terms: terms, degree: degree}
	c.computeWatchSize()
	return c, nil
}

func (c *FixedIneqSmall) Degree() *big.Int { return big.NewInt(c.degree) }

func (c *FixedIneqSmall) Terms() []termView {
	out := make([]termView, len(c.terms))
	for i, t := range c.terms {
		out[i] = termView{coeff: big.NewInt(t.coeff), lit: t.lit}
	}
	return out
}

func (c *FixedIneqSmall) String() string { return ineqString(c.Terms(), c.Degree()) }

// IsClause reports whether this inequality is the special case of a clause: unit
// coefficients and degree 1. Inequality.contract() stores such constraints as a
// Clause instead of a FixedIneqSmall (SPEC_FULL.md §9).
func (c *FixedIneqSmall) IsClause() bool {
	if c.degree != 1 {
		return false
	}
	for _, t := range c.terms {
		if t.coeff != 1 {
			return false
		}
	}
	return true
}

func (c *FixedIneqSmall) computeWatchSize() {
	if len(c.terms) == 0 {
		return
	}
	sort.Slice(c.terms, func(i, j int) bool { return c.terms[i].coeff < c.terms[j].coeff })
	c.maxCoeff = c.terms[len(c.terms)-1].coeff

	value := -c.degree
	i := 0
	for ; i < len(c.terms); i++ {
		value += c.terms[i].coeff
		if value >= c.maxCoeff {
			i++
			break
		}
	}
	c.watchSize = i
	c.enoughWatches = value >= c.maxCoeff
}

// IsPropagatingAt0 reports whether this constraint already forces a literal (or
// conflicts) under the empty assignment, so PropagatorGroup can replay it
// immediately on activation (SPEC_FULL.md §4.2, §4.7).
func (c *FixedIneqSmall) IsPropagatingAt0() bool {
	if len(c.terms) == 0 {
		return c.degree > 0
	}
	value := -c.degree
	for i := 0; i < len(c.terms); i++ {
		value += c.terms[i].coeff
		if value >= c.maxCoeff {
			break
		}
	}
	return value < c.maxCoeff
}

type smallIneqWatch struct {
	ineq *FixedIneqSmall
}

// IneqPropagatorSmall implements watched-literal propagation for FixedIneqSmall
// constraints (SPEC_FULL.md §4.2).
type IneqPropagatorSmall struct {
	pm        *PropagationMaster
	watchlist [][]smallIneqWatch
	qhead     int
}

func NewIneqPropagatorSmall(pm *PropagationMaster, nVars int) *IneqPropagatorSmall {
	p := &IneqPropagatorSmall{pm: pm}
	p.IncreaseNumVarsTo(nVars)
	return p
}

func (p *IneqPropagatorSmall) IncreaseNumVarsTo(nVars int) {
	need := 2 * (nVars + 1)
	if len(p.watchlist) >= need {
		return
	}
	grown := make([][]smallIneqWatch, need)
	copy(grown, p.watchlist)
	p.watchlist = grown
}

func (p *IneqPropagatorSmall) Reset(pos int) {
	if p.qhead > pos {
		p.qhead = pos
	}
}

func (p *IneqPropagatorSmall) CleanupWatches() {
	for lit, ws := range p.watchlist {
		if len(ws) == 0 {
			continue
		}
		kept := ws[:0]
		for _, w := range ws {
			if !w.ineq.markedForDeletion {
				kept = append(kept, w)
			}
		}
		p.watchlist[lit] = kept
	}
}

func (p *IneqPropagatorSmall) watch(lit Lit, ineq *FixedIneqSmall) {
	p.watchlist[lit] = append(p.watchlist[lit], smallIneqWatch{ineq: ineq})
}

func (p *IneqPropagatorSmall) removeWatch(lit Lit, ineq *FixedIneqSmall) {
	ws := p.watchlist[lit]
	for i, w := range ws {
		if w.ineq == ineq {
			ws[i] = ws[len(ws)-1]
			p.watchlist[lit] = ws[:len(ws)-1]
			return
		}
	}
}

// InitWatch installs the watched prefix and immediately evaluates it against the
// current assignment (which may enqueue literals or record a conflict if the
// constraint already propagates at this assignment).
func (c *FixedIneqSmall) InitWatch(p *IneqPropagatorSmall) {
	if c.watchSize == 0 && len(c.terms) > 0 {
		c.computeWatchSize()
	}
	c.fixWatch(p, LitUndef, true)
}

// UpdateWatch is called when falsifiedLit (a currently watched literal) has just
// become False.
func (c *FixedIneqSmall) UpdateWatch(p *IneqPropagatorSmall, falsifiedLit Lit) bool {
	return c.fixWatch(p, falsifiedLit, false)
}

// fixWatch implements SPEC_FULL.md §4.2's updateWatch procedure: scan the watched
// prefix, replace any falsified watch with a non-falsified literal from the
// unwatched suffix (preferring one whose last phase was True), and when a watched
// position can't be replaced, fall back to computing slack to detect conflict or
// propagation. The blocking-literal short-circuit from the original is omitted as
// a performance-only optimization (DESIGN.md); slack is instead computed whenever
// enoughWatches is false or a replacement search fails.
func (c *FixedIneqSmall) fixWatch(p *IneqPropagatorSmall, falsifiedLit Lit, init bool) bool {
	if c.markedForDeletion {
		return false
	}
	value := p.pm.Assignment().Raw()
	phase := p.pm.Phase().Raw()

	keepWatch := true
	computeSlack := !c.enoughWatches
	var slack int64
	if computeSlack {
		slack = -c.degree
	}

	j := c.watchSize
	for i := 0; i < c.watchSize; i++ {
		lit := c.terms[i].lit
		if value[lit] != False {
			if computeSlack {
				slack += c.terms[i].coeff
			}
			if init {
				p.watch(lit, c)
			}
			continue
		}

		// lit is falsified: look for a replacement, preferring the caller's
		// last-assigned phase among candidates.
		replaced := -1
		best := -1
		for k := j; k < len(c.terms); k++ {
			if value[c.terms[k].lit] == False {
				continue
			}
			if best == -1 {
				best = k
			}
			if phase[c.terms[k].lit] == True {
				best = k
				break
			}
		}
		if best != -1 {
			replaced = best
		}

		if replaced != -1 {
			old := lit
			if old != falsifiedLit && !init {
				p.removeWatch(old, c)
			} else {
				keepWatch = false
			}
			c.terms[i], c.terms[replaced] = c.terms[replaced], c.terms[i]
			p.watch(c.terms[i].lit, c)
			if computeSlack {
				slack += c.terms[i].coeff
			}
			if replaced == j {
				j++
			}
			continue
		}

		// No replacement: this watched position stays falsified.
		if !computeSlack {
			computeSlack = true
			slack = -c.degree
			for l := 0; l < i; l++ {
				slack += c.terms[l].coeff
			}
		}
		if lit == falsifiedLit {
			keepWatch = false
		}
	}

	if computeSlack {
		if slack < 0 {
			p.pm.Conflict(&smallIneqReason{ineq: c, prop: p})
		} else if slack < c.maxCoeff {
			for i := 0; i < c.watchSize; i++ {
				if c.terms[i].coeff > slack && value[c.terms[i].lit] == Unassigned {
					p.pm.Enqueue(c.terms[i].lit, &smallIneqReason{ineq: c, prop: p})
				}
			}
		}
	}

	return keepWatch
}

// ClearWatches removes every watch-list entry this constraint installed; used
// when detaching (the RUP auxiliary propagator retires its negated constraint
// through FixedIneqBig.ClearWatches instead, SPEC_FULL.md §4.8).
func (c *FixedIneqSmall) ClearWatches(p *IneqPropagatorSmall) {
	for i := 0; i < c.watchSize && i < len(c.terms); i++ {
		p.removeWatch(c.terms[i].lit, c)
	}
}

// Propagate drains newly-assigned trail entries and updates every inequality
// watching the literal that just became false.
func (p *IneqPropagatorSmall) Propagate() {
	trail := p.pm.Trail()
	for ; p.qhead < len(trail); p.qhead++ {
		falsified := trail[p.qhead].Neg()
		ws := p.watchlist[falsified]
		kept := ws[:0]
		for i := 0; i < len(ws); i++ {
			w := ws[i]
			if w.ineq.UpdateWatch(p, falsified) {
				kept = append(kept, w)
			}
			if p.pm.IsConflicting() {
				kept = append(kept, ws[i+1:]...)
				break
			}
		}
		p.watchlist[falsified] = kept
		if p.pm.IsConflicting() {
			return
		}
	}
}

type smallIneqReason struct {
	ineq *FixedIneqSmall
	prop *IneqPropagatorSmall
}

func (r *smallIneqReason) RePropagate()            { r.ineq.UpdateWatch(r.prop, LitUndef) }
func (r *smallIneqReason) IsMarkedForDeletion() bool { return r.ineq.markedForDeletion }
func (r *smallIneqReason) SetIsReason()              { r.ineq.isReason = true }
func (r *smallIneqReason) UnsetIsReason()            { r.ineq.isReason = false }
func (r *smallIneqReason) String() string            { return r.ineq.String() }
