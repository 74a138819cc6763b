package pbkernel

import (
	"math/big"
	"sort"
)

type bigTerm struct {
	coeff *big.Int
	lit   Lit
}

// FixedIneqBig is the arbitrary-precision counterpart of FixedIneqSmall, used
// when a constraint's coefficients or degree don't fit the 32-bit small
// representation (SPEC_FULL.md §3/§4.2). Its watch/propagation algorithm is
// identical to FixedIneqSmall's; only the coefficient arithmetic differs.
type FixedIneqBig struct {
	terms  []bigTerm
	degree *big.Int

	maxCoeff      *big.Int
	watchSize     int
	enoughWatches bool

	markedForDeletion bool
	isReason          bool
}

func newFixedIneqBig(terms []bigTerm, degree *big.Int) (*FixedIneqBig, error) {
	if degree.Sign() < 0 {
		return nil, ErrNegativeDegree
	}
	for _, t := range terms {
		if t.coeff.Sign() <= 0 {
			return nil, ErrNonPositiveCoeff
		}
	}
	c := &FixedIneqBig{terms: terms, degree: new(big.Int).Set(degree)}
	c.computeWatchSize()
	return c, nil
}

func (c *FixedIneqBig) Degree() *big.Int { return c.degree }

func (c *FixedIneqBig) Terms() []termView {
	out := make([]termView, len(c.terms))
	for i, t := range c.terms {
		out[i] = termView{coeff: t.coeff, lit: t.lit}
	}
	return out
}

func (c *FixedIneqBig) String() string { return ineqString(c.Terms(), c.Degree()) }

// IsClause mirrors FixedIneqSmall.IsClause. contract() never stores a
// clause-shaped constraint as a FixedIneqBig, but RupCheck builds its negated
// candidate as a FixedIneqBig whatever its shape, so one can be clause-shaped.
func (c *FixedIneqBig) IsClause() bool {
	if c.degree.Cmp(bigOne) != 0 {
		return false
	}
	for _, t := range c.terms {
		if t.coeff.Cmp(bigOne) != 0 {
			return false
		}
	}
	return true
}

var bigOne = big.NewInt(1)

func (c *FixedIneqBig) computeWatchSize() {
	if len(c.terms) == 0 {
		c.maxCoeff = new(big.Int)
		return
	}
	sort.Slice(c.terms, func(i, j int) bool { return c.terms[i].coeff.Cmp(c.terms[j].coeff) < 0 })
	c.maxCoeff = c.terms[len(c.terms)-1].coeff

	value := new(big.Int).Neg(c.degree)
	i := 0
	for ; i < len(c.terms); i++ {
		value.Add(value, c.terms[i].coeff)
		if value.Cmp(c.maxCoeff) >= 0 {
			i++
			break
		}
	}
	c.watchSize = i
	c.enoughWatches = value.Cmp(c.maxCoeff) >= 0
}

// IsPropagatingAt0 mirrors FixedIneqSmall.IsPropagatingAt0.
func (c *FixedIneqBig) IsPropagatingAt0() bool {
	if len(c.terms) == 0 {
		return c.degree.Sign() > 0
	}
	value := new(big.Int).Neg(c.degree)
	for i := 0; i < len(c.terms); i++ {
		value.Add(value, c.terms[i].coeff)
		if value.Cmp(c.maxCoeff) >= 0 {
			break
		}
	}
	return value.Cmp(c.maxCoeff) < 0
}

type bigIneqWatch struct {
	ineq *FixedIneqBig
}

// IneqPropagatorBig is the arbitrary-precision counterpart of
// IneqPropagatorSmall.
type IneqPropagatorBig struct {
	pm        *PropagationMaster
	watchlist [][]bigIneqWatch
	qhead     int
}

func NewIneqPropagatorBig(pm *PropagationMaster, nVars int) *IneqPropagatorBig {
	p := &IneqPropagatorBig{pm: pm}
	p.IncreaseNumVarsTo(nVars)
	return p
}

func (p *IneqPropagatorBig) IncreaseNumVarsTo(nVars int) {
	need := 2 * (nVars + 1)
	if len(p.watchlist) >= need {
		return
	}
	grown := make([][]bigIneqWatch, need)
	copy(grown, p.watchlist)
	p.watchlist = grown
}

func (p *IneqPropagatorBig) Reset(pos int) {
	if p.qhead > pos {
		p.qhead = pos
	}
}

func (p *IneqPropagatorBig) CleanupWatches() {
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

func (p *IneqPropagatorBig) watch(lit Lit, ineq *FixedIneqBig) {
	p.watchlist[lit] = append(p.watchlist[lit], bigIneqWatch{ineq: ineq})
}

func (p *IneqPropagatorBig) removeWatch(lit Lit, ineq *FixedIneqBig) {
	ws := p.watchlist[lit]
	for i, w := range ws {
		if w.ineq == ineq {
			ws[i] = ws[len(ws)-1]
			p.watchlist[lit] = ws[:len(ws)-1]
			return
		}
	}
}

func (c *FixedIneqBig) InitWatch(p *IneqPropagatorBig) {
	if c.watchSize == 0 && len(c.terms) > 0 {
		c.computeWatchSize()
	}
	c.fixWatch(p, LitUndef, true)
}

func (c *FixedIneqBig) UpdateWatch(p *IneqPropagatorBig, falsifiedLit Lit) bool {
	return c.fixWatch(p, falsifiedLit, false)
}

// fixWatch is FixedIneqSmall.fixWatch's arithmetic twin; see that function's doc
// comment for the algorithm description.
func (c *FixedIneqBig) fixWatch(p *IneqPropagatorBig, falsifiedLit Lit, init bool) bool {
	if c.markedForDeletion {
		return false
	}
	value := p.pm.Assignment().Raw()
	phase := p.pm.Phase().Raw()

	keepWatch := true
	computeSlack := !c.enoughWatches
	slack := new(big.Int)
	if computeSlack {
		slack.Neg(c.degree)
	}

	j := c.watchSize
	for i := 0; i < c.watchSize; i++ {
		lit := c.terms[i].lit
		if value[lit] != False {
			if computeSlack {
				slack.Add(slack, c.terms[i].coeff)
			}
			if init {
				p.watch(lit, c)
			}
			continue
		}

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
				slack.Add(slack, c.terms[i].coeff)
			}
			if replaced == j {
				j++
			}
			continue
		}

		if !computeSlack {
			computeSlack = true
			slack = new(big.Int).Neg(c.degree)
			for l := 0; l < i; l++ {
				slack.Add(slack, c.terms[l].coeff)
			}
		}
		if lit == falsifiedLit {
			keepWatch = false
		}
	}

	if computeSlack {
		if slack.Sign() < 0 {
			p.pm.Conflict(&bigIneqReason{ineq: c, prop: p})
		} else if slack.Cmp(c.maxCoeff) < 0 {
			for i := 0; i < c.watchSize; i++ {
				if c.terms[i].coeff.Cmp(slack) > 0 && value[c.terms[i].lit] == Unassigned {
					p.pm.Enqueue(c.terms[i].lit, &bigIneqReason{ineq: c, prop: p})
				}
			}
		}
	}

	return keepWatch
}

func (c *FixedIneqBig) ClearWatches(p *IneqPropagatorBig) {
	for i := 0; i < c.watchSize && i < len(c.terms); i++ {
		p.removeWatch(c.terms[i].lit, c)
	}
}

func (p *IneqPropagatorBig) Propagate() {
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

type bigIneqReason struct {
	ineq *FixedIneqBig
	prop *IneqPropagatorBig
}

func (r *bigIneqReason) RePropagate()              { r.ineq.UpdateWatch(r.prop, LitUndef) }
func (r *bigIneqReason) IsMarkedForDeletion() bool { return r.ineq.markedForDeletion }
func (r *bigIneqReason) SetIsReason()              { r.ineq.isReason = true }
func (r *bigIneqReason) UnsetIsReason()            { r.ineq.isReason = false }
func (r *bigIneqReason) String() string            { return r.ineq.String() }
