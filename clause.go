package pbkernel

// Clause is a coefficient-free PB constraint (degree 1, unit coefficients): a
// disjunction of literals. The first two entries of lits are always the watched
// pair; searchStart is a rotating cursor into the remainder used to speed up the
// next replacement search, mirroring cespare/saturday's bcp watch-replacement
// loop generalized into its own propagator.
type Clause struct {
	lits        []Lit
	searchStart int

	markedForDeletion bool
	isReason          bool
}

// NewClause builds a detached clause from already-deduplicated, non-tautological
// literals. Callers normalize (dedup, drop tautologies) before constructing.
func NewClause(lits []Lit) *Clause {
	return &Clause{lits: append([]Lit(nil), lits...)}
}

// Lits returns the clause's literals in no particular order beyond "the first two
// are watched".
func (c *Clause) Lits() []Lit { return c.lits }

func (c *Clause) String() string {
	s := "("
	for i, l := range c.lits {
		if i > 0 {
			s += " | "
		}
		s += l.String()
	}
	return s + ")"
}

type clauseWatch struct {
	cls      *Clause
	blocking Lit
}

// ClausePropagator implements two-watched-literal unit propagation for clauses.
type ClausePropagator struct {
	pm        *PropagationMaster
	watchlist [][]clauseWatch
	qhead     int
}

// NewClausePropagator allocates a propagator for variables 1..=nVars.
func NewClausePropagator(pm *PropagationMaster, nVars int) *ClausePropagator {
	p := &ClausePropagator{pm: pm}
	p.IncreaseNumVarsTo(nVars)
	return p
}

func (p *ClausePropagator) IncreaseNumVarsTo(nVars int) {
	need := 2 * (nVars + 1)
	if len(p.watchlist) >= need {
		return
	}
	grown := make([][]clauseWatch, need)
	copy(grown, p.watchlist)
	p.watchlist = grown
}

func (p *ClausePropagator) Reset(pos int) {
	if p.qhead > pos {
		p.qhead = pos
	}
}

// CleanupWatches drops watch-list entries for clauses marked for deletion.
func (p *ClausePropagator) CleanupWatches() {
	for lit, ws := range p.watchlist {
		if len(ws) == 0 {
			continue
		}
		kept := ws[:0]
		for _, w := range ws {
			if !w.cls.markedForDeletion {
				kept = append(kept, w)
			}
		}
		p.watchlist[lit] = kept
	}
}

func (p *ClausePropagator) watch(lit Lit, w clauseWatch) {
	p.watchlist[lit] = append(p.watchlist[lit], w)
}

// InitWatch installs the initial watched pair for c, choosing (if possible) two
// non-falsified literals; if fewer than two non-falsified literals exist it falls
// back to watching what's available, which is exactly the state updateWatch needs
// to detect a conflict or unit propagation on the next call.
func (c *Clause) InitWatch(p *ClausePropagator) {
	value := p.pm.Assignment().Raw()

	// Prefer non-falsified literals, phase-guided among ties, for the watched
	// pair, same spirit as FixedIneq's phase-guided initial watch (SPEC_FULL §4.2).
	placeAt := func(slot int) {
		phase := p.pm.Phase().Raw()
		best := slot
		for i := slot; i < len(c.lits); i++ {
			if value[c.lits[i]] == False {
				continue
			}
			if i == slot {
				best = i
				break
			}
			if phase[c.lits[i]] == True && value[c.lits[i]] != False {
				best = i
				break
			}
			if best == slot {
				best = i
			}
		}
		c.lits[slot], c.lits[best] = c.lits[best], c.lits[slot]
	}
	if len(c.lits) >= 1 {
		placeAt(0)
	}
	if len(c.lits) >= 2 {
		placeAt(1)
	}

	if len(c.lits) >= 1 {
		p.watch(c.lits[0], clauseWatch{cls: c, blocking: litOrUndef(c.lits, 1)})
	}
	if len(c.lits) >= 2 {
		p.watch(c.lits[1], clauseWatch{cls: c, blocking: litOrUndef(c.lits, 0)})
	}

	c.checkUnitOrConflict(p)
}

func litOrUndef(lits []Lit, i int) Lit {
	if i < len(lits) {
		return lits[i]
	}
	return LitUndef
}

// checkUnitOrConflict is called right after (re)installing watches, to catch the
// case where the clause is already unit or already falsified under the current
// assignment (propagation-at-0, SPEC_FULL §4.2).
func (c *Clause) checkUnitOrConflict(p *ClausePropagator) {
	value := p.pm.Assignment().Raw()
	nonFalse := 0
	var unit Lit
	for _, l := range c.lits {
		if value[l] != False {
			nonFalse++
			unit = l
		}
	}
	switch {
	case nonFalse == 0:
		p.pm.Conflict(&clauseReason{cls: c, prop: p})
	case nonFalse == 1 && value[unit] == Unassigned:
		p.pm.Enqueue(unit, &clauseReason{cls: c, prop: p})
	}
}

// UpdateWatch is called when falsifiedLit (one of the clause's two watched
// literals) has just become False. It looks for a replacement watch among the
// unwatched literals, rotating the search start so repeated calls don't always
// rescan from the front; if none exists the clause is unit (possibly conflicting)
// on its other watched literal.
func (c *Clause) UpdateWatch(p *ClausePropagator, falsifiedLit Lit) bool {
	if c.markedForDeletion {
		return false
	}
	value := p.pm.Assignment().Raw()

	// Canonicalize so lits[1] is the falsified watch and lits[0] is the other.
	if c.lits[0] == falsifiedLit {
		c.lits[0], c.lits[1] = c.lits[1], c.lits[0]
	}
	if c.lits[1] != falsifiedLit {
		panic("clause watch invariant violated: falsifiedLit is not a watched literal")
	}
	if value[c.lits[0]] == True {
		// Blocking literal already satisfies the clause.
		return true
	}

	n := len(c.lits)
	for step := 0; step < n-2; step++ {
		j := 2 + (c.searchStart+step)%(n-2)
		if value[c.lits[j]] != False {
			c.lits[1], c.lits[j] = c.lits[j], c.lits[1]
			c.searchStart = (c.searchStart + step + 1) % (n - 2)
			p.watch(c.lits[1], clauseWatch{cls: c, blocking: c.lits[0]})
			return false
		}
	}

	// No replacement: the clause is unit on lits[0], or already conflicting.
	if value[c.lits[0]] == False {
		p.pm.Conflict(&clauseReason{cls: c, prop: p})
	} else if value[c.lits[0]] == Unassigned {
		p.pm.Enqueue(c.lits[0], &clauseReason{cls: c, prop: p})
	}
	return true
}

// Propagate drains newly-assigned trail entries and updates every clause watching
// the literal that just became false.
func (p *ClausePropagator) Propagate() {
	trail := p.pm.Trail()
	for ; p.qhead < len(trail); p.qhead++ {
		falsified := trail[p.qhead].Neg()
		ws := p.watchlist[falsified]
		kept := ws[:0]
		for i := 0; i < len(ws); i++ {
			w := ws[i]
			if p.pm.Assignment().Value(w.blocking) == True {
				kept = append(kept, w)
				continue
			}
			if w.cls.UpdateWatch(p, falsified) {
				kept = append(kept, w)
			}
			if p.pm.IsConflicting() {
				// Copy the remaining untouched entries before bailing.
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

type clauseReason struct {
	cls  *Clause
	prop *ClausePropagator
}

func (r *clauseReason) RePropagate() {
	// Re-derive whichever literal is (still) forced by this clause under the
	// current partial assignment, exactly as UpdateWatch would on a real
	// falsification, without assuming which watched slot changed.
	if len(r.cls.lits) < 2 {
		r.cls.checkUnitOrConflict(r.prop)
		return
	}
	for _, slot := range [2]int{0, 1} {
		if r.prop.pm.Assignment().Value(r.cls.lits[slot]) == False {
			r.cls.UpdateWatch(r.prop, r.cls.lits[slot])
			return
		}
	}
	r.cls.checkUnitOrConflict(r.prop)
}

func (r *clauseReason) IsMarkedForDeletion() bool { return r.cls.markedForDeletion }
func (r *clauseReason) SetIsReason()               { r.cls.isReason = true }
func (r *clauseReason) UnsetIsReason()             { r.cls.isReason = false }
func (r *clauseReason) String() string             { return r.cls.String() }
