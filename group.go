package pbkernel

// groupLifecycle tracks where a constraint sits in PropagatorGroup's attach
// pipeline. A freshly added constraint is unhandled; AttachUnattached installs
// its watches (unhandled → unregistered, unattached → handled) and
// RegisterOccurrences populates its occurrence index (unhandled → unattached,
// unregistered → handled), so it is handled once both have run. Grounded on constraints.hpp's
// PropagatorGroup::State.
type groupLifecycle uint8

const (
	stateUnhandled groupLifecycle = iota
	stateUnattached
	stateUnregistered
	stateHandled
)

// PropagatorGroup owns the three concrete propagators (clauses, small and big
// inequalities) together with the incremental attach/detach lifecycle and the
// literal-occurrence index used to find constraints affected by a
// substitution. Grounded on constraints.hpp's PropagatorGroup<T>.
type PropagatorGroup struct {
	pm *PropagationMaster

	lists [4]map[*Inequality]struct{}

	occurs         map[Lit]map[*Inequality]struct{}
	propagatingAt0 []*Inequality

	clauseProp *ClausePropagator
	smallProp  *IneqPropagatorSmall
	bigProp    *IneqPropagatorBig

	active bool
}

// NewPropagatorGroup allocates a group and its three propagators for
// variables 1..=nVars, registering them with pm (but not yet activating them).
func NewPropagatorGroup(pm *PropagationMaster, nVars int) *PropagatorGroup {
	g := &PropagatorGroup{pm: pm, occurs: make(map[Lit]map[*Inequality]struct{})}
	for i := range g.lists {
		g.lists[i] = make(map[*Inequality]struct{})
	}
	g.clauseProp = NewClausePropagator(pm, nVars)
	g.smallProp = NewIneqPropagatorSmall(pm, nVars)
	g.bigProp = NewIneqPropagatorBig(pm, nVars)
	pm.AddPropagator(g.clauseProp)
	pm.AddPropagator(g.smallProp)
	pm.AddPropagator(g.bigProp)
	return g
}

// IncreaseNumVarsTo grows the underlying propagators' storage.
func (g *PropagatorGroup) IncreaseNumVarsTo(nVars int) {
	g.clauseProp.IncreaseNumVarsTo(nVars)
	g.smallProp.IncreaseNumVarsTo(nVars)
	g.bigProp.IncreaseNumVarsTo(nVars)
}

// IsActive reports whether the group's propagators are currently driven by
// PropagationMaster.Propagate.
func (g *PropagatorGroup) IsActive() bool { return g.active }

// Activate registers the group's propagators as active.
func (g *PropagatorGroup) Activate() {
	if g.active {
		return
	}
	g.active = true
	g.pm.ActivatePropagator(g.clauseProp)
	g.pm.ActivatePropagator(g.smallProp)
	g.pm.ActivatePropagator(g.bigProp)
}

// Deactivate unregisters the group's propagators from the active set, e.g.
// while PropEngine.InitPropagation(coreOnly=true) restricts propagation to the
// core group.
func (g *PropagatorGroup) Deactivate() {
	if !g.active {
		return
	}
	g.active = false
	g.pm.DeactivatePropagator(g.clauseProp)
	g.pm.DeactivatePropagator(g.smallProp)
	g.pm.DeactivatePropagator(g.bigProp)
}

// DoPropagationsAt0 replays every constraint known to already force a literal
// (or conflict) under the empty assignment; PropEngine.InitPropagation calls it
// after the trail was reset or rebuilt, or when the group is reactivated.
func (g *PropagatorGroup) DoPropagationsAt0() {
	for _, ineq := range g.propagatingAt0 {
		ineq.UpdateWatch(g)
	}
}

// Add enqueues ineq as unhandled: it still needs both its watches installed
// and its occurrence index entries registered.
func (g *PropagatorGroup) Add(ineq *Inequality) {
	g.lists[stateUnhandled][ineq] = struct{}{}
	ineq.groupState = stateUnhandled
}

// Remove detaches ineq from whichever stage of the lifecycle it's currently
// in, clearing watches and/or occurrence entries as needed.
func (g *PropagatorGroup) Remove(ineq *Inequality) {
	if ineq.IsPropagatingAt0() {
		for i, x := range g.propagatingAt0 {
			if x == ineq {
				g.propagatingAt0 = append(g.propagatingAt0[:i], g.propagatingAt0[i+1:]...)
				break
			}
		}
	}

	delete(g.lists[ineq.groupState], ineq)

	if ineq.groupState == stateUnregistered || ineq.groupState == stateHandled {
		ineq.ClearWatches(g)
	}
	if ineq.groupState == stateUnattached || ineq.groupState == stateHandled {
		g.unregisterOccurrence(ineq)
	}
}

func snapshotKeys(m map[*Inequality]struct{}) []*Inequality {
	out := make([]*Inequality, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// AttachUnattached installs watches for every constraint that doesn't have
// them yet (unhandled and unattached constraints), advancing each one stage
// further in the lifecycle.
func (g *PropagatorGroup) AttachUnattached() {
	for _, st := range [2]groupLifecycle{stateUnhandled, stateUnattached} {
		next := stateUnregistered
		if st == stateUnattached {
			next = stateHandled
		}
		for _, ineq := range snapshotKeys(g.lists[st]) {
			ineq.wasAttached = true
			ineq.InitWatch(g)
			delete(g.lists[st], ineq)
			g.lists[next][ineq] = struct{}{}
			ineq.groupState = next

			if ineq.IsPropagatingAt0() {
				g.propagatingAt0 = append(g.propagatingAt0, ineq)
			}
		}
	}
}

// RegisterOccurrences populates the occurrence index for every constraint that
// doesn't have it yet (unhandled and unregistered constraints), advancing each
// one stage further in the lifecycle.
func (g *PropagatorGroup) RegisterOccurrences() {
	for _, st := range [2]groupLifecycle{stateUnhandled, stateUnregistered} {
		next := stateUnattached
		if st == stateUnregistered {
			next = stateHandled
		}
		for _, ineq := range snapshotKeys(g.lists[st]) {
			g.registerOccurrence(ineq)
			delete(g.lists[st], ineq)
			g.lists[next][ineq] = struct{}{}
			ineq.groupState = next
		}
	}
}

func (g *PropagatorGroup) registerOccurrence(ineq *Inequality) {
	for _, t := range ineq.Terms() {
		m := g.occurs[t.lit]
		if m == nil {
			m = make(map[*Inequality]struct{})
			g.occurs[t.lit] = m
		}
		m[ineq] = struct{}{}
	}
}

func (g *PropagatorGroup) unregisterOccurrence(ineq *Inequality) {
	for _, t := range ineq.Terms() {
		delete(g.occurs[t.lit], ineq)
	}
}

// ComputeEffected returns every registered constraint whose occurrence index
// overlaps a literal touched by sub (either side of a mapping), which is the
// candidate set that may need renormalizing after the substitution is applied.
// A literal substituted to the constant true is excluded: per
// constraints.hpp's comment, constraints are already normalized so that case
// degenerates to a weakening, nothing further needs recomputing. (The original
// C++ builds this set via
// `unique.insert(occurs[from].begin(), occurs[to].end())` — an iterator range
// spanning two different containers, which is undefined behavior in C++; this
// is implemented instead as the union of occurs[from] and occurs[to], matching
// the method's documented intent. See DESIGN.md.)
func (g *PropagatorGroup) ComputeEffected(sub *Substitution) map[*Inequality]struct{} {
	g.RegisterOccurrences()
	out := make(map[*Inequality]struct{})
	for from, to := range sub.m {
		if to == litTrue {
			continue
		}
		for ineq := range g.occurs[from] {
			out[ineq] = struct{}{}
		}
		for ineq := range g.occurs[to] {
			out[ineq] = struct{}{}
		}
	}
	return out
}

// InitWatch dispatches to the watch-installing method of whichever fixed
// representation ineq currently holds.
func (ineq *Inequality) InitWatch(g *PropagatorGroup) {
	switch ineq.kind {
	case reprClause:
		ineq.cls.InitWatch(g.clauseProp)
	case reprSmall:
		ineq.small.InitWatch(g.smallProp)
	default:
		ineq.big.InitWatch(g.bigProp)
	}
}

// UpdateWatch dispatches to the watch-updating method of whichever fixed
// representation ineq currently holds, re-evaluating it against the current
// assignment without a specific falsified literal (used for propagate-at-0
// replay).
func (ineq *Inequality) UpdateWatch(g *PropagatorGroup) {
	switch ineq.kind {
	case reprClause:
		ineq.cls.checkUnitOrConflict(g.clauseProp)
	case reprSmall:
		ineq.small.UpdateWatch(g.smallProp, LitUndef)
	default:
		ineq.big.UpdateWatch(g.bigProp, LitUndef)
	}
}

// ClearWatches dispatches to the watch-clearing method of whichever fixed
// representation ineq currently holds.
func (ineq *Inequality) ClearWatches(g *PropagatorGroup) {
	switch ineq.kind {
	case reprClause:
		for _, l := range ineq.cls.lits {
			g.clauseProp.watchlist[l] = removeClauseWatch(g.clauseProp.watchlist[l], ineq.cls)
		}
	case reprSmall:
		ineq.small.ClearWatches(g.smallProp)
	default:
		ineq.big.ClearWatches(g.bigProp)
	}
}

func removeClauseWatch(ws []clauseWatch, cls *Clause) []clauseWatch {
	for i, w := range ws {
		if w.cls == cls {
			ws[i] = ws[len(ws)-1]
			return ws[:len(ws)-1]
		}
	}
	return ws
}
