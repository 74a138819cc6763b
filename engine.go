package pbkernel

import "github.com/sirupsen/logrus"

// Handle is the attachment token returned by PropEngine.Attach: it identifies a
// (possibly shared) constraint in the engine's database and is passed back to
// Detach/GetDeletions. Mirrors constraints.hpp's Inequality<T>* return value
// from PropEngine::attach, wrapped in its own type instead of a bare pointer
// so callers can't confuse it with a not-yet-attached *Inequality.
type Handle struct {
	ineq *Inequality
}

// EngineStats mirrors the counters constraints.hpp's PropEngine accumulates
// and prints via printStats: visit/visit_sat/visit_required track redundancy
// and RUP check traffic, lookupRequests and hashCollisions track the
// constraint dedup set's behavior.
type EngineStats struct {
	Visit           int64
	VisitSat        int64
	VisitRequired   int64
	LookupRequests  int64
	HashCollisions  int64
}

// PropEngine is the top-level propagation and redundancy-checking core: it
// owns the shared PropagationMaster, two PropagatorGroups (core and derived
// constraints, so that derived lemmas can be dropped in bulk without touching
// the original formula), the constraint dedup set, and the RUP auxiliary
// propagator. Grounded on constraints.hpp's PropEngine<T>.
type PropEngine struct {
	nVars int

	pm *PropagationMaster

	Core    *PropagatorGroup
	Derived *PropagatorGroup

	lookup map[uint64][]*Inequality

	tmpProp *IneqPropagatorBig

	hasDetached bool

	rupCounter int

	Stats EngineStats
	log   *logrus.Entry
}

// NewPropEngine allocates an engine for variables 1..=nVars with both
// propagator groups active.
func NewPropEngine(nVars int) *PropEngine {
	pm := NewPropagationMaster(nVars)
	e := &PropEngine{
		nVars:   nVars,
		pm:      pm,
		Core:    NewPropagatorGroup(pm, nVars),
		Derived: NewPropagatorGroup(pm, nVars),
		lookup:  make(map[uint64][]*Inequality),
		tmpProp: NewIneqPropagatorBig(pm, nVars),
		log:     defaultLog(),
	}
	pm.AddPropagator(e.tmpProp)
	e.Derived.Activate()
	e.Core.Activate()
	return e
}

// SetLogger overrides the engine's logger (e.g. to attach request-scoped
// fields); passing nil restores a no-op-safe entry backed by logrus's default
// logger.
func (e *PropEngine) SetLogger(log *logrus.Entry) {
	if log == nil {
		log = defaultLog()
	}
	e.log = log
}

// IncreaseNumVarsTo grows every owned structure to cover variables 1..=nVars.
func (e *PropEngine) IncreaseNumVarsTo(nVars int) {
	if nVars <= e.nVars {
		return
	}
	e.nVars = nVars
	e.pm.IncreaseNumVarsTo(nVars)
	e.Core.IncreaseNumVarsTo(nVars)
	e.Derived.IncreaseNumVarsTo(nVars)
}

// PropagationMaster exposes the shared trail/assignment owner, for callers
// that need direct access (e.g. a decision-making search loop built on top).
func (e *PropEngine) PropagationMaster() *PropagationMaster { return e.pm }

// Propagate runs every active propagator to fixpoint.
func (e *PropEngine) Propagate() {
	e.pm.Propagate()
}

// Propagate4Sat enqueues lits as decisions (or records an immediate conflict
// if one is already falsified), propagates, and — only if no conflict
// occurred — decides every still-unassigned variable positively and
// propagates again. It returns nil if the final assignment is conflict-free,
// [0] if lits and propagation alone already conflict, and otherwise (the
// positive decisions led to a conflict) the list of variables decided this
// way. The whole operation runs under AutoReset so it never disturbs the
// caller's trail.
func (e *PropEngine) Propagate4Sat(lits []Lit) []int {
	reset := e.pm.AutoReset()
	defer reset.Release()

	assign := e.pm.Assignment()
	for _, l := range lits {
		switch assign.Value(l) {
		case Unassigned:
			e.pm.Enqueue(l, reasonDecision)
		case False:
			e.pm.Conflict(reasonDecision)
		}
		if e.pm.IsConflicting() {
			break
		}
	}

	e.Propagate()

	var missing []int
	if !e.pm.IsConflicting() {
		for v := 1; v <= e.nVars; v++ {
			if assign.Value(NewLit(Var(v), false)) == Unassigned {
				missing = append(missing, v)
			}
		}
	} else {
		missing = append(missing, 0)
	}

	if len(missing) > 0 && missing[0] != 0 {
		for _, v := range missing {
			e.pm.Enqueue(NewLit(Var(v), false), reasonDecision)
		}
		e.Propagate()
	}

	if !e.pm.IsConflicting() {
		return nil
	}
	return missing
}

// CheckSat initializes propagation, runs it, and then extends the result to a
// full model via Propagate4Sat, returning its result: nil if that yields a
// conflict-free assignment, [0] if lits conflict under propagation alone, or
// the variables whose positive decisions led to a conflict.
func (e *PropEngine) CheckSat(lits []Lit) []int {
	e.InitPropagation(false)
	e.Propagate()
	return e.Propagate4Sat(lits)
}

// Attach registers toAttach (which must not be frozen yet) under id, dedup-ing
// against any already-attached constraint with the same normalized content.
// The returned Handle's underlying constraint is frozen and placed in the
// Derived group on first attachment; subsequent attaches of an
// already-present constraint just add id to its id set.
func (e *PropEngine) Attach(toAttach *Inequality, id uint64) (*Handle, error) {
	hash, err := toAttach.Hash()
	if err != nil {
		return nil, err
	}
	e.Stats.LookupRequests++

	ineq := e.findByHash(toAttach, hash)
	if ineq == nil {
		ineq = toAttach
		e.lookup[hash] = append(e.lookup[hash], ineq)
	} else if len(e.lookup[hash]) > 1 {
		e.Stats.HashCollisions++
	}

	ineq.attachCount++
	if ineq.ids == nil {
		ineq.ids = make(map[uint64]struct{})
	}
	ineq.ids[id] = struct{}{}
	if id < ineq.minID {
		ineq.minID = id
	}

	if !ineq.isAttached {
		ineq.isAttached = true
		if err := ineq.Freeze(); err != nil {
			ineq.isAttached = false
			return nil, err
		}
		if ineq.isCore {
			e.Core.Add(ineq)
		} else {
			e.Derived.Add(ineq)
		}
		e.log.WithField("id", id).Debug("attached new constraint")
	}

	return &Handle{ineq: ineq}, nil
}

func (e *PropEngine) findByHash(candidate *Inequality, hash uint64) *Inequality {
	for _, existing := range e.lookup[hash] {
		if existing.Eq(candidate) {
			return existing
		}
	}
	return nil
}

// Find looks up an already-attached constraint with the same normalized
// content as ineq, returning nil if none exists.
func (e *PropEngine) Find(ineq *Inequality) (*Handle, error) {
	hash, err := ineq.Hash()
	if err != nil {
		return nil, err
	}
	e.Stats.LookupRequests++
	found := e.findByHash(ineq, hash)
	if found == nil {
		return nil, nil
	}
	return &Handle{ineq: found}, nil
}

// MoveToCore promotes h's constraint from Derived to Core, e.g. once a proof
// step establishes it's needed for the remainder of the certificate.
func (e *PropEngine) MoveToCore(h *Handle) {
	if h == nil || h.ineq.isCore {
		return
	}
	e.Derived.Remove(h.ineq)
	e.Core.Add(h.ineq)
	h.ineq.isCore = true
}

// MoveAllToCore promotes every currently-Derived constraint to Core in bulk.
func (e *PropEngine) MoveAllToCore() {
	for _, st := range [4]groupLifecycle{stateUnhandled, stateUnattached, stateUnregistered, stateHandled} {
		for ineq := range e.Derived.lists[st] {
			ineq.isCore = true
			e.Core.Add(ineq)
		}
		e.Derived.lists[st] = make(map[*Inequality]struct{})
	}
}

// GetDeletions decrements h's attach count and, once it reaches zero, returns
// the full set of proof-step ids that were keeping it alive (and clears them).
func (e *PropEngine) GetDeletions(h *Handle) []uint64 {
	if h == nil || h.ineq.attachCount == 0 {
		return nil
	}
	h.ineq.attachCount--
	if h.ineq.attachCount != 0 {
		return nil
	}
	result := make([]uint64, 0, len(h.ineq.ids))
	for id := range h.ineq.ids {
		result = append(result, id)
	}
	h.ineq.ids = make(map[uint64]struct{})
	return result
}

// Detach removes id from h's id set and, once no id references it anymore,
// fully detaches the constraint from its group and marks it for deletion.
// Returns true iff the constraint was actually removed from the engine.
func (e *PropEngine) Detach(h *Handle, id uint64) bool {
	if h == nil {
		return false
	}
	ineq := h.ineq
	delete(ineq.ids, id)
	if ineq.minID == id && len(ineq.ids) > 0 {
		min := noMinID
		for other := range ineq.ids {
			if other < min {
				min = other
			}
		}
		ineq.minID = min
	}

	if !ineq.isAttached || len(ineq.ids) > 0 {
		return false
	}

	ineq.isAttached = false
	hash, err := ineq.Hash()
	if err == nil {
		e.lookup[hash] = removeIneq(e.lookup[hash], ineq)
	}

	if ineq.isCore {
		e.Core.Remove(ineq)
	} else {
		e.Derived.Remove(ineq)
	}

	if ineq.isMarkedReason() {
		e.hasDetached = true
	}
	ineq.setMarkedForDeletion()
	e.log.WithField("id", id).Debug("fully detached constraint")
	return true
}

func removeIneq(bucket []*Inequality, ineq *Inequality) []*Inequality {
	for i, x := range bucket {
		if x == ineq {
			bucket[i] = bucket[len(bucket)-1]
			return bucket[:len(bucket)-1]
		}
	}
	return bucket
}

// InitPropagation brings the engine's watches and propagate-at-0 replay up to
// date before a Propagate call, handling three cases: restricting to only
// core constraints (coreOnly), replaying a dirty trail left by a detached
// reason, and (re)activating the derived group. Grounded on
// constraints.hpp's PropEngine::initPropagation.
func (e *PropEngine) InitPropagation(coreOnly bool) {
	switch {
	case coreOnly && e.Derived.IsActive():
		e.Derived.Deactivate()
		e.pm.Reset(PropState{})
		e.Core.DoPropagationsAt0()
	case e.hasDetached && !e.pm.IsTrailClean():
		e.pm.CleanupTrail()
		e.Core.DoPropagationsAt0()
		if !coreOnly {
			e.Derived.DoPropagationsAt0()
		}
	case !coreOnly && !e.Derived.IsActive():
		e.Derived.Activate()
		e.Derived.DoPropagationsAt0()
	}

	e.Core.AttachUnattached()
	if !coreOnly {
		e.Derived.AttachUnattached()
	}

	e.hasDetached = false
}

// PropagatedLits brings propagation up to date (InitPropagation followed by
// Propagate, continuing from the current trail) and returns the resulting
// assignment as signed integer literals (positive for true, negative for
// false), one entry per currently-assigned variable.
func (e *PropEngine) PropagatedLits() []int {
	e.InitPropagation(false)
	e.Propagate()

	assign := e.pm.Assignment()
	var out []int
	for v := 1; v <= e.nVars; v++ {
		l := NewLit(Var(v), false)
		switch assign.Value(l) {
		case True:
			out = append(out, v)
		case False:
			out = append(out, -v)
		}
	}
	return out
}

// ComputeEffected returns, for each constraint whose occurrence index overlaps
// sub, a substituted copy — but only when the substituted copy isn't already
// implied by the original (so trivial weakenings aren't re-derived) and isn't
// already present in the engine under some other id.
func (e *PropEngine) ComputeEffected(sub *Substitution, onlyCore bool) ([]*Inequality, error) {
	var result []*Inequality

	groups := []*PropagatorGroup{e.Core}
	if !onlyCore {
		groups = append(groups, e.Derived)
	}
	for _, g := range groups {
		for ineq := range g.ComputeEffected(sub) {
			rhs, err := ineq.Copy()
			if err != nil {
				return nil, err
			}
			if err := rhs.Substitute(sub); err != nil {
				return nil, err
			}
			rhs.minID = ineq.minID
			if ineq.Implies(rhs) {
				continue
			}
			if found, err := e.Find(rhs); err == nil && found != nil {
				continue
			}
			result = append(result, rhs)
		}
	}
	return result, nil
}

// RupCheck reports whether redundant is a reverse-unit-propagation consequence
// of the currently-attached constraints: it negates redundant, propagates the
// negation under a temporary watch, and checks whether that derives a
// conflict. Grounded on constraints.hpp's PropEngine::rupCheck, including its
// "fully propagate only every 10th call" heuristic for the pre-step (a full
// propagate before each RUP check is too slow for certificates dominated by
// huge-coefficient constraints, but skipping it entirely would mean every
// check re-derives the same unit trail from nothing).
func (e *PropEngine) RupCheck(redundant *Inequality, onlyCore bool) (bool, error) {
	e.Stats.Visit++
	e.InitPropagation(onlyCore)

	e.rupCounter++
	if e.rupCounter >= 10 {
		e.Propagate()
		e.rupCounter = 0
	}

	if e.pm.IsConflicting() {
		e.Stats.VisitSat++
		return true, nil
	}

	negated, err := redundant.Copy()
	if err != nil {
		return false, err
	}
	if err := negated.Negated(); err != nil {
		return false, err
	}

	// The RUP auxiliary propagator is always the big-coefficient one,
	// regardless of which representation negated's own terms would normally
	// contract to: it's a one-off, throwaway watch used only for this check, so
	// there's no benefit to picking the smaller representation.
	terms := negated.Terms()
	bigTerms := make([]bigTerm, len(terms))
	for i, t := range terms {
		bigTerms[i] = bigTerm{coeff: t.coeff, lit: t.lit}
	}
	aux, err := newFixedIneqBig(bigTerms, negated.Degree())
	if err != nil {
		return false, err
	}

	reset := e.pm.AutoReset()
	defer reset.Release()

	e.pm.ActivatePropagator(e.tmpProp)
	aux.InitWatch(e.tmpProp)

	e.Propagate()

	conflict := e.pm.IsConflicting()
	if conflict {
		e.Stats.VisitRequired++
	} else {
		e.log.WithField("constraint", redundant.String()).Debug("RUP check failed to derive a conflict")
	}

	aux.ClearWatches(e.tmpProp)
	e.pm.DeactivatePropagator(e.tmpProp)
	return conflict, nil
}
