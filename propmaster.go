package pbkernel

// Propagator is implemented by each watched-literal propagation scheme (clause,
// small-coefficient inequality, big-coefficient inequality). PropagationMaster
// drives the set of active propagators to a shared fixpoint.
type Propagator interface {
	// Propagate consumes trail entries from qhead forward, enqueueing forced
	// literals or recording a conflict via the shared PropagationMaster.
	Propagate()
	// CleanupWatches sweeps lazily-invalidated watch-list entries.
	CleanupWatches()
	// Reset rewinds qhead to at most pos (never forward).
	Reset(pos int)
	// IncreaseNumVarsTo grows any literal-indexed storage the propagator owns.
	IncreaseNumVarsTo(nVars int)
}

// PropState captures how far propagation has progressed and whether a conflict
// has been recorded; PropagationMaster.Reset restores a previously-saved PropState.
type PropState struct {
	QHead     int
	TrailSize int
	Conflict  bool
}

// PropagationMaster owns the trail, the per-literal assignment and phase memory,
// and drives the active propagators to fixpoint. It is the single point of
// mutation for assignment state; propagators only read the assignment and call
// back into Enqueue/Conflict.
type PropagationMaster struct {
	assignment *Assignment
	phase      *Assignment

	trail   []Lit
	reasons []Reason

	conflictReason Reason
	current        PropState

	// trailUnchanged is cleared whenever Enqueue or Conflict mutates state;
	// Propagate loops until a full round leaves it set.
	trailUnchanged bool

	// isTemporary is set while an AutoReset scope is open so that the
	// (relatively costly) SetIsReason/UnsetIsReason bookkeeping on reasons can
	// be skipped for propagation that is about to be rolled back anyway.
	isTemporary bool

	known  []Propagator
	active []Propagator
}

// NewPropagationMaster allocates a master for variables 1..=nVars.
func NewPropagationMaster(nVars int) *PropagationMaster {
	return &PropagationMaster{
		assignment: NewAssignment(nVars),
		phase:      NewAssignment(nVars),
		trail:      make([]Lit, 0, nVars),
	}
}

// Assignment returns the current (possibly partial) truth assignment.
func (pm *PropagationMaster) Assignment() *Assignment { return pm.assignment }

// Phase returns the last-assigned polarity of each literal (used for
// phase-guided initial watch selection, SPEC_FULL.md §4.2).
func (pm *PropagationMaster) Phase() *Assignment { return pm.phase }

// Trail returns the current trail in assignment order.
func (pm *PropagationMaster) Trail() []Lit { return pm.trail }

// State returns the current PropState.
func (pm *PropagationMaster) State() PropState { return pm.current }

// IncreaseNumVarsTo grows assignment/phase storage and every known propagator's
// own storage. Growth is monotone.
func (pm *PropagationMaster) IncreaseNumVarsTo(nVars int) {
	pm.assignment.Resize(nVars)
	pm.phase.Resize(nVars)
	for _, p := range pm.known {
		p.IncreaseNumVarsTo(nVars)
	}
}

// AddPropagator registers a propagator the master knows about (for resize/cleanup
// broadcast) without making it active.
func (pm *PropagationMaster) AddPropagator(p Propagator) {
	pm.known = append(pm.known, p)
}

// ActivatePropagator adds p to the set driven by Propagate.
func (pm *PropagationMaster) ActivatePropagator(p Propagator) {
	pm.active = append(pm.active, p)
}

// DeactivatePropagator removes p from the active set.
func (pm *PropagationMaster) DeactivatePropagator(p Propagator) {
	for i, q := range pm.active {
		if q == p {
			pm.active = append(pm.active[:i], pm.active[i+1:]...)
			return
		}
	}
}

// Conflict records reason as the cause of unsatisfiability. Only the first call
// in a given propagation pass has any effect: overwriting an existing conflict
// reason would let a later, unrelated speculative check clobber the true
// explanation, and isTrailClean would never observe a consistent state again.
func (pm *PropagationMaster) Conflict(reason Reason) {
	if pm.current.Conflict {
		return
	}
	pm.current.Conflict = true
	pm.trailUnchanged = false
	pm.conflictReason = reason
	if reason != nil {
		reason.SetIsReason()
	}
}

// IsConflicting reports whether a conflict is currently recorded.
func (pm *PropagationMaster) IsConflicting() bool { return pm.current.Conflict }

// ConflictReason returns the reason recorded by the first Conflict call since the
// last Reset, or nil.
func (pm *PropagationMaster) ConflictReason() Reason { return pm.conflictReason }

// Enqueue appends lit to the trail, assigns it, and records reason (nil for a
// decision). If the master is not in a temporary (AutoReset) scope, the
// constraint backing reason is marked as currently being a reason so that
// detaching it will be noticed by IsTrailClean.
func (pm *PropagationMaster) Enqueue(lit Lit, reason Reason) {
	pm.trailUnchanged = false
	pm.assignment.Assign(lit)
	pm.phase.Assign(lit)
	pm.trail = append(pm.trail, lit)
	pm.current.TrailSize = len(pm.trail)
	pm.reasons = append(pm.reasons, reason)
	if !pm.isTemporary && reason != nil {
		reason.SetIsReason()
	}
}

// IsTrailClean reports whether every reason currently on the trail (including the
// conflict reason) still points at a live constraint.
func (pm *PropagationMaster) IsTrailClean() bool {
	if pm.conflictReason != nil && pm.conflictReason.IsMarkedForDeletion() {
		return false
	}
	for _, r := range pm.reasons {
		if r != nil && r.IsMarkedForDeletion() {
			return false
		}
	}
	return true
}

// CleanupTrail rebuilds the trail after a reason constraint was detached while
// still recorded on it: it unassigns everything, resets to empty, then replays
// every old trail entry by asking its reason to RePropagate (which reinstalls
// watches and re-enqueues via the normal propagation path) or, for decisions, by
// re-enqueueing directly. Deleted reasons are simply skipped, which drops the
// literals they used to force — any constraint that still needs them will
// re-derive them during the replay or during the next Propagate.
func (pm *PropagationMaster) CleanupTrail() {
	oldTrail := pm.trail
	oldReasons := pm.reasons
	pm.trail = nil
	pm.reasons = nil

	for _, lit := range oldTrail {
		pm.assignment.Unassign(lit)
	}

	pm.Reset(PropState{})

	for i, lit := range oldTrail {
		reason := oldReasons[i]
		if reason == nil || reason == reasonDecision {
			pm.Enqueue(lit, reason)
			continue
		}
		if reason.IsMarkedForDeletion() {
			continue
		}
		reason.RePropagate()
	}

	if !pm.IsTrailClean() {
		panic("cleanupTrail: trail still references a deleted reason")
	}
}

// CleanupWatches broadcasts a watch-list sweep to every known propagator.
func (pm *PropagationMaster) CleanupWatches() {
	for _, p := range pm.known {
		p.CleanupWatches()
	}
}

// Propagate runs the active propagators to a shared fixpoint: each round runs
// the active propagators in registration order and starts a new round from the
// first one as soon as one of them changes the trail; the outer loop stops once
// a full round left the trail unchanged, or as soon as a conflict is recorded.
func (pm *PropagationMaster) Propagate() {
	pm.trailUnchanged = false
	for !pm.trailUnchanged && !pm.IsConflicting() {
		pm.trailUnchanged = true
		for _, p := range pm.active {
			p.Propagate()
			if !pm.trailUnchanged {
				break
			}
		}
	}
	pm.current.QHead = len(pm.trail)
}

func (pm *PropagationMaster) undoOne() {
	last := pm.trail[len(pm.trail)-1]
	pm.assignment.Unassign(last)
	pm.trail = pm.trail[:len(pm.trail)-1]
	if r := pm.reasons[len(pm.reasons)-1]; !pm.isTemporary && r != nil {
		r.UnsetIsReason()
	}
	pm.reasons = pm.reasons[:len(pm.reasons)-1]
}

// Reset truncates the trail and undoes assignments back to state.TrailSize, resets
// every known propagator's qhead to at most state.QHead, and clears the conflict
// if state.Conflict is false.
func (pm *PropagationMaster) Reset(state PropState) {
	for _, p := range pm.known {
		p.Reset(state.QHead)
	}
	for len(pm.trail) > state.TrailSize {
		pm.undoOne()
	}
	if !state.Conflict {
		pm.conflictReason = nil
	}
	pm.current = state
}

// AutoReset is a scoped handle: it snapshots the current PropState on creation and
// restores it on Release, with reason-marking suppressed (isTemporary) for the
// duration of the scope. Use as:
//
//	ar := pm.AutoReset()
//	defer ar.Release()
func (pm *PropagationMaster) AutoReset() *AutoResetScope {
	saved := pm.current
	wasTemporary := pm.isTemporary
	pm.isTemporary = true
	return &AutoResetScope{pm: pm, saved: saved, wasTemporary: wasTemporary}
}

// AutoResetScope is returned by PropagationMaster.AutoReset; call Release exactly
// once (typically via defer) to restore the saved PropState.
type AutoResetScope struct {
	pm           *PropagationMaster
	saved        PropState
	wasTemporary bool
	released     bool
}

// Release restores the PropState captured when the scope was created and
// restores the previous isTemporary flag. Calling Release more than once is a
// no-op.
func (ar *AutoResetScope) Release() {
	if ar.released {
		return
	}
	ar.released = true
	ar.pm.Reset(ar.saved)
	ar.pm.isTemporary = ar.wasTemporary
}
