package pbkernel

// Reason is the capability a trail entry uses to explain why its literal was
// forced, and to reinstall itself after a trail rebuild. Concrete reasons wrap a
// pointer to the propagating constraint and the propagator that owns it so that
// RePropagate can reinstall watches instead of merely re-asserting the literal.
type Reason interface {
	// RePropagate reinstalls the reason's watches against the current
	// (partial) assignment; if the underlying constraint is still unit under
	// that assignment it re-enqueues the same literal with itself as reason.
	RePropagate()
	// IsMarkedForDeletion reports whether the underlying constraint has been
	// detached and parked for garbage collection.
	IsMarkedForDeletion() bool
	SetIsReason()
	UnsetIsReason()
	String() string
}

// decisionReason marks a trail entry that was asserted by decision rather than by
// propagation (used by Propagate4Sat). It has no underlying constraint.
type decisionReason struct{}

func (decisionReason) RePropagate()             {}
func (decisionReason) IsMarkedForDeletion() bool { return false }
func (decisionReason) SetIsReason()              {}
func (decisionReason) UnsetIsReason()            {}
func (decisionReason) String() string            { return "decision" }

var reasonDecision Reason = decisionReason{}
