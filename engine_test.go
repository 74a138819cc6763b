package pbkernel

import (
	"math/big"
	"testing"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dumpTrailOnFailure pretty-prints the engine's trail and conflict state once
// the enclosing test has failed, so a propagation mismatch shows the actual
// sequence of forced literals instead of just the final assertion diff.
func dumpTrailOnFailure(t *testing.T, e *PropEngine) {
	t.Helper()
	t.Cleanup(func() {
		if !t.Failed() {
			return
		}
		t.Logf("trail: %# v", pretty.Formatter(e.pm.Trail()))
		t.Logf("conflicting: %v", e.pm.IsConflicting())
	})
}

func attachUnit(t *testing.T, e *PropEngine, id uint64, lits ...int) *Handle {
	t.Helper()
	ineq, err := NewInequality(unitTerms(t, lits...), big.NewInt(1))
	require.NoError(t, err)
	h, err := e.Attach(ineq, id)
	require.NoError(t, err)
	return h
}

func TestPropEngineUnitPropagation(t *testing.T) {
	// (x1) and (~x1 or x2) force x1 and then x2.
	e := NewPropEngine(2)
	dumpTrailOnFailure(t, e)
	attachUnit(t, e, 1, 1)
	attachUnit(t, e, 2, -1, 2)

	e.InitPropagation(false)
	e.Propagate()
	require.False(t, e.pm.IsConflicting())

	lits := e.PropagatedLits()
	assert.ElementsMatch(t, []int{1, 2}, lits)
}

func TestPropEngineConflict(t *testing.T) {
	// (x1) and (~x1) is immediately contradictory.
	e := NewPropEngine(1)
	attachUnit(t, e, 1, 1)
	attachUnit(t, e, 2, -1)

	e.InitPropagation(false)
	e.Propagate()
	assert.True(t, e.pm.IsConflicting())
}

func TestPropEngineAttachDedupsEquivalentConstraints(t *testing.T) {
	e := NewPropEngine(2)
	a, err := NewInequality(unitTerms(t, 1, 2), big.NewInt(1))
	require.NoError(t, err)
	b, err := NewInequality(unitTerms(t, 2, 1), big.NewInt(1))
	require.NoError(t, err)

	ha, err := e.Attach(a, 1)
	require.NoError(t, err)
	hb, err := e.Attach(b, 2)
	require.NoError(t, err)

	assert.Same(t, ha.ineq, hb.ineq)
}

func TestPropEngineDetachRemovesConstraintOnceUnreferenced(t *testing.T) {
	e := NewPropEngine(1)
	h := attachUnit(t, e, 1, 1)

	found, err := e.Find(h.ineq)
	require.NoError(t, err)
	require.NotNil(t, found)

	removed := e.Detach(h, 1)
	assert.True(t, removed)

	found, err = e.Find(h.ineq)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestPropEngineCheckSatSatisfiable(t *testing.T) {
	// (x1 or x2) is satisfiable by assuming x1.
	e := NewPropEngine(2)
	attachUnit(t, e, 1, 1, 2)

	missing := e.CheckSat([]Lit{mustLit(t, 1)})
	assert.Nil(t, missing)
}

func TestPropEngineCheckSatUnsatisfiable(t *testing.T) {
	// (x1) and (~x1) can never be satisfied.
	e := NewPropEngine(1)
	attachUnit(t, e, 1, 1)
	attachUnit(t, e, 2, -1)

	missing := e.CheckSat(nil)
	assert.NotNil(t, missing)
}

func TestPropEngineRupCheck(t *testing.T) {
	// (x1) and (~x1 or x2) together RUP-imply (x2): negating (x2) to (~x2)
	// and propagating derives a conflict.
	e := NewPropEngine(2)
	attachUnit(t, e, 1, 1)
	attachUnit(t, e, 2, -1, 2)

	redundant, err := NewInequality(unitTerms(t, 2), big.NewInt(1))
	require.NoError(t, err)

	ok, err := e.RupCheck(redundant, false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPropEngineRupCheckFailsForUnrelatedConstraint(t *testing.T) {
	e := NewPropEngine(2)
	attachUnit(t, e, 1, 1)

	notImplied, err := NewInequality(unitTerms(t, 2), big.NewInt(1))
	require.NoError(t, err)

	ok, err := e.RupCheck(notImplied, false)
	require.NoError(t, err)
	assert.False(t, ok)
}
