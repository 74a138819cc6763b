package pbkernel

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitutionRename(t *testing.T) {
	sub, err := NewSubstitution(nil, []Lit{mustLit(t, 1)}, []Lit{mustLit(t, 4)})
	require.NoError(t, err)

	got, ok := sub.Get(mustLit(t, 1))
	require.True(t, ok)
	assert.Equal(t, mustLit(t, 4), got)

	// The complement must also be recorded.
	got, ok = sub.Get(mustLit(t, -1))
	require.True(t, ok)
	assert.Equal(t, mustLit(t, -4), got)
}

func TestSubstitutionConstant(t *testing.T) {
	sub, err := NewSubstitution([]Lit{mustLit(t, 1)}, nil, nil)
	require.NoError(t, err)

	got, ok := sub.Get(mustLit(t, 1))
	require.True(t, ok)
	assert.Equal(t, litTrue, got)

	got, ok = sub.Get(mustLit(t, -1))
	require.True(t, ok)
	assert.Equal(t, litFalse, got)
}

func TestSubstitutionMismatchedLengthsRejected(t *testing.T) {
	_, err := NewSubstitution(nil, []Lit{mustLit(t, 1)}, nil)
	assert.ErrorIs(t, err, ErrBadVariable)
}

func TestInequalitySubstituteRename(t *testing.T) {
	ineq, err := NewInequality(unitTerms(t, 1, 2), big.NewInt(1))
	require.NoError(t, err)

	sub, err := NewSubstitution(nil, []Lit{mustLit(t, 1)}, []Lit{mustLit(t, 3)})
	require.NoError(t, err)

	require.NoError(t, ineq.Substitute(sub))

	want, err := NewInequality(unitTerms(t, 3, 2), big.NewInt(1))
	require.NoError(t, err)
	assert.True(t, ineq.Eq(want))
}

func TestInequalitySubstituteFoldsConstant(t *testing.T) {
	// x1 + x2 >= 1, then fix x1 to true: always satisfied.
	ineq, err := NewInequality(unitTerms(t, 1, 2), big.NewInt(1))
	require.NoError(t, err)

	sub, err := NewSubstitution([]Lit{mustLit(t, 1)}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, ineq.Substitute(sub))
	assert.True(t, ineq.IsTrivial())
}

func TestInequalitySubstituteRejectsFrozen(t *testing.T) {
	ineq, err := NewInequality(unitTerms(t, 1), big.NewInt(1))
	require.NoError(t, err)
	require.NoError(t, ineq.Freeze())

	sub, err := NewSubstitution(nil, []Lit{mustLit(t, 1)}, []Lit{mustLit(t, 2)})
	require.NoError(t, err)

	assert.ErrorIs(t, ineq.Substitute(sub), errFrozen)
}
