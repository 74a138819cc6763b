package pbkernel

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpliesSelf(t *testing.T) {
	ineq, err := NewInequality(unitTerms(t, 1, 2), big.NewInt(1))
	require.NoError(t, err)
	other, err := ineq.Copy()
	require.NoError(t, err)
	assert.True(t, ineq.Implies(other))
}

func TestImpliesWeakerIsImplied(t *testing.T) {
	// x1 + x2 + x3 >= 1 implies x1 + x2 >= 1 is NOT true in general
	// (dropping x3 can only make the left side harder to satisfy when the
	// degree stays the same), but the reverse holds: x1 + x2 >= 1 implies
	// x1 + x2 + x3 >= 1 (adding a term only helps satisfy the sum).
	strong, err := NewInequality(unitTerms(t, 1, 2), big.NewInt(1))
	require.NoError(t, err)
	weaker, err := NewInequality(unitTerms(t, 1, 2, 3), big.NewInt(1))
	require.NoError(t, err)
	assert.True(t, strong.Implies(weaker))
	assert.False(t, weaker.Implies(strong))
}

func TestImpliesDifferentLiteralsNotImplied(t *testing.T) {
	a, err := NewInequality(unitTerms(t, 1), big.NewInt(1))
	require.NoError(t, err)
	b, err := NewInequality(unitTerms(t, 2), big.NewInt(1))
	require.NoError(t, err)
	assert.False(t, a.Implies(b))
}

func TestImpliesHigherDegreeNotImplied(t *testing.T) {
	// x1 + x2 >= 1 (either one) does not imply x1 + x2 >= 2 (both required);
	// the reverse holds.
	weak, err := NewInequality(unitTerms(t, 1, 2), big.NewInt(1))
	require.NoError(t, err)
	strong, err := NewInequality(unitTerms(t, 1, 2), big.NewInt(2))
	require.NoError(t, err)
	assert.True(t, strong.Implies(weak))
	assert.False(t, weak.Implies(strong))
}
