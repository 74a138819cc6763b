package pbkernel

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLit(t *testing.T, n int) Lit {
	t.Helper()
	l, err := FromSigned(n)
	require.NoError(t, err)
	return l
}

func unitTerms(t *testing.T, lits ...int) []Term {
	t.Helper()
	terms := make([]Term, len(lits))
	for i, n := range lits {
		terms[i] = Term{Coeff: big.NewInt(1), Lit: mustLit(t, n)}
	}
	return terms
}

func TestNewInequalityContractsToClause(t *testing.T) {
	ineq, err := NewInequality(unitTerms(t, 1, 2, -3), big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, reprClause, ineq.kind)
	require.NotNil(t, ineq.cls)
}

func TestNewInequalityRejectsNegativeDegree(t *testing.T) {
	_, err := NewInequality(unitTerms(t, 1), big.NewInt(-1))
	assert.ErrorIs(t, err, ErrNegativeDegree)
}

func TestNewInequalityRejectsNonPositiveCoeff(t *testing.T) {
	terms := []Term{{Coeff: big.NewInt(0), Lit: mustLit(t, 1)}}
	_, err := NewInequality(terms, big.NewInt(1))
	assert.ErrorIs(t, err, ErrNonPositiveCoeff)
}

func TestNewInequalityCancelsDuplicateVariable(t *testing.T) {
	// x1 + x1 >= 1 normalizes to a single term of coefficient 2.
	terms := []Term{
		{Coeff: big.NewInt(1), Lit: mustLit(t, 1)},
		{Coeff: big.NewInt(1), Lit: mustLit(t, 1)},
	}
	ineq, err := NewInequality(terms, big.NewInt(1))
	require.NoError(t, err)
	got := ineq.Terms()
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].coeff.Int64())
}

func TestNewInequalityCancelsOppositeLiterals(t *testing.T) {
	// x1 + ~x1 >= 1 cancels entirely and folds into the degree (always true).
	terms := []Term{
		{Coeff: big.NewInt(1), Lit: mustLit(t, 1)},
		{Coeff: big.NewInt(1), Lit: mustLit(t, -1)},
	}
	ineq, err := NewInequality(terms, big.NewInt(1))
	require.NoError(t, err)
	assert.True(t, ineq.IsTrivial())
}

func TestInequalityHashEq(t *testing.T) {
	a, err := NewInequality(unitTerms(t, 1, 2), big.NewInt(1))
	require.NoError(t, err)
	b, err := NewInequality(unitTerms(t, 2, 1), big.NewInt(1))
	require.NoError(t, err)
	assert.True(t, a.Eq(b))

	c, err := NewInequality(unitTerms(t, 1, 3), big.NewInt(1))
	require.NoError(t, err)
	assert.False(t, a.Eq(c))
}

func TestInequalityFreezeRejectsMutation(t *testing.T) {
	ineq, err := NewInequality(unitTerms(t, 1), big.NewInt(1))
	require.NoError(t, err)
	require.NoError(t, ineq.Freeze())
	assert.ErrorIs(t, ineq.Weaken(Var(1)), errFrozen)
}

func TestWeakenThenFreezeStripsNegativeDegreeTerm(t *testing.T) {
	// 5 x1 + 3 x2 >= 2 contracts to FixedIneqSmall; weakening x1 alone drives
	// the degree to 2-5 = -3 while x2's term is still present. Freeze must not
	// hand a stale reprSmall kind with a nil *FixedIneqSmall to the engine: it
	// should renormalize the now-trivially-true constraint instead.
	terms := []Term{
		{Coeff: big.NewInt(5), Lit: mustLit(t, 1)},
		{Coeff: big.NewInt(3), Lit: mustLit(t, 2)},
	}
	ineq, err := NewInequality(terms, big.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, reprSmall, ineq.kind)

	require.NoError(t, ineq.Weaken(Var(1)))
	require.NoError(t, ineq.Freeze())

	assert.Equal(t, reprSmall, ineq.kind)
	require.NotNil(t, ineq.small)
	assert.True(t, ineq.IsTrivial())
	assert.Empty(t, ineq.Terms())
}

func TestAttachSucceedsAfterWeakenToNegativeDegree(t *testing.T) {
	// Attach forwards whatever Freeze returns. After weakening to a negative
	// degree, contract() renormalizes to a trivially true constraint, so Freeze
	// succeeds and Attach returns a handle instead of attaching a
	// half-contracted constraint.
	e := NewPropEngine(2)
	terms := []Term{
		{Coeff: big.NewInt(5), Lit: mustLit(t, 1)},
		{Coeff: big.NewInt(3), Lit: mustLit(t, 2)},
	}
	ineq, err := NewInequality(terms, big.NewInt(2))
	require.NoError(t, err)
	require.NoError(t, ineq.Weaken(Var(1)))

	h, err := e.Attach(ineq, 1)
	require.NoError(t, err)
	require.NotNil(t, h)
}

func TestNewInequalityFromCoeffsLitsDegree(t *testing.T) {
	ineq, err := NewInequalityFromCoeffsLitsDegree([]int64{2, 3}, []int{1, -2}, 4)
	require.NoError(t, err)
	want, err := NewInequality([]Term{
		{Coeff: big.NewInt(2), Lit: mustLit(t, 1)},
		{Coeff: big.NewInt(3), Lit: mustLit(t, -2)},
	}, big.NewInt(4))
	require.NoError(t, err)
	assert.True(t, ineq.Eq(want))
}

func TestNewInequalityFromCoeffsLitsDegreeLengthMismatch(t *testing.T) {
	_, err := NewInequalityFromCoeffsLitsDegree([]int64{1, 2}, []int{1}, 1)
	assert.ErrorIs(t, err, ErrBadVariable)
}

func TestNewBigInequality(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 40)
	ineq, err := NewBigInequality([]*big.Int{huge}, []int{1}, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, reprBig, ineq.kind)
}

func TestNewBigInequalityLengthMismatch(t *testing.T) {
	_, err := NewBigInequality([]*big.Int{big.NewInt(1), big.NewInt(2)}, []int{1}, big.NewInt(1))
	assert.ErrorIs(t, err, ErrBadVariable)
}

func TestInequalityIsSAT(t *testing.T) {
	// 2 x1 + 3 x2 >= 4 is satisfied only once both x1 and x2 are set.
	terms := []Term{
		{Coeff: big.NewInt(2), Lit: mustLit(t, 1)},
		{Coeff: big.NewInt(3), Lit: mustLit(t, 2)},
	}
	ineq, err := NewInequality(terms, big.NewInt(4))
	require.NoError(t, err)

	a := NewAssignment(2)
	assert.False(t, ineq.IsSAT(a))

	a.Assign(mustLit(t, 1))
	assert.False(t, ineq.IsSAT(a))

	a.Assign(mustLit(t, 2))
	assert.True(t, ineq.IsSAT(a))
}

func TestNewInequalityBigCoefficient(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 40) // exceeds SmallCoeffMax
	terms := []Term{{Coeff: huge, Lit: mustLit(t, 1)}}
	ineq, err := NewInequality(terms, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, reprBig, ineq.kind)
}
