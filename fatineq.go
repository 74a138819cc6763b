package pbkernel

import "math/big"

// FatInequality is the dense scratch workspace used for the cancel-add arithmetic
// between inequalities (addition, multiplication, weakening, saturation) and for
// normalizing a constraint via a load/unload round-trip. It is backed by
// *big.Int unconditionally rather than duplicated per coefficient width: Go has
// no operator overloading for big.Int, so a generic FatInequality[T] would need
// an arithmetic-ops dictionary threaded through every call, more indirection than
// the single shared buffer this module uses instead (DESIGN.md "Dropped /
// simplified").
//
// A FatInequality is reusable: Load, Unload resets it for the next round-trip. The
// busy flag catches accidental re-entrant use (e.g. loading into a buffer that's
// still being unloaded by an outer call).
type FatInequality struct {
	coeffs   map[Var]*big.Int
	usedList []Var
	degree   *big.Int
	busy     bool
}

// NewFatInequality allocates an empty scratch buffer.
func NewFatInequality() *FatInequality {
	return &FatInequality{coeffs: make(map[Var]*big.Int), degree: new(big.Int)}
}

func (f *FatInequality) use(v Var) *big.Int {
	c, ok := f.coeffs[v]
	if !ok {
		c = new(big.Int)
		f.coeffs[v] = c
		f.usedList = append(f.usedList, v)
	}
	return c
}

// termView is the representation-agnostic view FatInequality operates on; both
// FixedIneqSmall and FixedIneqBig expose their terms this way.
type termView struct {
	coeff *big.Int
	lit   Lit
}

type constraintView interface {
	Degree() *big.Int
	Terms() []termView
}

// Load resets the buffer and loads ineq into it: every term's coefficient is
// sign-normalized into the variable's slot (negative literal ⇒ negated
// coefficient; when both polarities of a variable meet, addLhs subtracts the
// cancelled amount from the degree), and any occurrence of the reserved
// constant variable is folded into the degree.
func (f *FatInequality) Load(ineq constraintView) {
	if f.busy {
		panic("FatInequality: load called while still busy (re-entrant use)")
	}
	f.busy = true
	f.coeffs = make(map[Var]*big.Int)
	f.usedList = f.usedList[:0]
	f.degree = new(big.Int).Set(ineq.Degree())

	for _, t := range ineq.Terms() {
		f.addLhsSigned(t.coeff, t.lit)
	}

	if one, ok := f.coeffs[One]; ok {
		if one.Sign() > 0 {
			f.degree.Sub(f.degree, one)
		}
		one.SetInt64(0)
	}
}

// addLhsSigned adds an already-sign-normalized term: coeff is the term's raw
// (positive) coefficient and lit carries the polarity; the variable's signed
// coefficient becomes +coeff for a positive literal, -coeff for a negative one.
func (f *FatInequality) addLhsSigned(coeff *big.Int, lit Lit) {
	v := lit.Var()
	b := new(big.Int).Set(coeff)
	if lit.IsNeg() {
		b.Neg(b)
	}
	f.addLhs(v, b)
}

// addLhs implements the cancel-add step of SPEC_FULL.md §4.4: coeffs[v] += b, and
// the degree is reduced by the amount of cancellation that occurred (the part of
// |a| or |b| that the addition made disappear).
func (f *FatInequality) addLhs(v Var, b *big.Int) {
	a := f.use(v)
	if a.Sign() == 0 {
		a.Set(b)
		return
	}
	sum := new(big.Int).Add(a, b)
	absA := new(big.Int).Abs(a)
	absB := new(big.Int).Abs(b)
	maxAB := absA
	if absB.Cmp(absA) > 0 {
		maxAB = absB
	}
	absSum := new(big.Int).Abs(sum)
	cancellation := new(big.Int).Sub(maxAB, absSum)
	if cancellation.Sign() > 0 {
		f.degree.Sub(f.degree, cancellation)
	}
	a.Set(sum)
}

// Add adds other's terms and degree onto the buffer (the buffer must already be
// Load-ed; this is the "x.add(y)" operation of SPEC_FULL.md §8's round-trip
// property).
func (f *FatInequality) Add(other constraintView) {
	for _, t := range other.Terms() {
		f.addLhsSigned(t.coeff, t.lit)
	}
	f.degree.Add(f.degree, other.Degree())
}

// Multiply scales every touched coefficient and the degree by k (k must be >= 1).
func (f *FatInequality) Multiply(k *big.Int) {
	for _, v := range f.usedList {
		f.coeffs[v].Mul(f.coeffs[v], k)
	}
	f.degree.Mul(f.degree, k)
}

// Weaken removes variable v entirely, subtracting its absolute coefficient from
// the degree. This preserves implication: dropping a term can only make the
// inequality easier to satisfy.
func (f *FatInequality) Weaken(v Var) {
	c, ok := f.coeffs[v]
	if !ok {
		return
	}
	abs := new(big.Int).Abs(c)
	f.degree.Sub(f.degree, abs)
	c.SetInt64(0)
}

// Saturate clips every coefficient to at most the degree (in absolute value),
// which preserves the set of satisfying assignments: a term that alone exceeds
// the degree already forces its literal whenever the rest of the sum can't, so
// reducing it to exactly the degree changes nothing observable.
func (f *FatInequality) Saturate() {
	if f.degree.Sign() <= 0 {
		return
	}
	for _, v := range f.usedList {
		c := f.coeffs[v]
		abs := new(big.Int).Abs(c)
		if abs.Cmp(f.degree) > 0 {
			if c.Sign() < 0 {
				c.Neg(f.degree)
			} else {
				c.Set(f.degree)
			}
		}
	}
}

// Divide performs integer division-with-round-up of every coefficient and the
// degree by d (d >= 1); like saturation this preserves the inequality's meaning
// over integers.
func (f *FatInequality) Divide(d *big.Int) {
	for _, v := range f.usedList {
		c := f.coeffs[v]
		neg := c.Sign() < 0
		c.Set(divRoundUp(new(big.Int).Abs(c), d))
		if neg {
			c.Neg(c)
		}
	}
	f.degree.Set(divRoundUp(f.degree, d))
}

func divRoundUp(value, divisor *big.Int) *big.Int {
	neg := (value.Sign() < 0) != (divisor.Sign() < 0)
	absV := new(big.Int).Abs(value)
	absD := new(big.Int).Abs(divisor)
	q, r := new(big.Int), new(big.Int)
	q.DivMod(absV, absD, r)
	if r.Sign() != 0 && !neg {
		q.Add(q, big.NewInt(1))
	}
	if neg {
		q.Neg(q)
	}
	return q
}

// unloadedTerm is what Unload hands back for each touched, non-zero variable.
type unloadedTerm struct {
	coeff *big.Int
	v     Var
	neg   bool
}

// Unload clears the busy flag and returns the buffer's contents as
// representation-agnostic terms plus the final degree, dropping any variable
// whose coefficient canceled to zero. After Unload the buffer is ready to be
// Load-ed again.
func (f *FatInequality) Unload() (terms []unloadedTerm, degree *big.Int) {
	f.busy = false
	for _, v := range f.usedList {
		c := f.coeffs[v]
		if c.Sign() == 0 {
			continue
		}
		neg := c.Sign() < 0
		abs := new(big.Int).Abs(c)
		terms = append(terms, unloadedTerm{coeff: abs, v: v, neg: neg})
		c.SetInt64(0)
	}
	f.usedList = f.usedList[:0]
	degree = f.degree
	f.degree = new(big.Int)
	return terms, degree
}

// Size returns the number of variables with a non-zero coefficient currently in
// the buffer.
func (f *FatInequality) Size() int {
	n := 0
	for _, v := range f.usedList {
		if f.coeffs[v].Sign() != 0 {
			n++
		}
	}
	return n
}
