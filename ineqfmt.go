package pbkernel

import "fmt"

// ineqString renders a constraint as "c1 l1 + c2 l2 + ... >= degree", shared by
// FixedIneqSmall, FixedIneqBig and the Inequality façade so all three print the
// same normalized form.
func ineqString(terms []termView, degree interface{ String() string }) string {
	s := ""
	for i, t := range terms {
		if i > 0 {
			s += " + "
		}
		s += fmt.Sprintf("%s %s", t.coeff.String(), t.lit.String())
	}
	if s == "" {
		s = "0"
	}
	return s + " >= " + degree.String()
}
