package extract

import "regexp"

// strictPattern is the gate applied before anything is sent: one @, no
// whitespace, and a dot somewhere in the domain.
var strictPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate reports whether address passes the send gate.
func Validate(address string) bool {
	return strictPattern.MatchString(address)
}

// Invalid returns exactly the entries of addresses that fail Validate, in
// input order. It returns nil when all pass.
func Invalid(addresses []string) []string {
	var bad []string
	for _, a := range addresses {
		if !Validate(a) {
			bad = append(bad, a)
		}
	}
	return bad
}
