package domain

import (
	"fmt"
	"strings"
)

// Pair is an ordered (from, to) currency pair. Canonical string form
// is "FROM_TO", which is also the key used in persisted files.
type Pair struct {
	From string
	To   string
}

func (p Pair) String() string {
	return p.From + "_" + p.To
}

func (p Pair) Reversed() Pair {
	return Pair{From: p.To, To: p.From}
}

// ParsePair parses the canonical "FROM_TO" form. Codes are upper-cased.
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, &ValidationError{Reason: fmt.Sprintf("invalid pair format %q, want FROM_TO", s)}
	}
	return Pair{From: strings.ToUpper(parts[0]), To: strings.ToUpper(parts[1])}, nil
}
