package period

import (
	"fmt"
	"strings"
)

// Relation identifies one of the thirteen Allen interval relations.
type Relation int

// Relations in canonical order. Relate resolves ties between predicates in this order.
const (
	Precedes Relation = iota + 1
	Meets
	Overlaps
	FinishedBy
	Contains
	Starts
	Equals
	StartedBy
	During
	Finishes
	OverlappedBy
	MetBy
	PrecededBy
)

var relationNames = map[Relation]string{
	Precedes:     "precedes",
	Meets:        "meets",
	Overlaps:     "overlaps",
	FinishedBy:   "finishedBy",
	Contains:     "contains",
	Starts:       "starts",
	Equals:       "equals",
	StartedBy:    "startedBy",
	During:       "during",
	Finishes:     "finishes",
	OverlappedBy: "overlappedBy",
	MetBy:        "metBy",
	PrecededBy:   "precededBy",
}

// Relations lists every relation in canonical order.
func Relations() []Relation {
	return []Relation{
		Precedes, Meets, Overlaps, FinishedBy, Contains, Starts, Equals,
		StartedBy, During, Finishes, OverlappedBy, MetBy, PrecededBy,
	}
}

func (r Relation) String() string {
	if name, ok := relationNames[r]; ok {
		return name
	}
	return fmt.Sprintf("relation(%d)", int(r))
}

// Valid reports whether r names one of the thirteen relations.
func (r Relation) Valid() bool {
	return r >= Precedes && r <= PrecededBy
}

// Converse returns the relation that holds for (b, a) when r holds for (a, b).
// Equals is its own converse.
func (r Relation) Converse() Relation {
	if !r.Valid() {
		return r
	}
	return PrecededBy + Precedes - r
}

// MarshalText encodes the relation name.
func (r Relation) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("period: invalid relation %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a relation name, case-insensitively.
func (r *Relation) UnmarshalText(text []byte) error {
	parsed, err := ParseRelation(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRelation resolves a relation by name; matching ignores case, '_' and '-'.
func ParseRelation(name string) (Relation, error) {
	want := normaliseRelationName(name)
	for _, r := range Relations() {
		if normaliseRelationName(r.String()) == want {
			return r, nil
		}
	}
	return 0, fmt.Errorf("period: unknown relation %q", name)
}

func normaliseRelationName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "", "-", "").Replace(name)
}

// Holds evaluates relation r for the ordered pair (a, b).
func Holds(r Relation, a, b Period) bool {
	switch r {
	case Precedes:
		return a.Precedes(b)
	case Meets:
		return a.Meets(b)
	case Overlaps:
		return a.Overlaps(b)
	case FinishedBy:
		return a.FinishedBy(b)
	case Contains:
		return a.Contains(b)
	case Starts:
		return a.Starts(b)
	case Equals:
		return a.Equals(b)
	case StartedBy:
		return a.StartedBy(b)
	case During:
		return a.During(b)
	case Finishes:
		return a.Finishes(b)
	case OverlappedBy:
		return a.OverlappedBy(b)
	case MetBy:
		return a.MetBy(b)
	case PrecededBy:
		return a.PrecededBy(b)
	default:
		return false
	}
}

// Relate returns the relation that holds for (a, b).
//
// For periods of non-zero length exactly one relation holds. A zero-length period can
// satisfy more than one predicate (an instant at the start of b both meets and starts
// it); the first in canonical order is returned.
func Relate(a, b Period) Relation {
	for _, r := range Relations() {
		if Holds(r, a, b) {
			return r
		}
	}
	// Unreachable: the predicates are jointly exhaustive.
	return 0
}

// Evaluate returns every predicate's result for (a, b), keyed by relation.
func Evaluate(a, b Period) map[Relation]bool {
	out := make(map[Relation]bool, len(relationNames))
	for _, r := range Relations() {
		out[r] = Holds(r, a, b)
	}
	return out
}
