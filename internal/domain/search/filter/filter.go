package filter

import (
	"fmt"
	"sort"
	"strings"
)

// MaxValueLength bounds a single facet value.
const MaxValueLength = 128

// Facet is a job attribute the store can pre-filter on.
type Facet string

// Supported facets.
const (
	ExperienceLevel Facet = "experience_level"
	EmploymentType  Facet = "employment_type"
	Industry        Facet = "industry"
	Location        Facet = "location"
)

// Facets lists every supported facet in canonical order.
func Facets() []Facet {
	return []Facet{ExperienceLevel, EmploymentType, Industry, Location}
}

// IsValid reports whether f is a supported facet.
func (f Facet) IsValid() bool {
	switch f {
	case ExperienceLevel, EmploymentType, Industry, Location:
		return true
	}
	return false
}

// Condition is a single facet=value constraint.
type Condition struct {
	facet Facet
	value string
}

// Facet returns the constrained facet.
func (c Condition) Facet() Facet { return c.facet }

// Value returns the required value.
func (c Condition) Value() string { return c.value }

// Set is an immutable collection of optional facet constraints, combined with AND.
// The zero value is an empty set that matches every job.
type Set struct {
	values map[Facet]string
}

// New validates raw facet values. Empty values are treated as "not set".
func New(raw map[string]string) (Set, error) {
	values := make(map[Facet]string, len(raw))
	for k, v := range raw {
		f := Facet(k)
		if !f.IsValid() {
			return Set{}, fmt.Errorf("unknown filter facet %q", k)
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if len(v) > MaxValueLength {
			return Set{}, fmt.Errorf("filter %q value too long (max %d chars)", k, MaxValueLength)
		}
		values[f] = v
	}
	return Set{values: values}, nil
}

// Get returns the value for f, if set.
func (s Set) Get(f Facet) (string, bool) {
	v, ok := s.values[f]
	return v, ok
}

// IsEmpty reports whether no facet is constrained.
func (s Set) IsEmpty() bool { return len(s.values) == 0 }

// Conditions returns the constraints in canonical facet order.
func (s Set) Conditions() []Condition {
	out := make([]Condition, 0, len(s.values))
	for _, f := range Facets() {
		if v, ok := s.values[f]; ok {
			out = append(out, Condition{facet: f, value: v})
		}
	}
	return out
}

// Map returns a copy of the constraints keyed by facet name.
func (s Set) Map() map[string]string {
	out := make(map[string]string, len(s.values))
	for f, v := range s.values {
		out[string(f)] = v
	}
	return out
}

// Equal reports whether two sets hold identical constraints.
func (s Set) Equal(o Set) bool {
	if len(s.values) != len(o.values) {
		return false
	}
	for f, v := range s.values {
		if o.values[f] != v {
			return false
		}
	}
	return true
}

// String renders the set deterministically for logs.
func (s Set) String() string {
	parts := make([]string, 0, len(s.values))
	for f, v := range s.values {
		parts = append(parts, string(f)+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
