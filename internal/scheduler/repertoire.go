package scheduler

import (
	"errors"
	"fmt"
	"sort"
)

const (
	// MinTalkNumber is the first talk in the public talk outline catalog.
	MinTalkNumber = 1
	// MaxTalkNumber is the last talk in the public talk outline catalog.
	MaxTalkNumber = 194
)

// ErrTalkNumberOutOfRange is returned when a talk number is outside 1..194.
var ErrTalkNumberOutOfRange = errors.New("scheduler: talk number out of range")

// Repertoire is the set of talk numbers a speaker can give. Operations never
// modify the receiver; they return a new slice.
type Repertoire []int

// ValidTalkNumber reports whether n is within the catalog range.
func ValidTalkNumber(n int) bool {
	return n >= MinTalkNumber && n <= MaxTalkNumber
}

// Add returns the repertoire with n included, sorted ascending. Numbers out of
// range or already present leave the repertoire unchanged.
func (r Repertoire) Add(n int) Repertoire {
	if !ValidTalkNumber(n) || r.Contains(n) {
		return r.clone()
	}
	out := append(r.clone(), n)
	return out.Sorted()
}

// Remove returns the repertoire without n.
func (r Repertoire) Remove(n int) Repertoire {
	out := make(Repertoire, 0, len(r))
	for _, talk := range r {
		if talk != n {
			out = append(out, talk)
		}
	}
	return out
}

// Contains reports whether n is in the repertoire.
func (r Repertoire) Contains(n int) bool {
	for _, talk := range r {
		if talk == n {
			return true
		}
	}
	return false
}

// Sorted returns an ascending copy.
func (r Repertoire) Sorted() Repertoire {
	out := r.clone()
	sort.Ints(out)
	return out
}

// Normalize de-duplicates and sorts. Out-of-range numbers are kept so that
// Validate can report them.
func (r Repertoire) Normalize() Repertoire {
	seen := make(map[int]struct{}, len(r))
	out := make(Repertoire, 0, len(r))
	for _, talk := range r {
		if _, ok := seen[talk]; ok {
			continue
		}
		seen[talk] = struct{}{}
		out = append(out, talk)
	}
	sort.Ints(out)
	return out
}

// Validate reports the first talk number outside the catalog range.
func (r Repertoire) Validate() error {
	for _, talk := range r {
		if !ValidTalkNumber(talk) {
			return fmt.Errorf("%w: %d", ErrTalkNumberOutOfRange, talk)
		}
	}
	return nil
}

func (r Repertoire) clone() Repertoire {
	out := make(Repertoire, len(r))
	copy(out, r)
	return out
}
