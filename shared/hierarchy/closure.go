// Package hierarchy derives closure-table rows from parent pointers. It is
// used to rebuild the organization_hierarchies table and to verify that the
// incrementally maintained rows still match the organization graph.
package hierarchy

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

var ErrCycle = errors.New("hierarchy: parent graph contains a cycle")

type Node struct {
	ID       uuid.UUID
	ParentID *uuid.UUID
}

type Entry struct {
	AncestorID   uuid.UUID
	DescendantID uuid.UUID
	Distance     int
}

type pairKey struct {
	ancestor   uuid.UUID
	descendant uuid.UUID
}

// ComputeClosure returns every (ancestor, descendant, distance) triple for
// the forest described by nodes, self rows included. A parent that is not
// part of nodes is treated as absent, making the node a root.
func ComputeClosure(nodes []Node) ([]Entry, error) {
	parents := make(map[uuid.UUID]*uuid.UUID, len(nodes))
	for _, n := range nodes {
		parents[n.ID] = n.ParentID
	}

	entries := make([]Entry, 0, len(nodes))
	for _, n := range nodes {
		seen := map[uuid.UUID]struct{}{n.ID: {}}
		entries = append(entries, Entry{AncestorID: n.ID, DescendantID: n.ID, Distance: 0})

		distance := 1
		for p := n.ParentID; p != nil; distance++ {
			if _, known := parents[*p]; !known {
				break
			}
			if _, dup := seen[*p]; dup {
				return nil, fmt.Errorf("%w: organization %s", ErrCycle, n.ID)
			}
			seen[*p] = struct{}{}
			entries = append(entries, Entry{AncestorID: *p, DescendantID: n.ID, Distance: distance})
			p = parents[*p]
		}
	}

	Sort(entries)
	return entries, nil
}

// Sort orders entries by ancestor, descendant for stable comparisons.
func Sort(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if c := bytes.Compare(a.AncestorID[:], b.AncestorID[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.DescendantID[:], b.DescendantID[:]) < 0
	})
}

type Diff struct {
	Missing    []Entry // expected but not stored
	Unexpected []Entry // stored but not expected
	Mismatched []Entry // stored with a different distance; holds the expected row
}

func (d Diff) Empty() bool {
	return len(d.Missing) == 0 && len(d.Unexpected) == 0 && len(d.Mismatched) == 0
}

// Compare reports how stored rows deviate from expected rows.
func Compare(expected, stored []Entry) Diff {
	have := make(map[pairKey]int, len(stored))
	for _, e := range stored {
		have[pairKey{e.AncestorID, e.DescendantID}] = e.Distance
	}

	var diff Diff
	want := make(map[pairKey]struct{}, len(expected))
	for _, e := range expected {
		k := pairKey{e.AncestorID, e.DescendantID}
		want[k] = struct{}{}
		d, ok := have[k]
		switch {
		case !ok:
			diff.Missing = append(diff.Missing, e)
		case d != e.Distance:
			diff.Mismatched = append(diff.Mismatched, e)
		}
	}
	for _, e := range stored {
		if _, ok := want[pairKey{e.AncestorID, e.DescendantID}]; !ok {
			diff.Unexpected = append(diff.Unexpected, e)
		}
	}
	return diff
}
