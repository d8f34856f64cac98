package aggregate

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/csvmorph/csvmorph/core"
)

// GroupBy groups transformed rows by the coerced values of the key columns
// and folds every aggregated column through its accumulator. It is a two
// state machine: open while accumulating, closed once Rows has been called.
// Groups are emitted in first-seen order.
type GroupBy struct {
	keyCols  []string
	aggByCol map[string]string

	groups map[xxh3.Uint128]*group
	order  []xxh3.Uint128
	closed bool

	keyBuf []byte
}

type group struct {
	key  core.TypedRow
	accs map[string]Accumulator
}

// NewGroupBy creates an open grouping stage. keyCols are the grouping
// columns; aggByCol maps each aggregated column to its function name. An
// unknown function name is rejected here, at plan time.
func NewGroupBy(keyCols []string, aggByCol map[string]string) (*GroupBy, error) {
	for col, name := range aggByCol {
		if !Known(name) {
			return nil, &core.UnknownFunctionError{Name: name + " (aggregate for column " + col + ")"}
		}
	}
	return &GroupBy{
		keyCols:  keyCols,
		aggByCol: aggByCol,
		groups:   make(map[xxh3.Uint128]*group),
	}, nil
}

// Add accumulates one transformed row. Equality of the grouping key is by
// typed value: two differently formatted dates that coerce equal land in the
// same group.
func (g *GroupBy) Add(row core.TypedRow) error {
	if g.closed {
		return fmt.Errorf("group-by: add after close")
	}

	g.keyBuf = g.keyBuf[:0]
	for _, col := range g.keyCols {
		g.keyBuf = row[col].AppendKey(g.keyBuf)
	}
	hash := xxh3.Hash128(g.keyBuf)

	grp, ok := g.groups[hash]
	if !ok {
		grp = &group{
			key:  make(core.TypedRow, len(g.keyCols)),
			accs: make(map[string]Accumulator, len(g.aggByCol)),
		}
		for _, col := range g.keyCols {
			grp.key[col] = row[col]
		}
		for col, name := range g.aggByCol {
			acc, _ := NewAccumulator(name)
			grp.accs[col] = acc
		}
		g.groups[hash] = grp
		g.order = append(g.order, hash)
	}

	for col, acc := range grp.accs {
		if err := acc.Add(row[col]); err != nil {
			return err
		}
	}
	return nil
}

// Rows closes the stage and returns one row per group, in first-seen order.
// Each row carries the grouping key values plus the accumulated results.
func (g *GroupBy) Rows() []core.TypedRow {
	g.closed = true
	out := make([]core.TypedRow, 0, len(g.order))
	for _, hash := range g.order {
		grp := g.groups[hash]
		row := make(core.TypedRow, len(grp.key)+len(grp.accs))
		for col, v := range grp.key {
			row[col] = v
		}
		for col, acc := range grp.accs {
			row[col] = acc.Result()
		}
		out = append(out, row)
	}
	return out
}

// Len returns the number of groups seen so far.
func (g *GroupBy) Len() int { return len(g.groups) }
