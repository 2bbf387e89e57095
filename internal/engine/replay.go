package engine

import (
	"slices"
	"sort"

	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/variables"
)

// Replay and resume
//
// A recorded run is its initial variable state plus the changes of every
// tick. Folding those changes in tick order with Snapshot.Apply rebuilds
// the exact state at any recorded tick; no events are re-executed.
// Restore loads such a snapshot into a fresh scene and moves its clock,
// so the next Step continues at the following tick under a new run id.

// Snapshot is the complete variable state of a scene after Tick.
type Snapshot struct {
	RunID     string
	Tick      uint64
	Global    ir.VariableList
	Scene     ir.VariableList
	Instances []InstanceState
}

// InstanceState holds the variables of the instance at Index.
type InstanceState struct {
	Index     int
	Object    string
	Variables ir.VariableList
}

// Apply folds one change into the snapshot.
func (s *Snapshot) Apply(c Change) {
	switch c.Scope {
	case variables.Global:
		s.Global = applyToList(s.Global, c)
	case variables.Scene:
		s.Scene = applyToList(s.Scene, c)
	case variables.Object:
		i := sort.Search(len(s.Instances), func(i int) bool { return s.Instances[i].Index >= c.Instance })
		if i == len(s.Instances) || s.Instances[i].Index != c.Instance {
			s.Instances = slices.Insert(s.Instances, i, InstanceState{Index: c.Instance, Object: c.Owner})
		}
		s.Instances[i].Variables = applyToList(s.Instances[i].Variables, c)
	}
}

// applyToList applies c to a name-sorted list.
func applyToList(list ir.VariableList, c Change) ir.VariableList {
	i := sort.Search(len(list), func(i int) bool { return list[i].Name >= c.Name })
	found := i < len(list) && list[i].Name == c.Name
	switch {
	case c.Deleted && found:
		return slices.Delete(list, i, i+1)
	case c.Deleted:
		return list
	case found:
		list[i].Value = c.Value
		return list
	default:
		return slices.Insert(list, i, ir.NamedVariable{Name: c.Name, Value: c.Value})
	}
}

// Changes lists the whole snapshot as writes, in diff order.
func (s Snapshot) Changes() []Change {
	return diffSnapshots(Snapshot{}, s)
}

// diffSnapshots returns the writes that turn prev into cur: global first,
// then scene, then instances by index, each sorted by name.
func diffSnapshots(prev, cur Snapshot) []Change {
	var out []Change
	out = diffLists(out, Change{Scope: variables.Global}, prev.Global, cur.Global)
	out = diffLists(out, Change{Scope: variables.Scene}, prev.Scene, cur.Scene)

	before := make(map[int]ir.VariableList, len(prev.Instances))
	for _, inst := range prev.Instances {
		before[inst.Index] = inst.Variables
	}
	for _, inst := range cur.Instances {
		key := Change{Scope: variables.Object, Owner: inst.Object, Instance: inst.Index}
		out = diffLists(out, key, before[inst.Index], inst.Variables)
	}
	return out
}

// diffLists merges two name-sorted lists, appending one change per
// added, modified or removed name.
func diffLists(out []Change, key Change, prev, cur ir.VariableList) []Change {
	i, j := 0, 0
	for i < len(prev) || j < len(cur) {
		switch {
		case j == len(cur) || (i < len(prev) && prev[i].Name < cur[j].Name):
			c := key
			c.Name = prev[i].Name
			c.Deleted = true
			out = append(out, c)
			i++
		case i == len(prev) || cur[j].Name < prev[i].Name:
			c := key
			c.Name, c.Value = cur[j].Name, cur[j].Value
			out = append(out, c)
			j++
		default:
			if !ir.Equal(prev[i].Value, cur[j].Value) {
				c := key
				c.Name, c.Value = cur[j].Name, cur[j].Value
				out = append(out, c)
			}
			i++
			j++
		}
	}
	return out
}
