package domain

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// CoordinateSystems returns the names of every coordinate system any
// element maps into, sorted. There is no standalone registry: a system
// exists exactly as long as at least one element references it.
func (c *Container) CoordinateSystems() []string {
	seen := make(map[string]bool)
	for _, ref := range c.Refs() {
		el, _ := c.Element(ref)
		for _, s := range el.Transforms().Systems() {
			seen[s] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ElementsInSystem lists the spatial elements carrying a transform
// into the named system, in container iteration order.
func (c *Container) ElementsInSystem(system string) []ElementRef {
	var out []ElementRef
	for _, ref := range c.Refs() {
		el, _ := c.Element(ref)
		if _, ok := el.Transforms().Get(system); ok {
			out = append(out, ref)
		}
	}
	return out
}

// RenameCoordinateSystems renames coordinate systems across every
// element in one atomic step. Each key of renames must be a live
// system; a target may only collide with a live system when that
// system is itself being renamed away, so swaps like {a: b, b: a}
// work. Validation runs before any mutation; on error the container
// is untouched.
//
// The rename runs in two phases through unique placeholder keys, so
// overlapping source and target names never clobber each other
// mid-flight.
func (c *Container) RenameCoordinateSystems(renames map[string]string) error {
	if len(renames) == 0 {
		return nil
	}
	live := make(map[string]bool)
	for _, s := range c.CoordinateSystems() {
		live[s] = true
	}
	for src := range renames {
		if !live[src] {
			return ErrNotFound{What: "coordinate system", Name: src}
		}
	}
	targets := make(map[string]bool, len(renames))
	for src, dst := range renames {
		if dst == "" {
			return ErrValidation{Op: "rename_coordinate_systems", Reason: fmt.Sprintf("empty target for %q", src)}
		}
		if targets[dst] {
			return ErrValidation{Op: "rename_coordinate_systems", Reason: fmt.Sprintf("target %q used twice", dst)}
		}
		targets[dst] = true
		if _, alsoRenamed := renames[dst]; live[dst] && !alsoRenamed {
			return ErrValidation{Op: "rename_coordinate_systems", Reason: fmt.Sprintf("target %q already names a coordinate system", dst)}
		}
	}

	placeholders := make(map[string]string, len(renames))
	for src := range renames {
		placeholders[src] = uuid.NewString()
	}
	for _, ref := range c.Refs() {
		el, _ := c.Element(ref)
		tm := el.Transforms()
		for src, ph := range placeholders {
			if t, ok := tm.bySystem[src]; ok {
				delete(tm.bySystem, src)
				tm.bySystem[ph] = t
			}
		}
	}
	for _, ref := range c.Refs() {
		el, _ := c.Element(ref)
		tm := el.Transforms()
		for src, dst := range renames {
			if t, ok := tm.bySystem[placeholders[src]]; ok {
				delete(tm.bySystem, placeholders[src])
				tm.bySystem[dst] = t
			}
		}
	}
	return nil
}
