package domain

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// String renders a tree summary of the container's entries and
// coordinate systems. Only metadata is touched; lazy payloads stay
// unloaded.
func (c *Container) String() string {
	var b strings.Builder
	b.WriteString("Spatial container with:\n")

	type section struct {
		kind  Kind
		names []string
	}
	var sections []section
	for _, kind := range SpatialKinds() {
		if names := c.spatialSet(kind).names(); len(names) > 0 {
			sections = append(sections, section{kind, names})
		}
	}
	if names := c.tables.names(); len(names) > 0 {
		sections = append(sections, section{KindTables, names})
	}
	if len(sections) == 0 {
		b.WriteString("└── (empty)\n")
	}
	for si, sec := range sections {
		lastSection := si == len(sections)-1
		if lastSection {
			b.WriteString("└── ")
		} else {
			b.WriteString("├── ")
		}
		b.WriteString(string(sec.kind))
		b.WriteByte('\n')
		indent := "│   "
		if lastSection {
			indent = "    "
		}
		for ni, name := range sec.names {
			b.WriteString(indent)
			if ni == len(sec.names)-1 {
				b.WriteString("└── ")
			} else {
				b.WriteString("├── ")
			}
			fmt.Fprintf(&b, "%q: %s\n", name, c.describeEntry(sec.kind, name))
		}
	}

	systems := c.CoordinateSystems()
	if len(systems) > 0 {
		b.WriteString("with coordinate systems:\n")
		for _, s := range systems {
			paths := make([]string, 0)
			for _, ref := range c.ElementsInSystem(s) {
				paths = append(paths, ref.Path())
			}
			fmt.Fprintf(&b, "▸ %q, with elements: %s\n", s, strings.Join(paths, ", "))
		}
	}
	return b.String()
}

func (c *Container) describeEntry(kind Kind, name string) string {
	switch kind {
	case KindImages:
		el, _ := c.Image(name)
		return describeRaster(string(el.data.DType()), el.data.Shape(), el.data.SizeBytes())
	case KindLabels:
		el, _ := c.Labels(name)
		return describeRaster(string(el.data.DType()), el.data.Shape(), el.data.SizeBytes())
	case KindPoints:
		el, _ := c.Points(name)
		return fmt.Sprintf("%d points (%s)", el.data.Len(), strings.Join(el.axes, ", "))
	case KindShapes:
		el, _ := c.Shapes(name)
		return fmt.Sprintf("%d shapes", el.data.Len())
	case KindTables:
		t, _ := c.Table(name)
		desc := fmt.Sprintf("%d rows, %d columns", t.rows.Len(), len(t.rows.Columns()))
		if t.annotation != nil {
			desc += fmt.Sprintf(", annotating %s", strings.Join(t.annotation.Region, ", "))
		}
		return desc
	}
	return ""
}

func describeRaster(dtype string, shape []int, size uint64) string {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("%s (%s), %s", dtype, strings.Join(dims, ", "), humanize.Bytes(size))
}
