package domain

import (
	"fmt"
)

// elementSet is an insertion-ordered name-to-element map for one
// spatial kind.
type elementSet struct {
	order []string
	items map[string]Element
}

func newElementSet() *elementSet {
	return &elementSet{items: make(map[string]Element)}
}

func (s *elementSet) put(name string, el Element) {
	if _, ok := s.items[name]; !ok {
		s.order = append(s.order, name)
	}
	s.items[name] = el
}

func (s *elementSet) get(name string) (Element, bool) {
	el, ok := s.items[name]
	return el, ok
}

func (s *elementSet) remove(name string) bool {
	if _, ok := s.items[name]; !ok {
		return false
	}
	delete(s.items, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *elementSet) names() []string { return copyStrings(s.order) }

// tableSet is the insertion-ordered table collection. Tables live in
// their own namespace and never collide with spatial element names.
type tableSet struct {
	order []string
	items map[string]*Table
}

func newTableSet() *tableSet {
	return &tableSet{items: make(map[string]*Table)}
}

func (s *tableSet) put(name string, t *Table) {
	if _, ok := s.items[name]; !ok {
		s.order = append(s.order, name)
	}
	s.items[name] = t
}

func (s *tableSet) get(name string) (*Table, bool) {
	t, ok := s.items[name]
	return t, ok
}

func (s *tableSet) remove(name string) bool {
	if _, ok := s.items[name]; !ok {
		return false
	}
	delete(s.items, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *tableSet) names() []string { return copyStrings(s.order) }

// Container owns one coherent set of spatial elements and tables.
// Spatial names are unique across all four spatial kinds; the
// sharedNames index enforces that without scanning. A container may be
// bound to a backing store path after a write or read; Path reports it.
type Container struct {
	images *elementSet
	labels *elementSet
	points *elementSet
	shapes *elementSet
	tables *tableSet

	sharedNames map[string]Kind

	path string
}

// NewContainer returns an empty, unbound container.
func NewContainer() *Container {
	return &Container{
		images:      newElementSet(),
		labels:      newElementSet(),
		points:      newElementSet(),
		shapes:      newElementSet(),
		tables:      newTableSet(),
		sharedNames: make(map[string]Kind),
	}
}

// spatialSet maps a spatial kind to its collection. Callers pass one
// of the four spatial kinds; anything else returns nil.
func (c *Container) spatialSet(kind Kind) *elementSet {
	switch kind {
	case KindImages:
		return c.images
	case KindLabels:
		return c.labels
	case KindPoints:
		return c.points
	case KindShapes:
		return c.shapes
	}
	return nil
}

func (c *Container) addSpatial(kind Kind, name string, el Element) error {
	if name == "" {
		return ErrValidation{Op: "add_element", Reason: "empty element name"}
	}
	if owner, taken := c.sharedNames[name]; taken {
		return ErrDuplicateName{Kind: owner, Name: name}
	}
	c.spatialSet(kind).put(name, el)
	c.sharedNames[name] = kind
	return nil
}

// SetImage adds an image under name. Spatial names are unique across
// images, labels, points and shapes; reusing one fails with
// ErrDuplicateName even within the same kind. Replace by removing
// first.
func (c *Container) SetImage(name string, el *Image) error {
	if el == nil {
		return ErrValidation{Op: "set_image", Reason: "nil element"}
	}
	return c.addSpatial(KindImages, name, el)
}

// SetLabels adds a labels element under name.
func (c *Container) SetLabels(name string, el *Labels) error {
	if el == nil {
		return ErrValidation{Op: "set_labels", Reason: "nil element"}
	}
	return c.addSpatial(KindLabels, name, el)
}

// SetPoints adds a points element under name.
func (c *Container) SetPoints(name string, el *Points) error {
	if el == nil {
		return ErrValidation{Op: "set_points", Reason: "nil element"}
	}
	return c.addSpatial(KindPoints, name, el)
}

// SetShapes adds a shapes element under name.
func (c *Container) SetShapes(name string, el *Shapes) error {
	if el == nil {
		return ErrValidation{Op: "set_shapes", Reason: "nil element"}
	}
	return c.addSpatial(KindShapes, name, el)
}

// SetTable adds or replaces a table under name. Table names are
// exempt from the spatial namespace. The returned result carries
// non-fatal annotation warnings from ValidateTable; structural
// problems fail with an error and leave the container unchanged.
func (c *Container) SetTable(name string, t *Table) (Result, error) {
	if name == "" {
		return Result{}, ErrValidation{Op: "set_table", Reason: "empty table name"}
	}
	if t == nil {
		return Result{}, ErrValidation{Op: "set_table", Reason: "nil table"}
	}
	res, err := c.ValidateTable(t)
	if err != nil {
		return Result{}, err
	}
	for i := range res.Violations {
		if res.Violations[i].Path == "" {
			res.Violations[i].Path = "tables/" + name
		}
	}
	c.tables.put(name, t)
	return res, nil
}

// Image returns the image stored under name.
func (c *Container) Image(name string) (*Image, error) {
	el, ok := c.images.get(name)
	if !ok {
		return nil, ErrNotFound{What: "images element", Name: name}
	}
	return el.(*Image), nil
}

// Labels returns the labels element stored under name.
func (c *Container) Labels(name string) (*Labels, error) {
	el, ok := c.labels.get(name)
	if !ok {
		return nil, ErrNotFound{What: "labels element", Name: name}
	}
	return el.(*Labels), nil
}

// Points returns the points element stored under name.
func (c *Container) Points(name string) (*Points, error) {
	el, ok := c.points.get(name)
	if !ok {
		return nil, ErrNotFound{What: "points element", Name: name}
	}
	return el.(*Points), nil
}

// Shapes returns the shapes element stored under name.
func (c *Container) Shapes(name string) (*Shapes, error) {
	el, ok := c.shapes.get(name)
	if !ok {
		return nil, ErrNotFound{What: "shapes element", Name: name}
	}
	return el.(*Shapes), nil
}

// Table returns the table stored under name.
func (c *Container) Table(name string) (*Table, error) {
	t, ok := c.tables.get(name)
	if !ok {
		return nil, ErrNotFound{What: "table", Name: name}
	}
	return t, nil
}

// Element resolves a spatial reference. Table references fail; use
// Table for those.
func (c *Container) Element(ref ElementRef) (Element, error) {
	set := c.spatialSet(ref.Kind)
	if set == nil {
		return nil, ErrValidation{Op: "element", Reason: fmt.Sprintf("%q is not a spatial kind", ref.Kind)}
	}
	el, ok := set.get(ref.Name)
	if !ok {
		return nil, ErrNotFound{What: string(ref.Kind) + " element", Name: ref.Name}
	}
	return el, nil
}

// ElementByPath resolves a "<kind>/<name>" path to a spatial element.
func (c *Container) ElementByPath(path string) (Element, error) {
	ref, err := ParseElementPath(path)
	if err != nil {
		return nil, err
	}
	return c.Element(ref)
}

// Names returns the entry names of one collection in insertion order.
func (c *Container) Names(kind Kind) []string {
	if kind == KindTables {
		return c.tables.names()
	}
	if set := c.spatialSet(kind); set != nil {
		return set.names()
	}
	return nil
}

// Refs lists every spatial entry, kinds in canonical order, names in
// insertion order within each kind.
func (c *Container) Refs() []ElementRef {
	var out []ElementRef
	for _, kind := range SpatialKinds() {
		for _, name := range c.spatialSet(kind).names() {
			out = append(out, ElementRef{Kind: kind, Name: name})
		}
	}
	return out
}

// Len counts all entries, tables included.
func (c *Container) Len() int {
	n := len(c.tables.order)
	for _, kind := range SpatialKinds() {
		n += len(c.spatialSet(kind).order)
	}
	return n
}

// Remove drops the referenced entry and reports whether it existed.
// Works for tables as well as spatial elements.
func (c *Container) Remove(ref ElementRef) bool {
	if ref.Kind == KindTables {
		return c.tables.remove(ref.Name)
	}
	set := c.spatialSet(ref.Kind)
	if set == nil {
		return false
	}
	if !set.remove(ref.Name) {
		return false
	}
	delete(c.sharedNames, ref.Name)
	return true
}

// Locate finds the reference under which an element is stored, by
// identity. The second return is false when the element is not in the
// container.
func (c *Container) Locate(el Element) (ElementRef, bool) {
	for _, kind := range SpatialKinds() {
		set := c.spatialSet(kind)
		for _, name := range set.order {
			if set.items[name] == el {
				return ElementRef{Kind: kind, Name: name}, true
			}
		}
	}
	return ElementRef{}, false
}

// Path returns the backing store path the container is bound to, or
// "" when unbound. The persistence layer maintains the binding.
func (c *Container) Path() string { return c.path }

// SetPath binds or unbinds the container's backing store path.
func (c *Container) SetPath(path string) { c.path = path }
