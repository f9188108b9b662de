package domain

import "fmt"

// ErrDuplicateName is returned when adding an element whose name is
// already taken. Spatial element names share one namespace across
// images, labels, points and shapes; Kind names the collection holding
// the existing entry.
type ErrDuplicateName struct {
	Kind Kind
	Name string
}

func (e ErrDuplicateName) Error() string {
	return fmt.Sprintf("name %q already used by a %s element", e.Name, e.Kind)
}

// ErrNotFound is returned when a lookup misses. What names the kind of
// thing looked up, for example "labels element" or "coordinate system".
type ErrNotFound struct {
	What string
	Name string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.What, e.Name)
}

// ErrValidation is returned when an operation's inputs or the
// container state they touch are invalid. Op is the operation name in
// snake_case, matching the audit trail.
type ErrValidation struct {
	Op     string
	Reason string
}

func (e ErrValidation) Error() string {
	if e.Op == "" {
		return e.Reason
	}
	return e.Op + ": " + e.Reason
}
