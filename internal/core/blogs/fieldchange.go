package blogs

type fieldOp uint8

const (
	opUnchanged fieldOp = iota
	opClear
	opSet
)

// FieldChange expresses three-way edit intent for one field of an update:
// leave it alone, clear it, or set a new value. This replaces the magic
// "keep current value" sentinel of prompt flows with something
// exhaustively checkable.
type FieldChange[T any] struct {
	op    fieldOp
	value T
}

// Unchanged leaves the field as it is.
func Unchanged[T any]() FieldChange[T] {
	return FieldChange[T]{}
}

// Clear resets the field to its zero value (structurally absent in the
// stored record for optional fields).
func Clear[T any]() FieldChange[T] {
	return FieldChange[T]{op: opClear}
}

// Set replaces the field with v.
func Set[T any](v T) FieldChange[T] {
	return FieldChange[T]{op: opSet, value: v}
}

// IsUnchanged reports whether the field is to be left alone.
func (f FieldChange[T]) IsUnchanged() bool {
	return f.op == opUnchanged
}

// IsClear reports whether the field is to be cleared.
func (f FieldChange[T]) IsClear() bool {
	return f.op == opClear
}

// Get returns the new value and true when the intent is Set.
func (f FieldChange[T]) Get() (T, bool) {
	return f.value, f.op == opSet
}

// Apply resolves the intent against the current value.
func (f FieldChange[T]) Apply(current T) T {
	switch f.op {
	case opSet:
		return f.value
	case opClear:
		var zero T
		return zero
	default:
		return current
	}
}
