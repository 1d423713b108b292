package tp

type (
	// Type is a Simple value type.
	// Error marks a value that was already reported as ill-typed.
	Type int8
)

const (
	Error Type = iota
	Int
	Bool
	String
	Void
)

// Size is the number of bytes a value occupies in a frame or the global region.
func (t Type) Size() int {
	switch t {
	case Int, Bool, String:
		return 4
	default:
		return 0
	}
}

// IsValue reports whether t can be stored in a variable.
func (t Type) IsValue() bool {
	return t == Int || t == Bool || t == String
}

// String returns the source-level spelling.
func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Bool:
		return "boolean"
	case String:
		return "String"
	case Void:
		return "void"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}
