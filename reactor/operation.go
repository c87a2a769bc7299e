package reactor

import "strings"

// Operation is the platform independent set of socket operations a handler waits for.
type Operation uint8

const (
	OperationNone    Operation = 0
	OperationRead    Operation = 1 << 0
	OperationWrite   Operation = 1 << 1
	OperationConnect Operation = 1 << 2

	OperationAll = OperationRead | OperationWrite | OperationConnect
)

func (o Operation) Union(other Operation) Operation {
	return o | other
}

func (o Operation) Subtract(other Operation) Operation {
	return o &^ other
}

func (o Operation) Intersect(other Operation) Operation {
	return o & other
}

// Has reports whether every operation of other is in o.
func (o Operation) Has(other Operation) bool {
	return o&other == other
}

func (o Operation) IsEmpty() bool {
	return o&OperationAll == OperationNone
}

func (o Operation) String() string {
	if o.IsEmpty() {
		return "none"
	}
	var names []string
	if o.Has(OperationRead) {
		names = append(names, "read")
	}
	if o.Has(OperationWrite) {
		names = append(names, "write")
	}
	if o.Has(OperationConnect) {
		names = append(names, "connect")
	}
	return strings.Join(names, "|")
}
