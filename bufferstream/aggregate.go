package bufferstream

import "fmt"

// Kind tags the variant held by an Aggregate.
type Kind int

const (
	// KindNone is the no-data marker: nothing was ingested.
	KindNone Kind = iota
	KindBytes
	KindObjects
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindObjects:
		return "objects"
	default:
		return "none"
	}
}

// Aggregate is the single value built from everything a stage ingested.
type Aggregate struct {
	kind    Kind
	bytes   []byte
	objects []any
}

// NoData returns the aggregate of a stage that ingested nothing.
func NoData() Aggregate { return Aggregate{} }

// BytesAggregate wraps b as a binary aggregate.
func BytesAggregate(b []byte) Aggregate {
	if b == nil {
		b = []byte{}
	}
	return Aggregate{kind: KindBytes, bytes: b}
}

// ObjectsAggregate wraps objs as an object aggregate.
func ObjectsAggregate(objs []any) Aggregate {
	if objs == nil {
		objs = []any{}
	}
	return Aggregate{kind: KindObjects, objects: objs}
}

// Kind returns the variant tag.
func (a Aggregate) Kind() Kind { return a.kind }

// IsNoData reports whether nothing was ingested.
func (a Aggregate) IsNoData() bool { return a.kind == KindNone }

// Bytes returns the concatenated chunks, or nil for any other kind.
func (a Aggregate) Bytes() []byte { return a.bytes }

// Objects returns the ingested values in order, or nil for any other kind.
// The slice is owned by the transform for the duration of the call.
func (a Aggregate) Objects() []any { return a.objects }

// Len is the byte length in binary mode and the unit count in object mode.
func (a Aggregate) Len() int {
	switch a.kind {
	case KindBytes:
		return len(a.bytes)
	case KindObjects:
		return len(a.objects)
	default:
		return 0
	}
}

func (a Aggregate) String() string {
	return fmt.Sprintf("Aggregate(%s, %d)", a.kind, a.Len())
}
