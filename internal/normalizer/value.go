// Package normalizer turns nested source records into cleaned, fixed-size text chunks.
package normalizer

import "fmt"

// MissingText is the text of the Missing sentinel.
const MissingText = "Information not available"

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindSequence
	KindMapping
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindMissing:
		return "missing"
	case KindUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Entry is one key/value pair of a Mapping. Entries keep source order.
type Entry struct {
	Key   string
	Value Value
}

// Value is a node of a structured record: a String, a Sequence, a Mapping,
// the Missing sentinel, or an Unsupported leaf (numbers, booleans and the like).
// The zero Value is Missing.
type Value struct {
	kind    Kind
	str     string
	items   []Value
	entries []Entry
}

// String returns a string leaf.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Sequence returns a sequence of values.
func Sequence(items ...Value) Value {
	return Value{kind: KindSequence, items: items}
}

// Mapping returns an ordered mapping.
func Mapping(entries ...Entry) Value {
	return Value{kind: KindMapping, entries: entries}
}

// Missing returns the sentinel used for absent fields.
func Missing() Value {
	return Value{kind: KindMissing}
}

// Unsupported returns a leaf the normalizer cannot render; raw describes it for logs.
func Unsupported(raw string) Value {
	return Value{kind: KindUnsupported, str: raw}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind {
	return v.kind
}

// Text returns the string of a String leaf, MissingText for Missing, and the raw
// description for Unsupported. Containers return "".
func (v Value) Text() string {
	switch v.kind {
	case KindString, KindUnsupported:
		return v.str
	case KindMissing:
		return MissingText
	default:
		return ""
	}
}

// Items returns the elements of a Sequence.
func (v Value) Items() []Value {
	return v.items
}

// Entries returns the entries of a Mapping in source order.
func (v Value) Entries() []Entry {
	return v.entries
}

// IsMissing reports whether v is the Missing sentinel.
func (v Value) IsMissing() bool {
	return v.kind == KindMissing
}

// Lookup follows keys through nested mappings and returns the value found,
// or Missing when any step is absent. The first matching entry wins.
func (v Value) Lookup(keys ...string) Value {
	cur := v
	for _, key := range keys {
		if cur.kind != KindMapping {
			return Missing()
		}
		found := false
		for _, e := range cur.entries {
			if e.Key == key {
				cur = e.Value
				found = true
				break
			}
		}
		if !found {
			return Missing()
		}
	}
	return cur
}
