// =============================================================================
// ifirma client - Field Schema
// =============================================================================
//
// A Schema is a declarative tree describing how one domain attribute tree
// translates into one wire tree. Each domain key maps to exactly one Field:
//
//   Leaf   : scalar attribute -> wire field name (+ optional Transformer)
//   Object : nested object    -> container wire name + nested Schema
//   Array  : list of objects  -> container wire name + Schema applied per element
//
// EXAMPLE:
//
//   Schema{
//       "issue_date": Leaf{Wire: "DataWystawienia", Transform: FormatDate},
//       "customer":   Object{Wire: "Kontrahent", Fields: Schema{"nip": Leaf{Wire: "NIP"}}},
//       "items":      Array{Wire: "Pozycje", Fields: Schema{"vat_rate": Leaf{Wire: "StawkaVat", Transform: Percent}}},
//   }
//
// OWNERSHIP:
//   Schemas are plain values built from maps. Anything shared between
//   goroutines must be treated as read-only; use Clone (or VariantFor) to
//   obtain an independently owned copy before changing it.
//
// =============================================================================

package converter

import (
	"sort"
)

// =============================================================================
// FIELD VARIANTS
// =============================================================================

// Field is one schema entry. The set of implementations is closed: Leaf,
// Object and Array.
type Field interface {
	// WireName is the wire field name (the container name for Object and
	// Array).
	WireName() string

	clone() Field
	withWire(wire string) Field
}

// Leaf maps a scalar attribute onto a wire field.
type Leaf struct {
	// Wire is the wire field name.
	Wire string

	// Transform converts the domain value. Nil means Identity.
	Transform Transformer
}

// Object maps a nested object attribute onto a nested wire object.
type Object struct {
	// Wire is the container wire name the nested object is stored under.
	Wire string

	// Fields describes the keys of the nested object.
	Fields Schema
}

// Array maps a list of objects onto an ordered wire list.
type Array struct {
	// Wire is the container wire name the list is stored under.
	Wire string

	// Fields describes the keys of every list element.
	Fields Schema
}

func (l Leaf) WireName() string   { return l.Wire }
func (o Object) WireName() string { return o.Wire }
func (a Array) WireName() string  { return a.Wire }

func (l Leaf) clone() Field {
	return Leaf{Wire: l.Wire, Transform: cloneTransformer(l.Transform)}
}

func (o Object) clone() Field { return Object{Wire: o.Wire, Fields: o.Fields.Clone()} }
func (a Array) clone() Field  { return Array{Wire: a.Wire, Fields: a.Fields.Clone()} }

func (l Leaf) withWire(wire string) Field {
	c := l.clone().(Leaf)
	c.Wire = wire
	return c
}

func (o Object) withWire(wire string) Field {
	c := o.clone().(Object)
	c.Wire = wire
	return c
}

func (a Array) withWire(wire string) Field {
	c := a.clone().(Array)
	c.Wire = wire
	return c
}

// =============================================================================
// SCHEMA
// =============================================================================

// Schema maps domain attribute keys to their Field.
type Schema map[string]Field

// Clone returns a structural deep copy. Lookup tables are copied too, so
// the result shares no mutable state with s.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	for key, f := range s {
		if f == nil {
			out[key] = nil
			continue
		}
		out[key] = f.clone()
	}
	return out
}

// Keys returns the domain keys in sorted order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key has a translation entry.
func (s Schema) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Describe renders the schema as plain data (maps and strings) suitable
// for YAML or JSON output and for value comparisons; transformer functions
// are represented by their names.
func (s Schema) Describe() map[string]any {
	out := make(map[string]any, len(s))
	for key, f := range s {
		switch f := f.(type) {
		case Leaf:
			entry := map[string]any{"wire": f.Wire}
			describeTransformer(entry, f.Transform)
			out[key] = entry
		case Object:
			out[key] = map[string]any{"wire": f.Wire, "object": f.Fields.Describe()}
		case Array:
			out[key] = map[string]any{"wire": f.Wire, "array": f.Fields.Describe()}
		}
	}
	return out
}

func describeTransformer(entry map[string]any, t Transformer) {
	switch t := t.(type) {
	case nil, Identity:
	case Lookup:
		values := make(map[string]any, len(t.Table))
		for k, v := range t.Table {
			values[k] = v
		}
		entry["transform"] = "lookup"
		entry["lookup"] = t.Name
		entry["values"] = values
	case Computed:
		entry["transform"] = t.Name
	}
}
