package converter

// Override is one step of a schema variant declaration.
type Override struct {
	op    overrideOp
	key   string
	wire  string
	field Field
}

type overrideOp int

const (
	opRemove overrideOp = iota
	opAdd
	opRename
)

// Remove drops key from the schema. Removing an absent key is a no-op.
func Remove(key string) Override { return Override{op: opRemove, key: key} }

// Add sets key to field, replacing any existing entry.
func Add(key string, field Field) Override { return Override{op: opAdd, key: key, field: field} }

// Rename changes the wire name of an existing entry. Renaming an absent key
// is a no-op.
func Rename(key, wire string) Override { return Override{op: opRename, key: key, wire: wire} }

// VariantFor applies overrides, in order, to a deep copy of base. The result
// shares no mutable structure with base, with the overrides or with any
// previously produced variant.
func VariantFor(base Schema, overrides ...Override) Schema {
	s := base.Clone()
	if s == nil {
		s = Schema{}
	}
	for _, o := range overrides {
		switch o.op {
		case opRemove:
			delete(s, o.key)
		case opAdd:
			if o.field == nil {
				delete(s, o.key)
				continue
			}
			s[o.key] = o.field.clone()
		case opRename:
			if f, ok := s[o.key]; ok && f != nil {
				s[o.key] = f.withWire(o.wire)
			}
		}
	}
	return s
}
