// =============================================================================
// ifirma client - Attribute Translator
// =============================================================================
//
// This module walks a domain attribute tree together with a Schema and
// produces the wire-shaped tree that gets JSON-encoded and sent.
//
// TRANSLATION RULES (per domain key):
//   1. Look the key up at the current nesting level. A missing entry is a
//      SchemaMismatchError: unknown keys are never dropped silently.
//   2. Leaf   : apply the Transformer and store the result under Wire.
//   3. Object : the value must be an object; translate it recursively with
//               the nested Schema and store it under Wire.
//   4. Array  : the value must be a list of objects; translate each element
//               with the nested Schema, preserving order, under Wire.
//
// NIL VALUES:
//   A nil value is stored as a wire null without invoking any transformer.
//
// DETERMINISM:
//   Translation is a pure function of (attrs, schema). Keys are visited in
//   sorted order so the first reported error is stable across runs.
//
// =============================================================================

package converter

import (
	"fmt"
	"reflect"
	"sort"
)

// Translate converts attrs into the wire payload described by schema. It
// stops at the first error.
//
// RETURNS:
//   - The wire payload.
//   - A *SchemaMismatchError, *UnmappedValueError or *TransformError.
func Translate(attrs map[string]any, schema Schema) (map[string]any, error) {
	t := &translator{}
	out := t.object("", attrs, schema)
	if len(t.errs) > 0 {
		return nil, t.errs[0]
	}
	return out, nil
}

// TranslateAll walks the whole tree and returns every error it meets
// together with the partially translated payload.
func TranslateAll(attrs map[string]any, schema Schema) (map[string]any, []error) {
	t := &translator{collect: true}
	out := t.object("", attrs, schema)
	return out, t.errs
}

// translator carries error state for one walk.
type translator struct {
	collect bool
	errs    []error
}

func (t *translator) fail(err error) {
	t.errs = append(t.errs, err)
}

func (t *translator) stopped() bool {
	return !t.collect && len(t.errs) > 0
}

func (t *translator) object(path string, attrs map[string]any, schema Schema) map[string]any {
	out := make(map[string]any, len(attrs))
	owners := make(map[string]string, len(attrs))

	for _, key := range sortedKeys(attrs) {
		if t.stopped() {
			return out
		}
		keyPath := joinPath(path, key)

		field, ok := schema[key]
		if !ok || field == nil {
			t.fail(&SchemaMismatchError{Path: keyPath, Reason: "no translation entry for key"})
			continue
		}

		wire := field.WireName()
		if prev, taken := owners[wire]; taken {
			t.fail(&SchemaMismatchError{
				Path:   keyPath,
				Reason: fmt.Sprintf("wire field %s is already set by %s", wire, joinPath(path, prev)),
			})
			continue
		}

		value, ok := t.field(keyPath, attrs[key], field)
		if !ok {
			continue
		}
		owners[wire] = key
		out[wire] = value
	}
	return out
}

// field translates one value. ok is false when an error was recorded.
func (t *translator) field(path string, value any, field Field) (any, bool) {
	if value == nil {
		return nil, true
	}

	switch f := field.(type) {
	case Leaf:
		return t.leaf(path, value, f)

	case Object:
		m, ok := asMap(value)
		if !ok {
			t.fail(&SchemaMismatchError{Path: path, Reason: fmt.Sprintf("expected an object, got %T", value)})
			return nil, false
		}
		before := len(t.errs)
		out := t.object(path, m, f.Fields)
		return out, len(t.errs) == before

	case Array:
		items, ok := asList(value)
		if !ok {
			t.fail(&SchemaMismatchError{Path: path, Reason: fmt.Sprintf("expected a list, got %T", value)})
			return nil, false
		}
		before := len(t.errs)
		out := make([]any, 0, len(items))
		for i, item := range items {
			if t.stopped() {
				break
			}
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			m, ok := asMap(item)
			if !ok {
				t.fail(&SchemaMismatchError{Path: itemPath, Reason: fmt.Sprintf("expected an object, got %T", item)})
				continue
			}
			out = append(out, t.object(itemPath, m, f.Fields))
		}
		return out, len(t.errs) == before

	default:
		t.fail(&SchemaMismatchError{Path: path, Reason: fmt.Sprintf("unsupported schema entry %T", field)})
		return nil, false
	}
}

func (t *translator) leaf(path string, value any, f Leaf) (any, bool) {
	tr := f.Transform
	if tr == nil {
		tr = Identity{}
	}

	if _, identity := tr.(Identity); identity {
		if _, isMap := asMap(value); isMap {
			t.fail(&SchemaMismatchError{Path: path, Reason: "object value for a scalar field"})
			return nil, false
		}
		if _, isList := asList(value); isList {
			t.fail(&SchemaMismatchError{Path: path, Reason: "list value for a scalar field"})
			return nil, false
		}
		return value, true
	}

	out, err := tr.Transform(value)
	if err != nil {
		switch e := err.(type) {
		case *UnmappedValueError:
			ue := *e
			ue.Path = path
			t.fail(&ue)
		default:
			name := ""
			if c, ok := tr.(Computed); ok {
				name = c.Name
			}
			t.fail(&TransformError{Path: path, Transformer: name, Err: err})
		}
		return nil, false
	}
	return out, true
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// asMap accepts any map keyed by strings, which covers the shapes produced
// by encoding/json, yaml.v3 and the CSV/XLSX item readers.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// asList accepts slices and arrays other than byte strings.
func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
