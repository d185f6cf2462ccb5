package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantFor(t *testing.T) {
	base := sampleSchema()
	before := base.Describe()

	v := VariantFor(base,
		Remove("comments"),
		Add("due_date", Leaf{Wire: "TerminPlatnosci", Transform: FormatDate}),
		Rename("type", "LiczOdWartosci"),
	)

	assert.False(t, v.Has("comments"))
	assert.True(t, v.Has("due_date"))
	assert.Equal(t, "LiczOdWartosci", v["type"].WireName())

	assert.Equal(t, before, base.Describe(), "base must not change")
	assert.True(t, base.Has("comments"))
	assert.False(t, base.Has("due_date"))
}

func TestVariantForAppliesInOrder(t *testing.T) {
	v := VariantFor(sampleSchema(), Add("x", Leaf{Wire: "X"}), Remove("x"))
	assert.False(t, v.Has("x"))

	v = VariantFor(sampleSchema(), Remove("comments"), Add("comments", Leaf{Wire: "Notes"}))
	assert.Equal(t, "Notes", v["comments"].WireName())
}

func TestVariantForAbsentKeys(t *testing.T) {
	v := VariantFor(sampleSchema(), Remove("missing"), Rename("missing", "Y"))
	assert.Equal(t, sampleSchema().Describe(), v.Describe())
}

func TestVariantsAreIndependent(t *testing.T) {
	base := sampleSchema()
	a := VariantFor(base)
	b := VariantFor(base)

	a["customer"].(Object).Fields["nip"] = Leaf{Wire: "Changed"}
	a["type"].(Leaf).Transform.(Lookup).Table["net"] = "XXX"

	assert.Equal(t, "NIP", b["customer"].(Object).Fields["nip"].WireName())
	assert.Equal(t, "NIP", base["customer"].(Object).Fields["nip"].WireName())

	got, err := base["type"].(Leaf).Transform.Transform("net")
	require.NoError(t, err)
	assert.Equal(t, "NET", got)
}

func TestVariantAddIsCopied(t *testing.T) {
	nested := Schema{"a": Leaf{Wire: "A"}}
	v := VariantFor(Schema{}, Add("obj", Object{Wire: "Obj", Fields: nested}))
	nested["a"] = Leaf{Wire: "Z"}

	assert.Equal(t, "A", v["obj"].(Object).Fields["a"].WireName())
}

func TestSchemaKeysAndDescribe(t *testing.T) {
	s := Schema{
		"b": Leaf{Wire: "B", Transform: Percent},
		"a": Leaf{Wire: "A", Transform: NewLookup("kind", map[string]string{"x": "X"})},
		"c": Array{Wire: "C", Fields: Schema{"d": Leaf{Wire: "D"}}},
	}
	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())
	assert.Equal(t, map[string]any{
		"a": map[string]any{"wire": "A", "transform": "lookup", "lookup": "kind", "values": map[string]any{"x": "X"}},
		"b": map[string]any{"wire": "B", "transform": "percent"},
		"c": map[string]any{"wire": "C", "array": map[string]any{"d": map[string]any{"wire": "D"}}},
	}, s.Describe())
}
