package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueGetMissingSegmentYieldsNull(t *testing.T) {
	v := Object(map[string]Value{
		"vendor": String("cisco"),
	})

	require.True(t, v.Get([]string{"custom_data", "compliance", "checked"}).IsNull())
	require.True(t, v.Get([]string{"vendor", "nested"}).IsNull(), "indexing through a scalar yields Null")
}

func TestValueSetCreatesIntermediateObjects(t *testing.T) {
	start := Null()
	updated, err := start.Set([]string{"custom_data", "compliance", "checked"}, Bool(true))
	require.NoError(t, err)

	got := updated.Get([]string{"custom_data", "compliance", "checked"})
	b, ok := got.AsBool()
	require.True(t, ok)
	require.True(t, b)

	// original is untouched
	require.True(t, start.IsNull())
}

func TestValueSetThroughScalarFails(t *testing.T) {
	start := Object(map[string]Value{"vendor": String("cisco")})
	_, err := start.Set([]string{"vendor", "nested"}, Bool(true))
	require.Error(t, err)
}

func TestValueHasDistinguishesStoredNullFromAbsent(t *testing.T) {
	v := Object(map[string]Value{"explicit_null": Null()})
	require.True(t, v.Has([]string{"explicit_null"}))
	require.False(t, v.Has([]string{"missing"}))
	require.True(t, v.Get([]string{"explicit_null"}).IsNull())
	require.True(t, v.Get([]string{"missing"}).IsNull())
}

func TestValueDeleteRemovesNestedKey(t *testing.T) {
	v := Object(map[string]Value{
		"compliance": Object(map[string]Value{
			"checked": Bool(true),
			"kept":    String("yes"),
		}),
	})
	out := v.Delete([]string{"compliance", "checked"})
	require.False(t, out.Has([]string{"compliance", "checked"}))
	require.True(t, out.Has([]string{"compliance", "kept"}))

	// original untouched, missing path is a no-op
	require.True(t, v.Has([]string{"compliance", "checked"}))
	require.True(t, out.Equal(out.Delete([]string{"compliance", "missing"})))
}

func TestValueEqualStrict(t *testing.T) {
	require.True(t, Number(1).Equal(Number(1)))
	require.False(t, Number(1).Equal(String("1")), "Equal never coerces across kinds")
}

func TestValueJSONRoundTrip(t *testing.T) {
	v := Object(map[string]Value{
		"assigned_templates": Array(String("templates/base.j2")),
		"count":              Number(42),
	})
	data, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, v.Equal(decoded))
}
