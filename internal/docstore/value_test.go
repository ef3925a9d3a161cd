package docstore

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_UnmarshalJSON(t *testing.T) {
	t.Run("scalar kinds", func(t *testing.T) {
		cases := []struct {
			in   string
			kind Kind
		}{
			{`{"nullValue": null}`, KindNull},
			{`{"booleanValue": true}`, KindBool},
			{`{"integerValue": "42"}`, KindNumber},
			{`{"doubleValue": 2.5}`, KindNumber},
			{`{"timestampValue": "2025-01-15T10:00:00.123Z"}`, KindTimestamp},
			{`{"stringValue": "10:00"}`, KindString},
			{`{"referenceValue": "projects/p/databases/d/documents/x/y"}`, KindOther},
		}
		for _, tc := range cases {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tc.in), &v), tc.in)
			assert.Equal(t, tc.kind, v.Kind, tc.in)
		}
	})

	t.Run("integer keeps exact value", func(t *testing.T) {
		var v Value
		require.NoError(t, json.Unmarshal([]byte(`{"integerValue": "9007199254740993"}`), &v))
		assert.True(t, v.IsInteger)
		assert.Equal(t, int64(9007199254740993), v.Integer)
	})

	t.Run("special doubles", func(t *testing.T) {
		var v Value
		require.NoError(t, json.Unmarshal([]byte(`{"doubleValue": "NaN"}`), &v))
		assert.True(t, math.IsNaN(v.Number))
		require.NoError(t, json.Unmarshal([]byte(`{"doubleValue": "-Infinity"}`), &v))
		assert.True(t, math.IsInf(v.Number, -1))
	})

	t.Run("nested map", func(t *testing.T) {
		in := `{"mapValue": {"fields": {
			"Current": {"doubleValue": 2.5},
			"Date": {"stringValue": "2025-01-15 10:00:00"}
		}}}`
		var v Value
		require.NoError(t, json.Unmarshal([]byte(in), &v))
		require.Equal(t, KindMap, v.Kind)
		assert.Equal(t, 2.5, v.Map["Current"].Number)
		assert.Equal(t, "2025-01-15 10:00:00", v.Map["Date"].String)
	})

	t.Run("empty map has non-nil fields", func(t *testing.T) {
		var v Value
		require.NoError(t, json.Unmarshal([]byte(`{"mapValue": {}}`), &v))
		assert.Equal(t, KindMap, v.Kind)
		assert.NotNil(t, v.Map)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		var v Value
		assert.Error(t, json.Unmarshal([]byte(`{"timestampValue": "yesterday"}`), &v))
	})
}

func TestCompare(t *testing.T) {
	ts := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	ordered := []Value{
		Null(),
		Bool(false),
		Bool(true),
		Double(math.NaN()),
		Integer(-3),
		Double(1.5),
		Integer(2),
		Timestamp(ts),
		Timestamp(ts.Add(time.Second)),
		String("2025-1-10"),
		String("2025-1-9"),
		Map(map[string]Value{"a": Integer(1)}),
	}
	for i := 0; i < len(ordered)-1; i++ {
		assert.Equal(t, -1, Compare(ordered[i], ordered[i+1]), "index %d", i)
		assert.Equal(t, 1, Compare(ordered[i+1], ordered[i]), "index %d", i)
	}
	assert.Equal(t, 0, Compare(Integer(2), Double(2)))
}

func TestFromInterface(t *testing.T) {
	v, err := FromInterface(map[string]interface{}{
		"Current": 2.5,
		"Angle":   float64(30),
		"Date":    map[string]interface{}{"$time": "2025-01-15T10:00:00Z"},
		"LDR":     nil,
	})
	require.NoError(t, err)
	assert.Equal(t, KindMap, v.Kind)
	assert.Equal(t, 2.5, v.Map["Current"].Number)
	assert.True(t, v.Map["Angle"].IsInteger)
	assert.Equal(t, KindTimestamp, v.Map["Date"].Kind)
	assert.Equal(t, KindNull, v.Map["LDR"].Kind)

	_, err = FromInterface(map[string]interface{}{"Date": map[string]interface{}{"$time": "soon"}})
	assert.Error(t, err)
}

func TestDocument_Lookup(t *testing.T) {
	doc := Document{
		Name: "projects/p/databases/(default)/documents/solarWindData/abc",
		Fields: map[string]Value{
			"Solar": Map(map[string]Value{"Date": String("10:00")}),
			"Wind":  String("not a map"),
		},
	}
	assert.Equal(t, "abc", doc.ID())

	v, ok := doc.Lookup("Solar.Date")
	require.True(t, ok)
	assert.Equal(t, "10:00", v.String)

	_, ok = doc.Lookup("Wind.Date")
	assert.False(t, ok)
	_, ok = doc.Lookup("Missing")
	assert.False(t, ok)
}
