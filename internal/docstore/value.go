// Package docstore provides read-only access to a document database that
// speaks the Firestore REST value encoding.
package docstore

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Kind is the type of a stored value. The constant order is the order in
// which the store sorts values of different kinds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindTimestamp
	KindString
	KindOther // bytes, references, geo points
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindTimestamp:
		return "timestamp"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	}
	return "other"
}

// Value is a decoded document field.
type Value struct {
	Kind      Kind
	Bool      bool
	Number    float64
	IsInteger bool
	Integer   int64
	Time      time.Time
	String    string
	Array     []Value
	Map       map[string]Value
}

// Constructors used by the memory store and tests.

func Null() Value                 { return Value{Kind: KindNull} }
func Bool(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func Double(f float64) Value      { return Value{Kind: KindNumber, Number: f} }
func String(s string) Value       { return Value{Kind: KindString, String: s} }
func Timestamp(t time.Time) Value { return Value{Kind: KindTimestamp, Time: t.UTC()} }

func Integer(i int64) Value {
	return Value{Kind: KindNumber, Number: float64(i), IsInteger: true, Integer: i}
}

func Map(fields map[string]Value) Value {
	return Value{Kind: KindMap, Map: fields}
}

// UnmarshalJSON decodes the typed REST representation, e.g.
// {"doubleValue": 2.5} or {"mapValue": {"fields": {...}}}.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}

	*v = Null()
	for key, body := range raw {
		switch key {
		case "nullValue":
			*v = Null()
		case "booleanValue":
			var b bool
			if err := json.Unmarshal(body, &b); err != nil {
				return fmt.Errorf("decoding booleanValue: %w", err)
			}
			*v = Bool(b)
		case "integerValue":
			// int64 travels as a JSON string
			var s string
			if err := json.Unmarshal(body, &s); err != nil {
				s = string(body)
			}
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("decoding integerValue %q: %w", s, err)
			}
			*v = Integer(i)
		case "doubleValue":
			var f float64
			if err := json.Unmarshal(body, &f); err != nil {
				var s string
				if json.Unmarshal(body, &s) != nil {
					return fmt.Errorf("decoding doubleValue: %w", err)
				}
				f = specialFloat(s)
			}
			*v = Double(f)
		case "timestampValue":
			var s string
			if err := json.Unmarshal(body, &s); err != nil {
				return fmt.Errorf("decoding timestampValue: %w", err)
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return fmt.Errorf("decoding timestampValue %q: %w", s, err)
			}
			*v = Timestamp(t)
		case "stringValue":
			var s string
			if err := json.Unmarshal(body, &s); err != nil {
				return fmt.Errorf("decoding stringValue: %w", err)
			}
			*v = String(s)
		case "mapValue":
			var m struct {
				Fields map[string]Value `json:"fields"`
			}
			if err := json.Unmarshal(body, &m); err != nil {
				return fmt.Errorf("decoding mapValue: %w", err)
			}
			if m.Fields == nil {
				m.Fields = map[string]Value{}
			}
			*v = Map(m.Fields)
		case "arrayValue":
			var a struct {
				Values []Value `json:"values"`
			}
			if err := json.Unmarshal(body, &a); err != nil {
				return fmt.Errorf("decoding arrayValue: %w", err)
			}
			*v = Value{Kind: KindArray, Array: a.Values}
		case "bytesValue", "referenceValue", "geoPointValue":
			*v = Value{Kind: KindOther, String: string(body)}
		}
	}
	return nil
}

func specialFloat(s string) float64 {
	switch s {
	case "Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	return math.NaN()
}

// FromInterface converts plain decoded JSON into a Value. An object of the
// form {"$time": "<RFC3339>"} becomes a timestamp.
func FromInterface(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return Integer(int64(t)), nil
		}
		return Double(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Integer(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return Double(f), nil
	case string:
		return String(t), nil
	case []interface{}:
		out := make([]Value, 0, len(t))
		for _, e := range t {
			ev, err := FromInterface(e)
			if err != nil {
				return Value{}, err
			}
			out = append(out, ev)
		}
		return Value{Kind: KindArray, Array: out}, nil
	case map[string]interface{}:
		if ts, ok := t["$time"].(string); ok && len(t) == 1 {
			parsed, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return Value{}, fmt.Errorf("invalid $time %q: %w", ts, err)
			}
			return Timestamp(parsed), nil
		}
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			ev, err := FromInterface(e)
			if err != nil {
				return Value{}, fmt.Errorf("field %s: %w", k, err)
			}
			fields[k] = ev
		}
		return Map(fields), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", x)
}

// Compare orders two values the way the store orders query results:
// first by kind, then by value within the kind.
func Compare(a, b Value) int {
	if a.Kind != b.Kind {
		return cmpInt(int(a.Kind), int(b.Kind))
	}
	switch a.Kind {
	case KindBool:
		switch {
		case a.Bool == b.Bool:
			return 0
		case !a.Bool:
			return -1
		}
		return 1
	case KindNumber:
		return compareNumber(a, b)
	case KindTimestamp:
		return a.Time.Compare(b.Time)
	case KindString, KindOther:
		return cmpString(a.String, b.String)
	case KindArray:
		for i := 0; i < len(a.Array) && i < len(b.Array); i++ {
			if c := Compare(a.Array[i], b.Array[i]); c != 0 {
				return c
			}
		}
		return cmpInt(len(a.Array), len(b.Array))
	case KindMap:
		ak, bk := sortedKeys(a.Map), sortedKeys(b.Map)
		for i := 0; i < len(ak) && i < len(bk); i++ {
			if c := cmpString(ak[i], bk[i]); c != 0 {
				return c
			}
			if c := Compare(a.Map[ak[i]], b.Map[bk[i]]); c != 0 {
				return c
			}
		}
		return cmpInt(len(ak), len(bk))
	}
	return 0
}

// NaN sorts before every other number.
func compareNumber(a, b Value) int {
	if a.IsInteger && b.IsInteger {
		return cmpInt64(a.Integer, b.Integer)
	}
	an, bn := math.IsNaN(a.Number), math.IsNaN(b.Number)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	case a.Number < b.Number:
		return -1
	case a.Number > b.Number:
		return 1
	}
	return 0
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cmpInt(a, b int) int {
	return cmpInt64(int64(a), int64(b))
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
