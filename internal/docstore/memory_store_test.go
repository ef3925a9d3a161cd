package docstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID()
	}
	return out
}

func TestMemoryStore_RunQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("orders raw strings lexicographically", func(t *testing.T) {
		m := NewMemoryStore()
		// not zero padded: "2025-1-10" sorts before "2025-1-9"
		m.Put("Solar", "d9", map[string]Value{"Date": String("2025-1-9 10:00")})
		m.Put("Solar", "d10", map[string]Value{"Date": String("2025-1-10 10:00")})
		m.Put("Solar", "d11", map[string]Value{"Date": String("2025-1-11 10:00")})

		docs, err := m.RunQuery(ctx, Query{Collection: "Solar", OrderBy: "Date"})
		require.NoError(t, err)
		assert.Equal(t, []string{"d10", "d11", "d9"}, ids(docs))
	})

	t.Run("skips documents missing the order field", func(t *testing.T) {
		m := NewMemoryStore()
		m.Put("solarWindData", "both", map[string]Value{
			"Solar": Map(map[string]Value{"Date": String("b")}),
			"Wind":  Map(map[string]Value{"Date": String("a")}),
		})
		m.Put("solarWindData", "solar-only", map[string]Value{
			"Solar": Map(map[string]Value{"Date": String("a")}),
		})

		solar, err := m.RunQuery(ctx, Query{Collection: "solarWindData", OrderBy: "Solar.Date"})
		require.NoError(t, err)
		assert.Equal(t, []string{"solar-only", "both"}, ids(solar))

		wind, err := m.RunQuery(ctx, Query{Collection: "solarWindData", OrderBy: "Wind.Date"})
		require.NoError(t, err)
		assert.Equal(t, []string{"both"}, ids(wind))
	})

	t.Run("numbers sort before strings", func(t *testing.T) {
		m := NewMemoryStore()
		m.Put("Wind", "s", map[string]Value{"Date": String("0000")})
		m.Put("Wind", "t", map[string]Value{"Date": Integer(5)})
		docs, err := m.RunQuery(ctx, Query{Collection: "Wind", OrderBy: "Date"})
		require.NoError(t, err)
		assert.Equal(t, []string{"t", "s"}, ids(docs))
	})

	t.Run("descending and ties by name", func(t *testing.T) {
		m := NewMemoryStore()
		m.Put("Wind", "a", map[string]Value{"Date": String("x")})
		m.Put("Wind", "b", map[string]Value{"Date": String("x")})
		m.Put("Wind", "c", map[string]Value{"Date": String("y")})

		asc, err := m.RunQuery(ctx, Query{Collection: "Wind", OrderBy: "Date"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids(asc))

		desc, err := m.RunQuery(ctx, Query{Collection: "Wind", OrderBy: "Date", Direction: Descending})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a"}, ids(desc))
	})

	t.Run("cancelled context", func(t *testing.T) {
		m := NewMemoryStore()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := m.RunQuery(cctx, Query{Collection: "Wind"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemoryStore_LoadSeed(t *testing.T) {
	seed := `[
		{"collection": "Solar", "id": "s1", "fields": {"Current": 2.5, "Date": {"$time": "2025-01-15T10:00:00Z"}}},
		{"collection": "Wind", "id": "w1", "fields": {"Current": 1, "Date": "2025-01-15 10:00:00"}}
	]`
	m := NewMemoryStore()
	n, err := m.LoadSeed(strings.NewReader(seed))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, m.Len("Solar"))

	docs, err := m.RunQuery(context.Background(), Query{Collection: "Solar", OrderBy: "Date"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	date, _ := docs[0].Lookup("Date")
	assert.Equal(t, KindTimestamp, date.Kind)

	_, err = NewMemoryStore().LoadSeed(strings.NewReader(`[{"id": "x"}]`))
	assert.Error(t, err)
}

func TestMemoryStore_LoadSeedFile(t *testing.T) {
	m := NewMemoryStore()
	n, err := m.LoadSeedFile("testdata/seed_nested.json")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ids := func(docs []Document) []string {
		out := make([]string, 0, len(docs))
		for _, d := range docs {
			out = append(out, d.ID())
		}
		return out
	}

	// timestamps sort before strings
	docs, err := m.RunQuery(context.Background(), Query{Collection: "solarWindData", OrderBy: "Solar.Date"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r1", "r2"}, ids(docs))

	docs, err = m.RunQuery(context.Background(), Query{Collection: "solarWindData", OrderBy: "Wind.Date"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids(docs))

	_, err = NewMemoryStore().LoadSeedFile("testdata/missing.json")
	assert.Error(t, err)
}
