package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process store with the same ordering rules as the
// remote one. It backs the "memory" driver and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
	}
}

// Put stores doc under collection/id, replacing any previous version.
func (m *MemoryStore) Put(collection, id string, fields map[string]Value) {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]Document)
		m.collections[collection] = docs
	}
	doc := Document{
		Name:       collection + "/" + id,
		Fields:     fields,
		CreateTime: now,
		UpdateTime: now,
	}
	if prev, ok := docs[id]; ok {
		doc.CreateTime = prev.CreateTime
	}
	docs[id] = doc
}

// Len returns the number of documents in collection.
func (m *MemoryStore) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

// RunQuery returns documents holding q.OrderBy, sorted by that field.
// Documents without the field are left out, as the remote store does.
func (m *MemoryStore) RunQuery(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	docs := make([]Document, 0, len(m.collections[q.Collection]))
	for _, d := range m.collections[q.Collection] {
		if q.OrderBy != "" {
			if _, ok := d.Lookup(q.OrderBy); !ok {
				continue
			}
		}
		docs = append(docs, d)
	}
	m.mu.RUnlock()

	desc := q.Direction == Descending
	sort.SliceStable(docs, func(i, j int) bool {
		c := 0
		if q.OrderBy != "" {
			a, _ := docs[i].Lookup(q.OrderBy)
			b, _ := docs[j].Lookup(q.OrderBy)
			c = Compare(a, b)
		}
		if c == 0 {
			c = cmpString(docs[i].Name, docs[j].Name)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	return docs, nil
}

type seedDocument struct {
	Collection string                 `json:"collection"`
	ID         string                 `json:"id"`
	Fields     map[string]interface{} `json:"fields"`
}

// LoadSeed reads a JSON array of {"collection", "id", "fields"} objects.
// Fields are plain JSON; {"$time": "..."} marks a timestamp.
func (m *MemoryStore) LoadSeed(r io.Reader) (int, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var seed []seedDocument
	if err := dec.Decode(&seed); err != nil {
		return 0, fmt.Errorf("decoding seed: %w", err)
	}

	for i, sd := range seed {
		if sd.Collection == "" || sd.ID == "" {
			return i, fmt.Errorf("seed document %d: collection and id are required", i)
		}
		v, err := FromInterface(map[string]interface{}(sd.Fields))
		if err != nil {
			return i, fmt.Errorf("seed document %s/%s: %w", sd.Collection, sd.ID, err)
		}
		m.Put(sd.Collection, sd.ID, v.Map)
	}
	return len(seed), nil
}

// LoadSeedFile is LoadSeed for a file on disk.
func (m *MemoryStore) LoadSeedFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()
	return m.LoadSeed(f)
}
