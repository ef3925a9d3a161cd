package docstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// Document is a stored document with its decoded fields.
type Document struct {
	Name       string           `json:"name"`
	Fields     map[string]Value `json:"fields"`
	CreateTime time.Time        `json:"createTime"`
	UpdateTime time.Time        `json:"updateTime"`
}

// ID returns the last segment of the document resource name.
func (d Document) ID() string {
	return path.Base(d.Name)
}

// Lookup resolves a dotted field path such as "Solar.Date".
func (d Document) Lookup(fieldPath string) (Value, bool) {
	fields := d.Fields
	parts := strings.Split(fieldPath, ".")
	for i, p := range parts {
		v, ok := fields[p]
		if !ok {
			return Value{}, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		if v.Kind != KindMap {
			return Value{}, false
		}
		fields = v.Map
	}
	return Value{}, false
}

// Direction is the sort direction of a query.
type Direction string

const (
	Ascending  Direction = "ASCENDING"
	Descending Direction = "DESCENDING"
)

// Query selects every document of a collection ordered by one field.
type Query struct {
	Collection string
	OrderBy    string
	Direction  Direction
}

func (q Query) String() string {
	dir := q.Direction
	if dir == "" {
		dir = Ascending
	}
	return fmt.Sprintf("%s order by %s %s", q.Collection, q.OrderBy, dir)
}

// Querier runs ordered read-only queries against the store.
type Querier interface {
	RunQuery(ctx context.Context, q Query) ([]Document, error)
}

// ErrQuery marks a query the store rejected.
var ErrQuery = errors.New("document store query failed")

// QueryError carries the store's status for a rejected query.
type QueryError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%v: %d %s: %s", ErrQuery, e.StatusCode, e.Status, e.Message)
}

func (e *QueryError) Unwrap() error {
	return ErrQuery
}
