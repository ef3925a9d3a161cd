package parser

import (
	"github.com/siddheshvrane/solar-dashboard/internal/docstore"
	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

// NestedParser handles the schema where one collection holds both sources
// as nested groups: {Solar: {Angle, Current, Voltage, LDR?, Date}, Wind: {...}}.
type NestedParser struct {
	opts Options
}

func NewNestedParser(opts Options) *NestedParser {
	if opts.Collection == "" {
		opts.Collection = DefaultOptions().Collection
	}
	return &NestedParser{opts: opts}
}

func (p *NestedParser) Name() string {
	return "nested"
}

// groupName is the nested group key of a source, e.g. "Solar".
func groupName(src models.Source) string {
	if src == models.SourceWind {
		return "Wind"
	}
	return "Solar"
}

func (p *NestedParser) Query(src models.Source) docstore.Query {
	return docstore.Query{
		Collection: p.opts.Collection,
		OrderBy:    groupName(src) + "." + FieldDate,
		Direction:  docstore.Ascending,
	}
}

func (p *NestedParser) Parse(doc docstore.Document, src models.Source) (models.Record, error) {
	group := groupName(src)
	v, ok := doc.Fields[group]
	if !ok || v.Kind == docstore.KindNull {
		return models.Record{}, &MalformedRecordError{DocumentID: doc.ID(), Source: src, Field: group, Reason: "missing"}
	}
	if v.Kind != docstore.KindMap {
		return models.Record{}, &MalformedRecordError{DocumentID: doc.ID(), Source: src, Field: group, Reason: "expected map, got " + v.Kind.String()}
	}
	return buildRecord(doc.ID(), src, v.Map, group+"."+FieldDate, p.opts.location())
}
