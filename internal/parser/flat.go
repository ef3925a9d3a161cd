package parser

import (
	"github.com/siddheshvrane/solar-dashboard/internal/docstore"
	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

// FlatParser handles the schema with one collection per source and flat
// documents {Angle, Current, Voltage, LDR?, Date}. Date may be a string or
// a native timestamp.
type FlatParser struct {
	opts Options
}

func NewFlatParser(opts Options) *FlatParser {
	def := DefaultOptions()
	if opts.SolarCollection == "" {
		opts.SolarCollection = def.SolarCollection
	}
	if opts.WindCollection == "" {
		opts.WindCollection = def.WindCollection
	}
	return &FlatParser{opts: opts}
}

func (p *FlatParser) Name() string {
	return "flat"
}

func (p *FlatParser) Query(src models.Source) docstore.Query {
	collection := p.opts.SolarCollection
	if src == models.SourceWind {
		collection = p.opts.WindCollection
	}
	return docstore.Query{
		Collection: collection,
		OrderBy:    FieldDate,
		Direction:  docstore.Ascending,
	}
}

func (p *FlatParser) Parse(doc docstore.Document, src models.Source) (models.Record, error) {
	return buildRecord(doc.ID(), src, doc.Fields, FieldDate, p.opts.location())
}
