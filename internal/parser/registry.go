package parser

import (
	"fmt"
	"strings"
)

// Registry holds the parser of every known schema version.
type Registry struct {
	parsers []Parser
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		parsers: []Parser{
			NewNestedParser(opts),
			NewFlatParser(opts),
		},
	}
}

// Register adds a new parser to the registry.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Names lists the registered schema names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.parsers))
	for _, p := range r.parsers {
		names = append(names, p.Name())
	}
	return names
}

// GetParserByName returns a parser by its name.
func (r *Registry) GetParserByName(name string) (Parser, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range r.parsers {
		if strings.ToLower(p.Name()) == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("parser not found: %s", name)
}
