// Package tools defines the closed set of lookups the model can invoke, their
// typed parameter schemas and the registry that validates and dispatches calls.
package tools

import (
	"context"
	"fmt"
)

// Name identifies a tool. The set is closed: only the constants below are valid.
type Name string

const (
	SearchPlaces   Name = "search_places"
	GeocodeAddress Name = "geocode_address"
	GetDirections  Name = "get_directions"
	SearchCorpus   Name = "search_seattle_corpus"
)

// AllNames returns every tool name in a stable order.
func AllNames() []Name {
	return []Name{GeocodeAddress, GetDirections, SearchPlaces, SearchCorpus}
}

// Valid reports whether n is one of the known tools.
func (n Name) Valid() bool {
	switch n {
	case SearchPlaces, GeocodeAddress, GetDirections, SearchCorpus:
		return true
	}
	return false
}

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	String  ParamType = "string"
	Number  ParamType = "number"
	Boolean ParamType = "boolean"
)

// Param describes one tool argument. Default applies only to optional
// parameters; an optional parameter without one is left out of the call.
type Param struct {
	Name        string
	Description string
	Type        ParamType
	Required    bool
	Default     interface{}
	Enum        []string
}

// Tool represents a callable function the LLM can invoke
type Tool struct {
	Name        Name
	Description string
	Params      []Param
	Execute     func(ctx context.Context, args Args) (string, error)
}

// Args holds validated arguments with defaults applied. Values have already
// been type-checked against the tool's parameters, so accessors don't fail.
type Args map[string]interface{}

// Has reports whether the argument was given or defaulted.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Args) Number(name string) (float64, bool) {
	f, ok := a[name].(float64)
	return f, ok
}

func (a Args) Bool(name string) (bool, bool) {
	b, ok := a[name].(bool)
	return b, ok
}

func (t Tool) param(name string) (Param, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

func (t Tool) validate() error {
	if !t.Name.Valid() {
		return fmt.Errorf("unknown tool name %q", t.Name)
	}
	if t.Execute == nil {
		return fmt.Errorf("tool %s has no Execute func", t.Name)
	}
	seen := make(map[string]bool, len(t.Params))
	for _, p := range t.Params {
		if p.Name == "" || seen[p.Name] {
			return fmt.Errorf("tool %s: empty or duplicate parameter %q", t.Name, p.Name)
		}
		seen[p.Name] = true
		switch p.Type {
		case String, Number, Boolean:
		default:
			return fmt.Errorf("tool %s: parameter %s has unsupported type %q", t.Name, p.Name, p.Type)
		}
		if p.Required && p.Default != nil {
			return fmt.Errorf("tool %s: required parameter %s cannot have a default", t.Name, p.Name)
		}
	}
	return nil
}
