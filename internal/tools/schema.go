package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// InputSchema renders the JSON schema object sent to the model providers.
func (t Tool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"properties":           t.Properties(),
		"required":             t.Required(),
		"additionalProperties": false,
	}
}

// Properties is the "properties" member of InputSchema.
func (t Tool) Properties() map[string]interface{} {
	props := make(map[string]interface{}, len(t.Params))
	for _, p := range t.Params {
		prop := map[string]interface{}{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[p.Name] = prop
	}
	return props
}

// Required lists required parameter names in declaration order.
func (t Tool) Required() []string {
	required := []string{}
	for _, p := range t.Params {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return required
}

// bind decodes raw model arguments, checks them against the parameters and
// fills in defaults. Null values count as omitted.
func (t Tool) bind(raw json.RawMessage) (Args, error) {
	input := map[string]interface{}{}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if trimmed[0] != '{' {
			return nil, fmt.Errorf("%w: arguments must be a JSON object", ErrInvalidArguments)
		}
		if err := json.Unmarshal(trimmed, &input); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
	}

	args := make(Args, len(t.Params))
	for name, value := range input {
		p, ok := t.param(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown argument %q", ErrInvalidArguments, name)
		}
		if value == nil {
			continue
		}
		if err := checkType(p, value); err != nil {
			return nil, err
		}
		args[name] = value
	}

	for _, p := range t.Params {
		if args.Has(p.Name) {
			continue
		}
		if p.Required {
			return nil, fmt.Errorf("%w: missing required argument %q", ErrInvalidArguments, p.Name)
		}
		if p.Default != nil {
			args[p.Name] = p.Default
		}
	}
	return args, nil
}

func checkType(p Param, value interface{}) error {
	switch p.Type {
	case String:
		s, ok := value.(string)
		if !ok {
			return typeError(p, value)
		}
		if p.Required && strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: argument %q must not be empty", ErrInvalidArguments, p.Name)
		}
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			return fmt.Errorf("%w: argument %q must be one of %s", ErrInvalidArguments, p.Name, strings.Join(p.Enum, ", "))
		}
	case Number:
		if _, ok := value.(float64); !ok {
			return typeError(p, value)
		}
	case Boolean:
		if _, ok := value.(bool); !ok {
			return typeError(p, value)
		}
	}
	return nil
}

func typeError(p Param, value interface{}) error {
	return fmt.Errorf("%w: argument %q must be a %s, got %T", ErrInvalidArguments, p.Name, p.Type, value)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
