// Package toolreg holds the gateway's tool registry: named, schema-declared
// operations resolved and validated before any handler runs. The registry is
// populated once at startup and read-only afterwards.
package toolreg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	// ErrDuplicateTool reports a second registration under an existing name.
	ErrDuplicateTool = errors.New("toolreg: duplicate tool name")
	// ErrUnknownTool reports a lookup for a name that was never registered.
	ErrUnknownTool = errors.New("toolreg: unknown tool")
)

// InvalidArgumentError reports the first argument that failed validation.
type InvalidArgumentError struct {
	Param  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Param, e.Reason)
}

// Param declares one input parameter of a tool.
type Param struct {
	Name        string
	Type        string // "string", "integer", or "boolean"
	Description string
	Required    bool
	Default     any   // applied when the argument is absent
	Enum        []any // allowed values, if restricted
	Min, Max    *int  // bounds for integer parameters
}

// Descriptor declares a tool: its identity plus the schema its arguments
// must satisfy.
type Descriptor struct {
	Name        string
	Title       string
	Description string
	Params      []Param
}

// Handler executes a tool invocation with arguments already validated and
// defaulted against the tool's declared parameters.
type Handler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

// Registration pairs a descriptor with its handler.
type Registration struct {
	Descriptor Descriptor
	Handler    Handler
}

// Registry maps tool names to registrations. Register is called from main
// before the gateway serves; after that the registry is only read, so no
// locking is needed.
type Registry struct {
	tools map[string]Registration
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Registration)}
}

// Register adds a tool. Names are unique; a repeat fails with
// ErrDuplicateTool.
func (r *Registry) Register(desc Descriptor, handler Handler) error {
	if desc.Name == "" {
		return errors.New("toolreg: tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("toolreg: tool %q has no handler", desc.Name)
	}
	if _, ok := r.tools[desc.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, desc.Name)
	}
	r.tools[desc.Name] = Registration{Descriptor: desc, Handler: handler}
	return nil
}

// Resolve returns the registration for name or ErrUnknownTool.
func (r *Registry) Resolve(name string) (Registration, error) {
	reg, ok := r.tools[name]
	if !ok {
		return Registration{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return reg, nil
}

// Tools renders every registered descriptor as an MCP tool, sorted by name.
func (r *Registry) Tools() []*mcp.Tool {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*mcp.Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name].Descriptor.Tool())
	}
	return out
}

// Validate checks args against the named tool's declared parameters and
// returns a new argument bag with defaults applied and integer values
// coerced. Undeclared arguments are dropped. The first violation fails with
// *InvalidArgumentError naming the parameter.
func (r *Registry) Validate(name string, args map[string]any) (map[string]any, error) {
	reg, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(reg.Descriptor.Params))
	for _, p := range reg.Descriptor.Params {
		raw, ok := args[p.Name]
		if !ok || raw == nil {
			if p.Required {
				return nil, &InvalidArgumentError{Param: p.Name, Reason: "required parameter is missing"}
			}
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}
		val, err := coerce(p, raw)
		if err != nil {
			return nil, err
		}
		if len(p.Enum) > 0 && !enumContains(p.Enum, val) {
			return nil, &InvalidArgumentError{Param: p.Name, Reason: fmt.Sprintf("must be one of %v", p.Enum)}
		}
		out[p.Name] = val
	}
	return out, nil
}

func coerce(p Param, raw any) (any, error) {
	switch p.Type {
	case "string":
		s, ok := raw.(string)
		if !ok {
			return nil, &InvalidArgumentError{Param: p.Name, Reason: "must be a string"}
		}
		return s, nil
	case "integer":
		n, err := toInt(raw)
		if err != nil {
			return nil, &InvalidArgumentError{Param: p.Name, Reason: err.Error()}
		}
		if p.Min != nil && n < *p.Min {
			return nil, &InvalidArgumentError{Param: p.Name, Reason: fmt.Sprintf("must be at least %d", *p.Min)}
		}
		if p.Max != nil && n > *p.Max {
			return nil, &InvalidArgumentError{Param: p.Name, Reason: fmt.Sprintf("must be at most %d", *p.Max)}
		}
		return n, nil
	case "boolean":
		b, ok := raw.(bool)
		if !ok {
			return nil, &InvalidArgumentError{Param: p.Name, Reason: "must be a boolean"}
		}
		return b, nil
	default:
		return nil, &InvalidArgumentError{Param: p.Name, Reason: fmt.Sprintf("undeclared parameter type %q", p.Type)}
	}
}

// toInt accepts native integers, JSON numbers, and numeric strings. Clients
// routinely send ids as either 42 or "42"; both must behave identically.
func toInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.New("must be a whole number")
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, errors.New("must be a whole number")
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, errors.New("must be an integer or numeric string")
		}
		return n, nil
	default:
		return 0, errors.New("must be an integer")
	}
}

func enumContains(enum []any, val any) bool {
	for _, e := range enum {
		if e == val {
			return true
		}
	}
	return false
}

// Tool renders the descriptor as an MCP tool with a JSON Schema for its
// input, suitable for a tools/list response.
func (d Descriptor) Tool() *mcp.Tool {
	props := make(map[string]*jsonschema.Schema, len(d.Params))
	var required []string
	for _, p := range d.Params {
		s := &jsonschema.Schema{Type: p.Type, Description: p.Description}
		if len(p.Enum) > 0 {
			s.Enum = append([]any(nil), p.Enum...)
		}
		if p.Min != nil {
			min := float64(*p.Min)
			s.Minimum = &min
		}
		if p.Max != nil {
			max := float64(*p.Max)
			s.Maximum = &max
		}
		if p.Default != nil {
			if raw, err := json.Marshal(p.Default); err == nil {
				s.Default = raw
			}
		}
		props[p.Name] = s
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return &mcp.Tool{
		Name:        d.Name,
		Title:       d.Title,
		Description: d.Description,
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}
