package toolreg

import (
	"context"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func noopHandler(context.Context, map[string]any) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{}, nil
}

func intPtr(n int) *int { return &n }

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	err := reg.Register(Descriptor{
		Name: "list_things",
		Params: []Param{
			{Name: "kind", Type: "string", Required: true, Enum: []any{"post", "page"}},
			{Name: "page", Type: "integer", Default: 1, Min: intPtr(1)},
			{Name: "per_page", Type: "integer", Default: 10, Min: intPtr(1), Max: intPtr(100)},
			{Name: "id", Type: "integer", Min: intPtr(1)},
			{Name: "force", Type: "boolean", Default: true},
		},
	}, noopHandler)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg
}

func TestRegisterDuplicateName(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	err := reg.Register(Descriptor{Name: "list_things"}, noopHandler)
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestResolveUnknownTool(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	if _, err := reg.Resolve("nope"); !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
	if _, err := reg.Validate("nope", nil); !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("validate of unknown tool: expected ErrUnknownTool, got %v", err)
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	args, err := reg.Validate("list_things", map[string]any{"kind": "post"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := args["page"]; got != 1 {
		t.Fatalf("page default: got %v", got)
	}
	if got := args["per_page"]; got != 10 {
		t.Fatalf("per_page default: got %v", got)
	}
	if got := args["force"]; got != true {
		t.Fatalf("force default: got %v", got)
	}
	if _, ok := args["id"]; ok {
		t.Fatal("optional param without default must stay absent")
	}
}

func TestValidateMissingRequired(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	_, err := reg.Validate("list_things", map[string]any{})
	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
	if invalid.Param != "kind" {
		t.Fatalf("expected failing param kind, got %q", invalid.Param)
	}
}

func TestValidateEnum(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	_, err := reg.Validate("list_things", map[string]any{"kind": "comment"})
	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) || invalid.Param != "kind" {
		t.Fatalf("expected enum violation on kind, got %v", err)
	}
}

func TestValidatePerPageUpperBound(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	_, err := reg.Validate("list_things", map[string]any{"kind": "post", "per_page": 150})
	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) || invalid.Param != "per_page" {
		t.Fatalf("expected bound violation on per_page, got %v", err)
	}
}

func TestValidateIDCoercion(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	for _, raw := range []any{42, int64(42), float64(42), "42"} {
		args, err := reg.Validate("list_things", map[string]any{"kind": "post", "id": raw})
		if err != nil {
			t.Fatalf("id %#v: %v", raw, err)
		}
		if got := args["id"]; got != 42 {
			t.Fatalf("id %#v: coerced to %v, want 42", raw, got)
		}
	}

	_, err := reg.Validate("list_things", map[string]any{"kind": "post", "id": "forty-two"})
	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) || invalid.Param != "id" {
		t.Fatalf("expected coercion failure on id, got %v", err)
	}
}

func TestValidateDropsUndeclaredArguments(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	args, err := reg.Validate("list_things", map[string]any{"kind": "post", "surprise": "x"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, ok := args["surprise"]; ok {
		t.Fatal("undeclared argument leaked through validation")
	}
}

func TestDescriptorTool(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	tools := reg.Tools()
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	tool := tools[0]
	if tool.Name != "list_things" {
		t.Fatalf("unexpected tool name %q", tool.Name)
	}
	schema, ok := tool.InputSchema.(*jsonschema.Schema)
	if !ok || schema == nil || schema.Type != "object" {
		t.Fatalf("unexpected input schema %+v", schema)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "kind" {
		t.Fatalf("unexpected required list %v", schema.Required)
	}
	pp, ok := schema.Properties["per_page"]
	if !ok || pp.Maximum == nil || *pp.Maximum != 100 {
		t.Fatalf("per_page schema missing maximum: %+v", pp)
	}
}
