// Package wptools registers the gateway's WordPress content tools.
package wptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/edpreble/mcp-wp/pkg/toolreg"
	"github.com/edpreble/mcp-wp/pkg/wp"
)

func intPtr(n int) *int { return &n }

var contentTypeParam = toolreg.Param{
	Name:        "type",
	Type:        "string",
	Description: "Content type to operate on.",
	Required:    true,
	Enum:        []any{"post", "page"},
}

var idParam = toolreg.Param{
	Name:        "id",
	Type:        "integer",
	Description: "Numeric id of the target entity.",
	Required:    true,
	Min:         intPtr(1),
}

// Register installs the full tool set against the given WordPress client.
func Register(reg *toolreg.Registry, client *wp.Client) error {
	tools := []toolreg.Registration{
		{
			Descriptor: toolreg.Descriptor{
				Name:        "ping",
				Title:       "Ping",
				Description: "Liveness echo. Returns pong, with the message appended when given.",
				Params: []toolreg.Param{
					{Name: "msg", Type: "string", Description: "Optional message to echo back."},
				},
			},
			Handler: handlePing,
		},
		{
			Descriptor: toolreg.Descriptor{
				Name:        "list_content",
				Title:       "List content",
				Description: "List posts or pages with pagination and optional search/status filters.",
				Params: []toolreg.Param{
					contentTypeParam,
					{Name: "page", Type: "integer", Description: "Result page, starting at 1.", Default: 1, Min: intPtr(1)},
					{Name: "per_page", Type: "integer", Description: "Items per page.", Default: 10, Min: intPtr(1), Max: intPtr(100)},
					{Name: "search", Type: "string", Description: "Full-text search term."},
					{Name: "status", Type: "string", Description: "Filter by entity status, e.g. publish or draft."},
				},
			},
			Handler: listHandler(client),
		},
		{
			Descriptor: toolreg.Descriptor{
				Name:        "get_content",
				Title:       "Get content",
				Description: "Fetch a single post or page by id.",
				Params:      []toolreg.Param{contentTypeParam, idParam},
			},
			Handler: getHandler(client),
		},
		{
			Descriptor: toolreg.Descriptor{
				Name:        "create_content",
				Title:       "Create content",
				Description: "Create a post or page. New entities default to draft status.",
				Params: []toolreg.Param{
					contentTypeParam,
					{Name: "title", Type: "string", Description: "Entity title.", Required: true},
					{Name: "content", Type: "string", Description: "Entity body.", Required: true},
					{Name: "status", Type: "string", Description: "Publication status.", Default: "draft"},
					{Name: "slug", Type: "string", Description: "URL slug."},
				},
			},
			Handler: createHandler(client),
		},
		{
			Descriptor: toolreg.Descriptor{
				Name:        "update_content",
				Title:       "Update content",
				Description: "Patch a post or page. At least one field must be provided.",
				Params: []toolreg.Param{
					contentTypeParam,
					idParam,
					{Name: "title", Type: "string", Description: "New title."},
					{Name: "content", Type: "string", Description: "New body."},
					{Name: "status", Type: "string", Description: "New publication status."},
					{Name: "slug", Type: "string", Description: "New URL slug."},
				},
			},
			Handler: updateHandler(client),
		},
		{
			Descriptor: toolreg.Descriptor{
				Name:        "delete_content",
				Title:       "Delete content",
				Description: "Delete a post or page. Deletion is permanent unless force is false.",
				Params: []toolreg.Param{
					contentTypeParam,
					idParam,
					{Name: "force", Type: "boolean", Description: "Bypass trash and delete permanently.", Default: true},
				},
			},
			Handler: deleteHandler(client),
		},
	}
	for _, t := range tools {
		if err := reg.Register(t.Descriptor, t.Handler); err != nil {
			return err
		}
	}
	return nil
}

func handlePing(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	msg := "pong"
	if s, ok := args["msg"].(string); ok && s != "" {
		msg = "pong: " + s
	}
	return textResult(msg), nil
}

func listHandler(client *wp.Client) toolreg.Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		items, total, err := client.List(ctx, args["type"].(string), wp.ListQuery{
			Page:    args["page"].(int),
			PerPage: args["per_page"].(int),
			Search:  stringArg(args, "search"),
			Status:  stringArg(args, "status"),
		})
		if err != nil {
			return nil, err
		}
		return jsonResult(map[string]any{"items": items, "total": total})
	}
}

func getHandler(client *wp.Client) toolreg.Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		entity, err := client.Get(ctx, args["type"].(string), args["id"].(int))
		if err != nil {
			return nil, err
		}
		return jsonResult(entity)
	}
}

func createHandler(client *wp.Client) toolreg.Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		fields := wp.Fields{
			"title":   args["title"],
			"content": args["content"],
			"status":  args["status"],
		}
		if slug := stringArg(args, "slug"); slug != "" {
			fields["slug"] = slug
		}
		entity, err := client.Create(ctx, args["type"].(string), fields)
		if err != nil {
			return nil, err
		}
		return jsonResult(entity)
	}
}

func updateHandler(client *wp.Client) toolreg.Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		patch := wp.Fields{}
		for _, field := range []string{"title", "content", "status", "slug"} {
			if v, ok := args[field]; ok {
				patch[field] = v
			}
		}
		entity, err := client.Update(ctx, args["type"].(string), args["id"].(int), patch)
		if err != nil {
			return nil, err
		}
		return jsonResult(entity)
	}
}

func deleteHandler(client *wp.Client) toolreg.Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		result, err := client.Delete(ctx, args["type"].(string), args["id"].(int), args["force"].(bool))
		if err != nil {
			return nil, err
		}
		return jsonResult(result)
	}
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	buf, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("wptools: encoding result: %w", err)
	}
	return textResult(string(buf)), nil
}
