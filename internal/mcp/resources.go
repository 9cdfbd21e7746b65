package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/fatiguetrack/internal/catalog"
)

func (h *handlers) muscleGroups(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	groups, err := h.ds.MuscleGroups(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, groups)
}

func (h *handlers) exerciseCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, catalog.All())
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
