package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// DefaultUserID owns sessions created without an authenticated caller.
const DefaultUserID = "local"

// UserIDFromContext extracts the user login injected by the transport layer.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		return id
	}
	return DefaultUserID
}

// WithUserID returns a context with the given user login.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("FatigueTrack", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("FatigueTrack workout fatigue server. Record completed sets and query per-muscle fatigue, exercise fatigue and training recommendations for a workout session. Tools that take session_id use the caller's most recent session when it is omitted."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListSessions, Handler: h.listSessions},
		server.ServerTool{Tool: toolCreateSession, Handler: h.createSession},
		server.ServerTool{Tool: toolGetFatigueLevels, Handler: h.getFatigueLevels},
		server.ServerTool{Tool: toolGetMuscleFatigue, Handler: h.getMuscleFatigue},
		server.ServerTool{Tool: toolGetExerciseFatigue, Handler: h.getExerciseFatigue},
		server.ServerTool{Tool: toolGetRecommendations, Handler: h.getRecommendations},
		server.ServerTool{Tool: toolRecordSet, Handler: h.recordSet},
		server.ServerTool{Tool: toolResetSession, Handler: h.resetSession},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resMuscleGroups, Handler: h.muscleGroups},
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resMuscleGroups = mcp.NewResource(
	"fatiguetrack://muscle_groups",
	"Muscle Groups",
	mcp.WithResourceDescription("All tracked muscle groups with their base fatigue per set and recovery rate per minute"),
	mcp.WithMIMEType("application/json"),
)

var resExerciseCatalog = mcp.NewResource(
	"fatiguetrack://exercises",
	"Exercise Catalog",
	mcp.WithResourceDescription("Known exercises with aliases, primary muscle group and secondary muscles"),
	mcp.WithMIMEType("application/json"),
)
