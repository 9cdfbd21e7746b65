package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/fatiguetrack/internal/catalog"
	"github.com/meltforce/fatiguetrack/internal/fatigue"
	"github.com/meltforce/fatiguetrack/internal/session"
)

// --- Tool definitions ---

var sessionIDParam = mcp.WithString("session_id", mcp.Description("Session UUID. Defaults to the most recently started open session."))

var toolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription("List the caller's open workout sessions with start time, duration, set count and muscles trained."),
)

var toolCreateSession = mcp.NewTool("create_session",
	mcp.WithDescription("Start a new workout session. All muscles start fresh and the session clock starts now."),
)

var toolGetFatigueLevels = mcp.NewTool("get_fatigue_levels",
	mcp.WithDescription("Current fatigue (0-100) of every muscle group trained in the session, with recovery applied up to now. Includes session duration and recommendations."),
	sessionIDParam,
)

var toolGetMuscleFatigue = mcp.NewTool("get_muscle_fatigue",
	mcp.WithDescription("Current fatigue (0-100) of a single muscle group. Untrained muscles report 0."),
	sessionIDParam,
	mcp.WithString("muscle_group", mcp.Required(), mcp.Description("Muscle group name, case-sensitive (e.g. 'Chest', 'Lower Back', 'Quadriceps')")),
)

var toolGetExerciseFatigue = mcp.NewTool("get_exercise_fatigue",
	mcp.WithDescription("Weighted fatigue of an exercise: 70% primary mover plus 30% the mean of its other target muscles. Pass an exercise name from the catalog, or an explicit muscle_group with optional target_muscles."),
	sessionIDParam,
	mcp.WithString("exercise", mcp.Description("Exercise name (e.g. 'Bench Press', 'DB Row', 'RDL')")),
	mcp.WithString("muscle_group", mcp.Description("Primary muscle group. Overrides the catalog lookup.")),
	mcp.WithString("target_muscles", mcp.Description("Comma-separated target muscle groups (e.g. 'Chest,Triceps,Front Delts')")),
)

var toolGetRecommendations = mcp.NewTool("get_recommendations",
	mcp.WithDescription("Training recommendations: muscles needing rest (>70% fatigue), intensity adjustment (reduce/moderate/maintain) and the freshest muscle to train next."),
	sessionIDParam,
)

var toolRecordSet = mcp.NewTool("record_set",
	mcp.WithDescription("Record a completed set. Recovery since the muscle's last update is applied before the set's fatigue is added. Returns the increase and the new fatigue level."),
	sessionIDParam,
	mcp.WithString("muscle_group", mcp.Description("Muscle group trained. Required unless exercise is given.")),
	mcp.WithString("exercise", mcp.Description("Exercise name; its primary muscle group is charged when muscle_group is omitted.")),
	mcp.WithString("difficulty", mcp.Description("Lifter experience level. Defaults to intermediate."), mcp.Enum("beginner", "intermediate", "advanced")),
	mcp.WithNumber("intensity", mcp.Required(), mcp.Description("Relative intensity from 0 to 1 (e.g. 0.8 for ~80% of max)")),
	mcp.WithNumber("volume", mcp.Required(), mcp.Description("Set volume, typically weight x reps")),
	mcp.WithNumber("duration_seconds", mcp.Required(), mcp.Description("Time under tension in seconds")),
	mcp.WithNumber("rest_seconds", mcp.Description("Rest before this set in seconds. Defaults to 0.")),
)

var toolResetSession = mcp.NewTool("reset_session",
	mcp.WithDescription("Clear all fatigue in the session and restart its clock."),
	sessionIDParam,
)

// --- Tool handlers ---

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := h.ds.ListSessions(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp list_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sessions)
}

func (h *handlers) createSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := h.ds.CreateSession(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp create_session", "error", err)
		return mcp.NewToolResultError("create failed: " + err.Error()), nil
	}
	return jsonResult(info)
}

func (h *handlers) getFatigueLevels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := h.sessionFor(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	snap, err := h.ds.Snapshot(ctx, id)
	if err != nil {
		return h.toolError("get_fatigue_levels", err), nil
	}
	return jsonResult(snap)
}

func (h *handlers) getMuscleFatigue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	muscle, err := req.RequireString("muscle_group")
	if err != nil {
		return mcp.NewToolResultError("muscle_group parameter is required"), nil
	}
	id, errResult := h.sessionFor(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	level, err := h.ds.Level(ctx, id, fatigue.MuscleGroup(muscle))
	if err != nil {
		return h.toolError("get_muscle_fatigue", err), nil
	}
	return jsonResult(map[string]any{
		"muscle_group":  muscle,
		"fatigue_level": level,
	})
}

type exerciseFatigueResult struct {
	Name string `json:"name,omitempty"`
	fatigue.Exercise
	fatigue.ExerciseFatigue
}

func (h *handlers) getExerciseFatigue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("exercise", "")
	muscle := req.GetString("muscle_group", "")

	var res exerciseFatigueResult
	switch {
	case muscle != "":
		res.Name = name
		res.Exercise = fatigue.Exercise{
			MuscleGroup:   fatigue.MuscleGroup(muscle),
			TargetMuscles: splitMuscles(req.GetString("target_muscles", "")),
		}
	case name != "":
		entry, ok := catalog.Lookup(name)
		if !ok {
			return mcp.NewToolResultError("unknown exercise: " + name + "; pass muscle_group and target_muscles instead"), nil
		}
		res.Name = entry.Name
		res.Exercise = entry.Exercise()
	default:
		return mcp.NewToolResultError("exercise or muscle_group parameter is required"), nil
	}

	id, errResult := h.sessionFor(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	ef, err := h.ds.ExerciseFatigue(ctx, id, res.Exercise)
	if err != nil {
		return h.toolError("get_exercise_fatigue", err), nil
	}
	res.ExerciseFatigue = ef
	return jsonResult(res)
}

func (h *handlers) getRecommendations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := h.sessionFor(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	rec, err := h.ds.Recommendations(ctx, id)
	if err != nil {
		return h.toolError("get_recommendations", err), nil
	}
	return jsonResult(rec)
}

func (h *handlers) recordSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	muscle := fatigue.MuscleGroup(req.GetString("muscle_group", ""))
	if muscle == "" {
		name := req.GetString("exercise", "")
		if name == "" {
			return mcp.NewToolResultError("muscle_group or exercise parameter is required"), nil
		}
		entry, ok := catalog.Lookup(name)
		if !ok {
			return mcp.NewToolResultError("unknown exercise: " + name + "; pass muscle_group instead"), nil
		}
		muscle = entry.Primary
	}

	intensity, err := req.RequireFloat("intensity")
	if err != nil {
		return mcp.NewToolResultError("intensity parameter is required"), nil
	}
	volume, err := req.RequireFloat("volume")
	if err != nil {
		return mcp.NewToolResultError("volume parameter is required"), nil
	}
	duration, err := req.RequireFloat("duration_seconds")
	if err != nil {
		return mcp.NewToolResultError("duration_seconds parameter is required"), nil
	}

	id, errResult := h.sessionFor(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	res, err := h.ds.RecordSet(ctx, id, fatigue.SetInput{
		MuscleGroup:              muscle,
		Difficulty:               fatigue.Difficulty(req.GetString("difficulty", string(fatigue.Intermediate))),
		Intensity:                intensity,
		Volume:                   volume,
		DurationSeconds:          duration,
		RestSecondsSincePrevious: req.GetFloat("rest_seconds", 0),
	})
	if err != nil {
		return h.toolError("record_set", err), nil
	}
	return jsonResult(res)
}

func (h *handlers) resetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := h.sessionFor(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	info, err := h.ds.ResetSession(ctx, id)
	if err != nil {
		return h.toolError("reset_session", err), nil
	}
	return jsonResult(info)
}

// sessionFor resolves the session_id argument, falling back to the caller's
// most recently started session.
func (h *handlers) sessionFor(ctx context.Context, req mcp.CallToolRequest) (uuid.UUID, *mcp.CallToolResult) {
	if raw := req.GetString("session_id", ""); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, mcp.NewToolResultError("invalid session_id: " + err.Error())
		}
		return id, nil
	}

	sessions, err := h.ds.ListSessions(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp resolve session", "error", err)
		return uuid.Nil, mcp.NewToolResultError("query failed: " + err.Error())
	}
	if len(sessions) == 0 {
		return uuid.Nil, mcp.NewToolResultError("no open session; call create_session first")
	}
	return sessions[len(sessions)-1].ID, nil
}

func (h *handlers) toolError(tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, session.ErrNotFound) {
		return mcp.NewToolResultError("session not found")
	}
	h.log.Error("mcp "+tool, "error", err)
	return mcp.NewToolResultError("query failed: " + err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func splitMuscles(s string) []fatigue.MuscleGroup {
	var out []fatigue.MuscleGroup
	for _, part := range strings.Split(s, ",") {
		if m := strings.TrimSpace(part); m != "" {
			out = append(out, fatigue.MuscleGroup(m))
		}
	}
	return out
}
