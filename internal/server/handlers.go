package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meltforce/fatiguetrack/internal/catalog"
	"github.com/meltforce/fatiguetrack/internal/fatigue"
	"github.com/meltforce/fatiguetrack/internal/session"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UserFromRequest(r))
}

func (s *Server) handleMuscleGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Tables().Groups())
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.All())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.EvictIdle(r.Context())

	info, err := s.sessions.Create(r.Context(), UserFromRequest(r).Login)
	if err != nil {
		s.log.Error("create session failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.sessions.EvictIdle(r.Context())
	writeJSON(w, http.StatusOK, s.sessions.List(UserFromRequest(r).Login))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	info, err := s.sessions.Get(UserFromRequest(r).Login, id)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Close(r.Context(), UserFromRequest(r).Login, id); err != nil {
		s.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// recordSetRequest is a set input that may name an exercise instead of a
// muscle group; the exercise's primary muscle is then charged.
type recordSetRequest struct {
	fatigue.SetInput
	Exercise string `json:"exercise,omitempty"`
}

func (s *Server) handleRecordSet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	var req recordSetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := req.SetInput
	if in.MuscleGroup == "" && req.Exercise != "" {
		entry, found := catalog.Lookup(req.Exercise)
		if !found {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown exercise: " + req.Exercise})
			return
		}
		in.MuscleGroup = entry.Primary
	}
	if in.MuscleGroup == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "muscle_group or exercise is required"})
		return
	}
	if !s.sessions.Tables().IsKnown(in.MuscleGroup) {
		s.log.Warn("set for unknown muscle group, using default rates", "session", id, "muscle", in.MuscleGroup)
	}

	res, err := s.sessions.RecordSet(r.Context(), UserFromRequest(r).Login, id, in)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	levels, err := s.sessions.Levels(UserFromRequest(r).Login, id)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, levels)
}

// LevelResponse is the current fatigue of one muscle group.
type LevelResponse struct {
	MuscleGroup  fatigue.MuscleGroup `json:"muscle_group"`
	FatigueLevel float64             `json:"fatigue_level"`
}

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	muscle, err := url.PathUnescape(chi.URLParam(r, "muscle"))
	if err != nil || muscle == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid muscle group"})
		return
	}
	level, err := s.sessions.Level(UserFromRequest(r).Login, id, fatigue.MuscleGroup(muscle))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LevelResponse{MuscleGroup: fatigue.MuscleGroup(muscle), FatigueLevel: level})
}

type exerciseFatigueRequest struct {
	Exercise      string                `json:"exercise,omitempty"`
	MuscleGroup   fatigue.MuscleGroup   `json:"muscle_group,omitempty"`
	TargetMuscles []fatigue.MuscleGroup `json:"target_muscles,omitempty"`
}

// ExerciseFatigueResponse echoes the scored exercise with its fatigue.
type ExerciseFatigueResponse struct {
	Name string `json:"name,omitempty"`
	fatigue.Exercise
	fatigue.ExerciseFatigue
}

func (s *Server) handleExerciseFatigue(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	var req exerciseFatigueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, ok := resolveExercise(req)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a known exercise or a muscle_group is required"})
		return
	}

	ef, err := s.sessions.ExerciseFatigue(UserFromRequest(r).Login, id, resp.Exercise)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	resp.ExerciseFatigue = ef
	writeJSON(w, http.StatusOK, resp)
}

// resolveExercise prefers an explicit muscle group over a catalog lookup.
func resolveExercise(req exerciseFatigueRequest) (ExerciseFatigueResponse, bool) {
	if req.MuscleGroup != "" {
		return ExerciseFatigueResponse{
			Name:     req.Exercise,
			Exercise: fatigue.Exercise{MuscleGroup: req.MuscleGroup, TargetMuscles: req.TargetMuscles},
		}, true
	}
	if req.Exercise == "" {
		return ExerciseFatigueResponse{}, false
	}
	entry, found := catalog.Lookup(req.Exercise)
	if !found {
		return ExerciseFatigueResponse{}, false
	}
	return ExerciseFatigueResponse{Name: entry.Name, Exercise: entry.Exercise()}, true
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	rec, err := s.sessions.Recommendations(UserFromRequest(r).Login, id)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	info, err := s.sessions.Reset(r.Context(), UserFromRequest(r).Login, id)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	snap, err := s.sessions.Snapshot(UserFromRequest(r).Login, id)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	s.log.Error("session operation failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
