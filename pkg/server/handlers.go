package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/pkg/errors"

	"github.com/serenique/serenique-server/pkg/chat"
	"github.com/serenique/serenique-server/pkg/db"
	"github.com/serenique/serenique-server/pkg/persona"
)

type generatePersonaRequest struct {
	UserID  string              `json:"user_id"`
	Answers persona.QuizAnswers `json:"answers"`
}

func (s *Server) generatePersonaHandler(w http.ResponseWriter, r *http.Request) {
	var req generatePersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}

	userPersona, err := s.architect.Generate(r.Context(), req.UserID, req.Answers)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := s.store.PutPersona(r.Context(), req.UserID, userPersona.PersonalityProfile); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.PutLiveState(r.Context(), req.UserID, userPersona.LiveUserState); err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("persona generated", "user_id", req.UserID)
	s.writeJSON(w, http.StatusCreated, userPersona)
}

func (s *Server) getPersonaHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	profile, err := s.store.GetPersona(r.Context(), userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.writeError(w, errors.Wrapf(chat.ErrNoPersona, "user %s", userID))
			return
		}
		s.writeError(w, err)
		return
	}

	state, err := s.store.GetLiveState(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.writeError(w, err)
			return
		}
		state = persona.NewLiveUserState()
	}

	s.writeJSON(w, http.StatusOK, persona.UserPersona{
		UserID:             userID,
		PersonalityProfile: profile,
		LiveUserState:      state,
	})
}

type updateStateRequest struct {
	Type             string  `json:"type"`
	Content          string  `json:"content"`
	Mood             string  `json:"mood"`
	StressorDetected string  `json:"stressor_detected"`
	CrisisDetected   bool    `json:"crisis_detected"`
	ToolName         string  `json:"tool_name"`
	Technique        string  `json:"technique"`
	MoodAfter        string  `json:"mood_after"`
	MoodImprovement  string  `json:"mood_improvement"`
	SessionQuality   string  `json:"session_quality"`
	Completed        bool    `json:"completed"`
	PausedTimes      int     `json:"paused_times"`
	CompletionRate   float64 `json:"completion_rate"`
	StressLevel      string  `json:"stress_level"`
	Environment      string  `json:"environment"`
	HasTenseAreas    bool    `json:"has_tense_areas"`
	SleepHours       float64 `json:"sleep_hours"`
	SleepQuality     string  `json:"sleep_quality"`
}

func (s *Server) updateStateHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req updateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	actionType, ok := persona.ParseActionType(req.Type)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown action type: " + req.Type})
		return
	}

	if _, err := s.store.GetPersona(r.Context(), userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.writeError(w, errors.Wrapf(chat.ErrNoPersona, "user %s", userID))
			return
		}
		s.writeError(w, err)
		return
	}

	state, err := s.store.GetLiveState(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.writeError(w, err)
			return
		}
		state = persona.NewLiveUserState()
	}

	next := persona.Apply(state, persona.Action{
		Type:             actionType,
		Content:          req.Content,
		Mood:             persona.Mood(req.Mood),
		StressorDetected: req.StressorDetected,
		CrisisDetected:   req.CrisisDetected,
		ToolName:         req.ToolName,
		Technique:        req.Technique,
		MoodAfter:        persona.Mood(req.MoodAfter),
		MoodImprovement:  req.MoodImprovement,
		SessionQuality:   req.SessionQuality,
		Completed:        req.Completed,
		PausedTimes:      req.PausedTimes,
		CompletionRate:   req.CompletionRate,
		StressLevel:      req.StressLevel,
		Environment:      req.Environment,
		HasTenseAreas:    req.HasTenseAreas,
		SleepHours:       req.SleepHours,
		SleepQuality:     req.SleepQuality,
	}, time.Now())

	if err := s.store.PutLiveState(r.Context(), userID, next); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, next)
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id and message are required"})
		return
	}

	reply, err := s.chat.SendMessage(r.Context(), req.UserID, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := queryInt(r, "limit", s.historyLimit)

	messages, err := s.chat.History(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"messages": messages,
	})
}

func (s *Server) clearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	deleted, err := s.chat.ClearHistory(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"deleted": deleted,
	})
}

func (s *Server) insightsHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := queryInt(r, "limit", s.insightLimit)

	insights, err := s.chat.Insights(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"insights": insights,
	})
}

func (s *Server) insightStatsHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	stats, err := s.chat.InsightStats(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"counts":  stats,
	})
}

func (s *Server) deleteInsightHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	insightID := chi.URLParam(r, "insightID")

	if err := s.chat.DeleteInsight(r.Context(), userID, insightID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) cacheStatsHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.chat.CacheStats())
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
