// Package api exposes the engine over HTTP with JSON bodies.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/harunnryd/shukan/internal/engine"
	shukanErrors "github.com/harunnryd/shukan/internal/errors"
	"github.com/harunnryd/shukan/internal/profile"
	"github.com/harunnryd/shukan/internal/progression"
	"github.com/harunnryd/shukan/internal/quest"
	"github.com/harunnryd/shukan/internal/routine"
	"github.com/harunnryd/shukan/internal/session"
	"github.com/harunnryd/shukan/internal/transfer"
)

const maxImportBytes = 8 << 20

// Engine is the subset of *engine.Engine the handlers call.
type Engine interface {
	Snapshot(ctx context.Context) (engine.Snapshot, error)
	Routines(ctx context.Context, query string) ([]routine.Routine, error)
	Routine(ctx context.Context, id string) (routine.Routine, error)
	AddRoutine(ctx context.Context, f routine.Fields) (routine.Routine, error)
	EditRoutine(ctx context.Context, id string, f routine.Fields) (routine.Routine, error)
	RemoveRoutine(ctx context.Context, id string) error
	UseShield(ctx context.Context, routineID string) (routine.Routine, error)
	StartSession(ctx context.Context, routineID string) (session.Session, error)
	ActiveSession(ctx context.Context) (session.Session, bool, error)
	PauseToggle(ctx context.Context) (session.Session, error)
	AddMinute(ctx context.Context) (session.Session, error)
	FinishEarly(ctx context.Context) (engine.Outcome, error)
	CancelSession(ctx context.Context) error
	Quests(ctx context.Context) ([]quest.Progress, error)
	ClaimQuest(ctx context.Context, id string) (engine.QuestClaim, error)
	PendingRewards(ctx context.Context) ([]progression.Reward, error)
	ClaimReward(ctx context.Context) (progression.Reward, bool, error)
	Stats(ctx context.Context) (profile.Stats, error)
	Analytics(ctx context.Context) (engine.Analytics, error)
	Week(ctx context.Context, days int) (routine.Week, error)
	Settings(ctx context.Context) (profile.Settings, error)
	UpdateSettings(ctx context.Context, patch profile.SettingsPatch) (profile.Settings, error)
	Export(ctx context.Context) (transfer.Document, error)
	Import(ctx context.Context, data []byte) error
}

// ComponentStatus reports per-component health for GET /health. Nil errors
// mean healthy.
type ComponentStatus func() map[string]error

type Handler struct {
	engine Engine
	status ComponentStatus
}

func NewHandler(e Engine, status ComponentStatus) *Handler {
	return &Handler{engine: e, status: status}
}

// Routes returns the mux with every endpoint registered, wrapped in the
// request-id and logging middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /v1/state", h.State)

	mux.HandleFunc("GET /v1/routines", h.ListRoutines)
	mux.HandleFunc("POST /v1/routines", h.CreateRoutine)
	mux.HandleFunc("GET /v1/routines/{id}", h.GetRoutine)
	mux.HandleFunc("PATCH /v1/routines/{id}", h.EditRoutine)
	mux.HandleFunc("DELETE /v1/routines/{id}", h.DeleteRoutine)
	mux.HandleFunc("POST /v1/routines/{id}/shield", h.UseShield)

	mux.HandleFunc("GET /v1/session", h.GetSession)
	mux.HandleFunc("POST /v1/session/start", h.StartSession)
	mux.HandleFunc("POST /v1/session/pause", h.PauseSession)
	mux.HandleFunc("POST /v1/session/minute", h.AddMinute)
	mux.HandleFunc("POST /v1/session/finish", h.FinishSession)
	mux.HandleFunc("POST /v1/session/cancel", h.CancelSession)

	mux.HandleFunc("GET /v1/quests", h.ListQuests)
	mux.HandleFunc("POST /v1/quests/{id}/claim", h.ClaimQuest)
	mux.HandleFunc("GET /v1/rewards", h.ListRewards)
	mux.HandleFunc("POST /v1/rewards/claim", h.ClaimReward)

	mux.HandleFunc("GET /v1/stats", h.GetStats)
	mux.HandleFunc("GET /v1/analytics", h.GetAnalytics)
	mux.HandleFunc("GET /v1/week", h.GetWeek)

	mux.HandleFunc("GET /v1/settings", h.GetSettings)
	mux.HandleFunc("PUT /v1/settings", h.UpdateSettings)

	mux.HandleFunc("GET /v1/export", h.Export)
	mux.HandleFunc("POST /v1/import", h.Import)

	return withRequestID(withLogging(mux))
}

// Health reports 200 when every component is healthy, 503 otherwise.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	components := map[string]any{}
	healthy := true
	if h.status != nil {
		for name, err := range h.status() {
			entry := map[string]any{"healthy": err == nil}
			if err != nil {
				entry["error"] = err.Error()
				healthy = false
			}
			components[name] = entry
		}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "components": components})
}

// GET /v1/state
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListRoutines filters by the optional q parameter.
// GET /v1/routines
func (h *Handler) ListRoutines(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Routines(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"routines": list, "total": len(list)})
}

// POST /v1/routines
func (h *Handler) CreateRoutine(w http.ResponseWriter, r *http.Request) {
	var f routine.Fields
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.engine.AddRoutine(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GET /v1/routines/{id}
func (h *Handler) GetRoutine(w http.ResponseWriter, r *http.Request) {
	got, err := h.engine.Routine(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, got)
}

// PATCH /v1/routines/{id}
func (h *Handler) EditRoutine(w http.ResponseWriter, r *http.Request) {
	var f routine.Fields
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, err)
		return
	}
	edited, err := h.engine.EditRoutine(r.Context(), r.PathValue("id"), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, edited)
}

// DELETE /v1/routines/{id}
func (h *Handler) DeleteRoutine(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RemoveRoutine(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /v1/routines/{id}/shield
func (h *Handler) UseShield(w http.ResponseWriter, r *http.Request) {
	shielded, err := h.engine.UseShield(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shielded)
}

// SessionResponse wraps the optional active session.
type SessionResponse struct {
	Active  bool             `json:"active"`
	Session *session.Session `json:"session,omitempty"`
}

// GET /v1/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok, err := h.engine.ActiveSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := SessionResponse{Active: ok}
	if ok {
		resp.Session = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

type StartSessionRequest struct {
	RoutineID string `json:"routine_id"`
}

// POST /v1/session/start
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RoutineID == "" {
		writeError(w, shukanErrors.InvalidInput("routine_id is required"))
		return
	}
	s, err := h.engine.StartSession(r.Context(), req.RoutineID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// POST /v1/session/pause
func (h *Handler) PauseSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.engine.PauseToggle(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// POST /v1/session/minute
func (h *Handler) AddMinute(w http.ResponseWriter, r *http.Request) {
	s, err := h.engine.AddMinute(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// POST /v1/session/finish
func (h *Handler) FinishSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.engine.FinishEarly(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /v1/session/cancel
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.CancelSession(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /v1/quests
func (h *Handler) ListQuests(w http.ResponseWriter, r *http.Request) {
	board, err := h.engine.Quests(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quests": board})
}

// ClaimQuest answers 200 whether or not the claim paid out; the body says which.
// POST /v1/quests/{id}/claim
func (h *Handler) ClaimQuest(w http.ResponseWriter, r *http.Request) {
	claim, err := h.engine.ClaimQuest(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// GET /v1/rewards
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	pending, err := h.engine.PendingRewards(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rewards": pending, "total": len(pending)})
}

type ClaimRewardResponse struct {
	Claimed bool                `json:"claimed"`
	Reward  *progression.Reward `json:"reward,omitempty"`
}

// POST /v1/rewards/claim
func (h *Handler) ClaimReward(w http.ResponseWriter, r *http.Request) {
	reward, ok, err := h.engine.ClaimReward(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := ClaimRewardResponse{Claimed: ok}
	if ok {
		resp.Reward = &reward
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /v1/analytics
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.engine.Analytics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GetWeek accepts days between 1 and 366, default 7.
// GET /v1/week
func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > engine.MaxWeekDays {
			writeError(w, shukanErrors.InvalidInput(fmt.Sprintf("days must be between 1 and %d", engine.MaxWeekDays)))
			return
		}
		days = n
	}
	week, err := h.engine.Week(r.Context(), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

// GET /v1/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.engine.Settings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// PUT /v1/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch profile.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	s, err := h.engine.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GET /v1/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.engine.Export(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="shukan-export.json"`)
	writeJSON(w, http.StatusOK, doc)
}

// POST /v1/import
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, shukanErrors.InvalidInput("read import body: "+err.Error()))
		return
	}
	if err := h.engine.Import(r.Context(), data); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
