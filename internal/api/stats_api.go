package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/keybeat-app/keybeat/internal/domain"
)

// ─── Daemon REST API (/v1/*) ────────────────────────────────────────────────
// Local surface consumed by the CLI and any dashboard. Everything reads the
// in-process snapshot; nothing here touches sqlite on the hot path except
// the notification and ledger listings, which are read-only queries.

// maxInjectEvents bounds one POST /v1/events body. Larger batches should be
// split by the caller; the gate would shed most of them anyway.
const maxInjectEvents = 10000

// --- /v1/stats ---

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

// --- /v1/events (synthetic event injection) ---

type eventsRequest struct {
	Count      int     `json:"count"`
	Timestamps []int64 `json:"timestamps"` // unix nanoseconds
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var req eventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Count < 0 || (req.Count == 0 && len(req.Timestamps) == 0) {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidInput.Error())
		return
	}
	if req.Count > maxInjectEvents || len(req.Timestamps) > maxInjectEvents {
		writeError(w, http.StatusBadRequest, "batch exceeds 10000 events")
		return
	}

	accepted, dropped := 0, 0
	record := func(at time.Time) {
		if s.tracker.Record(at) {
			accepted++
		} else {
			dropped++
		}
	}

	if len(req.Timestamps) > 0 {
		for _, ns := range req.Timestamps {
			record(time.Unix(0, ns))
		}
	} else {
		// Count-only batches are paced at the gate's minimum interval,
		// ending now, so a well-behaved batch passes the closed gate.
		step := s.tracker.MinInterval()
		start := time.Now().Add(-time.Duration(req.Count-1) * step)
		for i := 0; i < req.Count; i++ {
			record(start.Add(time.Duration(i) * step))
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accepted": accepted,
		"dropped":  dropped,
	})
}

// --- /v1/achievements ---

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"achievements": snap.Achievements,
		"count":        len(snap.Achievements),
	})
}

// --- /v1/challenges ---

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"challenges": s.store.Snapshot().Challenges,
	})
}

// --- /v1/goals ---

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"goals": s.store.Snapshot().Goals,
	})
}

type goalRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Target      int64  `json:"target"`
	TargetDate  string `json:"target_date"`
}

func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Target <= 0 {
		writeError(w, http.StatusBadRequest, "goal needs a name and a positive target")
		return
	}
	switch domain.GoalType(req.Type) {
	case domain.GoalTotal, domain.GoalStreak, domain.GoalDaily:
	default:
		writeError(w, http.StatusBadRequest, "goal type must be total, streak or daily")
		return
	}
	if req.TargetDate != "" {
		if _, err := domain.ParseDayKey(req.TargetDate); err != nil {
			writeError(w, http.StatusBadRequest, "target_date must be YYYY-MM-DD")
			return
		}
	}

	g := domain.Goal{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Type:        domain.GoalType(req.Type),
		Target:      req.Target,
		TargetDate:  req.TargetDate,
		CreatedAt:   time.Now(),
	}
	if err := s.store.AddGoal(g); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// --- /v1/settings ---

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"daily_goal":       snap.DailyGoal,
		"weekly_goal":      snap.WeeklyGoal,
		"personality_type": snap.PersonalityType,
	})
}

type settingsRequest struct {
	DailyGoal  *int64 `json:"daily_goal"`
	WeeklyGoal *int64 `json:"weekly_goal"`
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DailyGoal == nil && req.WeeklyGoal == nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidInput.Error())
		return
	}
	if req.DailyGoal != nil {
		if *req.DailyGoal < 0 {
			writeError(w, http.StatusBadRequest, "daily_goal must be non-negative")
			return
		}
		if err := s.store.SetDailyGoal(*req.DailyGoal); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if req.WeeklyGoal != nil {
		if *req.WeeklyGoal < 0 {
			writeError(w, http.StatusBadRequest, "weekly_goal must be non-negative")
			return
		}
		if err := s.store.SetWeeklyGoal(*req.WeeklyGoal); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.handleGetSettings(w, r)
}

// --- /v1/notifications ---

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	notifs, err := s.db.ListNotifications(queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifs,
	})
}

// --- /v1/xp (ledger) ---

func (s *Server) handleXPLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.ListXP(queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"balance": s.store.Snapshot().XP,
	})
}

// --- /v1/sync ---

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil || !s.engine.Configured() {
		writeError(w, http.StatusBadRequest, domain.ErrSyncDisabled.Error())
		return
	}
	if s.engine.Status().Running {
		writeError(w, http.StatusConflict, domain.ErrSyncBusy.Error())
		return
	}
	// Fire and forget. The engine's single-flight guard holds even if two
	// requests race past the status check.
	go func() {
		if err := s.engine.Sync(context.Background()); err != nil {
			log.Printf("[api] sync failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "sync started",
	})
}

// --- /v1/devices ---

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusBadRequest, domain.ErrSyncDisabled.Error())
		return
	}
	rows, err := s.engine.Devices(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrSyncDisabled) {
			writeError(w, http.StatusBadRequest, domain.ErrSyncDisabled.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	type deviceInfo struct {
		DeviceID    string    `json:"device_id"`
		DeviceName  string    `json:"device_name"`
		Total       int64     `json:"total_keystrokes"`
		Streak      int       `json:"streak_days"`
		Level       int       `json:"user_level"`
		LastUpdated time.Time `json:"last_updated"`
	}

	devices := make([]deviceInfo, len(rows))
	for i, row := range rows {
		devices[i] = deviceInfo{
			DeviceID:    row.DeviceID,
			DeviceName:  row.DeviceName,
			Total:       row.TotalKeystrokes,
			Streak:      row.StreakDays,
			Level:       row.UserLevel,
			LastUpdated: row.LastUpdated,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
	})
}

// --- /v1/reset ---

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Confirm {
		writeError(w, http.StatusBadRequest, "reset requires {\"confirm\": true}")
		return
	}
	if err := s.store.Reset(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.hub != nil {
		s.hub.PublishUpdate(s.store.LiveUpdateAt(time.Now()))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "reset",
	})
}

// queryLimit parses a positive ?limit= parameter, falling back to def.
func queryLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
