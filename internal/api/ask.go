package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tabletalk/tabletalk/internal/auth"
	"github.com/tabletalk/tabletalk/internal/chat"
	"github.com/tabletalk/tabletalk/internal/llm"
	"github.com/tabletalk/tabletalk/internal/query"
)

type askRequest struct {
	Utterance string `json:"utterance"`
}

type askResponse struct {
	SessionID   string   `json:"session_id"`
	State       string   `json:"state"`
	Statement   string   `json:"statement,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	FollowUp    string   `json:"follow_up,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	Rows        [][]any  `json:"rows,omitempty"`
	RowCount    int      `json:"row_count"`
	DurationMS  float64  `json:"duration_ms"`
	Message     string   `json:"message,omitempty"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleChatUser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	if deps.Turns == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "COMPLETION_NOT_CONFIGURED", "no chat-completion backend is configured", false, nil)
		return
	}
	sess, err := sessionFromRequest(deps, r)
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, nil)
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "request body must be valid JSON", false, nil)
		return
	}

	var outcome chat.TurnOutcome
	sess.WithConversation(func(conv *chat.Conversation) {
		outcome = deps.Turns.SubmitUtterance(r.Context(), conv, req.Utterance)
	})

	if outcome.Err != nil && outcome.State != chat.TurnRejected {
		writeTurnError(deps, w, r, sess.ID, outcome)
		return
	}

	resp := askResponse{
		SessionID:   sess.ID,
		State:       string(outcome.State),
		Statement:   outcome.Statement,
		Explanation: outcome.Explanation,
		FollowUp:    outcome.FollowUp,
	}
	if outcome.State == chat.TurnRejected {
		resp.Message = outcome.Err.Error()
	}
	if outcome.Result != nil {
		resp.Columns = outcome.Result.Columns
		resp.Rows = outcome.Result.Rows
		resp.RowCount = outcome.Result.RowCount
		resp.DurationMS = float64(outcome.Result.Duration) / float64(time.Millisecond)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeTurnError(deps Dependencies, w http.ResponseWriter, r *http.Request, sessionID string, outcome chat.TurnOutcome) {
	extra := map[string]any{"session_id": sessionID}
	switch {
	case errors.Is(outcome.Err, chat.ErrEmptyUtterance):
		writeError(r.Context(), w, http.StatusBadRequest, "UTTERANCE_REQUIRED", outcome.Err.Error(), false, extra)
	case errors.Is(outcome.Err, chat.ErrNoTableSelected):
		writeError(r.Context(), w, http.StatusConflict, "TABLE_NOT_SELECTED", outcome.Err.Error(), false, extra)
	default:
		var upstream *llm.UpstreamError
		if errors.As(outcome.Err, &upstream) {
			writeError(r.Context(), w, http.StatusBadGateway, "COMPLETION_FAILED", outcome.Err.Error(), upstream.Retryable(), extra)
			return
		}
		var execErr *query.ExecutionError
		if errors.As(outcome.Err, &execErr) {
			extra["statement"] = outcome.Statement
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", outcome.Err.Error(), false, extra)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "TURN_FAILED", outcome.Err.Error(), true, extra)
	}
	if deps.Logger != nil {
		deps.Logger.WarnContext(r.Context(), "ask turn failed", "session_id", sessionID, "error", outcome.Err)
	}
}
