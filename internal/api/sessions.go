package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tabletalk/tabletalk/internal/auth"
	"github.com/tabletalk/tabletalk/internal/chat"
	"github.com/tabletalk/tabletalk/internal/schema"
)

type sessionResponse struct {
	SessionID       string         `json:"session_id"`
	Table           string         `json:"table,omitempty"`
	Columns         []string       `json:"columns,omitempty"`
	PendingFollowUp string         `json:"pending_follow_up,omitempty"`
	QueryHistory    []string       `json:"query_history,omitempty"`
	Messages        []chat.Message `json:"messages,omitempty"`
}

func handleCreateSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleChatUser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	sess := deps.Sessions.Create()
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: sess.ID})
}

func handleGetSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleChatUser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	sess, err := sessionFromRequest(deps, r)
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, nil)
		return
	}
	var resp sessionResponse
	sess.WithConversation(func(conv *chat.Conversation) {
		resp = sessionResponse{
			SessionID:       sess.ID,
			Columns:         append([]string(nil), conv.Columns...),
			PendingFollowUp: conv.PendingFollowUp,
			QueryHistory:    append([]string(nil), conv.QueryHistory...),
			Messages:        conv.Transcript(),
		}
		if !conv.SelectedTable.IsZero() {
			resp.Table = conv.SelectedTable.String()
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

func handleDeleteSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleChatUser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	sess, err := sessionFromRequest(deps, r)
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, nil)
		return
	}
	deps.Sessions.Delete(sess.ID)
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID, "deleted": true})
}

func handleResetSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleChatUser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	sess, err := sessionFromRequest(deps, r)
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, nil)
		return
	}
	sess.WithConversation(func(conv *chat.Conversation) {
		conv.Reset()
	})
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID, "reset": true})
}

type selectTableRequest struct {
	Table string `json:"table"`
}

type selectTableResponse struct {
	SessionID string   `json:"session_id"`
	Table     string   `json:"table"`
	Columns   []string `json:"columns"`
	Greeting  string   `json:"greeting,omitempty"`
}

func handleSelectTable(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleChatUser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	sess, err := sessionFromRequest(deps, r)
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, nil)
		return
	}
	var req selectTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "request body must be valid JSON", false, nil)
		return
	}
	qualified, err := schema.ParseQualified(req.Table)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_TABLE_NAME", err.Error(), false, map[string]any{"table": req.Table})
		return
	}
	columns, err := deps.Schema.ListColumns(r.Context(), qualified)
	if err != nil {
		if errors.Is(err, schema.ErrTableNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", err.Error(), false, map[string]any{"table": qualified.String()})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_LOOKUP_FAILED", err.Error(), true, map[string]any{"table": qualified.String()})
		return
	}
	resp := selectTableResponse{SessionID: sess.ID, Table: qualified.String(), Columns: columns}
	sess.WithConversation(func(conv *chat.Conversation) {
		before := len(conv.Transcript())
		conv.SelectTable(qualified, columns)
		transcript := conv.Transcript()
		if len(transcript) > before {
			resp.Greeting = transcript[len(transcript)-1].Content
		}
	})
	writeJSON(w, http.StatusOK, resp)
}
