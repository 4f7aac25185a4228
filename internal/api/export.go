package api

import (
	"encoding/json"
	"net/http"

	"github.com/tabletalk/tabletalk/internal/auth"
	"github.com/tabletalk/tabletalk/internal/chat"
	"github.com/tabletalk/tabletalk/internal/export"
	"github.com/tabletalk/tabletalk/internal/query"
)

type exportRequest struct {
	Format string `json:"format"`
}

type exportResponse struct {
	SessionID   string `json:"session_id"`
	Key         string `json:"key"`
	Format      string `json:"format"`
	SizeBytes   int64  `json:"size_bytes"`
	RecordCount int    `json:"record_count"`
	ETag        string `json:"etag,omitempty"`
}

func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleChatUser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	if deps.Exporter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_NOT_CONFIGURED", "no export object store is configured", false, nil)
		return
	}
	sess, err := sessionFromRequest(deps, r)
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, nil)
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "request body must be valid JSON", false, nil)
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FORMAT", err.Error(), false, map[string]any{"format": req.Format})
		return
	}

	var result *query.Result
	sess.WithConversation(func(conv *chat.Conversation) {
		result = conv.LastResult
	})
	if result == nil {
		writeError(r.Context(), w, http.StatusConflict, "NO_RESULT_TO_EXPORT", "session has no executed query result", false, map[string]any{"session_id": sess.ID})
		return
	}

	info, err := deps.Exporter.Export(r.Context(), sess.ID, format, *result)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "EXPORT_FAILED", err.Error(), true, map[string]any{"session_id": sess.ID})
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{
		SessionID:   sess.ID,
		Key:         info.Key,
		Format:      string(info.Format),
		SizeBytes:   info.SizeBytes,
		RecordCount: info.RecordCount,
		ETag:        info.ETag,
	})
}
