package api

import (
	"net/http"

	"github.com/tabletalk/tabletalk/internal/auth"
)

func handleListTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleChatUser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	tables, err := deps.Schema.ListTables(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_LOOKUP_FAILED", err.Error(), true, nil)
		return
	}
	names := make([]string, 0, len(tables))
	for _, table := range tables {
		names = append(names, table.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": names, "count": len(names)})
}
