package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tabletalk/tabletalk/internal/auth"
	"github.com/tabletalk/tabletalk/internal/chat"
	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/export"
	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/query"
	"github.com/tabletalk/tabletalk/internal/schema"
	"github.com/tabletalk/tabletalk/internal/session"
)

type ReadinessCheck func(ctx context.Context) error

// TurnRunner drives one conversation turn. *chat.Orchestrator is the
// production implementation.
type TurnRunner interface {
	SubmitUtterance(ctx context.Context, conv *chat.Conversation, utterance string) chat.TurnOutcome
}

type HistoryReader interface {
	Recent(n int) []string
}

type Exporter interface {
	Export(ctx context.Context, sessionID string, format export.Format, result query.Result) (export.Info, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Sessions          *session.Registry
	Schema            schema.Provider
	Turns             TurnRunner
	History           HistoryReader
	Exporter          Exporter
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	// One route table. The patterns are registered on the protected submux
	// and mounted on the root mux from the same map, so a route cannot exist
	// in one place and not the other.
	protectedRoutes := map[string]http.HandlerFunc{
		"GET /v1/tables": func(w http.ResponseWriter, r *http.Request) {
			handleListTables(deps, w, r)
		},
		"POST /v1/sessions": func(w http.ResponseWriter, r *http.Request) {
			handleCreateSession(deps, w, r)
		},
		"GET /v1/sessions/{session}": func(w http.ResponseWriter, r *http.Request) {
			handleGetSession(deps, w, r)
		},
		"DELETE /v1/sessions/{session}": func(w http.ResponseWriter, r *http.Request) {
			handleDeleteSession(deps, w, r)
		},
		"POST /v1/sessions/{session}/reset": func(w http.ResponseWriter, r *http.Request) {
			handleResetSession(deps, w, r)
		},
		"POST /v1/sessions/{session}/table": func(w http.ResponseWriter, r *http.Request) {
			handleSelectTable(deps, w, r)
		},
		"POST /v1/sessions/{session}/ask": func(w http.ResponseWriter, r *http.Request) {
			handleAsk(deps, w, r)
		},
		"POST /v1/sessions/{session}/export": func(w http.ResponseWriter, r *http.Request) {
			handleExport(deps, w, r)
		},
		"GET /v1/history": func(w http.ResponseWriter, r *http.Request) {
			handleHistory(deps, w, r)
		},
	}

	protected := http.NewServeMux()
	for pattern, handlerFunc := range protectedRoutes {
		protected.HandleFunc(pattern, handlerFunc)
	}

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	for pattern := range protectedRoutes {
		mux.Handle(pattern, protectedHandler)
	}

	routes := observability.MuxRoutes(mux)
	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware(routes),
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger, routes))
	}
	return chain(mux, middlewares...)
}

func CheckDatabaseDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Database.Driver == "pgx" && cfg.Database.DSN == "" {
			return fmt.Errorf("database dsn is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func requireRole(r *http.Request, role auth.Role) error {
	return auth.Require(r.Context(), role)
}

func sessionFromRequest(deps Dependencies, r *http.Request) (*session.Session, error) {
	id := r.PathValue("session")
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}
	sess, ok := deps.Sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown session %q", id)
	}
	return sess, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
