package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewStaticAPIKeyValidator(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:chat_user|admin, k2:bob:chat_user")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator failed: %v", err)
	}

	identity, ok := validator.Validate(context.Background(), "k1")
	if !ok || identity.Subject != "alice" {
		t.Fatalf("identity = %+v, ok = %v", identity, ok)
	}
	if !identity.HasRole("admin") || !identity.HasRole("chat_user") {
		t.Fatalf("roles = %v", identity.Roles)
	}
	if identity.HasRole("root") {
		t.Fatalf("unexpected role")
	}

	if _, ok := validator.Validate(context.Background(), "unknown"); ok {
		t.Fatalf("unknown key accepted")
	}
}

func TestNewStaticAPIKeyValidatorRejectsMalformedSpecs(t *testing.T) {
	for _, spec := range []string{"k1", "k1:alice", "k1::chat_user", ":alice:chat_user", "k1:alice:"} {
		if _, err := NewStaticAPIKeyValidator(spec); err == nil {
			t.Fatalf("spec %q accepted", spec)
		}
	}
}

func TestNewStaticAPIKeyValidatorRejectsUnknownRoles(t *testing.T) {
	for _, spec := range []string{"k1:alice:viewer", "k1:alice:chat_user|superuser"} {
		if _, err := NewStaticAPIKeyValidator(spec); err == nil {
			t.Fatalf("spec %q accepted", spec)
		}
	}
}

func TestRequire(t *testing.T) {
	identity := Identity{Subject: "alice", Roles: []Role{RoleChatUser}}
	ctx := WithIdentity(context.Background(), identity)

	if err := Require(ctx, RoleChatUser); err != nil {
		t.Fatalf("Require(chat_user) = %v", err)
	}
	if err := Require(ctx, RoleAdmin); err == nil {
		t.Fatal("expected error for missing admin role")
	}
	// No identity means auth is disabled for the deployment.
	if err := Require(context.Background(), RoleAdmin); err != nil {
		t.Fatalf("Require without identity = %v", err)
	}
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:chat_user")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}

	var got Identity
	var found bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(nil, validator)(next)

	req := httptest.NewRequest(http.MethodGet, "/v1/tables", nil)
	req.Header.Set("X-API-Key", "k1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !found || got.Subject != "alice" {
		t.Fatalf("identity = %+v, found = %v", got, found)
	}
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:chat_user")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}
	handler := Middleware(nil, validator)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/tables", nil)
	req.Header.Set("Authorization", "Bearer k1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMiddlewareRejectsMissingAndInvalidKeys(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:chat_user")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}
	handler := Middleware(nil, validator)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tables", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing key status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/tables", nil)
	req.Header.Set("X-API-Key", "wrong")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("invalid key status = %d", rr.Code)
	}
}
