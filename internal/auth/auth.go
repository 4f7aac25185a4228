package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Role names a capability a caller may hold. Chat users drive conversations
// and exports on their own sessions; admins additionally read the
// cross-session utterance history.
type Role string

const (
	RoleChatUser Role = "chat_user"
	RoleAdmin    Role = "admin"
)

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleChatUser, RoleAdmin:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown role %q (expected %s or %s)", raw, RoleChatUser, RoleAdmin)
	}
}

type Identity struct {
	Subject string
	Roles   []Role
}

func (i Identity) HasRole(role Role) bool {
	for _, candidate := range i.Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// Require checks that the caller may act with the given role. A context
// without an identity passes: auth was not required for this deployment, so
// there is nothing to restrict.
func Require(ctx context.Context, role Role) error {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("subject %q is missing required role %q", identity.Subject, role)
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

// StaticAPIKeyValidator resolves API keys from a comma-separated
// key:subject:role|role spec string. Roles must be known; a typo in a key
// spec fails startup rather than silently minting an unusable identity.
type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:subject:role|role", entry)
		}
		key := strings.TrimSpace(parts[0])
		subject := strings.TrimSpace(parts[1])
		if key == "" || subject == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/subject", entry)
		}
		roleParts := strings.Split(strings.TrimSpace(parts[2]), "|")
		roles := make([]Role, 0, len(roleParts))
		for _, rawRole := range roleParts {
			rawRole = strings.TrimSpace(rawRole)
			if rawRole == "" {
				continue
			}
			role, err := ParseRole(rawRole)
			if err != nil {
				return nil, fmt.Errorf("invalid static key entry %q: %w", entry, err)
			}
			roles = append(roles, role)
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("invalid static key entry %q: at least one role is required", entry)
		}
		sort.Slice(roles, func(a, b int) bool { return roles[a] < roles[b] })
		validator.keys[key] = Identity{Subject: subject, Roles: roles}
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
