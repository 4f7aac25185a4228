package session

import (
	"testing"

	"github.com/tabletalk/tabletalk/internal/chat"
)

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry()

	sess := registry.Create()
	if sess.ID == "" {
		t.Fatalf("session id is empty")
	}
	if registry.Len() != 1 {
		t.Fatalf("len = %d", registry.Len())
	}

	got, ok := registry.Get(sess.ID)
	if !ok || got != sess {
		t.Fatalf("Get(%q) = %v, %v", sess.ID, got, ok)
	}

	if !registry.Delete(sess.ID) {
		t.Fatalf("Delete returned false")
	}
	if registry.Delete(sess.ID) {
		t.Fatalf("second Delete returned true")
	}
	if _, ok := registry.Get(sess.ID); ok {
		t.Fatalf("deleted session still resolvable")
	}
}

func TestCreateAssignsDistinctIDs(t *testing.T) {
	registry := NewRegistry()
	a := registry.Create()
	b := registry.Create()
	if a.ID == b.ID {
		t.Fatalf("duplicate session id %q", a.ID)
	}
}

func TestWithConversationExposesState(t *testing.T) {
	registry := NewRegistry()
	sess := registry.Create()

	sess.WithConversation(func(conv *chat.Conversation) {
		if conv.SessionID != sess.ID {
			t.Fatalf("conversation session id = %q", conv.SessionID)
		}
		conv.Append(chat.RoleUser, "hello")
	})
	sess.WithConversation(func(conv *chat.Conversation) {
		if len(conv.Messages) != 1 {
			t.Fatalf("transcript length = %d", len(conv.Messages))
		}
	})
}
