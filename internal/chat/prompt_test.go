package chat

import (
	"errors"
	"strings"
	"testing"

	"github.com/tabletalk/tabletalk/internal/schema"
)

func TestBuildMessagesRequiresTable(t *testing.T) {
	conv := NewConversation("s1")
	if _, err := BuildMessages(conv, "show me everything"); !errors.Is(err, ErrNoTableSelected) {
		t.Fatalf("err = %v, want ErrNoTableSelected", err)
	}
	if len(conv.Messages) != 0 {
		t.Fatalf("transcript length = %d, want 0", len(conv.Messages))
	}
}

func TestBuildMessagesComposesSystemAndTranscript(t *testing.T) {
	conv := NewConversation("s1")
	conv.SelectTable(schema.QualifiedTable{Schema: "sales", Table: "orders"}, []string{"id", "amount"})

	messages, err := BuildMessages(conv, "total amount per day")
	if err != nil {
		t.Fatalf("BuildMessages failed: %v", err)
	}

	if messages[0].Role != RoleSystem {
		t.Fatalf("first role = %q", messages[0].Role)
	}
	system := messages[0].Content
	if !strings.Contains(system, "sales.orders") {
		t.Fatalf("system prompt missing table name: %q", system)
	}
	if !strings.Contains(system, "id,amount") {
		t.Fatalf("system prompt missing columns: %q", system)
	}

	last := messages[len(messages)-1]
	if last.Role != RoleUser || last.Content != "total amount per day" {
		t.Fatalf("last message = %+v", last)
	}

	// The greeting from table selection stays in the transcript.
	if messages[1].Role != RoleAssistant || !strings.Contains(messages[1].Content, "sales.orders") {
		t.Fatalf("greeting message = %+v", messages[1])
	}
}

func TestBuildMessagesEmptyColumnsUsesSentinel(t *testing.T) {
	conv := NewConversation("s1")
	conv.SelectTable(schema.QualifiedTable{Schema: "public", Table: "empty"}, nil)

	messages, err := BuildMessages(conv, "anything here?")
	if err != nil {
		t.Fatalf("BuildMessages failed: %v", err)
	}
	if !strings.Contains(messages[0].Content, "No columns found") {
		t.Fatalf("system prompt = %q", messages[0].Content)
	}
}

func TestBuildMessagesAppendsUtteranceToConversation(t *testing.T) {
	conv := NewConversation("s1")
	conv.SelectTable(schema.QualifiedTable{Schema: "public", Table: "t"}, []string{"a"})
	before := len(conv.Messages)

	if _, err := BuildMessages(conv, "first question"); err != nil {
		t.Fatalf("BuildMessages failed: %v", err)
	}
	if len(conv.Messages) != before+1 {
		t.Fatalf("transcript length = %d, want %d", len(conv.Messages), before+1)
	}
}
