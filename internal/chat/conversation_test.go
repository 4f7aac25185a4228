package chat

import (
	"strings"
	"testing"

	"github.com/tabletalk/tabletalk/internal/query"
	"github.com/tabletalk/tabletalk/internal/schema"
)

func TestSelectTableGreetsOnce(t *testing.T) {
	conv := NewConversation("s1")
	conv.SelectTable(schema.QualifiedTable{Schema: "public", Table: "a"}, []string{"x"})

	if len(conv.Messages) != 1 {
		t.Fatalf("transcript length = %d, want 1", len(conv.Messages))
	}
	if conv.Messages[0].Role != RoleAssistant || !strings.Contains(conv.Messages[0].Content, "public.a") {
		t.Fatalf("greeting = %+v", conv.Messages[0])
	}

	conv.SelectTable(schema.QualifiedTable{Schema: "public", Table: "b"}, []string{"y"})
	if len(conv.Messages) != 1 {
		t.Fatalf("second selection added a greeting, transcript length = %d", len(conv.Messages))
	}
	if conv.SelectedTable.Table != "b" {
		t.Fatalf("selected table = %q", conv.SelectedTable.Table)
	}
	if len(conv.Columns) != 1 || conv.Columns[0] != "y" {
		t.Fatalf("columns = %v", conv.Columns)
	}
}

func TestSelectTableTwiceKeepsColumnsStable(t *testing.T) {
	conv := NewConversation("s1")
	table := schema.QualifiedTable{Schema: "public", Table: "a"}
	columns := []string{"id", "name", "city"}

	conv.SelectTable(table, columns)
	first := append([]string(nil), conv.Columns...)
	conv.SelectTable(table, columns)

	if len(conv.Columns) != len(first) {
		t.Fatalf("columns = %v, want %v", conv.Columns, first)
	}
	for i := range first {
		if conv.Columns[i] != first[i] {
			t.Fatalf("columns[%d] = %q, want %q", i, conv.Columns[i], first[i])
		}
	}
}

func TestSelectTableDropsPendingFollowUpAndResult(t *testing.T) {
	conv := NewConversation("s1")
	conv.SelectTable(schema.QualifiedTable{Schema: "public", Table: "a"}, []string{"x"})
	conv.PendingFollowUp = "want more?"
	conv.LastResult = &query.Result{RowCount: 3}

	conv.SelectTable(schema.QualifiedTable{Schema: "public", Table: "b"}, []string{"y"})
	if conv.PendingFollowUp != "" {
		t.Fatalf("pending follow-up = %q, want empty", conv.PendingFollowUp)
	}
	if conv.LastResult != nil {
		t.Fatalf("last result should be cleared")
	}
}

func TestResetKeepsTableAndHistory(t *testing.T) {
	conv := NewConversation("s1")
	conv.SelectTable(schema.QualifiedTable{Schema: "public", Table: "a"}, []string{"x"})
	conv.Append(RoleUser, "how many rows?")
	conv.Append(RoleAssistant, "SELECT count(*) FROM public.a;")
	conv.QueryHistory = append(conv.QueryHistory, "how many rows?")
	conv.PendingFollowUp = "more?"

	conv.Reset()

	if conv.SelectedTable.IsZero() {
		t.Fatalf("selected table lost on reset")
	}
	if len(conv.QueryHistory) != 1 {
		t.Fatalf("query history = %v", conv.QueryHistory)
	}
	if conv.PendingFollowUp != "" {
		t.Fatalf("pending follow-up = %q", conv.PendingFollowUp)
	}
	// A fresh thread greets again for the kept table.
	if len(conv.Messages) != 1 || conv.Messages[0].Role != RoleAssistant {
		t.Fatalf("transcript after reset = %+v", conv.Messages)
	}
}

func TestResetWithoutTable(t *testing.T) {
	conv := NewConversation("s1")
	conv.Append(RoleUser, "hello")
	conv.Reset()
	if len(conv.Messages) != 0 {
		t.Fatalf("transcript after reset = %+v", conv.Messages)
	}
}

func TestTranscriptReturnsCopy(t *testing.T) {
	conv := NewConversation("s1")
	conv.Append(RoleUser, "one")
	transcript := conv.Transcript()
	transcript[0].Content = "mutated"
	if conv.Messages[0].Content != "one" {
		t.Fatalf("transcript copy mutated the conversation")
	}
}
