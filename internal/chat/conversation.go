package chat

import (
	"fmt"

	"github.com/tabletalk/tabletalk/internal/query"
	"github.com/tabletalk/tabletalk/internal/schema"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a conversation transcript. Messages
// are append-only; nothing rewrites a message once it is in the transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the per-session state of one chat: the ordered transcript,
// the selected table with its cached column list, and the history of
// utterances that produced a validated query. Exactly one Conversation is
// live per session and it is never shared across goroutines; the session
// registry serializes access.
type Conversation struct {
	SessionID       string
	Messages        []Message
	SelectedTable   schema.QualifiedTable
	Columns         []string
	QueryHistory    []string
	PendingFollowUp string
	LastResult      *query.Result

	greeted bool
}

func NewConversation(sessionID string) *Conversation {
	return &Conversation{SessionID: sessionID}
}

func (c *Conversation) Append(role Role, content string) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content})
}

// SelectTable switches the active table and replaces the column cache. The
// pending follow-up belongs to the previous table's thread, so it is
// dropped. The first selection of a session gets an assistant greeting.
func (c *Conversation) SelectTable(table schema.QualifiedTable, columns []string) {
	c.SelectedTable = table
	c.Columns = append([]string(nil), columns...)
	c.PendingFollowUp = ""
	c.LastResult = nil
	if !c.greeted {
		c.Append(RoleAssistant, fmt.Sprintf("Hello! You're now exploring %s. How may I assist you with this table?", table))
		c.greeted = true
	}
}

// Reset clears the transcript for a fresh chat while keeping the selected
// table and its columns. Query history survives a reset; it belongs to the
// session, not to one thread.
func (c *Conversation) Reset() {
	c.Messages = nil
	c.PendingFollowUp = ""
	c.LastResult = nil
	c.greeted = false
	if !c.SelectedTable.IsZero() {
		c.SelectTable(c.SelectedTable, c.Columns)
	}
}

// Transcript returns a copy of the message sequence.
func (c *Conversation) Transcript() []Message {
	return append([]Message(nil), c.Messages...)
}
