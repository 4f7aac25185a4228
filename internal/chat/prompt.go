package chat

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoTableSelected = errors.New("chat: no table selected")

// noColumnsSentinel is sent to the model when the column cache is empty so
// the instruction text never contains a dangling empty list.
const noColumnsSentinel = "No columns found"

const systemPromptFormat = "You are a helpful assistant. The user has selected the table '%s'. " +
	"The columns in this table are: %s. " +
	"Based on the user's question, generate exactly one valid read-only SQL SELECT query using only the listed columns. " +
	"The SQL query must come first in your reply. " +
	"After the SQL query, provide a brief explanation in plain English. " +
	"End your reply with exactly one follow-up question asking what else the user might want to know about the selected table."

// BuildMessages composes the outgoing message list for one turn: the system
// instruction followed by the full transcript with the new utterance at the
// end. The utterance is appended to the conversation before the list is
// returned; the transcript owns it from here on regardless of how the turn
// ends. Fails only when no table is selected.
func BuildMessages(conv *Conversation, utterance string) ([]Message, error) {
	if conv.SelectedTable.IsZero() {
		return nil, ErrNoTableSelected
	}

	columnList := noColumnsSentinel
	if len(conv.Columns) > 0 {
		columnList = strings.Join(conv.Columns, ",")
	}
	system := fmt.Sprintf(systemPromptFormat, conv.SelectedTable, columnList)

	conv.Append(RoleUser, utterance)

	messages := make([]Message, 0, len(conv.Messages)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: system})
	messages = append(messages, conv.Messages...)
	return messages, nil
}
