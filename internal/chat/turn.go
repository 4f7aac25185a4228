package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/query"
)

var ErrEmptyUtterance = errors.New("chat: utterance is empty")

// TurnState labels where a turn ended. A turn always finishes in
// TurnFollowUpQueued, TurnExecuted, TurnRejected or TurnFailed; the earlier
// states exist so outcomes and logs can say how far processing got.
type TurnState string

const (
	TurnIdle               TurnState = "idle"
	TurnPromptBuilt        TurnState = "prompt_built"
	TurnAwaitingCompletion TurnState = "awaiting_completion"
	TurnParsed             TurnState = "parsed"
	TurnValidated          TurnState = "validated"
	TurnExecuted           TurnState = "executed"
	TurnFollowUpQueued     TurnState = "follow_up_queued"
	TurnRejected           TurnState = "rejected"
	TurnFailed             TurnState = "failed"
)

// TurnOutcome is everything one turn produced. Err is set for rejected and
// failed turns; Result is set only when execution happened.
type TurnOutcome struct {
	State       TurnState
	Statement   string
	Explanation string
	FollowUp    string
	Result      *query.Result
	Err         error
}

// Completer sends one composed message list to a chat-completion model and
// returns the assistant's reply. It must not mutate the conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// HistoryAppender records utterances that produced a validated query.
type HistoryAppender interface {
	Append(ctx context.Context, utterance string) error
}

// Orchestrator drives one interaction turn: build prompt, call the model,
// parse, validate, execute, update conversation state. One turn runs at a
// time per conversation; the caller serializes.
type Orchestrator struct {
	Completer Completer
	Executor  query.Executor
	History   HistoryAppender
	Logger    *slog.Logger
}

// SubmitUtterance processes one user utterance through to its outcome. A
// queued follow-up reply enters through the same path as a fresh question.
// The utterance joins QueryHistory only once its statement passes
// validation; an utterance that produced no valid query is not recorded.
func (o *Orchestrator) SubmitUtterance(ctx context.Context, conv *Conversation, utterance string) TurnOutcome {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return o.finish(ctx, conv, TurnOutcome{State: TurnFailed, Err: ErrEmptyUtterance})
	}

	// This utterance answers or supersedes any queued follow-up.
	conv.PendingFollowUp = ""

	messages, err := BuildMessages(conv, utterance)
	if err != nil {
		return o.finish(ctx, conv, TurnOutcome{State: TurnFailed, Err: err})
	}

	start := time.Now()
	reply, err := o.Completer.Complete(ctx, messages)
	observability.ObserveCompletionLatency(time.Since(start))
	if err != nil {
		return o.finish(ctx, conv, TurnOutcome{State: TurnFailed, Err: err})
	}

	reply = strings.TrimSpace(reply)
	conv.Append(RoleAssistant, reply)

	generated := ParseReply(reply)
	if generated.Statement == "" {
		observability.IncParseMiss()
	}

	validated, err := Validate(generated.Statement)
	if err != nil {
		observability.IncRejectedStatement()
		return o.finish(ctx, conv, TurnOutcome{
			State:       TurnRejected,
			Explanation: generated.Explanation,
			Err:         err,
		})
	}

	conv.QueryHistory = append(conv.QueryHistory, utterance)
	if o.History != nil {
		if err := o.History.Append(ctx, utterance); err != nil && o.Logger != nil {
			observability.TraceLogger(ctx, o.Logger).WarnContext(ctx, "failed to persist utterance history",
				slog.String("session_id", conv.SessionID),
				slog.Any("error", err),
			)
		}
	}

	result, err := o.Executor.Execute(ctx, query.Request{SQL: validated.SQL()})
	if err != nil {
		return o.finish(ctx, conv, TurnOutcome{
			State:       TurnFailed,
			Statement:   validated.SQL(),
			Explanation: generated.Explanation,
			Err:         &query.ExecutionError{Cause: err},
		})
	}
	conv.LastResult = &result

	outcome := TurnOutcome{
		State:       TurnExecuted,
		Statement:   validated.SQL(),
		Explanation: generated.Explanation,
		FollowUp:    generated.FollowUp,
		Result:      &result,
	}
	if generated.FollowUp != "" {
		conv.PendingFollowUp = generated.FollowUp
		outcome.State = TurnFollowUpQueued
	}
	return o.finish(ctx, conv, outcome)
}

func (o *Orchestrator) finish(ctx context.Context, conv *Conversation, outcome TurnOutcome) TurnOutcome {
	observability.IncTurn(string(outcome.State))
	if o.Logger == nil {
		return outcome
	}
	logger := observability.TraceLogger(ctx, o.Logger)
	attrs := []any{
		slog.String("session_id", conv.SessionID),
		slog.String("state", string(outcome.State)),
	}
	if outcome.Err != nil {
		attrs = append(attrs, slog.Any("error", outcome.Err))
		logger.WarnContext(ctx, "turn finished", attrs...)
		return outcome
	}
	if outcome.Result != nil {
		attrs = append(attrs, slog.Int("rows", outcome.Result.RowCount))
	}
	logger.InfoContext(ctx, "turn finished", attrs...)
	return outcome
}
