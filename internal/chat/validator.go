package chat

import "strings"

// RejectedError reports why a generated statement was refused. It is a
// terminal per-turn outcome and must never trigger a retry of the same
// prompt.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "statement rejected: " + e.Reason
}

// ValidatedQuery is the only value the orchestrator will hand to an
// executor. The statement is unexported so nothing outside this package can
// construct one around an unvalidated string.
type ValidatedQuery struct {
	statement string
}

func (v ValidatedQuery) SQL() string {
	return v.statement
}

// Validate is the sole safety gate between model output and the database.
// The trimmed statement must begin with the SELECT keyword and a terminator
// may only appear at its very end. The rule is unconditional; there is no
// configuration that bypasses it.
func Validate(statement string) (ValidatedQuery, error) {
	trimmed := strings.TrimSpace(statement)
	if trimmed == "" {
		return ValidatedQuery{}, &RejectedError{Reason: "no SQL SELECT statement could be extracted from the response"}
	}
	if !strings.HasPrefix(strings.ToLower(trimmed), "select") {
		return ValidatedQuery{}, &RejectedError{Reason: "only SELECT statements are allowed"}
	}
	if index := strings.Index(trimmed, ";"); index >= 0 && index != len(trimmed)-1 {
		return ValidatedQuery{}, &RejectedError{Reason: "multiple SQL statements are not allowed"}
	}
	return ValidatedQuery{statement: trimmed}, nil
}
