package chat

import (
	"regexp"
	"strings"
)

// GeneratedQuery is the structured reading of one assistant reply. An empty
// Statement means no terminator-delimited SELECT span was found; that is a
// recoverable outcome the validator turns into a rejection, not an error.
type GeneratedQuery struct {
	Statement   string
	Explanation string
	FollowUp    string
}

// selectStatementPattern matches the first SELECT statement up to its
// terminator, case-insensitively and across newlines. The lazy quantifier
// stops at the first semicolon so concatenated statements never survive
// extraction whole.
var selectStatementPattern = regexp.MustCompile(`(?is)select.*?;`)

// ParseReply extracts a candidate SQL statement, an explanation and a
// follow-up question from free-form assistant text. This is a best-effort
// heuristic over natural language, not a grammar parse: the first
// terminator-delimited SELECT span wins, the last remaining non-empty line
// is read as the follow-up, and everything in between is the explanation.
// A reply without a terminated SELECT yields an empty statement and the
// whole text as explanation.
func ParseReply(reply string) GeneratedQuery {
	match := selectStatementPattern.FindString(reply)
	if match == "" {
		return GeneratedQuery{Explanation: strings.TrimSpace(reply)}
	}

	statement := strings.TrimSpace(match)
	remainder := strings.Replace(reply, match, "", 1)

	lines := nonEmptyLines(remainder)
	var explanation, followUp string
	switch {
	case len(lines) > 1:
		explanation = strings.Join(lines[:len(lines)-1], "\n")
		followUp = lines[len(lines)-1]
	case len(lines) == 1:
		explanation = lines[0]
	}

	return GeneratedQuery{
		Statement:   statement,
		Explanation: stripUndefinedArtifact(explanation),
		FollowUp:    followUp,
	}
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// stripUndefinedArtifact removes a literal leading "undefined" token, a
// known formatting quirk of some upstream model frontends.
func stripUndefinedArtifact(explanation string) string {
	const artifact = "undefined"
	if len(explanation) >= len(artifact) && strings.EqualFold(explanation[:len(artifact)], artifact) {
		return strings.TrimSpace(explanation[len(artifact):])
	}
	return explanation
}
