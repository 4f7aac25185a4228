package chat

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name      string
		statement string
		wantErr   bool
	}{
		{"plain select", "SELECT * FROM t;", false},
		{"lowercase select", "select id from t", false},
		{"leading whitespace", "  SELECT 1;  ", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"delete", "DELETE FROM t;", true},
		{"drop", "DROP TABLE t;", true},
		{"insert", "INSERT INTO t VALUES (1);", true},
		{"update", "UPDATE t SET a = 1;", true},
		{"cte", "WITH x AS (SELECT 1) SELECT * FROM x;", true},
		{"stacked statements", "SELECT 1; DROP TABLE t;", true},
		{"embedded semicolon", "SELECT ';' FROM t; --", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			validated, err := Validate(tc.statement)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Validate(%q) succeeded, want rejection", tc.statement)
				}
				var rejected *RejectedError
				if !errors.As(err, &rejected) {
					t.Fatalf("error type = %T, want *RejectedError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%q) failed: %v", tc.statement, err)
			}
			if validated.SQL() == "" {
				t.Fatalf("validated statement is empty")
			}
		})
	}
}

func TestValidateTrimsStatement(t *testing.T) {
	validated, err := Validate("\n  SELECT 1;\n")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if validated.SQL() != "SELECT 1;" {
		t.Fatalf("SQL() = %q", validated.SQL())
	}
}
