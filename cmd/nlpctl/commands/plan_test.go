package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

func TestHistoryFromFlagsAlternatesRoles(t *testing.T) {
	turns := historyFromFlags([]string{"q1", "a1", "q2"})
	want := []domain.Role{domain.RoleUser, domain.RoleAssistant, domain.RoleUser}
	if len(turns) != len(want) {
		t.Fatalf("expected %d turns, got %d", len(want), len(turns))
	}
	for i, role := range want {
		if turns[i].Role != role {
			t.Fatalf("turn %d: expected role %s, got %s", i, role, turns[i].Role)
		}
	}
}

func TestPlanCommandPrintsDecision(t *testing.T) {
	t.Setenv("ENV_FILE", "missing.env")
	t.Setenv("NLP_PROFILE_PATH", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"plan", "اهلا"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got struct {
		Search bool   `json:"search"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if got.Search || got.Reason != "greeting" {
		t.Fatalf("expected greeting without search, got %+v", got)
	}
}
