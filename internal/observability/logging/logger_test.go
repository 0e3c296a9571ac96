package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "api", "warn")

	logger.Info("turn_answered")
	logger.Warn("turn_retrieval_degraded", "project_id", "p1")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("expected exactly one json record, got %q: %v", buf.String(), err)
	}
	if record["service"] != "api" || record["msg"] != "turn_retrieval_degraded" || record["project_id"] != "p1" {
		t.Fatalf("unexpected record %v", record)
	}
}
