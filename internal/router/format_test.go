package router

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hookbot/internal/services/broadcast"
	"hookbot/internal/transport"
)

func TestFormatSummary(t *testing.T) {
	t.Parallel()
	got := formatSummary(broadcast.Summary{
		JobID: "job_1_ab", Status: "pending", Processed: 3, Success: 2, Failed: 1, Remaining: 7,
	})
	for _, want := range []string{"job_1_ab", "Delivered: 2", "Failed: 1", "Remaining: 7", "pending"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary %q missing %q", got, want)
		}
	}
}

func TestFormatWebhookInfo(t *testing.T) {
	t.Parallel()
	got := formatWebhookInfo(transport.APIResult{OK: true, ResultJSON: `{"url":"<x>"}`})
	if !strings.Contains(got, "&lt;x&gt;") {
		t.Fatalf("result not escaped: %q", got)
	}

	got = formatWebhookInfo(transport.APIResult{OK: false, Description: "Unauthorized"})
	if !strings.Contains(got, "Unauthorized") {
		t.Fatalf("failure description lost: %q", got)
	}

	got = formatWebhookInfo(transport.APIResult{OK: false})
	if !strings.Contains(got, "failed to reach Telegram") {
		t.Fatalf("missing fallback description: %q", got)
	}
}

func TestRecentErrorCount(t *testing.T) {
	t.Parallel()
	if n := recentErrorCount("", 10); n != 0 {
		t.Fatalf("empty path count = %d", n)
	}
	if n := recentErrorCount(filepath.Join(t.TempDir(), "missing.log"), 10); n != 0 {
		t.Fatalf("missing file count = %d", n)
	}

	path := filepath.Join(t.TempDir(), "bot.log")
	content := strings.Join([]string{
		`{"level":"info","message":"ok"}`,
		`{"level":"error","message":"boom"}`,
		`{"level":"warn","message":"meh"}`,
		`{"level":"error","message":"boom again"}`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if n := recentErrorCount(path, 200); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}

	// Sample window: only the tail is inspected.
	if n := recentErrorCount(path, 1); n != 1 {
		t.Fatalf("tail sample count = %d, want 1", n)
	}
}
