package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	logx "hookbot/pkg/logx"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestJobRoundtrip(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	job := JobRecord{
		ID:        "job_1_abcd1234",
		Kind:      JobText,
		Payload:   JobPayload{Text: "hello"},
		Targets:   []int64{1, 2, 3},
		Status:    JobPending,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := st.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := st.ReadJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("ReadJob: %v", err)
	}
	if got.ID != job.ID || got.Kind != job.Kind || got.Payload.Text != "hello" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if len(got.Targets) != 3 || got.Targets[2] != 3 {
		t.Fatalf("targets = %v", got.Targets)
	}
	if got.Cursor != 0 || got.SuccessCount != 0 || got.FailureCount != 0 {
		t.Fatalf("fresh job should have zero counters: %+v", got)
	}

	got.Cursor = 2
	got.SuccessCount = 1
	got.FailureCount = 1
	if err := st.WriteJob(ctx, got); err != nil {
		t.Fatalf("WriteJob: %v", err)
	}
	again, err := st.ReadJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("ReadJob after write: %v", err)
	}
	if again.Cursor != 2 || again.SuccessCount != 1 || again.FailureCount != 1 {
		t.Fatalf("counters not persisted: %+v", again)
	}
}

func TestReadJobNotFound(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	_, err := st.ReadJob(context.Background(), "job_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteJobIdempotent(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	job := JobRecord{ID: "job_2_x", Kind: JobText, Targets: []int64{9}, Status: JobPending, CreatedAt: time.Now()}
	if err := st.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := st.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if err := st.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("second DeleteJob should be a no-op, got %v", err)
	}
	if _, err := st.ReadJob(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted job still readable: %v", err)
	}
}

func TestListJobIDs(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	ids, err := st.ListJobIDs(ctx)
	if err != nil {
		t.Fatalf("ListJobIDs on empty store: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no ids, got %v", ids)
	}

	for _, id := range []string{"job_1_a", "job_2_b", "job_3_c"} {
		if err := st.CreateJob(ctx, JobRecord{ID: id, Kind: JobText, Status: JobPending, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("CreateJob(%s): %v", id, err)
		}
	}
	ids, err = st.ListJobIDs(ctx)
	if err != nil {
		t.Fatalf("ListJobIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ids = %v, want 3 entries", ids)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	for _, want := range []string{"job_1_a", "job_2_b", "job_3_c"} {
		if !seen[want] {
			t.Fatalf("missing id %s in %v", want, ids)
		}
	}
}

func TestRecipientsDedup(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{10, 20, 10, 30, 20} {
		if err := st.AddRecipient(ctx, id); err != nil {
			t.Fatalf("AddRecipient(%d): %v", id, err)
		}
	}
	got, err := st.ListRecipients(ctx)
	if err != nil {
		t.Fatalf("ListRecipients: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("recipients = %v, want 3 unique", got)
	}
	n, err := st.CountRecipients(ctx)
	if err != nil || n != 3 {
		t.Fatalf("CountRecipients = %d, %v", n, err)
	}
}

func TestVerifiedTracking(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	ok, err := st.IsVerified(ctx, 42)
	if err != nil {
		t.Fatalf("IsVerified: %v", err)
	}
	if ok {
		t.Fatal("unknown user should not be verified")
	}

	if err := st.Verify(ctx, 42); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := st.Verify(ctx, 42); err != nil {
		t.Fatalf("repeat Verify: %v", err)
	}

	ok, err = st.IsVerified(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("IsVerified after Verify = %v, %v", ok, err)
	}
	n, err := st.CountVerified(ctx)
	if err != nil || n != 1 {
		t.Fatalf("CountVerified = %d, %v", n, err)
	}
}

func TestStepLifecycle(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	const chat = int64(777)

	step, err := st.Step(ctx, chat)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if step != "" {
		t.Fatalf("fresh chat step = %q, want empty", step)
	}

	if err := st.SetStep(ctx, chat, "webhook:set:token"); err != nil {
		t.Fatalf("SetStep: %v", err)
	}
	step, err = st.Step(ctx, chat)
	if err != nil || step != "webhook:set:token" {
		t.Fatalf("Step = %q, %v", step, err)
	}

	// Empty step clears.
	if err := st.SetStep(ctx, chat, ""); err != nil {
		t.Fatalf("SetStep(clear): %v", err)
	}
	step, err = st.Step(ctx, chat)
	if err != nil || step != "" {
		t.Fatalf("Step after clear = %q, %v", step, err)
	}
}

func TestContextRoundtrip(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	const chat = int64(888)

	kv, err := st.Context(ctx, chat)
	if err != nil {
		t.Fatalf("Context on fresh chat: %v", err)
	}
	if len(kv) != 0 {
		t.Fatalf("fresh context = %v, want empty", kv)
	}

	if err := st.SaveContext(ctx, chat, map[string]any{"operation": "set", "token": "t"}); err != nil {
		t.Fatalf("SaveContext: %v", err)
	}
	kv, err = st.Context(ctx, chat)
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	if kv["operation"] != "set" || kv["token"] != "t" {
		t.Fatalf("context = %v", kv)
	}

	if err := st.ClearContext(ctx, chat); err != nil {
		t.Fatalf("ClearContext: %v", err)
	}
	if err := st.ClearContext(ctx, chat); err != nil {
		t.Fatalf("repeat ClearContext: %v", err)
	}
	kv, err = st.Context(ctx, chat)
	if err != nil || len(kv) != 0 {
		t.Fatalf("context after clear = %v, %v", kv, err)
	}
}

func TestPanelMessage(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	const chat = int64(999)

	_, ok, err := st.PanelMessage(ctx, chat)
	if err != nil {
		t.Fatalf("PanelMessage: %v", err)
	}
	if ok {
		t.Fatal("fresh chat should have no panel message")
	}

	if err := st.SetPanelMessage(ctx, chat, 1234); err != nil {
		t.Fatalf("SetPanelMessage: %v", err)
	}
	id, ok, err := st.PanelMessage(ctx, chat)
	if err != nil || !ok || id != 1234 {
		t.Fatalf("PanelMessage = %d, %v, %v", id, ok, err)
	}

	// Panel ids are per chat.
	_, ok, err = st.PanelMessage(ctx, chat+1)
	if err != nil || ok {
		t.Fatalf("other chat should have no panel message (ok=%v, err=%v)", ok, err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "bolt", Path: t.TempDir()}, logx.Nop())
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
