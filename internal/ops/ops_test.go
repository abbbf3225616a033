package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hookbot/internal/storage"
	logx "hookbot/pkg/logx"
)

func newTestServer(t *testing.T) (*Server, storage.Store) {
	t.Helper()
	st, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(Config{Enabled: true}, st, logx.Nop()), st
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := get(t, srv.handler(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestJobsListing(t *testing.T) {
	t.Parallel()
	srv, st := newTestServer(t)
	h := srv.handler()

	rec := get(t, h, "/jobs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var views []jobView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("views = %v, want empty", views)
	}

	err := st.CreateJob(context.Background(), storage.JobRecord{
		ID:           "job_1_aa",
		Kind:         storage.JobText,
		Payload:      storage.JobPayload{Text: "hi"},
		Targets:      []int64{1, 2, 3},
		Cursor:       1,
		SuccessCount: 1,
		Status:       storage.JobPending,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	rec = get(t, h, "/jobs")
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %v, want one job", views)
	}
	v := views[0]
	if v.ID != "job_1_aa" || v.Processed != 1 || v.Success != 1 || v.Remaining != 2 || v.Status != "pending" {
		t.Fatalf("view = %+v", v)
	}
}

func TestJobByID(t *testing.T) {
	t.Parallel()
	srv, st := newTestServer(t)
	h := srv.handler()

	rec := get(t, h, "/jobs/job_missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	err := st.CreateJob(context.Background(), storage.JobRecord{
		ID:        "job_2_bb",
		Kind:      storage.JobForward,
		Targets:   []int64{5},
		Status:    storage.JobPending,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	rec = get(t, h, "/jobs/job_2_bb")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var v jobView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Kind != "forward" || v.Remaining != 1 {
		t.Fatalf("view = %+v", v)
	}
}
