package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/planning/importing"
	"github.com/planventa/planventa/pkg/middleware"
)

const testTenant = "11111111-1111-1111-1111-111111111111"

func testClient(t *testing.T, srv *httptest.Server) *planAPIClient {
	t.Helper()
	client, err := newPlanAPIClient(srv.URL, testTenant, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

func TestUpload_QueuedResponse(t *testing.T) {
	var gotTenant, gotEntityType, gotFileName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = r.Header.Get(middleware.TenantHeader)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotEntityType = r.FormValue("entity_type")
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		gotFileName = header.Filename

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(queuedJob{
			JobID:                uuid.NewString(),
			Status:               "queued",
			TrackingURL:          "/planning/import/status/x",
			EstimatedTimeSeconds: 3,
		})
	}))
	defer srv.Close()

	outcome, apiErr, err := testClient(t, srv).upload(context.Background(), uploadRequest{
		EntityType: "users",
		FileName:   "users.csv",
		Data:       []byte("email,full_name\na@b.com,A\n"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if apiErr != nil {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if outcome.Queued == nil || outcome.Result != nil {
		t.Fatalf("expected queued outcome, got %+v", outcome)
	}
	if outcome.Queued.EstimatedTimeSeconds != 3 {
		t.Fatalf("unexpected estimate: %d", outcome.Queued.EstimatedTimeSeconds)
	}
	if gotTenant != testTenant {
		t.Fatalf("tenant header not sent, got %q", gotTenant)
	}
	if gotEntityType != "users" || gotFileName != "users.csv" {
		t.Fatalf("unexpected form data: type=%q file=%q", gotEntityType, gotFileName)
	}
}

func TestUpload_SyncResultResponse(t *testing.T) {
	jobID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(importing.Result{
			JobID:      jobID,
			EntityType: importing.EntityUserProfile,
			Status:     "completed",
			Summary:    importing.Summary{Total: 2, Success: 2},
			Created:    map[string]int{"users": 2},
		})
	}))
	defer srv.Close()

	outcome, apiErr, err := testClient(t, srv).upload(context.Background(), uploadRequest{
		EntityType: "users",
		FileName:   "users.csv",
		Data:       []byte("email,full_name\na@b.com,A\n"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if apiErr != nil {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if outcome.Result == nil || outcome.Queued != nil {
		t.Fatalf("expected sync result outcome, got %+v", outcome)
	}
	if outcome.Result.JobID != jobID || outcome.Result.Summary.Success != 2 {
		t.Fatalf("unexpected result: %+v", outcome.Result)
	}
}

func TestUpload_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(apiError{
			Message: "unknown entity type",
			Code:    "UNKNOWN_ENTITY_TYPE",
			Meta:    map[string]string{"value": "widgets"},
		})
	}))
	defer srv.Close()

	_, apiErr, err := testClient(t, srv).upload(context.Background(), uploadRequest{
		EntityType: "users",
		FileName:   "x.csv",
		Data:       []byte("email\n"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if apiErr == nil || apiErr.Code != "UNKNOWN_ENTITY_TYPE" {
		t.Fatalf("expected error envelope, got %+v", apiErr)
	}
	if apiErr.Meta["value"] != "widgets" {
		t.Fatalf("unexpected meta: %+v", apiErr.Meta)
	}
}

func TestWaitForResult_PollsUntilTerminal(t *testing.T) {
	jobID := uuid.New()
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/status/"):
			status := "processing"
			if polls.Add(1) >= 3 {
				status = "completed"
			}
			_ = json.NewEncoder(w).Encode(jobStatus{JobID: jobID.String(), Status: status})
		case strings.HasSuffix(r.URL.Path, "/result"):
			_ = json.NewEncoder(w).Encode(importing.Result{
				JobID:      jobID,
				EntityType: importing.EntityUserProfile,
				Status:     "completed",
				Summary:    importing.Summary{Total: 1, Success: 1},
			})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	err := waitForResult(context.Background(), testClient(t, srv), jobID, 5*time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := polls.Load(); got < 3 {
		t.Fatalf("expected at least 3 polls, got %d", got)
	}
}

func TestWaitForResult_FailedJobExitsNonZero(t *testing.T) {
	jobID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "/status/") {
			_ = json.NewEncoder(w).Encode(jobStatus{JobID: jobID.String(), Status: "failed"})
			return
		}
		_ = json.NewEncoder(w).Encode(importing.Result{
			JobID:      jobID,
			EntityType: importing.EntityUserProfile,
			Status:     "failed",
		})
	}))
	defer srv.Close()

	err := waitForResult(context.Background(), testClient(t, srv), jobID, 5*time.Second, time.Millisecond)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := exitCode(err); got != exitValidation {
		t.Fatalf("unexpected exit code: %d", got)
	}
}

func TestNewPlanAPIClient_Validation(t *testing.T) {
	if _, err := newPlanAPIClient("not a url", testTenant, ""); err == nil || exitCode(err) != exitUsage {
		t.Fatalf("expected usage error for bad url, got %v", err)
	}
	if _, err := newPlanAPIClient("http://localhost:8080", "", ""); err == nil || exitCode(err) != exitUsage {
		t.Fatalf("expected usage error for missing tenant, got %v", err)
	}
	if _, err := newPlanAPIClient("http://localhost:8080", "nope", ""); err == nil || exitCode(err) != exitUsage {
		t.Fatalf("expected usage error for bad tenant, got %v", err)
	}
	if _, err := newPlanAPIClient("http://localhost:8080", testTenant, "nope"); err == nil || exitCode(err) != exitUsage {
		t.Fatalf("expected usage error for bad actor, got %v", err)
	}
}

func TestUnknownEntityType_Suggests(t *testing.T) {
	err := unknownEntityType("usrs")
	if err == nil {
		t.Fatalf("expected error")
	}
	if exitCode(err) != exitUsage {
		t.Fatalf("unexpected exit code: %d", exitCode(err))
	}
	if !strings.Contains(err.Error(), `"users"`) {
		t.Fatalf("expected suggestion in %q", err.Error())
	}
}
