package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/mtlgen/internal/config"
	"github.com/dgallion1/mtlgen/internal/export"
	"github.com/dgallion1/mtlgen/internal/pipeline"
	"github.com/dgallion1/mtlgen/internal/stats"
)

const testKey = "secret-key"

const validYAML = `MTL_TITLE: Badge Printer Reset
MTL_#: 7
VERSION_NUMBER: "1"
revision: A
createdBy: J. Ortiz
steps:
  - Power off
  - Wait 30 seconds
  - Power on
completionCriteria:
  - Badge printed
troubleshooting:
  No power: Check the outlet
`

func newTestServer(t *testing.T) (*httptest.Server, *pipeline.Orchestrator) {
	t.Helper()
	cfg := config.Config{
		APIKey:             testKey,
		OutputDir:          t.TempDir(),
		WorkerCount:        2,
		MaxQueueSize:       8,
		MaxDefinitionBytes: 64 * 1024,
		JobTTL:             time.Hour,
	}
	log := slog.New(slog.DiscardHandler)
	exp := export.New(export.MemTemplates{}, export.Options{}, log)
	orch := pipeline.NewOrchestrator(cfg, exp, stats.NewWindow(time.Hour), log)
	orch.Start(context.Background())
	ts := httptest.NewServer(NewServer(orch, log, cfg))
	t.Cleanup(func() {
		ts.Close()
		orch.Stop()
	})
	return ts, orch
}

func do(t *testing.T, method, url, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuth(t *testing.T) {
	ts, _ := newTestServer(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + testKey},
		{"wrong key", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/stats/generation", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", resp.StatusCode)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/validate", "application/x-yaml", strings.NewReader(validYAML))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var ok struct {
		Valid    bool `json:"valid"`
		Rewrites []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"rewrites"`
		Definition struct {
			Title string `json:"title"`
		} `json:"definition"`
	}
	decode(t, resp, &ok)
	if !ok.Valid || ok.Definition.Title != "Badge Printer Reset" {
		t.Errorf("unexpected validate response %+v", ok)
	}
	if len(ok.Rewrites) != 3 {
		t.Errorf("expected 3 alias rewrites, got %+v", ok.Rewrites)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/validate", "application/json", strings.NewReader(`{"title":"x"}`))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var bad struct {
		Valid      bool `json:"valid"`
		Violations []struct {
			Field string `json:"field"`
		} `json:"violations"`
	}
	decode(t, resp, &bad)
	if bad.Valid || len(bad.Violations) != 5 {
		t.Errorf("expected 5 violations, got %+v", bad)
	}
}

func TestValidate_MalformedAndOversized(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/validate", "application/json", strings.NewReader(`{"title":`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed json, got %d", resp.StatusCode)
	}

	big := "title: " + strings.Repeat("x", 70*1024) + "\n"
	resp = do(t, http.MethodPost, ts.URL+"/api/validate", "application/x-yaml", strings.NewReader(big))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", resp.StatusCode)
	}
}

func TestBuild_EndToEnd(t *testing.T) {
	ts, _ := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "../badge.yaml")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(validYAML))
	mw.Close()

	resp := do(t, http.MethodPost, ts.URL+"/api/build?types=mtl1,teachback", mw.FormDataContentType(), &body)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	decode(t, resp, &accepted)

	var snap pipeline.JobSnapshot
	deadline := time.Now().Add(15 * time.Second)
	for {
		resp := do(t, http.MethodGet, ts.URL+accepted.PollURL, "", nil)
		decode(t, resp, &snap)
		if snap.Status == pipeline.StatusCompleted || snap.Status == pipeline.StatusFailed || snap.Status == pipeline.StatusPartial {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %q", snap.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q: %v", snap.Status, snap.Progress.Errors)
	}
	if snap.Source != "badge.yaml" {
		t.Errorf("expected sanitized source name, got %q", snap.Source)
	}
	if len(snap.Artifacts) != 6 {
		t.Fatalf("expected 6 artifacts, got %d", len(snap.Artifacts))
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/build/"+accepted.JobID+"/artifacts", "", nil)
	var listing struct {
		Artifacts []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"artifacts"`
	}
	decode(t, resp, &listing)
	if len(listing.Artifacts) != 6 {
		t.Fatalf("expected 6 listed artifacts, got %d", len(listing.Artifacts))
	}

	var pdfURL string
	for _, a := range listing.Artifacts {
		if strings.HasSuffix(a.Name, ".pdf") {
			pdfURL = a.URL
		}
	}
	resp = do(t, http.MethodGet, ts.URL+pdfURL, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for download, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("expected PDF bytes")
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/build/"+accepted.JobID+"/artifacts/..%2Fsecret.pdf", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown artifact, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodDelete, ts.URL+"/api/build/"+accepted.JobID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for delete, got %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, ts.URL+accepted.PollURL, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/stats/generation", "", nil)
	var st struct {
		Stats  stats.Snapshot            `json:"stats"`
		ByType map[string]stats.Snapshot `json:"by_type"`
	}
	decode(t, resp, &st)
	if st.Stats.Builds != 2 || len(st.ByType) != 2 {
		t.Errorf("expected 2 builds over 2 types, got %+v", st)
	}
}

func TestBuild_RejectsInvalidAndUnknownType(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/build", "application/json", strings.NewReader(`{"title":"only"}`))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/build?types=mtl9", "application/x-yaml", strings.NewReader(validYAML))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/build/missing/status", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPreview(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := do(t, http.MethodPost, ts.URL+"/api/preview?type=2", "application/x-yaml", strings.NewReader(validYAML))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html, got %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "Wait 30 seconds") {
		t.Error("expected step text in preview")
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/preview", "application/x-yaml", strings.NewReader(validYAML))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without type, got %d", resp.StatusCode)
	}
}

func TestQuiz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := do(t, http.MethodPost, ts.URL+"/api/quiz?format=yaml", "", strings.NewReader(validYAML))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Items []struct {
			ID     string `json:"id"`
			Answer string `json:"answer"`
		} `json:"items"`
	}
	decode(t, resp, &out)
	if len(out.Items) != 5 {
		t.Fatalf("expected 5 quiz items, got %d", len(out.Items))
	}
	if out.Items[4].Answer != "Check the outlet" {
		t.Errorf("expected troubleshooting answer last, got %+v", out.Items[4])
	}
}
