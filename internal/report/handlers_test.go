package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"backend-trpreport/internal/archive"
	"backend-trpreport/internal/auth"
	"backend-trpreport/internal/maprender"
	"backend-trpreport/internal/pipeline"
	"backend-trpreport/internal/session"
	"backend-trpreport/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

const secret = "test-secret"

type fakeRunner struct {
	outputDir string
	err       error
	got       pipeline.Input
	archive   []byte
}

func (r *fakeRunner) Run(_ context.Context, in pipeline.Input) (pipeline.Result, error) {
	r.got = in
	r.archive, _ = os.ReadFile(in.ArchivePath)
	if r.err != nil {
		return pipeline.Result{RunID: in.RunID, State: pipeline.StateFailed}, r.err
	}
	path := filepath.Join(r.outputDir, "run1.pptx")
	return pipeline.Result{
		RunID:        in.RunID,
		State:        pipeline.StateDone,
		Session:      session.Session{ID: "session-1"},
		ArtifactPath: path,
	}, nil
}

func newApp(t *testing.T, runner *fakeRunner) (*fiber.App, string, string) {
	t.Helper()
	uploads := t.TempDir()
	output := t.TempDir()
	if runner != nil {
		runner.outputDir = output
	}
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler})
	RegisterRoutes(app.Group("/api"), NewHandler(runner, uploads, output, nil), auth.JWTMiddleware(secret))
	return app, uploads, output
}

func token(t *testing.T, perms ...string) string {
	t.Helper()
	tok, err := auth.NewService(secret).IssueToken("user-1", perms, time.Minute)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return "Bearer " + tok
}

func uploadRequest(t *testing.T, field, name string, content []byte, extra map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range extra {
		_ = mw.WriteField(k, v)
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		fw.Write(content)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/rtp/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestUploadGeneratesReport(t *testing.T) {
	runner := &fakeRunner{}
	app, uploads, _ := newApp(t, runner)

	runID := "6f1c1b1e-4d6c-4c2b-9a57-6a1a3c0e9b11"
	req := uploadRequest(t, "file", "run1.trp", []byte("zip bytes"), map[string]string{"run_id": runID})
	req.Header.Set("Authorization", token(t, auth.PermUploadFile))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["message"] != "Report generated successfully" {
		t.Fatalf("unexpected message %v", body["message"])
	}
	if body["downloadUrl"] != "/api/reports/download/run1.pptx" {
		t.Fatalf("unexpected download url %v", body["downloadUrl"])
	}
	if body["sessionId"] != "session-1" || body["runId"] != runID {
		t.Fatalf("unexpected ids %v", body)
	}

	if runner.got.ArchiveName != "run1.trp" || runner.got.RunID != runID {
		t.Fatalf("unexpected input %+v", runner.got)
	}
	if string(runner.archive) != "zip bytes" {
		t.Fatalf("runner saw %q", runner.archive)
	}
	if len(runner.got.Fingerprint) != 64 {
		t.Fatalf("expected blake3 hex fingerprint, got %q", runner.got.Fingerprint)
	}
	entries, _ := os.ReadDir(uploads)
	if len(entries) != 0 {
		t.Fatalf("upload should be removed after the run, found %d files", len(entries))
	}
}

type gatedRunner struct {
	arrived chan pipeline.Input
	seen    chan string
	release chan struct{}
}

func (r *gatedRunner) Run(_ context.Context, in pipeline.Input) (pipeline.Result, error) {
	data, _ := os.ReadFile(in.ArchivePath)
	r.arrived <- in
	r.seen <- string(data)
	<-r.release
	return pipeline.Result{RunID: in.RunID, State: pipeline.StateDone, ArtifactPath: "run1.pptx"}, nil
}

func TestUploadSameRunIDKeepsArchivesApart(t *testing.T) {
	runner := &gatedRunner{
		arrived: make(chan pipeline.Input, 2),
		seen:    make(chan string, 2),
		release: make(chan struct{}),
	}
	uploads := t.TempDir()
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler})
	RegisterRoutes(app.Group("/api"), NewHandler(runner, uploads, t.TempDir(), nil), auth.JWTMiddleware(secret))

	runID := "6f1c1b1e-4d6c-4c2b-9a57-6a1a3c0e9b11"
	statuses := make(chan int, 2)
	for _, content := range []string{"first archive", "second archive"} {
		req := uploadRequest(t, "file", "run1.trp", []byte(content), map[string]string{"run_id": runID})
		req.Header.Set("Authorization", token(t, auth.PermUploadFile))
		go func() {
			resp, err := app.Test(req, -1)
			if err != nil {
				statuses <- 0
				return
			}
			statuses <- resp.StatusCode
		}()
	}

	first, second := <-runner.arrived, <-runner.arrived
	if first.ArchivePath == second.ArchivePath {
		t.Fatalf("uploads share path %s", first.ArchivePath)
	}
	if first.RunID != runID || second.RunID != runID {
		t.Fatalf("unexpected run ids %q %q", first.RunID, second.RunID)
	}
	got := map[string]bool{<-runner.seen: true, <-runner.seen: true}
	if !got["first archive"] || !got["second archive"] {
		t.Fatalf("runs saw %v", got)
	}
	close(runner.release)

	for i := 0; i < 2; i++ {
		if status := <-statuses; status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
	}
	entries, _ := os.ReadDir(uploads)
	if len(entries) != 0 {
		t.Fatalf("uploads should be removed, found %d files", len(entries))
	}
}

func TestUploadRequiresFile(t *testing.T) {
	app, _, _ := newApp(t, &fakeRunner{})
	req := uploadRequest(t, "", "", nil, map[string]string{"note": "x"})
	req.Header.Set("Authorization", token(t, auth.PermUploadFile))
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if decode(t, resp)["message"] != "No file uploaded." {
		t.Fatalf("unexpected message")
	}
}

func TestUploadPermissions(t *testing.T) {
	app, _, _ := newApp(t, &fakeRunner{})

	req := uploadRequest(t, "file", "run1.trp", []byte("x"), nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	req = uploadRequest(t, "file", "run1.trp", []byte("x"), nil)
	req.Header.Set("Authorization", token(t, auth.PermViewFiles))
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if decode(t, resp)["message"] != "Forbidden: Missing permission 'upload_file'" {
		t.Fatalf("unexpected forbidden message")
	}
}

func TestUploadMapsPipelineErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", &archive.MissingRequiredFilesError{Files: []string{"positions/wptrack.xml"}}, http.StatusBadRequest, "missing files: positions/wptrack.xml"},
		{"map service", &maprender.MapRenderError{Status: 403}, http.StatusBadGateway, "map service returned status 403"},
		{"persistence", &apperr.PersistenceError{Op: "transaction", Err: errors.New("db down")}, http.StatusInternalServerError, "persistence: transaction: db down"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app, _, _ := newApp(t, &fakeRunner{err: tc.err})
			req := uploadRequest(t, "file", "run1.trp", []byte("x"), nil)
			req.Header.Set("Authorization", token(t, "UPLOAD_FILE"))
			resp, _ := app.Test(req)
			if resp.StatusCode != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, resp.StatusCode)
			}
			if got := decode(t, resp)["message"]; got != tc.msg {
				t.Fatalf("unexpected message %v", got)
			}
		})
	}
}

func TestDownload(t *testing.T) {
	app, _, output := newApp(t, nil)
	if err := os.WriteFile(filepath.Join(output, "run1.pptx"), []byte("deck"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/reports/download/run1.pptx", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	for _, path := range []string{
		"/api/reports/download/missing.pptx",
		"/api/reports/download/..%2F..%2Fetc%2Fpasswd",
		"/api/reports/download/notes.txt",
	} {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
		if decode(t, resp)["message"] != "File not found." {
			t.Fatalf("%s: unexpected message", path)
		}
	}
}

func TestListReports(t *testing.T) {
	app, _, output := newApp(t, nil)
	os.WriteFile(filepath.Join(output, "run1.pptx"), bytes.Repeat([]byte("x"), 2048), 0o644)
	os.WriteFile(filepath.Join(output, "ignore.txt"), []byte("x"), 0o644)

	req := httptest.NewRequest(http.MethodGet, "/api/rtp/reports/list", nil)
	req.Header.Set("Authorization", token(t, auth.PermViewFiles))
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Message string     `json:"message"`
		Files   []FileInfo `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "List of .pptx files retrieved successfully" {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if len(body.Files) != 1 || body.Files[0].Name != "run1.pptx" || body.Files[0].Size != 2048 {
		t.Fatalf("unexpected files %+v", body.Files)
	}
	if body.Files[0].SizeHuman != "2.0 kB" {
		t.Fatalf("unexpected human size %q", body.Files[0].SizeHuman)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/rtp/reports/list", nil)
	req.Header.Set("Authorization", token(t, auth.PermUploadFile))
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
