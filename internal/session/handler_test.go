package session

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resume-sync/internal/collab"
	"resume-sync/internal/imports"
	"resume-sync/internal/persistence"
)

func newTestHandler(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cache := persistence.NewMemoryStore()
	uploads := imports.NewUploadStage(cache)
	deps := Deps{
		Cache:        cache,
		Importer:     uploads,
		Channel:      collab.NewHub(),
		WriteDelay:   time.Millisecond,
		HistoryDelay: time.Millisecond,
	}

	handler := NewHandler(NewRegistry(deps), uploads, imports.NewJobLink(cache), nil, time.Second)
	router := gin.New()
	handler.RegisterRoutes(router.Group("/"))
	return router, handler
}

func request(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func createSession(t *testing.T, router *gin.Engine, body map[string]any) string {
	t.Helper()
	resp := request(t, router, http.MethodPost, "/sessions", body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, body %s", resp.Code, resp.Body.String())
	}
	var created struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return created.SessionID
}

func TestSessionEditUndoRedoFlow(t *testing.T) {
	router, _ := newTestHandler(t)
	id := createSession(t, router, map[string]any{"owner": "user-1", "new": true})

	resp := request(t, router, http.MethodPut, "/sessions/"+id+"/document", map[string]any{
		"identity": map[string]any{"name": "Jane", "summary": "v1"},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("apply status = %d", resp.Code)
	}
	time.Sleep(10 * time.Millisecond)

	resp = request(t, router, http.MethodPut, "/sessions/"+id+"/document", map[string]any{
		"identity": map[string]any{"name": "Jane", "summary": "v2"},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("apply status = %d", resp.Code)
	}
	time.Sleep(10 * time.Millisecond)

	resp = request(t, router, http.MethodPost, "/sessions/"+id+"/undo", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("undo status = %d", resp.Code)
	}
	var undone struct {
		Stepped  bool `json:"stepped"`
		Document struct {
			Identity struct {
				Summary string `json:"summary"`
			} `json:"identity"`
		} `json:"document"`
		CanRedo bool `json:"canRedo"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &undone); err != nil {
		t.Fatalf("decode undo: %v", err)
	}
	if !undone.Stepped || undone.Document.Identity.Summary != "v1" {
		t.Fatalf("unexpected undo result: %+v", undone)
	}
	if !undone.CanRedo {
		t.Error("expected redo available after undo")
	}

	resp = request(t, router, http.MethodPost, "/sessions/"+id+"/redo", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("redo status = %d", resp.Code)
	}
	var redone struct {
		Document struct {
			Identity struct {
				Summary string `json:"summary"`
			} `json:"identity"`
		} `json:"document"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &redone); err != nil {
		t.Fatalf("decode redo: %v", err)
	}
	if redone.Document.Identity.Summary != "v2" {
		t.Errorf("after redo summary = %q, want v2", redone.Document.Identity.Summary)
	}
}

func TestUploadTokenFlowIsSingleUse(t *testing.T) {
	router, _ := newTestHandler(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", "resume.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte("Jane Doe\nExperience\nShipped code")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", resp.Code, resp.Body.String())
	}
	var staged struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &staged); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}

	id := createSession(t, router, map[string]any{"owner": "user-1", "uploadToken": staged.Token})
	docResp := request(t, router, http.MethodGet, "/sessions/"+id+"/document", nil)
	var state struct {
		Document struct {
			Identity struct {
				Name string `json:"name"`
			} `json:"identity"`
		} `json:"document"`
	}
	if err := json.Unmarshal(docResp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if state.Document.Identity.Name != "Jane Doe" {
		t.Errorf("imported name = %q", state.Document.Identity.Name)
	}

	// The token was consumed: a second session with it starts empty.
	second := createSession(t, router, map[string]any{"owner": "user-2", "uploadToken": staged.Token})
	docResp = request(t, router, http.MethodGet, "/sessions/"+second+"/document", nil)
	var secondState struct {
		Document struct {
			Identity struct {
				Name string `json:"name"`
			} `json:"identity"`
		} `json:"document"`
	}
	if err := json.Unmarshal(docResp.Body.Bytes(), &secondState); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if secondState.Document.Identity.Name != "" {
		t.Errorf("second use of token produced a document: %q", secondState.Document.Identity.Name)
	}
}

func TestWizardSeedsDocument(t *testing.T) {
	router, _ := newTestHandler(t)
	id := createSession(t, router, map[string]any{"owner": "user-1", "new": true})

	resp := request(t, router, http.MethodPost, "/sessions/"+id+"/wizard", map[string]any{
		"name":     "Grace Hopper",
		"template": "modern",
		"skills":   []string{"COBOL"},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("wizard status = %d, body %s", resp.Code, resp.Body.String())
	}
	var state struct {
		Document struct {
			Identity struct {
				Name string `json:"name"`
			} `json:"identity"`
		} `json:"document"`
		CanUndo  bool   `json:"canUndo"`
		Template string `json:"template"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode wizard response: %v", err)
	}
	if state.Document.Identity.Name != "Grace Hopper" {
		t.Errorf("name = %q", state.Document.Identity.Name)
	}
	if state.Template != "modern" {
		t.Errorf("template = %q", state.Template)
	}
	if state.CanUndo {
		t.Error("wizard import must reset the undo baseline")
	}
}

func TestUnknownSessionReturns404(t *testing.T) {
	router, _ := newTestHandler(t)
	resp := request(t, router, http.MethodGet, "/sessions/nope/document", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
}

func TestJobLinkEndpointPrecedence(t *testing.T) {
	router, _ := newTestHandler(t)
	id := createSession(t, router, map[string]any{"owner": "user-1", "new": true, "jobId": "job-1"})

	// The create call cached job-1; an empty link falls back to it.
	resp := request(t, router, http.MethodPut, "/sessions/"+id+"/job", map[string]any{})
	if resp.Code != http.StatusOK {
		t.Fatalf("job status = %d", resp.Code)
	}
	var job struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job response: %v", err)
	}
	if job.JobID != "job-1" {
		t.Errorf("jobId = %q, want job-1", job.JobID)
	}

	// An explicit link wins over the cached id.
	resp = request(t, router, http.MethodPut, "/sessions/"+id+"/job", map[string]any{"jobId": "job-2"})
	if resp.Code != http.StatusOK {
		t.Fatalf("job status = %d", resp.Code)
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job response: %v", err)
	}
	if job.JobID != "job-2" {
		t.Errorf("jobId = %q, want job-2", job.JobID)
	}
}
