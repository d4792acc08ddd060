package remotedoc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"resume-sync/internal/document"
)

func newFakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/resumes", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user") != "user-1" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]ResumeSummary{
			{ID: "r1", LatestVersionID: "v2", Template: "modern"},
		})
	})
	mux.HandleFunc("/resume/r1/versions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]VersionSummary{{ID: "v2"}, {ID: "v1"}})
	})
	mux.HandleFunc("/resume/version/v2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(VersionPayload{ResumeData: ResumeData{
			PersonalInfo: PersonalInfo{Name: "Jane"},
			Summary:      "latest",
		}})
	})
	mux.HandleFunc("/resume/save", func(w http.ResponseWriter, r *http.Request) {
		var req SaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.User == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(SaveResult{ResumeID: "r1", VersionID: "v3"})
	})
	return httptest.NewServer(mux)
}

func TestClientListResumes(t *testing.T) {
	srv := newFakeService(t)
	defer srv.Close()
	client := NewClient(srv.URL)

	resumes, err := client.ListResumes(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListResumes: %v", err)
	}
	if len(resumes) != 1 || resumes[0].ID != "r1" || resumes[0].Template != "modern" {
		t.Fatalf("unexpected resumes: %+v", resumes)
	}
}

func TestClientGetLatest(t *testing.T) {
	srv := newFakeService(t)
	defer srv.Close()
	client := NewClient(srv.URL)

	doc, versionID, err := client.GetLatest(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if versionID != "v2" {
		t.Errorf("version id = %q, want v2", versionID)
	}
	if doc.Identity.Name != "Jane" || doc.Identity.Summary != "latest" {
		t.Errorf("unexpected document: %+v", doc.Identity)
	}
}

func TestClientGetVersionNotFound(t *testing.T) {
	srv := newFakeService(t)
	defer srv.Close()
	client := NewClient(srv.URL)

	if _, err := client.GetVersion(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetVersion: got %v, want ErrNotFound", err)
	}
}

func TestClientSave(t *testing.T) {
	srv := newFakeService(t)
	defer srv.Close()
	client := NewClient(srv.URL)

	doc := document.Empty()
	doc.Identity.Name = "Jane"

	result, err := client.Save(context.Background(), SaveRequest{
		User:       "user-1",
		ResumeData: FromDocument(doc),
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if result.ResumeID != "r1" || result.VersionID != "v3" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestWireRoundTrip(t *testing.T) {
	doc := document.Empty()
	doc.Identity = document.Identity{Name: "Jane", Title: "Engineer", Summary: "builds things"}
	doc.Sections = []document.Section{{ID: "s1", Title: "Skills", Bullets: []document.Bullet{{ID: "b1", Text: "Go"}}}}

	back := FromDocument(doc).ToDocument()
	if !document.Equal(doc, back) {
		t.Fatalf("wire conversion lost data: %+v vs %+v", doc, back)
	}
}
