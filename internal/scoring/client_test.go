package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/score" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.JobText != "Go engineer" || req.ResumeText != "Go, Kubernetes" {
			t.Errorf("unexpected payload: %+v", req)
		}
		json.NewEncoder(w).Encode(Result{Score: 78.5, Matched: []string{"go"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.Score(context.Background(), "Go engineer", "Go, Kubernetes")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if result.Score != 78.5 {
		t.Errorf("score = %v, want 78.5", result.Score)
	}
	if len(result.Matched) != 1 || result.Matched[0] != "go" {
		t.Errorf("matched = %v", result.Matched)
	}
}

func TestClientScoreServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.Score(context.Background(), "a", "b"); err == nil {
		t.Fatal("expected error on 502")
	}
}
