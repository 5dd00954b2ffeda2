package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestFileHandler_Serve_Upload(t *testing.T) {
	filesDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(filesDir, "manuscript.docx"), []byte("upload-bytes"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	handler := NewFileHandler(filesDir, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/files/manuscript.docx", nil)
	rec := httptest.NewRecorder()

	handler.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("Expected octet-stream, got %s", got)
	}
	if rec.Body.String() != "upload-bytes" {
		t.Errorf("Unexpected body: %q", rec.Body.String())
	}
}

func TestFileHandler_Serve_Artifact(t *testing.T) {
	filesDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(filesDir, "out"), 0o755); err != nil {
		t.Fatalf("Failed to create out dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(filesDir, "out", "job-1.pdf"), []byte("pdf-bytes"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	handler := NewFileHandler(filesDir, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/files/job-1.pdf", nil)
	rec := httptest.NewRecorder()

	handler.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "pdf-bytes" {
		t.Errorf("Unexpected body: %q", rec.Body.String())
	}
}

func TestFileHandler_Serve_NotFound(t *testing.T) {
	handler := NewFileHandler(t.TempDir(), zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/files/missing.pdf", nil)
	rec := httptest.NewRecorder()

	handler.Serve(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["error"] != "not_found" {
		t.Errorf("Unexpected error body: %v", body)
	}
}

func TestFileHandler_Serve_TraversalBlocked(t *testing.T) {
	filesDir := t.TempDir()
	secret := filepath.Join(filesDir, "..", "secret.txt")
	if err := os.WriteFile(secret, []byte("secret"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	defer os.Remove(secret)

	handler := NewFileHandler(filesDir, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/files/..%2Fsecret.txt", nil)
	rec := httptest.NewRecorder()

	handler.Serve(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for traversal attempt, got %d", rec.Code)
	}
}
