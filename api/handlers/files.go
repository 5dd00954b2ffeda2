package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileHandler serves produced artifacts and uploaded files by name. Artifacts
// land in the out/ subdirectory of the files dir, uploads in the dir itself.
type FileHandler struct {
	filesDir string
	logger   *zap.Logger
}

func NewFileHandler(filesDir string, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		filesDir: filesDir,
		logger:   logger,
	}
}

// Serve handles GET /files/{name}.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(strings.TrimPrefix(r.URL.Path, "/files/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		h.notFound(w)
		return
	}

	file, err := os.Open(filepath.Join(h.filesDir, name))
	if err != nil {
		file, err = os.Open(filepath.Join(h.filesDir, "out", name))
	}
	if err != nil {
		h.notFound(w)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, file); err != nil {
		h.logger.Error("Failed to stream file",
			zap.String("name", name),
			zap.Error(err),
		)
	}
}

func (h *FileHandler) notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"error": "not_found"})
}
