package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/canbahi79-lgtm/formatfactory/api/dto"
	"github.com/canbahi79-lgtm/formatfactory/api/middleware"
	"github.com/canbahi79-lgtm/formatfactory/api/validation"
)

type UploadHandler struct {
	filesDir      string
	basePublicURL string
	maxSize       int64
	logger        *zap.Logger
}

func NewUploadHandler(filesDir, basePublicURL string, maxSize int64, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		filesDir:      filesDir,
		basePublicURL: strings.TrimRight(basePublicURL, "/"),
		maxSize:       maxSize,
		logger:        logger,
	}
}

// Upload handles POST /api/upload. Accepted uploads are manuscripts and
// journal templates: DOCX, PDF or plain text.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		h.handleError(w, "Failed to parse form", err, traceID, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.handleError(w, "Failed to get file", err, traceID, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > h.maxSize {
		h.handleError(w, "File too large", validation.ErrFileTooLarge, traceID, http.StatusBadRequest)
		return
	}

	fileType, err := validation.DetectFileType(file)
	if err != nil {
		h.handleError(w, "Invalid file", err, traceID, http.StatusBadRequest)
		return
	}

	name := uploadName(header.Filename)
	dest := filepath.Join(h.filesDir, name)

	dst, err := os.Create(dest)
	if err != nil {
		h.handleError(w, "Failed to save file", err, traceID, http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	size, err := io.Copy(dst, file)
	if err != nil {
		h.handleError(w, "Failed to write file", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("File uploaded",
		zap.String("trace_id", traceID),
		zap.String("name", name),
		zap.String("type", string(fileType)),
		zap.Int64("size", size),
	)

	h.respondJSON(w, http.StatusOK, dto.UploadResponse{
		ID:   name,
		URL:  h.basePublicURL + "/files/" + url.PathEscape(name),
		Name: header.Filename,
		Size: size,
		Type: string(fileType),
	})
}

// uploadName builds a collision-free stored name for an upload.
func uploadName(original string) string {
	base := filepath.Base(original)
	token := strings.Split(uuid.New().String(), "-")[0]
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), token, base)
}

func (h *UploadHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *UploadHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
