package http

import (
	"net/http"
	"time"

	"github.com/parqstat/parqstat/internal/catalog"
)

// FileInfo describes one registered file in a files response.
type FileInfo struct {
	FileID       string `json:"file_id"`
	Path         string `json:"path"`
	RowCount     int64  `json:"row_count"`
	SizeBytes    int64  `json:"size_bytes"`
	RegisteredAt string `json:"registered_at"`
}

// FilesResponse represents the files listing response.
type FilesResponse struct {
	Files     []FileInfo `json:"files"`
	RequestID string     `json:"request_id"`
}

// FilesHandler handles GET /v1/files requests against the catalog.
type FilesHandler struct {
	cat *catalog.Catalog
}

// NewFilesHandler creates a new files handler.
func NewFilesHandler(cat *catalog.Catalog) *FilesHandler {
	return &FilesHandler{cat: cat}
}

// ServeHTTP handles the files HTTP request.
func (h *FilesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	records, err := h.cat.ListFiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), requestID)
		return
	}

	resp := FilesResponse{
		Files:     make([]FileInfo, 0, len(records)),
		RequestID: requestID,
	}
	for _, rec := range records {
		resp.Files = append(resp.Files, FileInfo{
			FileID:       rec.FileID,
			Path:         rec.Path,
			RowCount:     rec.RowCount,
			SizeBytes:    rec.SizeBytes,
			RegisteredAt: rec.RegisteredAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
