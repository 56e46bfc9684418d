package httpapi

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/kaysting/vaults/internal/fsutil"
	"github.com/kaysting/vaults/internal/upload"
)

type uploadCreateResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	Overwrite bool   `json:"overwrite"`
}

type uploadFinalizeResponse struct {
	Success   bool   `json:"success"`
	Path      string `json:"path"`
	Overwrite bool   `json:"overwrite"`
}

func (s *Server) handleUploadCreate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	q := r.URL.Query()
	overwrite := q.Get("overwrite") == "true"
	// An unparsable size becomes zero; the pipeline rejects it after
	// the destination checks, so "exists" wins over "invalid_size".
	size, _ := strconv.ParseInt(q.Get("size"), 10, 64)

	fs := requestVaultFS(r)
	tok, err := s.uploads.Create(r.Context(), fs, requestUsername(r), q.Get("path"), size, overwrite)
	if err != nil {
		switch {
		case errors.Is(err, fsutil.ErrPathTraversal):
			sendError(w, http.StatusBadRequest, "invalid_path", "Invalid or unsafe path")
		case errors.Is(err, upload.ErrDestIsDirectory):
			sendError(w, http.StatusBadRequest, "dest_is_directory", "Cannot overwrite a directory")
		case errors.Is(err, upload.ErrAlreadyExists):
			sendError(w, http.StatusBadRequest, "exists", "A file already exists at the requested path")
		case errors.Is(err, upload.ErrInvalidSize):
			sendError(w, http.StatusBadRequest, "invalid_size", "A valid file size (in bytes) is required")
		case errors.Is(err, upload.ErrInsufficientSpace):
			sendError(w, http.StatusBadRequest, "insufficient_space", "Not enough space in the vault for this upload")
		default:
			s.Logger.Error("upload create failed", "vault", fs.Vault().Name, "user", requestUsername(r), "error", err)
			sendError(w, http.StatusInternalServerError, "server_error", "Server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, uploadCreateResponse{Success: true, Token: tok, Overwrite: overwrite})
}

func (s *Server) handleUploadChunk(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" {
		sendError(w, http.StatusBadRequest, "missing_token", "Missing upload token")
		return
	}
	fs := requestVaultFS(r)
	// Token and recorded temp path are validated before the body
	// checks, so an unknown token answers invalid_token regardless of
	// how the request is framed.
	u, ok, err := s.Store.GetUpload(r.Context(), token)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "server_error", "Server error")
		return
	}
	if !ok {
		sendError(w, http.StatusNotFound, "invalid_token", "Invalid or expired upload token")
		return
	}
	if _, err := fsutil.RelWithin(fs.Vault().Root, u.TempPath); err != nil {
		sendError(w, http.StatusBadRequest, "invalid_path", "Invalid or unsafe path")
		return
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/octet-stream" {
		sendError(w, http.StatusBadRequest, "invalid_content_type", "Invalid content type, expected application/octet-stream")
		return
	}
	if r.ContentLength == 0 {
		sendError(w, http.StatusBadRequest, "no_data", "No data provided in the request body")
		return
	}
	offset, err := strconv.ParseInt(q.Get("offset"), 10, 64)
	if err != nil || offset < 0 {
		sendError(w, http.StatusBadRequest, "invalid_offset", "Missing or invalid offset query parameter")
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.MaxChunkBytes)
	if err := s.uploads.WriteChunk(r.Context(), fs, token, offset, body); err != nil {
		switch {
		case errors.Is(err, upload.ErrNotFound):
			sendError(w, http.StatusNotFound, "invalid_token", "Invalid or expired upload token")
		case errors.Is(err, fsutil.ErrPathTraversal):
			sendError(w, http.StatusBadRequest, "invalid_path", "Invalid or unsafe path")
		case errors.Is(err, upload.ErrChunkTooLarge):
			sendError(w, http.StatusRequestEntityTooLarge, "chunk_too_large", "Chunk body exceeds the maximum allowed size")
		default:
			s.Logger.Error("upload chunk failed", "token", token, "user", requestUsername(r), "error", err)
			sendError(w, http.StatusInternalServerError, "upload_failed", "Failed to upload file chunk. Upload canceled.")
		}
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (s *Server) handleUploadFinalize(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	q := r.URL.Query()
	token := q.Get("token")
	overwrite := q.Get("overwrite") == "true"

	fs := requestVaultFS(r)
	rel, err := s.uploads.Finalize(r.Context(), fs, token, overwrite)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrNotFound):
			sendError(w, http.StatusNotFound, "invalid_token", "Invalid or expired upload token")
		case errors.Is(err, fsutil.ErrPathTraversal):
			sendError(w, http.StatusBadRequest, "invalid_path", "Invalid or unsafe path")
		case errors.Is(err, upload.ErrNoData):
			sendError(w, http.StatusBadRequest, "no_data", "No data has been uploaded")
		case errors.Is(err, upload.ErrIncomplete):
			sendError(w, http.StatusBadRequest, "incomplete_upload", "Uploaded file is incomplete or missing chunks")
		case errors.Is(err, upload.ErrDestIsDirectory):
			sendError(w, http.StatusBadRequest, "dest_is_directory", "Cannot overwrite a directory")
		case errors.Is(err, upload.ErrAlreadyExists):
			sendError(w, http.StatusBadRequest, "exists", "A file already exists at the destination path")
		default:
			s.Logger.Error("upload finalize failed", "token", token, "user", requestUsername(r), "error", err)
			sendError(w, http.StatusInternalServerError, "finalize_failed", "Failed to finalize file upload. Upload canceled.")
		}
		return
	}
	writeJSON(w, http.StatusOK, uploadFinalizeResponse{Success: true, Path: rel, Overwrite: overwrite})
}

func (s *Server) handleUploadCancel(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		sendError(w, http.StatusBadRequest, "missing_token", "Missing upload token")
		return
	}
	if err := s.uploads.Cancel(r.Context(), token); err != nil {
		if errors.Is(err, upload.ErrNotFound) {
			sendError(w, http.StatusNotFound, "invalid_token", "Invalid or expired upload token")
			return
		}
		s.Logger.Error("upload cancel failed", "token", token, "user", requestUsername(r), "error", err)
		sendError(w, http.StatusInternalServerError, "cancel_failed", "Failed to cancel upload")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}
