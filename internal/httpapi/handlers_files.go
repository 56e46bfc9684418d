package httpapi

import (
	"net/http"
	"path"
	"time"
)

type fileInfo struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
	Size        int64  `json:"size"`
	Modified    int64  `json:"modified"`
}

type listResponse struct {
	Success bool       `json:"success"`
	Path    string     `json:"path"`
	Files   []fileInfo `json:"files"`
}

type pathResponse struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
}

type moveResponse struct {
	Success   bool   `json:"success"`
	OldPath   string `json:"oldPath"`
	NewPath   string `json:"newPath"`
	Overwrite bool   `json:"overwrite"`
}

type copyResponse struct {
	Success   bool   `json:"success"`
	SrcPath   string `json:"srcPath"`
	DestPath  string `json:"destPath"`
	Overwrite bool   `json:"overwrite"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	fs := requestVaultFS(r)
	p, err := fs.Resolve(r.URL.Query().Get("path"))
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid_path", "Invalid or unsafe path")
		return
	}
	ok, _ := fs.Exists(p.Rel)
	if !ok {
		sendError(w, http.StatusNotFound, "not_found", "No file exists at the requested path")
		return
	}
	fi, err := fs.Stat(p.Rel)
	if err != nil || !fi.IsDir() {
		sendError(w, http.StatusBadRequest, "not_directory", "The file at the requested path is not a directory")
		return
	}
	entries, err := fs.ReadDir(p.Rel)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "server_error", "Server error")
		return
	}
	files := make([]fileInfo, 0, len(entries))
	for _, e := range entries {
		modified := e.ModTime().UnixMilli()
		if modified <= 0 {
			modified = time.Now().UnixMilli()
		}
		files = append(files, fileInfo{
			Name:        e.Name(),
			Path:        path.Join(p.Rel, e.Name()),
			IsDirectory: e.IsDir(),
			Size:        e.Size(),
			Modified:    modified,
		})
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Path: p.Rel, Files: files})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	fs := requestVaultFS(r)
	p, err := fs.Resolve(r.URL.Query().Get("path"))
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid_path", "Invalid or unsafe path")
		return
	}
	ok, _ := fs.Exists(p.Rel)
	if !ok {
		sendError(w, http.StatusNotFound, "not_found", "No file exists at the requested path")
		return
	}
	if p.IsVaultRoot() {
		sendError(w, http.StatusBadRequest, "root_delete", "The root directory itself cannot be deleted")
		return
	}
	fi, err := fs.Lstat(p.Rel)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete file or directory")
		return
	}
	if fi.IsDir() {
		err = fs.RemoveAll(p.Rel)
	} else {
		err = fs.Remove(p.Rel)
	}
	if err != nil {
		s.Logger.Error("delete failed",
			"vault", fs.Vault().Name, "path", p.Rel, "user", requestUsername(r), "error", err)
		sendError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete file or directory")
		return
	}
	writeJSON(w, http.StatusOK, pathResponse{Success: true, Path: p.Rel})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	s.handleMoveCopy(w, r, "move")
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	s.handleMoveCopy(w, r, "copy")
}

func (s *Server) handleMoveCopy(w http.ResponseWriter, r *http.Request, action string) {
	if !requirePost(w, r) {
		return
	}
	q := r.URL.Query()
	if q.Get("path_src") == "" || q.Get("path_dest") == "" {
		sendError(w, http.StatusBadRequest, "missing_path", "Missing path_src or path_dest")
		return
	}
	fs := requestVaultFS(r)
	src, err := fs.Resolve(q.Get("path_src"))
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid_path", "Invalid or unsafe path")
		return
	}
	dst, err := fs.Resolve(q.Get("path_dest"))
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid_path", "Invalid or unsafe path")
		return
	}
	overwrite := q.Get("overwrite") == "true"

	ok, _ := fs.Exists(src.Rel)
	if !ok {
		sendError(w, http.StatusNotFound, "src_not_found", "Source file does not exist")
		return
	}
	// An identical source and destination is never a destination
	// conflict, so this check comes first.
	if src.Rel == dst.Rel {
		sendError(w, http.StatusBadRequest, "same_path", "Source and destination paths are the same")
		return
	}
	if src.IsVaultRoot() || dst.IsVaultRoot() {
		sendError(w, http.StatusBadRequest, "root_modify", "The root directory itself cannot be modified")
		return
	}
	if destExists, _ := fs.Exists(dst.Rel); destExists {
		fi, err := fs.Lstat(dst.Rel)
		if err == nil && fi.IsDir() {
			sendError(w, http.StatusBadRequest, "dest_is_directory", "Cannot overwrite a directory")
			return
		}
		if !overwrite {
			sendError(w, http.StatusBadRequest, "dest_exists", "Destination file already exists")
			return
		}
	}

	if overwrite {
		if err := fs.RemoveIfExists(dst.Rel); err != nil {
			s.moveCopyFailed(w, r, action, src.Rel, dst.Rel, err)
			return
		}
	}
	switch action {
	case "move":
		if err := fs.Rename(src.Rel, dst.Rel); err != nil {
			s.moveCopyFailed(w, r, action, src.Rel, dst.Rel, err)
			return
		}
		writeJSON(w, http.StatusOK, moveResponse{Success: true, OldPath: src.Rel, NewPath: dst.Rel, Overwrite: overwrite})
	case "copy":
		if err := fs.CopyTree(src.Rel, dst.Rel); err != nil {
			s.moveCopyFailed(w, r, action, src.Rel, dst.Rel, err)
			return
		}
		writeJSON(w, http.StatusOK, copyResponse{Success: true, SrcPath: src.Rel, DestPath: dst.Rel, Overwrite: overwrite})
	}
}

func (s *Server) moveCopyFailed(w http.ResponseWriter, r *http.Request, action, src, dst string, err error) {
	s.Logger.Error(action+" failed",
		"vault", requestVault(r).Name, "src", src, "dest", dst, "user", requestUsername(r), "error", err)
	sendError(w, http.StatusInternalServerError, action+"_failed", "Failed to "+action+" file")
}

func (s *Server) handleFolderCreate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	fs := requestVaultFS(r)
	p, err := fs.Resolve(r.URL.Query().Get("path"))
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid_path", "Invalid or unsafe path")
		return
	}
	if ok, _ := fs.Exists(p.Rel); ok {
		sendError(w, http.StatusBadRequest, "exists", "A file or folder already exists at the requested path")
		return
	}
	if err := fs.MkdirAll(p.Rel); err != nil {
		s.Logger.Error("mkdir failed",
			"vault", fs.Vault().Name, "path", p.Rel, "user", requestUsername(r), "error", err)
		sendError(w, http.StatusInternalServerError, "mkdir_failed", "Failed to create folder")
		return
	}
	writeJSON(w, http.StatusOK, pathResponse{Success: true, Path: p.Rel})
}
