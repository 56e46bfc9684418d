package httpapi

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/kaysting/vaults/internal/archive"
	"github.com/kaysting/vaults/internal/auth"
	"github.com/kaysting/vaults/internal/vault"
	"github.com/kaysting/vaults/internal/vaultfs"
)

type downloadCreateResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

type downloadURLResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

func (s *Server) handleDownloadCreate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	tok, err := auth.NewHexToken(8)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "server_error", "Server error")
		return
	}
	v := requestVault(r)
	if err := s.Store.CreateDownload(r.Context(), tok, requestUsername(r), v.Name); err != nil {
		sendError(w, http.StatusInternalServerError, "server_error", "Server error")
		return
	}
	writeJSON(w, http.StatusOK, downloadCreateResponse{Success: true, Token: tok})
}

func (s *Server) handleDownloadAdd(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	token := r.URL.Query().Get("token")
	_, ok, err := s.Store.GetDownload(r.Context(), token)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "server_error", "Server error")
		return
	}
	if !ok {
		sendError(w, http.StatusNotFound, "invalid_token", "Invalid or expired download token")
		return
	}

	var req struct {
		Paths []string `json:"paths"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if len(req.Paths) == 0 {
		sendError(w, http.StatusBadRequest, "no_paths", "No paths provided")
		return
	}

	fs := requestVaultFS(r)
	rels := make([]string, 0, len(req.Paths))
	for _, raw := range req.Paths {
		p, err := fs.Resolve(raw)
		if err != nil {
			sendError(w, http.StatusBadRequest, "invalid_path", "Invalid or unsafe path")
			return
		}
		exists, _ := fs.Exists(p.Rel)
		if !exists {
			sendError(w, http.StatusNotFound, "not_found", "File not found in vault "+fs.Vault().Name+": "+raw)
			return
		}
		rels = append(rels, p.Rel)
	}
	if err := s.Store.AddDownloadFiles(r.Context(), token, rels); err != nil {
		sendError(w, http.StatusInternalServerError, "server_error", "Server error")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

// loadDownload validates a download token and returns its file list and
// vault. The token itself is the access credential here; download links
// are meant to be shareable without a session.
func (s *Server) loadDownload(w http.ResponseWriter, r *http.Request, token string) (vault.Vault, []string, bool) {
	if token == "" {
		sendError(w, http.StatusBadRequest, "missing_token", "Missing download token")
		return vault.Vault{}, nil, false
	}
	dl, ok, err := s.Store.GetDownload(r.Context(), token)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "server_error", "Server error")
		return vault.Vault{}, nil, false
	}
	if !ok {
		sendError(w, http.StatusNotFound, "invalid_token", "Invalid or expired download token")
		return vault.Vault{}, nil, false
	}
	paths, err := s.Store.ListDownloadFiles(r.Context(), token)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "server_error", "Server error")
		return vault.Vault{}, nil, false
	}
	if len(paths) == 0 {
		sendError(w, http.StatusNotFound, "no_files", "No files associated with this download")
		return vault.Vault{}, nil, false
	}
	v, ok := s.Vaults.Find(dl.Vault)
	if !ok {
		sendError(w, http.StatusNotFound, "vault_missing", "The vault this download was created from no longer exists")
		return vault.Vault{}, nil, false
	}
	return v, paths, true
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	token := r.URL.Query().Get("token")
	v, paths, ok := s.loadDownload(w, r, token)
	if !ok {
		return
	}
	base := "/dl/" + token
	if len(paths) != 1 {
		writeJSON(w, http.StatusOK, downloadURLResponse{Success: true, URL: base + "/files.zip"})
		return
	}
	fs := vaultfs.New(v)
	fi, err := fs.Stat(paths[0])
	if err != nil {
		sendError(w, http.StatusNotFound, "not_found", "The file this download link points to no longer exists")
		return
	}
	name := baseName(paths[0])
	if name == "" {
		name = v.Name
	}
	if fi.IsDir() {
		name += ".zip"
	}
	writeJSON(w, http.StatusOK, downloadURLResponse{Success: true, URL: base + "/" + url.PathEscape(name)})
}

func (s *Server) handleDownloadServe(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	token, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/dl/"), "/")
	v, paths, ok := s.loadDownload(w, r, token)
	if !ok {
		return
	}
	fs := vaultfs.New(v)

	filename := "files"
	if len(paths) == 1 {
		p, err := fs.Resolve(paths[0])
		if err != nil {
			http.Error(w, "Invalid or unsafe path", http.StatusBadRequest)
			return
		}
		fi, err := fs.Stat(p.Rel)
		if err != nil {
			http.Error(w, "The file this download link points to no longer exists", http.StatusNotFound)
			return
		}
		filename = baseName(p.Rel)
		if fi.IsDir() {
			// A single directory downloads as a zip of its children,
			// named after the directory.
			entries, err := fs.ReadDir(p.Rel)
			if err != nil {
				http.Error(w, "The file this download link points to no longer exists", http.StatusNotFound)
				return
			}
			paths = paths[:0]
			for _, e := range entries {
				paths = append(paths, path.Join(p.Rel, e.Name()))
			}
		} else {
			w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
			http.ServeFile(w, r, p.Abs)
			return
		}
	}
	if filename == "" {
		filename = v.Name
	}
	filename += ".zip"

	entries := make([]archive.Entry, 0, len(paths))
	for _, rel := range paths {
		p, err := fs.Resolve(rel)
		if err != nil {
			s.Logger.Warn("skipping unsafe download path", "token", token, "path", rel)
			continue
		}
		entries = append(entries, archive.Entry{Name: baseName(p.Rel), Abs: p.Abs})
	}

	s.Logger.Info("starting zip download",
		"token", token, "vault", v.Name, "items", len(entries), "remote_ip", clientIP(r))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := archive.WriteZip(r.Context(), w, entries, s.Logger); err != nil {
		s.Logger.Info("zip download aborted", "token", token, "error", err)
		return
	}
	s.Logger.Info("finished zip download", "token", token, "vault", v.Name)
}

// baseName returns the final element of a vault-relative path, or ""
// for the vault root.
func baseName(rel string) string {
	b := path.Base(rel)
	if b == "/" || b == "." {
		return ""
	}
	return b
}
