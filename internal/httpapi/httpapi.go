package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kaysting/vaults/internal/config"
	"github.com/kaysting/vaults/internal/store"
	"github.com/kaysting/vaults/internal/upload"
	"github.com/kaysting/vaults/internal/vault"
	"github.com/kaysting/vaults/internal/vaultfs"
)

type Server struct {
	Store  *store.Store
	Vaults *vault.Registry
	Users  []config.User
	Logger *slog.Logger

	BindAddr string
	Port     int

	MaxChunkBytes int64
	MaxJSONBytes  int64

	uploads      *upload.Pipeline
	loginLimiter *slidingWindowLimiter
}

// New wires a Server from loaded configuration and an open store.
func New(cfg config.Config, st *store.Store, reg *vault.Registry, lg *slog.Logger) *Server {
	return &Server{
		Store:         st,
		Vaults:        reg,
		Users:         cfg.Users,
		Logger:        lg,
		BindAddr:      cfg.Server.Bind,
		Port:          cfg.Server.Port,
		MaxChunkBytes: int64(cfg.Server.MaxChunkMB) << 20,
		MaxJSONBytes:  int64(cfg.Server.MaxJSONKB) << 10,
		uploads:       &upload.Pipeline{Store: st},
		loginLimiter: newSlidingWindowLimiter(
			cfg.Server.LoginMaxAttempts,
			time.Duration(cfg.Server.LoginWindowMinutes)*time.Minute,
		),
	}
}

// Handler builds the full route table with logging and panic recovery
// wrapped around it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/logout", s.withUser(s.handleLogout))
	mux.HandleFunc("/api/auth", s.withUser(s.handleSession))
	mux.HandleFunc("/api/vaults", s.withUser(s.handleVaults))

	mux.HandleFunc("/api/files/list", s.withUser(s.withVault(s.handleList)))
	mux.HandleFunc("/api/files/delete", s.withUser(s.withVault(s.handleDelete)))
	mux.HandleFunc("/api/files/move", s.withUser(s.withVault(s.handleMove)))
	mux.HandleFunc("/api/files/copy", s.withUser(s.withVault(s.handleCopy)))
	mux.HandleFunc("/api/files/folder/create", s.withUser(s.withVault(s.handleFolderCreate)))

	mux.HandleFunc("/api/files/upload/create", s.withUser(s.withVault(s.handleUploadCreate)))
	mux.HandleFunc("/api/files/upload", s.withUser(s.withVault(s.handleUploadChunk)))
	mux.HandleFunc("/api/files/upload/finalize", s.withUser(s.withVault(s.handleUploadFinalize)))
	mux.HandleFunc("/api/files/upload/cancel", s.withUser(s.handleUploadCancel))

	mux.HandleFunc("/api/files/download/create", s.withUser(s.withVault(s.handleDownloadCreate)))
	mux.HandleFunc("/api/files/download/add", s.withUser(s.withVault(s.handleDownloadAdd)))
	mux.HandleFunc("/api/files/download", s.handleDownloadURL)
	mux.HandleFunc("/dl/", s.handleDownloadServe)

	mux.HandleFunc("/", s.serveIndex)

	return s.withRequestLog(s.withRecover(mux))
}

func (s *Server) ListenAndServe() error {
	if s.Store == nil {
		return errors.New("store is required")
	}
	addr := s.BindAddr + ":" + strconv.Itoa(s.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.Logger.Info("http server listening", "addr", addr)
	return httpServer.ListenAndServe()
}

// indexHTML stands in for the browser client, which ships separately.
const indexHTML = `<!doctype html>
<html><head><meta charset="utf-8"><title>vaults</title></head>
<body><p>vaults API server is running.</p></body></html>
`

// serveIndex answers non-API GETs so the API can sit behind the same
// origin as a client bundle.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusNotFound, "not_found", "Not found")
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, indexHTML)
}

type ctxKey string

const (
	ctxSession ctxKey = "session"
	ctxVault   ctxKey = "vault"
)

// withUser authenticates the bearer token and refreshes the session's
// accessed time.
func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r)
		if !ok {
			sendError(w, http.StatusUnauthorized, "unauthorized", "Missing or malformed Authorization header")
			return
		}
		sess, ok, err := s.Store.TouchSession(r.Context(), tok)
		if err != nil {
			sendError(w, http.StatusInternalServerError, "server_error", "Server error")
			return
		}
		if !ok {
			sendError(w, http.StatusUnauthorized, "unauthorized", "Invalid session token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxSession, sess)
		next(w, r.WithContext(ctx))
	}
}

// withVault resolves the vault query parameter and checks membership.
// Requires withUser earlier in the chain.
func (s *Server) withVault(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("vault")
		if name == "" {
			sendError(w, http.StatusBadRequest, "missing_vault", "Missing vault parameter")
			return
		}
		v, ok := s.Vaults.Find(name)
		if !ok {
			sendError(w, http.StatusNotFound, "vault_not_found", "No vault exists with that name")
			return
		}
		if !v.HasMember(requestUsername(r)) {
			sendError(w, http.StatusForbidden, "forbidden", "You do not have access to this vault")
			return
		}
		ctx := context.WithValue(r.Context(), ctxVault, v)
		next(w, r.WithContext(ctx))
	}
}

func requestVault(r *http.Request) vault.Vault {
	return r.Context().Value(ctxVault).(vault.Vault)
}

func requestVaultFS(r *http.Request) *vaultfs.FS {
	return vaultfs.New(requestVault(r))
}

func requestSession(r *http.Request) *store.Session {
	return r.Context().Value(ctxSession).(*store.Session)
}

func requestUsername(r *http.Request) string {
	return requestSession(r).Username
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return "", false
	}
	return h[len(prefix):], true
}

// decodeJSON reads a size-capped JSON request body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxJSONBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func sendError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Success: false, Code: code, Message: message})
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return false
	}
	return true
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return false
	}
	return true
}
