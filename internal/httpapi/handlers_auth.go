package httpapi

import (
	"net/http"

	"github.com/kaysting/vaults/internal/auth"
)

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

type okResponse struct {
	Success bool `json:"success"`
}

type sessionInfo struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Created  int64  `json:"created"`
	Accessed int64  `json:"accessed"`
}

type sessionResponse struct {
	Success bool        `json:"success"`
	Session sessionInfo `json:"session"`
}

type vaultInfo struct {
	Name                  string   `json:"name"`
	Users                 []string `json:"users"`
	StorageBytesTotal     uint64   `json:"storage_bytes_total"`
	StorageBytesAvailable uint64   `json:"storage_bytes_available"`
	StorageBytesUsed      uint64   `json:"storage_bytes_used"`
}

type vaultsResponse struct {
	Success bool        `json:"success"`
	Vaults  []vaultInfo `json:"vaults"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if ok, wait := s.loginLimiter.Allow(clientIP(r)); !ok {
		w.Header().Set("Retry-After", retryAfterSeconds(wait))
		sendError(w, http.StatusTooManyRequests, "rate_limited", "Too many authentication attempts. Please try again later.")
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if req.Username == "" || req.Password == "" {
		sendError(w, http.StatusBadRequest, "missing_credentials", "A username and password are required")
		return
	}

	username, ok := auth.Authenticate(s.Users, req.Username, req.Password)
	if !ok {
		sendError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	}

	tok, err := auth.NewHexToken(32)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "server_error", "Server error")
		return
	}
	if err := s.Store.CreateSession(r.Context(), tok, username); err != nil {
		sendError(w, http.StatusInternalServerError, "server_error", "Server error")
		return
	}
	s.Logger.Info("user logged in", "user", username, "remote_ip", clientIP(r))
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: tok})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	sess := requestSession(r)
	if err := s.Store.DeleteSession(r.Context(), sess.Token); err != nil {
		sendError(w, http.StatusInternalServerError, "server_error", "Server error")
		return
	}
	s.Logger.Info("user logged out", "user", sess.Username)
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	sess := requestSession(r)
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: sessionInfo{
		Token:    sess.Token,
		Username: sess.Username,
		Created:  sess.Created,
		Accessed: sess.Accessed,
	}})
}

func (s *Server) handleVaults(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	username := requestUsername(r)
	out := make([]vaultInfo, 0)
	for _, v := range s.Vaults.ForUser(username) {
		stats := v.Disk()
		out = append(out, vaultInfo{
			Name:                  v.Name,
			Users:                 v.Users,
			StorageBytesTotal:     stats.TotalBytes,
			StorageBytesAvailable: stats.AvailableBytes,
			StorageBytesUsed:      stats.UsedBytes,
		})
	}
	writeJSON(w, http.StatusOK, vaultsResponse{Success: true, Vaults: out})
}
