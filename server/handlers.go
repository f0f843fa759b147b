package server

import (
	"encoding/json"
	"net/http"

	"wsfetch/internal"
)

// handleLogin handles POST /api/login — verify or re-establish the session
// using the configured credentials.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.client.IsAuthenticated() {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Already logged in",
		})
		return
	}

	if !s.config.CredentialsConfigured() {
		writeError(w, http.StatusBadRequest, "No credentials configured")
		return
	}

	if err := s.client.Login(s.config.Username, s.config.Password); err != nil {
		internal.LogError("Login error: %v", err)
		s.setLoginState("error", "Login failed: "+err.Error())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.setLoginState("success", "Successfully logged in as "+s.config.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged in successfully",
	})
}

// handleStatus handles GET /api/status — report session and login state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	loginStatus, loginMessage := s.loginState()

	var username any
	if s.config.Username != "" {
		username = s.config.Username
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logged_in":              s.client.IsAuthenticated(),
		"credentials_configured": s.config.CredentialsConfigured(),
		"login_status":           loginStatus,
		"login_message":          loginMessage,
		"username":               username,
	})
}

// handleSearch handles POST /api/search — query the remote catalog.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter is required")
		return
	}

	results, err := s.client.Search(req.Query)
	if err != nil {
		internal.LogError("Search error: %v", err)
		status := http.StatusInternalServerError
		if internal.IsErrorType(err, internal.ErrNotAuthenticated) {
			status = http.StatusUnauthorized
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}

// handleDownload handles POST /api/download — start (or short-circuit to)
// a background download job.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileID   string `json:"fileId"`
		FileName string `json:"fileName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID == "" {
		writeError(w, http.StatusBadRequest, "File ID is required")
		return
	}

	job := s.downloads.Start(req.FileID, req.FileName, s.config.DownloadDir)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Download started: " + job.FileName,
		"fileId":   job.FileID,
		"status":   job.Status,
		"progress": job.Progress,
	})
}

// handleDownloadProgress handles GET /api/download/progress/{fileId} —
// poll one job's state.
func (s *Server) handleDownloadProgress(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")

	job, ok := s.downloads.Status(fileID)
	if !ok {
		writeError(w, http.StatusNotFound, "Download not found or completed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"download": job,
	})
}

// handleListDownloads handles GET /api/downloads — list already-downloaded
// files, newest-first.
func (s *Server) handleListDownloads(w http.ResponseWriter, r *http.Request) {
	files, err := s.fileOps.ListDownloads(s.config.DownloadDir)
	if err != nil {
		internal.LogError("List downloads error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"files":   files,
	})
}
