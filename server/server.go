package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"wsfetch/internal"
	"wsfetch/utils"
)

// RemoteService is the slice of the remote client the facade needs.
type RemoteService interface {
	Login(username, password string) error
	IsAuthenticated() bool
	Search(query string) ([]internal.SearchResult, error)
}

// DownloadManager is the slice of the download orchestrator the facade needs.
type DownloadManager interface {
	Start(fileID, fileName, destDir string) internal.DownloadJob
	Status(fileID string) (internal.DownloadJob, bool)
}

// Server is the HTTP facade: a thin request/response mapping onto the
// remote client and the download orchestrator.
type Server struct {
	client    RemoteService
	downloads DownloadManager
	config    *internal.Config
	fileOps   *utils.FileOperations
	mux       *http.ServeMux

	mutex        sync.RWMutex
	loginStatus  string
	loginMessage string
}

// New creates a new Server with all routes registered.
func New(client RemoteService, downloads DownloadManager, config *internal.Config) *Server {
	s := &Server{
		client:       client,
		downloads:    downloads,
		config:       config,
		fileOps:      utils.NewFileOperations(),
		mux:          http.NewServeMux(),
		loginStatus:  "not_configured",
		loginMessage: "Webshare credentials not configured",
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// routes registers all HTTP routes on the server mux.
func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/search", s.handleSearch)
	s.mux.HandleFunc("POST /api/download", s.handleDownload)
	s.mux.HandleFunc("GET /api/download/progress/{fileId}", s.handleDownloadProgress)
	s.mux.HandleFunc("GET /api/downloads", s.handleListDownloads)
}

// AutoLogin attempts a startup login with the configured credentials and
// records the outcome for /api/status. A failure is reported, not fatal.
func (s *Server) AutoLogin() {
	if !s.config.CredentialsConfigured() {
		s.setLoginState("not_configured", "Webshare credentials not configured")
		return
	}

	if err := s.client.Login(s.config.Username, s.config.Password); err != nil {
		internal.LogError("Auto-login failed: %v", err)
		s.setLoginState("error", "Login failed: "+err.Error())
		return
	}

	internal.LogInfo("Successfully auto-logged in as %s", s.config.Username)
	s.setLoginState("success", "Successfully logged in as "+s.config.Username)
}

func (s *Server) setLoginState(status, message string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.loginStatus = status
	s.loginMessage = message
}

func (s *Server) loginState() (string, string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.loginStatus, s.loginMessage
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"service": "wsfetch",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
