package server

import (
	"embed"
	"net/http"
)

//go:embed static
var staticFiles embed.FS

// handleIndex serves the bundled search page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "frontend not bundled")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}
