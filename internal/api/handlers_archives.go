package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListArchives(w http.ResponseWriter, r *http.Request) {
	sourceFile := r.URL.Query().Get("source")
	archives, err := s.db.ListArchives(sourceFile)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"archives": archives})
}

func (s *Server) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "archiveID")
	a, err := s.db.GetArchive(id)
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleRecentAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := s.db.RecentAnalyses(limit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": recs})
}
