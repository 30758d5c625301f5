package api

import (
	"net/http"
)

func (s *Server) handleGenerationStats(w http.ResponseWriter, r *http.Request) {
	st := s.orchestrator.Stats()
	if st == nil {
		jsonError(w, "generation stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       st.Snapshot(),
		"by_type":     st.ByType(),
	})
}
