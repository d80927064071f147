package web

import "net/http"

// handleGetTaken responds with the current checkout, or JSON null.
func (s *Server) handleGetTaken(w http.ResponseWriter, r *http.Request) {
	c, err := s.checkouts.GetCurrent(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (s *Server) handleTakeRandom(w http.ResponseWriter, r *http.Request) {
	c, err := s.checkouts.GetRandom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (s *Server) handleDecrementRounds(w http.ResponseWriter, r *http.Request) {
	c, err := s.checkouts.DecrementRounds(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (s *Server) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	if err := s.checkouts.MarkDone(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
