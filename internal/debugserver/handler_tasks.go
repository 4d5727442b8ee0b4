package debugserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/cosched/pkg/sched"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, s.snapshotter.Snapshot())
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	raw := chi.URLParam(r, "handle")
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, "handle must be an integer")
		return
	}
	want := sched.Handle(n)
	for _, snap := range s.snapshotter.Snapshot() {
		if snap.Handle == want {
			respondOK(w, reqID, snap)
			return
		}
	}
	respondError(w, reqID, http.StatusNotFound, "no such task handle")
}
