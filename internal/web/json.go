package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sweeney/sigtrack/internal/status"
)

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleTracker serves one tracker's state; ".json" on the name is optional.
func (s *Server) handleTracker(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(r.PathValue("name"), ".json")
	snap := s.tracker.Snapshot()
	for _, ts := range snap.Trackers {
		if ts.Name != name {
			continue
		}
		data, _ := json.MarshalIndent(status.NewTrackerJSON(ts), "", "  ")
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}
	http.NotFound(w, r)
}
