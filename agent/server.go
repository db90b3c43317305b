package agent

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"pigchase/environment"
)

// Server hosts an Agent over HTTP at /act.
type Server struct {
	agent   Agent
	builder environment.StateBuilder
	mutex   sync.Mutex
}

// NewServer wraps a. Observations are decoded with builder, or symbolically
// when builder is nil.
func NewServer(a Agent, builder environment.StateBuilder) *Server {
	if builder == nil {
		builder = environment.NewSymbolicStateBuilder()
	}
	return &Server{agent: a, builder: builder}
}

func (s *Server) Handler() http.Handler {
	// Local mux rather than the global DefaultServeMux
	mux := http.NewServeMux()
	mux.HandleFunc("/act", s.handleAct)
	return mux
}

func (s *Server) handleAct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var payload actRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	obs, err := s.builder.Build(payload.Observation)
	if err != nil {
		http.Error(w, "bad observation: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mutex.Lock()
	action, err := s.agent.Act(r.Context(), obs, payload.Reward, payload.Done, payload.IsTraining)
	s.mutex.Unlock()
	if err != nil {
		log.Error().Err(err).Msg("agent failed to act")
		http.Error(w, "failed to act: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(actResponse{Action: action}); err != nil {
		http.Error(w, "failed to encode action: "+err.Error(), http.StatusInternalServerError)
	}
}
