package environment

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

// Server exposes a local Environment for one role over HTTP, speaking the
// protocol RemoteEnvironment expects.
type Server struct {
	role  int
	env   Environment
	mutex sync.Mutex
}

func NewServer(role int, env Environment) *Server {
	return &Server{role: role, env: env}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/reset", s.handleReset)
	mux.HandleFunc("/step", s.handleStep)
	return mux
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Role != s.role {
		http.Error(w, "wrong role", http.StatusBadRequest)
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	obs, err := s.env.Reset(r.Context())
	if err != nil {
		log.Error().Err(err).Int("role", s.role).Msg("reset failed")
		http.Error(w, "reset failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.write(w, obs, 0, s.env.Done())
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Role != s.role {
		http.Error(w, "wrong role", http.StatusBadRequest)
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	obs, reward, done, err := s.env.Do(r.Context(), req.Action)
	if err != nil {
		log.Error().Err(err).Int("role", s.role).Msg("step failed")
		http.Error(w, "step failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.write(w, obs, reward, done)
}

func (s *Server) write(w http.ResponseWriter, obs Observation, reward float64, done bool) {
	state, err := json.Marshal(obs)
	if err != nil {
		http.Error(w, "failed to encode state: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(frame{State: state, Reward: reward, Done: done}); err != nil {
		log.Error().Err(err).Msg("failed to write frame")
	}
}
