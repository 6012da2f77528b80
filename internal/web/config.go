package web

import (
	"encoding/json"
	"io/ioutil"
	"net/http"

	log "github.com/activeshadow/libminimega/minilog"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// GET /api/config/host
func (s *Server) GetHostConfig(w http.ResponseWriter, r *http.Request) {
	host, err := s.Config.GetHostConfig()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, host)
}

// POST /api/config/host
func (s *Server) PutHostConfig(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var host types.ClusterHostConfig
	if err := json.Unmarshal(body, &host); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Config.SetHostConfig(&host); err != nil {
		log.Error("writing host config: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/config/cluster
func (s *Server) GetClusterConfig(w http.ResponseWriter, r *http.Request) {
	if s.Cluster != nil {
		cfg := s.Cluster.Config()
		writeJSON(w, &cfg)
		return
	}

	cfg, err := s.Config.GetClusterConfig()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, cfg)
}

// POST /api/config/cluster
func (s *Server) PutClusterConfig(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var cfg types.TestbedClusterConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Config.SetClusterConfig(&cfg); err != nil {
		log.Error("writing cluster config: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/config/status is the liveness probe every host exposes; the
// master's cron polls this on each non-master member, and a client's rejoin
// cron polls GET /api/cluster/{name} on the master to confirm membership.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
