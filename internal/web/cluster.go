package web

import (
	"encoding/json"
	"io/ioutil"
	"net/http"

	log "github.com/activeshadow/libminimega/minilog"
	"github.com/gorilla/mux"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// POST /api/cluster: a would-be client registers (or re-registers) itself.
// The master records the entry, forcing IsMasterHost false, then reconciles
// the OVN southbound chassis table so any chassis left over from a prior,
// now-stale membership gets removed.
func (s *Server) JoinCluster(w http.ResponseWriter, r *http.Request) {
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

	if err := s.Cluster.Join(host); err != nil {
		log.Error("joining host %s to cluster: %v", host.Name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cfg := s.Cluster.Config()

	if s.NewExecutor != nil {
		if master, ok := masterHostName(&cfg); ok {
			ex := s.NewExecutor(master, nil)
			if err := s.Cluster.ReconcileChassis(r.Context(), ex, master); err != nil {
				log.Warn("reconciling OVN chassis after join of %s: %v", host.Name, err)
			}
		}
	}

	writeJSON(w, &cfg)
}

// masterHostName finds the current master's name within a cluster config,
// used to address exec.Executor commands that must run on the master.
func masterHostName(cfg *types.TestbedClusterConfig) (string, bool) {
	for name, h := range cfg.Hosts {
		if h.IsMasterHost {
			return name, true
		}
	}
	return "", false
}

// GET /api/cluster/{name}: 200 if name is a current cluster member, 404
// otherwise. A client's rejoin cron treats anything but 200 as "master does
// not recognise us" and re-POSTs its own config.
func (s *Server) IsMember(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if s.Cluster.IsMember(name) {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}
