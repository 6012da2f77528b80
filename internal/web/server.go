// Package web is the master's HTTP+WebSocket API: cluster membership and
// per-host config endpoints, deployment CRUD over the bbolt store, the
// resumable orchestration WebSocket, and a pluggable Prometheus metrics
// surface. Client nodes run the same router with a reduced route set (see
// Server.ClientOnly).
package web

import (
	"flag"
	"net/http"

	log "github.com/activeshadow/libminimega/minilog"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/cluster"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/config"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/exec"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/store"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

var (
	f_endpoint  string
	f_allowCORS bool
)

func init() {
	flag.StringVar(&f_endpoint, "web.endpoint", ":3000", "HTTP endpoint to listen on")
	flag.BoolVar(&f_allowCORS, "web.allow-cors", false, "allow HTTP CORS")
}

// Server bundles the daemon-wide dependencies every handler needs. A
// client-mode process fills in Config and leaves Cluster/Store/Metrics nil;
// ClientOnly then registers only the routes that make sense without them.
type Server struct {
	Store   store.Store
	Cluster *cluster.Manager
	Config  config.Provider
	Metrics Collector

	// MainInterface is the uplink NIC used for masquerade rules when a
	// join triggers host (re)configuration.
	MainInterface string

	// NewExecutor builds the process-local exec.Executor used to probe
	// and configure a joining host. Left nil disables join-time host
	// configuration (e.g. in tests).
	NewExecutor func(master string, hosts map[string]types.TestbedHost) *exec.Executor
}

// Router builds the full master router: deployments, cluster, config,
// metrics, and the orchestration WebSocket.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/config/host", s.GetHostConfig).Methods("GET", "OPTIONS")
	api.HandleFunc("/config/host", s.PutHostConfig).Methods("POST", "OPTIONS")
	api.HandleFunc("/config/cluster", s.GetClusterConfig).Methods("GET", "OPTIONS")
	api.HandleFunc("/config/cluster", s.PutClusterConfig).Methods("POST", "OPTIONS")
	api.HandleFunc("/config/status", s.Status).Methods("GET", "OPTIONS")

	api.HandleFunc("/cluster", s.JoinCluster).Methods("POST", "OPTIONS")
	api.HandleFunc("/cluster/{name}", s.IsMember).Methods("GET", "OPTIONS")

	api.HandleFunc("/deployments", s.ListDeployments).Methods("GET", "OPTIONS")
	api.HandleFunc("/deployments", s.CreateDeployment).Methods("POST", "OPTIONS")
	api.HandleFunc("/deployments/{name}", s.GetDeployment).Methods("GET", "OPTIONS")
	api.HandleFunc("/deployments/{name}", s.DeleteDeployment).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/deployments/{name}", s.UpdateDeployment).Methods("PUT", "OPTIONS")
	api.HandleFunc("/deployments/{name}/state", s.GetDeploymentState).Methods("GET", "OPTIONS")
	api.HandleFunc("/deployments/{name}/yaml", s.GetDeploymentYAML).Methods("GET", "OPTIONS")

	api.HandleFunc("/metrics/prometheus/hosts", s.metricsHandler("hosts")).Methods("GET")
	api.HandleFunc("/metrics/prometheus/libvirt", s.metricsHandler("libvirt")).Methods("GET")
	api.HandleFunc("/metrics/prometheus/android", s.metricsHandler("android")).Methods("GET")
	api.HandleFunc("/metrics/prometheus/docker", s.metricsHandler("docker")).Methods("GET")

	api.HandleFunc("/orchestration", s.ServeOrchestration).Methods("GET")

	if f_allowCORS {
		log.Info("CORS is enabled on HTTP API endpoints")
		api.Use(AllowCORS)
	}

	api.Use(LogRequests)

	return router
}

// ClientOnly builds the reduced router a client node runs: just the status
// probe the master's liveness cron polls, and this node's own config.
func (s *Server) ClientOnly() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/config/host", s.GetHostConfig).Methods("GET", "OPTIONS")
	api.HandleFunc("/config/host", s.PutHostConfig).Methods("POST", "OPTIONS")
	api.HandleFunc("/config/status", s.Status).Methods("GET", "OPTIONS")
	api.HandleFunc("/orchestration", s.ServeOrchestration).Methods("GET")

	if f_allowCORS {
		api.Use(AllowCORS)
	}
	api.Use(LogRequests)

	return router
}

// Start runs the given router as the HTTP server on the configured
// endpoint, blocking until it exits.
func Start(router *mux.Router) error {
	log.Info("starting HTTP server on %s", f_endpoint)
	return errors.Wrap(http.ListenAndServe(f_endpoint, router), "running HTTP server")
}
