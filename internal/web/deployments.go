package web

import (
	"encoding/json"
	"io/ioutil"
	"net/http"

	log "github.com/activeshadow/libminimega/minilog"
	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/planner"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// GET /api/deployments
func (s *Server) ListDeployments(w http.ResponseWriter, r *http.Request) {
	deployments, err := s.Store.ListDeployments()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, deployments)
}

// POST /api/deployments: body is a kvm-compose.yaml document plus the
// project location it was uploaded from. The planner expands it against the
// current cluster config into a State, which is persisted alongside a new
// Deployment record in StateDown; the orchestration WebSocket drives it to
// Up on a subsequent `up` command.
func (s *Server) CreateDeployment(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	name := query.Get("name")
	project := query.Get("project_location")

	if name == "" || project == "" {
		http.Error(w, "name and project_location query parameters are required", http.StatusBadRequest)
		return
	}

	if _, err := s.Store.GetDeployment(name); err == nil {
		http.Error(w, "deployment already exists", http.StatusConflict)
		return
	}

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var cfg types.Config
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		http.Error(w, "invalid kvm-compose.yaml: "+err.Error(), http.StatusBadRequest)
		return
	}

	cluster := s.Cluster.Config()

	state, err := planner.Plan(cfg, cluster, project, project)
	if err != nil {
		log.Error("planning deployment %s: %v", name, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Store.PutState(name, state); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	deployment := &types.Deployment{
		Name:            name,
		ProjectLocation: project,
		State:           types.StateDown,
	}

	if err := s.Store.PutDeployment(deployment); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, deployment)
}

// GET /api/deployments/{name}
func (s *Server) GetDeployment(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	deployment, err := s.Store.GetDeployment(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, deployment)
}

// DELETE /api/deployments/{name}
func (s *Server) DeleteDeployment(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	deployment, err := s.Store.GetDeployment(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if !deployment.CanDestroy() {
		http.Error(w, "deployment must be down or failed before it can be deleted", http.StatusConflict)
		return
	}

	if err := s.Store.DeleteDeployment(name); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PUT /api/deployments/{name}: re-plans an existing deployment's State
// in place (e.g. after the cluster's host set changed), leaving its
// Deployment record's State field untouched. Only valid while down.
func (s *Server) UpdateDeployment(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	deployment, err := s.Store.GetDeployment(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if deployment.State != types.StateDown {
		http.Error(w, "deployment must be down to be updated", http.StatusConflict)
		return
	}

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var cfg types.Config
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		http.Error(w, "invalid kvm-compose.yaml: "+err.Error(), http.StatusBadRequest)
		return
	}

	cluster := s.Cluster.Config()

	state, err := planner.Plan(cfg, cluster, deployment.ProjectLocation, deployment.ProjectLocation)
	if err != nil {
		log.Error("re-planning deployment %s: %v", name, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Store.PutState(name, state); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, deployment)
}

// GET /api/deployments/{name}/state
func (s *Server) GetDeploymentState(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	state, err := s.Store.GetState(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, state)
}

// GET /api/deployments/{name}/yaml renders the persisted State back out as
// YAML, the same shape the CLI's `inspect`-style commands show a user.
func (s *Server) GetDeploymentYAML(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	state, err := s.Store.GetState(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	// Round-trip through JSON first so the YAML keys follow State's json
	// tags (snake_case) rather than yaml.v3's default of lowercased Go
	// field names.
	asJSON, err := json.Marshal(state)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(asJSON, &generic); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	body, err := yaml.Marshal(generic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Write(body)
}
