package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/cluster"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/store"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

func testServer(t *testing.T) (*Server, store.Store) {
	t.Helper()

	f, err := os.CreateTemp("/tmp", "testbedos-web")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })

	db := store.NewBoltDB()
	if err := db.Init(store.Path(f.Name())); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	clusterCfg := &types.TestbedClusterConfig{
		Hosts: map[string]types.ClusterHostConfig{
			"host01": {Name: "host01", IsMasterHost: true, IP: "10.0.0.1"},
		},
	}

	return &Server{
		Store:   db,
		Cluster: cluster.NewManager(clusterCfg),
	}, db
}

const minimalYAML = `
machines:
  - name: web01
    guest_type:
      docker:
        image: nginx
network:
  switches: []
`

func TestCreateDeploymentThenGet(t *testing.T) {
	s, _ := testServer(t)
	router := s.Router()

	req := httptest.NewRequest("POST", "/api/deployments?name=demo&project_location=/tmp/demo", strings.NewReader(minimalYAML))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/deployments/demo", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	if !strings.Contains(rr.Body.String(), `"demo"`) {
		t.Fatalf("expected deployment name in response, got %s", rr.Body.String())
	}
}

func TestCreateDeploymentConflict(t *testing.T) {
	s, db := testServer(t)
	router := s.Router()

	if err := db.PutDeployment(&types.Deployment{Name: "demo", State: types.StateDown}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/api/deployments?name=demo&project_location=/tmp/demo", strings.NewReader(minimalYAML))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestDeleteDeploymentRequiresDownOrFailed(t *testing.T) {
	s, db := testServer(t)
	router := s.Router()

	if err := db.PutDeployment(&types.Deployment{Name: "demo", State: types.StateUp}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("DELETE", "/api/deployments/demo", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 while up, got %d", rr.Code)
	}

	d, _ := db.GetDeployment("demo")
	d.State = types.StateDown
	db.PutDeployment(d)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 once down, got %d", rr.Code)
	}
}

func TestGetDeploymentYAMLUsesSnakeCaseKeys(t *testing.T) {
	s, _ := testServer(t)
	router := s.Router()

	req := httptest.NewRequest("POST", "/api/deployments?name=demo&project_location=/tmp/demo", strings.NewReader(minimalYAML))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("setup failed: %d: %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/deployments/demo/yaml", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	if !strings.Contains(rr.Body.String(), "project_name") {
		t.Fatalf("expected snake_case project_name key, got:\n%s", rr.Body.String())
	}
}

func TestIsMember(t *testing.T) {
	s, _ := testServer(t)
	router := s.Router()

	req := httptest.NewRequest("GET", "/api/cluster/host01", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for known member, got %d", rr.Code)
	}

	req = httptest.NewRequest("GET", "/api/cluster/nope", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown member, got %d", rr.Code)
	}
}

func TestStatusIsAlwaysOK(t *testing.T) {
	s, _ := testServer(t)
	router := s.Router()

	req := httptest.NewRequest("GET", "/api/config/status", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
