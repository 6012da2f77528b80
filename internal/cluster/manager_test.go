package cluster

import (
	"testing"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

func TestJoinForcesNonMaster(t *testing.T) {
	m := NewManager(&types.TestbedClusterConfig{})

	if err := m.Join(types.ClusterHostConfig{Name: "client1", IsMasterHost: true}); err != nil {
		t.Fatal(err)
	}

	cfg := m.Config()
	if cfg.Hosts["client1"].IsMasterHost {
		t.Fatal("expected Join to force IsMasterHost false")
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	m := NewManager(&types.TestbedClusterConfig{})

	m.Join(types.ClusterHostConfig{Name: "client1", IP: "10.0.0.2"})
	m.Join(types.ClusterHostConfig{Name: "client1", IP: "10.0.0.3"})

	cfg := m.Config()
	if len(cfg.Hosts) != 1 {
		t.Fatalf("expected 1 host after rejoin, got %d", len(cfg.Hosts))
	}
	if cfg.Hosts["client1"].IP != "10.0.0.3" {
		t.Fatalf("expected rejoin to overwrite entry, got IP %s", cfg.Hosts["client1"].IP)
	}
}

func TestEvictRemovesMember(t *testing.T) {
	m := NewManager(&types.TestbedClusterConfig{})
	m.Join(types.ClusterHostConfig{Name: "client1"})

	if !m.IsMember("client1") {
		t.Fatal("expected client1 to be a member after join")
	}

	if err := m.Evict("client1"); err != nil {
		t.Fatal(err)
	}

	if m.IsMember("client1") {
		t.Fatal("expected client1 to no longer be a member after evict")
	}
}

func TestNonMasterHostsExcludesMaster(t *testing.T) {
	m := NewManager(&types.TestbedClusterConfig{Hosts: map[string]types.ClusterHostConfig{
		"master":  {Name: "master", IsMasterHost: true},
		"client1": {Name: "client1"},
	}})

	hosts := m.NonMasterHosts()
	if len(hosts) != 1 || hosts[0].Name != "client1" {
		t.Fatalf("expected only client1, got %+v", hosts)
	}
}

func TestPersistCalledOnMutation(t *testing.T) {
	var saved *types.TestbedClusterConfig

	m := NewManager(&types.TestbedClusterConfig{})
	m.Persist = func(cfg *types.TestbedClusterConfig) error {
		saved = cfg
		return nil
	}

	m.Join(types.ClusterHostConfig{Name: "client1"})

	if saved == nil {
		t.Fatal("expected Persist to be called")
	}
	if _, ok := saved.Hosts["client1"]; !ok {
		t.Fatal("expected persisted config to include client1")
	}
}
