package types

import (
	"errors"
	"sort"
)

// TestbedHost is one member of the deployment's cluster, keyed by host name
// in State.TestbedHosts.
type TestbedHost struct {
	Username             string `json:"username"`
	SSHPrivateKeyLocation string `json:"ssh_private_key_location"`
	IP                    string `json:"ip"`
	TestbedNIC            string `json:"testbed_nic"`
	IsMasterHost          bool   `json:"is_master_host"`
}

// ClusterHostConfig is one entry of TestbedClusterConfig.Hosts,
// tracked by the master independently of any one deployment.
type ClusterHostConfig struct {
	Name         string `json:"name"`
	Username     string `json:"username"`
	IP           string `json:"ip"`
	TestbedNIC   string `json:"testbed_nic"`
	IsMasterHost bool   `json:"is_master_host"`
	Schedulable  bool   `json:"schedulable"`

	// Ovn is this host's SDN wiring: what to set in its OVS external-ids
	// and which external bridges to create so its chassis can reach the
	// rest of the cluster.
	Ovn OvnHostConfig `json:"ovn"`

	// Commitment tracking consulted by the load balancer: how many
	// guests from deployments currently Up/Running this host already holds.
	GuestCommit int `json:"guest_commit"`
}

// BridgeMapping is one externally-reachable network a host's OVS exposes, a
// "<network>:<bridge>" entry in the ovn-bridge-mappings external-id, with
// the IP address that bridge itself is given on the host.
type BridgeMapping struct {
	Network string `json:"network"`
	Bridge  string `json:"bridge"`
	IP      string `json:"ip"`
}

// OvnHostConfig is the per-host OVN/OVS configuration exchanged at cluster
// join time: the chassis name this host registers in the OVN southbound
// database under, and the external-ids/bridges its local OVS needs so
// northbound logical networking actually reaches its guests.
type OvnHostConfig struct {
	ChassisName     string          `json:"chassis_name"`
	EncapType       string          `json:"encap_type"`
	EncapIP         string          `json:"encap_ip"`
	MasterOvnRemote string          `json:"master_ovn_remote"`
	Bridge          string          `json:"bridge"`
	BridgeMappings  []BridgeMapping `json:"bridge_mappings,omitempty"`
}

// TestbedClusterConfig is the master's view of cluster membership.
type TestbedClusterConfig struct {
	Hosts         map[string]ClusterHostConfig `json:"hosts"`
	SSHPublicKey  string                       `json:"ssh_public_key"`
	SSHPrivateKey string                       `json:"ssh_private_key"`
}

// ErrHostNotFound is returned by FindHostByName when no host matches.
var ErrHostNotFound = errors.New("host not found")

// ClusterHosts is a sortable, load-balancer-facing view over
// TestbedClusterConfig.Hosts, adapted from the teacher's VM-scheduling host
// list so the planner can pick the least-committed host deterministically.
type ClusterHosts []ClusterHostConfig

func (h ClusterHosts) Len() int      { return len(h) }
func (h ClusterHosts) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// SortByCommit orders hosts by ascending guest commitment, least-loaded
// first, breaking ties by name for determinism.
type SortByCommit struct{ ClusterHosts }

func (s SortByCommit) Less(i, j int) bool {
	a, b := s.ClusterHosts[i], s.ClusterHosts[j]
	if a.GuestCommit == b.GuestCommit {
		return a.Name < b.Name
	}
	return a.GuestCommit < b.GuestCommit
}

// FindHostByName returns the host with the given name.
func (h ClusterHosts) FindHostByName(name string) (*ClusterHostConfig, error) {
	for i := range h {
		if h[i].Name == name {
			return &h[i], nil
		}
	}
	return nil, ErrHostNotFound
}

// LeastCommitted returns the schedulable host with the lowest guest
// commitment, used by the round-robin fallback in the planner's load
// balancing stage.
func (h ClusterHosts) LeastCommitted() (*ClusterHostConfig, error) {
	var candidates ClusterHosts
	for _, host := range h {
		if host.Schedulable {
			candidates = append(candidates, host)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrHostNotFound
	}
	sort.Sort(SortByCommit{candidates})
	return &candidates[0], nil
}

// IncrGuestCommit bumps the named host's guest commitment by delta, used
// when the planner assigns (delta=1) or a deployment is torn down (delta=-1).
func (h ClusterHosts) IncrGuestCommit(name string, delta int) error {
	for i := range h {
		if h[i].Name == name {
			h[i].GuestCommit += delta
			return nil
		}
	}
	return ErrHostNotFound
}
