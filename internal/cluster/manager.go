// Package cluster owns the master's view of which hosts belong to the
// testbed and keeps each host's local OVN/OVS wiring in sync with that
// view: joins, evictions, and the periodic reconciliation crons that keep
// both sides honest when a process restarts or a network blip drops one.
package cluster

import (
	"context"
	"sync"

	log "github.com/activeshadow/libminimega/minilog"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/exec"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// Manager is the master's in-memory, mutex-guarded view of
// types.TestbedClusterConfig, the single writer every join/evict/probe goes
// through before the config is persisted.
type Manager struct {
	mu     sync.RWMutex
	config *types.TestbedClusterConfig

	// Persist, if set, is called with the new config after every mutation.
	// Left nil in tests that only care about in-memory behaviour.
	Persist func(*types.TestbedClusterConfig) error
}

// NewManager wraps an existing (or freshly defaulted) cluster config.
func NewManager(config *types.TestbedClusterConfig) *Manager {
	if config.Hosts == nil {
		config.Hosts = make(map[string]types.ClusterHostConfig)
	}
	return &Manager{config: config}
}

// Config returns a shallow copy of the current cluster config, safe for a
// caller to read without racing a concurrent Join/Evict.
func (m *Manager) Config() types.TestbedClusterConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hosts := make(map[string]types.ClusterHostConfig, len(m.config.Hosts))
	for k, v := range m.config.Hosts {
		hosts[k] = v
	}

	return types.TestbedClusterConfig{
		Hosts:         hosts,
		SSHPublicKey:  m.config.SSHPublicKey,
		SSHPrivateKey: m.config.SSHPrivateKey,
	}
}

// IsMember reports whether name is a known, current cluster host.
func (m *Manager) IsMember(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.config.Hosts[name]
	return ok
}

// Join inserts or overwrites host's entry, forcing IsMasterHost false since
// only the master itself ever holds that bit — a client POSTing to
// /api/cluster is by definition not the master, regardless of what it
// claims in its own local config.
func (m *Manager) Join(host types.ClusterHostConfig) error {
	host.IsMasterHost = false

	m.mu.Lock()
	_, existed := m.config.Hosts[host.Name]
	m.config.Hosts[host.Name] = host
	m.mu.Unlock()

	if existed {
		log.Info("cluster: host %s rejoined, updating its entry", host.Name)
	} else {
		log.Info("cluster: host %s joined the cluster", host.Name)
	}

	return m.persist()
}

// Evict removes name from the cluster, used both by the unresponsive-client
// probe and by an explicit admin-initiated removal.
func (m *Manager) Evict(name string) error {
	m.mu.Lock()
	_, existed := m.config.Hosts[name]
	delete(m.config.Hosts, name)
	m.mu.Unlock()

	if !existed {
		return nil
	}

	log.Warn("cluster: evicting host %s", name)
	return m.persist()
}

func (m *Manager) persist() error {
	if m.Persist == nil {
		return nil
	}
	cfg := m.Config()
	return m.Persist(&cfg)
}

// execHosts builds the map exec.Executor needs: every cluster member
// addressed by the cluster-wide keypair, since client hosts don't carry a
// per-host key the way a deployment's TestbedHost does.
func (m *Manager) execHosts(privateKeyPath string) map[string]types.TestbedHost {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hosts := make(map[string]types.TestbedHost, len(m.config.Hosts))
	for name, h := range m.config.Hosts {
		hosts[name] = types.TestbedHost{
			Username:              h.Username,
			SSHPrivateKeyLocation: privateKeyPath,
			IP:                    h.IP,
			TestbedNIC:            h.TestbedNIC,
			IsMasterHost:          h.IsMasterHost,
		}
	}
	return hosts
}

// Executor builds an exec.Executor scoped to this cluster's current
// membership, addressed with the cluster keypair at privateKeyPath.
func (m *Manager) Executor(master, privateKeyPath string) *exec.Executor {
	return exec.New(master, m.execHosts(privateKeyPath))
}

// NonMasterHosts returns every current member that is not the master,
// the population the master's liveness cron probes.
func (m *Manager) NonMasterHosts() []types.ClusterHostConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.ClusterHostConfig
	for _, h := range m.config.Hosts {
		if !h.IsMasterHost {
			out = append(out, h)
		}
	}
	return out
}

// ReconcileChassis removes any southbound OVN chassis entry that no longer
// names a current cluster member — e.g. after an eviction, or a host that
// registered a chassis but never made it into the config (or vice versa).
func (m *Manager) ReconcileChassis(ctx context.Context, ex *exec.Executor, master string) error {
	chassis, err := listChassis(ctx, ex, master)
	if err != nil {
		return err
	}

	known := make(map[string]bool)
	m.mu.RLock()
	for _, h := range m.config.Hosts {
		known[h.Ovn.ChassisName] = true
	}
	m.mu.RUnlock()

	for name := range chassis {
		if known[name] {
			continue
		}
		log.Warn("cluster: chassis %s in OVN southbound db is not a cluster member, removing", name)
		if _, err := ex.Run(ctx, master, []string{"sudo", "ovn-sbctl", "chassis-del", name}); err != nil {
			return err
		}
	}

	return nil
}
