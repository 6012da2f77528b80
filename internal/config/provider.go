// Package config persists the three small JSON documents a testbed host
// keeps on local disk: which mode it was started in, its own host entry,
// and (master only) the cluster membership table.
package config

import (
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// Mode is how this process was started.
type Mode string

const (
	ModeMaster Mode = "master"
	ModeClient Mode = "client"
)

// Provider is the storage seam between the rest of the daemon and wherever
// host.json/cluster.json/mode.json actually live. FileProvider is the only
// implementation; the interface exists so internal/web and internal/cluster
// can be exercised against an in-memory fake in tests.
type Provider interface {
	GetMode() (Mode, error)
	SetMode(Mode) error

	GetHostConfig() (*types.ClusterHostConfig, error)
	SetHostConfig(*types.ClusterHostConfig) error

	GetClusterConfig() (*types.TestbedClusterConfig, error)
	SetClusterConfig(*types.TestbedClusterConfig) error
}
