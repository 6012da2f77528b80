package store

import "github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"

// Store persists the two records a running cluster needs to survive a
// restart: one Deployment per named project (its lifecycle state) and the
// State the last successful plan produced for it (hosts, guests, network).
// A deployment can exist in the store with no State yet (freshly created,
// not yet brought up) or with a State left over from its last Up.
type Store interface {
	Init(...Option) error
	Close() error

	ListDeployments() (types.Deployments, error)
	GetDeployment(name string) (*types.Deployment, error)
	PutDeployment(*types.Deployment) error
	DeleteDeployment(name string) error

	GetState(deployment string) (*types.State, error)
	PutState(deployment string, state *types.State) error
	DeleteState(deployment string) error
}
