package store

import "github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"

// DefaultStore is the package-level Store every caller uses unless a test
// substitutes its own.
var DefaultStore Store = NewBoltDB()

func Init(opts ...Option) error {
	return DefaultStore.Init(opts...)
}

func Close() error {
	return DefaultStore.Close()
}

func ListDeployments() (types.Deployments, error) {
	return DefaultStore.ListDeployments()
}

func GetDeployment(name string) (*types.Deployment, error) {
	return DefaultStore.GetDeployment(name)
}

func PutDeployment(d *types.Deployment) error {
	return DefaultStore.PutDeployment(d)
}

func DeleteDeployment(name string) error {
	return DefaultStore.DeleteDeployment(name)
}

func GetState(deployment string) (*types.State, error) {
	return DefaultStore.GetState(deployment)
}

func PutState(deployment string, state *types.State) error {
	return DefaultStore.PutState(deployment, state)
}

func DeleteState(deployment string) error {
	return DefaultStore.DeleteState(deployment)
}
