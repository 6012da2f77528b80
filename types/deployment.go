package types

import "fmt"

// DeploymentState is the lifecycle state of a Deployment.
type DeploymentState string

const (
	StateDown    DeploymentState = "down"
	StateUp      DeploymentState = "up"
	StateRunning DeploymentState = "running"
	StateFailed  DeploymentState = "failed"
)

// Deployment is the top-level record the store keeps one of per name.
// FailedCommand is set only when State == StateFailed; it names the
// instruction that was in flight when the driver aborted.
type Deployment struct {
	Name            string          `json:"name"`
	ProjectLocation string          `json:"project_location"`
	State           DeploymentState `json:"state"`
	FailedCommand   string          `json:"failed_command,omitempty"`
	LastActionUUID  string          `json:"last_action_uuid,omitempty"`
}

// CanDestroy reports whether the deployment may be deleted from the store.
func (d *Deployment) CanDestroy() bool {
	return d.State == StateDown || d.State == StateFailed
}

// Fail transitions the deployment into the Failed state, recording which
// command was in flight.
func (d *Deployment) Fail(command string) {
	d.State = StateFailed
	d.FailedCommand = command
}

// Deployments is a listable collection of Deployment, following the
// teacher's VMs/Hosts collection-with-sort pattern.
type Deployments []Deployment

func (d Deployments) Len() int      { return len(d) }
func (d Deployments) Swap(i, j int) { d[i], d[j] = d[j], d[i] }

// SortByName sorts deployments alphabetically by name.
type SortByName struct{ Deployments }

func (s SortByName) Less(i, j int) bool { return s.Deployments[i].Name < s.Deployments[j].Name }

// SortByState groups deployments by lifecycle state, then by name.
type SortByState struct{ Deployments }

func (s SortByState) Less(i, j int) bool {
	if s.Deployments[i].State == s.Deployments[j].State {
		return s.Deployments[i].Name < s.Deployments[j].Name
	}
	return s.Deployments[i].State < s.Deployments[j].State
}

// FindByName returns the deployment with the given name, or an error if none
// exists in the collection.
func (d Deployments) FindByName(name string) (*Deployment, error) {
	for i := range d {
		if d[i].Name == name {
			return &d[i], nil
		}
	}
	return nil, fmt.Errorf("deployment %s not found", name)
}
