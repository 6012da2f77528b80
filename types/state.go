package types

import (
	"time"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/ovn"
)

// StateProvisioning tracks whether guest provisioning has already run for a
// deployment, consulted by the stage driver's "if unprovisioned or force"
// branches.
type StateProvisioning struct {
	GuestsProvisioned bool `json:"guests_provisioned"`
}

// State is the full persisted state of one deployment, written
// atomically next to the project on every successful `up` plan and read on
// every subsequent command.
type State struct {
	ProjectName         string                       `json:"project_name"`
	CreationDate        time.Time                    `json:"creation_date"`
	ProjectWorkingDir   string                        `json:"project_working_dir"`
	TestbedHosts        map[string]TestbedHost        `json:"testbed_hosts"`
	TestbedGuests       []StateTestbedGuest           `json:"testbed_guests"`
	GuestSharedConfig   TestbedGuestSharedConfig      `json:"testbed_guest_shared_config"`
	Network             ovn.Network                   `json:"network"`
	StateProvisioning   StateProvisioning              `json:"state_provisioning"`
}

// TestbedGuestSharedConfig carries settings applied across every guest in
// the deployment (shared setup script location, default credentials),
// resolved once at plan time rather than duplicated per guest.
type TestbedGuestSharedConfig struct {
	SharedSetupScript string `json:"shared_setup_script,omitempty"`
	DefaultUsername   string `json:"default_username,omitempty"`

	// SSHPublicKey is the cluster's public key content, carried here so
	// cloud-init user-data can authorize it without the stage executor
	// needing to read anything off the master's filesystem.
	SSHPublicKey string `json:"ssh_public_key,omitempty"`
}

// MasterHost returns the name and record of the cluster's master host.
func (s *State) MasterHost() (string, *TestbedHost, error) {
	for name, h := range s.TestbedHosts {
		if h.IsMasterHost {
			host := h
			return name, &host, nil
		}
	}
	return "", nil, ErrHostNotFound
}

// GuestByName looks up a provisioned guest by name.
func (s *State) GuestByName(name string) (*StateTestbedGuest, error) {
	for i := range s.TestbedGuests {
		if s.TestbedGuests[i].Name == name {
			return &s.TestbedGuests[i], nil
		}
	}
	return nil, ErrHostNotFound
}

// NonGoldenGuests returns every guest that is not itself an unexpanded
// golden image (clones and non-scaling guests), the set most instructions
// operate over.
func (s *State) NonGoldenGuests() []StateTestbedGuest {
	var out []StateTestbedGuest
	for _, g := range s.TestbedGuests {
		if !g.IsGoldenImage {
			out = append(out, g)
		}
	}
	return out
}

// GoldenImageGuests returns every golden-image guest.
func (s *State) GoldenImageGuests() []StateTestbedGuest {
	var out []StateTestbedGuest
	for _, g := range s.TestbedGuests {
		if g.IsGoldenImage {
			out = append(out, g)
		}
	}
	return out
}

// CloneGuestsOnRemote returns clone guests assigned to any non-master host,
// the population PushBackingImages/RebaseRemoteBackingImages act on.
func (s *State) CloneGuestsOnRemote() []StateTestbedGuest {
	var out []StateTestbedGuest
	for _, g := range s.TestbedGuests {
		if !g.IsClone() {
			continue
		}
		if host, ok := s.TestbedHosts[g.TestbedHost]; ok && !host.IsMasterHost {
			out = append(out, g)
		}
	}
	return out
}
