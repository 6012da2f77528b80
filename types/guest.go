package types

import (
	"fmt"
	"sort"
)

// StateTestbedGuest is one provisioned guest inside a deployment's State.
// GuestID is assigned monotonically by the planner's guest-parsing stage.
type StateTestbedGuest struct {
	Name            string      `json:"name"`
	MachineDef      MachineDef  `json:"machine_def"`
	TestbedHost     string      `json:"testbed_host"`
	IsGoldenImage   bool        `json:"is_golden_image"`
	GuestID         uint32      `json:"guest_id"`
	ReferenceImage  string      `json:"reference_image,omitempty"`

	// Interfaces names the logical switch, in declared order, each of this
	// guest's interfaces attaches to. Index i's logical switch port is
	// LogicalSwitchPortName(project, Interfaces[i], Name, i).
	Interfaces []string `json:"interfaces,omitempty"`

	// Gateways holds the declared gateway for each entry in Interfaces, or
	// "" if that interface declared none.
	Gateways []string `json:"gateways,omitempty"`
}

// MachineDef is the closed sum of guest backends carried in persisted state,
// mirroring GuestType but with the clone/scaling bookkeeping the planner
// fills in.
type MachineDef struct {
	Libvirt *LibvirtGuest `json:"libvirt,omitempty"`
	Docker  *DockerGuest  `json:"docker,omitempty"`
	Android *AndroidGuest `json:"android,omitempty"`
}

// Kind reports which backend this MachineDef holds.
func (m MachineDef) Kind() string {
	switch {
	case m.Libvirt != nil:
		return "libvirt"
	case m.Docker != nil:
		return "docker"
	case m.Android != nil:
		return "android"
	default:
		return ""
	}
}

type LibvirtGuest struct {
	CloudImage   *CloudImageGuest   `json:"cloud_image,omitempty"`
	ExistingDisk *ExistingDiskGuest `json:"existing_disk,omitempty"`
	IsoGuest     *IsoGuest          `json:"iso_guest,omitempty"`

	IsCloneOf  string         `json:"is_clone_of,omitempty"`
	Scaling    *ScalingConfig `json:"scaling,omitempty"`
	Username   string         `json:"username,omitempty"`
	Hostname   string         `json:"hostname"`
	SSHAddress string         `json:"ssh_address"`
	TCPTTYPort *int           `json:"tcp_tty_port,omitempty"`

	MemoryMB int `json:"memory_mb"`
	CPUs     int `json:"cpus"`

	// Specialisation fields, filled in per environment.
	DiskPath      string `json:"disk_path,omitempty"`
	DomainXMLPath string `json:"domain_xml_path,omitempty"`
	CloudInitISO  string `json:"cloud_init_iso,omitempty"`

	// BackingDiskPath is the golden image's own (already-specialised)
	// DiskPath, copied here when IsCloneOf != "" so the clone's
	// setup/push/rebase steps never need to re-resolve the parent guest by
	// name.
	BackingDiskPath string `json:"backing_disk_path,omitempty"`
}

type DockerGuest struct {
	Image       string            `json:"image"`
	Command     string            `json:"command,omitempty"`
	Entrypoint  string            `json:"entrypoint,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	EnvFile     string            `json:"env_file,omitempty"`
	Volumes     []string          `json:"volumes,omitempty"`
	Privileged  bool              `json:"privileged"`
	User        string            `json:"user,omitempty"`
	Device      string            `json:"device,omitempty"`
	Hostname    string            `json:"hostname"`
	StaticIP    string            `json:"static_ip,omitempty"`
	Scaling     *ScalingConfig    `json:"scaling,omitempty"`
}

type AndroidGuest struct {
	AvdType  AVDOptions     `json:"avd_type"`
	Scaling  *ScalingConfig `json:"scaling,omitempty"`
	StaticIP string         `json:"static_ip,omitempty"`
}

// IsClone reports whether this guest is a clone of a scaling-group parent.
func (g *StateTestbedGuest) IsClone() bool {
	return g.MachineDef.Libvirt != nil && g.MachineDef.Libvirt.IsCloneOf != ""
}

// ValidateGoldenImageInvariant checks that is_golden_image is set if and
// only if the guest carries a scaling config: a golden image is the
// unexpanded template a scaling group clones from, so the two must agree.
func (g *StateTestbedGuest) ValidateGoldenImageInvariant() error {
	var scaling *ScalingConfig
	switch {
	case g.MachineDef.Libvirt != nil:
		scaling = g.MachineDef.Libvirt.Scaling
	case g.MachineDef.Docker != nil:
		scaling = g.MachineDef.Docker.Scaling
	case g.MachineDef.Android != nil:
		scaling = g.MachineDef.Android.Scaling
	}

	if g.IsGoldenImage != (scaling != nil) {
		return fmt.Errorf("guest %s: is_golden_image=%v but scaling set=%v", g.Name, g.IsGoldenImage, scaling != nil)
	}
	return nil
}

// InterfaceName renders the truncated OVS/libvirt interface name:
// "vm-" + project truncated to 7 chars + guest_id + 1-digit interface index.
// The result must fit in the kernel's 15-character interface name limit.
func InterfaceName(project string, guestID uint32, ifaceIdx int) (string, error) {
	if ifaceIdx < 0 || ifaceIdx > 9 {
		return "", fmt.Errorf("interface index %d out of single-digit range", ifaceIdx)
	}
	if len(project) > 7 {
		project = project[:7]
	}
	name := fmt.Sprintf("vm-%s%d%d", project, guestID, ifaceIdx)
	if len(name) > 15 {
		return "", fmt.Errorf("interface name %q exceeds 15 characters", name)
	}
	return name, nil
}

// LogicalSwitchPortName renders the OVN logical switch port name the
// planner's network-derivation stage assigns to one of a guest's declared
// interfaces. Unlike InterfaceName this is a database key, not a kernel
// device name, so it carries no length limit.
func LogicalSwitchPortName(project, switchName, guest string, ifaceIdx int) string {
	return fmt.Sprintf("%s-%s-%s-%d", project, switchName, guest, ifaceIdx)
}

// StateTestbedGuests is a sortable, paginable listing of guests, adapted
// from the teacher's VM-listing collection for the deployment inspection
// API (GET /api/deployments/{name}/guests).
type StateTestbedGuests []StateTestbedGuest

func (g StateTestbedGuests) Len() int      { return len(g) }
func (g StateTestbedGuests) Swap(i, j int) { g[i], g[j] = g[j], g[i] }

type SortByGuestName struct{ StateTestbedGuests }

func (s SortByGuestName) Less(i, j int) bool { return s.StateTestbedGuests[i].Name < s.StateTestbedGuests[j].Name }

type SortByGuestHost struct{ StateTestbedGuests }

func (s SortByGuestHost) Less(i, j int) bool {
	return s.StateTestbedGuests[i].TestbedHost < s.StateTestbedGuests[j].TestbedHost
}

type SortByGuestID struct{ StateTestbedGuests }

func (s SortByGuestID) Less(i, j int) bool {
	return s.StateTestbedGuests[i].GuestID < s.StateTestbedGuests[j].GuestID
}

// SortBy dispatches to one of the named sorts, mirroring the teacher's
// VMs.SortBy(col, asc) helper used by the web listing endpoints.
func (g StateTestbedGuests) SortBy(col string, asc bool) StateTestbedGuests {
	switch col {
	case "host":
		sort.Sort(SortByGuestHost{g})
	case "id":
		sort.Sort(SortByGuestID{g})
	default:
		sort.Sort(SortByGuestName{g})
	}

	if !asc {
		for i, j := 0, len(g)-1; i < j; i, j = i+1, j-1 {
			g[i], g[j] = g[j], g[i]
		}
	}

	return g
}

// Paginate returns the page-th slice (0-indexed) of size guests.
func (g StateTestbedGuests) Paginate(page, size int) StateTestbedGuests {
	if size <= 0 {
		return g
	}

	start := page * size
	if start >= len(g) {
		return StateTestbedGuests{}
	}

	end := start + size
	if end > len(g) {
		end = len(g)
	}

	return g[start:end]
}
