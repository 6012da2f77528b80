// Package types holds the data model shared across the planner, the
// orchestration protocol, and the deployment store: the declarative YAML
// input, the persisted State, and the Deployment record.
package types

// Config is the root of a kvm-compose.yaml testbed description.
type Config struct {
	Machines []Machine     `yaml:"machines" json:"machines"`
	Network  ConfigNetwork `yaml:"network" json:"network"`
}

// Machine is one declared guest in the YAML. GuestType is a closed sum of
// the three supported backends.
type Machine struct {
	Name      string            `yaml:"name" json:"name"`
	Network   []MachineNetwork  `yaml:"network,omitempty" json:"network,omitempty"`
	GuestType GuestType         `yaml:"guest_type" json:"guest_type"`
}

// MachineNetwork is one declared interface for a Machine, pointing at a
// logical switch by name.
type MachineNetwork struct {
	Switch      string  `yaml:"switch" json:"switch"`
	Gateway     *string `yaml:"gateway,omitempty" json:"gateway,omitempty"`
	Mac         string  `yaml:"mac" json:"mac"`
	IP          string  `yaml:"ip" json:"ip"` // literal, CIDR, or "dynamic"
	NetworkName *string `yaml:"network_name,omitempty" json:"network_name,omitempty"`
}

// GuestType is the closed sum of supported backends. Exactly one of the
// three pointer fields is set; adding a fourth backend means adding a field
// here plus an adapter in internal/guest, never an open-ended dispatch.
type GuestType struct {
	Libvirt *LibvirtMachine `yaml:"libvirt,omitempty" json:"libvirt,omitempty"`
	Docker  *DockerMachine  `yaml:"docker,omitempty" json:"docker,omitempty"`
	Android *AndroidMachine `yaml:"android,omitempty" json:"android,omitempty"`
}

// Kind reports which backend this GuestType holds, or "" if none is set.
func (g GuestType) Kind() string {
	switch {
	case g.Libvirt != nil:
		return "libvirt"
	case g.Docker != nil:
		return "docker"
	case g.Android != nil:
		return "android"
	default:
		return ""
	}
}

type LibvirtMachine struct {
	MemoryMB int    `yaml:"memory_mb" json:"memory_mb"`
	CPUs     int    `yaml:"cpus" json:"cpus"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	Hostname string `yaml:"hostname" json:"hostname"`

	SSHAddress  string `yaml:"ssh_address,omitempty" json:"ssh_address,omitempty"`
	TCPTTYPort  *int   `yaml:"tcp_tty_port,omitempty" json:"tcp_tty_port,omitempty"`
	IsCloneOf   *string `yaml:"is_clone_of,omitempty" json:"is_clone_of,omitempty"`

	Scaling *ScalingConfig `yaml:"scaling,omitempty" json:"scaling,omitempty"`

	CloudImage   *CloudImageGuest   `yaml:"cloud_image,omitempty" json:"cloud_image,omitempty"`
	ExistingDisk *ExistingDiskGuest `yaml:"existing_disk,omitempty" json:"existing_disk,omitempty"`
	IsoGuest     *IsoGuest          `yaml:"iso_guest,omitempty" json:"iso_guest,omitempty"`
}

type CloudImageGuest struct {
	ImageRef         string            `yaml:"image_ref" json:"image_ref"`
	ExpandGigabytes  *int              `yaml:"expand_gigabytes,omitempty" json:"expand_gigabytes,omitempty"`
	SetupScript      string            `yaml:"setup_script,omitempty" json:"setup_script,omitempty"`
	RunScript        string            `yaml:"run_script,omitempty" json:"run_script,omitempty"`
	Context          string            `yaml:"context,omitempty" json:"context,omitempty"`
	Environment      map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
}

type ExistingDiskGuest struct {
	Path           string `yaml:"path" json:"path"`
	DriverType     string `yaml:"driver_type" json:"driver_type"`
	DeviceType     string `yaml:"device_type" json:"device_type"`
	Readonly       bool   `yaml:"readonly" json:"readonly"`
	CreateDeepCopy bool   `yaml:"create_deep_copy" json:"create_deep_copy"`
}

type IsoGuest struct {
	Path            string `yaml:"path" json:"path"`
	ExpandGigabytes *int   `yaml:"expand_gigabytes,omitempty" json:"expand_gigabytes,omitempty"`
}

type DockerMachine struct {
	Image       string            `yaml:"image" json:"image"`
	Command     *string           `yaml:"command,omitempty" json:"command,omitempty"`
	Entrypoint  *string           `yaml:"entrypoint,omitempty" json:"entrypoint,omitempty"`
	Environment map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	EnvFile     *string           `yaml:"env_file,omitempty" json:"env_file,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty" json:"volumes,omitempty"`
	Privileged  bool              `yaml:"privileged" json:"privileged"`
	User        *string           `yaml:"user,omitempty" json:"user,omitempty"`
	Device      *string           `yaml:"device,omitempty" json:"device,omitempty"`
	Hostname    string            `yaml:"hostname" json:"hostname"`
	StaticIP    *string           `yaml:"static_ip,omitempty" json:"static_ip,omitempty"`

	Scaling *ScalingConfig `yaml:"scaling,omitempty" json:"scaling,omitempty"`
}

type AndroidMachine struct {
	AvdType  AVDOptions     `yaml:"avd_type" json:"avd_type"`
	Scaling  *ScalingConfig `yaml:"scaling,omitempty" json:"scaling,omitempty"`
	StaticIP *string        `yaml:"static_ip,omitempty" json:"static_ip,omitempty"`
}

type AVDOptions struct {
	AndroidAPIVersion int  `yaml:"android_api_version" json:"android_api_version"`
	PlaystoreEnabled  bool `yaml:"playstore_enabled" json:"playstore_enabled"`
}

// ScalingConfig expands one Machine into Count clones; each clone's
// interface, IP and MAC are derived from ScalingInterface ranges.
type ScalingConfig struct {
	Count        uint32                      `yaml:"count" json:"count"`
	Interfaces   map[string]ScalingInterface `yaml:"interfaces" json:"interfaces"`
	CloneSetup   []CloneScript               `yaml:"clone_setup,omitempty" json:"clone_setup,omitempty"`
	CloneRun     []CloneScript               `yaml:"clone_run,omitempty" json:"clone_run,omitempty"`
}

type CloneScript struct {
	Clones []uint32 `yaml:"clones" json:"clones"`
	Script string   `yaml:"script" json:"script"`
}

// ScalingInterface names one interface (switch) a scaling group can land
// clones on, with its own IP and MAC ranges. Clones is the list of clone
// indices assigned to this interface; its length must equal the IP/MAC
// range length.
type ScalingInterface struct {
	Clones   []uint32           `yaml:"clones" json:"clones"`
	Gateway  *string            `yaml:"gateway,omitempty" json:"gateway,omitempty"`
	IPRange  *ScalingIPRange    `yaml:"ip_range,omitempty" json:"ip_range,omitempty"`
	Dynamic  bool               `yaml:"dynamic,omitempty" json:"dynamic,omitempty"`
	MacRange ScalingMacRange    `yaml:"mac_range" json:"mac_range"`
}

type ScalingIPRange struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

type ScalingMacRange struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// ConfigNetwork is the YAML `network:` section: the OVN/OVS topology as
// declared by the operator, walked by the planner to build the OVN graph.
type ConfigNetwork struct {
	Switches []ConfigSwitch `yaml:"switches,omitempty" json:"switches,omitempty"`
	Routers  []ConfigRouter `yaml:"routers,omitempty" json:"routers,omitempty"`
	ACL      []ConfigACL    `yaml:"acl,omitempty" json:"acl,omitempty"`
}

type ConfigSwitch struct {
	Name       string  `yaml:"name" json:"name"`
	Subnet     string  `yaml:"subnet" json:"subnet"` // CIDR, e.g. 10.0.0.0/24
	DhcpRouter *string `yaml:"dhcp_router,omitempty" json:"dhcp_router,omitempty"`
	ExcludeIPs *string `yaml:"exclude_ips,omitempty" json:"exclude_ips,omitempty"`
}

type ConfigRouter struct {
	Name             string             `yaml:"name" json:"name"`
	Ports            []ConfigRouterPort `yaml:"ports,omitempty" json:"ports,omitempty"`
	ExternalGateway  *ConfigExtGateway  `yaml:"external_gateway,omitempty" json:"external_gateway,omitempty"`
	Routes           []ConfigRoute      `yaml:"routes,omitempty" json:"routes,omitempty"`
	NAT              []ConfigNat        `yaml:"nat,omitempty" json:"nat,omitempty"`
}

type ConfigRouterPort struct {
	Switch string `yaml:"switch" json:"switch"`
	IP     string `yaml:"ip" json:"ip"`
	Mask   uint16 `yaml:"mask" json:"mask"`
	Mac    string `yaml:"mac" json:"mac"`
}

type ConfigExtGateway struct {
	Chassis string `yaml:"chassis" json:"chassis"`
}

type ConfigRoute struct {
	Prefix  string `yaml:"prefix" json:"prefix"`
	NextHop string `yaml:"next_hop" json:"next_hop"`
}

type ConfigNat struct {
	Type       string `yaml:"type" json:"type"` // "dnat_and_snat" | "snat"
	ExternalIP string `yaml:"external_ip" json:"external_ip"`
	LogicalIP  string `yaml:"logical_ip" json:"logical_ip"`
}

type ConfigACL struct {
	Name      string `yaml:"name" json:"name"`
	Switch    string `yaml:"switch" json:"switch"`
	Direction string `yaml:"direction" json:"direction"` // "to-lport" | "from-lport"
	Priority  int    `yaml:"priority" json:"priority"`
	Match     string `yaml:"match" json:"match"`
	Action    string `yaml:"action" json:"action"` // "allow" | "allow-related" | "drop" | "reject"
}
