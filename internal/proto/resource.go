package proto

// ResourceKind names what a Resource in a batch instruction refers to.
type ResourceKind string

const (
	ResourceGuest     ResourceKind = "guest"
	ResourceSwitch    ResourceKind = "switch"
	ResourceSwitchPort ResourceKind = "switch_port"
	ResourceRouter    ResourceKind = "router"
	ResourceRouterPort ResourceKind = "router_port"
	ResourceOvsPort   ResourceKind = "ovs_port"
	ResourceRoute     ResourceKind = "route"
	ResourceExternalGateway ResourceKind = "external_gateway"
	ResourceNat       ResourceKind = "nat"
	ResourceDhcp      ResourceKind = "dhcp"
	ResourceAcl       ResourceKind = "acl"
)

// Resource is one item of a batch instruction: a name scoped by kind, plus
// whatever extra fields that kind's executor needs to act on it. Most
// instructions only need Name (the guest or OVN entity name); the few
// that need more carry it in Extra as string key/value pairs so this
// type stays flat instead of growing one optional field per kind.
type Resource struct {
	Kind  ResourceKind `json:"kind"`
	Name  string       `json:"name"`
	Extra map[string]string `json:"extra,omitempty"`
}

// NewGuestResource builds the common case: a batch item targeting one
// named guest (Deploy, Destroy, SetupImage, PushArtefacts, ...).
func NewGuestResource(name string) Resource {
	return Resource{Kind: ResourceGuest, Name: name}
}
