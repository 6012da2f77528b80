// Package ovn is a pure, data-only model of an OVN logical network: graph
// mutators that enforce referential invariants, and command renderers that
// produce the exact ovn-nbctl argument vectors for each entity. Nothing in
// this package talks to a subprocess; internal/exec runs what this package
// renders.
package ovn

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

var macPattern = regexp.MustCompile(`^([0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}$`)

// MacAddress is a validated lower-case colon-separated MAC.
type MacAddress string

func NewMacAddress(s string) (MacAddress, error) {
	if !macPattern.MatchString(s) {
		return "", fmt.Errorf("invalid mac address %q", s)
	}
	return MacAddress(strings.ToLower(s)), nil
}

func (m MacAddress) String() string { return string(m) }

// IPAddrKind distinguishes the three shapes an OVN-facing address can take.
type IPAddrKind int

const (
	IPKindFixed IPAddrKind = iota
	IPKindSubnet
	IPKindDynamic
)

// IPAddr is the sum type OvnIpAddr from the original model: a single IP, a
// CIDR subnet (used for switch subnets), or "dynamic" (OVN-assigned).
type IPAddr struct {
	Kind IPAddrKind
	IP   net.IP
	Mask uint16
}

func FixedIP(ip net.IP) IPAddr { return IPAddr{Kind: IPKindFixed, IP: ip} }

func SubnetIP(ip net.IP, mask uint16) IPAddr { return IPAddr{Kind: IPKindSubnet, IP: ip, Mask: mask} }

func DynamicIP() IPAddr { return IPAddr{Kind: IPKindDynamic} }

func (a IPAddr) String() string {
	switch a.Kind {
	case IPKindDynamic:
		return "dynamic"
	case IPKindSubnet:
		return fmt.Sprintf("%s/%d", a.IP.String(), a.Mask)
	default:
		return a.IP.String()
	}
}

// NoMask returns the bare IP string regardless of kind.
func (a IPAddr) NoMask() string {
	if a.IP == nil {
		return ""
	}
	return a.IP.String()
}

// LogicalSwitch is an OVN logical switch.
type LogicalSwitch struct {
	Name   string
	Subnet IPAddr // always IPKindSubnet
	Dhcp   *SwitchDhcpOptions
}

type SwitchDhcpOptions struct {
	ExcludeIPs string
}

// LogicalSwitchPortType is the closed sum of port variants.
type LogicalSwitchPortType int

const (
	PortInternal LogicalSwitchPortType = iota
	PortRouter
	PortLocalNet
)

// LogicalSwitchPort is one port on a LogicalSwitch. Only the fields
// relevant to PortType are meaningful; this mirrors the Rust enum's
// per-variant payload without Go sum types.
type LogicalSwitchPort struct {
	Name          string
	ParentSwitch  string
	PortType      LogicalSwitchPortType
	DhcpOptionsHash *uint64

	// Internal
	IP                  IPAddr
	ChassisName         string
	MacAddress          MacAddress
	ProviderNetworkName string

	// Router
	RouterPortName string

	// LocalNet reuses ProviderNetworkName.
}

// LogicalRouter is an OVN logical router.
type LogicalRouter struct {
	Name            string
	Routes          []Route
	ExternalGateways []ExternalGateway
	Nats            []Nat
}

type Route struct {
	RouterName string
	Prefix     IPAddr
	NextHop    net.IP
}

type ExternalGateway struct {
	RouterPortName string
	ChassisName    string
}

type NatType int

const (
	NatDnatAndSnat NatType = iota
	NatSnat
)

func (t NatType) String() string {
	if t == NatSnat {
		return "snat"
	}
	return "dnat_and_snat"
}

type Nat struct {
	RouterName string
	Type       NatType
	ExternalIP IPAddr
	LogicalIP  IPAddr
}

// LogicalRouterPort is one port on a LogicalRouter.
type LogicalRouterPort struct {
	Name         string
	ParentRouter string
	MacAddress   MacAddress
	IP           net.IP
	Mask         uint16
	ChassisName  string
}

// OvsPort is the OVS-level port backing a logical switch port.
type OvsPort struct {
	Name                string
	IntegrationBridge   string
	LogicalSwitchPort   string
	Chassis             string
}

// ACLRecordType names which entity an ACL attaches to.
type ACLRecordType int

const (
	ACLOnSwitch ACLRecordType = iota
)

// LogicalACLRecord keeps the raw rule alongside the entity it targets, so
// listing endpoints can report configured ACLs, not just a rendered command
// string (documented SUPPLEMENTED FEATURE).
type LogicalACLRecord struct {
	Name       string
	EntityName string
	Type       ACLRecordType
	Direction  string // "to-lport" | "from-lport"
	Priority   int
	Match      string
	Action     string // "allow" | "allow-related" | "drop" | "reject"
}

// DhcpDatabaseEntry is the stable, hashable DHCP rule derived from a
// router+switch pair. Field order matters to Hash: two independently
// derived entries for the same pair must hash identically.
type DhcpDatabaseEntry struct {
	Cidr      string
	LeaseTime string
	Router    string
	ServerID  string
	ServerMac MacAddress
}

// Hash returns a stable FNV-1a-style hash over the entry's fields in
// declaration order, each followed by a 0xff separator, used to stamp
// DhcpOptionsHash on every internal LSP sharing this subnet's DHCP rule.
func (d DhcpDatabaseEntry) Hash() uint64 {
	var h uint64 = fnvOffset
	for _, part := range []string{d.Cidr, d.LeaseTime, d.Router, d.ServerID, string(d.ServerMac)} {
		for i := 0; i < len(part); i++ {
			h ^= uint64(part[i])
			h *= fnvPrime
		}
		h ^= 0xff
		h *= fnvPrime
	}
	return h
}

const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

