package planner

import (
	"fmt"
	"net"
	"strings"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/ovn"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// DeriveNetwork walks the YAML network section into an ovn.Network, then
// attaches every non-golden machine's declared interfaces as logical switch
// ports (MAC and IP taken verbatim from the YAML, "dynamic" becoming an
// OVN-assigned address), applies DHCP options, then ACLs, and finally
// validates the whole graph. Order matters: DHCP needs its switch/router
// already present, and ACLs reject references to undeclared switches.
// guestHosts maps each non-golden machine's name to its assigned testbed
// host, filled in by the load-balancing stage that runs before this one.
func DeriveNetwork(cfgNet types.ConfigNetwork, machines []types.Machine, guestHosts map[string]string, isGolden map[string]bool, project string) (*ovn.Network, error) {
	n := ovn.NewNetwork()

	for _, sw := range cfgNet.Switches {
		subnet, err := parseCIDR(sw.Subnet)
		if err != nil {
			return nil, fmt.Errorf("switch %s: %w", sw.Name, err)
		}
		if err := n.AddSwitch(sw.Name, subnet); err != nil {
			return nil, fmt.Errorf("switch %s: %w", sw.Name, err)
		}
	}

	for _, r := range cfgNet.Routers {
		if err := n.AddRouter(r.Name); err != nil {
			return nil, fmt.Errorf("router %s: %w", r.Name, err)
		}

		for i, p := range r.Ports {
			ip := net.ParseIP(p.IP)
			if ip == nil {
				return nil, fmt.Errorf("router %s port %d: invalid ip %q", r.Name, i, p.IP)
			}
			mac, err := ovn.NewMacAddress(p.Mac)
			if err != nil {
				return nil, fmt.Errorf("router %s port %d: %w", r.Name, i, err)
			}

			lrpName := fmt.Sprintf("%s-lrp-%s", r.Name, p.Switch)
			if err := n.AddLrp(lrpName, r.Name, mac, ip, p.Mask, ""); err != nil {
				return nil, fmt.Errorf("router %s port %d: %w", r.Name, i, err)
			}

			lspName := fmt.Sprintf("%s-lsp-%s", p.Switch, r.Name)
			if err := n.AddLspRouter(lspName, p.Switch, mac, lrpName); err != nil {
				return nil, fmt.Errorf("router %s port %d: %w", r.Name, i, err)
			}
		}

		if r.ExternalGateway != nil {
			for _, p := range r.Ports {
				lrpName := fmt.Sprintf("%s-lrp-%s", r.Name, p.Switch)
				if err := n.LrpAddExternalGateway(r.Name, lrpName, r.ExternalGateway.Chassis); err != nil {
					return nil, fmt.Errorf("router %s external gateway: %w", r.Name, err)
				}
			}
		}

		for i, rt := range r.Routes {
			prefix, err := parseCIDR(rt.Prefix)
			if err != nil {
				return nil, fmt.Errorf("router %s route %d: %w", r.Name, i, err)
			}
			nextHop := net.ParseIP(rt.NextHop)
			if nextHop == nil {
				return nil, fmt.Errorf("router %s route %d: invalid next_hop %q", r.Name, i, rt.NextHop)
			}
			if err := n.LrRouteAdd(r.Name, prefix, nextHop); err != nil {
				return nil, fmt.Errorf("router %s route %d: %w", r.Name, i, err)
			}
		}

		for i, nat := range r.NAT {
			natType, err := parseNatType(nat.Type)
			if err != nil {
				return nil, fmt.Errorf("router %s nat %d: %w", r.Name, i, err)
			}
			extIP, err := parseCIDROrIP(nat.ExternalIP)
			if err != nil {
				return nil, fmt.Errorf("router %s nat %d: %w", r.Name, i, err)
			}
			logicalIP, err := parseCIDROrIP(nat.LogicalIP)
			if err != nil {
				return nil, fmt.Errorf("router %s nat %d: %w", r.Name, i, err)
			}
			if err := n.LrAddNat(r.Name, natType, extIP, logicalIP); err != nil {
				return nil, fmt.Errorf("router %s nat %d: %w", r.Name, i, err)
			}
		}
	}

	for _, m := range machines {
		if isGolden[m.Name] {
			continue
		}
		host := guestHosts[m.Name]

		for idx, iface := range m.Network {
			mac, err := ovn.NewMacAddress(iface.Mac)
			if err != nil {
				return nil, fmt.Errorf("guest %s interface %d: %w", m.Name, idx, err)
			}

			ip, err := parseGuestIP(iface.IP)
			if err != nil {
				return nil, fmt.Errorf("guest %s interface %d: %w", m.Name, idx, err)
			}

			lspName := types.LogicalSwitchPortName(project, iface.Switch, m.Name, idx)
			if err := n.AddLspInternal(lspName, iface.Switch, ip, host, mac, ""); err != nil {
				return nil, fmt.Errorf("guest %s interface %d: %w", m.Name, idx, err)
			}
		}
	}

	for _, sw := range cfgNet.Switches {
		if sw.DhcpRouter == nil {
			continue
		}
		excludeIPs := ""
		if sw.ExcludeIPs != nil {
			excludeIPs = *sw.ExcludeIPs
		}
		if err := n.AddDhcpOption(*sw.DhcpRouter, sw.Name, excludeIPs); err != nil {
			return nil, fmt.Errorf("switch %s dhcp: %w", sw.Name, err)
		}
	}

	for i, acl := range cfgNet.ACL {
		if _, ok := n.Switches[acl.Switch]; !ok {
			return nil, fmt.Errorf("acl %d (%s): references undeclared switch %s", i, acl.Name, acl.Switch)
		}
		if err := n.AddSwitchAcl(acl.Name, acl.Switch, ovn.ACLOnSwitch, acl.Direction, acl.Priority, acl.Match, acl.Action); err != nil {
			return nil, fmt.Errorf("acl %d (%s): %w", i, acl.Name, err)
		}
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// parseGuestIP accepts a literal IP, a CIDR, or the literal string
// "dynamic" for an OVN-assigned address.
func parseGuestIP(s string) (ovn.IPAddr, error) {
	if s == "dynamic" {
		return ovn.DynamicIP(), nil
	}
	return parseCIDROrIP(s)
}

func parseCIDR(cidr string) (ovn.IPAddr, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return ovn.IPAddr{}, fmt.Errorf("invalid cidr %q: %w", cidr, err)
	}
	ones, _ := ipnet.Mask.Size()
	return ovn.SubnetIP(ip, uint16(ones)), nil
}

func parseCIDROrIP(s string) (ovn.IPAddr, error) {
	if strings.Contains(s, "/") {
		return parseCIDR(s)
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ovn.IPAddr{}, fmt.Errorf("invalid ip %q", s)
	}
	return ovn.FixedIP(ip), nil
}

func parseNatType(s string) (ovn.NatType, error) {
	switch s {
	case "dnat_and_snat":
		return ovn.NatDnatAndSnat, nil
	case "snat":
		return ovn.NatSnat, nil
	default:
		return 0, fmt.Errorf("unknown nat type %q", s)
	}
}
