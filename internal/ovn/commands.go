package ovn

import "fmt"

// Command is an argv vector, ready to be handed to the remote executor
// exactly as rendered — this package never executes anything.
type Command []string

func (s *LogicalSwitch) CreateCommand() Command {
	cmd := Command{"ovn-nbctl", "--may-exist", "ls-add", s.Name}
	cmd = append(cmd, "--", "set", "Logical_Switch", s.Name, fmt.Sprintf("other-config:subnet=%s", s.Subnet.String()))
	if s.Dhcp != nil {
		cmd = append(cmd, fmt.Sprintf("other-config:exclude_ips=%s", s.Dhcp.ExcludeIPs))
	}
	return cmd
}

func (s *LogicalSwitch) DestroyCommand() Command {
	return Command{"ovn-nbctl", "ls-del", s.Name}
}

// CreateCommand renders the ovn-nbctl incantation for this port's variant,
// matching logical_switch_port.rs::create_command exactly for the Internal,
// Router, and LocalNet cases.
func (p *LogicalSwitchPort) CreateCommand() Command {
	switch p.PortType {
	case PortInternal:
		addresses := fmt.Sprintf("addresses=\"%s %s\"", p.MacAddress, p.IP.String())
		cmd := Command{
			"ovn-nbctl", "--may-exist", "lsp-add", p.ParentSwitch, p.Name,
			"--", "set", "Logical_Switch_Port", p.Name, addresses,
		}
		options := "options:"
		if p.ProviderNetworkName != "" {
			options += fmt.Sprintf("network_name=%s,", p.ProviderNetworkName)
		}
		if p.ChassisName != "" {
			options += fmt.Sprintf("chassis=%s", p.ChassisName)
		}
		cmd = append(cmd, options)
		return cmd
	case PortRouter:
		return Command{
			"ovn-nbctl", "--may-exist", "lsp-add", p.ParentSwitch, p.Name,
			"--", "set", "Logical_Switch_Port", p.Name, "type=router",
			fmt.Sprintf("options:router-port=%s", p.RouterPortName),
			fmt.Sprintf("addresses=\"%s\"", p.MacAddress),
		}
	default: // PortLocalNet
		return Command{
			"ovn-nbctl", "--may-exist", "lsp-add", p.ParentSwitch, p.Name,
			"--", "set", "Logical_Switch_Port", p.Name, "type=localnet",
			fmt.Sprintf("options:network_name=%s", p.ProviderNetworkName),
			"addresses=\"unknown\"",
		}
	}
}

func (p *LogicalSwitchPort) DestroyCommand() Command {
	return Command{"ovn-nbctl", "lsp-del", p.Name}
}

func (r *LogicalRouter) CreateCommand() Command {
	return Command{"ovn-nbctl", "--may-exist", "lr-add", r.Name}
}

func (r *LogicalRouter) DestroyCommand() Command {
	return Command{"ovn-nbctl", "lr-del", r.Name}
}

func (p *LogicalRouterPort) CreateCommand() Command {
	cidr := fmt.Sprintf("%s/%d", p.IP.String(), p.Mask)
	cmd := Command{
		"ovn-nbctl", "--may-exist", "lrp-add", p.ParentRouter, p.Name,
		string(p.MacAddress), cidr,
	}
	if p.ChassisName != "" {
		cmd = append(cmd, "--", "lrp-set-gateway-chassis", p.Name, p.ChassisName)
	}
	return cmd
}

func (p *LogicalRouterPort) DestroyCommand() Command {
	return Command{"ovn-nbctl", "lrp-del", p.Name}
}

func (p *OvsPort) CreateCommand() Command {
	return Command{
		"ovs-vsctl", "--may-exist", "add-port", p.IntegrationBridge, p.Name,
		"--", "set", "interface", p.Name, fmt.Sprintf("external_ids:iface-id=%s", p.LogicalSwitchPort),
	}
}

func (p *OvsPort) DestroyCommand() Command {
	return Command{"ovs-vsctl", "--if-exists", "del-port", p.IntegrationBridge, p.Name}
}

func (r Route) CreateCommand() Command {
	return Command{"ovn-nbctl", "--may-exist", "lr-route-add", r.RouterName, r.Prefix.String(), r.NextHop.String()}
}

func (r Route) DestroyCommand() Command {
	return Command{"ovn-nbctl", "lr-route-del", r.RouterName, r.Prefix.String()}
}

func (g ExternalGateway) CreateCommand() Command {
	return Command{"ovn-nbctl", "lrp-set-gateway-chassis", g.RouterPortName, g.ChassisName}
}

func (g ExternalGateway) DestroyCommand() Command {
	return Command{"ovn-nbctl", "lrp-del-gateway-chassis", g.RouterPortName, g.ChassisName}
}

func (n Nat) CreateCommand() Command {
	return Command{
		"ovn-nbctl", "--may-exist", "lr-nat-add", n.RouterName, n.Type.String(),
		n.ExternalIP.String(), n.LogicalIP.String(),
	}
}

func (n Nat) DestroyCommand() Command {
	return Command{"ovn-nbctl", "lr-nat-del", n.RouterName, n.Type.String(), n.ExternalIP.String()}
}

// CreateCommand renders one ovn-nbctl invocation that creates the
// Northbound DHCP_Options row for Cidr and sets its options. It does not
// update any logical switch port to reference the row; no command in this
// package renders that per-port step.
func (d DhcpDatabaseEntry) CreateCommand() Command {
	options := fmt.Sprintf(
		"lease_time=%s,router=%s,server_id=%s,server_mac=%s",
		d.LeaseTime, d.Router, d.ServerID, d.ServerMac,
	)
	return Command{"ovn-nbctl", "--may-exist", "dhcp-options-create", d.Cidr, "--", "set", "dhcp_options", d.Cidr, fmt.Sprintf("options={%s}", options)}
}

func (d DhcpDatabaseEntry) DestroyCommand() Command {
	return Command{"ovn-nbctl", "dhcp-options-del", d.Cidr}
}

func (r *LogicalACLRecord) CreateCommand() Command {
	return Command{
		"ovn-nbctl", "--may-exist", "acl-add", r.EntityName, r.Direction,
		fmt.Sprintf("%d", r.Priority), r.Match, r.Action,
	}
}

func (r *LogicalACLRecord) DestroyCommand() Command {
	return Command{"ovn-nbctl", "acl-del", r.EntityName, r.Direction, fmt.Sprintf("%d", r.Priority), r.Match}
}
