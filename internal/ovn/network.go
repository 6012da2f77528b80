package ovn

import "fmt"

// Network is the full OVN logical network representation carried in
// State.Network: components plus the DHCP database.
type Network struct {
	Switches     map[string]*LogicalSwitch     `json:"switches"`
	SwitchPorts  map[string]*LogicalSwitchPort `json:"switch_ports"`
	Routers      map[string]*LogicalRouter     `json:"routers"`
	RouterPorts  map[string]*LogicalRouterPort `json:"router_ports"`
	OvsPorts     map[string]*OvsPort           `json:"ovs_ports"`
	Acl          map[string]*LogicalACLRecord  `json:"acl"`
	DhcpOptions  map[uint64]DhcpDatabaseEntry  `json:"dhcp_options"`
}

func NewNetwork() *Network {
	return &Network{
		Switches:    make(map[string]*LogicalSwitch),
		SwitchPorts: make(map[string]*LogicalSwitchPort),
		Routers:     make(map[string]*LogicalRouter),
		RouterPorts: make(map[string]*LogicalRouterPort),
		OvsPorts:    make(map[string]*OvsPort),
		Acl:         make(map[string]*LogicalACLRecord),
		DhcpOptions: make(map[uint64]DhcpDatabaseEntry),
	}
}

func (n *Network) AddSwitch(name string, subnet IPAddr) error {
	if _, ok := n.Switches[name]; ok {
		return AlreadyExists(name)
	}
	n.Switches[name] = &LogicalSwitch{Name: name, Subnet: subnet}
	return nil
}

func (n *Network) DelSwitch(name string) error {
	if _, ok := n.Switches[name]; !ok {
		return DoesNotExist(name)
	}
	for _, p := range n.SwitchPorts {
		if p.ParentSwitch == name {
			return HasChildren(name)
		}
	}
	delete(n.Switches, name)
	return nil
}

func (n *Network) AddLspInternal(name, parentSwitch string, ip IPAddr, chassisName string, mac MacAddress, providerNetworkName string) error {
	if _, ok := n.Switches[parentSwitch]; !ok {
		return ParentDoesNotExist(name, parentSwitch)
	}
	if _, ok := n.SwitchPorts[name]; ok {
		return AlreadyExists(name)
	}
	n.SwitchPorts[name] = &LogicalSwitchPort{
		Name:                name,
		ParentSwitch:        parentSwitch,
		PortType:            PortInternal,
		IP:                  ip,
		ChassisName:         chassisName,
		MacAddress:          mac,
		ProviderNetworkName: providerNetworkName,
	}
	return nil
}

func (n *Network) AddLspRouter(name, parentSwitch string, mac MacAddress, routerPortName string) error {
	if _, ok := n.Switches[parentSwitch]; !ok {
		return ParentDoesNotExist(name, parentSwitch)
	}
	if _, ok := n.SwitchPorts[name]; ok {
		return AlreadyExists(name)
	}
	n.SwitchPorts[name] = &LogicalSwitchPort{
		Name:           name,
		ParentSwitch:   parentSwitch,
		PortType:       PortRouter,
		MacAddress:     mac,
		RouterPortName: routerPortName,
	}
	return nil
}

func (n *Network) AddLspLocalnet(name, parentSwitch, providerNetworkName string) error {
	if _, ok := n.Switches[parentSwitch]; !ok {
		return ParentDoesNotExist(name, parentSwitch)
	}
	if _, ok := n.SwitchPorts[name]; ok {
		return AlreadyExists(name)
	}
	n.SwitchPorts[name] = &LogicalSwitchPort{
		Name:                name,
		ParentSwitch:        parentSwitch,
		PortType:            PortLocalNet,
		ProviderNetworkName: providerNetworkName,
	}
	return nil
}

func (n *Network) DelLsp(name string) error {
	if _, ok := n.SwitchPorts[name]; !ok {
		return DoesNotExist(name)
	}
	delete(n.SwitchPorts, name)
	return nil
}

func (n *Network) AddRouter(name string) error {
	if _, ok := n.Routers[name]; ok {
		return AlreadyExists(name)
	}
	n.Routers[name] = &LogicalRouter{Name: name}
	return nil
}

func (n *Network) DelRouter(name string) error {
	if _, ok := n.Routers[name]; !ok {
		return DoesNotExist(name)
	}
	for _, p := range n.RouterPorts {
		if p.ParentRouter == name {
			return HasChildren(name)
		}
	}
	delete(n.Routers, name)
	return nil
}

func (n *Network) AddLrp(name, parentRouter string, mac MacAddress, ip []byte, mask uint16, chassisName string) error {
	if _, ok := n.Routers[parentRouter]; !ok {
		return ParentDoesNotExist(name, parentRouter)
	}
	if _, ok := n.RouterPorts[name]; ok {
		return AlreadyExists(name)
	}
	n.RouterPorts[name] = &LogicalRouterPort{
		Name:         name,
		ParentRouter: parentRouter,
		MacAddress:   mac,
		IP:           ip,
		Mask:         mask,
		ChassisName:  chassisName,
	}
	return nil
}

func (n *Network) DelLrp(name string) error {
	if _, ok := n.RouterPorts[name]; !ok {
		return DoesNotExist(name)
	}
	delete(n.RouterPorts, name)
	return nil
}

func (n *Network) OvsAddPort(name, integrationBridge, lspName, chassis string) error {
	if _, ok := n.OvsPorts[name]; ok {
		return AlreadyExists(name)
	}
	n.OvsPorts[name] = &OvsPort{Name: name, IntegrationBridge: integrationBridge, LogicalSwitchPort: lspName, Chassis: chassis}
	return nil
}

func (n *Network) OvsDelPort(name string) error {
	if _, ok := n.OvsPorts[name]; !ok {
		return DoesNotExist(name)
	}
	delete(n.OvsPorts, name)
	return nil
}

func (n *Network) LrRouteAdd(routerName string, prefix IPAddr, nextHop []byte) error {
	r, ok := n.Routers[routerName]
	if !ok {
		return ParentDoesNotExist(fmt.Sprintf("route(%s)", prefix), routerName)
	}
	r.Routes = append(r.Routes, Route{RouterName: routerName, Prefix: prefix, NextHop: nextHop})
	return nil
}

func (n *Network) LrpAddExternalGateway(routerName, routerPortName, chassisName string) error {
	r, ok := n.Routers[routerName]
	if !ok {
		return ParentDoesNotExist(fmt.Sprintf("external_gateway(%s)", routerPortName), routerName)
	}
	r.ExternalGateways = append(r.ExternalGateways, ExternalGateway{RouterPortName: routerPortName, ChassisName: chassisName})
	return nil
}

func (n *Network) LrAddNat(routerName string, natType NatType, externalIP, logicalIP IPAddr) error {
	r, ok := n.Routers[routerName]
	if !ok {
		return ParentDoesNotExist(fmt.Sprintf("nat(%s)", externalIP), routerName)
	}
	r.Nats = append(r.Nats, Nat{RouterName: routerName, Type: natType, ExternalIP: externalIP, LogicalIP: logicalIP})
	return nil
}

// AddSwitchAcl records an ACL rule against an entity, keeping the raw
// rule so listing endpoints can report configured ACLs.
func (n *Network) AddSwitchAcl(aclName, entityName string, t ACLRecordType, direction string, priority int, match, action string) error {
	if _, ok := n.Acl[aclName]; ok {
		return AlreadyExists(aclName)
	}
	n.Acl[aclName] = &LogicalACLRecord{
		Name: aclName, EntityName: entityName, Type: t,
		Direction: direction, Priority: priority, Match: match, Action: action,
	}
	return nil
}

// GetLspLrpPair finds the switch-port/router-port pair linking a switch to a
// router, used by AddDhcpOption to locate the gateway address.
func (n *Network) GetLspLrpPair(switchName, routerName string) (*LogicalSwitchPort, *LogicalRouterPort, error) {
	if _, ok := n.Switches[switchName]; !ok {
		return nil, nil, DoesNotExist(switchName)
	}
	if _, ok := n.Routers[routerName]; !ok {
		return nil, nil, DoesNotExist(routerName)
	}

	for _, lsp := range n.SwitchPorts {
		if lsp.ParentSwitch != switchName || lsp.PortType != PortRouter {
			continue
		}
		for lrpName, lrp := range n.RouterPorts {
			if lrp.ParentRouter == routerName && lrpName == lsp.RouterPortName {
				return lsp, lrp, nil
			}
		}
	}

	return nil, nil, Errorf("could not find lsp/lrp pair for switch %s and router %s", switchName, routerName)
}

// AddDhcpOption derives a DhcpDatabaseEntry for the switch/router pair and
// stamps its hash onto every internal LSP on that switch whose IP is
// dynamic.
func (n *Network) AddDhcpOption(routerName, switchName, excludeIPs string) error {
	sw, ok := n.Switches[switchName]
	if !ok {
		return DoesNotExist(switchName)
	}
	if _, ok := n.Routers[routerName]; !ok {
		return DoesNotExist(routerName)
	}

	_, lrp, err := n.GetLspLrpPair(switchName, routerName)
	if err != nil {
		return err
	}

	var dynamicPorts []string
	for name, lsp := range n.SwitchPorts {
		if lsp.ParentSwitch == switchName && lsp.PortType == PortInternal && lsp.IP.Kind == IPKindDynamic {
			dynamicPorts = append(dynamicPorts, name)
		}
	}
	if len(dynamicPorts) == 0 {
		return Errorf("switch %s has no internal ports with a dynamic ip", switchName)
	}

	lrpIPNoMask := lrp.IP.String()

	entry := DhcpDatabaseEntry{
		Cidr:      sw.Subnet.String(),
		LeaseTime: "3600",
		Router:    lrpIPNoMask,
		ServerID:  lrpIPNoMask,
		ServerMac: lrp.MacAddress,
	}
	hash := entry.Hash()
	n.DhcpOptions[hash] = entry

	for _, name := range dynamicPorts {
		n.SwitchPorts[name].DhcpOptionsHash = &hash
	}

	sw.Dhcp = &SwitchDhcpOptions{ExcludeIPs: excludeIPs}

	return nil
}

// Validate checks the cross-entity invariants a single mutator can't:
// every internal LSP IP is unique (skipping dynamic), every LRP IP is
// unique, and no LSP/LRP IP collides across the two.
func (n *Network) Validate() error {
	seen := make(map[string]string)

	for name, lsp := range n.SwitchPorts {
		if lsp.PortType != PortInternal || lsp.IP.Kind == IPKindDynamic {
			continue
		}
		key := lsp.IP.String()
		if other, ok := seen[key]; ok {
			return fmt.Errorf("ports %s and %s both have ip %s", other, name, key)
		}
		seen[key] = name
	}

	for name, lrp := range n.RouterPorts {
		key := lrp.IP.String()
		if other, ok := seen[key]; ok {
			return fmt.Errorf("ports %s and %s both have ip %s", other, name, key)
		}
		seen[key] = name
	}

	return nil
}
