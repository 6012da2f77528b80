package driver

import (
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/ovn"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/proto"
)

// networkStage pairs one instruction kind with the resource names it acts
// on, in the order the Up/Down driver must send them.
type networkStage struct {
	kind      proto.Kind
	resources []proto.Resource
}

// networkUpStages walks the network's dependency order: switches before
// switch-ports before routers before router-ports before ovs-ports before
// routes/external-gateways/NAT, then DHCP (needs routers+switches already
// present), then ACLs last (they reference switches that must already
// exist).
func networkUpStages(n *ovn.Network) []networkStage {
	var stages []networkStage

	add := func(kind proto.Kind, names []string, resKind proto.ResourceKind) {
		if len(names) == 0 {
			return
		}
		res := make([]proto.Resource, len(names))
		for i, name := range names {
			res[i] = proto.Resource{Kind: resKind, Name: name}
		}
		stages = append(stages, networkStage{kind: kind, resources: res})
	}

	add(proto.KindAddSwitch, mapKeys(n.Switches), proto.ResourceSwitch)
	add(proto.KindAddSwitchPort, mapKeys(n.SwitchPorts), proto.ResourceSwitchPort)
	add(proto.KindAddRouter, mapKeys(n.Routers), proto.ResourceRouter)
	add(proto.KindAddRouterPort, mapKeys(n.RouterPorts), proto.ResourceRouterPort)
	add(proto.KindAddOvsPort, mapKeys(n.OvsPorts), proto.ResourceOvsPort)

	var routeOwners, gatewayOwners, natOwners []string
	for name, r := range n.Routers {
		if len(r.Routes) > 0 {
			routeOwners = append(routeOwners, name)
		}
		if len(r.ExternalGateways) > 0 {
			gatewayOwners = append(gatewayOwners, name)
		}
		if len(r.Nats) > 0 {
			natOwners = append(natOwners, name)
		}
	}
	add(proto.KindAddRoute, routeOwners, proto.ResourceRoute)
	add(proto.KindAddExternalGateway, gatewayOwners, proto.ResourceExternalGateway)
	add(proto.KindAddNat, natOwners, proto.ResourceNat)

	var dhcpSwitches []string
	for name, sw := range n.Switches {
		if sw.Dhcp != nil {
			dhcpSwitches = append(dhcpSwitches, name)
		}
	}
	add(proto.KindAddDhcp, dhcpSwitches, proto.ResourceDhcp)

	add(proto.KindAddAcl, mapKeys(n.Acl), proto.ResourceAcl)

	return stages
}

// networkDownStages is networkUpStages in reverse: tear down ACLs and DHCP
// first, then work back to switches last, since nothing may reference a
// switch or router that no longer exists.
func networkDownStages(n *ovn.Network) []networkStage {
	up := networkUpStages(n)
	down := make([]networkStage, len(up))
	for i, stage := range up {
		down[len(up)-1-i] = networkStage{kind: removeKind(stage.kind), resources: stage.resources}
	}
	return down
}

func removeKind(add proto.Kind) proto.Kind {
	switch add {
	case proto.KindAddSwitch:
		return proto.KindRemoveSwitch
	case proto.KindAddSwitchPort:
		return proto.KindRemoveSwitchPort
	case proto.KindAddRouter:
		return proto.KindRemoveRouter
	case proto.KindAddRouterPort:
		return proto.KindRemoveRouterPort
	case proto.KindAddOvsPort:
		return proto.KindRemoveOvsPort
	case proto.KindAddRoute:
		return proto.KindRemoveRoute
	case proto.KindAddExternalGateway:
		return proto.KindRemoveExternalGateway
	case proto.KindAddNat:
		return proto.KindRemoveNat
	case proto.KindAddDhcp:
		return proto.KindRemoveDhcp
	case proto.KindAddAcl:
		return proto.KindRemoveAcl
	default:
		return add
	}
}

func mapKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
