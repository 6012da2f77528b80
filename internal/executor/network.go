package executor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/ovn"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/proto"
)

// commandsFor resolves one OVN resource instruction against the network
// model into the ovn-nbctl/ovs-vsctl commands that realise or tear it down.
// It touches nothing outside n: kept pure so it can be tested without a
// subprocess or a live network.
//
// Route, ExternalGateway, and Nat are stored as slices on their owning
// LogicalRouter rather than as separately-keyed maps, so name here is the
// router's name and every matching slice entry produces its own command.
// Dhcp resources are likewise named by switch: the switch's actual
// DhcpDatabaseEntry is found indirectly, via the hash stamped onto one of
// the switch's internal ports by Network.AddDhcpOption.
func commandsFor(n *ovn.Network, kind proto.Kind, name string) ([]ovn.Command, error) {
	switch kind {
	case proto.KindAddSwitch, proto.KindRemoveSwitch:
		sw, ok := n.Switches[name]
		if !ok {
			return nil, fmt.Errorf("switch %s not found", name)
		}
		return one(kind, sw.CreateCommand(), sw.DestroyCommand())

	case proto.KindAddSwitchPort, proto.KindRemoveSwitchPort:
		p, ok := n.SwitchPorts[name]
		if !ok {
			return nil, fmt.Errorf("switch port %s not found", name)
		}
		return one(kind, p.CreateCommand(), p.DestroyCommand())

	case proto.KindAddRouter, proto.KindRemoveRouter:
		r, ok := n.Routers[name]
		if !ok {
			return nil, fmt.Errorf("router %s not found", name)
		}
		return one(kind, r.CreateCommand(), r.DestroyCommand())

	case proto.KindAddRouterPort, proto.KindRemoveRouterPort:
		p, ok := n.RouterPorts[name]
		if !ok {
			return nil, fmt.Errorf("router port %s not found", name)
		}
		return one(kind, p.CreateCommand(), p.DestroyCommand())

	case proto.KindAddOvsPort, proto.KindRemoveOvsPort:
		p, ok := n.OvsPorts[name]
		if !ok {
			return nil, fmt.Errorf("ovs port %s not found", name)
		}
		return one(kind, p.CreateCommand(), p.DestroyCommand())

	case proto.KindAddRoute, proto.KindRemoveRoute:
		r, ok := n.Routers[name]
		if !ok {
			return nil, fmt.Errorf("router %s not found", name)
		}
		var cmds []ovn.Command
		for _, route := range r.Routes {
			c, err := one(kind, route.CreateCommand(), route.DestroyCommand())
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, c...)
		}
		return cmds, nil

	case proto.KindAddExternalGateway, proto.KindRemoveExternalGateway:
		r, ok := n.Routers[name]
		if !ok {
			return nil, fmt.Errorf("router %s not found", name)
		}
		var cmds []ovn.Command
		for _, gw := range r.ExternalGateways {
			c, err := one(kind, gw.CreateCommand(), gw.DestroyCommand())
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, c...)
		}
		return cmds, nil

	case proto.KindAddNat, proto.KindRemoveNat:
		r, ok := n.Routers[name]
		if !ok {
			return nil, fmt.Errorf("router %s not found", name)
		}
		var cmds []ovn.Command
		for _, nat := range r.Nats {
			c, err := one(kind, nat.CreateCommand(), nat.DestroyCommand())
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, c...)
		}
		return cmds, nil

	case proto.KindAddDhcp, proto.KindRemoveDhcp:
		entry, err := dhcpEntryForSwitch(n, name)
		if err != nil {
			return nil, err
		}
		return one(kind, entry.CreateCommand(), entry.DestroyCommand())

	case proto.KindAddAcl, proto.KindRemoveAcl:
		a, ok := n.Acl[name]
		if !ok {
			return nil, fmt.Errorf("acl %s not found", name)
		}
		return one(kind, a.CreateCommand(), a.DestroyCommand())

	default:
		return nil, fmt.Errorf("not a network instruction kind: %s", kind)
	}
}

// one picks the create or destroy rendering of a command based on whether
// kind names an Add or a Remove instruction.
func one(kind proto.Kind, create, destroy ovn.Command) ([]ovn.Command, error) {
	if isRemoveKind(kind) {
		return []ovn.Command{destroy}, nil
	}
	return []ovn.Command{create}, nil
}

func isRemoveKind(kind proto.Kind) bool {
	switch kind {
	case proto.KindRemoveSwitch, proto.KindRemoveSwitchPort, proto.KindRemoveRouter,
		proto.KindRemoveRouterPort, proto.KindRemoveOvsPort, proto.KindRemoveRoute,
		proto.KindRemoveExternalGateway, proto.KindRemoveNat, proto.KindRemoveDhcp,
		proto.KindRemoveAcl:
		return true
	default:
		return false
	}
}

// dhcpEntryForSwitch finds the DhcpDatabaseEntry belonging to switchName by
// locating one of its internal ports carrying a non-nil DhcpOptionsHash and
// looking that hash up in the network's DHCP database.
func dhcpEntryForSwitch(n *ovn.Network, switchName string) (ovn.DhcpDatabaseEntry, error) {
	for _, p := range n.SwitchPorts {
		if p.ParentSwitch != switchName || p.DhcpOptionsHash == nil {
			continue
		}
		entry, ok := n.DhcpOptions[*p.DhcpOptionsHash]
		if !ok {
			return ovn.DhcpDatabaseEntry{}, fmt.Errorf("switch %s: dangling dhcp options hash", switchName)
		}
		return entry, nil
	}
	return ovn.DhcpDatabaseEntry{}, fmt.Errorf("switch %s: no dhcp options configured", switchName)
}

// networkBatch runs one OVN resource instruction's commands against the
// master host (the OVN northbound database only ever lives there) for every
// resource in the batch, concurrently, and folds the outcomes into a List
// response in the same order the resources were given.
func (x *Executor) networkBatch(ctx context.Context, kind proto.Kind, resources []proto.Resource) proto.OrchestrationProtocolResponse {
	results := make([]proto.Result, len(resources))

	g, gctx := errgroup.WithContext(ctx)
	for i, res := range resources {
		i, res := i, res
		g.Go(func() error {
			results[i] = x.runNetworkResource(gctx, kind, res)
			return nil
		})
	}
	_ = g.Wait()

	return proto.NewListResponse(results)
}

func (x *Executor) runNetworkResource(ctx context.Context, kind proto.Kind, res proto.Resource) proto.Result {
	cmds, err := commandsFor(&x.State.Network, kind, res.Name)
	if err != nil {
		return proto.Result{IsSuccess: false, Message: err.Error()}
	}

	for _, cmd := range cmds {
		if _, err := x.Exec.Run(ctx, x.MasterHost, cmd); err != nil {
			if downgradeAlreadyExists(kind, err) {
				continue
			}
			return proto.Result{IsSuccess: false, Message: err.Error()}
		}
	}

	return proto.Result{IsSuccess: true}
}
