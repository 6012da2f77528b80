// Package planner turns a parsed Config into a deployment State: expanding
// scaling groups into clones, assigning guest IDs, load-balancing guests
// across the cluster, deriving the OVN logical network, and specialising
// per-environment paths. Each stage is a plain function over the previous
// stage's output, mirroring the original Rust pipeline's separate passes
// over the same Config rather than one monolithic walk.
package planner

import (
	"fmt"
	"net"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// ExpandClones appends one Machine per clone declared by any guest's
// scaling config, leaving the golden-image Machine in place so it can still
// be provisioned as the shared template. Clones take the name
// "<parent>-<n>" and lose their own scaling config; libvirt clones also
// record IsCloneOf (docker and android guest types have no such field).
func ExpandClones(cfg *types.Config) error {
	var clones []types.Machine

	for _, m := range cfg.Machines {
		scaling := scalingOf(m.GuestType)
		if scaling == nil {
			continue
		}

		for n := uint32(0); n < scaling.Count; n++ {
			iface, err := cloneInterface(n, scaling.Interfaces)
			if err != nil {
				return fmt.Errorf("machine %s clone %d: %w", m.Name, n, err)
			}

			clone := types.Machine{
				Name:      fmt.Sprintf("%s-%d", m.Name, n),
				Network:   []types.MachineNetwork{iface},
				GuestType: cloneGuestType(m.GuestType, m.Name),
			}
			clones = append(clones, clone)
		}
	}

	cfg.Machines = append(cfg.Machines, clones...)
	return nil
}

func scalingOf(g types.GuestType) *types.ScalingConfig {
	switch {
	case g.Libvirt != nil:
		return g.Libvirt.Scaling
	case g.Docker != nil:
		return g.Docker.Scaling
	case g.Android != nil:
		return g.Android.Scaling
	default:
		return nil
	}
}

// cloneGuestType rebuilds the parent's GuestType for one clone: same image
// reference and settings, scaling cleared, is_clone_of set. Clones never
// carry their own TCP TTY port forward: that belongs to the golden image,
// not to every expanded instance.
func cloneGuestType(g types.GuestType, parent string) types.GuestType {
	switch {
	case g.Libvirt != nil:
		lv := *g.Libvirt
		lv.Scaling = nil
		lv.IsCloneOf = &parent
		lv.TCPTTYPort = nil
		return types.GuestType{Libvirt: &lv}
	case g.Docker != nil:
		d := *g.Docker
		d.Scaling = nil
		return types.GuestType{Docker: &d}
	case g.Android != nil:
		a := *g.Android
		a.Scaling = nil
		return types.GuestType{Android: &a}
	default:
		return g
	}
}

// cloneInterface finds the one scaling interface whose clone list contains
// n, and derives that clone's MachineNetwork from its IP/MAC ranges.
func cloneInterface(n uint32, interfaces map[string]types.ScalingInterface) (types.MachineNetwork, error) {
	for switchName, iface := range interfaces {
		if !containsClone(iface.Clones, n) {
			continue
		}

		ip, err := cloneIPFromRange(n, iface.Clones, iface)
		if err != nil {
			return types.MachineNetwork{}, err
		}

		mac, err := cloneMacFromRange(n, iface.Clones, iface.MacRange)
		if err != nil {
			return types.MachineNetwork{}, err
		}

		return types.MachineNetwork{
			Switch:  switchName,
			Gateway: iface.Gateway,
			Mac:     mac,
			IP:      ip,
		}, nil
	}
	return types.MachineNetwork{}, fmt.Errorf("no scaling interface claims clone %d", n)
}

func containsClone(clones []uint32, n uint32) bool {
	for _, c := range clones {
		if c == n {
			return true
		}
	}
	return false
}

func clonePosition(clones []uint32, n uint32) (int, error) {
	for i, c := range clones {
		if c == n {
			return i, nil
		}
	}
	return 0, fmt.Errorf("clone %d not present in clone list", n)
}

// cloneIPFromRange returns "dynamic" verbatim, or the IPv4 address at the
// clone's position in its scaling interface's from..to range. The range's
// length (to-from, inclusive) must equal the clone list's length, or the
// group's ranges and clone assignments disagree.
func cloneIPFromRange(n uint32, clones []uint32, iface types.ScalingInterface) (string, error) {
	if iface.Dynamic || iface.IPRange == nil {
		return "dynamic", nil
	}

	from := net.ParseIP(iface.IPRange.From).To4()
	to := net.ParseIP(iface.IPRange.To).To4()
	if from == nil || to == nil {
		return "", fmt.Errorf("invalid ipv4 range %s..%s", iface.IPRange.From, iface.IPRange.To)
	}

	span, err := ipSpan(from, to)
	if err != nil {
		return "", err
	}

	pos, err := clonePosition(clones, n)
	if err != nil {
		return "", err
	}
	if uint32(len(clones)) != span+1 {
		return "", fmt.Errorf("clone list length %d does not match ip range length %d", len(clones), span+1)
	}
	if uint32(pos) > span {
		return "", fmt.Errorf("clone %d position %d exceeds ip range length %d", n, pos, span+1)
	}

	return offsetIPv4(from, uint32(pos)).String(), nil
}

// cloneMacFromRange mirrors cloneIPFromRange for the MAC range, working in
// the 48-bit address space instead of 32-bit IPv4.
func cloneMacFromRange(n uint32, clones []uint32, r types.ScalingMacRange) (string, error) {
	from, err := net.ParseMAC(r.From)
	if err != nil {
		return "", fmt.Errorf("invalid mac %q: %w", r.From, err)
	}
	to, err := net.ParseMAC(r.To)
	if err != nil {
		return "", fmt.Errorf("invalid mac %q: %w", r.To, err)
	}

	span, err := macSpan(from, to)
	if err != nil {
		return "", err
	}

	pos, err := clonePosition(clones, n)
	if err != nil {
		return "", err
	}
	if uint64(len(clones)) != span+1 {
		return "", fmt.Errorf("clone list length %d does not match mac range length %d", len(clones), span+1)
	}
	if uint64(pos) > span {
		return "", fmt.Errorf("clone %d position %d exceeds mac range length %d", n, pos, span+1)
	}

	return offsetMAC(from, uint64(pos)).String(), nil
}

func ipSpan(from, to net.IP) (uint32, error) {
	f := ipv4ToUint32(from)
	t := ipv4ToUint32(to)
	if t < f {
		return 0, fmt.Errorf("ip range \"to\" %s is less than \"from\" %s", to, from)
	}
	return t - f, nil
}

func macSpan(from, to net.HardwareAddr) (uint64, error) {
	f := macToUint64(from)
	t := macToUint64(to)
	if t < f {
		return 0, fmt.Errorf("mac range \"to\" %s is less than \"from\" %s", to, from)
	}
	return t - f, nil
}

func ipv4ToUint32(ip net.IP) uint32 {
	ip = ip.To4()
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func offsetIPv4(ip net.IP, n uint32) net.IP {
	v := ipv4ToUint32(ip) + n
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func macToUint64(mac net.HardwareAddr) uint64 {
	var v uint64
	for _, b := range mac {
		v = v<<8 | uint64(b)
	}
	return v
}

func offsetMAC(mac net.HardwareAddr, n uint64) net.HardwareAddr {
	v := macToUint64(mac) + n
	out := make(net.HardwareAddr, 6)
	for i := 5; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}
