package types

import "fmt"

// ValidateConfig checks the domain invariants a parsed Config must satisfy
// before the planner walks it. This replaces schema
// validation against a versioned JSON schema with direct checks against the
// invariants this spec actually cares about.
func ValidateConfig(c *Config) error {
	seen := make(map[string]bool, len(c.Machines))

	for _, m := range c.Machines {
		if m.Name == "" {
			return fmt.Errorf("machine with empty name")
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate machine name %q", m.Name)
		}
		seen[m.Name] = true

		if m.GuestType.Kind() == "" {
			return fmt.Errorf("machine %q: no guest_type set", m.Name)
		}

		if err := validateScaling(m.Name, scalingOf(m.GuestType)); err != nil {
			return err
		}
	}

	switches := make(map[string]bool, len(c.Network.Switches))
	for _, sw := range c.Network.Switches {
		switches[sw.Name] = true
	}

	for _, acl := range c.Network.ACL {
		if !switches[acl.Switch] {
			return fmt.Errorf("acl %q references undeclared switch %q", acl.Name, acl.Switch)
		}
	}

	for _, r := range c.Network.Routers {
		for _, p := range r.Ports {
			if !switches[p.Switch] {
				return fmt.Errorf("router %q port references undeclared switch %q", r.Name, p.Switch)
			}
		}
	}

	return nil
}

func scalingOf(g GuestType) *ScalingConfig {
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

// validateScaling checks that every scaling-interface's clone list is
// consistent: indices in range, no clone assigned twice, and every clone
// in the group accounted for across the group's interfaces.
func validateScaling(machine string, s *ScalingConfig) error {
	if s == nil {
		return nil
	}

	total := make(map[uint32]bool)
	for ifaceName, iface := range s.Interfaces {
		if len(iface.Clones) == 0 {
			return fmt.Errorf("machine %q scaling interface %q: no clones assigned", machine, ifaceName)
		}
		for _, n := range iface.Clones {
			if n >= s.Count {
				return fmt.Errorf("machine %q scaling interface %q: clone index %d out of range [0,%d)", machine, ifaceName, n, s.Count)
			}
			if total[n] {
				return fmt.Errorf("machine %q: clone index %d assigned to more than one interface", machine, n)
			}
			total[n] = true
		}
	}

	if uint32(len(total)) != s.Count {
		return fmt.Errorf("machine %q: scaling count %d but only %d clones assigned across interfaces", machine, s.Count, len(total))
	}

	return nil
}
