package planner

import (
	"fmt"
	"strings"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// AssignHosts pins every clone of a scaling group to the same host as its
// parent's first-assigned clone, and otherwise round-robins guests over the
// schedulable hosts ordered by current commitment: the exact distribution
// is not part of the contract, only that every guest lands on a real,
// schedulable host.
func AssignHosts(guests []types.StateTestbedGuest, hosts types.ClusterHosts) error {
	if len(hosts) == 0 {
		return fmt.Errorf("no cluster hosts available to schedule guests onto")
	}

	groupHost := make(map[string]string)

	for i := range guests {
		g := &guests[i]

		if parent := cloneParent(g.Name); parent != "" {
			if host, ok := groupHost[parent]; ok {
				g.TestbedHost = host
				if err := hosts.IncrGuestCommit(host, 1); err != nil {
					return err
				}
				continue
			}
		}

		host, err := hosts.LeastCommitted()
		if err != nil {
			return fmt.Errorf("assigning guest %s: %w", g.Name, err)
		}

		g.TestbedHost = host.Name
		if err := hosts.IncrGuestCommit(host.Name, 1); err != nil {
			return err
		}

		if parent := cloneParent(g.Name); parent != "" {
			groupHost[parent] = host.Name
		}
	}

	return nil
}

// cloneParent returns the parent machine name if name looks like
// "<parent>-<n>" (the naming ExpandClones uses), or "" if it doesn't.
func cloneParent(name string) string {
	idx := strings.LastIndex(name, "-")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	for _, r := range name[idx+1:] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return name[:idx]
}
