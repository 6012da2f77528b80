package planner

import (
	"fmt"
	"path/filepath"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// Specialise fills in every guest's per-environment fields: artefact paths
// (under the project working directory on master, under the remote user's
// testbed-projects folder elsewhere), hostname, SSH address, and domain XML
// path for libvirt guests. It runs last, after load balancing has assigned
// every guest's TestbedHost.
func Specialise(guests []types.StateTestbedGuest, hosts map[string]types.TestbedHost, project, masterWorkingDir string) error {
	for i := range guests {
		g := &guests[i]
		if g.MachineDef.Libvirt == nil {
			continue
		}
		lv := g.MachineDef.Libvirt

		host, ok := hosts[g.TestbedHost]
		if !ok {
			return fmt.Errorf("guest %s: assigned host %s not found", g.Name, g.TestbedHost)
		}

		artefactsDir := masterWorkingDir
		if !host.IsMasterHost {
			artefactsDir = filepath.Join("/home", host.Username, "testbed-projects", project, "artefacts")
		}

		lv.DiskPath = filepath.Join(artefactsDir, g.Name+".qcow2")
		lv.DomainXMLPath = filepath.Join(artefactsDir, g.Name+".xml")
		if lv.CloudImage != nil {
			lv.CloudInitISO = filepath.Join(artefactsDir, g.Name+"-cloud-init.iso")
		} else if lv.IsCloneOf != "" {
			lv.CloudInitISO = filepath.Join(artefactsDir, g.Name+"-linked-clone.iso")
		}

		if lv.Hostname == "" {
			lv.Hostname = g.Name
		}
	}

	// Second pass: a clone's BackingDiskPath is its golden image's own
	// DiskPath, which the first pass has by now computed regardless of
	// which guest came first in the slice.
	for i := range guests {
		lv := guests[i].MachineDef.Libvirt
		if lv == nil || lv.IsCloneOf == "" {
			continue
		}
		parent, err := findGuest(guests, lv.IsCloneOf)
		if err != nil {
			return fmt.Errorf("guest %s: %w", guests[i].Name, err)
		}
		if parent.MachineDef.Libvirt == nil {
			return fmt.Errorf("guest %s: clone of %s, which is not a libvirt guest", guests[i].Name, lv.IsCloneOf)
		}
		lv.BackingDiskPath = parent.MachineDef.Libvirt.DiskPath
	}

	return nil
}

func findGuest(guests []types.StateTestbedGuest, name string) (*types.StateTestbedGuest, error) {
	for i := range guests {
		if guests[i].Name == name {
			return &guests[i], nil
		}
	}
	return nil, fmt.Errorf("golden image %s not found among planned guests", name)
}
