package planner

import (
	"fmt"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// BuildGuests turns every Machine in the (already clone-expanded) Config
// into a StateTestbedGuest, assigning guest IDs in declaration order. Clone
// expansion must have already run: this stage only reads is_clone_of, it
// never derives it.
func BuildGuests(cfg *types.Config) ([]types.StateTestbedGuest, error) {
	guests := make([]types.StateTestbedGuest, 0, len(cfg.Machines))

	var nextID uint32
	for _, m := range cfg.Machines {
		def, isGolden, err := machineDef(m.GuestType)
		if err != nil {
			return nil, fmt.Errorf("machine %s: %w", m.Name, err)
		}

		switches := make([]string, len(m.Network))
		gateways := make([]string, len(m.Network))
		for i, iface := range m.Network {
			switches[i] = iface.Switch
			if iface.Gateway != nil {
				gateways[i] = *iface.Gateway
			}
		}

		g := types.StateTestbedGuest{
			Name:          m.Name,
			MachineDef:    def,
			IsGoldenImage: isGolden,
			GuestID:       nextID,
			Interfaces:    switches,
			Gateways:      gateways,
		}
		nextID++

		if err := g.ValidateGoldenImageInvariant(); err != nil {
			return nil, err
		}

		guests = append(guests, g)
	}

	return guests, nil
}

// machineDef projects a YAML GuestType into the persisted MachineDef,
// reporting whether this guest is an unexpanded golden image (scaling set).
func machineDef(g types.GuestType) (types.MachineDef, bool, error) {
	switch {
	case g.Libvirt != nil:
		lv := g.Libvirt
		out := types.LibvirtGuest{
			Scaling:    lv.Scaling,
			Username:   lv.Username,
			Hostname:   lv.Hostname,
			SSHAddress: lv.SSHAddress,
			TCPTTYPort: lv.TCPTTYPort,
			MemoryMB:   lv.MemoryMB,
			CPUs:       lv.CPUs,
		}
		if lv.IsCloneOf != nil {
			out.IsCloneOf = *lv.IsCloneOf
		}
		if lv.CloudImage != nil {
			out.CloudImage = &types.CloudImageGuest{
				ImageRef:        lv.CloudImage.ImageRef,
				ExpandGigabytes: lv.CloudImage.ExpandGigabytes,
				SetupScript:     lv.CloudImage.SetupScript,
				RunScript:       lv.CloudImage.RunScript,
				Context:         lv.CloudImage.Context,
				Environment:     lv.CloudImage.Environment,
			}
		}
		if lv.ExistingDisk != nil {
			out.ExistingDisk = &types.ExistingDiskGuest{
				Path:           lv.ExistingDisk.Path,
				DriverType:     lv.ExistingDisk.DriverType,
				DeviceType:     lv.ExistingDisk.DeviceType,
				Readonly:       lv.ExistingDisk.Readonly,
				CreateDeepCopy: lv.ExistingDisk.CreateDeepCopy,
			}
		}
		if lv.IsoGuest != nil {
			out.IsoGuest = &types.IsoGuest{Path: lv.IsoGuest.Path, ExpandGigabytes: lv.IsoGuest.ExpandGigabytes}
		}
		return types.MachineDef{Libvirt: &out}, lv.Scaling != nil, nil

	case g.Docker != nil:
		d := g.Docker
		out := types.DockerGuest{
			Image:      d.Image,
			Privileged: d.Privileged,
			Hostname:   d.Hostname,
			Volumes:    d.Volumes,
			Env:        d.Environment,
			Scaling:    d.Scaling,
		}
		if d.Command != nil {
			out.Command = *d.Command
		}
		if d.Entrypoint != nil {
			out.Entrypoint = *d.Entrypoint
		}
		if d.EnvFile != nil {
			out.EnvFile = *d.EnvFile
		}
		if d.User != nil {
			out.User = *d.User
		}
		if d.Device != nil {
			out.Device = *d.Device
		}
		if d.StaticIP != nil {
			out.StaticIP = *d.StaticIP
		}
		return types.MachineDef{Docker: &out}, d.Scaling != nil, nil

	case g.Android != nil:
		a := g.Android
		out := types.AndroidGuest{
			AvdType: a.AvdType,
			Scaling: a.Scaling,
		}
		if a.StaticIP != nil {
			out.StaticIP = *a.StaticIP
		}
		return types.MachineDef{Android: &out}, a.Scaling != nil, nil

	default:
		return types.MachineDef{}, false, fmt.Errorf("no guest backend declared")
	}
}
