package guest

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/exec"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// Libvirt is the KVM/QEMU backend.
type Libvirt struct{}

// SetupImage has three branches: a golden image with a shared setup script
// runs it once through RunSharedSetup (inside the isolated temp network the
// driver stands up around this batch), a clone is a qcow2 linked-clone on
// its host, anything else (a golden image without a script included) is a
// no-op.
func (Libvirt) SetupImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error {
	lv := g.MachineDef.Libvirt
	if lv == nil {
		return fmt.Errorf("guest %s: not a libvirt machine", g.Name)
	}

	switch {
	case g.IsGoldenImage:
		if lv.CloudImage == nil || lv.CloudImage.SetupScript == "" {
			return nil
		}
		return Libvirt{}.RunSharedSetup(ctx, env, g, lv.SSHAddress, lv.CloudImage.SetupScript)
	case lv.IsCloneOf != "":
		backing := lv.BackingDiskPath
		clonePath := filepath.Join(env.WorkingDir, "artefacts", g.Name+".qcow2")
		_, err := env.Executor.Run(ctx, g.TestbedHost, []string{
			"qemu-img", "create", "-f", "qcow2", "-b", backing, "-F", "qcow2", clonePath,
		})
		return err
	default:
		return nil
	}
}

// RunSharedSetup boots the golden image in an isolated network, waits for
// SSH, pushes the shared setup script into the guest and runs it with sudo,
// then shuts the domain down. SetupImage calls it for a golden image that
// has a setup script; the driver sends that SetupImage batch between
// CreateTempNetwork and DestroyTempNetwork.
func (Libvirt) RunSharedSetup(ctx context.Context, env *Env, g *types.StateTestbedGuest, sshAddress, setupScript string) error {
	lv := g.MachineDef.Libvirt
	if _, err := env.Executor.Run(ctx, g.TestbedHost, []string{"virsh", "create", lv.DomainXMLPath}); err != nil {
		return err
	}

	if err := waitForSSH(ctx, env, g.TestbedHost, sshAddress); err != nil {
		return err
	}

	remoteScript := fmt.Sprintf("/tmp/%s-shared-setup.sh", g.Name)
	src := setupScript
	if g.TestbedHost != env.Executor.Master {
		if err := env.Executor.Push(ctx, g.TestbedHost, setupScript, remoteScript, true); err != nil {
			return err
		}
		src = remoteScript
	}
	if _, err := env.Executor.Run(ctx, g.TestbedHost, []string{"scp", src, sshAddress + ":" + remoteScript}); err != nil {
		return err
	}

	if _, err := env.Executor.Run(ctx, g.TestbedHost, []string{"ssh", sshAddress, "sudo", "bash", remoteScript}); err != nil {
		return err
	}

	domain := fmt.Sprintf("%s-%s", env.Project, g.Name)
	_, err := env.Executor.Run(ctx, g.TestbedHost, []string{"virsh", "destroy", domain}, exec.AllowFail())
	return err
}

// PushImage rsyncs the disk, domain XML, and cloud-init ISO to the guest's
// assigned host's project folder; a no-op when that host is the master.
func (Libvirt) PushImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error {
	lv := g.MachineDef.Libvirt
	remoteDir := RemoteProjectDir(env, g.TestbedHost)

	for _, f := range []string{lv.DiskPath, lv.DomainXMLPath, lv.CloudInitISO} {
		if f == "" {
			continue
		}
		if err := env.Executor.Push(ctx, g.TestbedHost, f, filepath.Join(remoteDir, filepath.Base(f)), true); err != nil {
			return err
		}
	}
	return nil
}

func (Libvirt) PullImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error {
	lv := g.MachineDef.Libvirt
	if lv.DiskPath == "" {
		return nil
	}
	return env.Executor.Pull(ctx, g.TestbedHost, lv.DiskPath, filepath.Join(RemoteProjectDir(env, g.TestbedHost), filepath.Base(lv.DiskPath)))
}

// RebaseImage rewrites the clone's backing-file metadata to point at the
// golden image's copy PushBackingImages placed in the remote project folder.
func (Libvirt) RebaseImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error {
	lv := g.MachineDef.Libvirt
	remoteBackingPath := filepath.Join(RemoteProjectDir(env, g.TestbedHost), filepath.Base(lv.BackingDiskPath))
	_, err := env.Executor.Run(ctx, g.TestbedHost, []string{
		"qemu-img", "rebase", "-u", "-f", "qcow2", "-b", remoteBackingPath, lv.DiskPath,
	})
	return err
}

// Create starts the domain and wires its TAP interfaces into the
// integration bridge.
func (Libvirt) Create(ctx context.Context, env *Env, g *types.StateTestbedGuest) error {
	if g.IsGoldenImage {
		return nil
	}
	lv := g.MachineDef.Libvirt

	if _, err := env.Executor.Run(ctx, g.TestbedHost, []string{"virsh", "create", lv.DomainXMLPath}); err != nil {
		return err
	}

	for idx, sw := range g.Interfaces {
		lspName := types.LogicalSwitchPortName(env.Project, sw, g.Name, idx)
		tap, err := types.InterfaceName(env.Project, g.GuestID, idx)
		if err != nil {
			return err
		}
		if _, err := env.Executor.Run(ctx, g.TestbedHost, []string{
			"ovs-vsctl", "--may-exist", "add-port", env.IntegrationBridge, tap,
			"--", "set", "interface", tap, fmt.Sprintf("external_ids:iface-id=%s", lspName),
		}); err != nil {
			return err
		}
	}

	return nil
}

// SetupAction waits until the guest answers on SSH, used by
// RunSetupScripts. It does not push or run any per-machine setup script,
// and a guest with no SSHAddress is skipped.
func (Libvirt) SetupAction(ctx context.Context, env *Env, g *types.StateTestbedGuest) error {
	lv := g.MachineDef.Libvirt
	if lv.SSHAddress == "" {
		return nil
	}
	return waitForSSH(ctx, env, g.TestbedHost, lv.SSHAddress)
}

func (Libvirt) Destroy(ctx context.Context, env *Env, g *types.StateTestbedGuest) error {
	if g.IsGoldenImage {
		return nil
	}

	_, err := env.Executor.Run(ctx, g.TestbedHost, []string{"virsh", "destroy", g.Name}, exec.AllowFail())

	for idx := range g.Interfaces {
		tap, terr := types.InterfaceName(env.Project, g.GuestID, idx)
		if terr != nil {
			continue
		}
		env.Executor.Run(ctx, g.TestbedHost, []string{"ovs-vsctl", "--if-exists", "del-port", env.IntegrationBridge, tap}, exec.AllowFail())
	}

	return err
}

func (Libvirt) IsUp(ctx context.Context, env *Env, g *types.StateTestbedGuest) (bool, error) {
	out, err := env.Executor.Run(ctx, g.TestbedHost, []string{"virsh", "domstate", g.Name}, exec.AllowFail())
	if err != nil {
		return false, err
	}
	return out == "running\n", nil
}

// RemoteProjectDir is where a non-master host stores a project's pushed
// artefacts: /home/<user>/testbed-projects/<project>/artefacts.
func RemoteProjectDir(env *Env, host string) string {
	user := "testbed"
	if h, ok := env.Hosts[host]; ok {
		user = h.Username
	}
	return filepath.Join("/home", user, "testbed-projects", env.Project, "artefacts")
}
