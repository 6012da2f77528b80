package cluster

import (
	"context"
	"fmt"

	log "github.com/activeshadow/libminimega/minilog"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/exec"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// ConfigureHost brings one host up to the state cluster membership
// requires of it: its testbed NIC up, OVS/ovn-controller (and, on the
// master, ovn-northd) running, external bridges created, and OVS
// external-ids pointed at the right chassis/remote. Called once for the
// master at its own startup and once per client as it joins.
func ConfigureHost(ctx context.Context, ex *exec.Executor, host types.ClusterHostConfig, mainInterface string) error {
	log.Info("cluster: configuring host %s", host.Name)

	if host.TestbedNIC != "" {
		if _, err := ex.Run(ctx, host.Name, []string{"sudo", "ip", "link", "set", host.TestbedNIC, "up"}, exec.AllowFail()); err != nil {
			return fmt.Errorf("bringing up testbed NIC on %s: %w", host.Name, err)
		}
	}

	if err := ConfigureHostOVN(ctx, ex, host.Name, host.Ovn, mainInterface, host.IsMasterHost); err != nil {
		return fmt.Errorf("configuring OVN on %s: %w", host.Name, err)
	}

	return EnsureServicesUp(ctx, ex, host.Name)
}

// EnsureServicesUp starts the two daemons every guest backend needs
// regardless of which kind it ends up deploying: libvirtd for VM guests,
// docker for container guests. Both calls tolerate the service already
// being up.
func EnsureServicesUp(ctx context.Context, ex *exec.Executor, host string) error {
	if _, err := ex.Run(ctx, host, []string{"sudo", "systemctl", "start", "libvirtd"}, exec.AllowFail()); err != nil {
		return err
	}
	_, err := ex.Run(ctx, host, []string{"sudo", "systemctl", "start", "docker.service"}, exec.AllowFail())
	return err
}
