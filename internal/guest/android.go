package guest

import (
	"context"
	"fmt"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/exec"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// emulatorPort is always 5554: the emulator runs alone inside its own
// network namespace, so there is never a second instance to collide with.
const emulatorPort = "emulator-5554"

// Android is the AVD-emulator backend. Each guest runs inside its
// own network namespace for full isolation from the host's network.
type Android struct{}

func (Android) SetupImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error  { return nil }
func (Android) PushImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error   { return nil }
func (Android) PullImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error   { return nil }
func (Android) RebaseImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error { return nil }
func (Android) SetupAction(ctx context.Context, env *Env, g *types.StateTestbedGuest) error { return nil }

func namespaceName(project, guest string) string {
	return fmt.Sprintf("%s-%s-nmspc", project, guest)
}

// Create builds the isolated namespace, attaches an OVS internal port to
// it, addresses it, and launches the emulator inside the namespace as a
// background process.
func (Android) Create(ctx context.Context, env *Env, g *types.StateTestbedGuest) error {
	ns := namespaceName(env.Project, g.Name)

	steps := [][]string{
		{"ip", "netns", "add", ns},
		{"ip", "netns", "exec", ns, "ip", "link", "set", "lo", "up"},
	}
	for _, s := range steps {
		if _, err := env.Executor.Run(ctx, g.TestbedHost, s); err != nil {
			return err
		}
	}

	if len(g.Interfaces) == 0 {
		return fmt.Errorf("guest %s: android backend requires at least one declared interface", g.Name)
	}
	lspName := types.LogicalSwitchPortName(env.Project, g.Interfaces[0], g.Name, 0)

	portName := fmt.Sprintf("ovs-%s", g.Name)
	if _, err := env.Executor.Run(ctx, g.TestbedHost, []string{
		"ovs-vsctl", "--may-exist", "add-port", env.IntegrationBridge, portName,
		"--", "set", "interface", portName, "type=internal",
		fmt.Sprintf("external_ids:iface-id=%s", lspName),
	}); err != nil {
		return err
	}

	if _, err := env.Executor.Run(ctx, g.TestbedHost, []string{"ip", "link", "set", portName, "netns", ns}); err != nil {
		return err
	}

	lsp, ok := env.Network.SwitchPorts[lspName]
	if !ok {
		return fmt.Errorf("no logical switch port %s for guest %s", lspName, g.Name)
	}

	ip, err := ResolveIP(env.Network, lspName)
	if err != nil {
		return err
	}

	nsCmds := [][]string{
		{"ip", "netns", "exec", ns, "ip", "link", "set", portName, "address", string(lsp.MacAddress)},
		{"ip", "netns", "exec", ns, "ip", "addr", "add", ip, "dev", portName},
		{"ip", "netns", "exec", ns, "ip", "link", "set", portName, "up"},
	}
	for _, c := range nsCmds {
		if _, err := env.Executor.Run(ctx, g.TestbedHost, c); err != nil {
			return err
		}
	}

	if len(g.Gateways) > 0 && g.Gateways[0] != "" {
		if _, err := env.Executor.Run(ctx, g.TestbedHost, []string{
			"ip", "netns", "exec", ns, "ip", "route", "add", "default", "via", g.Gateways[0],
		}); err != nil {
			return err
		}
	}

	avdName := fmt.Sprintf("%s-%s", env.Project, g.Name)
	_, err = env.Executor.Run(ctx, g.TestbedHost, []string{
		"ip", "netns", "exec", ns, "emulator", "-avd", avdName, "-no-window",
	}, exec.Background())
	return err
}

func (Android) Destroy(ctx context.Context, env *Env, g *types.StateTestbedGuest) error {
	ns := namespaceName(env.Project, g.Name)

	env.Executor.Run(ctx, g.TestbedHost, []string{"adb", "-s", emulatorPort, "emu", "kill"}, exec.AllowFail())

	portName := fmt.Sprintf("ovs-%s", g.Name)
	env.Executor.Run(ctx, g.TestbedHost, []string{"ovs-vsctl", "--if-exists", "del-port", env.IntegrationBridge, portName}, exec.AllowFail())

	_, err := env.Executor.Run(ctx, g.TestbedHost, []string{"ip", "netns", "del", ns}, exec.AllowFail())
	return err
}

func (Android) IsUp(ctx context.Context, env *Env, g *types.StateTestbedGuest) (bool, error) {
	ns := namespaceName(env.Project, g.Name)
	_, err := env.Executor.Run(ctx, g.TestbedHost, []string{"ip", "netns", "exec", ns, "adb", "-s", emulatorPort, "get-state"}, exec.AllowFail())
	return err == nil, nil
}
