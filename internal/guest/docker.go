package guest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/exec"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// Docker is the container backend.
type Docker struct{}

func (Docker) SetupImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error  { return nil }
func (Docker) PushImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error   { return nil }
func (Docker) PullImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error   { return nil }
func (Docker) RebaseImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error { return nil }
func (Docker) SetupAction(ctx context.Context, env *Env, g *types.StateTestbedGuest) error { return nil }

// Create synthesizes `docker run -d --rm --net=none ...`, then attaches the
// container to the integration bridge via ovs-docker add-port.
func (Docker) Create(ctx context.Context, env *Env, g *types.StateTestbedGuest) error {
	d := g.MachineDef.Docker
	remoteDir := RemoteProjectDir(env, g.TestbedHost)

	existing, _ := env.Executor.Run(ctx, g.TestbedHost, []string{"docker", "ps", "-aq", "-f", fmt.Sprintf("name=^%s$", g.Name)}, exec.AllowFail())
	if strings.TrimSpace(existing) != "" {
		env.Executor.Run(ctx, g.TestbedHost, []string{"docker", "rm", "-f", g.Name}, exec.AllowFail())
	}

	args := []string{"docker", "run", "-d", "--rm", "--net=none", "--name", g.Name, "--hostname", d.Hostname}
	if d.Privileged {
		args = append(args, "--privileged")
	}
	if d.User != "" {
		args = append(args, "--user", d.User)
	}
	if d.Device != "" {
		args = append(args, "--device", d.Device)
	}
	if len(g.Gateways) > 0 && g.Gateways[0] != "" {
		args = append(args, "--dns", g.Gateways[0])
	}
	for k, v := range d.Env {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, v))
	}
	if d.EnvFile != "" {
		args = append(args, "--env-file", filepath.Join(remoteDir, filepath.Base(d.EnvFile)))
	}
	for _, v := range d.Volumes {
		args = append(args, "-v", strings.ReplaceAll(v, "${PWD}", remoteDir))
	}
	args = append(args, d.Image)
	if d.Entrypoint != "" {
		args = append(args, "--entrypoint", d.Entrypoint)
	}
	if d.Command != "" {
		args = append(args, d.Command)
	}

	if _, err := env.Executor.Run(ctx, g.TestbedHost, args); err != nil {
		return err
	}

	if len(g.Interfaces) == 0 {
		return fmt.Errorf("guest %s: docker backend requires at least one declared interface", g.Name)
	}
	lspName := types.LogicalSwitchPortName(env.Project, g.Interfaces[0], g.Name, 0)

	ip, err := ResolveIP(env.Network, lspName)
	if err != nil {
		return err
	}

	attach := []string{"ovs-docker", "add-port", env.IntegrationBridge, "eth0", g.Name, fmt.Sprintf("--ipaddress=%s", ip)}
	if lsp, ok := env.Network.SwitchPorts[lspName]; ok {
		attach = append(attach, fmt.Sprintf("--macaddress=%s", lsp.MacAddress))
	}
	if len(g.Gateways) > 0 && g.Gateways[0] != "" {
		attach = append(attach, fmt.Sprintf("--gateway=%s", g.Gateways[0]))
	}
	if _, err := env.Executor.Run(ctx, g.TestbedHost, attach); err != nil {
		return err
	}

	_, err = env.Executor.Run(ctx, g.TestbedHost, []string{
		"ovs-vsctl", "set", "interface", fmt.Sprintf("%s-eth0", g.Name),
		fmt.Sprintf("external_ids:iface-id=%s", lspName),
	})
	return err
}

func (Docker) Destroy(ctx context.Context, env *Env, g *types.StateTestbedGuest) error {
	env.Executor.Run(ctx, g.TestbedHost, []string{"ovs-docker", "del-port", env.IntegrationBridge, "eth0", g.Name}, exec.AllowFail())
	_, err := env.Executor.Run(ctx, g.TestbedHost, []string{"docker", "rm", "-f", g.Name}, exec.AllowFail())
	return err
}

func (Docker) IsUp(ctx context.Context, env *Env, g *types.StateTestbedGuest) (bool, error) {
	out, err := env.Executor.Run(ctx, g.TestbedHost, []string{"docker", "inspect", "-f", "{{.State.Running}}", g.Name}, exec.AllowFail())
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "true", nil
}
