// Package guest holds the three backend adapters: libvirt, docker,
// android. Each implements the Backend contract; the stage executor
// (internal/executor) dispatches to the right one via the registry below,
// following the teacher's App-plugin pattern (app/app.go).
package guest

import (
	"context"
	"fmt"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/exec"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/ovn"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// Backend is the contract every guest adapter implements.
type Backend interface {
	SetupImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error
	PushImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error
	PullImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error
	RebaseImage(ctx context.Context, env *Env, g *types.StateTestbedGuest) error
	Create(ctx context.Context, env *Env, g *types.StateTestbedGuest) error
	SetupAction(ctx context.Context, env *Env, g *types.StateTestbedGuest) error
	Destroy(ctx context.Context, env *Env, g *types.StateTestbedGuest) error
	IsUp(ctx context.Context, env *Env, g *types.StateTestbedGuest) (bool, error)
}

// Env carries everything an adapter needs about the surrounding deployment:
// the project's name and working directory, the executor to run commands
// through, and the logical network to resolve "dynamic" addresses against.
type Env struct {
	Project     string
	WorkingDir  string
	Executor    *exec.Executor
	Network     *ovn.Network
	Hosts       map[string]types.TestbedHost
	IntegrationBridge string
}

var backends = map[string]Backend{}

func init() {
	backends["libvirt"] = &Libvirt{}
	backends["docker"] = &Docker{}
	backends["android"] = &Android{}
}

// For returns the Backend matching the guest's machine-definition kind.
func For(g *types.StateTestbedGuest) (Backend, error) {
	kind := g.MachineDef.Kind()
	b, ok := backends[kind]
	if !ok {
		return nil, fmt.Errorf("guest %s: no backend for kind %q", g.Name, kind)
	}
	return b, nil
}

// ResolveIP resolves a MachineNetwork-declared address against the OVN
// model: the guest's logical switch port is looked up and its literal IP
// passes through. For a port whose IP is "dynamic" it returns the string
// "dynamic"; the address OVN assigned to the port is not queried.
func ResolveIP(net *ovn.Network, lspName string) (string, error) {
	lsp, ok := net.SwitchPorts[lspName]
	if !ok {
		return "", fmt.Errorf("no logical switch port named %s", lspName)
	}
	if lsp.IP.Kind == ovn.IPKindDynamic {
		return "dynamic", nil
	}
	return lsp.IP.String(), nil
}
