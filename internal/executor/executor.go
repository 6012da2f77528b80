// Package executor is the server side of the orchestration protocol: given
// a deployment's State, it turns one proto.Instruction into the shell-outs,
// file writes, and guest-backend calls that instruction names, and reports
// back the OrchestrationProtocolResponse the driver is waiting for.
package executor

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/exec"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/guest"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/proto"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// IntegrationBridge names the OVS bridge every guest's port and the OVN
// chassis mapping attach to. It is fixed rather than user-configurable: the
// YAML schema describes logical switches/routers, never host bridge names.
const IntegrationBridge = "testbedos-br0"

// Executor holds everything one connection's instructions run against: the
// deployment's State plus the remote-exec and guest-backend wiring built
// from it.
type Executor struct {
	State      *types.State
	Exec       *exec.Executor
	GuestEnv   *guest.Env
	MasterHost string
}

// New builds an Executor for state. It fails if state has no host marked
// master, since every instruction either runs there directly or uses it as
// the northbound database host.
func New(state *types.State, project, workingDir string) (*Executor, error) {
	master, _, err := state.MasterHost()
	if err != nil {
		return nil, errors.Wrap(err, "resolving master host")
	}

	ex := exec.New(master, state.TestbedHosts)

	return &Executor{
		State:      state,
		Exec:       ex,
		MasterHost: master,
		GuestEnv: &guest.Env{
			Project:           project,
			WorkingDir:        workingDir,
			Executor:          ex,
			Network:           &state.Network,
			Hosts:             state.TestbedHosts,
			IntegrationBridge: IntegrationBridge,
		},
	}, nil
}

// Dispatch runs one instruction and returns the response the driver expects
// for it. Init and Cancel never reach here: the session loop that owns the
// connection handles both before any instruction is dispatched.
func (x *Executor) Dispatch(ctx context.Context, i proto.Instruction) (proto.OrchestrationProtocolResponse, error) {
	switch i.Kind {
	case proto.KindTestbedHostCheck:
		return x.testbedHostCheck(ctx), nil
	case proto.KindSetup:
		return x.setup(ctx), nil
	case proto.KindCreateTempNetwork:
		return x.createTempNetwork(ctx), nil
	case proto.KindDestroyTempNetwork:
		return x.destroyTempNetwork(ctx), nil
	case proto.KindGenerateArtefacts:
		var p proto.GenerateArtefactsPayload
		if err := i.Decode(&p); err != nil {
			return proto.NewGenericResponse(false, err.Error()), nil
		}
		return x.generateArtefacts(ctx, p), nil
	case proto.KindClearArtefacts:
		return x.clearArtefacts(ctx), nil

	case proto.KindDeploy, proto.KindDestroy, proto.KindSetupImage,
		proto.KindPushArtefacts, proto.KindRebaseRemoteBackingImages, proto.KindRunSetupScripts:
		resources, err := decodeResources(i)
		if err != nil {
			return proto.NewGenericResponse(false, err.Error()), nil
		}
		return x.guestBatch(ctx, i.Kind, resources), nil

	case proto.KindPushBackingImages:
		resources, err := decodeResources(i)
		if err != nil {
			return proto.NewGenericResponse(false, err.Error()), nil
		}
		return x.pushBackingImages(ctx, resources), nil

	case proto.KindAddSwitch, proto.KindRemoveSwitch,
		proto.KindAddSwitchPort, proto.KindRemoveSwitchPort,
		proto.KindAddRouter, proto.KindRemoveRouter,
		proto.KindAddRouterPort, proto.KindRemoveRouterPort,
		proto.KindAddOvsPort, proto.KindRemoveOvsPort,
		proto.KindAddRoute, proto.KindRemoveRoute,
		proto.KindAddExternalGateway, proto.KindRemoveExternalGateway,
		proto.KindAddNat, proto.KindRemoveNat,
		proto.KindAddDhcp, proto.KindRemoveDhcp,
		proto.KindAddAcl, proto.KindRemoveAcl:
		resources, err := decodeResources(i)
		if err != nil {
			return proto.NewGenericResponse(false, err.Error()), nil
		}
		return x.networkBatch(ctx, i.Kind, resources), nil

	default:
		return proto.NewGenericResponse(false, fmt.Sprintf("unhandled instruction kind %q", i.Kind)), nil
	}
}

func decodeResources(i proto.Instruction) ([]proto.Resource, error) {
	var p proto.BatchPayload
	if err := i.Decode(&p); err != nil {
		return nil, errors.Wrapf(err, "decoding %s payload", i.Kind)
	}
	return p.Resources, nil
}
