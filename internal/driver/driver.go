package driver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/proto"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

func marshalPayload(v interface{}) (json.RawMessage, error) {
	return json.Marshal(v)
}

// LogSink receives every OrchestrationLogger frame the server interleaves
// while an instruction runs. A nil sink discards log lines.
type LogSink func(proto.OrchestrationLogger)

// Driver runs one high-level command's fixed instruction sequence over a
// Conn, aborting on the first failed response.
type Driver struct {
	Conn Conn
	Logs LogSink
}

func New(conn Conn, logs LogSink) *Driver {
	return &Driver{Conn: conn, Logs: logs}
}

// Execute sends one instruction and blocks until its terminal response
// arrives, routing interleaved log frames to d.Logs. It returns an error
// if the transport fails or the response reports failure.
func (d *Driver) Execute(ctx context.Context, i proto.Instruction) (proto.OrchestrationProtocolResponse, error) {
	if err := d.Conn.Send(ctx, i); err != nil {
		return proto.OrchestrationProtocolResponse{}, fmt.Errorf("sending %s: %w", i.Kind, err)
	}

	for {
		frame, err := d.Conn.Next(ctx)
		if err != nil {
			return proto.OrchestrationProtocolResponse{}, fmt.Errorf("awaiting response to %s: %w", i.Kind, err)
		}
		switch {
		case frame.Log != nil:
			if d.Logs != nil {
				d.Logs(*frame.Log)
			}
		case frame.Response != nil:
			if !frame.Response.Succeeded() {
				return *frame.Response, fmt.Errorf("instruction %s failed", i.Kind)
			}
			return *frame.Response, nil
		}
		// Ack frames and End-of-log markers carry no information the
		// driver acts on; keep waiting for the response.
	}
}

// Cancel sends the out-of-band abort frame and waits for the server's
// close, used from a SIGINT handler while an instruction is in flight.
func (d *Driver) Cancel(ctx context.Context) error {
	if err := d.Conn.SendCancel(ctx); err != nil {
		return err
	}
	for {
		if _, err := d.Conn.Next(ctx); err != nil {
			return nil
		}
	}
}

// init sends the mandatory first frame on a fresh connection. Init gets
// no response frame (every other instruction does), so this only sends.
func (d *Driver) init(ctx context.Context, deploymentID string, cmd proto.Command) error {
	i, err := proto.NewInit(deploymentID, cmd)
	if err != nil {
		return err
	}
	return d.Conn.Send(ctx, i)
}

func (d *Driver) batch(ctx context.Context, kind proto.Kind, resources []proto.Resource) error {
	if len(resources) == 0 {
		return nil
	}
	i, err := proto.NewBatch(kind, resources)
	if err != nil {
		return err
	}
	_, err = d.Execute(ctx, i)
	return err
}

func (d *Driver) bare(ctx context.Context, kind proto.Kind) error {
	_, err := d.Execute(ctx, proto.Instruction{Kind: kind})
	return err
}

// RunUp drives `Up`: bring the cluster network up, provision images on
// first run (or when forced), push and rebase clone backing images, then
// deploy every non-golden guest and run setup scripts.
func (d *Driver) RunUp(ctx context.Context, deploymentID string, state *types.State, force bool) error {
	if err := d.init(ctx, deploymentID, proto.CommandUp); err != nil {
		return err
	}
	if err := d.bare(ctx, proto.KindTestbedHostCheck); err != nil {
		return err
	}
	if err := d.bare(ctx, proto.KindSetup); err != nil {
		return err
	}

	for _, stage := range networkUpStages(&state.Network) {
		if err := d.batch(ctx, stage.kind, stage.resources); err != nil {
			return err
		}
	}

	if !state.StateProvisioning.GuestsProvisioned || force {
		if anyGoldenImageHasSharedSetup(state) {
			if err := d.bare(ctx, proto.KindCreateTempNetwork); err != nil {
				return err
			}
			if err := d.batch(ctx, proto.KindSetupImage, stageSetupBackingImages(state)); err != nil {
				return err
			}
			if err := d.bare(ctx, proto.KindDestroyTempNetwork); err != nil {
				return err
			}
		} else if err := d.batch(ctx, proto.KindSetupImage, stageSetupBackingImages(state)); err != nil {
			return err
		}

		if err := d.batch(ctx, proto.KindSetupImage, stageSetupLinkedClones(state)); err != nil {
			return err
		}
	}

	if err := d.batch(ctx, proto.KindPushArtefacts, stagePushGuestImages(state)); err != nil {
		return err
	}
	if err := d.batch(ctx, proto.KindPushBackingImages, stagePushBackingGuestImages(state)); err != nil {
		return err
	}
	if err := d.batch(ctx, proto.KindRebaseRemoteBackingImages, stageRebaseCloneImages(state)); err != nil {
		return err
	}
	if err := d.batch(ctx, proto.KindDeploy, stageDeployDestroyGuests(state)); err != nil {
		return err
	}

	if !state.StateProvisioning.GuestsProvisioned || force {
		if err := d.batch(ctx, proto.KindRunSetupScripts, stageRunGuestSetupScripts(state)); err != nil {
			return err
		}
	}

	return nil
}

// RunDown drives `Down`: destroy every live guest, tear down any lingering
// temporary install network, then remove the OVN network in exactly the
// reverse of the order Up created it.
func (d *Driver) RunDown(ctx context.Context, deploymentID string, state *types.State) error {
	if err := d.init(ctx, deploymentID, proto.CommandDown); err != nil {
		return err
	}
	if err := d.bare(ctx, proto.KindTestbedHostCheck); err != nil {
		return err
	}
	if err := d.batch(ctx, proto.KindDestroy, stageDeployDestroyGuests(state)); err != nil {
		return err
	}
	if err := d.bare(ctx, proto.KindDestroyTempNetwork); err != nil {
		return err
	}
	for _, stage := range networkDownStages(&state.Network) {
		if err := d.batch(ctx, stage.kind, stage.resources); err != nil {
			return err
		}
	}
	return nil
}

// RunGenerateArtefacts drives `GenerateArtefacts`: Init followed by the
// single GenerateArtefacts instruction.
func (d *Driver) RunGenerateArtefacts(ctx context.Context, deploymentID, projectPath string, uid, gid int) error {
	if err := d.init(ctx, deploymentID, proto.CommandGenerateArtefacts); err != nil {
		return err
	}
	i, err := proto.NewGenerateArtefacts(projectPath, uid, gid)
	if err != nil {
		return err
	}
	_, err = d.Execute(ctx, i)
	return err
}

// RunClearArtefacts drives `ClearArtefacts`: Init followed by the single
// ClearArtefacts instruction.
func (d *Driver) RunClearArtefacts(ctx context.Context, deploymentID string) error {
	if err := d.init(ctx, deploymentID, proto.CommandClearArtefacts); err != nil {
		return err
	}
	return d.bare(ctx, proto.KindClearArtefacts)
}

// RunSingle drives every other command (Snapshot, TestbedSnapshot, Exec,
// AnalysisTool, ListCloudImages): Init followed by exactly one instruction
// carrying the given payload.
func (d *Driver) RunSingle(ctx context.Context, deploymentID string, cmd proto.Command, kind proto.Kind, payload interface{}) (proto.OrchestrationProtocolResponse, error) {
	if err := d.init(ctx, deploymentID, cmd); err != nil {
		return proto.OrchestrationProtocolResponse{}, err
	}
	i := proto.Instruction{Kind: kind}
	if payload != nil {
		b, err := marshalPayload(payload)
		if err != nil {
			return proto.OrchestrationProtocolResponse{}, err
		}
		i.Payload = b
	}
	return d.Execute(ctx, i)
}
