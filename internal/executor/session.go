package executor

import (
	"context"
	"errors"
	"fmt"

	log "github.com/activeshadow/libminimega/minilog"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/proto"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// CloseCode mirrors the handful of WebSocket close codes this protocol
// actually sends, kept as plain ints so this package doesn't need to import
// gorilla/websocket just for its constants.
const (
	CloseNormal         = 1000
	CloseUnexpectedFail = 1011
)

// ErrConnClosed is what a ServerConn's Next returns once the driver has
// ended the connection normally (its instruction sequence is done), as
// opposed to a transport failure mid-sequence.
var ErrConnClosed = errors.New("orchestration connection closed")

// ServerConn is the transport a Session reads instructions from and writes
// frames to. A production implementation wraps a gorilla/websocket
// connection accepted at /api/orchestration; tests use an in-memory fake.
type ServerConn interface {
	Next(ctx context.Context) (proto.Instruction, error)
	SendAck(ctx context.Context, text string) error
	SendLog(ctx context.Context, frame proto.OrchestrationLogger) error
	SendResponse(ctx context.Context, resp proto.OrchestrationProtocolResponse) error
	Close(code int, reason string) error
}

// Session drives one connection end to end: validates the mandatory Init
// frame, dispatches every subsequent instruction to an Executor, and
// reports the deployment's final status through OnStatus when the
// connection ends.
type Session struct {
	Conn     ServerConn
	Executor *Executor
	// OnStatus is called once, when the session ends, with the deployment
	// ID and the state its run settled into. Left nil in tests that don't
	// care about persistence.
	OnStatus func(deploymentID string, state types.DeploymentState)
}

// Run blocks until the connection ends: normally once the driver's
// instruction sequence finishes and it hangs up, early on Cancel, or on a
// transport error mid-sequence.
func (s *Session) Run(ctx context.Context) error {
	first, err := s.Conn.Next(ctx)
	if err != nil {
		return fmt.Errorf("reading init frame: %w", err)
	}
	if first.Kind != proto.KindInit {
		s.Conn.Close(CloseUnexpectedFail, "first frame must be init")
		return fmt.Errorf("first frame was %q, not init", first.Kind)
	}

	var initPayload proto.InitPayload
	if err := first.Decode(&initPayload); err != nil {
		s.Conn.Close(CloseUnexpectedFail, "malformed init payload")
		return fmt.Errorf("decoding init payload: %w", err)
	}

	log.Info("orchestration session started for deployment %s, command %s", initPayload.DeploymentID, initPayload.Command)

	status := s.runInstructions(ctx, initPayload)

	if s.OnStatus != nil {
		s.OnStatus(initPayload.DeploymentID, status)
	}

	return nil
}

// runInstructions is the main loop: read one instruction, dispatch it, send
// its response, repeat — except for Cancel, which aborts the session,
// reports a generic failure, and closes the connection with code 1000.
func (s *Session) runInstructions(ctx context.Context, init proto.InitPayload) types.DeploymentState {
	for {
		instr, err := s.Conn.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrConnClosed) {
				return s.finalStatus(init.Command, true)
			}
			log.Warn("orchestration session %s: connection lost: %v", init.DeploymentID, err)
			return s.finalStatus(init.Command, false)
		}

		if instr.Kind == proto.KindCancel {
			s.Conn.SendResponse(ctx, proto.NewGenericResponse(false, "cancelled"))
			s.Conn.Close(CloseNormal, "cancelled")
			return s.finalStatus(init.Command, false)
		}

		if err := s.Conn.SendAck(ctx, string(instr.Kind)); err != nil {
			log.Warn("orchestration session %s: sending ack: %v", init.DeploymentID, err)
		}

		resp, err := s.Executor.Dispatch(ctx, instr)
		if err != nil {
			resp = proto.NewGenericResponse(false, err.Error())
		}

		if sendErr := s.Conn.SendResponse(ctx, resp); sendErr != nil {
			log.Warn("orchestration session %s: sending response: %v", init.DeploymentID, sendErr)
			return s.finalStatus(init.Command, false)
		}

		if !resp.Succeeded() {
			s.Conn.Close(CloseNormal, fmt.Sprintf("%s failed", instr.Kind))
			return s.finalStatus(init.Command, false)
		}
	}
}

// finalStatus maps the high-level command this session drove, plus whether
// it ran to completion, onto the deployment state the caller's state store
// should record.
func (s *Session) finalStatus(cmd proto.Command, succeeded bool) types.DeploymentState {
	if !succeeded {
		return types.StateFailed
	}
	switch cmd {
	case proto.CommandDown, proto.CommandClearArtefacts:
		return types.StateDown
	default:
		return types.StateUp
	}
}
