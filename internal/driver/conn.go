package driver

import (
	"context"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/proto"
)

// Frame is one inbound frame on the orchestration WebSocket. Exactly one
// field is set: Ack for the short text acknowledgement, Log for an
// interleaved OrchestrationLogger frame, or Response for the terminal
// OrchestrationProtocolResponse.
type Frame struct {
	Ack      *string
	Log      *proto.OrchestrationLogger
	Response *proto.OrchestrationProtocolResponse
}

// Conn is the transport the driver sends instructions over and reads
// frames from. A production Conn wraps a gorilla/websocket connection;
// tests use an in-memory fake.
type Conn interface {
	Send(ctx context.Context, i proto.Instruction) error
	SendCancel(ctx context.Context) error
	Next(ctx context.Context) (Frame, error)
	Close() error
}
