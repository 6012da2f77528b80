package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	log "github.com/activeshadow/libminimega/minilog"
	"github.com/gorilla/websocket"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/executor"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/proto"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 30 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsConn is the gorilla/websocket-backed executor.ServerConn: instructions
// arrive as binary frames, acks/logs/responses go out as text frames, per
// the protocol's wire format. buffered holds the Init instruction read
// during the upgrade handshake (needed to resolve the deployment's State
// before a Session can be built), replayed on the first call to Next.
type wsConn struct {
	conn     *websocket.Conn
	buffered *proto.Instruction
}

func (c *wsConn) Next(ctx context.Context) (proto.Instruction, error) {
	if c.buffered != nil {
		instr := *c.buffered
		c.buffered = nil
		return instr, nil
	}

	kind, body, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return proto.Instruction{}, executor.ErrConnClosed
		}
		return proto.Instruction{}, err
	}
	if kind != websocket.BinaryMessage {
		return proto.Instruction{}, nil
	}

	var instr proto.Instruction
	if err := json.Unmarshal(body, &instr); err != nil {
		return proto.Instruction{}, err
	}
	return instr, nil
}

func (c *wsConn) SendAck(ctx context.Context, text string) error {
	return c.writeText(map[string]string{"ack": text})
}

func (c *wsConn) SendLog(ctx context.Context, frame proto.OrchestrationLogger) error {
	return c.writeText(frame)
}

func (c *wsConn) SendResponse(ctx context.Context, resp proto.OrchestrationProtocolResponse) error {
	return c.writeText(resp)
}

func (c *wsConn) writeText(v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, body)
}

func (c *wsConn) Close(code int, reason string) error {
	msg := websocket.FormatCloseMessage(code, reason)
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	c.conn.WriteMessage(websocket.CloseMessage, msg)
	return c.conn.Close()
}

// readInit blocks for the connection's mandatory first frame and decodes
// its payload, without yet handing the connection to a Session — the
// server needs the deployment ID out of it to load the right State first.
func readInit(conn *websocket.Conn) (proto.Instruction, proto.InitPayload, error) {
	kind, body, err := conn.ReadMessage()
	if err != nil {
		return proto.Instruction{}, proto.InitPayload{}, err
	}
	if kind != websocket.BinaryMessage {
		return proto.Instruction{}, proto.InitPayload{}, nil
	}

	var instr proto.Instruction
	if err := json.Unmarshal(body, &instr); err != nil {
		return proto.Instruction{}, proto.InitPayload{}, err
	}

	var init proto.InitPayload
	if instr.Kind == proto.KindInit {
		if err := instr.Decode(&init); err != nil {
			return instr, proto.InitPayload{}, err
		}
	}

	return instr, init, nil
}

// ServeOrchestration upgrades the connection, reads its mandatory Init
// frame to learn which deployment it drives, loads that deployment's State
// from the store, and hands the rest of the connection to a Session.
func (s *Server) ServeOrchestration(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("upgrading orchestration connection: %v", err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	initFrame, initPayload, err := readInit(conn)
	if err != nil || initFrame.Kind != proto.KindInit {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(executor.CloseUnexpectedFail, "first frame must be init"))
		conn.Close()
		return
	}

	deployment, err := s.Store.GetDeployment(initPayload.DeploymentID)
	if err != nil {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(executor.CloseUnexpectedFail, "unknown deployment"))
		conn.Close()
		return
	}

	state, err := s.Store.GetState(initPayload.DeploymentID)
	if err != nil {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(executor.CloseUnexpectedFail, "deployment has no planned state"))
		conn.Close()
		return
	}

	ex, err := executor.New(state, deployment.ProjectLocation, deployment.ProjectLocation)
	if err != nil {
		log.Error("building executor for deployment %s: %v", deployment.Name, err)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(executor.CloseUnexpectedFail, err.Error()))
		conn.Close()
		return
	}

	stopPing := make(chan struct{})
	go func() {
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()
	defer close(stopPing)

	session := &executor.Session{
		Conn:     &wsConn{conn: conn, buffered: &initFrame},
		Executor: ex,
		OnStatus: func(deploymentID string, state types.DeploymentState) {
			d, err := s.Store.GetDeployment(deploymentID)
			if err != nil {
				log.Error("recording final state for unknown deployment %s: %v", deploymentID, err)
				return
			}
			if state == types.StateFailed {
				d.Fail(string(initPayload.Command))
			} else {
				d.State = state
			}
			if err := s.Store.PutDeployment(d); err != nil {
				log.Error("persisting deployment %s state: %v", deploymentID, err)
			}
		},
	}

	if err := session.Run(r.Context()); err != nil {
		log.Warn("orchestration session for deployment %s ended: %v", deployment.Name, err)
	}
}
