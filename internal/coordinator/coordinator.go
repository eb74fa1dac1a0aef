package coordinator

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/This-is-UserNamee/WebQuiz/internal/registry"
	"github.com/This-is-UserNamee/WebQuiz/internal/session"
	"github.com/This-is-UserNamee/WebQuiz/internal/types"
)

const maxNameLength = 15

type Msg interface{ isCoordinatorMsg() }

type Connect struct {
	ConnID string
	Outbox chan<- types.ServerEvent
}

func (Connect) isCoordinatorMsg() {}

type Disconnect struct{ ConnID string }

func (Disconnect) isCoordinatorMsg() {}

// FromClient is one decoded wire message from a connection.
type FromClient struct {
	ConnID string
	Msg    types.ClientMessage
}

func (FromClient) isCoordinatorMsg() {}

// GetView reflects internal state without data races. Test-only.
type GetView struct{ Reply chan View }

func (GetView) isCoordinatorMsg() {}

type View struct {
	NumConns   int
	Registered int
	InRooms    int
}

type conn struct {
	outbox chan<- types.ServerEvent
	name   string // empty until registerPlayer succeeds
	roomID string
	sess   *session.Session
}

// Coordinator routes inbound connection events to the right room session
// and fans registry broadcasts out to every connection. No game logic lives
// here: guards beyond registration and room resolution belong to sessions.
type Coordinator struct {
	inbox chan Msg
	reg   *registry.Registry
	conns map[string]*conn

	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

func New(parent context.Context, log *zap.Logger, reg *registry.Registry) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	c := &Coordinator{
		inbox:  make(chan Msg, 64),
		reg:    reg,
		conns:  make(map[string]*conn),
		ctx:    ctx,
		cancel: cancel,
		log:    log.Named("coordinator"),
	}
	go c.loop()
	return c
}

func (c *Coordinator) Inbox() chan<- Msg { return c.inbox }

func (c *Coordinator) loop() {
	for {
		select {
		case <-c.ctx.Done():
			return

		case ev := <-c.reg.Events():
			c.handleRegistryEvent(ev)

		case m := <-c.inbox:
			switch msg := m.(type) {
			case Connect:
				c.conns[msg.ConnID] = &conn{outbox: msg.Outbox}
				c.log.Info("client connected", zap.String("conn", msg.ConnID))

			case Disconnect:
				c.handleDisconnect(msg.ConnID)

			case FromClient:
				c.route(msg.ConnID, msg.Msg)

			case GetView:
				msg.Reply <- c.view()
			}
		}
	}
}

func (c *Coordinator) handleDisconnect(connID string) {
	cn, ok := c.conns[connID]
	if !ok {
		return
	}
	if cn.sess != nil {
		cn.sess.Inbox() <- session.Leave{ConnID: connID, Reason: "disconnected"}
	}
	delete(c.conns, connID)
	c.log.Info("client disconnected", zap.String("conn", connID))
}

func (c *Coordinator) handleRegistryEvent(ev registry.Event) {
	switch e := ev.(type) {
	case registry.RoomListChanged:
		c.broadcastRoomList(e.Summaries)
	case registry.RoomRemoved:
		for _, cn := range c.conns {
			if cn.roomID == e.RoomID {
				cn.roomID = ""
				cn.sess = nil
			}
		}
		c.broadcastRoomList(e.Summaries)
	}
}

func (c *Coordinator) route(connID string, m types.ClientMessage) {
	cn, ok := c.conns[connID]
	if !ok {
		return
	}

	switch m.Type {
	case types.MsgRegisterPlayer:
		c.handleRegister(connID, cn, m.PlayerName)
		return
	case types.MsgCreateRoom:
		c.handleCreateRoom(connID, cn)
		return
	case types.MsgJoinRoom:
		c.handleJoinRoom(connID, cn, m.RoomID)
		return
	}

	// Everything below targets the room the connection is already in. A
	// payload naming a different room is a stale message and is dropped.
	if cn.sess == nil {
		return
	}
	if m.RoomID != "" && m.RoomID != cn.roomID {
		return
	}

	switch m.Type {
	case types.MsgLeaveRoom:
		cn.sess.Inbox() <- session.Leave{ConnID: connID, Reason: "left the room"}
		cn.roomID = ""
		cn.sess = nil
	case types.MsgDeleteRoom:
		cn.sess.Inbox() <- session.Delete{ConnID: connID}
	case types.MsgStartGame:
		cn.sess.Inbox() <- session.StartGame{ConnID: connID}
	case types.MsgReaderReady:
		cn.sess.Inbox() <- session.ReaderReady{ConnID: connID}
	case types.MsgBuzz:
		cn.sess.Inbox() <- session.Buzz{ConnID: connID}
	case types.MsgSubmitFragment:
		cn.sess.Inbox() <- session.SubmitFragment{ConnID: connID, Value: m.Value}
	default:
		c.log.Debug("unknown message type", zap.String("conn", connID), zap.String("type", m.Type))
	}
}

func (c *Coordinator) handleRegister(connID string, cn *conn, name string) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		c.sendError(cn, types.CodeInvalidName, "player name must be 1-15 characters")
		return
	}
	cn.name = name
	c.log.Info("player registered", zap.String("conn", connID), zap.String("name", name))
	c.send(cn, types.ServerEvent{Type: types.EvtPlayerRegistered, Data: types.RegisteredPayload{PlayerID: connID, PlayerName: name}})
	c.send(cn, types.ServerEvent{Type: types.EvtRoomListUpdate, Data: c.summaries()})
	// A re-registration while inside a room also renames the member there,
	// so room snapshots keep showing one coherent name.
	if cn.sess != nil {
		cn.sess.Inbox() <- session.Rename{ConnID: connID, Name: name}
	}
}

func (c *Coordinator) handleCreateRoom(connID string, cn *conn) {
	if cn.name == "" {
		c.sendError(cn, types.CodeNotRegistered, "register a player name first")
		return
	}
	if cn.sess != nil {
		return
	}
	reply := make(chan *session.Session, 1)
	c.reg.Inbox() <- registry.Create{HostConnID: connID, HostName: cn.name, Outbox: cn.outbox, Reply: reply}
	sess := <-reply
	cn.roomID = sess.ID()
	cn.sess = sess
}

func (c *Coordinator) handleJoinRoom(connID string, cn *conn, roomID string) {
	if cn.name == "" {
		c.sendError(cn, types.CodeNotRegistered, "register a player name first")
		return
	}
	if cn.sess != nil {
		return
	}
	sess := c.lookup(roomID)
	if sess == nil {
		c.sendError(cn, types.CodeRoomNotFound, "room not found")
		return
	}
	reply := make(chan bool, 1)
	sess.Inbox() <- session.Join{ConnID: connID, Name: cn.name, Outbox: cn.outbox, Reply: reply}
	if <-reply {
		cn.roomID = roomID
		cn.sess = sess
	}
}

func (c *Coordinator) lookup(roomID string) *session.Session {
	if roomID == "" {
		return nil
	}
	reply := make(chan *session.Session, 1)
	c.reg.Inbox() <- registry.Get{RoomID: roomID, Reply: reply}
	return <-reply
}

func (c *Coordinator) summaries() []types.RoomSummary {
	reply := make(chan []types.RoomSummary, 1)
	c.reg.Inbox() <- registry.Summaries{Reply: reply}
	return <-reply
}

func (c *Coordinator) broadcastRoomList(list []types.RoomSummary) {
	ev := types.ServerEvent{Type: types.EvtRoomListUpdate, Data: list}
	for _, cn := range c.conns {
		c.send(cn, ev)
	}
}

func (c *Coordinator) send(cn *conn, ev types.ServerEvent) {
	select {
	case cn.outbox <- ev:
	default:
		c.log.Warn("dropping event for slow client", zap.String("event", ev.Type))
	}
}

func (c *Coordinator) sendError(cn *conn, code, message string) {
	c.send(cn, types.ServerEvent{Type: types.EvtError, Data: types.ErrorPayload{Code: code, Message: message}})
}

func (c *Coordinator) view() View {
	v := View{NumConns: len(c.conns)}
	for _, cn := range c.conns {
		if cn.name != "" {
			v.Registered++
		}
		if cn.sess != nil {
			v.InRooms++
		}
	}
	return v
}
