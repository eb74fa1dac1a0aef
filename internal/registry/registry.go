package registry

import (
	"context"
	"crypto/rand"
	"math/big"
	"sort"

	"go.uber.org/zap"

	"github.com/This-is-UserNamee/WebQuiz/internal/question"
	"github.com/This-is-UserNamee/WebQuiz/internal/session"
	"github.com/This-is-UserNamee/WebQuiz/internal/types"
)

type Msg interface{ isRegistryMsg() }

// Create builds a room with the requester as host.
type Create struct {
	HostConnID string
	HostName   string
	Outbox     chan<- types.ServerEvent
	Reply      chan *session.Session
}

func (Create) isRegistryMsg() {}

type Get struct {
	RoomID string
	Reply  chan *session.Session // nil when not found
}

func (Get) isRegistryMsg() {}

// Summaries is the read-only lobby projection, recomputed on demand.
type Summaries struct {
	Reply chan []types.RoomSummary
}

func (Summaries) isRegistryMsg() {}

type ShutdownAll struct{}

func (ShutdownAll) isRegistryMsg() {}

// Event is what the registry reports to whoever fans out global broadcasts.
type Event interface{ isRegistryEvent() }

// RoomListChanged carries a fresh lobby snapshot for broadcast to every
// connection.
type RoomListChanged struct {
	Summaries []types.RoomSummary
}

func (RoomListChanged) isRegistryEvent() {}

// RoomRemoved additionally names the dead room so connection->room mappings
// can be dropped.
type RoomRemoved struct {
	RoomID    string
	Summaries []types.RoomSummary
}

func (RoomRemoved) isRegistryEvent() {}

// Registry owns the live room map. Sessions report membership and lifecycle
// changes through a shared notice channel; the registry keeps a summary
// cache from those notices and re-broadcasts the lobby list on every change.
type Registry struct {
	inbox   chan Msg
	events  chan Event
	notices chan session.Notice

	rooms     map[string]*session.Session
	summaries map[string]types.RoomSummary

	bank []question.Question
	d    session.Durations

	// Outbound events awaiting a slow consumer. Holding them here instead
	// of dropping matters for RoomRemoved: it is the only signal that
	// clears connection-to-room mappings downstream.
	pending []Event

	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

func New(parent context.Context, log *zap.Logger, bank []question.Question, d session.Durations) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:     make(chan Msg, 64),
		events:    make(chan Event, 64),
		notices:   make(chan session.Notice, 64),
		rooms:     make(map[string]*session.Session),
		summaries: make(map[string]types.RoomSummary),
		bank:      bank,
		d:         d,
		ctx:       ctx,
		cancel:    cancel,
		log:       log.Named("registry"),
	}
	go r.loop()
	return r
}

func (r *Registry) Inbox() chan<- Msg { return r.inbox }

func (r *Registry) Events() <-chan Event { return r.events }

func (r *Registry) loop() {
	for {
		// Flush the pending queue opportunistically: out stays nil (and
		// the send case disabled) until there is something to deliver.
		var out chan Event
		var head Event
		if len(r.pending) > 0 {
			out = r.events
			head = r.pending[0]
		}

		select {
		case <-r.ctx.Done():
			return

		case out <- head:
			r.pending = r.pending[1:]

		case n := <-r.notices:
			r.handleNotice(n)

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Create:
				id := r.newRoomID()
				sess := session.New(r.ctx, r.log, id, r.bank, r.d, r.notices, msg.HostConnID, msg.HostName, msg.Outbox)
				r.rooms[id] = sess
				r.summaries[id] = types.RoomSummary{ID: id, PlayerCount: 1, State: string(session.StateWaiting)}
				r.log.Info("room created", zap.String("room", id), zap.String("host", msg.HostConnID))
				msg.Reply <- sess
				r.emit(RoomListChanged{Summaries: r.list()})

			case Get:
				msg.Reply <- r.rooms[msg.RoomID]

			case Summaries:
				msg.Reply <- r.list()

			case ShutdownAll:
				for _, sess := range r.rooms {
					sess.Inbox() <- session.Shutdown{}
				}
				clear(r.rooms)
				clear(r.summaries)
				r.cancel()
				return
			}
		}
	}
}

func (r *Registry) handleNotice(n session.Notice) {
	if n.Closed {
		if _, ok := r.rooms[n.RoomID]; !ok {
			return
		}
		delete(r.rooms, n.RoomID)
		delete(r.summaries, n.RoomID)
		r.log.Info("room removed", zap.String("room", n.RoomID))
		r.emit(RoomRemoved{RoomID: n.RoomID, Summaries: r.list()})
		return
	}
	r.summaries[n.RoomID] = types.RoomSummary{ID: n.RoomID, PlayerCount: n.PlayerCount, State: string(n.State)}
	r.emit(RoomListChanged{Summaries: r.list()})
}

// emit queues an event without blocking the loop. Delivery is deferred to
// the loop's flush, so nothing is lost when the events channel is full.
func (r *Registry) emit(ev Event) {
	r.pending = append(r.pending, ev)
}

func (r *Registry) list() []types.RoomSummary {
	out := make([]types.RoomSummary, 0, len(r.summaries))
	for _, s := range r.summaries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

const roomIDCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// newRoomID returns a 5-char id unique among live rooms, regenerating on
// collision.
func (r *Registry) newRoomID() string {
	for {
		b := make([]byte, 5)
		for i := 0; i < len(b); {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomIDCharset))))
			if err != nil {
				continue
			}
			b[i] = roomIDCharset[n.Int64()]
			i++
		}
		id := string(b)
		if _, taken := r.rooms[id]; !taken {
			return id
		}
		r.log.Warn("room id collision, regenerating", zap.String("room", id))
	}
}
