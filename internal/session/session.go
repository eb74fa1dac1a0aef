package session

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/This-is-UserNamee/WebQuiz/internal/question"
	"github.com/This-is-UserNamee/WebQuiz/internal/types"
)

// Notice is what a session reports upward to the registry whenever its
// lobby-visible shape changes. Closed notices mean the room is gone.
type Notice struct {
	RoomID      string
	PlayerCount int
	State       RoomState
	Closed      bool
}

type player struct {
	id     string
	name   string
	score  int
	outbox chan<- types.ServerEvent
}

// Session owns one room's full lifecycle: membership, scoring, the question
// pointer, the phase machine, the answer lock and every timer. All mutation
// happens on the loop goroutine; timer fires re-enter through the inbox, so
// handlers never interleave.
type Session struct {
	id     string
	inbox  chan Msg
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger

	bank   []question.Question
	d      Durations
	notify chan<- Notice

	hostID  string
	state   RoomState
	players map[string]*player
	order   []string // join order of connection ids

	game   gameState
	timers *timerSet
	closed bool
}

// New creates a room with the creator as host and sole member and starts the
// loop. The host's joinedRoom event is emitted immediately.
func New(parent context.Context, log *zap.Logger, id string, bank []question.Question, d Durations, notify chan<- Notice, hostID, hostName string, hostOut chan<- types.ServerEvent) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:      id,
		inbox:   make(chan Msg, 64),
		ctx:     ctx,
		cancel:  cancel,
		log:     log.With(zap.String("room", id)),
		bank:    bank,
		d:       d,
		notify:  notify,
		hostID:  hostID,
		state:   StateWaiting,
		players: map[string]*player{hostID: {id: hostID, name: hostName, outbox: hostOut}},
		order:   []string{hostID},
		game:    newGameState(nil),
	}
	s.timers = newTimerSet(ctx, s.inbox)
	s.sendTo(hostID, types.ServerEvent{Type: types.EvtJoinedRoom, Data: types.JoinedRoomPayload{Room: s.snapshot(), PlayerID: hostID}})
	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for !s.closed {
		select {
		case <-s.ctx.Done():
			s.closed = true
		case m := <-s.inbox:
			s.dispatch(m)
		}
	}
	s.timers.cancelAll()
	s.cancel()
}

func (s *Session) dispatch(m Msg) {
	switch msg := m.(type) {
	case Join:
		s.handleJoin(msg)
	case Leave:
		s.handleLeave(msg.ConnID, msg.Reason)
	case Rename:
		s.handleRename(msg.ConnID, msg.Name)
	case Delete:
		s.handleDelete(msg.ConnID)
	case StartGame:
		s.handleStartGame(msg.ConnID)
	case ReaderReady:
		s.handleReaderReady(msg.ConnID)
	case Buzz:
		s.handleBuzz(msg.ConnID)
	case SubmitFragment:
		s.handleSubmit(msg.ConnID, msg.Value)
	case timerFired:
		s.handleTimerFired(msg)
	case GetState:
		msg.Reply <- s.view()
	case Shutdown:
		s.closed = true
	}
}

// --- membership ---

func (s *Session) handleJoin(m Join) {
	if s.state != StateWaiting {
		s.emitTo(m.Outbox, errorEvent(types.CodeAlreadyPlaying, "the game has already started"))
		m.Reply <- false
		return
	}
	if len(s.players) >= MaxPlayers {
		s.emitTo(m.Outbox, errorEvent(types.CodeRoomFull, "this room is full"))
		m.Reply <- false
		return
	}
	s.players[m.ConnID] = &player{id: m.ConnID, name: m.Name, outbox: m.Outbox}
	s.order = append(s.order, m.ConnID)
	m.Reply <- true
	s.log.Info("player joined", zap.String("conn", m.ConnID), zap.String("name", m.Name))
	s.sendTo(m.ConnID, types.ServerEvent{Type: types.EvtJoinedRoom, Data: types.JoinedRoomPayload{Room: s.snapshot(), PlayerID: m.ConnID}})
	s.broadcast(types.ServerEvent{Type: types.EvtRoomUpdated, Data: types.RoomPayload{Room: s.snapshot()}})
	s.sendNotice()
}

func (s *Session) handleRename(connID, name string) {
	p, ok := s.players[connID]
	if !ok || p.name == name {
		return
	}
	p.name = name
	s.log.Info("player renamed", zap.String("conn", connID), zap.String("name", name))
	s.broadcast(types.ServerEvent{Type: types.EvtRoomUpdated, Data: types.RoomPayload{Room: s.snapshot()}})
}

func (s *Session) handleLeave(connID, reason string) {
	p, ok := s.players[connID]
	if !ok {
		return
	}
	if connID == s.hostID {
		s.log.Info("host left, closing room", zap.String("conn", connID), zap.String("reason", reason))
		s.closeRoom("the host left the room")
		return
	}
	delete(s.players, connID)
	for i, id := range s.order {
		if id == connID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	delete(s.game.ready, connID)
	delete(s.game.exhausted, connID)
	s.log.Info("player left", zap.String("conn", connID), zap.String("name", p.name), zap.String("reason", reason))

	if s.state == StatePlaying && s.game.contested() {
		// The departure may have been the lock holder, completed the ready
		// quorum, or left only exhausted players behind.
		if s.game.lock != nil && s.game.lock.holderID == connID {
			s.game.lock = nil
			if !s.allExhausted() {
				s.resumeAfterLock()
			}
		}
		if s.allExhausted() {
			s.broadcast(types.ServerEvent{Type: types.EvtAnswerResult, Data: types.AnswerResultPayload{Correct: false, Final: true, Answer: s.currentQuestion().Answer()}})
			s.endQuestion()
		} else if s.game.phase == PhaseReading && len(s.game.ready) >= len(s.players) {
			s.beginAnswerWindow()
		}
	}
	s.broadcast(types.ServerEvent{Type: types.EvtRoomUpdated, Data: types.RoomPayload{Room: s.snapshot()}})
	s.sendNotice()
}

// handleDelete is the host-only explicit deletion. Anyone else is a silent
// no-op, authorization check only.
func (s *Session) handleDelete(connID string) {
	if connID != s.hostID {
		return
	}
	s.closeRoom("the host closed the room")
}

func (s *Session) closeRoom(reason string) {
	s.broadcast(types.ServerEvent{Type: types.EvtRoomClosed, Data: types.RoomClosedPayload{RoomID: s.id, Reason: reason}})
	s.timers.cancelAll()
	s.closed = true
	s.notify <- Notice{RoomID: s.id, Closed: true}
}

// --- game lifecycle ---

func (s *Session) handleStartGame(connID string) {
	if _, ok := s.players[connID]; !ok {
		return
	}
	if connID != s.hostID {
		s.sendTo(connID, errorEvent(types.CodeNotHost, "only the host can start the game"))
		return
	}
	if s.state != StateWaiting || len(s.players) == 0 {
		return
	}
	s.state = StatePlaying
	for _, p := range s.players {
		p.score = 0
	}
	s.game = newGameState(question.ShuffleOrder(len(s.bank)))
	s.log.Info("game started", zap.Int("players", len(s.players)), zap.Int("questions", len(s.bank)))
	s.broadcast(types.ServerEvent{Type: types.EvtGameStarted, Data: types.RoomPayload{Room: s.snapshot()}})
	s.sendNotice()
	s.startQuestion()
}

// startQuestion enters the presenting phase for the question at current, or
// finishes the game when the order is exhausted.
func (s *Session) startQuestion() {
	if s.game.current >= len(s.game.order) {
		s.finishGame()
		return
	}
	s.game.resetQuestion()
	s.timers.cancel(purposeAnswer)
	s.timers.schedule(purposeReveal, s.d.PresentDelay)
	s.timers.schedule(purposeRead, s.d.ReadDelay)
}

func (s *Session) finishGame() {
	s.state = StateFinished
	s.game.phase = PhaseIdle
	s.log.Info("game finished")
	s.broadcast(types.ServerEvent{Type: types.EvtGameFinished, Data: types.GameFinishedPayload{Ranking: s.ranking()}})
	s.sendNotice()
	s.timers.schedule(purposeReset, s.d.ResetDelay)
}

func (s *Session) handleReaderReady(connID string) {
	if _, ok := s.players[connID]; !ok {
		return
	}
	if s.state != StatePlaying || s.game.phase != PhaseReading {
		return
	}
	s.game.ready[connID] = struct{}{}
	if len(s.game.ready) >= len(s.players) {
		s.beginAnswerWindow()
	}
}

func (s *Session) beginAnswerWindow() {
	s.game.phase = PhaseTimerRunning
	s.startAnswerTimer(s.d.AnswerWindow)
}

// startAnswerTimer arms (or re-arms, on resume) the answer-window timer for
// the given duration and announces it.
func (s *Session) startAnswerTimer(d time.Duration) {
	s.game.timerStart = time.Now()
	s.game.remaining = d
	s.broadcast(types.ServerEvent{Type: types.EvtTimerStarted, Data: types.TimerPayload{DurationMs: d.Milliseconds()}})
	s.timers.schedule(purposeAnswer, d)
}

func (s *Session) handleBuzz(connID string) {
	if _, ok := s.players[connID]; !ok {
		return
	}
	if s.state != StatePlaying || s.game.lock != nil {
		return
	}
	if s.game.phase != PhaseReading && s.game.phase != PhaseTimerRunning {
		return
	}
	if _, out := s.game.exhausted[connID]; out {
		return
	}

	s.game.prePause = s.game.phase
	switch s.game.phase {
	case PhaseReading:
		s.broadcast(types.ServerEvent{Type: types.EvtReadingPaused})
	case PhaseTimerRunning:
		s.timers.cancel(purposeAnswer)
		s.game.remaining -= time.Since(s.game.timerStart)
		if s.game.remaining < 0 {
			s.game.remaining = 0
		}
		s.broadcast(types.ServerEvent{Type: types.EvtTimerPaused})
	}

	s.game.phase = PhaseAnswering
	s.game.lock = &answerLock{holderID: connID}
	s.log.Info("lock acquired", zap.String("conn", connID))
	s.broadcast(types.ServerEvent{Type: types.EvtLockAcquired, Data: types.LockPayload{WinnerID: connID}})
	s.broadcastChoices()
}

func (s *Session) handleSubmit(connID, value string) {
	if _, ok := s.players[connID]; !ok {
		return
	}
	if s.state != StatePlaying || s.game.phase != PhaseAnswering {
		return
	}
	lock := s.game.lock
	if lock == nil || lock.holderID != connID {
		return
	}

	q := s.currentQuestion()
	if lock.step >= len(q.Units) {
		return
	}
	if q.Units[lock.step].Matches(value) {
		lock.step++
		if lock.step == len(q.Units) {
			s.log.Info("answer completed", zap.String("conn", connID), zap.String("question", q.ID))
			s.broadcast(types.ServerEvent{Type: types.EvtAnswerResult, Data: types.AnswerResultPayload{PlayerID: connID, Correct: true, Final: true, Answer: q.Answer()}})
			s.players[connID].score += PointsPerAnswer
			s.broadcast(types.ServerEvent{Type: types.EvtScoreUpdated, Data: types.ScoresPayload{Players: s.playerList()}})
			s.endQuestion()
			return
		}
		s.broadcast(types.ServerEvent{Type: types.EvtAnswerResult, Data: types.AnswerResultPayload{PlayerID: connID, Correct: true, Final: false}})
		s.broadcastChoices()
		return
	}

	// Incorrect: release the lock, lock the player out for this question.
	s.log.Info("incorrect answer", zap.String("conn", connID), zap.Int("step", lock.step))
	s.broadcast(types.ServerEvent{Type: types.EvtAnswerResult, Data: types.AnswerResultPayload{PlayerID: connID, Correct: false, Final: false}})
	s.game.lock = nil
	s.game.exhausted[connID] = struct{}{}

	if s.allExhausted() {
		s.broadcast(types.ServerEvent{Type: types.EvtAnswerResult, Data: types.AnswerResultPayload{Correct: false, Final: true, Answer: q.Answer()}})
		s.endQuestion()
		return
	}
	s.resumeAfterLock()
}

// resumeAfterLock restores the phase that was interrupted by the buzz,
// restarting the countdown from the snapshotted remaining time.
func (s *Session) resumeAfterLock() {
	pre := s.game.prePause
	s.game.prePause = ""
	switch pre {
	case PhaseTimerRunning:
		s.game.phase = PhaseTimerRunning
		s.startAnswerTimer(s.game.remaining)
	default:
		s.game.phase = PhaseReading
		s.broadcast(types.ServerEvent{Type: types.EvtReadingResumed})
	}
}

// endQuestion moves to the result phase and schedules the next question.
func (s *Session) endQuestion() {
	s.game.phase = PhaseResult
	s.game.lock = nil
	s.timers.cancel(purposeAnswer)
	s.game.current++
	s.timers.schedule(purposeAdvance, s.d.AdvanceDelay)
}

// --- timers ---

// handleTimerFired is the single entry point for timer callbacks. The
// generation check plus the per-purpose phase guard make a late fire into a
// rebuilt or advanced state a no-op.
func (s *Session) handleTimerFired(m timerFired) {
	if !s.timers.current(m.purpose, m.gen) {
		return
	}
	s.timers.cancel(m.purpose)

	switch m.purpose {
	case purposeReveal:
		if s.state != StatePlaying || s.game.phase != PhasePresenting {
			return
		}
		q := s.currentQuestion()
		s.broadcast(types.ServerEvent{Type: types.EvtNewQuestion, Data: types.QuestionPayload{
			QuestionID:    q.ID,
			Text:          q.Text,
			QuestionIndex: s.game.current,
			UnitCount:     len(q.Units),
		}})

	case purposeRead:
		if s.state != StatePlaying || s.game.phase != PhasePresenting {
			return
		}
		s.game.phase = PhaseReading
		s.broadcast(types.ServerEvent{Type: types.EvtReadingStarted})

	case purposeAnswer:
		if s.state != StatePlaying || s.game.phase != PhaseTimerRunning {
			return
		}
		s.log.Info("answer window timed out")
		s.broadcast(types.ServerEvent{Type: types.EvtAnswerResult, Data: types.AnswerResultPayload{Correct: false, Final: true, Answer: s.currentQuestion().Answer()}})
		s.endQuestion()

	case purposeAdvance:
		if s.state != StatePlaying || s.game.phase != PhaseResult {
			return
		}
		s.startQuestion()

	case purposeReset:
		if s.state != StateFinished {
			return
		}
		s.state = StateWaiting
		s.game = newGameState(nil)
		for _, p := range s.players {
			p.score = 0
		}
		s.log.Info("room reset to waiting")
		s.broadcast(types.ServerEvent{Type: types.EvtRoomUpdated, Data: types.RoomPayload{Room: s.snapshot()}})
		s.sendNotice()
	}
}

// --- helpers ---

func (s *Session) currentQuestion() question.Question {
	return s.bank[s.game.order[s.game.current]]
}

func (s *Session) allExhausted() bool {
	return len(s.game.exhausted) >= len(s.players)
}

func (s *Session) broadcastChoices() {
	lock := s.game.lock
	q := s.currentQuestion()
	s.broadcast(types.ServerEvent{Type: types.EvtNextFragmentChoices, Data: types.ChoicesPayload{
		HolderID:  lock.holderID,
		StepIndex: lock.step,
		Choices:   q.Units[lock.step].Choices,
	}})
}

func (s *Session) broadcast(ev types.ServerEvent) {
	for _, id := range s.order {
		s.emitTo(s.players[id].outbox, ev)
	}
}

func (s *Session) sendTo(connID string, ev types.ServerEvent) {
	if p, ok := s.players[connID]; ok {
		s.emitTo(p.outbox, ev)
	}
}

// emitTo never blocks the loop; a client whose outbox is full just misses
// the event and catches up on the next authoritative broadcast.
func (s *Session) emitTo(out chan<- types.ServerEvent, ev types.ServerEvent) {
	select {
	case out <- ev:
	default:
		s.log.Warn("dropping event for slow client", zap.String("event", ev.Type))
	}
}

func errorEvent(code, message string) types.ServerEvent {
	return types.ServerEvent{Type: types.EvtError, Data: types.ErrorPayload{Code: code, Message: message}}
}

func (s *Session) sendNotice() {
	s.notify <- Notice{RoomID: s.id, PlayerCount: len(s.players), State: s.state}
}

func (s *Session) snapshot() types.Room {
	return types.Room{
		ID:      s.id,
		HostID:  s.hostID,
		State:   string(s.state),
		Players: s.playerList(),
	}
}

func (s *Session) playerList() []types.Player {
	out := make([]types.Player, 0, len(s.order))
	for _, id := range s.order {
		p := s.players[id]
		out = append(out, types.Player{ID: p.id, Name: p.name, Score: p.score})
	}
	return out
}

func (s *Session) ranking() []types.Player {
	out := s.playerList()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (s *Session) view() View {
	v := View{
		RoomID:     s.id,
		HostID:     s.hostID,
		State:      s.state,
		Phase:      s.game.phase,
		PrePause:   s.game.prePause,
		NumPlayers: len(s.players),
		Scores:     make(map[string]int, len(s.players)),
		Order:      append([]int(nil), s.game.order...),
		Current:    s.game.current,
		ReadyCount: len(s.game.ready),
		Exhausted:  len(s.game.exhausted),
		Remaining:  s.game.remaining,
	}
	for id, p := range s.players {
		v.Scores[id] = p.score
	}
	if s.game.lock != nil {
		v.LockHolder = s.game.lock.holderID
		v.LockStep = s.game.lock.step
	}
	return v
}
