package session

import (
	"time"
)

type RoomState string

const (
	StateWaiting  RoomState = "waiting"
	StatePlaying  RoomState = "playing"
	StateFinished RoomState = "finished"
)

// Phase is one question's lifecycle step. While a buzz is being answered the
// phase is PhaseAnswering and prePause remembers which buzz-capable phase to
// restore if the holder fails.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhasePresenting   Phase = "presenting"
	PhaseReading      Phase = "reading"
	PhaseTimerRunning Phase = "timer_running"
	PhaseAnswering    Phase = "answering"
	PhaseResult       Phase = "result"
)

const (
	// MaxPlayers caps room membership.
	MaxPlayers = 8
	// PointsPerAnswer is awarded for one fully completed answer. Incorrect
	// buzzes cost nothing; they only lock the player out of the question.
	PointsPerAnswer = 10
)

// Durations are the wall-clock delays driving phase transitions. Injected so
// tests can run at millisecond scale.
type Durations struct {
	PresentDelay time.Duration // presenting start -> question reveal
	ReadDelay    time.Duration // presenting start -> reading
	AnswerWindow time.Duration
	AdvanceDelay time.Duration // result -> next question
	ResetDelay   time.Duration // finished -> waiting
}

func DefaultDurations() Durations {
	return Durations{
		PresentDelay: 1 * time.Second,
		ReadDelay:    3 * time.Second,
		AnswerWindow: 10 * time.Second,
		AdvanceDelay: 3 * time.Second,
		ResetDelay:   10 * time.Second,
	}
}

// answerLock is the exclusive right to submit fragments for the current
// question. nil means nobody holds it.
type answerLock struct {
	holderID string
	step     int
}

// gameState is the per-question-run state. It is reset wholesale on
// startGame and per-question fields are reset every time current advances.
type gameState struct {
	order      []int // permutation of question indices
	current    int   // sole pointer into order; strictly increasing
	phase      Phase
	prePause   Phase
	ready      map[string]struct{}
	exhausted  map[string]struct{}
	lock       *answerLock
	timerStart time.Time
	remaining  time.Duration
}

func newGameState(order []int) gameState {
	return gameState{
		order:     order,
		phase:     PhaseIdle,
		ready:     make(map[string]struct{}),
		exhausted: make(map[string]struct{}),
	}
}

// resetQuestion clears everything scoped to a single question.
func (g *gameState) resetQuestion() {
	g.phase = PhasePresenting
	g.prePause = ""
	g.lock = nil
	g.remaining = 0
	g.ready = make(map[string]struct{})
	g.exhausted = make(map[string]struct{})
}

// contested reports whether the current question is still being fought over,
// i.e. a buzz or exhaustion check is meaningful right now.
func (g *gameState) contested() bool {
	switch g.phase {
	case PhaseReading, PhaseTimerRunning, PhaseAnswering:
		return true
	}
	return false
}
