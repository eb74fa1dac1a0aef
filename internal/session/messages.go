package session

import (
	"time"

	"github.com/This-is-UserNamee/WebQuiz/internal/types"
)

type Msg interface{ isSessionMsg() }

// Join asks to add a connection as a player. Reply receives false when the
// room rejected the join (already playing / full); the rejection event has
// already been sent to the outbox by then.
type Join struct {
	ConnID string
	Name   string
	Outbox chan<- types.ServerEvent
	Reply  chan bool
}

func (Join) isSessionMsg() {}

// Leave covers both an explicit leaveRoom and a dropped connection.
type Leave struct {
	ConnID string
	Reason string
}

func (Leave) isSessionMsg() {}

// Rename changes a member's display name mid-membership, so the room
// snapshot stays in step with a re-registration.
type Rename struct {
	ConnID string
	Name   string
}

func (Rename) isSessionMsg() {}

// Delete is the explicit host-only room deletion. Non-host requesters are a
// silent no-op.
type Delete struct{ ConnID string }

func (Delete) isSessionMsg() {}

type StartGame struct{ ConnID string }

func (StartGame) isSessionMsg() {}

type ReaderReady struct{ ConnID string }

func (ReaderReady) isSessionMsg() {}

type Buzz struct{ ConnID string }

func (Buzz) isSessionMsg() {}

type SubmitFragment struct {
	ConnID string
	Value  string
}

func (SubmitFragment) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// GetState reflects internal state without data races. Test-only.
type GetState struct{ Reply chan View }

func (GetState) isSessionMsg() {}

// timerFired re-enters the loop when a scheduled timer elapses. Gen is
// compared against the currently armed generation so a stale fire is a no-op.
type timerFired struct {
	purpose timerPurpose
	gen     uint64
}

func (timerFired) isSessionMsg() {}

// View is a copy of the session's observable state.
type View struct {
	RoomID     string
	HostID     string
	State      RoomState
	Phase      Phase
	PrePause   Phase
	NumPlayers int
	Scores     map[string]int
	Order      []int
	Current    int
	LockHolder string
	LockStep   int
	ReadyCount int
	Exhausted  int
	Remaining  time.Duration
}
