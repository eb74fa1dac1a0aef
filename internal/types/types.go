package types

// ClientMessage is the single inbound wire shape. Type discriminates which
// of the optional fields are meaningful; the coordinator converts it into a
// typed message before anything else looks at it.
type ClientMessage struct {
	Type       string `json:"type"`
	RoomID     string `json:"room_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
	Value      string `json:"value,omitempty"`
}

// Client -> server message types.
const (
	MsgRegisterPlayer = "registerPlayer"
	MsgCreateRoom     = "createRoom"
	MsgJoinRoom       = "joinRoom"
	MsgLeaveRoom      = "leaveRoom"
	MsgDeleteRoom     = "deleteRoom"
	MsgStartGame      = "startGame"
	MsgReaderReady    = "readerReady"
	MsgBuzz           = "buzz"
	MsgSubmitFragment = "submitFragment"
)

// ServerEvent is the outbound envelope. Data is one of the payload structs
// below, chosen by Type.
type ServerEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Server -> client event types.
const (
	EvtPlayerRegistered    = "playerRegistered"
	EvtRoomListUpdate      = "roomListUpdate"
	EvtJoinedRoom          = "joinedRoom"
	EvtRoomUpdated         = "roomUpdated"
	EvtGameStarted         = "gameStarted"
	EvtNewQuestion         = "newQuestion"
	EvtReadingStarted      = "readingStarted"
	EvtReadingPaused       = "readingPaused"
	EvtReadingResumed      = "readingResumed"
	EvtTimerStarted        = "timerStarted"
	EvtTimerPaused         = "timerPaused"
	EvtLockAcquired        = "lockAcquired"
	EvtNextFragmentChoices = "nextFragmentChoices"
	EvtAnswerResult        = "answerResult"
	EvtScoreUpdated        = "scoreUpdated"
	EvtGameFinished        = "gameFinished"
	EvtRoomClosed          = "roomClosed"
	EvtError               = "errorOccurred"
)

// Error codes carried by EvtError.
const (
	CodeInvalidName    = "INVALID_NAME"
	CodeNotRegistered  = "NOT_REGISTERED"
	CodeRoomNotFound   = "ROOM_NOT_FOUND"
	CodeAlreadyPlaying = "ALREADY_PLAYING"
	CodeRoomFull       = "ROOM_FULL"
	CodeNotHost        = "NOT_HOST"
)

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Room is the full per-room snapshot sent with joinedRoom / roomUpdated.
// Players preserves join order.
type Room struct {
	ID      string   `json:"id"`
	HostID  string   `json:"host_id"`
	State   string   `json:"state"`
	Players []Player `json:"players"`
}

// RoomSummary is one line of the lobby list.
type RoomSummary struct {
	ID          string `json:"id"`
	PlayerCount int    `json:"player_count"`
	State       string `json:"state"`
}

type RegisteredPayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

type JoinedRoomPayload struct {
	Room     Room   `json:"room"`
	PlayerID string `json:"player_id"`
}

type RoomPayload struct {
	Room Room `json:"room"`
}

// QuestionPayload deliberately excludes the answer units: clients learn the
// choices one step at a time via nextFragmentChoices.
type QuestionPayload struct {
	QuestionID    string `json:"question_id"`
	Text          string `json:"text"`
	QuestionIndex int    `json:"question_index"`
	UnitCount     int    `json:"unit_count"`
}

type TimerPayload struct {
	DurationMs int64 `json:"duration_ms"`
}

type LockPayload struct {
	WinnerID string `json:"winner_id"`
}

type ChoicesPayload struct {
	HolderID  string   `json:"holder_id"`
	StepIndex int      `json:"step_index"`
	Choices   []string `json:"choices"`
}

// AnswerResultPayload reports one submission. Final results (completed
// answer, everyone exhausted, or timeout) carry the assembled answer.
type AnswerResultPayload struct {
	PlayerID string `json:"player_id,omitempty"`
	Correct  bool   `json:"correct"`
	Final    bool   `json:"final"`
	Answer   string `json:"answer,omitempty"`
}

type ScoresPayload struct {
	Players []Player `json:"players"`
}

type GameFinishedPayload struct {
	// Ranking is the player list sorted by score descending, ties by join
	// order.
	Ranking []Player `json:"ranking"`
}

type RoomClosedPayload struct {
	RoomID string `json:"room_id"`
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
