package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/This-is-UserNamee/WebQuiz/internal/coordinator"
	"github.com/This-is-UserNamee/WebQuiz/internal/types"
)

const (
	outboxSize   = 32
	writeTimeout = 3 * time.Second
)

// Handler upgrades the connection, registers it with the coordinator and
// pumps messages both ways until the client goes away. One writer goroutine
// drains the outbox; the reader loop runs on the request goroutine.
func Handler(log *zap.Logger, coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		clog := log.With(zap.String("conn", connID))
		out := make(chan types.ServerEvent, outboxSize)

		coord.Inbox() <- coordinator.Connect{ConnID: connID, Outbox: out}
		defer func() { coord.Inbox() <- coordinator.Disconnect{ConnID: connID} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case ev := <-out:
					payload, err := json.Marshal(ev)
					if err != nil {
						clog.Error("marshal server event", zap.Error(err))
						continue
					}
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				}
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil || cm.Type == "" {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"errorOccurred","data":{"code":"BAD_MESSAGE","message":"malformed message"}}`))
				continue
			}

			coord.Inbox() <- coordinator.FromClient{ConnID: connID, Msg: cm}
		}
	}
}
