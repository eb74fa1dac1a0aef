package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/This-is-UserNamee/WebQuiz/internal/registry"
	"github.com/This-is-UserNamee/WebQuiz/internal/types"
)

// ListRooms is the read-only lobby projection. Room mutation happens over
// the socket protocol only.
func ListRooms(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []types.RoomSummary, 1)
		reg.Inbox() <- registry.Summaries{Reply: reply}

		select {
		case list := <-reply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(list)
		case <-r.Context().Done():
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
