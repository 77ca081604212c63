// File: server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/pongduel/server/actor"
	"github.com/pongduel/server/game"
)

// HandleRoot answers the liveness probe at the root path.
func (s *Server) HandleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong-server-ok"))
	}
}

// HandleHealthz answers the explicit health endpoint.
func (s *Server) HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// HandleGetRooms lists live rooms by querying the matchmaker with Ask.
func (s *Server) HandleGetRooms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				fmt.Printf("PANIC recovered in HandleGetRooms: %v\nStack trace:\n%s\n", rec, string(debug.Stack()))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		reply, err := s.engine.Ask(s.matchmakerPID, game.RoomListRequest{}, 2*time.Second)
		if err != nil {
			if errors.Is(err, actor.ErrTimeout) {
				http.Error(w, "Timeout querying game state", http.StatusGatewayTimeout)
			} else {
				http.Error(w, "Error querying game state", http.StatusInternalServerError)
			}
			return
		}

		switch v := reply.(type) {
		case game.RoomListResponse:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(v)
		case error:
			fmt.Printf("Matchmaker replied with error: %v\n", v)
			http.Error(w, "Error retrieving game state", http.StatusInternalServerError)
		default:
			http.Error(w, "Internal server error processing reply", http.StatusInternalServerError)
		}
	}
}
