// File: server/server.go
package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pongduel/server/actor"
	"github.com/pongduel/server/utils"
)

// Server manages active WebSocket connections and routes HTTP traffic.
type Server struct {
	engine        *actor.Engine
	cfg           utils.Config
	matchmakerPID *actor.PID
	upgrader      websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*Client
}

// New creates a new Server instance.
func New(engine *actor.Engine, cfg utils.Config, matchmakerPID *actor.PID) *Server {
	return &Server{
		engine:        engine,
		cfg:           cfg,
		matchmakerPID: matchmakerPID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*Client),
	}
}

// Mux returns the HTTP routing for the server.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HandleRoot())
	mux.HandleFunc("/healthz", s.HandleHealthz())
	mux.HandleFunc("/rooms", s.HandleGetRooms())
	mux.HandleFunc("/ws", s.HandleWS())
	return mux
}

// HandleWS upgrades the connection, registers the peer, spawns its
// SessionActor, and runs the read pump until the socket dies.
func (s *Server) HandleWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			fmt.Printf("HandleWS: upgrade failed: %v\n", err)
			return
		}

		client := newClient(s.cfg, conn)
		s.addClient(client)
		fmt.Printf("HandleWS: connection opened: %s (%s)\n", client.ID(), conn.RemoteAddr())

		sessionProps := actor.NewProps(NewSessionActorProducer(s.engine, s.cfg, s.matchmakerPID, client, func() {
			s.removeClient(client.ID())
		}))
		sessionPID := s.engine.Spawn(sessionProps)
		if sessionPID == nil {
			fmt.Printf("HandleWS: failed to spawn SessionActor for %s\n", client.ID())
			s.removeClient(client.ID())
			client.Close()
			return
		}

		go client.writePump()
		s.readPump(client, sessionPID)
	}
}

// readPump reads frames until error or keep-alive timeout and dispatches
// them, in arrival order, into the session's mailbox.
func (s *Server) readPump(client *Client, sessionPID *actor.PID) {
	defer func() {
		s.engine.Send(sessionPID, peerDisconnected{}, nil)
		fmt.Printf("readPump: connection closed: %s\n", client.ID())
	}()

	client.conn.SetReadLimit(4096)
	_ = client.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		s.engine.Send(sessionPID, inboundFrame{Data: data}, nil)
	}
}

func (s *Server) addClient(c *Client) {
	s.mu.Lock()
	s.clients[c.ID()] = c
	s.mu.Unlock()
}

func (s *Server) removeClient(id string) {
	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
}

// ClientCount reports the number of registered peers.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
