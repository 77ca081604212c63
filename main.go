// File: main.go
package main

import (
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/netutil"

	"github.com/pongduel/server/actor"
	"github.com/pongduel/server/game"
	"github.com/pongduel/server/server"
	"github.com/pongduel/server/utils"
)

// Default port if PORT env var isn't set
const defaultPort = "3000"

func main() {
	// 0. Load Configuration
	cfg := utils.DefaultConfig()
	fmt.Println("Configuration loaded (using defaults).")
	fmt.Printf("World: %.0fx%.0f, Tick: %v, Send: %v\n",
		cfg.WorldWidth, cfg.WorldHeight, cfg.TickPeriod, cfg.SendPeriod)

	// 1. Initialize the actor engine
	engine := actor.NewEngine()
	fmt.Println("Actor engine created.")

	// 2. Spawn the MatchmakerActor
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	matchmakerProps := actor.NewProps(game.NewMatchmakerProducer(engine, cfg, rng))
	matchmakerPID := engine.Spawn(matchmakerProps)
	if matchmakerPID == nil {
		panic("Failed to spawn MatchmakerActor")
	}
	fmt.Printf("MatchmakerActor spawned with PID: %s\n", matchmakerPID)

	// 3. Create the HTTP/WebSocket server
	srv := server.New(engine, cfg, matchmakerPID)
	fmt.Println("WebSocket server created.")

	// 4. Determine port and listen
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
		fmt.Printf("PORT environment variable not set, defaulting to %s\n", port)
	}
	listenAddr := ":" + port

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		fmt.Println("Failed to listen:", err)
		os.Exit(1)
	}
	limited := netutil.LimitListener(listener, cfg.MaxConns)

	fmt.Printf("Server starting on address %s (max %d connections)\n", listenAddr, cfg.MaxConns)
	err = http.Serve(limited, srv.Mux())
	if err != nil {
		fmt.Println("Server stopped:", err)
		fmt.Println("Shutting down engine...")
		engine.Shutdown(5 * time.Second)
		fmt.Println("Engine shutdown complete.")
	}
}
