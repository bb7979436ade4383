// Package overlay serves the live signal stream to connected overlay
// clients (the on-screen timer/effect/phase display) over WebSocket.
// It implements signalbus.SignalHandler: every signal the processor
// emits is translated into an OverlayCommand and broadcast to every
// connected client.
//
// ARCHITECTURAL RULE: this package is agnostic to combat-log parsing.
// It only knows how to route commands; domain logic lives upstream in
// processor/effects/timers/challenge.
package overlay

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/baras-go/combatlog/internal/platform/logger"
	"github.com/baras-go/combatlog/internal/platform/metrics"
	"github.com/baras-go/combatlog/internal/signalbus"
)

// CommandType names the category of an OverlayCommand.
type CommandType string

const (
	CmdSignal          CommandType = "SIGNAL"
	CmdEncounterStart  CommandType = "ENCOUNTER_START"
	CmdEncounterEnd    CommandType = "ENCOUNTER_END"
	CmdActiveEffects   CommandType = "ACTIVE_EFFECTS"
	CmdActiveTimers    CommandType = "ACTIVE_TIMERS"
)

// OverlayCommand is the JSON envelope pushed to every connected overlay.
type OverlayCommand struct {
	Type      CommandType `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub manages all connected overlay WebSocket clients and fans out
// OverlayCommands broadcast to it.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan OverlayCommand
	mu         sync.RWMutex
	log        *logger.Logger
}

// NewHub creates a new overlay hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan OverlayCommand, 256),
		log:        log,
	}
}

// Run starts the hub's main loop. Call in a goroutine; it never
// returns.
func (h *Hub) Run() {
	h.log.Info("overlay hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordOverlayConnection(1)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			metrics.Get().RecordOverlayConnection(-1)

		case cmd := <-h.broadcast:
			h.fanOut(cmd)
		}
	}
}

func (h *Hub) fanOut(cmd OverlayCommand) {
	data, err := json.Marshal(cmd)
	if err != nil {
		h.log.Error("failed to marshal overlay command", logger.Err(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- data:
			metrics.Get().RecordOverlayMessage()
		default:
			close(client.send)
			delete(h.clients, client)
			metrics.Get().RecordOverlayError()
		}
	}
}

// Broadcast queues cmd for delivery to every connected overlay.
func (h *Hub) Broadcast(cmd OverlayCommand) {
	select {
	case h.broadcast <- cmd:
	default:
		metrics.Get().RecordOverlayError()
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and
// registers the resulting client with the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("overlay websocket upgrade failed", logger.Err(err))
		return
	}
	client := newClient(h, conn)
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// HandleSignal implements signalbus.SignalHandler: every signal is
// forwarded to connected overlays verbatim.
func (h *Hub) HandleSignal(sig signalbus.Signal, ctx signalbus.EncounterContext) {
	h.Broadcast(OverlayCommand{
		Type:      CmdSignal,
		Timestamp: sig.Timestamp.UnixMilli(),
		Payload:   sig,
	})
}

// OnEncounterStart implements signalbus.SignalHandler.
func (h *Hub) OnEncounterStart(encounterID uint64) {
	h.Broadcast(OverlayCommand{
		Type:      CmdEncounterStart,
		Timestamp: time.Now().UnixMilli(),
		Payload:   map[string]uint64{"encounter_id": encounterID},
	})
}

// OnEncounterEnd implements signalbus.SignalHandler.
func (h *Hub) OnEncounterEnd(encounterID uint64) {
	h.Broadcast(OverlayCommand{
		Type:      CmdEncounterEnd,
		Timestamp: time.Now().UnixMilli(),
		Payload:   map[string]uint64{"encounter_id": encounterID},
	})
}
