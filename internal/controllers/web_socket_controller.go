package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	logrus "github.com/sirupsen/logrus"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeWait = 5 * time.Second

// LocationData is a fix sent by the driver app. Timestamps without a zone
// are taken as UTC; a missing timestamp means "now".
type LocationData struct {
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Accuracy  float64   `json:"accuracy"` // metres
	Speed     float64   `json:"speed"`    // m/s
	Heading   *float64  `json:"heading"`  // degrees
	RouteID   string    `json:"routeId"`
	Timestamp time.Time `json:"timestamp"`
}

// UnmarshalJSON accepts RFC3339 timestamps with or without a zone suffix.
func (ld *LocationData) UnmarshalJSON(data []byte) error {
	type alias LocationData
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*alias
	}{alias: (*alias)(ld)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	ts := strings.TrimSpace(aux.Timestamp)
	if ts == "" {
		ld.Timestamp = time.Time{}
		return nil
	}
	if !strings.HasSuffix(ts, "Z") && (len(ts) < 6 || !strings.ContainsAny(ts[len(ts)-6:], "+-")) {
		ts += "Z"
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", aux.Timestamp, err)
	}
	ld.Timestamp = t
	return nil
}

type routeMessage struct {
	routeID string
	payload gin.H
}

// LocationHub fans driver fixes out to everyone watching a route.
type LocationHub struct {
	routeClients map[string]map[*websocket.Conn]bool
	broadcast    chan routeMessage
	mu           sync.Mutex
	closed       bool
}

// NewLocationHub creates a hub and starts its broadcast loop.
func NewLocationHub() *LocationHub {
	hub := &LocationHub{
		routeClients: make(map[string]map[*websocket.Conn]bool),
		broadcast:    make(chan routeMessage, 100),
	}
	go hub.run()
	return hub
}

// run is the only writer to watcher connections.
func (h *LocationHub) run() {
	for msg := range h.broadcast {
		for _, conn := range h.watchers(msg.routeID) {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg.payload); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"route_id": msg.routeID,
					"conn_ptr": fmt.Sprintf("%p", conn),
				}).Info("Dropping route watcher after failed write")
				h.Unregister(msg.routeID, conn)
				_ = conn.Close()
			}
		}
	}
}

func (h *LocationHub) watchers(routeID string) []*websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*websocket.Conn, 0, len(h.routeClients[routeID]))
	for conn := range h.routeClients[routeID] {
		out = append(out, conn)
	}
	return out
}

// Register adds a watcher for routeID.
func (h *LocationHub) Register(routeID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.routeClients[routeID]; !ok {
		h.routeClients[routeID] = make(map[*websocket.Conn]bool)
	}
	h.routeClients[routeID][conn] = true
	logrus.WithFields(logrus.Fields{
		"route_id": routeID,
		"conn_ptr": fmt.Sprintf("%p", conn),
	}).Debug("Route watcher registered")
}

// Unregister removes a watcher.
func (h *LocationHub) Unregister(routeID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.routeClients[routeID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.routeClients, routeID)
		}
	}
}

// Watching returns the number of watchers on routeID.
func (h *LocationHub) Watching(routeID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.routeClients[routeID])
}

// Publish queues payload for the watchers of routeID. A full queue drops
// the message.
func (h *LocationHub) Publish(routeID string, payload gin.H) {
	if routeID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.broadcast <- routeMessage{routeID: routeID, payload: payload}:
	default:
		logrus.WithField("route_id", routeID).Warn("Location broadcast channel full, dropping message")
	}
}

// Close stops the broadcast loop.
func (h *LocationHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.broadcast)
	}
}
