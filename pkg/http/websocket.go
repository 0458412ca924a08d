package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"voiceqa-server/pkg/pipeline"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client represents a connected WebSocket client
type Client struct {
	hub     *JobEventHub
	conn    *websocket.Conn
	send    chan []byte
	logger  *logrus.Logger
	jobUUID string // If client subscribes to a specific job
}

// JobEventHub manages WebSocket clients and broadcasts job lifecycle
// events to them as they occur.
type JobEventHub struct {
	logger         *logrus.Logger
	clients        map[*Client]bool
	jobSubscribers map[string]map[*Client]bool
	broadcast      chan *pipeline.Event
	register       chan *Client
	unregister     chan *Client
	mutex          sync.RWMutex
}

// WebSocketUpgrader configures the WebSocket connection
var WebSocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewJobEventHub creates a new job event hub
func NewJobEventHub(logger *logrus.Logger) *JobEventHub {
	return &JobEventHub{
		logger:         logger,
		clients:        make(map[*Client]bool),
		jobSubscribers: make(map[string]map[*Client]bool),
		broadcast:      make(chan *pipeline.Event, 64),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
	}
}

// Run starts the event hub loop
func (h *JobEventHub) Run(ctx context.Context) {
	h.logger.Info("Starting WebSocket event hub")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Shutting down WebSocket event hub")
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true

			if client.jobUUID != "" {
				if _, exists := h.jobSubscribers[client.jobUUID]; !exists {
					h.jobSubscribers[client.jobUUID] = make(map[*Client]bool)
				}
				h.jobSubscribers[client.jobUUID][client] = true
				h.logger.WithField("job_uuid", client.jobUUID).Info("Client subscribed to specific job")
			}

			h.mutex.Unlock()
			h.logger.Info("Client connected to WebSocket")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)

				if client.jobUUID != "" {
					if subscribers, exists := h.jobSubscribers[client.jobUUID]; exists {
						delete(subscribers, client)
						if len(subscribers) == 0 {
							delete(h.jobSubscribers, client.jobUUID)
						}
					}
				}

				h.logger.Info("Client disconnected from WebSocket")
			}
			h.mutex.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.WithError(err).Error("Failed to marshal job event")
				continue
			}

			h.mutex.Lock()

			// Send to subscribers of this specific job
			if subscribers, exists := h.jobSubscribers[event.JobUUID]; exists {
				for client := range subscribers {
					select {
					case client.send <- data:
					default:
						close(client.send)
						delete(h.clients, client)
						delete(subscribers, client)
					}
				}
			}

			// Also broadcast to clients that want all events
			for client := range h.clients {
				if client.jobUUID != "" {
					continue
				}

				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}

			h.mutex.Unlock()
		}
	}
}

// BroadcastEvent queues a job event for delivery to connected clients.
// Never blocks the pipeline: the event is dropped if the hub is saturated.
func (h *JobEventHub) BroadcastEvent(event pipeline.Event) {
	select {
	case h.broadcast <- &event:
	default:
		h.logger.WithField("job_uuid", event.JobUUID).Warn("Event hub saturated, dropping event")
	}
}

// ServeWs handles WebSocket requests from clients
func (h *JobEventHub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := WebSocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade connection to WebSocket")
		return
	}

	// Optional subscription to a single job
	jobUUID := r.URL.Query().Get("job_uuid")

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 256),
		logger:  h.logger,
		jobUUID: jobUUID,
	}

	client.hub.register <- client

	go client.writePump()
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(60 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// IsRunning returns true if the hub is accepting clients
func (h *JobEventHub) IsRunning() bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.clients != nil
}
