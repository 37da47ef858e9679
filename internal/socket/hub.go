// server/internal/socket/hub.go
package socket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeWait = 10 * time.Second

// Event tells subscribers that an analysis document of a project changed.
type Event struct {
	ProjectID string `json:"project_id"`
	Kind      string `json:"kind"`
	Version   string `json:"version,omitempty"`
	Operation string `json:"operation"`
}

// client serializes writes to one connection; gorilla allows a single concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// Hub keeps the websocket subscribers of each project.
type Hub struct {
	mu       sync.RWMutex
	projects map[string]map[*websocket.Conn]*client
	logger   zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		projects: make(map[string]map[*websocket.Conn]*client),
		logger:   logger.With().Str("component", "socket").Logger(),
	}
}

// Register subscribes conn to the events of projectID.
func (h *Hub) Register(projectID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.projects[projectID]
	if !ok {
		subs = make(map[*websocket.Conn]*client)
		h.projects[projectID] = subs
	}
	subs[conn] = &client{conn: conn}
	h.logger.Debug().Str("project_id", projectID).Int("subscribers", len(subs)).Msg("websocket client registered")
}

func (h *Hub) Unregister(projectID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.projects[projectID]
	if !ok {
		return
	}
	if _, ok := subs[conn]; ok {
		delete(subs, conn)
		h.logger.Debug().Str("project_id", projectID).Msg("websocket client unregistered")
	}
	if len(subs) == 0 {
		delete(h.projects, projectID)
	}
}

// Subscribers returns how many connections follow projectID.
func (h *Hub) Subscribers(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.projects[projectID])
}

// Publish sends ev to every subscriber of its project. Connections that fail
// the write are dropped; a project without subscribers is not an error.
func (h *Hub) Publish(ev Event) {
	message, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal event")
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.projects[ev.ProjectID]))
	for _, c := range h.projects[ev.ProjectID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(message); err != nil {
			h.logger.Warn().Err(err).Str("project_id", ev.ProjectID).Msg("dropping websocket client")
			h.Unregister(ev.ProjectID, c.conn)
			c.conn.Close()
		}
	}
}
