package mentor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/leetmentor/internal/interview"
)

// Connections tracks the open mentor WebSocket of each tab.
// A second connection from the same tab replaces the first.
type Connections struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnections creates an empty connection set.
func NewConnections() *Connections {
	return &Connections{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Get returns the open connection for key.
func (c *Connections) Get(key Key) *websocket.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if tabs, ok := c.active[key.UserID]; ok {
		return tabs[key.TabID]
	}
	return nil
}

// Register adds conn for key, closing any connection it replaces.
func (c *Connections) Register(key Key, conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.active[key.UserID]; !exists {
		c.active[key.UserID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := c.active[key.UserID][key.TabID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}

	c.active[key.UserID][key.TabID] = conn
	slog.Debug("Mentor websocket registered", "user_id", key.UserID, "tab_id", key.TabID)
}

// Unregister removes conn if it is still the connection of key.
func (c *Connections) Unregister(key Key, conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tabs, ok := c.active[key.UserID]; ok {
		if current, exists := tabs[key.TabID]; exists && current == conn {
			delete(tabs, key.TabID)
			if len(tabs) == 0 {
				delete(c.active, key.UserID)
			}
		}
	}
}

// Count returns the number of open connections.
func (c *Connections) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, tabs := range c.active {
		n += len(tabs)
	}
	return n
}

// NotifyEnded tells the tab of key that its interview was closed by the server.
// The connection stays open so the tab can start a new interview.
func (c *Connections) NotifyEnded(key Key, reason string) {
	conn := c.Get(key)
	if conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
	defer cancel()
	status := interview.Status{Active: false, Message: reason}
	if err := wsjson.Write(ctx, conn, wsReply{Type: wsTypeStatus, Content: reason, Status: &status}); err != nil {
		slog.Debug("Failed to notify websocket of ended interview", "error", err, "user_id", key.UserID)
	}
}

