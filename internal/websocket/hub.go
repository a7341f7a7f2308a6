package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/presence"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one open connection. gorilla connections allow a single
// concurrent writer.
type client struct {
	conn *websocket.Conn
	sess *middleware.Session
	wmu  sync.Mutex
}

func (c *client) write(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans realtime events out to users' open connections. With a Redis
// client, events travel through pub/sub so every instance can deliver them.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*client
	redisClient *redis.Client
	jwt         *middleware.JWTAuth
	tracker     *presence.Tracker
	log         *logger.Logger
	cancelFuncs map[string]context.CancelFunc
	unsubscribe func()
}

func NewHub(jwt *middleware.JWTAuth, redisClient *redis.Client, tracker *presence.Tracker, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	h := &Hub{
		connections: make(map[string][]*client),
		redisClient: redisClient,
		jwt:         jwt,
		tracker:     tracker,
		log:         log.With("component", "WebSocketHub"),
		cancelFuncs: make(map[string]context.CancelFunc),
	}
	if tracker != nil {
		h.unsubscribe = tracker.Subscribe(h.broadcastPresence)
	}
	return h
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sess, err := h.jwt.ParseToken(r.Context(), tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, sess: sess}
	h.registerConnection(c)
	middleware.Touch(h.tracker, sess)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(c)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			h.handleFrame(c, data)
		}
	}()
}

// handleFrame applies a client frame. Unknown frames are ignored.
func (h *Hub) handleFrame(c *client, data []byte) {
	var frame struct {
		Type    string `json:"type"`
		Payload struct {
			Page string `json:"page"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}

	switch frame.Type {
	case "ping":
		if out, err := json.Marshal(models.WSMessage{Type: "pong"}); err == nil {
			c.write(out)
		}
	case "activity":
		middleware.Touch(h.tracker, c.sess)
	case "navigate":
		middleware.Touch(h.tracker, c.sess)
		if h.tracker != nil && frame.Payload.Page != "" {
			h.tracker.UpdateCurrentPage(c.sess.User.ID, frame.Payload.Page)
		}
	}
}

func (h *Hub) registerConnection(c *client) {
	userID := c.sess.User.ID

	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[userID] = append(h.connections[userID], c)

	// Start pub/sub subscription if this is the first connection for this user
	if len(h.connections[userID]) == 1 && h.redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userID] = cancel
		go h.subscribeToPubSub(ctx, userID)
	}

	h.log.Debug("websocket connected", "user_id", userID, "total", len(h.connections[userID]))
}

func (h *Hub) unregisterConnection(c *client) {
	userID := c.sess.User.ID

	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[userID]
	for i, cc := range conns {
		if cc == c {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// If no more connections, cancel pub/sub
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
			delete(h.cancelFuncs, userID)
		}
	}

	h.log.Debug("websocket disconnected", "user_id", userID)
}

func channelFor(userID string) string {
	return "user_updates:" + userID
}

func (h *Hub) subscribeToPubSub(ctx context.Context, userID string) {
	pubsub := h.redisClient.Subscribe(ctx, channelFor(userID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(userID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(userID string, data []byte) {
	h.mu.RLock()
	conns := append([]*client(nil), h.connections[userID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			h.log.Debug("websocket write failed", "user_id", userID, "error", err)
		}
	}
}

// SendToUser delivers msg to every connection of userID, on any instance when
// Redis is configured.
func (h *Hub) SendToUser(userID string, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	if h.redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := h.redisClient.Publish(ctx, channelFor(userID), string(data)).Err()
		if err == nil {
			return
		}
		h.log.Warn("redis publish failed, delivering locally", "user_id", userID, "error", err)
	}
	h.broadcast(userID, data)
}

// broadcastPresence pushes the online list to connected admins of this
// instance.
func (h *Hub) broadcastPresence(online []models.PresenceRecord) {
	data, err := json.Marshal(models.WSMessage{Type: "presence_update", Payload: online})
	if err != nil {
		return
	}

	h.mu.RLock()
	var admins []*client
	for _, conns := range h.connections {
		for _, c := range conns {
			if c.sess.User.Role == models.RoleAdmin {
				admins = append(admins, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range admins {
		c.write(data)
	}
}

// ConnectionCount returns the number of open connections of userID.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// Close drops every connection and stops the presence subscription.
func (h *Hub) Close() error {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for userID, conns := range h.connections {
		for _, c := range conns {
			if err := c.conn.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
		}
	}
	h.connections = make(map[string][]*client)
	h.cancelFuncs = make(map[string]context.CancelFunc)

	if len(errs) > 0 {
		return fmt.Errorf("closing %d websocket connections failed", len(errs))
	}
	return nil
}
