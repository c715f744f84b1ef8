package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/chepyr/go-group-tasks/internal/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	EventTaskCreated  = "task_created"
	EventTaskUpdated  = "task_updated"
	EventTaskDeleted  = "task_deleted"
	EventMemberJoined = "member_joined"

	wsWriteWait  = 5 * time.Second
	wsSendBuffer = 32
)

type Event struct {
	Event   string       `json:"event"`
	GroupID int          `json:"group_id"`
	Task    *models.Task `json:"task,omitempty"`
	UserID  int          `json:"user_id,omitempty"`
}

// wsClient is one subscribed connection. Only its writer goroutine writes to
// conn; the hub hands it messages through send and closes send to hang up.
type wsClient struct {
	conn      *websocket.Conn
	userID    int
	send      chan []byte
	closeCode int
	reason    string
}

func newWSClient(conn *websocket.Conn, userID int) *wsClient {
	return &wsClient{conn: conn, userID: userID, send: make(chan []byte, wsSendBuffer)}
}

// WSHub fans group events out to the members watching that group.
type WSHub struct {
	connections map[int]map[*wsClient]bool
	mutex       sync.Mutex
	log         logrus.FieldLogger
}

func NewWSHub(log logrus.FieldLogger) *WSHub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHub{connections: make(map[int]map[*wsClient]bool), log: log}
}

func (h *WSHub) register(groupID int, c *wsClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.connections[groupID] == nil {
		h.connections[groupID] = make(map[*wsClient]bool)
	}
	h.connections[groupID][c] = true
}

func (h *WSHub) unregister(groupID int, c *wsClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(groupID, c, websocket.CloseNormalClosure, "")
}

// removeLocked forgets c and tells its writer to close the connection.
// The caller holds h.mutex.
func (h *WSHub) removeLocked(groupID int, c *wsClient, code int, reason string) {
	conns := h.connections[groupID]
	if !conns[c] {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.connections, groupID)
	}
	c.closeCode, c.reason = code, reason
	close(c.send)
}

// Broadcast queues ev for every connection of its group. A connection whose
// queue is full is dropped instead of waited on.
func (h *WSHub) Broadcast(ev Event) {
	if h == nil {
		return
	}
	message, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("marshal websocket event")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.connections[ev.GroupID] {
		select {
		case c.send <- message:
		default:
			h.log.WithFields(logrus.Fields{"group_id": ev.GroupID, "user_id": c.userID}).
				Warn("websocket client too slow, disconnecting")
			h.removeLocked(ev.GroupID, c, websocket.CloseTryAgainLater, "too slow")
		}
	}
}

// DropMember disconnects userID from groupID's events.
func (h *WSHub) DropMember(groupID, userID int) {
	if h == nil {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.connections[groupID] {
		if c.userID == userID {
			h.removeLocked(groupID, c, websocket.ClosePolicyViolation, "no longer a member")
		}
	}
}

// DropGroup disconnects everyone watching groupID.
func (h *WSHub) DropGroup(groupID int) {
	if h == nil {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.connections[groupID] {
		h.removeLocked(groupID, c, websocket.CloseGoingAway, "group deleted")
	}
}

// DropUser disconnects every connection opened by userID.
func (h *WSHub) DropUser(userID int) {
	if h == nil {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for groupID, conns := range h.connections {
		for c := range conns {
			if c.userID == userID {
				h.removeLocked(groupID, c, websocket.ClosePolicyViolation, "account disabled")
			}
		}
	}
}

// Close disconnects every client.
func (h *WSHub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for groupID, conns := range h.connections {
		for c := range conns {
			h.removeLocked(groupID, c, websocket.CloseGoingAway, "server shutting down")
		}
	}
}

// writePump is the only writer of c.conn. It exits and closes the connection
// once the hub closes c.send or a write fails.
func (h *WSHub) writePump(c *wsClient) {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.log.WithError(err).WithField("user_id", c.userID).Warn("websocket send failed")
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(c.closeCode, c.reason), time.Now().Add(wsWriteWait))
}

func (h *WSHub) taskEvent(event string, t *models.Task) {
	if t.GroupID == nil {
		return
	}
	h.Broadcast(Event{Event: event, GroupID: *t.GroupID, Task: t})
}

// checkOrigin accepts requests without an Origin header and those whose
// origin is listed. An empty list falls back to the upgrader's same-host rule.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(allowed, u.Scheme+"://"+u.Host)
	}
}

/*
handles route:
- GET /ws?group_id={id} - subscribe to live events of a group the caller belongs to
*/
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}
	if h.RateLimiter != nil && !h.RateLimiter.Allow(h.RateLimiter.clientIP(r)) {
		sendError(w, "Too many WebSocket connection attempts", http.StatusTooManyRequests)
		return
	}

	groupID, err := strconv.Atoi(r.URL.Query().Get("group_id"))
	if err != nil || groupID < 1 {
		sendError(w, "group_id is required", http.StatusBadRequest)
		return
	}
	// membership is checked before the upgrade so errors still reach the client as JSON
	if _, err := h.Service.GetGroup(r.Context(), user, groupID); err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin(h.AllowedOrigins)}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger(r).WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := newWSClient(conn, user.ID)
	h.WSHub.register(groupID, client)
	go h.WSHub.writePump(client)
	defer h.WSHub.unregister(groupID, client)
	// a removal that landed during the upgrade could not see this client yet
	if _, err := h.Service.GetGroup(r.Context(), user, groupID); err != nil {
		h.WSHub.DropMember(groupID, user.ID)
		return
	}

	for {
		// clients only listen; reading keeps close frames flowing
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
