package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hot-seat/internal/broadcast"
	"hot-seat/internal/metrics"
	"hot-seat/internal/store"
)

const (
	wsSendBuffer   = 32
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 25 * time.Second
)

// wsEnvelope is the frame sent to clients: the initial state, a row change,
// or an ephemeral broadcast.
type wsEnvelope struct {
	Type    string             `json:"type"`
	State   any                `json:"state,omitempty"`
	Change  *store.Change      `json:"change,omitempty"`
	Message *broadcast.Message `json:"message,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

type roomGroup struct {
	clients map[*wsClient]struct{}
	stop    func()
}

// wsHub fans the change feed and the room's broadcast topic out to the
// websocket clients of each room. A room is relayed only while it has
// clients.
type wsHub struct {
	feed    *store.Feed
	bc      broadcast.Broadcaster
	metrics *metrics.Metrics
	log     *zap.Logger

	mu    sync.Mutex
	rooms map[string]*roomGroup
}

func newWSHub(feed *store.Feed, bc broadcast.Broadcaster, m *metrics.Metrics, log *zap.Logger) *wsHub {
	return &wsHub{
		feed:    feed,
		bc:      bc,
		metrics: m,
		log:     log,
		rooms:   make(map[string]*roomGroup),
	}
}

func (h *wsHub) Add(roomID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[roomID]
	if group == nil {
		group = &roomGroup{clients: make(map[*wsClient]struct{})}
		group.stop = h.relay(roomID)
		h.rooms[roomID] = group
	}
	group.clients[client] = struct{}{}
	h.metrics.ClientConnected()
}

func (h *wsHub) Remove(roomID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[roomID]
	if group == nil {
		return
	}
	if _, ok := group.clients[client]; !ok {
		return
	}
	delete(group.clients, client)
	client.close()
	h.metrics.ClientDisconnected()
	if len(group.clients) == 0 {
		group.stop()
		delete(h.rooms, roomID)
	}
}

// Broadcast queues payload for every client of the room. A client whose
// queue is full is dropped.
func (h *wsHub) Broadcast(roomID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("failed to encode websocket frame", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	h.mu.Lock()
	group := h.rooms[roomID]
	var slow []*wsClient
	if group != nil {
		for client := range group.clients {
			select {
			case client.send <- data:
			default:
				slow = append(slow, client)
			}
		}
	}
	h.mu.Unlock()
	for _, client := range slow {
		h.log.Warn("dropping slow websocket client", zap.String("room_id", roomID))
		h.Remove(roomID, client)
	}
}

func (h *wsHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID, group := range h.rooms {
		for client := range group.clients {
			client.close()
			h.metrics.ClientDisconnected()
		}
		group.stop()
		delete(h.rooms, roomID)
	}
}

func (h *wsHub) relay(roomID string) func() {
	ctx, cancel := context.WithCancel(context.Background())
	var changes <-chan store.Change
	var messages <-chan broadcast.Message
	stopFeed, stopTopic := func() {}, func() {}
	if h.feed != nil {
		changes, stopFeed = h.feed.Subscribe(store.TableAll, store.ByRoom(roomID))
	}
	if h.bc != nil {
		msgs, stop, err := h.bc.Subscribe(ctx, broadcast.RoomTopic(roomID))
		if err != nil {
			h.log.Error("failed to subscribe to room topic", zap.String("room_id", roomID), zap.Error(err))
		} else {
			messages, stopTopic = msgs, stop
		}
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					changes = nil
					continue
				}
				h.Broadcast(roomID, wsEnvelope{Type: "change", Change: &change})
			case msg, ok := <-messages:
				if !ok {
					messages = nil
					continue
				}
				h.Broadcast(roomID, wsEnvelope{Type: "broadcast", Message: &msg})
			}
		}
	}()
	return func() {
		cancel()
		stopFeed()
		stopTopic()
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	state, err := s.orch.GetGameState(r.Context(), roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.log.Info("ws connected", zap.String("room_id", roomID), zap.String("remote", r.RemoteAddr))

	client := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	initial, err := json.Marshal(wsEnvelope{Type: "state", State: state})
	if err == nil {
		client.send <- initial
	}
	s.hub.Add(roomID, client)
	go s.writeWS(client)
	go s.readWS(roomID, client)
}

func (s *Server) readWS(roomID string, client *wsClient) {
	defer s.hub.Remove(roomID, client)
	conn := client.conn
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.log.Debug("ws disconnected", zap.String("room_id", roomID), zap.Error(err))
			return
		}
	}
}

func (s *Server) writeWS(client *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()
	for {
		select {
		case data, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
