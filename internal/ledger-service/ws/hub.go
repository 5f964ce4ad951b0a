package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/prediction-ledger/pkg/contracts/events"
)

// AllEvents é a chave de quem assina o resultado de qualquer evento
const AllEvents int64 = 0

const writeTimeout = 5 * time.Second

// client serializa as escritas: gorilla não aceita writers concorrentes na mesma conexão
type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *client) writeRaw(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas de resultados por evento
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// eventID -> conjunto de clientes
	subs map[int64]map[*client]struct{}
}

// NewHub cria um Hub com política de origem customizada
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[int64]map[*client]struct{}),
	}
}

// ServeHTTP gerencia o ciclo de vida de uma conexão: subscribe, unsubscribe e ping
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	defer func() {
		h.drop(c)
		_ = conn.Close()
	}()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case MsgSubscribe:
			h.subscribe(c, msg.EventID)
		case MsgUnsubscribe:
			h.unsubscribe(c, msg.EventID)
		case MsgPing:
			_ = c.writeJSON(map[string]string{"type": MsgPong})
		}
	}
}

func (h *Hub) subscribe(c *client, eventID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[eventID]; !ok {
		h.subs[eventID] = make(map[*client]struct{})
	}
	h.subs[eventID][c] = struct{}{}
}

func (h *Hub) unsubscribe(c *client, eventID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[eventID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, eventID)
		}
	}
}

// drop remove o cliente de todas as assinaturas ao desconectar
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
}

// Subscribers conta os clientes inscritos no evento
func (h *Hub) Subscribers(eventID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[eventID])
}

// Broadcast envia o resultado aos inscritos no evento e aos inscritos em todos
func (h *Hub) Broadcast(e events.EventSettled) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[e.EventID])+len(h.subs[AllEvents]))
	seen := make(map[*client]struct{})
	for _, id := range []int64{e.EventID, AllEvents} {
		for c := range h.subs[id] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(SettlementUpdate{Type: MsgSettled, EventID: e.EventID, Payload: e})
	if err != nil {
		h.log.Error("ws marshal", zap.Error(err))
		return
	}
	for _, c := range targets {
		if err := c.writeRaw(b); err != nil {
			h.log.Debug("ws write", zap.Int64("event_id", e.EventID), zap.Error(err))
		}
	}
}
