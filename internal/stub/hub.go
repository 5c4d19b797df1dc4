// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package stub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is one realtime push.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type hubClient struct {
	id   string
	user string
	conn *websocket.Conn
	send chan []byte
	kick chan struct{}
	once sync.Once
}

func (c *hubClient) disconnect() {
	c.once.Do(func() { close(c.kick) })
}

// Hub keeps the realtime connections of every user and pushes messages to
// them. A user may hold several connections.
type Hub struct {
	identityParam string
	logger        zerolog.Logger

	mu      sync.RWMutex
	clients map[string]map[string]*hubClient
	wg      sync.WaitGroup
}

// NewHub creates a hub that reads the user id from identityParam.
func NewHub(identityParam string, logger zerolog.Logger) *Hub {
	if identityParam == "" {
		identityParam = "user_id"
	}
	return &Hub{
		identityParam: identityParam,
		logger:        logger,
		clients:       make(map[string]map[string]*hubClient),
	}
}

// ServeHTTP upgrades the request and serves the connection until either
// side closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get(h.identityParam)
	if user == "" {
		WriteError(w, http.StatusBadRequest, ErrInvalidQuery, "missing "+h.identityParam)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &hubClient{
		id:   uuid.NewString(),
		user: user,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		kick: make(chan struct{}),
	}
	h.register(c)
	defer h.unregister(c)
	defer conn.Close()

	h.logger.Info().Str("user", user).Str("conn", c.id).Msg("websocket connection established")

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	// Read goroutine (for close detection and pongs)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.kick:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "disconnected by server"),
				time.Now().Add(writeWait))
			return
		case <-done:
			h.logger.Info().Str("user", user).Str("conn", c.id).Msg("websocket connection closed")
			return
		}
	}
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.user]
	if !ok {
		conns = make(map[string]*hubClient)
		h.clients[c.user] = conns
	}
	conns[c.id] = c
	h.wg.Add(1)
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[c.user]; ok {
		delete(conns, c.id)
		if len(conns) == 0 {
			delete(h.clients, c.user)
		}
	}
	h.wg.Done()
}

// Push sends a {type, data} message to every connection of user and
// returns how many connections it was queued on.
func (h *Hub) Push(user, kind string, data interface{}) int {
	raw, err := json.Marshal(Message{Type: kind, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("type", kind).Msg("cannot encode push")
		return 0
	}
	return h.PushRaw(user, raw)
}

// PushRaw sends raw bytes to every connection of user. A connection whose
// buffer is full misses the message.
func (h *Hub) PushRaw(user string, raw []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.clients[user] {
		select {
		case c.send <- raw:
			n++
		default:
			h.logger.Warn().Str("user", user).Str("conn", c.id).Msg("push buffer full, message dropped")
		}
	}
	return n
}

// Connections returns the number of open connections for user.
func (h *Hub) Connections(user string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[user])
}

// Disconnect closes every connection of user and returns how many there
// were.
func (h *Hub) Disconnect(user string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.clients[user]
	for _, c := range conns {
		c.disconnect()
	}
	return len(conns)
}

// Close disconnects every client and waits for their handlers to return.
func (h *Hub) Close() {
	h.mu.RLock()
	for _, conns := range h.clients {
		for _, c := range conns {
			c.disconnect()
		}
	}
	h.mu.RUnlock()
	h.wg.Wait()
}
