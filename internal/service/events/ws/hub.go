package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"HandsFreeReader/internal/service/events"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	readLimit  = 4 << 10
)

var _ events.Sink = (*Hub)(nil)

// Hub раздаёт события всем подключённым клиентам интерфейса.
// Emit не блокируется: у каждого клиента ограниченный буфер, переполнивший его клиент отключается.
type Hub struct {
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
	snapshot func() events.Event
	buffer   int

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub snapshot вызывается для каждого нового клиента; nil: без начального состояния.
func NewHub(logger *zap.SugaredLogger, snapshot func() events.Event) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// интерфейс открывается с локального файла или другого порта
			CheckOrigin: func(*http.Request) bool { return true },
		},
		snapshot: snapshot,
		buffer:   32,
		clients:  make(map[string]*client),
	}
}

func (h *Hub) Emit(ev events.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warnw("Failed to encode event", "type", ev.Type, "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.logger.Warnw("WebSocket client too slow, dropping", "client", id)
			delete(h.clients, id)
			c.close()
		}
	}
}

// Clients число подключённых клиентов.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close отключает всех клиентов; новые подключения отклоняются.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		c.close()
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Warnw("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, h.buffer)}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	h.logger.Infow("WebSocket client connected", "client", c.id, "remote", r.RemoteAddr)

	go h.writeLoop(c)
	h.readLoop(c)
}

// register ставит снимок первым сообщением и добавляет клиента под одним h.mu:
// событие, отправленное после снимка, гарантированно дойдёт до клиента.
// Источник снимка не должен вызывать Emit, держа свою блокировку.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.snapshot != nil {
		if b, err := json.Marshal(h.snapshot()); err == nil {
			c.send <- b
		} else {
			h.logger.Warnw("Failed to encode snapshot", "client", c.id, "error", err)
		}
	}
	h.clients[c.id] = c
	return true
}

// readLoop держит соединение: входящие сообщения не нужны, важны pong и закрытие.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
		h.logger.Infow("WebSocket client disconnected", "client", c.id)
	}()
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
		c.close()
	}
}
