package rest

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"spreadmaster/internal/application/port"
	"spreadmaster/internal/domain/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // 必须小于 pongWait
	clientSendSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub WebSocket 推送枢纽：实现 Sink，每次渲染后把视图广播给所有连接
// 慢客户端的发送队列满时直接断开，绝不阻塞引擎
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}

	// Latest 新连接建立时立即补发的视图快照，可为 nil
	Latest func() *model.BoardView
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) PublishBoard(v *model.BoardView) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			// 队列已满：断开慢客户端
			delete(h.clients, c)
			close(c.send)
		}
	}
	return nil
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendSize)}

	// 新连接立即拿到最近的视图，不用等下一次渲染
	var catchup []byte
	if h.Latest != nil {
		if v := h.Latest(); v != nil {
			if b, err := json.Marshal(v); err == nil {
				catchup = b
			}
		}
	}

	// 注册与补发在同一临界区：广播侧不可能先填满队列再关掉 send
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if catchup != nil {
		c.send <- catchup // 队列全新且为空，必有空位
	}
	h.mu.Unlock()

	go c.writePump()
	go c.readPump(h)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// readPump 只消费控制帧，入站数据一律丢弃
func (c *client) readPump(h *Hub) {
	defer func() {
		h.drop(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
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

func (c *client) writePump() {
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
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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

var _ port.Sink = (*Hub)(nil)
