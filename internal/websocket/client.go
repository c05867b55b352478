package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания записи сообщения
	writeWait = 10 * time.Second

	// Время ожидания следующего pong сообщения от клиента
	pongWait = 60 * time.Second

	// Периодичность отправки ping сообщений клиенту
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 512 * 1024 // 512KB

	// Размер буфера канала отправки
	writeBufferSize = 256
)

// Client представляет одно WebSocket соединение пользователя
type Client struct {
	ID      uuid.UUID
	UserID  string
	conn    *websocket.Conn
	manager *Manager
	send    chan []byte
}

// NewClient создает нового клиента WebSocket
func NewClient(conn *websocket.Conn, manager *Manager, userID string) *Client {
	return &Client{
		ID:      uuid.New(),
		UserID:  userID,
		conn:    conn,
		manager: manager,
		send:    make(chan []byte, writeBufferSize),
	}
}

// StartPumps запускает горутины чтения и записи для клиента
func (c *Client) StartPumps() {
	go c.writePump()
	go c.readPump()
}

// readPump обрабатывает входящие сообщения от клиента
func (c *Client) readPump() {
	defer func() {
		c.manager.RemoveClient(c.ID)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket unexpected close for client %s: %v", c.ID, err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// handleIncomingMessage обрабатывает сообщение от клиента.
// Сервер использует WebSocket только для push-уведомлений, поэтому от
// клиента принимается только ping.
func (c *Client) handleIncomingMessage(message []byte) {
	var event Event
	if err := json.Unmarshal(message, &event); err != nil {
		log.Printf("Error parsing message from client %s: %v", c.ID, err)
		return
	}

	switch event.Type {
	case "ping":
		pong, _ := json.Marshal(Event{
			Type:      "pong",
			Timestamp: time.Now(),
		})
		select {
		case c.send <- pong:
		default:
		}
	default:
		log.Printf("Unknown event type from client %s: %s", c.ID, event.Type)
	}
}

// writePump отправляет сообщения клиенту и поддерживает соединение ping'ами
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрыт, закрываем соединение
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Добавляем накопившиеся сообщения в текущий фрейм
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.manager.ctx.Done():
			return
		}
	}
}
