package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rajivgeraev/barter-api/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server обслуживает WebSocket соединения на отдельном HTTP-порту.
// Аутентификация выполняется через query-параметр token, так как
// браузерный WebSocket API не поддерживает произвольные заголовки.
type Server struct {
	manager    *Manager
	jwtService *utils.JWTService
	addr       string
}

// NewServer создает сервер WebSocket уведомлений
func NewServer(addr string, manager *Manager, jwtService *utils.JWTService) *Server {
	return &Server{
		manager:    manager,
		jwtService: jwtService,
		addr:       addr,
	}
}

// ServeHTTP обрабатывает запрос на установку WebSocket соединения
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing authentication token", http.StatusUnauthorized)
		return
	}

	userID, err := s.jwtService.ExtractUserID(token)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, s.manager, userID)
	s.manager.AddClient(client)
	client.StartPumps()

	// Подтверждаем установку соединения
	welcome, _ := json.Marshal(Event{
		Type:      EventConnected,
		UserID:    userID,
		Timestamp: time.Now(),
	})
	client.send <- welcome
}

// ListenAndServe запускает HTTP-сервер WebSocket уведомлений.
// Блокирует до остановки сервера.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)

	log.Printf("✅ WebSocket сервер запущен на %s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}
