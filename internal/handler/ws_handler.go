package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/attempt-runtime/internal/service/attemptruntime"
	"github.com/yourusername/attempt-runtime/internal/websocket"
)

// WSHandler обрабатывает WebSocket-подписки на события попытки
type WSHandler struct {
	hub     *websocket.Hub
	manager *attemptruntime.Manager
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(hub *websocket.Hub, manager *attemptruntime.Manager) *WSHandler {
	return &WSHandler{hub: hub, manager: manager}
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Пустой Origin — не браузерный клиент, разрешаем
		return true
	},
}

// Subscribe апгрейдит соединение и подписывает клиента на тики и события
// его попытки. Аутентификация уже прошла в middleware (токен в query).
func (w *WSHandler) Subscribe(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(string)
	userID := c.MustGet("user_id").(string)

	// Подписка имеет смысл только на живую попытку этого пользователя
	rt, ok := w.manager.Get(attemptID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "attempt is not active, enter it first"})
		return
	}
	if rt.Ref().UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "attempt belongs to another user"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket: ошибка апгрейда для попытки %s: %v", attemptID, err)
		return
	}

	client := websocket.NewClient(w.hub, conn, userID, attemptID)
	client.StartPumps()
}
