package websocket

import (
	"encoding/json"
	"fmt"
	"log"
)

// Event — сообщение, которое хаб доставляет подписчикам попытки
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// broadcastEnvelope — событие, адресованное подписчикам одной попытки
type broadcastEnvelope struct {
	attemptID string
	payload   []byte
}

// Hub ведет реестр подключенных клиентов по id попытки и рассылает им
// события рантайма (тики, истечение, подтверждение отправки). Регистрация,
// отписка и рассылка сериализованы через каналы в горутине Run.
type Hub struct {
	// Подписчики по id попытки
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastEnvelope
	shutdown   chan struct{}
}

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastEnvelope, 256),
		shutdown:   make(chan struct{}),
	}
}

// Run обрабатывает события хаба. Запускается в отдельной горутине.
func (h *Hub) Run() {
	log.Printf("WebSocket: хаб запущен")
	for {
		select {
		case client := <-h.register:
			subscribers, ok := h.clients[client.AttemptID]
			if !ok {
				subscribers = make(map[*Client]bool)
				h.clients[client.AttemptID] = subscribers
			}
			subscribers[client] = true
			log.Printf("WebSocket: клиент %s (ConnID: %s) подписан на попытку %s, подписчиков: %d",
				client.UserID, client.ConnectionID, client.AttemptID, len(subscribers))

		case client := <-h.unregister:
			if subscribers, ok := h.clients[client.AttemptID]; ok {
				if _, registered := subscribers[client]; registered {
					delete(subscribers, client)
					client.CloseSend()
					if len(subscribers) == 0 {
						delete(h.clients, client.AttemptID)
					}
					log.Printf("WebSocket: клиент %s (ConnID: %s) отписан от попытки %s",
						client.UserID, client.ConnectionID, client.AttemptID)
				}
			}

		case envelope := <-h.broadcast:
			for client := range h.clients[envelope.attemptID] {
				if client.IsSendClosed() {
					continue
				}
				select {
				case client.send <- envelope.payload:
				default:
					// Буфер клиента переполнен — отключаем, read pump
					// доведет отписку до конца
					log.Printf("WebSocket: буфер клиента %s (ConnID: %s) переполнен, соединение закрывается",
						client.UserID, client.ConnectionID)
					delete(h.clients[envelope.attemptID], client)
					client.CloseSend()
				}
			}

		case <-h.shutdown:
			for attemptID, subscribers := range h.clients {
				for client := range subscribers {
					client.CloseSend()
				}
				delete(h.clients, attemptID)
			}
			log.Printf("WebSocket: хаб остановлен")
			return
		}
	}
}

// SendEventToAttempt доставляет событие всем подписчикам попытки.
// Реализует интерфейс нотификатора рантайма.
func (h *Hub) SendEventToAttempt(attemptID string, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", eventType, err)
	}

	select {
	case h.broadcast <- broadcastEnvelope{attemptID: attemptID, payload: payload}:
		return nil
	default:
		return fmt.Errorf("websocket broadcast queue is full, event %s dropped", eventType)
	}
}

// Shutdown останавливает цикл Run и закрывает каналы всех клиентов
func (h *Hub) Shutdown() {
	close(h.shutdown)
}
