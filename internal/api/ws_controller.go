package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Экраны склада открываются с разных хостов внутри сети кухни
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeWS подключает клиента к ленте событий распределения остатков
// GET /api/v1/ws/inventory
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Ошибка обновления WebSocket соединения")
		return
	}

	h.AddClient(conn)
	log.Info().Int("clients", h.GetClientsCount()).Msg("📱 Экран склада подключен")

	defer func() {
		h.RemoveClient(conn)
		log.Info().Int("clients", h.GetClientsCount()).Msg("📱 Экран склада отключен")
	}()

	// Клиент ничего не шлет, читаем только чтобы заметить закрытие
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("⚠️ WebSocket ошибка")
			}
			break
		}
	}
}
