package ws

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Mount serves the dashboard stream at /ws behind auth.
func Mount(router fiber.Router, hub *Hub, auth fiber.Handler) {
	router.Use("/ws", auth, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	router.Get("/ws", websocket.New(func(c *websocket.Conn) {
		if !hub.Join(c) {
			c.Close()
			return
		}
		defer hub.Leave(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))
}
