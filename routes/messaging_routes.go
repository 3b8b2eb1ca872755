package routes

import (
	"github.com/engagenetwork/engage-api/handlers"
	"github.com/engagenetwork/engage-api/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func MessagingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	messages := api.Group("/messages", middleware.Protected())
	messages.Post("/initiate", handlers.InitiateChat)
	messages.Post("/:chatId/message", handlers.PostMessage)
	messages.Get("", handlers.GetRecentChats)
	messages.Get("/:chatId", handlers.GetConversation)
	messages.Put("/:chatId/mark-read", handlers.MarkChatRead)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(handlers.ServeWs))
}
