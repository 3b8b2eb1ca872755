package routes

import (
	"github.com/engagenetwork/engage-api/handlers"
	"github.com/engagenetwork/engage-api/middleware"
	"github.com/gofiber/fiber/v2"
)

func VideoRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	video := api.Group("/video", middleware.Protected())
	video.Post("/:id/initiate", handlers.InitiateVideoChat)
	video.Get("/:id/token", handlers.GetVideoToken)
}
