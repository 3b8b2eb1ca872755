package routes

import (
	"github.com/engagenetwork/engage-api/handlers"
	"github.com/engagenetwork/engage-api/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	profile := api.Group("/profile", middleware.Protected())
	profile.Get("/me", handlers.GetMyProfile)
	profile.Get("/:id", handlers.GetUserProfile)
}
