package routes

import (
	"github.com/engagenetwork/engage-api/handlers"
	"github.com/engagenetwork/engage-api/middleware"
	"github.com/gofiber/fiber/v2"
)

func SlateRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	slates := api.Group("/slates", middleware.Protected())
	slates.Post("", handlers.CreateListing)
	slates.Post("/:id/register", handlers.RegisterForSlate)
	slates.Post("/:id/cancel", handlers.CancelRegistration)
	slates.Post("/:id/complete", handlers.MarkComplete)
	slates.Post("/:id/content-rating", handlers.SubmitContentRating)
	slates.Post("/:id/behaviour-rating", handlers.SubmitBehaviourRating)
	slates.Get("/listings", handlers.GetAllListings)
	slates.Get("/mylistings", handlers.GetMyListings)
	slates.Get("/listing/:id", handlers.GetListingByID)
	slates.Get("/mysessions", handlers.GetMySessions)
	slates.Get("/session/:id", handlers.GetSessionByID)
	slates.Put("/:id", handlers.UpdateListing)
	slates.Delete("/:id", handlers.DeleteListing)

	admin := api.Group("/admin/slates", middleware.Protected(), middleware.AdminRequired())
	admin.Get("", handlers.GetAllSlates)
	admin.Get("/:id", handlers.GetSlateByIDAdmin)
}
