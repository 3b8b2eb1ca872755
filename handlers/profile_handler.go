package handlers

import (
	"github.com/engagenetwork/engage-api/database"
	"github.com/engagenetwork/engage-api/middleware"
	"github.com/engagenetwork/engage-api/models"
	"github.com/gofiber/fiber/v2"
)

func GetMyProfile(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	return c.JSON(user)
}

// GetUserProfile exposes another account's profile with its aggregate
// ratings, for listing and chat display.
func GetUserProfile(c *fiber.Ctx) error {
	var user models.User
	if err := database.DB.First(&user, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	return c.JSON(user)
}
