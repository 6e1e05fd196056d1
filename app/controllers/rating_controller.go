package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/soundhaven/soundhaven/app/repository"
	"github.com/soundhaven/soundhaven/internal/pkg/usercontext"
)

type rateTrackRequest struct {
	Score int `json:"score"`
}

// HandleRateTrack sets the caller's score for a track, replacing any
// previous rating.
func HandleRateTrack(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	track, err := resolveTrack(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	var req rateTrackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if req.Score < 1 || req.Score > 5 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "Score must be between 1 and 5"})
	}

	repo := repository.GetGlobalFactory().GetRatingRepository()
	rating, err := repo.Upsert(userCtx.UserID, track.ID, req.Score)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save rating"})
	}

	summary, err := repo.GetTrackSummary(track.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load rating summary"})
	}

	return c.JSON(fiber.Map{
		"score":   rating.Score,
		"average": summary.Average,
		"count":   summary.Count,
	})
}

// HandleGetTrackRating returns the aggregate rating for a track, plus the
// caller's own score when logged in.
func HandleGetTrackRating(c *fiber.Ctx) error {
	track, err := resolveTrack(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	repo := repository.GetGlobalFactory().GetRatingRepository()
	summary, err := repo.GetTrackSummary(track.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load rating summary"})
	}

	response := fiber.Map{
		"average": summary.Average,
		"count":   summary.Count,
	}

	userCtx := usercontext.GetUserContext(c)
	if userCtx.IsLoggedIn {
		own, err := repo.GetByUserAndTrack(userCtx.UserID, track.ID)
		if err == nil {
			response["own_score"] = own.Score
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load rating"})
		}
	}

	return c.JSON(response)
}

// HandleDeleteTrackRating removes the caller's rating for a track.
func HandleDeleteTrackRating(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	track, err := resolveTrack(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	repo := repository.GetGlobalFactory().GetRatingRepository()
	if _, err := repo.GetByUserAndTrack(userCtx.UserID, track.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No rating to remove"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load rating"})
	}
	if err := repo.Delete(userCtx.UserID, track.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to delete rating"})
	}

	return c.JSON(fiber.Map{"ok": true})
}
