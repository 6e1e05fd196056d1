package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soundhaven/soundhaven/app/repository"
	"github.com/soundhaven/soundhaven/internal/pkg/statistics"
)

// HandleAdminStats returns service-wide counters for the admin dashboard.
func HandleAdminStats(c *fiber.Ctx) error {
	statistics.UpdateCacheIfNeeded()
	data := statistics.GetStatisticsData()

	return c.JSON(fiber.Map{
		"total_users":  data.TotalUsers,
		"total_tracks": data.TotalTracks,
		"today_plays":  data.TodayPlays,
	})
}

// HandleAdminListUsers lists users, optionally filtered by a search term.
func HandleAdminListUsers(c *fiber.Ctx) error {
	offset, limit := parsePagination(c, 25, 100)
	repo := repository.GetGlobalFactory().GetUserRepository()

	query := c.Query("q")
	var err error
	var users any
	if query != "" {
		users, err = repo.Search(query, offset, limit)
	} else {
		users, err = repo.List(offset, limit)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load users"})
	}

	total, _ := repo.Count()
	return c.JSON(fiber.Map{"users": users, "total": total})
}

// HandleAdminListQueues inspects Redis keys matching the service prefixes.
func HandleAdminListQueues(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetQueueRepository()

	patterns := []string{"soundhaven:*", "stats:*"}
	keys, err := repo.FindKeysByPatterns(patterns)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list queue keys"})
	}

	entries := make([]fiber.Map, 0, len(keys))
	for _, key := range keys {
		entry := fiber.Map{"key": key}
		if ttl, err := repo.GetTTL(key); err == nil {
			entry["ttl_seconds"] = int64(ttl.Seconds())
		}
		if length, err := repo.GetListLength(key); err == nil && length > 0 {
			entry["length"] = length
		}
		entries = append(entries, entry)
	}

	return c.JSON(fiber.Map{"keys": entries, "total": len(entries)})
}

// HandleAdminDeleteQueueKey removes a single Redis key.
func HandleAdminDeleteQueueKey(c *fiber.Ctx) error {
	key := c.Params("*")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Key is required"})
	}

	repo := repository.GetGlobalFactory().GetQueueRepository()
	deleted, err := repo.DeleteKey(key)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to delete key"})
	}
	if deleted == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Key not found"})
	}
	return c.JSON(fiber.Map{"ok": true, "deleted": deleted})
}
