package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/soundhaven/soundhaven/app/models"
	"github.com/soundhaven/soundhaven/app/repository"
	"github.com/soundhaven/soundhaven/internal/pkg/metrics/counter"
	"github.com/soundhaven/soundhaven/internal/pkg/usercontext"
)

type albumRequest struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Description string  `json:"description"`
	CoverURL    string  `json:"cover_url"`
	ReleasedAt  *string `json:"released_at"`
	IsPublic    *bool   `json:"is_public"`
}

// HandleCreateAlbum creates an album owned by the caller.
func HandleCreateAlbum(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	var req albumRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Artist) == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "Title and artist are required"})
	}

	album := &models.Album{
		UserID:      userCtx.UserID,
		Title:       strings.TrimSpace(req.Title),
		Artist:      strings.TrimSpace(req.Artist),
		Description: req.Description,
		CoverURL:    req.CoverURL,
		IsPublic:    req.IsPublic == nil || *req.IsPublic,
	}
	if req.ReleasedAt != nil {
		if t, err := time.Parse("2006-01-02", *req.ReleasedAt); err == nil {
			album.ReleasedAt = &t
		}
	}

	repo := repository.GetGlobalFactory().GetAlbumRepository()
	if err := repo.Create(album); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create album"})
	}

	return c.Status(fiber.StatusCreated).JSON(album)
}

// HandleListAlbums returns public albums, paginated.
func HandleListAlbums(c *fiber.Ctx) error {
	offset, limit := parsePagination(c, 20, 100)
	repo := repository.GetGlobalFactory().GetAlbumRepository()

	albums, err := repo.GetPublicAlbums(offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load albums"})
	}
	total, _ := repo.Count()
	return c.JSON(fiber.Map{"albums": albums, "total": total})
}

// HandleListMyAlbums returns the caller's albums including private ones.
func HandleListMyAlbums(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	repo := repository.GetGlobalFactory().GetAlbumRepository()
	albums, err := repo.GetByUserID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load albums"})
	}
	return c.JSON(fiber.Map{"albums": albums})
}

// HandleGetAlbum returns one album with its tracks and bumps the view counter.
func HandleGetAlbum(c *fiber.Ctx) error {
	album, err := resolveAlbum(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	repo := repository.GetGlobalFactory().GetAlbumRepository()
	tracks, err := repo.GetTracks(album.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load album tracks"})
	}

	// Views count public reads only, owner refreshes stay out of the numbers.
	// Buffered in Redis and flushed to the DB in batches.
	userCtx := usercontext.GetUserContext(c)
	if album.UserID != userCtx.UserID {
		_ = counter.AddAlbumView(album.ID)
	}

	return c.JSON(fiber.Map{"album": album, "tracks": tracks})
}

// HandleUpdateAlbum updates album metadata. Owner only.
func HandleUpdateAlbum(c *fiber.Ctx) error {
	album, err := resolveOwnedAlbum(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	var req albumRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	if v := strings.TrimSpace(req.Title); v != "" {
		album.Title = v
	}
	if v := strings.TrimSpace(req.Artist); v != "" {
		album.Artist = v
	}
	if req.Description != "" {
		album.Description = req.Description
	}
	if req.CoverURL != "" {
		album.CoverURL = req.CoverURL
	}
	if req.IsPublic != nil {
		album.IsPublic = *req.IsPublic
	}
	if req.ReleasedAt != nil {
		if t, perr := time.Parse("2006-01-02", *req.ReleasedAt); perr == nil {
			album.ReleasedAt = &t
		}
	}

	repo := repository.GetGlobalFactory().GetAlbumRepository()
	if err := repo.Update(album); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update album"})
	}
	return c.JSON(album)
}

// HandleDeleteAlbum removes the album and detaches its tracks. Owner only.
func HandleDeleteAlbum(c *fiber.Ctx) error {
	album, err := resolveOwnedAlbum(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	repo := repository.GetGlobalFactory().GetAlbumRepository()
	if err := repo.Delete(album.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to delete album"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

type albumTrackRequest struct {
	TrackID uint `json:"track_id"`
}

// HandleAlbumAddTrack assigns one of the caller's tracks to the album.
func HandleAlbumAddTrack(c *fiber.Ctx) error {
	album, err := resolveOwnedAlbum(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	var req albumTrackRequest
	if err := c.BodyParser(&req); err != nil || req.TrackID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "track_id is required"})
	}

	trackRepo := repository.GetGlobalFactory().GetTrackRepository()
	track, err := trackRepo.GetByID(req.TrackID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Track not found"})
	}
	if track.UserID != album.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Track belongs to another user"})
	}

	repo := repository.GetGlobalFactory().GetAlbumRepository()
	if err := repo.AddTrack(album.ID, track.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to add track"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleAlbumRemoveTrack detaches a track from the album.
func HandleAlbumRemoveTrack(c *fiber.Ctx) error {
	album, err := resolveOwnedAlbum(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	trackID, err := c.ParamsInt("trackid")
	if err != nil || trackID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid track id"})
	}

	repo := repository.GetGlobalFactory().GetAlbumRepository()
	if err := repo.RemoveTrack(album.ID, uint(trackID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to remove track"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// resolveAlbum loads the album addressed by the :sharelink param and applies
// visibility rules. On failure the JSON response is already written and the
// returned error wraps errResponseHandled.
func resolveAlbum(c *fiber.Ctx) (*models.Album, error) {
	shareLink := c.Params("sharelink")
	repo := repository.GetGlobalFactory().GetAlbumRepository()

	album, err := repo.GetByShareLink(shareLink)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, markHandledResponse(c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Album not found"}))
		}
		return nil, markHandledResponse(c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load album"}))
	}

	if !album.IsPublic {
		userCtx := usercontext.GetUserContext(c)
		if !userCtx.IsLoggedIn || (album.UserID != userCtx.UserID && !userCtx.IsAdmin) {
			return nil, markHandledResponse(c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Album not found"}))
		}
	}

	return album, nil
}

func resolveOwnedAlbum(c *fiber.Ctx) (*models.Album, error) {
	album, err := resolveAlbum(c)
	if err != nil {
		return nil, err
	}
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || (album.UserID != userCtx.UserID && !userCtx.IsAdmin) {
		return nil, markHandledResponse(c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Only the owner can modify an album"}))
	}
	return album, nil
}
