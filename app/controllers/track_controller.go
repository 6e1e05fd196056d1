package controllers

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundhaven/soundhaven/app/models"
	"github.com/soundhaven/soundhaven/app/repository"
	"github.com/soundhaven/soundhaven/internal/pkg/entitlements"
	"github.com/soundhaven/soundhaven/internal/pkg/jobqueue"
	"github.com/soundhaven/soundhaven/internal/pkg/metrics/counter"
	"github.com/soundhaven/soundhaven/internal/pkg/statistics"
	"github.com/soundhaven/soundhaven/internal/pkg/storage"
	"github.com/soundhaven/soundhaven/internal/pkg/upload"
	"github.com/soundhaven/soundhaven/internal/pkg/usercontext"
)

const maxAudioUploadBytes = 200 << 20 // 200 MiB

// HandleTrackUpload stores the audio object and creates the track record.
func HandleTrackUpload(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Missing audio file"})
	}
	if fileHeader.Size > maxAudioUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "too_large", "message": "Audio file exceeds upload limit"})
	}

	title := strings.TrimSpace(c.FormValue("title"))
	artist := strings.TrimSpace(c.FormValue("artist"))
	if title == "" || artist == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "Title and artist are required"})
	}

	store := storage.GetAudioStore()
	if store == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Audio storage unavailable"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to read upload"})
	}
	defer file.Close()

	// Sniff the first bytes before trusting the extension
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	contentType, err := upload.ValidateAudioBySniff(fileHeader.Filename, head[:n])
	if err != nil {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": "unsupported_media_type", "message": err.Error()})
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to read upload"})
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	audioKey := fmt.Sprintf("audio/%d/%s%s", userCtx.UserID, uuid.New().String(), ext)
	if err := store.Put(c.Context(), audioKey, contentType, fileHeader.Size, file); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to store audio"})
	}

	durationMS := 0
	if v := strings.TrimSpace(c.FormValue("duration_ms")); v != "" {
		if ms, convErr := strconv.Atoi(v); convErr == nil && ms > 0 {
			durationMS = ms
		}
	}

	track := &models.Track{
		UserID:      userCtx.UserID,
		Title:       title,
		Artist:      artist,
		Genre:       strings.TrimSpace(c.FormValue("genre")),
		DurationMS:  durationMS,
		AudioKey:    audioKey,
		ContentType: contentType,
		FileSize:    fileHeader.Size,
		IsPublic:    c.FormValue("is_public", "true") != "false",
	}

	repo := repository.GetGlobalFactory().GetTrackRepository()
	if err := repo.Create(track); err != nil {
		_ = store.Delete(c.Context(), audioKey)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create track"})
	}

	go statistics.UpdateStatisticsCache()

	return c.Status(fiber.StatusCreated).JSON(track)
}

// HandleListTracks returns public tracks with optional search and sorting.
func HandleListTracks(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetTrackRepository()

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		tracks, err := repo.Search(q)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Search failed"})
		}
		return c.JSON(fiber.Map{"tracks": tracks})
	}

	switch c.Query("sort") {
	case "top":
		tracks, err := repo.GetTopPlayed(c.QueryInt("limit", 20))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load tracks"})
		}
		return c.JSON(fiber.Map{"tracks": tracks})
	case "recent":
		tracks, err := repo.GetRecentTracks(c.QueryInt("limit", 20))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load tracks"})
		}
		return c.JSON(fiber.Map{"tracks": tracks})
	}

	offset, limit := parsePagination(c, 20, 100)
	tracks, err := repo.GetPublicTracks(offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load tracks"})
	}
	total, _ := repo.Count()
	return c.JSON(fiber.Map{"tracks": tracks, "total": total})
}

// HandleListMyTracks returns the caller's tracks including private ones.
func HandleListMyTracks(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	offset, limit := parsePagination(c, 20, 100)
	repo := repository.GetGlobalFactory().GetTrackRepository()
	tracks, err := repo.GetByUserID(userCtx.UserID, offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load tracks"})
	}
	total, _ := repo.CountByUserID(userCtx.UserID)
	return c.JSON(fiber.Map{"tracks": tracks, "total": total})
}

// HandleGetTrack returns one track by share link.
func HandleGetTrack(c *fiber.Ctx) error {
	track, err := resolveTrack(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}
	return c.JSON(track)
}

// HandleTrackStreamURL hands out a short-lived presigned URL for playback.
// The requested quality is gated by the caller's plan.
func HandleTrackStreamURL(c *fiber.Ctx) error {
	track, err := resolveTrack(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	userCtx := usercontext.GetUserContext(c)
	plan := entitlements.Normalize(userCtx.Plan)

	quality := c.Query("quality", "standard")
	stdQ, highQ, losslessQ := entitlements.AllowedQualities(plan)
	allowed := map[string]bool{"standard": stdQ, "high": highQ, "lossless": losslessQ}
	if !allowed[quality] {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": fmt.Sprintf("Quality %q requires a higher plan", quality),
		})
	}

	store := storage.GetAudioStore()
	if store == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Audio storage unavailable"})
	}

	url, err := store.PresignStreamURL(c.Context(), track.AudioKey, storage.DefaultStreamURLTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create stream URL"})
	}

	return c.JSON(fiber.Map{
		"url":        url,
		"expires_in": int(storage.DefaultStreamURLTTL.Seconds()),
		"quality":    quality,
	})
}

type registerPlayRequest struct {
	PlayedMS int `json:"played_ms"`
}

// HandleRegisterPlay appends a play event for analytics and bumps counters.
func HandleRegisterPlay(c *fiber.Ctx) error {
	track, err := resolveTrack(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	var req registerPlayRequest
	_ = c.BodyParser(&req)

	userCtx := usercontext.GetUserContext(c)
	ipv4, ipv6 := GetClientIP(c)
	clientIP := ipv4
	if clientIP == "" {
		clientIP = ipv6
	}

	event := &models.PlayEvent{
		TrackID:  track.ID,
		UserID:   userCtx.UserID,
		PlayedMS: req.PlayedMS,
		ClientIP: clientIP,
	}

	repo := repository.GetGlobalFactory().GetTrackRepository()
	if err := repo.RegisterPlay(event); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to register play"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true})
}

// HandleTrackDownloadURL presigns a download URL and counts the download.
func HandleTrackDownloadURL(c *fiber.Ctx) error {
	track, err := resolveTrack(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	store := storage.GetAudioStore()
	if store == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Audio storage unavailable"})
	}

	url, err := store.PresignStreamURL(c.Context(), track.AudioKey, storage.DefaultStreamURLTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create download URL"})
	}

	// Buffered in Redis, flushed to the DB by the jobqueue manager
	_ = counter.AddTrackDownload(track.ID)

	return c.JSON(fiber.Map{"url": url, "expires_in": int(storage.DefaultStreamURLTTL.Seconds())})
}

// HandleTrackPlayStats returns per-day play counts. Owner only.
func HandleTrackPlayStats(c *fiber.Ctx) error {
	track, err := resolveTrack(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || (track.UserID != userCtx.UserID && !userCtx.IsAdmin) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Only the owner can read track analytics"})
	}

	days := c.QueryInt("days", 30)
	if days < 1 {
		days = 30
	}
	if days > 365 {
		days = 365
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	repo := repository.GetGlobalFactory().GetTrackRepository()
	stats, err := repo.GetDailyPlayStats(track.ID, start, end)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load play stats"})
	}

	return c.JSON(fiber.Map{
		"track_id":   track.ID,
		"play_count": track.PlayCount,
		"daily":      stats,
	})
}

// HandleDeleteTrack removes the track record and its audio object. Owner only.
func HandleDeleteTrack(c *fiber.Ctx) error {
	track, err := resolveTrack(c)
	if err != nil {
		if errors.Is(err, errResponseHandled) {
			return nil
		}
		return err
	}

	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || (track.UserID != userCtx.UserID && !userCtx.IsAdmin) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Only the owner can delete a track"})
	}

	repo := repository.GetGlobalFactory().GetTrackRepository()
	if err := repo.Delete(track.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to delete track"})
	}

	// The audio object is removed asynchronously with retries
	payload := jobqueue.AudioDeleteJobPayload{
		TrackID:   track.ID,
		TrackUUID: track.UUID,
		AudioKey:  track.AudioKey,
	}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeAudioDelete, payload.ToMap()); err != nil {
		// Fall back to a direct delete when the queue is unavailable
		if store := storage.GetAudioStore(); store != nil {
			_ = store.Delete(c.Context(), track.AudioKey)
		}
	}

	return c.JSON(fiber.Map{"ok": true})
}

// resolveTrack loads the track addressed by the :sharelink param and applies
// visibility rules. On failure the JSON response is already written and the
// returned error wraps errResponseHandled.
func resolveTrack(c *fiber.Ctx) (*models.Track, error) {
	shareLink := c.Params("sharelink")
	repo := repository.GetGlobalFactory().GetTrackRepository()

	track, err := repo.GetByShareLink(shareLink)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, markHandledResponse(c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Track not found"}))
		}
		return nil, markHandledResponse(c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load track"}))
	}

	if !track.IsPublic {
		userCtx := usercontext.GetUserContext(c)
		if !userCtx.IsLoggedIn || (track.UserID != userCtx.UserID && !userCtx.IsAdmin) {
			return nil, markHandledResponse(c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Track not found"}))
		}
	}

	return track, nil
}
