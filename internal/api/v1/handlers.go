package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/soundhaven/soundhaven/app/controllers"
	"github.com/soundhaven/soundhaven/internal/pkg/middleware"
)

// APIServer bundles the versioned JSON API handlers
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// RegisterHandlers wires all v1 routes. Protected routes accept either a
// user API key or a web session; admin routes additionally require the
// admin role.
func RegisterHandlers(v1 fiber.Router, s *APIServer) {
	auth := middleware.APIAuthMiddleware()

	v1.Get("/ping", s.GetPing)

	// Track catalog and playback
	v1.Get("/tracks", controllers.HandleListTracks)
	v1.Post("/tracks", auth, controllers.HandleTrackUpload)
	v1.Get("/tracks/:sharelink", controllers.HandleGetTrack)
	v1.Delete("/tracks/:sharelink", auth, controllers.HandleDeleteTrack)
	v1.Get("/tracks/:sharelink/stream", controllers.HandleTrackStreamURL)
	v1.Get("/tracks/:sharelink/download", auth, controllers.HandleTrackDownloadURL)
	v1.Post("/tracks/:sharelink/play", controllers.HandleRegisterPlay)
	v1.Get("/tracks/:sharelink/stats", auth, controllers.HandleTrackPlayStats)

	// Ratings
	v1.Get("/tracks/:sharelink/rating", controllers.HandleGetTrackRating)
	v1.Put("/tracks/:sharelink/rating", auth, controllers.HandleRateTrack)
	v1.Delete("/tracks/:sharelink/rating", auth, controllers.HandleDeleteTrackRating)

	// Albums
	v1.Get("/albums", controllers.HandleListAlbums)
	v1.Post("/albums", auth, controllers.HandleCreateAlbum)
	v1.Get("/albums/:sharelink", controllers.HandleGetAlbum)
	v1.Patch("/albums/:sharelink", auth, controllers.HandleUpdateAlbum)
	v1.Delete("/albums/:sharelink", auth, controllers.HandleDeleteAlbum)
	v1.Post("/albums/:sharelink/tracks", auth, controllers.HandleAlbumAddTrack)
	v1.Delete("/albums/:sharelink/tracks/:trackid", auth, controllers.HandleAlbumRemoveTrack)

	// Account
	v1.Get("/user/profile", auth, controllers.HandleGetUserAccount)
	v1.Patch("/user/settings", auth, controllers.HandleUpdateUserSettings)
	v1.Get("/user/tracks", auth, controllers.HandleListMyTracks)
	v1.Get("/user/albums", auth, controllers.HandleListMyAlbums)
	// API key management stays session-only so a leaked key cannot rotate itself
	v1.Post("/user/api-key", middleware.RequireAuth, controllers.HandleIssueAPIKey)
	v1.Delete("/user/api-key", middleware.RequireAuth, controllers.HandleRevokeAPIKey)

	// Billing
	v1.Get("/billing/checkout", auth, controllers.HandleBillingCheckout)
	v1.Post("/billing/checkout", auth, controllers.HandleBillingCheckout)
	v1.Post("/billing/refund", auth, controllers.HandleBillingRefund)
	v1.Post("/billing/cancel", auth, controllers.HandleBillingCancel)
	v1.Post("/billing/trial", auth, controllers.HandleBillingTrial)
	v1.Get("/billing/subscription", auth, controllers.HandleGetSubscription)

	// Admin
	admin := v1.Group("/admin", auth, middleware.RequireAdmin)
	admin.Get("/stats", controllers.HandleAdminStats)
	admin.Get("/users", controllers.HandleAdminListUsers)
	admin.Get("/queues", controllers.HandleAdminListQueues)
	admin.Delete("/queues/*", controllers.HandleAdminDeleteQueueKey)
}
