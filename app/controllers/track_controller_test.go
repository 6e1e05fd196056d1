package controllers

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soundhaven/soundhaven/app/models"
	"github.com/soundhaven/soundhaven/app/repository"
)

type stubTrackRepo struct {
	repository.TrackRepository
	track *models.Track
	err   error
}

func (s stubTrackRepo) GetByShareLink(shareLink string) (*models.Track, error) {
	return s.track, s.err
}

type stubAlbumRepo struct {
	repository.AlbumRepository
	album *models.Album
	err   error
}

func (s stubAlbumRepo) GetByShareLink(shareLink string) (*models.Album, error) {
	return s.album, s.err
}

func useStubRepos(t *testing.T, trackRepo repository.TrackRepository, albumRepo repository.AlbumRepository) {
	t.Helper()
	repository.InitializeFactory(nil)
	repos := repository.GetGlobalRepositories()
	prevTrack, prevAlbum := repos.Track, repos.Album
	if trackRepo != nil {
		repos.Track = trackRepo
	}
	if albumRepo != nil {
		repos.Album = albumRepo
	}
	t.Cleanup(func() {
		repos.Track = prevTrack
		repos.Album = prevAlbum
	})
}

func TestResolveTrackUnknownShareLink(t *testing.T) {
	useStubRepos(t, stubTrackRepo{err: gorm.ErrRecordNotFound}, nil)

	app := fiber.New()
	app.Get("/t/:sharelink", func(c *fiber.Ctx) error {
		track, err := resolveTrack(c)
		assert.Nil(t, track)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errResponseHandled))
		return nil
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/t/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleGetTrackUnknownShareLink(t *testing.T) {
	useStubRepos(t, stubTrackRepo{err: gorm.ErrRecordNotFound}, nil)

	app := fiber.New()
	app.Get("/t/:sharelink", HandleGetTrack)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/t/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleTrackStreamURLUnknownShareLink(t *testing.T) {
	useStubRepos(t, stubTrackRepo{err: gorm.ErrRecordNotFound}, nil)

	app := fiber.New()
	app.Get("/t/:sharelink/stream", HandleTrackStreamURL)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/t/nope/stream", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleGetAlbumUnknownShareLink(t *testing.T) {
	useStubRepos(t, nil, stubAlbumRepo{err: gorm.ErrRecordNotFound})

	app := fiber.New()
	app.Get("/a/:sharelink", HandleGetAlbum)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/a/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
