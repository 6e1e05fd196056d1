package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAudioBySniff_MP3(t *testing.T) {
	// ID3v2 header
	head := append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)

	contentType, err := ValidateAudioBySniff("song.mp3", head)
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", contentType)
}

func TestValidateAudioBySniff_WAV(t *testing.T) {
	head := append([]byte("RIFF\x24\x08\x00\x00WAVEfmt "), make([]byte, 64)...)

	contentType, err := ValidateAudioBySniff("take1.wav", head)
	require.NoError(t, err)
	assert.Contains(t, []string{"audio/wav", "audio/wave", "audio/x-wav"}, contentType)
}

func TestValidateAudioBySniff_OctetStreamFallsBackToExtension(t *testing.T) {
	// FLAC magic is not recognized by http.DetectContentType
	head := append([]byte("fLaC\x00\x00\x00\x22"), make([]byte, 64)...)

	contentType, err := ValidateAudioBySniff("album.flac", head)
	require.NoError(t, err)
	assert.Equal(t, "audio/flac", contentType)
}

func TestValidateAudioBySniff_RejectsUnknownExtension(t *testing.T) {
	_, err := ValidateAudioBySniff("document.pdf", []byte("%PDF-1.7"))
	assert.Error(t, err)
}

func TestValidateAudioBySniff_RejectsHTML(t *testing.T) {
	head := []byte("<!DOCTYPE html><html><body>payload</body></html>")

	_, err := ValidateAudioBySniff("fake.mp3", head)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTML")
}

func TestValidateAudioBySniff_RejectsSVGWithAudioExtension(t *testing.T) {
	head := []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"></svg>`)

	_, err := ValidateAudioBySniff("fake.wav", head)
	assert.Error(t, err)
}

func TestValidateAudioBySniff_ExtensionCaseInsensitive(t *testing.T) {
	head := append([]byte("fLaC\x00\x00\x00\x22"), make([]byte, 64)...)

	_, err := ValidateAudioBySniff("ALBUM.FLAC", head)
	assert.NoError(t, err)
}
