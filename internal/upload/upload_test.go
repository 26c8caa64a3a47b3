package upload

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestNormalize(t *testing.T) {
	mt, err := Normalize(pngHeader, "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)

	mt, err = Normalize(pngHeader, "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)

	mt, err = Normalize([]byte("whatever"), "image/webp; q=1")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mt)

	mt, err = Normalize([]byte("whatever"), "IMAGE/JPG")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mt)
}

func TestNormalizeRejects(t *testing.T) {
	_, err := Normalize(nil, "image/png")
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Normalize(bytes.Repeat([]byte{1}, MaxBytes+1), "image/png")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = Normalize([]byte("GIF89a...."), "")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Normalize([]byte("plain text"), "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestAccepted(t *testing.T) {
	assert.True(t, Accepted("image/png"))
	assert.True(t, Accepted(" image/jpeg; charset=binary"))
	assert.False(t, Accepted("image/gif"))
}

func TestParseDataURL(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngHeader)

	data, mt, err := ParseDataURL(DataURL("image/png", encoded))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
	assert.Equal(t, "image/png", mt)

	data, mt, err = ParseDataURL(encoded)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
	assert.Empty(t, mt)

	_, _, err = ParseDataURL("data:image/png," + encoded)
	assert.ErrorIs(t, err, ErrInvalidDataURL)

	_, _, err = ParseDataURL("data:image/png;base64,!!!")
	assert.ErrorIs(t, err, ErrInvalidDataURL)

	_, _, err = ParseDataURL("  ")
	assert.ErrorIs(t, err, ErrEmpty)
}
