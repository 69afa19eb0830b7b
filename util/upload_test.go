package util

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestUploadStoreDisk(t *testing.T) {
	dir := t.TempDir()
	store := UploadStore{Mode: UploadModeDisk, Dir: dir, PublicPrefix: "/uploads"}

	path, err := store.Save(bytes.NewReader(pngHeader), "patient-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "/uploads/patient-1-"))
	assert.True(t, strings.HasSuffix(path, ".png"))

	_, err = os.Stat(filepath.Join(dir, filepath.Base(path)))
	assert.NoError(t, err)
}

func TestUploadStoreInline(t *testing.T) {
	store := UploadStore{Mode: UploadModeInline}

	uri, err := store.Save(bytes.NewReader(pngHeader), "doctor-2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}

func TestUploadStoreRejects(t *testing.T) {
	store := UploadStore{Mode: UploadModeInline}

	_, err := store.Save(strings.NewReader("just some text"), "p")
	assert.ErrorIs(t, err, ErrUnsupportedUpload)

	_, err = store.Save(bytes.NewReader(nil), "p")
	assert.ErrorIs(t, err, ErrEmptyUpload)

	big := append(append([]byte{}, pngHeader...), make([]byte, MaxUploadSize)...)
	_, err = store.Save(bytes.NewReader(big), "p")
	assert.ErrorIs(t, err, ErrUploadTooLarge)
}
