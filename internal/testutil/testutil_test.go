package testutil

import (
	"bytes"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.NotEmpty(t, root)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
}

func TestGetTestDataDir(t *testing.T) {
	assert.Contains(t, GetTestDataDir(t), "testdata")
}

func TestEnsureDirAndWriteFile(t *testing.T) {
	tempDir := CreateTempDir(t)
	testDir := filepath.Join(tempDir, "test", "nested", "dir")

	require.NoError(t, EnsureDir(testDir))
	assert.True(t, DirExists(testDir))

	path := WriteFile(t, tempDir, "a/b.bin", []byte{1, 2, 3})
	assert.True(t, FileExists(path))
	assert.False(t, DirExists(path))
	assert.False(t, FileExists(filepath.Join(tempDir, "missing")))
}

func TestLeafImage_Deterministic(t *testing.T) {
	a := LeafImage(64, 48)
	b := LeafImage(64, 48)
	assert.Equal(t, a.Pix, b.Pix)
	assert.Equal(t, MidGreen, a.NRGBAAt(25, 20))
	assert.Equal(t, Backdrop, a.NRGBAAt(0, 0))
}

func TestTransparentLeafImage_ClearsBackdrop(t *testing.T) {
	img := TransparentLeafImage(64, 48)
	assert.Zero(t, img.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(32, 20).A)
}

func TestEncoders_RoundTrip(t *testing.T) {
	src := NoisyImage(40, 30, 7)

	pngData := EncodePNG(t, src)
	decoded, format, err := image.Decode(bytes.NewReader(pngData))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 40, decoded.Bounds().Dx())

	jpegData := EncodeJPEG(t, src, 80)
	_, format, err = image.Decode(bytes.NewReader(jpegData))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	path := SaveImage(t, CreateTempDir(t), "leaf.jpg", LeafImage(32, 32))
	assert.True(t, FileExists(path))
}
