package imageproc

import (
	"errors"
	"image"
	"testing"

	"github.com/MeKo-Tech/leafscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_PNGAndJPEG(t *testing.T) {
	leaf := testutil.LeafImage(120, 80)

	img, format, err := Decode(testutil.EncodePNG(t, leaf))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 120, 80), img.Bounds())

	img, format, err = Decode(testutil.EncodeJPEG(t, leaf, 90))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 120, img.Bounds().Dx())
}

func TestDecode_Errors(t *testing.T) {
	_, _, err := Decode(nil)
	require.Error(t, err)

	_, _, err = Decode([]byte("definitely not an image"))
	require.Error(t, err)
	var ipe *ImageProcessingError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "decode", ipe.Operation)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestOpen_FromDisk(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := testutil.SaveImage(t, dir, "leaf.png", testutil.LeafImage(64, 64))

	img, format, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 64, img.Bounds().Dy())

	// The format follows the content, not the name.
	renamed := testutil.WriteFile(t, dir, "leaf", testutil.EncodePNG(t, testutil.LeafImage(40, 40)))
	_, format, err = Open(renamed)
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	_, _, err = Open(dir + "/missing.png")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := testutil.UniformImage(64, 64, testutil.MidGreen)
	require.NoError(t, Validate(ok, "jpeg"))
	require.NoError(t, Validate(ok, FormatRaw))

	assert.Error(t, Validate(testutil.UniformImage(31, 64, testutil.MidGreen), "png"))
	assert.Error(t, Validate(testutil.UniformImage(64, 4097, testutil.MidGreen), "png"))
	require.NoError(t, Validate(ok, "gif"))
	require.NoError(t, Validate(ok, "bmp"))
	assert.Error(t, Validate(ok, "pcx"))
	assert.Error(t, Validate(nil, "png"))
}

func TestDecodeRawRGB(t *testing.T) {
	data := make([]byte, 32*32*3)
	data[0], data[1], data[2] = 10, 20, 30

	img, err := DecodeRawRGB(data)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	px := img.NRGBAAt(0, 0)
	assert.Equal(t, []uint8{10, 20, 30, 255}, []uint8{px.R, px.G, px.B, px.A})

	_, err = DecodeRawRGB(make([]byte, 16*16*3))
	assert.Error(t, err, "below minimum side")
	_, err = DecodeRawRGB(make([]byte, 33*32*3))
	assert.Error(t, err, "not square")
	_, err = DecodeRawRGB([]byte{1, 2, 3, 4})
	assert.Error(t, err)
}

func TestChannelsAndMetadata(t *testing.T) {
	assert.Equal(t, 1, Channels(image.NewGray(image.Rect(0, 0, 2, 2))))
	assert.Equal(t, 3, Channels(testutil.UniformImage(2, 2, testutil.MidGreen)))
	assert.Equal(t, 4, Channels(testutil.TransparentLeafImage(40, 40)))

	meta := MetadataOf(testutil.UniformImage(200, 100, testutil.MidGreen), "png", 1234)
	assert.Equal(t, Metadata{Width: 200, Height: 100, Channels: 3, Format: "png", SizeBytes: 1234}, meta)
	assert.InDelta(t, 2.0, meta.AspectRatio(), 1e-9)
	assert.Equal(t, 20000, meta.Pixels())
	assert.Zero(t, Metadata{Width: 5}.AspectRatio())
}

func TestInput_Read(t *testing.T) {
	in := FromBytes([]byte{1, 2}, "leaf.png")
	data, err := in.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)
	assert.Equal(t, "image/png", in.MIMEType)
	assert.False(t, in.IsPath())

	dir := testutil.CreateTempDir(t)
	p := testutil.WriteFile(t, dir, "x.jpg", []byte{9})
	pin := FromPath(p)
	assert.True(t, pin.IsPath())
	assert.Equal(t, "x.jpg", pin.Source())
	data, err = pin.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, data)

	_, err = Input{}.Read()
	assert.Error(t, err)
	_, err = FromPath(dir + "/nope.jpg").Read()
	assert.Error(t, err)
}

func TestLooksLikeImage(t *testing.T) {
	pad := func(b ...byte) []byte { return append(b, make([]byte, 8)...) }

	assert.True(t, LooksLikeImage(pad(0xFF, 0xD8, 0xFF)))
	assert.True(t, LooksLikeImage(pad(0x89, 0x50, 0x4E, 0x47)))
	assert.True(t, LooksLikeImage(pad('R', 'I', 'F', 'F')))
	assert.True(t, LooksLikeImage(pad('G', 'I', 'F')))
	assert.True(t, LooksLikeImage(pad('B', 'M')))
	assert.True(t, LooksLikeImage(pad(0x49, 0x49, 0x2A, 0x00)))
	assert.True(t, LooksLikeImage(pad(0x4D, 0x4D, 0x00, 0x2A)))

	assert.False(t, LooksLikeImage([]byte{0xFF, 0xD8, 0xFF, 0xE0}), "shorter than 8 bytes")
	assert.False(t, LooksLikeImage(pad('%', 'P', 'D', 'F')))
	assert.False(t, LooksLikeImage(nil))
}

