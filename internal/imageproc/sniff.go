package imageproc

import "bytes"

// minSniffLen is the shortest buffer LooksLikeImage will judge.
const minSniffLen = 8

var signatures = [][]byte{
	{0xFF, 0xD8, 0xFF},       // JPEG
	{0x89, 0x50, 0x4E, 0x47}, // PNG
	{0x52, 0x49, 0x46, 0x46}, // RIFF (WebP)
	{0x47, 0x49, 0x46},       // GIF
	{0x42, 0x4D},             // BMP
	{0x49, 0x49, 0x2A, 0x00}, // TIFF, little endian
	{0x4D, 0x4D, 0x00, 0x2A}, // TIFF, big endian
}

// LooksLikeImage reports whether b starts with a known image signature.
// Buffers shorter than 8 bytes never qualify.
func LooksLikeImage(b []byte) bool {
	if len(b) < minSniffLen {
		return false
	}
	for _, sig := range signatures {
		if bytes.HasPrefix(b, sig) {
			return true
		}
	}
	return false
}
