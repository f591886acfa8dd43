package imageproc

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Upload limits.
const (
	MaxUploadBytes   = 10 * 1024 * 1024
	MinUploadBytes   = 1024
	SmallUploadBytes = 100 * 1024
)

var (
	allowedMIMETypes  = []string{"image/jpeg", "image/jpg", "image/png", "image/webp", "image/tiff"}
	allowedExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".tiff", ".tif"}
)

var extMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
}

// FileRecord describes an uploaded file before it is decoded.
type FileRecord struct {
	Size         int64  `json:"size"`
	MIMEType     string `json:"mimeType"`
	OriginalName string `json:"originalName"`
}

// UploadValidation is the outcome of ValidateUpload.
type UploadValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateUpload applies the upload rules to a file record. head holds the
// leading bytes of the file and may be empty when they are unavailable.
func ValidateUpload(rec FileRecord, head []byte) UploadValidation {
	res := UploadValidation{Errors: []string{}, Warnings: []string{}}

	if rec.Size > MaxUploadBytes {
		res.Errors = append(res.Errors, "File size exceeds 10MB limit")
	}
	if rec.Size < MinUploadBytes {
		res.Errors = append(res.Errors, "File too small to be a valid image")
	}
	if !slices.Contains(allowedMIMETypes, strings.ToLower(rec.MIMEType)) {
		res.Errors = append(res.Errors, "Unsupported file format. Use JPEG, PNG, WebP, or TIFF")
	}
	if !slices.Contains(allowedExtensions, strings.ToLower(filepath.Ext(rec.OriginalName))) {
		res.Errors = append(res.Errors, "Invalid file extension")
	}
	if len(head) > 0 && !LooksLikeImage(head) {
		res.Errors = append(res.Errors, "File content does not look like an image")
	}
	if rec.Size < SmallUploadBytes {
		res.Warnings = append(res.Warnings, "Small file size may affect recognition accuracy")
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// FileRecordFromPath stats a file and reads its leading bytes.
func FileRecordFromPath(path string) (FileRecord, []byte, error) {
	f, err := os.Open(path) //nolint:gosec // G304: reading user-provided image path is expected
	if err != nil {
		return FileRecord{}, nil, &ImageProcessingError{Operation: "stat", Err: err}
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing image file: %v\n", err)
		}
	}()

	fi, err := f.Stat()
	if err != nil {
		return FileRecord{}, nil, &ImageProcessingError{Operation: "stat", Err: err}
	}
	head := make([]byte, 16)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileRecord{}, nil, &ImageProcessingError{Operation: "stat", Err: err}
	}

	rec := FileRecord{
		Size:         fi.Size(),
		MIMEType:     mimeFromExt(path),
		OriginalName: filepath.Base(path),
	}
	return rec, head[:n], nil
}

func mimeFromExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if m, ok := extMIMETypes[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		if i := strings.IndexByte(m, ';'); i >= 0 {
			m = m[:i]
		}
		return m
	}
	return "application/octet-stream"
}

// IsSupportedImage reports whether path has a decodable image extension.
func IsSupportedImage(path string) bool {
	_, ok := extMIMETypes[strings.ToLower(filepath.Ext(path))]
	return ok
}
