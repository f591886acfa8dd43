package batch

import (
	"github.com/MeKo-Tech/leafscan/internal/imageproc"
)

// FileValidation is the upload validation report for one file.
type FileValidation struct {
	File string `json:"file"`
	imageproc.UploadValidation
	Record *imageproc.FileRecord `json:"record,omitempty"`
}

// ValidateFiles runs the upload rules over paths. A file that cannot be
// opened is reported invalid with the open error.
func ValidateFiles(paths []string) []FileValidation {
	out := make([]FileValidation, len(paths))
	for i, p := range paths {
		out[i] = validateFile(p)
	}
	return out
}

func validateFile(path string) FileValidation {
	rec, head, err := imageproc.FileRecordFromPath(path)
	if err != nil {
		return FileValidation{
			File: path,
			UploadValidation: imageproc.UploadValidation{
				Errors:   []string{err.Error()},
				Warnings: []string{},
			},
		}
	}
	return FileValidation{
		File:             path,
		UploadValidation: imageproc.ValidateUpload(rec, head),
		Record:           &rec,
	}
}

// AllValid reports whether every report passed.
func AllValid(reports []FileValidation) bool {
	for _, r := range reports {
		if !r.Valid {
			return false
		}
	}
	return true
}
