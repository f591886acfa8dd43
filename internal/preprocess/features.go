package preprocess

import (
	"errors"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/leafscan/internal/imageproc"
	"github.com/MeKo-Tech/leafscan/internal/quality"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
)

// Format names used for inputs whose real metadata is unknown.
const (
	FormatCorrupted = "corrupted"
	FormatUnknown   = "unknown"
)

// Features describes an input ahead of preprocessing.
type Features struct {
	Metadata    imageproc.Metadata       `json:"metadata"`
	Stats       []imageproc.ChannelStats `json:"stats"`
	Quality     quality.Report           `json:"quality"`
	IsCorrupted bool                     `json:"isCorrupted"`
	Error       string                   `json:"error,omitempty"`

	// Image is the decoded input, nil when it could not be decoded.
	Image image.Image `json:"-"`
}

var errNotImage = errors.New("content does not look like an image")

// ExtractFeatures reads, sniffs and measures in. It never fails: unreadable
// input yields the corrupted feature set.
func ExtractFeatures(in imageproc.Input) Features {
	data, err := in.Read()
	if err != nil {
		return corruptedFeatures(in, err)
	}
	if !imageproc.LooksLikeImage(data) {
		return corruptedFeatures(in, errNotImage)
	}

	img, format, err := imageproc.Decode(data)
	if err != nil {
		slog.Warn("Image passed signature check but failed to decode", "source", in.Source(), "error", err)
		meta := placeholderMetadata(FormatUnknown, int64(len(data)))
		stats := imageproc.NeutralStats()
		return Features{
			Metadata:    meta,
			Stats:       stats,
			Quality:     quality.Assess(meta, stats),
			IsCorrupted: true,
			Error:       err.Error(),
		}
	}

	meta := imageproc.MetadataOf(img, format, int64(len(data)))
	stats := imageproc.ComputeStats(img)
	return Features{
		Metadata: meta,
		Stats:    stats,
		Quality:  quality.Assess(meta, stats),
		Image:    img,
	}
}

func corruptedFeatures(in imageproc.Input, err error) Features {
	slog.Warn("Unreadable image input", "source", in.Source(), "error", err)
	return Features{
		Metadata:    placeholderMetadata(FormatCorrupted, 0),
		Stats:       imageproc.NeutralStats(),
		Quality:     quality.Corrupted(),
		IsCorrupted: true,
		Error:       err.Error(),
	}
}

func placeholderMetadata(format string, size int64) imageproc.Metadata {
	return imageproc.Metadata{
		Width:     tensor.Width,
		Height:    tensor.Height,
		Channels:  tensor.Channels,
		Format:    format,
		SizeBytes: size,
		Synthetic: true,
	}
}
