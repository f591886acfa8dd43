// Package quality judges whether an image is usable for diagnosis.
package quality

import (
	"math"

	"github.com/MeKo-Tech/leafscan/internal/imageproc"
)

// Report is the outcome of a quality assessment. Issues and Recommendations
// are index-aligned.
type Report struct {
	Score           float64  `json:"score"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// Assessment thresholds.
const (
	minPixels      = 50000
	darkBelow      = 50.0
	brightAbove    = 200.0
	minContrast    = 20.0
	minAspectRatio = 0.5
	maxAspectRatio = 2.0
)

type penalty struct {
	amount         float64
	issue          string
	recommendation string
}

var (
	lowResolution = penalty{0.3, "Low resolution", "Use higher resolution image (min 224x224)"}
	tooDark       = penalty{0.2, "Image too dark", "Improve lighting conditions"}
	tooBright     = penalty{0.2, "Image too bright", "Reduce exposure or lighting"}
	lowContrast   = penalty{0.2, "Low contrast", "Improve image contrast"}
	oddAspect     = penalty{0.1, "Unusual aspect ratio", "Crop to focus on plant area"}
)

// Assess scores an image from its metadata and per-channel statistics.
// Empty stats skip the brightness and contrast checks.
func Assess(meta imageproc.Metadata, stats []imageproc.ChannelStats) Report {
	r := Report{Score: 1, Issues: []string{}, Recommendations: []string{}}

	if meta.Pixels() < minPixels {
		r.apply(lowResolution)
	}

	if len(stats) > 0 {
		brightness := imageproc.MeanBrightness(stats)
		switch {
		case brightness < darkBelow:
			r.apply(tooDark)
		case brightness > brightAbove:
			r.apply(tooBright)
		}
		if imageproc.MeanStdDev(stats) < minContrast {
			r.apply(lowContrast)
		}
	}

	if meta.Height != 0 {
		if ar := meta.AspectRatio(); ar < minAspectRatio || ar > maxAspectRatio {
			r.apply(oddAspect)
		}
	}

	// Penalties are tenths; rounding keeps sums like 1-0.3-0.2-0.2 at 0.3.
	r.Score = min(max(math.Round(r.Score*1e9)/1e9, 0), 1)
	return r
}

// Corrupted is the report given to inputs that cannot be read at all.
func Corrupted() Report {
	return Report{
		Score:           0.1,
		Issues:          []string{"Corrupted or invalid image file"},
		Recommendations: []string{"Please upload a valid image file"},
	}
}

// Acceptable reports whether the score reaches the given threshold.
func (r Report) Acceptable(threshold float64) bool {
	return r.Score >= threshold
}

func (r *Report) apply(p penalty) {
	r.Score -= p.amount
	r.Issues = append(r.Issues, p.issue)
	r.Recommendations = append(r.Recommendations, p.recommendation)
}
