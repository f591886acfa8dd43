package analysis

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/MeKo-Tech/leafscan/internal/common"
	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/imageproc"
	"github.com/MeKo-Tech/leafscan/internal/model"
	"github.com/MeKo-Tech/leafscan/internal/models"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
)

// Health statuses.
const (
	StatusHealthy        = "healthy"
	StatusNotInitialized = "not_initialized"
	StatusDegraded       = "degraded"
	StatusError          = "error"
)

// Health is the outcome of a self-test.
type Health struct {
	Status      string             `json:"status"`
	ModelKind   model.Kind         `json:"modelKind,omitempty"`
	Message     string             `json:"message,omitempty"`
	LiveTensors int64              `json:"liveTensors"`
	DurationMs  float64            `json:"durationMs"`
	Memory      common.MemoryStats `json:"memory"`
	CheckedAt   string             `json:"checkedAt"`
}

// HealthCheck pushes two synthetic images through batch preprocessing and
// prediction.
func (a *Analyzer) HealthCheck(ctx context.Context, mc *ModelContext) (h Health) {
	start := time.Now()
	h.CheckedAt = a.timestamp()
	defer func() {
		h.LiveTensors = tensor.Live()
		h.Memory = common.GetMemoryStats()
	}()

	if !mc.Initialized() {
		h.Status = StatusNotInitialized
		h.Message = (&NotInitializedError{}).Error()
		return h
	}
	h.ModelKind = mc.provider.Kind()

	if err := ctx.Err(); err != nil {
		h.Status = StatusError
		h.Message = err.Error()
		return h
	}

	inputs := []imageproc.Input{
		{Data: selfTestPNG(color.NRGBA{R: 60, G: 150, B: 60, A: 255}), Name: "selftest-green.png"},
		{Data: selfTestPNG(color.NRGBA{R: 180, G: 140, B: 60, A: 255}), Name: "selftest-brown.png"},
	}
	batch, stages, err := mc.pre.PreprocessBatch(inputs)
	if err != nil {
		h.Status = StatusError
		h.Message = fmt.Sprintf("preprocess: %v", err)
		return h
	}
	defer batch.Release()

	rows, err := mc.provider.PredictBatch(batch)
	h.DurationMs = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		h.Status = StatusError
		h.Message = fmt.Sprintf("predict: %v", err)
		return h
	}
	if len(rows) != len(inputs) {
		h.Status = StatusError
		h.Message = fmt.Sprintf("expected %d predictions, got %d", len(inputs), len(rows))
		return h
	}

	for _, s := range stages {
		if s.Degraded() {
			h.Status = StatusDegraded
			h.Message = "self-test images needed a degraded preprocessing stage: " + string(s)
			return h
		}
	}
	if !mc.provider.IsHighCapacity() {
		h.Status = StatusDegraded
		h.Message = "serving a fallback model"
		return h
	}
	h.Status = StatusHealthy
	return h
}

func selfTestPNG(c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	data, err := imageproc.EncodePNG(img)
	if err != nil {
		return nil
	}
	return data
}

// Info describes the loaded model.
type Info struct {
	Initialized      bool               `json:"initialized"`
	Kind             model.Kind         `json:"kind,omitempty"`
	HighCapacity     bool               `json:"highCapacity"`
	Layers           int                `json:"layers"`
	Version          string             `json:"version,omitempty"`
	SupportedClasses []string           `json:"supportedClasses"`
	InputShape       []int              `json:"inputShape"`
	Capabilities     []string           `json:"capabilities"`
	Resolution       []ResolutionStep   `json:"resolution"`
	Artifacts        []models.ModelInfo `json:"artifacts"`
	Catalog          string             `json:"catalog,omitempty"`
}

// ResolutionStep is the JSON view of a model.StepResult.
type ResolutionStep struct {
	Kind       model.Kind `json:"kind"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	DurationMs float64    `json:"durationMs"`
}

// ModelInfo reports what the context is serving.
func ModelInfo(mc *ModelContext) Info {
	info := Info{
		SupportedClasses: disease.Strings(),
		InputShape:       []int{tensor.Height, tensor.Width, tensor.Channels},
		Capabilities:     []string{"disease_classification", "severity_grading", "quality_assessment", "treatment_guidance"},
		Resolution:       []ResolutionStep{},
		Artifacts:        []models.ModelInfo{},
	}
	if mc == nil {
		return info
	}
	info.Artifacts = models.ListAvailableModels(mc.cfg.Model.ModelsDir)
	p := mc.provider
	info.Initialized = mc.Initialized()
	info.Kind = p.Kind()
	info.HighCapacity = p.IsHighCapacity()
	info.Layers = p.Layers()
	info.Version = p.Version()
	if c := mc.Catalog(); c != nil {
		info.Catalog = c.Source()
	}
	if info.HighCapacity {
		info.Capabilities = append(info.Capabilities, "production_ready")
	}
	for _, r := range p.Resolution() {
		step := ResolutionStep{
			Kind:       r.Kind,
			Status:     r.Status(),
			DurationMs: float64(r.Duration.Microseconds()) / 1000,
		}
		if r.Err != nil {
			step.Error = r.Err.Error()
		}
		info.Resolution = append(info.Resolution, step)
	}
	return info
}
