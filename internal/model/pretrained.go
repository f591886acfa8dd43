package model

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	onnxrt "github.com/yalue/onnxruntime_go"

	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/models"
	"github.com/MeKo-Tech/leafscan/internal/onnx"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
)

const probabilityTolerance = 0.01

// onnxClassifier serves a pretrained model through ONNX Runtime.
type onnxClassifier struct {
	session   *onnxrt.DynamicAdvancedSession
	layout    onnx.Layout
	remap     []int
	version   string
	modelPath string
}

// pretrainedPaths resolves the model and label files. Missing files yield
// errSkipped.
func pretrainedPaths(cfg Config) (string, string, error) {
	modelPath := cfg.ModelPath
	if modelPath == "" {
		modelPath = models.GetClassifierModelPath(cfg.ModelsDir)
	}
	if err := models.ValidateModelExists(modelPath); err != nil {
		return "", "", fmt.Errorf("%w: %w", errSkipped, err)
	}
	labelsPath := cfg.LabelsPath
	if labelsPath == "" {
		labelsPath = models.GetLabelsPath(cfg.ModelsDir)
	}
	if _, err := os.Stat(labelsPath); err != nil {
		return "", "", fmt.Errorf("%w: labels: %w", errSkipped, err)
	}
	return modelPath, labelsPath, nil
}

func newONNXClassifier(cfg Config) (*onnxClassifier, error) {
	modelPath, labelsPath, err := pretrainedPaths(cfg)
	if err != nil {
		return nil, err
	}

	labels, err := LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	remap, err := columnRemap(labels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", labelsPath, err)
	}

	if err := onnx.Initialize(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("unexpected io (in:%d out:%d)", len(inputs), len(outputs))
	}
	in, out := inputs[0], outputs[0]
	layout, err := onnx.DetectLayout(in.Dimensions)
	if err != nil {
		return nil, err
	}

	opts, err := onnx.NewSessionOptions(cfg.GPU, cfg.NumThreads)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying session options: %v\n", err)
		}
	}()

	sess, err := onnxrt.NewDynamicAdvancedSession(modelPath, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	return &onnxClassifier{
		session:   sess,
		layout:    layout,
		remap:     remap,
		version:   modelVersion(modelPath),
		modelPath: modelPath,
	}, nil
}

// modelVersion reads the producer version from the model metadata.
func modelVersion(modelPath string) string {
	md, err := onnxrt.GetModelMetadata(modelPath)
	if err != nil {
		return "unknown"
	}
	defer func() {
		if err := md.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying model metadata: %v\n", err)
		}
	}()
	v, err := md.GetVersion()
	if err != nil {
		return "unknown"
	}
	if producer, err := md.GetProducerName(); err == nil && producer != "" {
		return producer + "-" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}

// Layers is not observable for an opaque graph and reports 0.
func (c *onnxClassifier) Layers() int     { return 0 }
func (c *onnxClassifier) Kind() Kind      { return KindPretrained }
func (c *onnxClassifier) Version() string { return c.version }

func (c *onnxClassifier) Close() {
	if c.session != nil {
		if err := c.session.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying session: %v\n", err)
		}
		c.session = nil
	}
}

func (c *onnxClassifier) Predict(t *tensor.Tensor) ([]float64, error) {
	if err := checkImage(t); err != nil {
		return nil, err
	}
	rows, err := c.run(t.Data(), 1)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (c *onnxClassifier) PredictBatch(t *tensor.Tensor) ([][]float64, error) {
	if err := checkBatch(t); err != nil {
		return nil, err
	}
	return c.run(t.Data(), t.Shape()[0])
}

func (c *onnxClassifier) run(data []float32, n int) ([][]float64, error) {
	if c.session == nil {
		return nil, errors.New("session closed")
	}

	input := data
	shape := onnxrt.NewShape(int64(n), tensor.Height, tensor.Width, tensor.Channels)
	if c.layout == onnx.LayoutNCHW {
		var err error
		input, err = onnx.NHWCToNCHW(data, n, tensor.Height, tensor.Width, tensor.Channels)
		if err != nil {
			return nil, err
		}
		shape = onnxrt.NewShape(int64(n), tensor.Channels, tensor.Height, tensor.Width)
	}

	in, err := onnxrt.NewTensor(shape, input)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer func() {
		if err := in.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying input tensor: %v\n", err)
		}
	}()

	outputs := []onnxrt.Value{nil}
	if err := c.session.Run([]onnxrt.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				if err := o.Destroy(); err != nil {
					fmt.Fprintf(os.Stderr, "Error destroying output tensor: %v\n", err)
				}
			}
		}
	}()

	out, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	if err := checkOutputShape(out.GetShape(), n); err != nil {
		return nil, err
	}
	return remapRows(out.GetData(), n, c.remap), nil
}

// checkOutputShape requires a [n, NumClasses] score matrix.
func checkOutputShape(shape []int64, n int) error {
	if len(shape) != 2 || shape[0] != int64(n) || shape[1] != int64(disease.NumClasses) {
		return fmt.Errorf("unexpected output shape %v, want [%d %d]", shape, n, disease.NumClasses)
	}
	return nil
}

// remapRows converts raw model rows into vocabulary-ordered probabilities.
func remapRows(raw []float32, n int, remap []int) [][]float64 {
	k := len(remap)
	rows := make([][]float64, n)
	for i := range n {
		row := raw[i*k : (i+1)*k]
		var probs []float64
		if onnx.IsProbabilities(row, probabilityTolerance) {
			probs = make([]float64, k)
			for j, v := range row {
				probs[j] = float64(v)
			}
		} else {
			probs = onnx.Softmax(row)
		}
		scores := make([]float64, k)
		for v, col := range remap {
			scores[v] = probs[col]
		}
		rows[i] = scores
	}
	return rows
}
