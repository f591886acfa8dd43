package model

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
)

func TestCheckOutputShape(t *testing.T) {
	k := int64(disease.NumClasses)
	tests := []struct {
		name    string
		shape   []int64
		n       int
		wantErr bool
	}{
		{"single row", []int64{1, k}, 1, false},
		{"batch", []int64{4, k}, 4, false},
		{"wrong batch", []int64{2, k}, 3, true},
		{"wrong classes", []int64{1, k - 1}, 1, true},
		{"flat", []int64{k}, 1, true},
		{"extra dim", []int64{1, k, 1}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkOutputShape(tt.shape, tt.n)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unexpected output shape")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRemapRows(t *testing.T) {
	// Model columns in reverse vocabulary order.
	labels := disease.Labels()
	slices.Reverse(labels)
	remap, err := columnRemap(labels)
	require.NoError(t, err)

	k := disease.NumClasses
	raw := make([]float32, 2*k)
	// Row 0: probabilities, all mass on the last column (vocabulary position 0).
	raw[k-1] = 1
	// Row 1: logits favouring column 0 (last vocabulary position).
	raw[k] = 5

	rows := remapRows(raw, 2, remap)
	require.Len(t, rows, 2)

	assert.InDelta(t, 1.0, rows[0][0], 1e-9)
	assert.InDelta(t, 0.0, rows[0][k-1], 1e-9)

	var sum float64
	for _, v := range rows[1] {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	top := 0
	for i, v := range rows[1] {
		if v > rows[1][top] {
			top = i
		}
	}
	assert.Equal(t, k-1, top)
}

func TestONNXClassifier_ClosedSession(t *testing.T) {
	img, err := tensor.NewImage()
	require.NoError(t, err)
	defer img.Release()

	c := &onnxClassifier{}
	_, err = c.Predict(img)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session closed")
	assert.Equal(t, KindPretrained, c.Kind())
	assert.Equal(t, 0, c.Layers())
	c.Close()
}
