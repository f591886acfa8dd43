package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelsDir(t *testing.T) {
	tests := []struct {
		name        string
		explicitDir string
		envVar      string
		expected    string
	}{
		{
			name:        "explicit directory takes precedence",
			explicitDir: "/explicit/path",
			envVar:      "/env/path",
			expected:    "/explicit/path",
		},
		{
			name:     "environment variable used when no explicit dir",
			envVar:   "/env/path",
			expected: "/env/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvModelsDir, tt.envVar)
			assert.Equal(t, tt.expected, GetModelsDir(tt.explicitDir))
		})
	}
}

func TestGetModelsDir_Default(t *testing.T) {
	t.Setenv(EnvModelsDir, "")

	expected := DefaultModelsDir
	if root, err := findProjectRoot(); err == nil {
		expected = filepath.Join(root, DefaultModelsDir)
	}
	assert.Equal(t, expected, GetModelsDir(""))
}

func TestResolveModelPath_OrganizedThenFlat(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, filepath.Join(dir, ClassifierModel), GetClassifierModelPath(dir))

	organized := filepath.Join(dir, TypeClassifier)
	require.NoError(t, os.MkdirAll(organized, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(organized, ClassifierModel), []byte("onnx"), 0o600))
	assert.Equal(t, filepath.Join(organized, ClassifierModel), GetClassifierModelPath(dir))
}

func TestGetLabelsPath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, ClassesJSON), GetLabelsPath(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, LabelsText), []byte("Healthy\n"), 0o600))
	assert.Equal(t, filepath.Join(dir, LabelsText), GetLabelsPath(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ClassesJSON), []byte(`["Healthy"]`), 0o600))
	assert.Equal(t, filepath.Join(dir, ClassesJSON), GetLabelsPath(dir))
}

func TestValidateModelExists(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, ValidateModelExists(filepath.Join(dir, "missing.onnx")))

	p := filepath.Join(dir, ClassifierModel)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	assert.NoError(t, ValidateModelExists(p))
}

func TestListAvailableModels(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ClassifierModel), []byte("x"), 0o600))

	infos := ListAvailableModels(dir)
	require.Len(t, infos, 2)
	assert.True(t, infos[0].Present)
	assert.False(t, infos[1].Present)
	assert.Equal(t, ClassesJSON, infos[1].Filename)
}
