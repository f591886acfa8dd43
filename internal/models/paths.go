// Package models resolves where classifier artifacts live on disk.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names.
const (
	ClassifierModel = "model.onnx"
	ClassesJSON     = "classes.json"
	LabelsText      = "labels.txt"
)

// TypeClassifier is the organized subdirectory for classifier artifacts.
const TypeClassifier = "classifier"

// Default models directory.
const DefaultModelsDir = "models"

// Environment variable for models directory override.
const EnvModelsDir = "LEAFSCAN_MODELS_DIR"

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("could not find project root (go.mod not found)")
}

// ModelInfo contains metadata about a model artifact.
type ModelInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	Present     bool   `json:"present"`
}

// GetModelsDir returns the models directory path from various sources
// Priority: 1. Explicit modelsDir parameter, 2. Environment variable, 3. Project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}

	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}

	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}

	return DefaultModelsDir
}

// ResolveModelPath resolves an artifact name, preferring
// <dir>/classifier/<name> and falling back to the flat <dir>/<name>.
func ResolveModelPath(modelsDir, filename string) string {
	baseDir := GetModelsDir(modelsDir)

	organized := filepath.Join(baseDir, TypeClassifier, filename)
	if _, err := os.Stat(organized); err == nil {
		return organized
	}

	return filepath.Join(baseDir, filename)
}

// GetClassifierModelPath returns the path of the ONNX classifier.
func GetClassifierModelPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, ClassifierModel)
}

// GetLabelsPath returns the class-label list next to the classifier,
// preferring classes.json over labels.txt. The classes.json path is returned
// when neither exists.
func GetLabelsPath(modelsDir string) string {
	for _, name := range []string{ClassesJSON, LabelsText} {
		p := ResolveModelPath(modelsDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ResolveModelPath(modelsDir, ClassesJSON)
}

// ValidateModelExists checks if a model file exists at the given path.
func ValidateModelExists(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	return nil
}

// ListAvailableModels describes the classifier artifacts and whether they
// are present under modelsDir.
func ListAvailableModels(modelsDir string) []ModelInfo {
	infos := []ModelInfo{
		{
			Name:        "plant-disease-classifier",
			Type:        TypeClassifier,
			Description: "Pretrained 11-class plant disease classifier",
			Filename:    ClassifierModel,
			Path:        GetClassifierModelPath(modelsDir),
		},
		{
			Name:        "class-labels",
			Type:        TypeClassifier,
			Description: "Class label order of the classifier output",
			Filename:    filepath.Base(GetLabelsPath(modelsDir)),
			Path:        GetLabelsPath(modelsDir),
		},
	}
	for i := range infos {
		infos[i].Present = ValidateModelExists(infos[i].Path) == nil
	}
	return infos
}
