package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/yalue/onnxruntime_go"
)

const (
	osLinux    = "linux"
	osDarwin   = "darwin"
	osWindows  = "windows"
	libLinux   = "libonnxruntime.so"
	libDarwin  = "libonnxruntime.dylib"
	libWindows = "onnxruntime.dll"
)

// EnvLibraryPath overrides shared library discovery.
const EnvLibraryPath = "LEAFSCAN_ONNXRUNTIME_LIB"

var initMu sync.Mutex

// getSystemLibraryPaths returns system library paths to try, prioritizing GPU or CPU based on useGPU.
func getSystemLibraryPaths(useGPU bool) []string {
	cpu := []string{
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
	}
	if useGPU {
		return append([]string{"/opt/onnxruntime/gpu/lib/libonnxruntime.so"}, cpu...)
	}
	return cpu
}

// findProjectRoot finds the project root directory by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root")
		}
		dir = parent
	}
}

// getLibraryName returns the appropriate library filename for the current OS.
func getLibraryName() (string, error) {
	switch runtime.GOOS {
	case osLinux:
		return libLinux, nil
	case osDarwin:
		return libDarwin, nil
	case osWindows:
		return libWindows, nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// FindLibrary returns the first ONNX Runtime shared library found, in order:
// the environment override, system paths, then <project>/onnxruntime[/gpu]/lib.
func FindLibrary(useGPU bool) (string, error) {
	if p := os.Getenv(EnvLibraryPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s points to a missing file: %w", EnvLibraryPath, err)
		}
		return p, nil
	}

	for _, p := range getSystemLibraryPaths(useGPU) {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	root, err := findProjectRoot()
	if err != nil {
		return "", err
	}
	libName, err := getLibraryName()
	if err != nil {
		return "", err
	}

	candidates := []string{filepath.Join(root, "onnxruntime", "lib", libName)}
	if useGPU {
		candidates = append([]string{filepath.Join(root, "onnxruntime", "gpu", "lib", libName)}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("ONNX Runtime library not found at %s", candidates[len(candidates)-1])
}

// Initialize locates the shared library and initializes the ONNX Runtime
// environment once per process.
func Initialize(useGPU bool) error {
	initMu.Lock()
	defer initMu.Unlock()

	if onnxruntime_go.IsInitialized() {
		return nil
	}
	lib, err := FindLibrary(useGPU)
	if err != nil {
		return fmt.Errorf("onnx lib path: %w", err)
	}
	onnxruntime_go.SetSharedLibraryPath(lib)
	if err := onnxruntime_go.InitializeEnvironment(); err != nil {
		return fmt.Errorf("init onnx: %w", err)
	}
	slog.Debug("ONNX Runtime initialized", "library", lib, "version", onnxruntime_go.GetVersion())
	return nil
}

// NewSessionOptions builds session options with optional CUDA and a thread cap.
// The caller must Destroy the result.
func NewSessionOptions(gpu GPUConfig, numThreads int) (*onnxruntime_go.SessionOptions, error) {
	if err := ValidateGPUConfig(gpu); err != nil {
		return nil, fmt.Errorf("invalid GPU config: %w", err)
	}
	opts, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session opts: %w", err)
	}
	if err := ConfigureSessionForGPU(opts, gpu); err != nil {
		destroyOptions(opts)
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}
	if numThreads > 0 {
		if err := opts.SetIntraOpNumThreads(numThreads); err != nil {
			slog.Warn("Failed to set intra-op threads", "threads", numThreads, "error", err)
		}
	}
	return opts, nil
}

func destroyOptions(opts *onnxruntime_go.SessionOptions) {
	if err := opts.Destroy(); err != nil {
		fmt.Fprintf(os.Stderr, "Error destroying session options: %v\n", err)
	}
}
