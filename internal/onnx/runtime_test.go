package onnx

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSystemLibraryPaths(t *testing.T) {
	assert.Len(t, getSystemLibraryPaths(true), 4)
	assert.Len(t, getSystemLibraryPaths(false), 3)
	assert.Contains(t, getSystemLibraryPaths(true)[0], "gpu")
}

func TestGetLibraryName(t *testing.T) {
	name, err := getLibraryName()
	require.NoError(t, err)

	switch runtime.GOOS {
	case osLinux:
		assert.Equal(t, libLinux, name)
	case osDarwin:
		assert.Equal(t, libDarwin, name)
	case osWindows:
		assert.Equal(t, libWindows, name)
	}
}

func TestFindLibrary_EnvOverride(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")
	require.NoError(t, os.WriteFile(lib, []byte("fake library"), 0o600))

	t.Setenv(EnvLibraryPath, lib)
	got, err := FindLibrary(false)
	require.NoError(t, err)
	assert.Equal(t, lib, got)

	t.Setenv(EnvLibraryPath, lib+".missing")
	_, err = FindLibrary(false)
	assert.Error(t, err)
}

func TestFindLibrary_ProjectRelative(t *testing.T) {
	for _, p := range getSystemLibraryPaths(true) {
		if _, err := os.Stat(p); err == nil {
			t.Skip("system ONNX Runtime library present")
		}
	}
	libName, err := getLibraryName()
	require.NoError(t, err)

	projectDir := filepath.Join(t.TempDir(), "project")
	libDir := filepath.Join(projectDir, "onnxruntime", "lib")
	require.NoError(t, os.MkdirAll(libDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "go.mod"), []byte("module test\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, libName), []byte("fake"), 0o600))

	t.Setenv(EnvLibraryPath, "")
	t.Chdir(projectDir)

	got, err := FindLibrary(true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(libDir, libName), got)
}

func TestFindProjectRootNoGoMod(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := findProjectRoot()
	assert.Error(t, err)
}

func TestNewSessionOptions_RejectsInvalidGPUConfig(t *testing.T) {
	cfg := DefaultGPUConfig()
	cfg.UseGPU = true
	cfg.ArenaExtendStrategy = "kDoubleEverything"

	opts, err := NewSessionOptions(cfg, 2)
	require.Error(t, err)
	assert.Nil(t, opts)
	assert.Contains(t, err.Error(), "invalid GPU config")
}
