package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/leafscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte("fake"), 0o600))
	}
}

func TestDiscoverImageFiles_EmptyArgs(t *testing.T) {
	files, err := DiscoverImageFiles([]string{}, false, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverImageFiles_ExplicitFilesKept(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	pngFile := filepath.Join(tempDir, "leaf.png")
	odd := filepath.Join(tempDir, "leaf.dat")
	touch(t, pngFile, odd)

	files, err := DiscoverImageFiles([]string{pngFile, odd}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{pngFile, odd}, files)
}

func TestDiscoverImageFiles_DirectoryDefaultsToImageExtensions(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	pngFile := filepath.Join(tempDir, "a.png")
	jpgFile := filepath.Join(tempDir, "b.JPG")
	txtFile := filepath.Join(tempDir, "notes.txt")
	touch(t, pngFile, jpgFile, txtFile)

	files, err := DiscoverImageFiles([]string{tempDir}, false, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{pngFile, jpgFile}, files)
}

func TestDiscoverImageFiles_Recursive(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	rootPng := filepath.Join(tempDir, "root.png")
	subPng := filepath.Join(tempDir, "subdir", "sub.png")
	subTxt := filepath.Join(tempDir, "subdir", "sub.txt")
	touch(t, rootPng, subPng, subTxt)

	files, err := DiscoverImageFiles([]string{tempDir}, true, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{rootPng, subPng}, files)

	files, err = DiscoverImageFiles([]string{tempDir}, false, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{rootPng}, files)
}

func TestDiscoverImageFiles_IncludeExcludePatterns(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	test1 := filepath.Join(tempDir, "test1.png")
	test2 := filepath.Join(tempDir, "test2.png")
	excluded := filepath.Join(tempDir, "exclude.png")
	touch(t, test1, test2, excluded)

	files, err := DiscoverImageFiles([]string{tempDir}, false, []string{"*.png"}, []string{"*exclude*"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{test1, test2}, files)
}

func TestDiscoverImageFiles_NonExistentDirectory(t *testing.T) {
	files, err := DiscoverImageFiles([]string{"/nonexistent/directory"}, false, nil, nil)
	require.Error(t, err)
	assert.Nil(t, files)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestMatchesAnyPattern(t *testing.T) {
	patterns := []string{"*.png", "*.jpg", "special.*"}

	testCases := []struct {
		filename string
		expected bool
	}{
		{"test.png", true},
		{"dir/photo.jpg", true},
		{"special.gif", true},
		{"test.PNG", false},
		{"document.pdf", false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, matchesAnyPattern(tc.filename, patterns), "filename=%s", tc.filename)
	}
	assert.False(t, matchesAnyPattern("test.png", nil))
}
