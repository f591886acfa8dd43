package batch

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/leafscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFiles(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	good := testutil.SaveImage(t, dir, "leaf.png", testutil.NoisyImage(64, 64, 7))
	fake := testutil.WriteFile(t, dir, "fake.png", bytes.Repeat([]byte("x"), 2048))
	missing := filepath.Join(dir, "missing.png")

	reports := ValidateFiles([]string{good, fake, missing})
	require.Len(t, reports, 3)

	assert.True(t, reports[0].Valid, "errors: %v", reports[0].Errors)
	require.NotNil(t, reports[0].Record)
	assert.Equal(t, "image/png", reports[0].Record.MIMEType)
	assert.Contains(t, reports[0].Warnings, "Small file size may affect recognition accuracy")

	assert.False(t, reports[1].Valid)
	assert.Contains(t, reports[1].Errors, "File content does not look like an image")

	assert.False(t, reports[2].Valid)
	assert.Nil(t, reports[2].Record)
	assert.Len(t, reports[2].Errors, 1)

	assert.False(t, AllValid(reports))
	assert.True(t, AllValid(reports[:1]))
}
