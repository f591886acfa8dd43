package support

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/leafscan/internal/testutil"
)

func (testCtx *TestContext) saveImage(name string, img image.Image) error {
	path := filepath.Join(testCtx.TempDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func (testCtx *TestContext) aLeafImage(name string) error {
	return testCtx.saveImage(name, testutil.LeafImage(256, 256))
}

func (testCtx *TestContext) aUniformGreenImage(name string) error {
	return testCtx.saveImage(name, testutil.UniformImage(224, 224, testutil.MidGreen))
}

func (testCtx *TestContext) aNoisyImage(name string, size int) error {
	return testCtx.saveImage(name, testutil.NoisyImage(size, size, 11))
}

func (testCtx *TestContext) aDirectoryWithLeafImages(dir string, n int) error {
	for i := range n {
		if err := testCtx.aLeafImage(filepath.Join(dir, fmt.Sprintf("leaf_%02d.png", i))); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) aFileContaining(name, content string) error {
	path := filepath.Join(testCtx.TempDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

// RegisterImageSteps registers steps that create input files.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a leaf image "([^"]*)"$`, testCtx.aLeafImage)
	sc.Step(`^a uniform green image "([^"]*)"$`, testCtx.aUniformGreenImage)
	sc.Step(`^a noisy image "([^"]*)" of size (\d+)$`, testCtx.aNoisyImage)
	sc.Step(`^a directory "([^"]*)" with (\d+) leaf images?$`, testCtx.aDirectoryWithLeafImages)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileContaining)
}
