package support

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// TestContext holds the state for one scenario.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastStderr   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	TempDir    string
	ConfigFile string

	// Environment variables set by the scenario, restored on cleanup.
	savedEnv map[string]*string
}

// NewTestContext creates a new test context with its own temp directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "leafscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		TempDir:  tempDir,
		savedEnv: map[string]*string{},
	}, nil
}

// Setenv sets an environment variable for the rest of the scenario.
func (testCtx *TestContext) Setenv(key, value string) error {
	if _, saved := testCtx.savedEnv[key]; !saved {
		if old, ok := os.LookupEnv(key); ok {
			testCtx.savedEnv[key] = &old
		} else {
			testCtx.savedEnv[key] = nil
		}
	}
	return os.Setenv(key, value)
}

// Cleanup restores the environment and removes the temp directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	for key, old := range testCtx.savedEnv {
		if old == nil {
			errs = append(errs, os.Unsetenv(key))
		} else {
			errs = append(errs, os.Setenv(key, *old))
		}
	}
	testCtx.savedEnv = map[string]*string{}

	if testCtx.TempDir != "" {
		if err := os.RemoveAll(testCtx.TempDir); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
		}
	}
	return errors.Join(errs...)
}
