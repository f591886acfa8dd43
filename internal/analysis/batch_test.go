package analysis

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/leafscan/internal/imageproc"
	"github.com/MeKo-Tech/leafscan/internal/testutil"
)

type recordingProgress struct {
	mu       sync.Mutex
	started  int
	progress []int
	errors   []int
	complete bool
}

func (r *recordingProgress) OnStart(total int) { r.started = total }
func (r *recordingProgress) OnProgress(current, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, current)
}
func (r *recordingProgress) OnComplete() { r.complete = true }
func (r *recordingProgress) OnError(index int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, index)
}

func TestAnalyzeBatch_OrderAndIsolation(t *testing.T) {
	mc := testContext(t)
	dir := t.TempDir()
	leafPath := testutil.SaveImage(t, dir, "leaf.jpg", testutil.LeafImage(300, 300))

	inputs := []imageproc.Input{
		greenInput(t),
		imageproc.FromBytes([]byte{1, 2, 3, 4}, "tiny"),
		imageproc.FromPath(filepath.Join(dir, "missing.png")),
		imageproc.FromPath(leafPath),
	}
	progress := &recordingProgress{}

	items := NewAnalyzer().AnalyzeBatch(context.Background(), mc, inputs, BatchOptions{Workers: 3, Progress: progress})
	require.Len(t, items, 4)
	for i, item := range items {
		assert.Equal(t, i, item.Index)
		require.NotNil(t, item.Result, "item %d", i)
	}

	assert.True(t, items[0].Success)
	assert.False(t, items[1].Success)
	assert.Equal(t, MsgQualityTooPoor, items[1].Error)
	assert.False(t, items[2].Success)
	assert.True(t, items[3].Success)
	assert.Equal(t, "leaf.jpg", items[3].Source)

	assert.Equal(t, 4, progress.started)
	assert.Len(t, progress.progress, 4)
	assert.Equal(t, 4, progress.progress[3])
	assert.Empty(t, progress.errors)
	assert.True(t, progress.complete)
}

func TestAnalyzeBatch_NotInitialized(t *testing.T) {
	mc := NewModelContext(TestConfig())
	inputs := []imageproc.Input{greenInput(t), greenInput(t)}
	progress := &recordingProgress{}

	items := NewAnalyzer().AnalyzeBatch(context.Background(), mc, inputs, BatchOptions{Progress: progress})
	require.Len(t, items, 2)
	for i, item := range items {
		assert.Equal(t, i, item.Index)
		assert.False(t, item.Success)
		assert.Nil(t, item.Result)
		assert.Equal(t, "model context not initialized", item.Error)
		var nie *NotInitializedError
		assert.ErrorAs(t, item.Err, &nie)
	}
	assert.Equal(t, []int{0, 1}, progress.errors)
}

func TestAnalyzeBatch_Canceled(t *testing.T) {
	mc := testContext(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inputs := []imageproc.Input{greenInput(t), greenInput(t), greenInput(t)}
	items := NewAnalyzer().AnalyzeBatch(ctx, mc, inputs, BatchOptions{Workers: 2})
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, i, item.Index)
		assert.False(t, item.Success)
		assert.ErrorIs(t, item.Err, context.Canceled)
	}
}

func TestAnalyzeBatch_Empty(t *testing.T) {
	items := NewAnalyzer().AnalyzeBatch(context.Background(), nil, nil, BatchOptions{})
	assert.Empty(t, items)
}
