package analysis

import (
	"context"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/leafscan/internal/imageproc"
	"github.com/MeKo-Tech/leafscan/internal/metrics"
)

// BatchOptions configures AnalyzeBatch.
type BatchOptions struct {
	Workers  int // 0 = runtime.NumCPU()
	Progress ProgressCallback
}

// BatchItem is the outcome of one batch input. Result is nil when the item
// failed with Err; a quality rejection carries both Result and Error.
type BatchItem struct {
	Index   int     `json:"index"`
	Source  string  `json:"source,omitempty"`
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	Result  *Result `json:"result,omitempty"`

	Err error `json:"-"`
}

type batchJob struct {
	index int
	input imageproc.Input
}

// AnalyzeBatch analyzes inputs on a worker pool. Items come back in input
// order; a failing item never affects the others.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, mc *ModelContext, inputs []imageproc.Input, opts BatchOptions) []BatchItem {
	items := make([]BatchItem, len(inputs))
	if len(inputs) == 0 {
		return items
	}
	metrics.ObserveBatch(len(inputs))

	progress := opts.Progress
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	progress.OnStart(len(inputs))
	defer progress.OnComplete()

	if !mc.Initialized() {
		err := &NotInitializedError{}
		for i, in := range inputs {
			items[i] = failedItem(i, in, err)
			progress.OnError(i, err)
			progress.OnProgress(i+1, len(inputs))
		}
		return items
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(inputs))

	jobs := make(chan batchJob)
	results := make(chan BatchItem, len(inputs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- a.runItem(ctx, mc, job)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, in := range inputs {
			select {
			case jobs <- batchJob{index: i, input: in}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := make([]bool, len(inputs))
	processed := 0
	for item := range results {
		items[item.Index] = item
		done[item.Index] = true
		processed++
		if item.Err != nil {
			progress.OnError(item.Index, item.Err)
		}
		progress.OnProgress(processed, len(inputs))
	}

	// Inputs never dispatched because the context ended.
	for i, ok := range done {
		if ok {
			continue
		}
		cause := context.Cause(ctx)
		if cause == nil {
			cause = context.Canceled
		}
		items[i] = failedItem(i, inputs[i], cause)
	}
	return items
}

func (a *Analyzer) runItem(ctx context.Context, mc *ModelContext, job batchJob) BatchItem {
	res, err := a.Analyze(ctx, mc, job.input)
	if err != nil {
		return failedItem(job.index, job.input, err)
	}
	return BatchItem{
		Index:   job.index,
		Source:  job.input.Source(),
		Success: res.Success,
		Error:   res.Error,
		Result:  res,
	}
}

func failedItem(i int, in imageproc.Input, err error) BatchItem {
	return BatchItem{Index: i, Source: in.Source(), Error: err.Error(), Err: err}
}
