// Package mempool recycles float32 sample buffers for tensors so repeated
// analyses do not churn the allocator.
package mempool

import (
	"sync"
	"sync/atomic"
)

var (
	float32Pools sync.Map // key: size class (int), value: *sync.Pool
	outstanding  atomic.Int64
)

// sizeClass rounds n up to the next multiple of 1024 (minimum 1024).
// A 224x224x3 image tensor is exactly 147 classes wide.
func sizeClass(n int) int {
	const step = 1024
	if n <= step {
		return step
	}
	r := (n + step - 1) / step
	return r * step
}

func poolFor(cls int) *sync.Pool {
	pAny, _ := float32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float32, cls) }})
	p, _ := pAny.(*sync.Pool)
	return p
}

// GetFloat32 retrieves a buffer of length n. Contents are unspecified.
// The caller must return it via PutFloat32 when done.
func GetFloat32(n int) []float32 {
	cls := sizeClass(n)
	outstanding.Add(1)
	p := poolFor(cls)
	if p == nil {
		return make([]float32, cls)[:n]
	}
	buf, ok := p.Get().([]float32)
	if !ok || cap(buf) < cls {
		buf = make([]float32, cls)
	}
	return buf[:n]
}

// GetZeroedFloat32 is GetFloat32 with the first n elements cleared.
func GetZeroedFloat32(n int) []float32 {
	buf := GetFloat32(n)
	clear(buf)
	return buf
}

// PutFloat32 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat32(buf []float32) {
	if buf == nil {
		return
	}
	outstanding.Add(-1)
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		// Foreign buffer that does not match a class; let the GC have it.
		return
	}
	if p := poolFor(cls); p != nil {
		p.Put(buf[:cap(buf)]) //nolint:staticcheck
	}
}

// Outstanding reports how many buffers have been handed out and not returned.
func Outstanding() int64 {
	return outstanding.Load()
}
