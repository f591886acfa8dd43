package model

import (
	"math"
	"math/rand/v2"
)

const bnEpsilon = 1e-3

// fmap is an interleaved HWC feature map.
type fmap struct {
	h, w, c int
	data    []float32
}

func newFmap(h, w, c int) *fmap {
	return &fmap{h: h, w: w, c: c, data: make([]float32, h*w*c)}
}

func avgPool(in *fmap, k int) *fmap {
	out := newFmap(in.h/k, in.w/k, in.c)
	inv := 1 / float32(k*k)
	for oy := range out.h {
		for ox := range out.w {
			acc := out.data[(oy*out.w+ox)*out.c : (oy*out.w+ox+1)*out.c]
			for ky := range k {
				for kx := range k {
					base := ((oy*k+ky)*in.w + ox*k + kx) * in.c
					for ch, v := range in.data[base : base+in.c] {
						acc[ch] += v
					}
				}
			}
			for ch := range acc {
				acc[ch] *= inv
			}
		}
	}
	return out
}

func maxPool2(in *fmap) *fmap {
	out := newFmap(in.h/2, in.w/2, in.c)
	for oy := range out.h {
		for ox := range out.w {
			dst := out.data[(oy*out.w+ox)*out.c : (oy*out.w+ox+1)*out.c]
			for ch := range dst {
				dst[ch] = float32(math.Inf(-1))
			}
			for ky := range 2 {
				for kx := range 2 {
					base := ((oy*2+ky)*in.w + ox*2 + kx) * in.c
					for ch, v := range in.data[base : base+in.c] {
						dst[ch] = max(dst[ch], v)
					}
				}
			}
		}
	}
	return out
}

func globalAvgPool(in *fmap) []float32 {
	out := make([]float32, in.c)
	for p := range in.h * in.w {
		for ch, v := range in.data[p*in.c : (p+1)*in.c] {
			out[ch] += v
		}
	}
	inv := 1 / float32(in.h*in.w)
	for ch := range out {
		out[ch] *= inv
	}
	return out
}

// conv2D is a 3x3 same-padded convolution. Weights are laid out
// [out][ky][kx][in].
type conv2D struct {
	inC, outC int
	w, b      []float32
}

func newConv2D(rng *rand.Rand, inC, outC int) *conv2D {
	l := &conv2D{inC: inC, outC: outC, w: make([]float32, outC*9*inC), b: make([]float32, outC)}
	std := math.Sqrt(2 / float64(9*inC))
	for i := range l.w {
		l.w[i] = float32(rng.NormFloat64() * std)
	}
	return l
}

func (l *conv2D) forward(in *fmap) *fmap {
	out := newFmap(in.h, in.w, l.outC)
	for y := range in.h {
		for x := range in.w {
			o := out.data[(y*in.w+x)*l.outC : (y*in.w+x+1)*l.outC]
			copy(o, l.b)
			for ky := -1; ky <= 1; ky++ {
				iy := y + ky
				if iy < 0 || iy >= in.h {
					continue
				}
				for kx := -1; kx <= 1; kx++ {
					ix := x + kx
					if ix < 0 || ix >= in.w {
						continue
					}
					px := in.data[(iy*in.w+ix)*in.c : (iy*in.w+ix+1)*in.c]
					tap := (ky+1)*3 + (kx + 1)
					for oc := range l.outC {
						wk := l.w[(oc*9+tap)*l.inC : (oc*9+tap+1)*l.inC]
						var s float32
						for ic, v := range px {
							s += v * wk[ic]
						}
						o[oc] += s
					}
				}
			}
		}
	}
	return out
}

// batchNorm normalizes per channel with frozen statistics and applies ReLU.
type batchNorm struct {
	gamma, beta []float32
	mean, scale []float32 // scale = 1/sqrt(var+eps)
}

func newBatchNorm(c int) *batchNorm {
	bn := &batchNorm{
		gamma: make([]float32, c),
		beta:  make([]float32, c),
		mean:  make([]float32, c),
		scale: make([]float32, c),
	}
	for i := range c {
		bn.gamma[i] = 1
		bn.scale[i] = float32(1 / math.Sqrt(1+bnEpsilon))
	}
	return bn
}

// calibrate estimates the running statistics from a set of feature maps.
func (bn *batchNorm) calibrate(maps []*fmap) {
	c := len(bn.mean)
	sum := make([]float64, c)
	sumSq := make([]float64, c)
	var n float64
	for _, m := range maps {
		for p := range m.h * m.w {
			for ch, v := range m.data[p*c : (p+1)*c] {
				sum[ch] += float64(v)
				sumSq[ch] += float64(v) * float64(v)
			}
		}
		n += float64(m.h * m.w)
	}
	if n == 0 {
		return
	}
	for ch := range c {
		mean := sum[ch] / n
		variance := max(sumSq[ch]/n-mean*mean, 0)
		bn.mean[ch] = float32(mean)
		bn.scale[ch] = float32(1 / math.Sqrt(variance+bnEpsilon))
	}
}

func (bn *batchNorm) forward(m *fmap) *fmap {
	c := len(bn.mean)
	for p := range m.h * m.w {
		px := m.data[p*c : (p+1)*c]
		for ch, v := range px {
			px[ch] = max((v-bn.mean[ch])*bn.scale[ch]*bn.gamma[ch]+bn.beta[ch], 0)
		}
	}
	return m
}

// dense is a fully connected layer with weights laid out [out][in].
type dense struct {
	in, out int
	w, b    []float32
}

func newDense(rng *rand.Rand, in, out int) *dense {
	l := &dense{in: in, out: out, w: make([]float32, in*out), b: make([]float32, out)}
	std := math.Sqrt(2 / float64(in+out))
	for i := range l.w {
		l.w[i] = float32(rng.NormFloat64() * std)
	}
	return l
}

func (l *dense) forward(x []float32) []float32 {
	out := make([]float32, l.out)
	for o := range l.out {
		row := l.w[o*l.in : (o+1)*l.in]
		s := l.b[o]
		for i, v := range x {
			s += v * row[i]
		}
		out[o] = s
	}
	return out
}

func relu(x []float32) []float32 {
	for i, v := range x {
		x[i] = max(v, 0)
	}
	return x
}

// dropoutMask returns an inverted dropout mask.
func dropoutMask(rng *rand.Rand, n int, rate float64) []float32 {
	mask := make([]float32, n)
	keep := float32(1 / (1 - rate))
	for i := range mask {
		if rng.Float64() >= rate {
			mask[i] = keep
		}
	}
	return mask
}
