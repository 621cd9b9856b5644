package filter

import (
	"fmt"

	"github.com/ajroetker/go-highway/hwy"
	"gocv.io/x/gocv"
)

// ITU-R BT.601 luma weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// simdStages moves pixel data out of OpenCV into plain slices, does the
// elementwise math with hwy vectors and copies the result back into a Mat.
// Blur and Sobel stay in OpenCV, so each image crosses that boundary twice.
type simdStages struct{}

func (simdStages) grayscale(src gocv.Mat) (gocv.Mat, error) {
	if src.Channels() != 3 {
		return gocv.Mat{}, fmt.Errorf("unsupported channel count %d", src.Channels())
	}
	rows, cols := src.Rows(), src.Cols()
	n := rows * cols

	bgr := src.ToBytes()
	if len(bgr) < n*3 {
		return gocv.Mat{}, fmt.Errorf("short pixel buffer: %d bytes for %dx%d", len(bgr), cols, rows)
	}

	size := paddedLen(n)
	b := make([]float64, size)
	g := make([]float64, size)
	r := make([]float64, size)
	for i := 0; i < n; i++ {
		b[i] = float64(bgr[i*3])
		g[i] = float64(bgr[i*3+1])
		r[i] = float64(bgr[i*3+2])
	}

	luma := Luminance(r, g, b)
	return matFromFloats(luma[:n], rows, cols)
}

func (simdStages) magnitude(gx, gy gocv.Mat) (gocv.Mat, error) {
	x, err := gx.DataPtrFloat64()
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("read x gradient: %w", err)
	}
	y, err := gy.DataPtrFloat64()
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("read y gradient: %w", err)
	}
	n := gx.Rows() * gx.Cols()
	if len(x) < n || len(y) < n {
		return gocv.Mat{}, fmt.Errorf("gradient buffers too short for %dx%d", gx.Cols(), gx.Rows())
	}

	size := paddedLen(n)
	xs := make([]float64, size)
	ys := make([]float64, size)
	copy(xs, x[:n])
	copy(ys, y[:n])

	mag := Magnitude(xs, ys)
	return matFromFloats(mag[:n], gx.Rows(), gx.Cols())
}

// Luminance returns 0.299r + 0.587g + 0.114b per element, rounded half to even
// and clamped to [0, 255]. Inputs must have equal length.
func Luminance(r, g, b []float64) []float64 {
	out := make([]float64, paddedLen(len(r)))
	wr, wg, wb := hwy.Set(lumaR), hwy.Set(lumaG), hwy.Set(lumaB)
	lo, hi := hwy.Set(0.0), hwy.Set(255.0)

	forEachVector(r, g, b, func(off int, vr, vg, vb hwy.Vec[float64]) {
		y := hwy.MulAdd(vr, wr, hwy.MulAdd(vg, wg, hwy.Mul(vb, wb)))
		y = hwy.Min(hwy.Max(hwy.RoundToEven(y), lo), hi)
		hwy.Store(y, out[off:])
	})
	return out[:len(r)]
}

// Magnitude returns sqrt(x*x + y*y) per element, rounded half to even and
// saturated to [0, 255], matching OpenCV's ConvertScaleAbs on the result.
func Magnitude(x, y []float64) []float64 {
	out := make([]float64, paddedLen(len(x)))
	hi := hwy.Set(255.0)

	forEachVector(x, y, nil, func(off int, vx, vy, _ hwy.Vec[float64]) {
		m := hwy.Sqrt(hwy.MulAdd(vx, vx, hwy.Mul(vy, vy)))
		m = hwy.Min(hwy.RoundToEven(m), hi)
		hwy.Store(m, out[off:])
	})
	return out[:len(x)]
}

// forEachVector walks up to three equally sized inputs one vector at a time.
// Inputs shorter than a whole number of vectors are copied into padded
// buffers first so no tail masking is needed.
func forEachVector(a, b, c []float64, fn func(off int, va, vb, vc hwy.Vec[float64])) {
	n := len(a)
	size := paddedLen(n)
	a, b, c = padTo(a, size), padTo(b, size), padTo(c, size)

	lanes := hwy.MaxLanes[float64]()
	zero := hwy.Zero[float64]()
	for off := 0; off < size; off += lanes {
		vc := zero
		if c != nil {
			vc = hwy.Load(c[off:])
		}
		fn(off, hwy.Load(a[off:]), hwy.Load(b[off:]), vc)
	}
}

func paddedLen(n int) int {
	lanes := hwy.MaxLanes[float64]()
	if lanes <= 1 {
		return n
	}
	return (n + lanes - 1) / lanes * lanes
}

func padTo(s []float64, size int) []float64 {
	if s == nil {
		return nil
	}
	if cap(s) >= size {
		return s[:size]
	}
	p := make([]float64, size)
	copy(p, s)
	return p
}

// matFromFloats converts values already in [0, 255] to an 8-bit single
// channel Mat owned by OpenCV.
func matFromFloats(vals []float64, rows, cols int) (gocv.Mat, error) {
	buf := make([]byte, len(vals))
	for i, v := range vals {
		buf[i] = uint8(v)
	}
	view, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC1, buf)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer view.Close()
	// Clone so the Mat no longer aliases Go memory.
	return view.Clone(), nil
}
