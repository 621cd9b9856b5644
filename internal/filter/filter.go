// Package filter implements the per-image edge pipeline: grayscale, Gaussian
// blur and Sobel gradient magnitude, each written next to the others in the
// output directory.
package filter

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// Output filename prefixes. Order matches the slice returned by OutputPaths.
const (
	PrefixGray    = "gray_"
	PrefixBlurred = "blurred_"
	PrefixEdges   = "edges_"
)

const (
	blurKernel  = 5
	sobelKernel = 3
)

var (
	// ErrDecode means the input could not be read as an image.
	ErrDecode = errors.New("failed to load image")
	// ErrWrite means an output file could not be encoded or written.
	ErrWrite = errors.New("failed to write output")
	// ErrProcess covers any other failure inside the pipeline.
	ErrProcess = errors.New("processing failed")
)

// Backend selects how luminance and gradient magnitude are computed.
type Backend string

const (
	// BackendCPU uses the OpenCV color conversion and magnitude helpers.
	BackendCPU Backend = "cpu"
	// BackendSIMD computes luminance and magnitude explicitly with vector ops.
	BackendSIMD Backend = "simd"
)

// ParseBackend validates a backend name from the command line.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendCPU, BackendSIMD:
		return b, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want cpu or simd)", s)
	}
}

// Config is everything a Pipeline needs. It is immutable once passed to New.
type Config struct {
	OutputDir string
	Backend   Backend
}

// stages are the two steps whose implementation differs between backends.
type stages interface {
	grayscale(src gocv.Mat) (gocv.Mat, error)
	magnitude(gx, gy gocv.Mat) (gocv.Mat, error)
}

// Pipeline applies the filter chain to one image at a time. It holds no
// per-image state and is safe for concurrent use.
type Pipeline struct {
	cfg    Config
	stages stages
}

// New builds a Pipeline for cfg.
func New(cfg Config) (*Pipeline, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory must be set")
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendCPU
	}

	p := &Pipeline{cfg: cfg}
	switch cfg.Backend {
	case BackendCPU:
		p.stages = cpuStages{}
	case BackendSIMD:
		p.stages = simdStages{}
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return p, nil
}

// Backend reports the configured backend.
func (p *Pipeline) Backend() Backend { return p.cfg.Backend }

// OutputDir reports where results are written.
func (p *Pipeline) OutputDir() string { return p.cfg.OutputDir }

// EnsureOutputDir creates dir if it does not exist. Safe to call repeatedly.
func EnsureOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return nil
}

// OutputPaths returns the gray, blurred and edges paths for input.
func OutputPaths(outDir, input string) []string {
	base := filepath.Base(input)
	return []string{
		filepath.Join(outDir, PrefixGray+base),
		filepath.Join(outDir, PrefixBlurred+base),
		filepath.Join(outDir, PrefixEdges+base),
	}
}

// Apply runs the full chain on path and writes three files. On any error no
// output for this image is left on disk.
func (p *Pipeline) Apply(path string) (outputs []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			outputs = nil
			err = fmt.Errorf("%w: %s: %v", ErrProcess, path, r)
		}
	}()

	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrDecode, path)
	}

	gray, err := p.stages.grayscale(img)
	if err != nil {
		return nil, fmt.Errorf("%w: grayscale %s: %v", ErrProcess, path, err)
	}
	defer gray.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	gocv.Sobel(blurred, &gx, gocv.MatTypeCV64F, 1, 0, sobelKernel, 1, 0, gocv.BorderDefault)
	gocv.Sobel(blurred, &gy, gocv.MatTypeCV64F, 0, 1, sobelKernel, 1, 0, gocv.BorderDefault)

	edges, err := p.stages.magnitude(gx, gy)
	if err != nil {
		return nil, fmt.Errorf("%w: magnitude %s: %v", ErrProcess, path, err)
	}
	defer edges.Close()

	outputs = OutputPaths(p.cfg.OutputDir, path)
	if err := writeAll(outputs, []gocv.Mat{gray, blurred, edges}); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return outputs, nil
}

// writeAll encodes every mat under a partial name first and only renames
// them into place once all three succeeded. A failed call leaves whatever an
// earlier call wrote at paths untouched.
func writeAll(paths []string, mats []gocv.Mat) error {
	partial := make([]string, len(paths))
	for i, path := range paths {
		partial[i] = partialPath(path)
		if !gocv.IMWrite(partial[i], mats[i]) {
			removeAll(partial[:i+1])
			return fmt.Errorf("%w: %s", ErrWrite, path)
		}
	}
	for i, path := range paths {
		if err := os.Rename(partial[i], path); err != nil {
			removeAll(partial[i:])
			return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
		}
	}
	return nil
}

// partialPath keeps the extension so IMWrite still picks the right encoder.
func partialPath(path string) string {
	return filepath.Join(filepath.Dir(path), ".partial-"+filepath.Base(path))
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
