package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresmejia3/edgebench/internal/bench"
	"github.com/andresmejia3/edgebench/internal/executor"
	"github.com/andresmejia3/edgebench/internal/filter"
	"github.com/andresmejia3/edgebench/internal/types"
	"github.com/andresmejia3/edgebench/internal/utils"
	"github.com/rs/zerolog"
)

const cmdWorkerEnv = "EDGEBENCH_CMD_TEST_WORKER"

// TestMain lets the test binary stand in for the edgebench binary when the
// process pool re-executes itself as a worker.
func TestMain(m *testing.M) {
	if os.Getenv(cmdWorkerEnv) == "1" {
		rootCmd.SetArgs(os.Args[1:])
		if err := rootCmd.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// useTestBinaryAsWorker points selfCommand at the test binary for the
// duration of t.
func useTestBinaryAsWorker(t *testing.T) {
	t.Helper()
	prev := selfCommand
	selfCommand = func(args ...string) (*utils.SafeCommand, error) {
		c := utils.NewSafeCommand(os.Args[0], args...)
		c.Env = append(os.Environ(), cmdWorkerEnv+"=1")
		return c, nil
	}
	t.Cleanup(func() { selfCommand = prev })
}

func readOutputs(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	files := make(map[string][]byte, len(entries))
	for _, e := range entries {
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		files[e.Name()] = b
	}
	return files
}

func TestBenchProcessExecutor(t *testing.T) {
	useTestBinaryAsWorker(t)

	in := t.TempDir()
	writeTestPNG(t, filepath.Join(in, "a.png"))
	writeTestPNG(t, filepath.Join(in, "b.png"))
	if err := os.WriteFile(filepath.Join(in, "corrupt.jpg"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, backend := range []string{"cpu", "simd"} {
		t.Run(backend, func(t *testing.T) {
			// Reference: a sequential-only pass in its own directory.
			refDir := t.TempDir()
			refPipe, err := filter.New(filter.Config{OutputDir: refDir, Backend: filter.Backend(backend)})
			if err != nil {
				t.Fatal(err)
			}
			paths := []string{filepath.Join(in, "a.png"), filepath.Join(in, "b.png"), filepath.Join(in, "corrupt.jpg")}
			executor.NewSequential(refPipe.Apply).Run(context.Background(), paths, nil)

			opts := threadOpts(in, t.TempDir())
			opts.Executor = executor.KindProcess
			opts.Backend = backend

			var stdout bytes.Buffer
			setup, err := preparePipeline(&opts, &stdout)
			if err != nil {
				t.Fatal(err)
			}
			if setup.parallel.Name() != executor.KindProcess {
				t.Fatalf("parallel executor = %s, want %s", setup.parallel.Name(), executor.KindProcess)
			}

			timing, err := bench.Run(context.Background(), bench.Config{
				Sequential: executor.NewSequential(setup.pipeline.Apply),
				Parallel:   setup.parallel,
				Backend:    backend,
				Log:        zerolog.New(io.Discard),
				Out:        &stdout,
			}, setup.paths)
			if err != nil {
				t.Fatal(err)
			}

			if timing.Images != 3 || timing.SequentialFailed != 1 || timing.ParallelFailed != 1 {
				t.Errorf("unexpected timing %+v", timing)
			}
			if !strings.Contains(stdout.String(), "Images found: 3\n") {
				t.Errorf("unexpected output:\n%s", stdout.String())
			}

			got := readOutputs(t, opts.OutputDir)
			want := readOutputs(t, refDir)
			if len(got) != 6 || len(want) != 6 {
				t.Fatalf("expected 6 outputs, got %d (reference %d)", len(got), len(want))
			}
			for name, b := range want {
				if !bytes.Equal(got[name], b) {
					t.Errorf("%s differs from the sequential-only run", name)
				}
			}
		})
	}
}

func TestRunProcessWithWorkers(t *testing.T) {
	useTestBinaryAsWorker(t)

	in, out := t.TempDir(), t.TempDir()
	writeTestPNG(t, filepath.Join(in, "good.png"))
	if err := os.WriteFile(filepath.Join(in, "corrupt.jpg"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	opts := threadOpts(in, out)
	opts.Executor = executor.KindProcess

	var buf bytes.Buffer
	if err := runProcess(context.Background(), opts, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Failed: 1 of 2 images") {
		t.Errorf("missing failure count:\n%s", buf.String())
	}
	files := readOutputs(t, out)
	for _, name := range []string{"gray_good.png", "blurred_good.png", "edges_good.png"} {
		if _, ok := files[name]; !ok {
			t.Errorf("worker did not write %s", name)
		}
	}
	if len(files) != 3 {
		t.Errorf("expected 3 outputs, got %d", len(files))
	}
}

// The worker's errors cross the process boundary as plain messages.
func TestProcessWorkerReportsDecodeFailure(t *testing.T) {
	useTestBinaryAsWorker(t)

	in, out := t.TempDir(), t.TempDir()
	bad := filepath.Join(in, "corrupt.jpg")
	if err := os.WriteFile(bad, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	pipe, err := filter.New(filter.Config{OutputDir: out})
	if err != nil {
		t.Fatal(err)
	}
	opts := threadOpts(in, out)
	opts.Executor = executor.KindProcess
	opts.Workers = 1

	results := newParallelExecutor(&opts, pipe).Run(context.Background(), []string{bad}, nil)
	if types.CountFailed(results) != 1 {
		t.Fatalf("expected the corrupt image to fail, got %+v", results)
	}
	if !strings.Contains(results[0].Err.Error(), filter.ErrDecode.Error()) {
		t.Errorf("error = %v, want a decode failure", results[0].Err)
	}
}
