// Package onnx runs crowd density models with ONNX Runtime on the CPU.
package onnx

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/swdee/go-crowdcount"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// systemLibraryPaths are searched for the ONNX Runtime shared library when no
// path is configured
var systemLibraryPaths = []string{
	"/usr/local/lib/libonnxruntime.so",
	"/usr/lib/libonnxruntime.so",
	"/usr/lib/aarch64-linux-gnu/libonnxruntime.so",
	"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
}

// envMu guards the process wide ONNX Runtime environment
var envMu sync.Mutex

// Options for creating an Engine
type Options struct {
	// LibraryPath of the ONNX Runtime shared library, searched for in the
	// common system locations when empty
	LibraryPath string
	// Threads is the intra op thread count, 0 lets ONNX Runtime decide
	Threads int
	Log     *zap.Logger
}

// Engine is a crowdcount.Engine backed by an ONNX Runtime session on a model
// with a single input and a single output
type Engine struct {
	session *ort.DynamicAdvancedSession
	input   ort.InputOutputInfo
	output  ort.InputOutputInfo
	shape   crowdcount.Shape
	log     *zap.Logger
	mu      sync.Mutex
}

// New loads the ONNX model file and opens an inference session on it
func New(modelFile string, opts Options) (*Engine, error) {

	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	if _, err := os.Stat(modelFile); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := initEnvironment(opts.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelFile)

	if err != nil {
		return nil, fmt.Errorf("error reading model io info: %w", err)
	}

	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected model with one input and one output, got in:%d out:%d",
			len(inputs), len(outputs))
	}

	in, out := inputs[0], outputs[0]

	if len(in.Dimensions) != 4 {
		return nil, fmt.Errorf("%w: expected 4D input, got %dD", crowdcount.ErrShape,
			len(in.Dimensions))
	}

	sopts, err := ort.NewSessionOptions()

	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}

	defer sopts.Destroy()

	if opts.Threads > 0 {
		if err := sopts.SetIntraOpNumThreads(opts.Threads); err != nil {
			return nil, fmt.Errorf("error setting thread count: %w", err)
		}
	}

	sess, err := ort.NewDynamicAdvancedSession(modelFile, []string{in.Name},
		[]string{out.Name}, sopts)

	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	e := &Engine{
		session: sess,
		input:   in,
		output:  out,
		shape:   crowdcount.Shape(in.Dimensions),
		log:     opts.Log,
	}

	e.log.Info("onnx model loaded",
		zap.String("model", modelFile),
		zap.String("input", in.Name),
		zap.Stringer("input_shape", e.shape),
		zap.String("output", out.Name),
	)

	return e, nil
}

// initEnvironment sets the shared library path and initializes ONNX Runtime
// once per process
func initEnvironment(libPath string) error {

	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	path, err := findLibrary(libPath)

	if err != nil {
		return err
	}

	ort.SetSharedLibraryPath(path)

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("error initializing onnxruntime from %s: %w", path, err)
	}

	return nil
}

// findLibrary returns the configured library path or the first system path
// that exists
func findLibrary(libPath string) (string, error) {

	if libPath != "" {
		if _, err := os.Stat(libPath); err != nil {
			return "", fmt.Errorf("onnxruntime library: %w", err)
		}

		return libPath, nil
	}

	if runtime.GOOS == "darwin" {
		return "libonnxruntime.dylib", nil
	}

	for _, p := range systemLibraryPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", errors.New("onnxruntime shared library not found, set engine.library_path")
}

// InputShape returns the model input dimensions, dynamic axes are negative
func (e *Engine) InputShape() crowdcount.Shape {
	return e.shape
}

// Infer runs the model on the input tensor.  The output is copied out of
// ONNX Runtime memory before it is released.
func (e *Engine) Infer(input crowdcount.Tensor) (crowdcount.Tensor, error) {

	if err := e.checkInput(input.Shape); err != nil {
		return crowdcount.Tensor{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return crowdcount.Tensor{}, errors.New("engine is closed")
	}

	in, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)

	if err != nil {
		return crowdcount.Tensor{}, fmt.Errorf("error creating input tensor: %w", err)
	}

	defer in.Destroy()

	outputs := []ort.Value{nil}

	if err := e.session.Run([]ort.Value{in}, outputs); err != nil {
		return crowdcount.Tensor{}, fmt.Errorf("error running session: %w", err)
	}

	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	t, ok := outputs[0].(*ort.Tensor[float32])

	if !ok {
		return crowdcount.Tensor{}, fmt.Errorf("%w: unexpected output type %T",
			crowdcount.ErrShape, outputs[0])
	}

	shape := crowdcount.Shape(append([]int64(nil), t.GetShape()...))
	data := append([]float32(nil), t.GetData()...)

	return crowdcount.NewTensor(shape, data)
}

// checkInput compares the tensor shape against the fixed model dimensions
func (e *Engine) checkInput(s crowdcount.Shape) error {

	if len(s) != len(e.shape) {
		return fmt.Errorf("%w: input %s, model expects %s", crowdcount.ErrShape, s, e.shape)
	}

	for i, d := range e.shape {
		if d > 0 && s[i] != d {
			return fmt.Errorf("%w: input %s, model expects %s", crowdcount.ErrShape, s, e.shape)
		}
	}

	return nil
}

// Close destroys the session.  The ONNX Runtime environment stays initialized
// for other engines in the process.
func (e *Engine) Close() error {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil
	}

	err := e.session.Destroy()
	e.session = nil

	return err
}
