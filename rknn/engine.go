//go:build rknn

package rknn

import (
	"errors"
	"fmt"
	"sync"

	"github.com/swdee/go-crowdcount"
	"go.uber.org/zap"
)

// Options for creating an Engine
type Options struct {
	// Core is the NPU core mask the model runs on
	Core CoreMask
	// Quantized fetches the raw int8/fp16 output buffers and dequantizes them
	// on the CPU instead of letting the runtime convert to float32
	Quantized bool
	// Platform of the SoC, eg: rk3588.  When set the process is pinned to
	// the platform's fast CPU cores.
	Platform string
	Log      *zap.Logger
}

// Engine is a crowdcount.Engine running a compiled .rknn model
type Engine struct {
	rt        *runtime
	quantized bool
	log       *zap.Logger
	mu        sync.Mutex
}

// New loads the compiled model file on the NPU
func New(modelFile string, opts Options) (*Engine, error) {

	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	if opts.Platform != "" {
		if err := SetCPUAffinityByPlatform(opts.Platform, FastCores); err != nil {
			opts.Log.Warn("failed to set cpu affinity", zap.Error(err))
		}
	}

	rt, err := newRuntime(modelFile, opts.Core)

	if err != nil {
		return nil, err
	}

	if rt.ioNum.NumberInput != 1 || rt.ioNum.NumberOutput != 1 {
		rt.close()
		return nil, fmt.Errorf("expected model with one input and one output, got in:%d out:%d",
			rt.ioNum.NumberInput, rt.ioNum.NumberOutput)
	}

	e := &Engine{
		rt:        rt,
		quantized: opts.Quantized,
		log:       opts.Log,
	}

	fields := []zap.Field{
		zap.String("model", modelFile),
		zap.Stringer("input", rt.inputAttrs[0]),
		zap.Stringer("output", rt.outputAttrs[0]),
	}

	if ver, err := rt.sdkVersion(); err == nil {
		fields = append(fields,
			zap.String("driver_version", ver.DriverVersion),
			zap.String("api_version", ver.APIVersion),
		)
	}

	e.log.Info("rknn model loaded", fields...)

	return e, nil
}

// InputShape returns the model input dimensions in NCHW order
func (e *Engine) InputShape() crowdcount.Shape {
	return e.rt.inputAttrs[0].Shape()
}

// Infer runs the model on the float32 NCHW input tensor
func (e *Engine) Infer(input crowdcount.Tensor) (crowdcount.Tensor, error) {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rt == nil {
		return crowdcount.Tensor{}, errors.New("engine is closed")
	}

	if want := e.rt.inputAttrs[0].Shape(); !input.Shape.Equal(want) {
		return crowdcount.Tensor{}, fmt.Errorf("%w: input %s, model expects %s",
			crowdcount.ErrShape, input.Shape, want)
	}

	buf, err := e.rt.setInput(input)

	if err != nil {
		return crowdcount.Tensor{}, fmt.Errorf("error setting inputs: %w", err)
	}

	defer freeInput(buf)

	if err := e.rt.run(); err != nil {
		return crowdcount.Tensor{}, fmt.Errorf("error running model: %w", err)
	}

	outputs, err := e.rt.getOutputs(!e.quantized)

	if err != nil {
		return crowdcount.Tensor{}, fmt.Errorf("error getting outputs: %w", err)
	}

	return outputs[0], nil
}

// Close unloads the model from the NPU, subsequent calls do nothing
func (e *Engine) Close() error {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rt == nil {
		return nil
	}

	err := e.rt.close()
	e.rt = nil

	return err
}
