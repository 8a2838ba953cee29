package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/swdee/go-crowdcount"
	"github.com/swdee/go-crowdcount/model"
	"github.com/swdee/go-crowdcount/onnx"
	"go.uber.org/zap"
)

// engineOpener creates an inference engine from the configuration
type engineOpener func(ctx context.Context, cfg crowdcount.Config,
	log *zap.Logger) (crowdcount.Engine, error)

// engines are the available inference backends by name
var engines = map[string]engineOpener{
	"onnx": openONNX,
}

// engineNames returns the sorted names of the available engines
func engineNames() []string {

	names := make([]string, 0, len(engines))

	for name := range engines {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// openEngine creates the named engine
func openEngine(ctx context.Context, name string, cfg crowdcount.Config,
	log *zap.Logger) (crowdcount.Engine, error) {

	open, ok := engines[name]

	if !ok {
		return nil, fmt.Errorf("unknown engine %q, available %v", name, engineNames())
	}

	return open(ctx, cfg, log)
}

// openONNX downloads any missing model artifacts then loads the ONNX model
func openONNX(ctx context.Context, cfg crowdcount.Config,
	log *zap.Logger) (crowdcount.Engine, error) {

	mc := cfg.Model

	err := model.NewProvisioner(nil, log).Ensure(ctx, mc.Dir, mc.RemoteURL,
		mc.WeightFile, mc.TopologyFile)

	if err != nil {
		return nil, err
	}

	e, err := onnx.New(filepath.Join(mc.Dir, mc.WeightFile), onnx.Options{
		LibraryPath: cfg.Engine.LibraryPath,
		Threads:     cfg.Engine.Threads,
		Log:         log,
	})

	if err != nil {
		return nil, err
	}

	return e, nil
}
