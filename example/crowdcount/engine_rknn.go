//go:build rknn

package main

import (
	"context"
	"path/filepath"

	"github.com/swdee/go-crowdcount"
	"github.com/swdee/go-crowdcount/rknn"
	"go.uber.org/zap"
)

func init() {
	engines["rknn"] = openRKNN
}

// openRKNN loads the compiled model on the NPU.  Compiled models are built
// per platform so are not downloaded.
func openRKNN(ctx context.Context, cfg crowdcount.Config,
	log *zap.Logger) (crowdcount.Engine, error) {

	core, err := rknn.ParseCoreMask(cfg.Engine.CoreMask)

	if err != nil {
		return nil, err
	}

	e, err := rknn.New(filepath.Join(cfg.Model.Dir, cfg.Model.RKNNFile), rknn.Options{
		Core:      core,
		Quantized: cfg.Engine.Quantized,
		Platform:  cfg.Engine.Platform,
		Log:       log,
	})

	if err != nil {
		return nil, err
	}

	return e, nil
}
