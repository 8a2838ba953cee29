package pipeline

import (
	"context"

	"github.com/swdee/go-crowdcount/preprocess"
	"github.com/swdee/go-crowdcount/render"
	"github.com/swdee/go-crowdcount/sink"
	"github.com/swdee/go-crowdcount/source"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// StopReason is why a streaming loop ended
type StopReason int

const (
	// EndOfStream means the source had no more frames
	EndOfStream StopReason = iota
	// OperatorCancel means the cancel key was pressed in the display
	OperatorCancel
	// ContextCancel means the context was cancelled, eg: by a signal
	ContextCancel
	// Failed means a frame could not be processed
	Failed
)

func (r StopReason) String() string {
	switch r {
	case EndOfStream:
		return "end of stream"
	case OperatorCancel:
		return "operator cancel"
	case ContextCancel:
		return "context cancel"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// StreamStats summarise a streaming run
type StreamStats struct {
	// Frames is the number of frames processed and delivered
	Frames int
	// Reason the loop ended
	Reason StopReason
}

// Display is a sink the operator watches and can cancel streaming from
type Display interface {
	sink.Sink
	// Cancelled polls for an operator cancel request once
	Cancelled() bool
}

// Stream processes frames from src until end of stream, operator cancel on
// display, or ctx cancellation.  Each composite is shown on display (which may
// be nil) and written to every sink.  The source, display and sinks are
// closed before returning regardless of how the loop ended.
func (p *Pipeline) Stream(ctx context.Context, src source.Source, display Display,
	sinks ...sink.Sink) (stats StreamStats, err error) {

	frame := gocv.NewMat()
	disp := gocv.NewMat()
	input := gocv.NewMat()
	composite := gocv.NewMat()

	var rs *preprocess.Resizer

	defer func() {
		frame.Close()
		disp.Close()
		input.Close()
		composite.Close()

		if rs != nil {
			rs.Close()
		}

		err = multierr.Append(err, src.Close())

		if display != nil {
			err = multierr.Append(err, display.Close())
		}

		for _, s := range sinks {
			err = multierr.Append(err, s.Close())
		}

		p.log.Info("stream finished",
			zap.Int("frames", stats.Frames),
			zap.Stringer("reason", stats.Reason),
		)
	}()

	for {
		if ctx.Err() != nil {
			stats.Reason = ContextCancel
			return stats, nil
		}

		if display != nil && display.Cancelled() {
			stats.Reason = OperatorCancel
			return stats, nil
		}

		if !src.Read(&frame) {
			stats.Reason = EndOfStream
			return stats, nil
		}

		// frame size can change mid stream on some camera drivers
		if rs == nil || !rs.Matches(frame.Cols(), frame.Rows()) {
			if rs != nil {
				rs.Close()
			}

			rs = preprocess.NewResizer(frame.Cols(), frame.Rows(), p.size.X, p.size.Y)
		}

		rs.FitResize(frame, &disp)
		rs.LetterBoxResize(frame, &input, render.Black)

		if _, err := p.Estimate(disp, input, &composite); err != nil {
			stats.Reason = Failed
			return stats, err
		}

		if display != nil {
			if err := display.Write(composite); err != nil {
				stats.Reason = Failed
				return stats, err
			}
		}

		for _, s := range sinks {
			if err := s.Write(composite); err != nil {
				stats.Reason = Failed
				return stats, err
			}
		}

		stats.Frames++
	}
}
