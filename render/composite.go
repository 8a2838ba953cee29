package render

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrComposite is returned when two images can not be placed side by side
var ErrComposite = errors.New("images can not be composited")

// SideBySide concatenates left and right horizontally into dst.  Both images
// must have the same height and Mat type, dst is left.Cols()+right.Cols()
// wide.
func SideBySide(left, right gocv.Mat, dst *gocv.Mat) error {

	if left.Rows() != right.Rows() {
		return fmt.Errorf("%w: heights differ, %d and %d", ErrComposite,
			left.Rows(), right.Rows())
	}

	if left.Type() != right.Type() {
		return fmt.Errorf("%w: mat types differ, %v and %v", ErrComposite,
			left.Type(), right.Type())
	}

	gocv.Hconcat(left, right, dst)

	return nil
}
