//go:build rknn

package rknn

/*
#include "rknn_api.h"
#include <stdlib.h>
#include <string.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/swdee/go-crowdcount"
)

// setInput copies the float32 NCHW tensor into C memory and wraps
// C.rknn_inputs_set, the runtime converts it to the model's input type
func (r *runtime) setInput(t crowdcount.Tensor) (unsafe.Pointer, error) {

	size := len(t.Data) * 4
	buf := C.malloc(C.size_t(size))

	if buf == nil {
		return nil, fmt.Errorf("error allocating %d bytes for input", size)
	}

	C.memcpy(buf, unsafe.Pointer(&t.Data[0]), C.size_t(size))

	var cInput C.rknn_input
	cInput.index = 0
	cInput.buf = buf
	cInput.size = C.uint32_t(size)
	cInput.pass_through = 0
	cInput._type = C.RKNN_TENSOR_FLOAT32
	cInput.fmt = C.RKNN_TENSOR_NCHW

	ret := C.rknn_inputs_set(r.ctx, 1, &cInput)

	if ret != C.RKNN_SUCC {
		C.free(buf)
		return nil, callError("rknn_inputs_set", ret)
	}

	return buf, nil
}

// freeInput releases the C copy of an input tensor
func freeInput(buf unsafe.Pointer) {
	C.free(buf)
}

// run wraps C.rknn_run
func (r *runtime) run() error {

	ret := C.rknn_run(r.ctx, nil)

	if ret < 0 {
		return callError("rknn_run", ret)
	}

	return nil
}

// getOutputs wraps C.rknn_outputs_get, copying every output into Go memory as
// float32 before releasing the C buffers.  With wantFloat unset the raw int8
// or fp16 buffers are fetched and converted on the CPU.
func (r *runtime) getOutputs(wantFloat bool) ([]crowdcount.Tensor, error) {

	n := r.ioNum.NumberOutput
	cOutputs := make([]C.rknn_output, n)

	for idx := range cOutputs {
		cOutputs[idx].index = C.uint32_t(idx)
		cOutputs[idx].want_float = 0

		if wantFloat {
			cOutputs[idx].want_float = 1
		}
	}

	ret := C.rknn_outputs_get(r.ctx, C.uint32_t(n), &cOutputs[0], nil)

	if ret < 0 {
		return nil, callError("rknn_outputs_get", ret)
	}

	defer C.rknn_outputs_release(r.ctx, C.uint32_t(n), &cOutputs[0])

	tensors := make([]crowdcount.Tensor, n)

	for i, cOut := range cOutputs {
		attr := r.outputAttrs[i]
		size := int(cOut.size)

		var data []float32

		switch {
		case cOut.want_float == 1:
			data = append([]float32(nil), unsafe.Slice((*float32)(cOut.buf), size/4)...)

		case attr.Type == TensorFloat16:
			data = float16ToFloat32(unsafe.Slice((*uint16)(cOut.buf), size/2))

		case attr.Type == TensorInt8:
			data = dequantizeInt8(unsafe.Slice((*int8)(cOut.buf), size), attr.ZP, attr.Scale)

		default:
			return nil, fmt.Errorf("unsupported output tensor type %s", attr.Type)
		}

		// the runtime returns NHWC layout when the attribute says so
		if attr.Fmt == TensorNHWC && attr.NDims == 4 {
			d := attr.Dims
			data = nhwcToNCHW(data, int(d[0]), int(d[1]), int(d[2]), int(d[3]))
		}

		t, err := crowdcount.NewTensor(attr.Shape(), data)

		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}

		tensors[i] = t
	}

	return tensors, nil
}
