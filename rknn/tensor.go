//go:build rknn

package rknn

/*
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/swdee/go-crowdcount"
)

// TensorFormat wraps C.rknn_tensor_format
type TensorFormat int

const (
	TensorNCHW      TensorFormat = C.RKNN_TENSOR_NCHW
	TensorNHWC      TensorFormat = C.RKNN_TENSOR_NHWC
	TensorNC1HWC2   TensorFormat = C.RKNN_TENSOR_NC1HWC2
	TensorUndefined TensorFormat = C.RKNN_TENSOR_UNDEFINED
)

// TensorType wraps C.rknn_tensor_type
type TensorType int

const (
	TensorFloat32 TensorType = C.RKNN_TENSOR_FLOAT32
	TensorFloat16 TensorType = C.RKNN_TENSOR_FLOAT16
	TensorInt8    TensorType = C.RKNN_TENSOR_INT8
	TensorUint8   TensorType = C.RKNN_TENSOR_UINT8
)

// TensorQntType wraps C.rknn_tensor_qnt_type
type TensorQntType int

const (
	TensorQntNone   TensorQntType = C.RKNN_TENSOR_QNT_NONE
	TensorQntDFP    TensorQntType = C.RKNN_TENSOR_QNT_DFP
	TensorQntAffine TensorQntType = C.RKNN_TENSOR_QNT_AFFINE_ASYMMETRIC
)

const (
	maxDims    = C.RKNN_MAX_DIMS
	maxNameLen = C.RKNN_MAX_NAME_LEN
)

// TensorAttr represents the C.rknn_tensor_attr structure
type TensorAttr struct {
	Index   uint32
	NDims   uint32
	Dims    [maxDims]uint32
	Name    string
	NElems  uint32
	Size    uint32
	Fmt     TensorFormat
	Type    TensorType
	QntType TensorQntType
	ZP      int32
	Scale   float32
}

// Shape returns the tensor dimensions in NCHW order
func (a TensorAttr) Shape() crowdcount.Shape {
	return nchwShape(a.Dims[:a.NDims], a.Fmt == TensorNHWC)
}

// convertTensorAttr converts a C.rknn_tensor_attr to a Go TensorAttr
func convertTensorAttr(cAttr *C.rknn_tensor_attr) TensorAttr {

	name := string(C.GoBytes(unsafe.Pointer(&cAttr.name[0]), C.int(maxNameLen)))

	if i := strings.IndexByte(name, 0); i != -1 {
		name = name[:i]
	}

	return TensorAttr{
		Index:   uint32(cAttr.index),
		NDims:   uint32(cAttr.n_dims),
		Dims:    *(*[maxDims]uint32)(unsafe.Pointer(&cAttr.dims)),
		Name:    name,
		NElems:  uint32(cAttr.n_elems),
		Size:    uint32(cAttr.size),
		Fmt:     TensorFormat(cAttr.fmt),
		Type:    TensorType(cAttr._type),
		QntType: TensorQntType(cAttr.qnt_type),
		ZP:      int32(cAttr.zp),
		Scale:   float32(cAttr.scale),
	}
}

// queryIO caches the number and attributes of the model's input and output
// tensors
func (r *runtime) queryIO() error {

	var cIONum C.rknn_input_output_num

	ret := C.rknn_query(r.ctx, C.RKNN_QUERY_IN_OUT_NUM, unsafe.Pointer(&cIONum),
		C.uint(C.sizeof_rknn_input_output_num))

	if ret != C.RKNN_SUCC {
		return callError("rknn_query RKNN_QUERY_IN_OUT_NUM", ret)
	}

	r.ioNum = ioNumber{
		NumberInput:  uint32(cIONum.n_input),
		NumberOutput: uint32(cIONum.n_output),
	}

	var err error

	r.inputAttrs, err = r.queryAttrs(C.RKNN_QUERY_INPUT_ATTR, r.ioNum.NumberInput)

	if err != nil {
		return err
	}

	r.outputAttrs, err = r.queryAttrs(C.RKNN_QUERY_OUTPUT_ATTR, r.ioNum.NumberOutput)

	return err
}

// queryAttrs queries the tensor attributes of either the inputs or outputs
func (r *runtime) queryAttrs(cmd C.rknn_query_cmd, n uint32) ([]TensorAttr, error) {

	attrs := make([]TensorAttr, n)

	for i := uint32(0); i < n; i++ {
		var cAttr C.rknn_tensor_attr
		cAttr.index = C.uint32_t(i)

		ret := C.rknn_query(r.ctx, cmd, unsafe.Pointer(&cAttr),
			C.uint(unsafe.Sizeof(cAttr)))

		if ret != C.RKNN_SUCC {
			return nil, callError("rknn_query tensor attr", ret)
		}

		attrs[i] = convertTensorAttr(&cAttr)
	}

	return attrs, nil
}

// String returns the TensorAttr's attributes formatted as a string
func (a TensorAttr) String() string {
	return fmt.Sprintf("index=%d, name=%s, dims=%v, n_elems=%d, size=%d, "+
		"fmt=%s, type=%s, qnt_type=%s, zp=%d, scale=%f",
		a.Index, a.Name, a.Dims[:a.NDims], a.NElems, a.Size,
		a.Fmt, a.Type, a.QntType, a.ZP, a.Scale,
	)
}

// String returns a readable description of the TensorType
func (t TensorType) String() string {
	switch t {
	case TensorFloat32:
		return "FP32"
	case TensorFloat16:
		return "FP16"
	case TensorInt8:
		return "INT8"
	case TensorUint8:
		return "UINT8"
	default:
		return "UNKNOW"
	}
}

// String returns a readable description of the TensorQntType
func (t TensorQntType) String() string {
	switch t {
	case TensorQntNone:
		return "NONE"
	case TensorQntDFP:
		return "DFP"
	case TensorQntAffine:
		return "AFFINE"
	default:
		return "UNKNOW"
	}
}

// String returns a readable description of the TensorFormat
func (t TensorFormat) String() string {
	switch t {
	case TensorNCHW:
		return "NCHW"
	case TensorNHWC:
		return "NHWC"
	case TensorNC1HWC2:
		return "NC1HWC2"
	case TensorUndefined:
		return "UNDEFINED"
	default:
		return "UNKNOW"
	}
}
