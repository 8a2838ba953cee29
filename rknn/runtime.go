//go:build rknn

package rknn

/*
#cgo LDFLAGS: -lrknnrt
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"os"
	"unsafe"
)

// CoreMask wraps C.rknn_core_mask
type CoreMask int

// rknn_core_mask values used to target which cores on the NPU the model is run
// on. The rk3588 has three cores, auto will pick an idle core to run the model
// on, whilst the others specify the specific core or combined number of cores
// to run.
const (
	NPUCoreAuto    CoreMask = C.RKNN_NPU_CORE_AUTO
	NPUCore0       CoreMask = C.RKNN_NPU_CORE_0
	NPUCore1       CoreMask = C.RKNN_NPU_CORE_1
	NPUCore2       CoreMask = C.RKNN_NPU_CORE_2
	NPUCore01      CoreMask = C.RKNN_NPU_CORE_0_1
	NPUCore012     CoreMask = C.RKNN_NPU_CORE_0_1_2
	NPUSkipSetCore CoreMask = 9999
)

// ParseCoreMask converts the configuration name of a core mask, an empty
// name skips setting the mask which is required on single core NPUs
func ParseCoreMask(name string) (CoreMask, error) {
	switch name {
	case "", "skip":
		return NPUSkipSetCore, nil
	case "auto":
		return NPUCoreAuto, nil
	case "0":
		return NPUCore0, nil
	case "1":
		return NPUCore1, nil
	case "2":
		return NPUCore2, nil
	case "0_1":
		return NPUCore01, nil
	case "0_1_2":
		return NPUCore012, nil
	default:
		return NPUSkipSetCore, fmt.Errorf("unknown npu core mask %q", name)
	}
}

// ErrorCodes
type ErrorCodes int

// error code values returned by the C API
const (
	Success              ErrorCodes = C.RKNN_SUCC
	ErrFail              ErrorCodes = C.RKNN_ERR_FAIL
	ErrTimeout           ErrorCodes = C.RKNN_ERR_TIMEOUT
	ErrDeviceUnavailable ErrorCodes = C.RKNN_ERR_DEVICE_UNAVAILABLE
	ErrMallocFail        ErrorCodes = C.RKNN_ERR_MALLOC_FAIL
	ErrParamInvalid      ErrorCodes = C.RKNN_ERR_PARAM_INVALID
	ErrModelInvalid      ErrorCodes = C.RKNN_ERR_MODEL_INVALID
	ErrCtxInvalid        ErrorCodes = C.RKNN_ERR_CTX_INVALID
	ErrInputInvalid      ErrorCodes = C.RKNN_ERR_INPUT_INVALID
	ErrOutputInvalid     ErrorCodes = C.RKNN_ERR_OUTPUT_INVALID
	ErrDeviceMismatch    ErrorCodes = C.RKNN_ERR_DEVICE_UNMATCH
	ErrPlatformMismatch  ErrorCodes = C.RKNN_ERR_TARGET_PLATFORM_UNMATCH
)

// String returns a readable description of the error code
func (e ErrorCodes) String() string {
	switch e {
	case Success:
		return "execution successful"
	case ErrFail:
		return "execution failed"
	case ErrTimeout:
		return "execution timed out"
	case ErrDeviceUnavailable:
		return "device is unavailable"
	case ErrMallocFail:
		return "C memory allocation failed"
	case ErrParamInvalid:
		return "parameter is invalid"
	case ErrModelInvalid:
		return "model file is invalid"
	case ErrCtxInvalid:
		return "context is invalid"
	case ErrInputInvalid:
		return "input is invalid"
	case ErrOutputInvalid:
		return "output is invalid"
	case ErrDeviceMismatch:
		return "device mismatch, please update rknn sdk and npu driver/firmware"
	case ErrPlatformMismatch:
		return "the RKNN model target platform is not compatible with the current platform"
	default:
		return fmt.Sprintf("unknown error code %d", e)
	}
}

// callError formats a failed C API call
func callError(call string, ret C.int) error {
	return fmt.Errorf("C.%s failed with code %d, error: %s", call, int(ret),
		ErrorCodes(ret).String())
}

// runtime holds the C context of a loaded RKNN model
type runtime struct {
	ctx         C.rknn_context
	ioNum       ioNumber
	inputAttrs  []TensorAttr
	outputAttrs []TensorAttr
}

// ioNumber represents the C.rknn_input_output_num struct
type ioNumber struct {
	NumberInput  uint32
	NumberOutput uint32
}

// newRuntime loads the compiled model file on the NPU and caches its tensor
// attributes
func newRuntime(modelFile string, core CoreMask) (*runtime, error) {

	info, err := os.Stat(modelFile)

	if err != nil {
		return nil, fmt.Errorf("model file does not exist at %s, error: %w",
			modelFile, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("model file %s is a directory", modelFile)
	}

	r := &runtime{}

	cModelFile := C.CString(modelFile)
	defer C.free(unsafe.Pointer(cModelFile))

	ret := C.rknn_init(&r.ctx, unsafe.Pointer(cModelFile), 0, 0, nil)

	if ret != C.RKNN_SUCC {
		return nil, callError("rknn_init", ret)
	}

	// setCoreMask is only supported on multi core NPUs such as the RK3588
	if core != NPUSkipSetCore {
		if ret := C.rknn_set_core_mask(r.ctx, C.rknn_core_mask(core)); ret != C.RKNN_SUCC {
			r.close()
			return nil, callError("rknn_set_core_mask", ret)
		}
	}

	if err := r.queryIO(); err != nil {
		r.close()
		return nil, err
	}

	return r, nil
}

// close wraps C.rknn_destroy which unloads the model and releases all C
// resources of the context
func (r *runtime) close() error {

	ret := C.rknn_destroy(r.ctx)

	if ret != C.RKNN_SUCC {
		return callError("rknn_destroy", ret)
	}

	return nil
}

// SDKVersion represents the C.rknn_sdk_version struct
type SDKVersion struct {
	DriverVersion string
	APIVersion    string
}

// sdkVersion returns the RKNN API and driver versions
func (r *runtime) sdkVersion() (SDKVersion, error) {

	var cSdkVer C.rknn_sdk_version

	ret := C.rknn_query(r.ctx, C.RKNN_QUERY_SDK_VERSION,
		unsafe.Pointer(&cSdkVer), C.uint(C.sizeof_rknn_sdk_version))

	if ret != C.RKNN_SUCC {
		return SDKVersion{}, callError("rknn_query RKNN_QUERY_SDK_VERSION", ret)
	}

	return SDKVersion{
		DriverVersion: C.GoString(&(cSdkVer.drv_version[0])),
		APIVersion:    C.GoString(&(cSdkVer.api_version[0])),
	}, nil
}
