// Package rknn runs compiled crowd density models on the NPU of Rockchip
// RK35xx series SoCs through the RKNN Toolkit2 C runtime.
//
// The engine requires cgo, the rknn_api.h header and librknnrt.so, so it is
// only compiled with the rknn build tag
//
//	go build -tags rknn ./...
//
// CPU affinity and output conversion helpers are available without the tag.
package rknn
