package rknn

import (
	"fmt"
	"strings"
)

// CoreType specifies the CPU core type
type CoreType int

const (
	FastCores CoreType = 0
	SlowCores CoreType = 1
	AllCores  CoreType = 2
)

// platformCores lists the CPU core numbers of each core type per Rockchip
// platform
var platformCores = map[string]map[CoreType][]int{
	"rk3562": {
		SlowCores: {0, 1, 2, 3},
		FastCores: {0, 1, 2, 3},
		AllCores:  {0, 1, 2, 3},
	},
	"rk3566": {
		SlowCores: {0, 1, 2, 3},
		FastCores: {0, 1, 2, 3},
		AllCores:  {0, 1, 2, 3},
	},
	"rk3568": {
		SlowCores: {0, 1, 2, 3},
		FastCores: {0, 1, 2, 3},
		AllCores:  {0, 1, 2, 3},
	},
	"rk3576": {
		SlowCores: {0, 1, 2, 3},
		FastCores: {4, 5, 6, 7},
		AllCores:  {0, 1, 2, 3, 4, 5, 6, 7},
	},
	"rk3582": {
		SlowCores: {0, 1, 2, 3},
		FastCores: {4, 5},
		AllCores:  {0, 1, 2, 3, 4, 5},
	},
	"rk3588": {
		SlowCores: {0, 1, 2, 3},
		FastCores: {4, 5, 6, 7},
		AllCores:  {0, 1, 2, 3, 4, 5, 6, 7},
	},
}

// PlatformCores returns the CPU core numbers of the core type on the given
// platform of rk3562|rk3566|rk3568|rk3576|rk3582|rk3588
func PlatformCores(platform string, ct CoreType) ([]int, error) {

	platform = strings.ToLower(strings.TrimSpace(platform))

	if types, ok := platformCores[platform]; ok {
		if cores, ok := types[ct]; ok {
			return cores, nil
		}
	}

	return nil, fmt.Errorf("unknown platform: %s", platform)
}

// SetCPUAffinityByPlatform pins the process to the CPU cores of the core type
// on the given platform
func SetCPUAffinityByPlatform(platform string, ct CoreType) error {

	cores, err := PlatformCores(platform, ct)

	if err != nil {
		return err
	}

	return SetCPUAffinity(cores)
}
