package rknn

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SetCPUAffinity pins the calling process to the given CPU core numbers
func SetCPUAffinity(cores []int) error {

	var set unix.CPUSet
	set.Zero()

	for _, c := range cores {
		set.Set(c)
	}

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("failed to set CPU affinity: %w", err)
	}

	return nil
}

// GetCPUAffinity returns the CPU core numbers the calling process may run on
func GetCPUAffinity() ([]int, error) {

	var set unix.CPUSet

	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, fmt.Errorf("failed to get CPU affinity: %w", err)
	}

	var cores []int

	for c := 0; c < len(set)*64; c++ {
		if set.IsSet(c) {
			cores = append(cores, c)
		}
	}

	return cores, nil
}
