// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"topdown/cmd"
)

// profileEnv enables CPU and heap profiling of the application when set
const profileEnv = "TOPDOWN_PROFILE"

func main() {
	if os.Getenv(profileEnv) != "" {
		stop, err := startProfiling("cpu.prof", "mem.prof")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start profiling: %v\n", err)
			os.Exit(1)
		}
		defer stop()
	}
	cmd.Execute()
}

// startProfiling starts CPU profiling. The returned function stops it and writes the heap
// profile.
func startProfiling(cpuPath, memPath string) (stop func(), err error) {
	cpuFile, err := os.Create(cpuPath) // #nosec G304
	if err != nil {
		return nil, err
	}
	if err = pprof.StartCPUProfile(cpuFile); err != nil {
		cpuFile.Close()
		return nil, err
	}
	stop = func() {
		pprof.StopCPUProfile()
		cpuFile.Close()
		memFile, err := os.Create(memPath) // #nosec G304
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create heap profile: %v\n", err)
			return
		}
		defer memFile.Close()
		if err := pprof.WriteHeapProfile(memFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write heap profile: %v\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "Profiling data written to %s and %s, analyze with 'go tool pprof <file>'\n", cpuPath, memPath)
	}
	return stop, nil
}
