// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package arch defines the supported CPU generations, their pipeline constants, and the
// mapping from logical topdown counters to the raw counter fields found in profiler output.
package arch

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Architecture names, matched case-sensitively
const (
	IvyBridge = "ivybridge"
	Broadwell = "broadwell"
)

// CounterPrefix is the namespace of raw counter fields in profiler output
const CounterPrefix = "libpfm.counter."

var (
	// ErrUnsupportedArchitecture is returned when an architecture name is not registered
	ErrUnsupportedArchitecture = errors.New("unsupported architecture")
	// ErrMissingCounter is returned when a table lacks a raw counter field required by an architecture
	ErrMissingCounter = errors.New("missing counter")
)

// Counter identifies a logical hardware counter used by the topdown formulas
type Counter int

const (
	Clocks Counter = iota
	RetireSlots
	RecoveryCycles
	UopsAny
	UopsNotDelivered
	Branches
	MachineClears
	IdleCycles
	ThreadC1
	ThreadC2
	L3Hit
	L3Miss
	MemStalls
	L1Stalls
	L2Stalls
	NumCounters // must be last
)

var counterNames = [NumCounters]string{
	Clocks:           "clocks",
	RetireSlots:      "retire_slots",
	RecoveryCycles:   "recovery_cycles",
	UopsAny:          "uops_any",
	UopsNotDelivered: "uops_not_delivered",
	Branches:         "branches",
	MachineClears:    "machine_clears",
	IdleCycles:       "idle_cycles",
	ThreadC1:         "thread_c1",
	ThreadC2:         "thread_c2",
	L3Hit:            "l3_hit",
	L3Miss:           "l3_miss",
	MemStalls:        "mem_stalls",
	L1Stalls:         "l1_stalls",
	L2Stalls:         "l2_stalls",
}

// String returns the logical name of the counter, e.g., "retire_slots"
func (c Counter) String() string {
	if c < 0 || c >= NumCounters {
		return fmt.Sprintf("Counter(%d)", int(c))
	}
	return counterNames[c]
}

// Counters returns all logical counters in formula order
func Counters() []Counter {
	counters := make([]Counter, NumCounters)
	for i := range counters {
		counters[i] = Counter(i)
	}
	return counters
}

// Architecture describes a CPU generation
type Architecture struct {
	Name        string
	Description string
	Slots       int                 // pipeline issue width
	L1Latency   int                 // L1 data cache hit latency in cycles, weights L3 misses
	Fields      [NumCounters]string // raw field name for each logical counter
}

// Field returns the raw field name for a logical counter
func (a Architecture) Field(c Counter) string {
	return a.Fields[c]
}

// RawFields returns the raw field names of all counters, in counter order
func (a Architecture) RawFields() []string {
	fields := make([]string, 0, NumCounters)
	for _, f := range a.Fields {
		fields = append(fields, f)
	}
	return fields
}

// Validate checks that every raw counter field of the architecture is present in the
// given columns. The returned error names all missing fields.
func (a Architecture) Validate(columns []string) error {
	required := mapset.NewSet(a.RawFields()...)
	missing := required.Difference(mapset.NewSet(columns...)).ToSlice()
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("%w: %s architecture requires %s", ErrMissingCounter, a.Name, strings.Join(missing, ", "))
}

// IsCounterField reports whether a column holds a raw counter value, either one mapped
// by the architecture or any other field in the counter namespace
func (a Architecture) IsCounterField(column string) bool {
	if strings.Contains(column, strings.TrimSuffix(CounterPrefix, ".")) {
		return true
	}
	return slices.Contains(a.Fields[:], column)
}

// sharedFields are the raw fields common to both generations
func sharedFields() [NumCounters]string {
	return [NumCounters]string{
		RetireSlots:      CounterPrefix + "UOPS_RETIRED.RETIRE_SLOTS",
		RecoveryCycles:   CounterPrefix + "INT_MISC.RECOVERY_CYCLES",
		UopsAny:          CounterPrefix + "UOPS_ISSUED.ANY",
		UopsNotDelivered: CounterPrefix + "IDQ_UOPS_NOT_DELIVERED.CORE",
		MachineClears:    CounterPrefix + "MACHINE_CLEARS.COUNT",
		IdleCycles:       CounterPrefix + "CYCLE_ACTIVITY.CYCLES_NO_EXECUTE",
		ThreadC1:         CounterPrefix + "UOPS_EXECUTED.THREAD:c=1",
		ThreadC2:         CounterPrefix + "UOPS_EXECUTED.THREAD:c=2",
		L3Hit:            CounterPrefix + "MEM_LOAD_UOPS_RETIRED.L3_HIT",
		L3Miss:           CounterPrefix + "MEM_LOAD_UOPS_RETIRED.L3_MISS",
		MemStalls:        CounterPrefix + "CYCLE_ACTIVITY.STALLS_LDM_PENDING",
		L1Stalls:         CounterPrefix + "CYCLE_ACTIVITY.STALLS_L1D_PENDING",
		L2Stalls:         CounterPrefix + "CYCLE_ACTIVITY.STALLS_L2_PENDING",
	}
}

func ivyBridgeFields() [NumCounters]string {
	fields := sharedFields()
	fields[Clocks] = CounterPrefix + "CPU_CLK_UNHALTED.THREAD_P"
	fields[Branches] = CounterPrefix + "BR_MISP_RETIRED.ALL_BRANCHES"
	return fields
}

func broadwellFields() [NumCounters]string {
	fields := sharedFields()
	fields[Clocks] = CounterPrefix + "CPU_CLK_THREAD_UNHALTED"
	fields[Branches] = CounterPrefix + "BR_MISP_RETIRED:ALL_BRANCHES"
	return fields
}

// architectures is the closed set of supported generations, in listing order
var architectures = []Architecture{
	{
		Name:        IvyBridge,
		Description: "3rd generation Intel Core (Ivy Bridge)",
		Slots:       4,
		L1Latency:   7,
		Fields:      ivyBridgeFields(),
	},
	{
		Name:        Broadwell,
		Description: "5th generation Intel Core (Broadwell)",
		Slots:       4,
		L1Latency:   7,
		Fields:      broadwellFields(),
	},
}

// Resolve returns the architecture with the given name
func Resolve(name string) (Architecture, error) {
	for _, a := range architectures {
		if a.Name == name {
			return a, nil
		}
	}
	return Architecture{}, fmt.Errorf("%w: %q, valid options are: %s", ErrUnsupportedArchitecture, name, strings.Join(Names(), ", "))
}

// Names returns the names of the supported architectures
func Names() []string {
	names := make([]string, 0, len(architectures))
	for _, a := range architectures {
		names = append(names, a.Name)
	}
	return names
}

// All returns a copy of the supported architectures
func All() []Architecture {
	return slices.Clone(architectures)
}
