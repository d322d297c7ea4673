// Copyright (c) 2026 The zerobus Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sysid generates identifiers that are unique across all processes on
// the current system. An id combines the generating process id, the clock
// reading at creation, and a process-wide counter. No other live process can
// hold the same id; a terminated process id may be reused within the same
// clock second, which is acceptable for discovery records that outlive their
// creator only until cleanup.
package sysid

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrClockUnavailable signals that the clock could not produce a usable reading.
var ErrClockUnavailable = errors.New("clock reading is unavailable")

// Value is the 128-bit form of a UniqueSystemID.
// Byte layout is big-endian: pid | seconds | nanoseconds | counter.
type Value [16]byte

func (a Value) String() string {
	return hex.EncodeToString(a[:])
}

// UniqueSystemID is a system wide unique id. It is a plain value - comparable,
// copyable, and freely shareable between goroutines.
type UniqueSystemID struct {
	pid         uint32
	seconds     uint32
	nanoseconds uint32
	counter     uint32
}

// FromValue reconstructs the id from its 128-bit form.
// FromValue(id.Value()) == id for every id.
func FromValue(v Value) UniqueSystemID {
	return UniqueSystemID{
		pid:         binary.BigEndian.Uint32(v[0:4]),
		seconds:     binary.BigEndian.Uint32(v[4:8]),
		nanoseconds: binary.BigEndian.Uint32(v[8:12]),
		counter:     binary.BigEndian.Uint32(v[12:16]),
	}
}

// Value packs the id into its 128-bit form.
func (a UniqueSystemID) Value() Value {
	var v Value
	binary.BigEndian.PutUint32(v[0:4], a.pid)
	binary.BigEndian.PutUint32(v[4:8], a.seconds)
	binary.BigEndian.PutUint32(v[8:12], a.nanoseconds)
	binary.BigEndian.PutUint32(v[12:16], a.counter)
	return v
}

// PID returns the id of the process that generated the id.
func (a UniqueSystemID) PID() uint32 {
	return a.pid
}

// CreationTime returns the clock reading captured when the id was generated.
func (a UniqueSystemID) CreationTime() (seconds uint32, nanoseconds uint32) {
	return a.seconds, a.nanoseconds
}

// Counter returns the process-wide counter value captured when the id was generated.
func (a UniqueSystemID) Counter() uint32 {
	return a.counter
}

func (a UniqueSystemID) String() string {
	return a.Value().String()
}

// Generator produces UniqueSystemID values. The zero Generator is not usable -
// use NewGenerator, or the package level New() which is backed by a shared
// process-wide Generator.
//
// The counter is the only mutable state. It is incremented with a relaxed
// atomic add - ordering between concurrent generations is irrelevant, only
// that no two observe the same counter value.
type Generator struct {
	counter uint32
	pid     uint32
	clock   clock.Clock
}

// NewGenerator creates a Generator backed by the supplied clock.
// A nil clock means the system clock.
func NewGenerator(c clock.Clock) *Generator {
	if c == nil {
		c = clock.New()
	}
	return &Generator{pid: uint32(os.Getpid()), clock: c}
}

// New generates the next UniqueSystemID.
//
// errors:
//   - ErrClockUnavailable
func (a *Generator) New() (UniqueSystemID, error) {
	now := a.clock.Now()
	if now.IsZero() {
		return UniqueSystemID{}, ErrClockUnavailable
	}
	return UniqueSystemID{
		pid:         a.pid,
		seconds:     uint32(now.Unix()),
		nanoseconds: uint32(now.Nanosecond()),
		counter:     atomic.AddUint32(&a.counter, 1) - 1,
	}, nil
}

// CreationTimeOf converts an id's clock reading into a time.Time.
func CreationTimeOf(id UniqueSystemID) time.Time {
	sec, nsec := id.CreationTime()
	return time.Unix(int64(sec), int64(nsec))
}

// defaultGenerator is the process-wide generator. It is initialized once at
// process start and its counter is never reset.
var defaultGenerator = NewGenerator(nil)

// New generates the next UniqueSystemID using the process-wide Generator.
//
// errors:
//   - ErrClockUnavailable
func New() (UniqueSystemID, error) {
	return defaultGenerator.New()
}
