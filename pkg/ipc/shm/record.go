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

package shm

import (
	"bytes"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/zerobus/zerobus.go/pkg/ipc"
	"github.com/zerobus/zerobus.go/pkg/ipc/attr"
	"github.com/zerobus/zerobus.go/pkg/ipc/sysid"
)

// recordLayoutVersion is bumped whenever the byte layout below changes.
// Records with a different layout version are never attached.
const recordLayoutVersion = 1

var recordMagic = [8]byte{'Z', 'B', 'U', 'S', 'S', 'V', 'C', 0}

// Record byte layout. The header and static block are written by the creating
// process before the ready flag is set and are immutable afterwards; only the
// ready flag and the slot arenas are ever touched with atomics. All integers
// are native-endian, read and written through the mapped view.
const (
	offMagic         = 0x00 // [8]byte
	offLayoutVersion = 0x08 // uint32
	offReady         = 0x0C // uint32, atomic : 0 while under construction, 1 once published
	offCreatorPID    = 0x10 // uint32
	offTotalSize     = 0x18 // uint64
	offUUID          = 0x20 // [16]byte
	offAttrOff       = 0x30 // uint64
	offAttrCap       = 0x38 // uint64
	offAttrLen       = 0x40 // uint64
	offPubSlots      = 0x48 // uint64
	offSubSlots      = 0x50 // uint64
	offLibVersion    = 0x58 // [24]byte, NUL padded
	offNameLen       = 0x70 // uint32
	offName          = 0x78 // [128]byte
	// header reserved up to 0x100

	offMaxPublishers           = 0x100 // uint64
	offMaxSubscribers          = 0x108 // uint64
	offHistorySize             = 0x110 // uint64
	offSubscriberMaxBufferSize = 0x118 // uint64
	offSubscriberMaxBorrowed   = 0x120 // uint64
	offEnableSafeOverflow      = 0x128 // uint32
	offTypeVariant             = 0x12C // uint32
	offPayloadSize             = 0x130 // uint64
	offPayloadAlignment        = 0x138 // uint64
	offHeaderSize              = 0x140 // uint64
	offHeaderAlignment         = 0x148 // uint64
	offPayloadTypeName         = 0x150 // [128]byte
	offHeaderTypeName          = 0x1D0 // [128]byte
	// static block reserved up to attrRegionOff

	attrRegionOff = 0x280
	attrRegionCap = 4096

	pubSlotsOff = attrRegionOff + attrRegionCap // 64-byte aligned

	libVersionLen = 24
	nameCap       = 128
	typeNameCap   = 128
)

// recordSize returns the total record size for the given slot arena capacities.
func recordSize(maxPublishers, maxSubscribers uint64) uint64 {
	subSlotsOff := align64(pubSlotsOff + maxPublishers*8)
	return subSlotsOff + maxSubscribers*8
}

func align64(n uint64) uint64 {
	return (n + 63) &^ 63
}

// record is a mapped view of one discovery record. It implements both
// ipc.StorageHandle and ipc.PortRegistry : the static fields are decoded
// once at attach time, the slot arenas are read and written in place.
type record struct {
	name ipc.ServiceName
	path string
	file *os.File
	data []byte

	closed uint32
}

func (a *record) u32(off uintptr) *uint32 {
	return (*uint32)(unsafe.Pointer(&a.data[off]))
}

func (a *record) u64(off uintptr) *uint64 {
	return (*uint64)(unsafe.Pointer(&a.data[off]))
}

func (a *record) region(off, n uint64) []byte {
	return a.data[off : off+n]
}

func (a *record) slots(off uint64, n uint64) []uint64 {
	return unsafe.Slice((*uint64)(unsafe.Pointer(&a.data[off])), n)
}

// initialize writes the full record contents for spec. The caller must have
// created the backing file exclusively and sized it to recordSize. The ready
// flag stays 0; publish() flips it once everything else is in place.
func (a *record) initialize(name ipc.ServiceName, spec ipc.CreateSpec, attributes []byte) error {
	if len(attributes) > attrRegionCap {
		return fmt.Errorf("attributes encode to %d bytes, capacity is %d : %w",
			len(attributes), attrRegionCap, ipc.ErrAttributesTooLarge)
	}
	if len(spec.LibraryVersion) >= libVersionLen {
		return fmt.Errorf("library version %q exceeds %d bytes", spec.LibraryVersion, libVersionLen-1)
	}
	params := spec.Static.Params()

	copy(a.region(offMagic, 8), recordMagic[:])
	*a.u32(offLayoutVersion) = recordLayoutVersion
	*a.u32(offCreatorPID) = spec.CreatorPID
	*a.u64(offTotalSize) = recordSize(params.MaxPublishers, params.MaxSubscribers)
	uuid := spec.UUID.Value()
	copy(a.region(offUUID, 16), uuid[:])
	*a.u64(offAttrOff) = attrRegionOff
	*a.u64(offAttrCap) = attrRegionCap
	*a.u64(offAttrLen) = uint64(len(attributes))
	copy(a.region(attrRegionOff, uint64(len(attributes))), attributes)
	*a.u64(offPubSlots) = pubSlotsOff
	*a.u64(offSubSlots) = align64(pubSlotsOff + params.MaxPublishers*8)
	copy(a.region(offLibVersion, libVersionLen), spec.LibraryVersion)
	*a.u32(offNameLen) = uint32(len(name))
	copy(a.region(offName, nameCap), name)

	*a.u64(offMaxPublishers) = params.MaxPublishers
	*a.u64(offMaxSubscribers) = params.MaxSubscribers
	*a.u64(offHistorySize) = params.HistorySize
	*a.u64(offSubscriberMaxBufferSize) = params.SubscriberMaxBufferSize
	*a.u64(offSubscriberMaxBorrowed) = params.SubscriberMaxBorrowedSamples
	if params.EnableSafeOverflow {
		*a.u32(offEnableSafeOverflow) = 1
	}
	td := params.TypeDetails
	*a.u32(offTypeVariant) = uint32(td.Variant)
	*a.u64(offPayloadSize) = td.PayloadSize
	*a.u64(offPayloadAlignment) = td.PayloadAlignment
	*a.u64(offHeaderSize) = td.HeaderSize
	*a.u64(offHeaderAlignment) = td.HeaderAlignment
	copy(a.region(offPayloadTypeName, typeNameCap), td.PayloadTypeName)
	copy(a.region(offHeaderTypeName, typeNameCap), td.HeaderTypeName)
	return nil
}

// publish makes the record visible to attaching processes. Everything written
// by initialize happens-before the flag store.
func (a *record) publish() {
	atomic.StoreUint32(a.u32(offReady), 1)
}

func (a *record) isReady() bool {
	return atomic.LoadUint32(a.u32(offReady)) == 1
}

// validate checks magic and layout version of an attached record.
func (a *record) validate() error {
	if !bytes.Equal(a.region(offMagic, 8), recordMagic[:]) {
		return fmt.Errorf("%s is not a discovery record", a.path)
	}
	if v := *a.u32(offLayoutVersion); v != recordLayoutVersion {
		return fmt.Errorf("%s has record layout version %d, expected %d", a.path, v, recordLayoutVersion)
	}
	return nil
}

func (a *record) storedName() ipc.ServiceName {
	n := *a.u32(offNameLen)
	if n > nameCap {
		n = nameCap
	}
	return ipc.ServiceName(a.region(offName, uint64(n)))
}

// Name returns the service name.
func (a *record) Name() ipc.ServiceName {
	return a.name
}

// UUID returns the service's unique id.
func (a *record) UUID() sysid.UniqueSystemID {
	var v sysid.Value
	copy(v[:], a.region(offUUID, 16))
	return sysid.FromValue(v)
}

// LibraryVersion returns the library version the creator stamped into the record.
func (a *record) LibraryVersion() string {
	raw := a.region(offLibVersion, libVersionLen)
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}

// CreatorPID returns the id of the process that created the record.
func (a *record) CreatorPID() uint32 {
	return *a.u32(offCreatorPID)
}

// StaticConfig decodes the immutable service shape from the record.
func (a *record) StaticConfig() ipc.StaticConfig {
	return ipc.NewStaticConfig(ipc.StaticConfigParams{
		MaxPublishers:                *a.u64(offMaxPublishers),
		MaxSubscribers:               *a.u64(offMaxSubscribers),
		HistorySize:                  *a.u64(offHistorySize),
		SubscriberMaxBufferSize:      *a.u64(offSubscriberMaxBufferSize),
		SubscriberMaxBorrowedSamples: *a.u64(offSubscriberMaxBorrowed),
		EnableSafeOverflow:           *a.u32(offEnableSafeOverflow) == 1,
		TypeDetails: ipc.TypeDetails{
			Variant:          ipc.TypeVariant(*a.u32(offTypeVariant)),
			HeaderTypeName:   trimName(a.region(offHeaderTypeName, typeNameCap)),
			HeaderSize:       *a.u64(offHeaderSize),
			HeaderAlignment:  *a.u64(offHeaderAlignment),
			PayloadTypeName:  trimName(a.region(offPayloadTypeName, typeNameCap)),
			PayloadSize:      *a.u64(offPayloadSize),
			PayloadAlignment: *a.u64(offPayloadAlignment),
		},
	})
}

func trimName(raw []byte) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}

// Attributes decodes the attribute set stored with the record.
func (a *record) Attributes() *attr.Set {
	set := attr.NewSet()
	n := *a.u64(offAttrLen)
	if n == 0 {
		return set
	}
	if err := set.UnmarshalBinary(a.region(*a.u64(offAttrOff), n)); err != nil {
		// immutable region written before publish; cannot fail unless the
		// record is corrupt, in which case an empty set is the safe answer
		return attr.NewSet()
	}
	return set
}

// DynamicConfig returns the record's live slot arenas.
func (a *record) DynamicConfig() ipc.PortRegistry {
	return a
}

// Close unmaps the record's view and closes the backing file.
func (a *record) Close() error {
	if !atomic.CompareAndSwapUint32(&a.closed, 0, 1) {
		return nil
	}
	err := munmapFile(a.data)
	a.data = nil
	if cerr := a.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *record) pubSlots() []uint64 {
	return a.slots(*a.u64(offPubSlots), *a.u64(offMaxPublishers))
}

func (a *record) subSlots() []uint64 {
	return a.slots(*a.u64(offSubSlots), *a.u64(offMaxSubscribers))
}

// NumberOfPublishers returns the number of currently attached publisher ports.
func (a *record) NumberOfPublishers() uint64 {
	return countOccupied(a.pubSlots())
}

// NumberOfSubscribers returns the number of currently attached subscriber ports.
func (a *record) NumberOfSubscribers() uint64 {
	return countOccupied(a.subSlots())
}

// ClaimPublisherSlot atomically claims a free publisher slot and tags it.
func (a *record) ClaimPublisherSlot(tag uint64) (int, bool) {
	return claimSlot(a.pubSlots(), tag)
}

// ReleasePublisherSlot frees a previously claimed slot.
func (a *record) ReleasePublisherSlot(index int) {
	atomic.StoreUint64(&a.pubSlots()[index], 0)
}

// ClaimSubscriberSlot atomically claims a free subscriber slot and tags it.
func (a *record) ClaimSubscriberSlot(tag uint64) (int, bool) {
	return claimSlot(a.subSlots(), tag)
}

// ReleaseSubscriberSlot frees a previously claimed slot.
func (a *record) ReleaseSubscriberSlot(index int) {
	atomic.StoreUint64(&a.subSlots()[index], 0)
}

func countOccupied(slots []uint64) uint64 {
	var n uint64
	for i := range slots {
		if atomic.LoadUint64(&slots[i]) != 0 {
			n++
		}
	}
	return n
}

func claimSlot(slots []uint64, tag uint64) (int, bool) {
	for i := range slots {
		if atomic.CompareAndSwapUint64(&slots[i], 0, tag) {
			return i, true
		}
	}
	return 0, false
}
