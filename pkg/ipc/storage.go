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

package ipc

import (
	"github.com/zerobus/zerobus.go/pkg/ipc/attr"
	"github.com/zerobus/zerobus.go/pkg/ipc/sysid"
)

// DynamicConfig is the live, read-only view of a service's participants.
// The counts are mutated by port creation and destruction in any attached
// process; reads race with those mutations by design.
type DynamicConfig interface {
	// NumberOfPublishers returns the number of currently attached publisher ports.
	NumberOfPublishers() uint64
	// NumberOfSubscribers returns the number of currently attached subscriber ports.
	NumberOfSubscribers() uint64
}

// PortRegistry extends DynamicConfig with the slot operations the port
// factory uses to claim and release participant slots. Slots are a
// fixed-capacity arena sized at service creation; a claim atomically takes a
// free slot or fails when the arena is full.
type PortRegistry interface {
	DynamicConfig

	// ClaimPublisherSlot atomically claims a free publisher slot and tags it.
	// tag must be non-zero. ok is false when all slots are occupied.
	ClaimPublisherSlot(tag uint64) (index int, ok bool)
	// ReleasePublisherSlot frees a previously claimed slot.
	ReleasePublisherSlot(index int)

	// ClaimSubscriberSlot atomically claims a free subscriber slot and tags it.
	// tag must be non-zero. ok is false when all slots are occupied.
	ClaimSubscriberSlot(tag uint64) (index int, ok bool)
	// ReleaseSubscriberSlot frees a previously claimed slot.
	ReleaseSubscriberSlot(index int)
}

// CreateSpec carries everything a Storage writes into a new discovery record.
// All of it is immutable once the record is published.
type CreateSpec struct {
	UUID           sysid.UniqueSystemID
	LibraryVersion string
	CreatorPID     uint32
	Static         StaticConfig
	Attributes     *attr.Set
}

// StorageHandle is an attached view of one discovery record. The static
// parts (uuid, static config, attributes) are immutable; DynamicConfig is
// live shared state. Closing the handle detaches this process without
// destroying the record.
type StorageHandle interface {
	Name() ServiceName
	UUID() sysid.UniqueSystemID
	LibraryVersion() string
	CreatorPID() uint32
	StaticConfig() StaticConfig
	Attributes() *attr.Set
	DynamicConfig() PortRegistry
	Close() error
}

// Storage is the discovery storage collaborator : a name-keyed map of
// discovery records shared by every process on the system. CreateIfAbsent is
// the atomic create-race primitive - for a given name at most one caller
// across all processes observes created == true.
type Storage interface {
	// Lookup attaches to the record for name.
	//
	// errors:
	//   - ErrServiceNotFound
	Lookup(name ServiceName) (StorageHandle, error)

	// CreateIfAbsent attaches to the record for name, creating it from spec
	// if it does not exist. created reports whether this call performed the
	// creation.
	//
	// errors:
	//   - ErrCreateRace - the record appeared and vanished during the call; retry
	//   - ErrAttributesTooLarge
	CreateIfAbsent(name ServiceName, spec CreateSpec) (handle StorageHandle, created bool, err error)

	// Remove destroys the record for name. Attached processes keep their
	// mapped views until they close their handles.
	//
	// errors:
	//   - ErrServiceNotFound
	Remove(name ServiceName) error

	// List returns the names of all records.
	List() ([]ServiceName, error)
}
