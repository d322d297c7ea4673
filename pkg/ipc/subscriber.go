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
	"fmt"
	"sync/atomic"

	"github.com/zerobus/zerobus.go/pkg/ipc/sysid"
	"github.com/zerobus/zerobus.go/pkg/logging"
)

// SubscriberBuilder configures a new subscriber port.
type SubscriberBuilder struct {
	factory    *PortFactory
	bufferSize uint64
}

// BufferSize sets the subscriber's delivery buffer size. It must not exceed
// the service's SubscriberMaxBufferSize.
func (a *SubscriberBuilder) BufferSize(n uint64) *SubscriberBuilder {
	a.bufferSize = n
	return a
}

// Create mints the subscriber port. It claims a slot in the shared subscriber
// arena; the port's Close releases it.
//
// errors:
//   - ErrServiceClosed
//   - ErrIncompatibleConfiguration - buffer size exceeds the service maximum
//   - ErrExceedsMaxPorts
func (a *SubscriberBuilder) Create() (*Subscriber, error) {
	service := a.factory.service
	if service.isClosed() {
		return nil, NewOpError("create subscriber", service.name, ErrServiceClosed)
	}
	if a.bufferSize > service.static.subscriberMaxBufferSize {
		return nil, NewIncompatibleConfigurationError("subscriber_buffer_size",
			fmt.Sprint(a.bufferSize), fmt.Sprint(service.static.subscriberMaxBufferSize))
	}
	id, err := service.node.generator.New()
	if err != nil {
		return nil, NewClockError(err)
	}
	slot, ok := service.registry.ClaimSubscriberSlot(portTag(id))
	if !ok {
		return nil, NewExceedsMaxPortsError(PortSubscriber, service.static.maxSubscribers)
	}
	portsCreatedCounter.WithLabelValues(PortSubscriber.String()).Inc()
	portsLiveGauge.WithLabelValues(PortSubscriber.String()).Inc()
	service.logger.Debug().
		Str(logging.PORT, PortSubscriber.String()).
		Str(logging.ID, id.String()).
		Int("slot", slot).
		Msg("port created")
	return &Subscriber{
		service:    service,
		id:         id,
		slot:       slot,
		bufferSize: a.bufferSize,
	}, nil
}

// Subscriber is a subscriber endpoint of a service. It occupies one
// subscriber slot of the service until closed.
type Subscriber struct {
	service    *Service
	id         sysid.UniqueSystemID
	slot       int
	bufferSize uint64

	closed uint32
}

// ID returns the port's unique id.
func (a *Subscriber) ID() sysid.UniqueSystemID {
	return a.id
}

// BufferSize returns the subscriber's delivery buffer size.
func (a *Subscriber) BufferSize() uint64 {
	return a.bufferSize
}

// Close releases the port's slot. Close is idempotent.
func (a *Subscriber) Close() {
	if !atomic.CompareAndSwapUint32(&a.closed, 0, 1) {
		return
	}
	a.service.registry.ReleaseSubscriberSlot(a.slot)
	portsLiveGauge.WithLabelValues(PortSubscriber.String()).Dec()
}
