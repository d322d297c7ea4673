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
	"sync/atomic"

	"github.com/zerobus/zerobus.go/pkg/ipc/sysid"
	"github.com/zerobus/zerobus.go/pkg/logging"
)

// PublisherBuilder configures a new publisher port.
type PublisherBuilder struct {
	factory          *PortFactory
	maxLoanedSamples uint64
	strategy         UnableToDeliverStrategy
}

// MaxLoanedSamples sets how many samples the publisher can loan in parallel.
func (a *PublisherBuilder) MaxLoanedSamples(n uint64) *PublisherBuilder {
	a.maxLoanedSamples = n
	return a
}

// UnableToDeliverStrategy sets the publisher's behavior when a subscriber
// buffer is full and the service does not safely overflow.
func (a *PublisherBuilder) UnableToDeliverStrategy(s UnableToDeliverStrategy) *PublisherBuilder {
	a.strategy = s
	return a
}

// Create mints the publisher port. It claims a slot in the shared publisher
// arena; the port's Close releases it.
//
// errors:
//   - ErrServiceClosed
//   - ErrExceedsMaxPorts
func (a *PublisherBuilder) Create() (*Publisher, error) {
	service := a.factory.service
	if service.isClosed() {
		return nil, NewOpError("create publisher", service.name, ErrServiceClosed)
	}
	id, err := service.node.generator.New()
	if err != nil {
		return nil, NewClockError(err)
	}
	slot, ok := service.registry.ClaimPublisherSlot(portTag(id))
	if !ok {
		return nil, NewExceedsMaxPortsError(PortPublisher, service.static.maxPublishers)
	}
	portsCreatedCounter.WithLabelValues(PortPublisher.String()).Inc()
	portsLiveGauge.WithLabelValues(PortPublisher.String()).Inc()
	service.logger.Debug().
		Str(logging.PORT, PortPublisher.String()).
		Str(logging.ID, id.String()).
		Int("slot", slot).
		Msg("port created")
	return &Publisher{
		service:          service,
		id:               id,
		slot:             slot,
		maxLoanedSamples: a.maxLoanedSamples,
		strategy:         a.strategy,
	}, nil
}

// Publisher is a publisher endpoint of a service. It occupies one publisher
// slot of the service until closed.
type Publisher struct {
	service          *Service
	id               sysid.UniqueSystemID
	slot             int
	maxLoanedSamples uint64
	strategy         UnableToDeliverStrategy

	closed uint32
}

// ID returns the port's unique id.
func (a *Publisher) ID() sysid.UniqueSystemID {
	return a.id
}

// MaxLoanedSamples returns how many samples the publisher can loan in parallel.
func (a *Publisher) MaxLoanedSamples() uint64 {
	return a.maxLoanedSamples
}

// UnableToDeliverStrategy returns the configured delivery strategy.
func (a *Publisher) UnableToDeliverStrategy() UnableToDeliverStrategy {
	return a.strategy
}

// Close releases the port's slot. Close is idempotent.
func (a *Publisher) Close() {
	if !atomic.CompareAndSwapUint32(&a.closed, 0, 1) {
		return
	}
	a.service.registry.ReleasePublisherSlot(a.slot)
	portsLiveGauge.WithLabelValues(PortPublisher.String()).Dec()
}
