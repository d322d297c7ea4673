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

// PortFactory mints publisher and subscriber ports for one resolved service.
// It is the only way to obtain ports. All accessors are pure reads.
type PortFactory struct {
	service *Service
}

// Name returns the service name.
func (a *PortFactory) Name() ServiceName {
	return a.service.name
}

// UUID returns the service's unique id.
func (a *PortFactory) UUID() sysid.UniqueSystemID {
	return a.service.uuid
}

// StaticConfig returns the immutable shape of the service.
func (a *PortFactory) StaticConfig() StaticConfig {
	return a.service.static
}

// DynamicConfig returns the live participant counts.
func (a *PortFactory) DynamicConfig() DynamicConfig {
	return a.service.registry
}

// Attributes returns the read-only attribute set stored with the service.
func (a *PortFactory) Attributes() *attr.Set {
	return a.service.attributes
}

// Publisher starts a publisher builder initialized from the process-wide
// defaults.
func (a *PortFactory) Publisher() *PublisherBuilder {
	defaults := a.service.node.config.Defaults.PublishSubscribe
	return &PublisherBuilder{
		factory:          a,
		maxLoanedSamples: defaults.PublisherMaxLoanedSamples,
		strategy:         defaults.UnableToDeliverStrategy,
	}
}

// Subscriber starts a subscriber builder. The buffer size defaults to the
// service's configured maximum.
func (a *PortFactory) Subscriber() *SubscriberBuilder {
	return &SubscriberBuilder{
		factory:    a,
		bufferSize: a.service.static.subscriberMaxBufferSize,
	}
}

// portTag builds the non-zero slot tag identifying a port in the shared slot
// arena. The generating pid is never zero, so the tag cannot be zero.
func portTag(id sysid.UniqueSystemID) uint64 {
	return uint64(id.PID())<<32 | uint64(id.Counter())
}
