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
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Masterminds/semver"
	"github.com/rs/zerolog"

	"github.com/zerobus/zerobus.go/pkg/ipc/attr"
	"github.com/zerobus/zerobus.go/pkg/ipc/sysid"
	"github.com/zerobus/zerobus.go/pkg/logging"
)

// openMode selects the create-or-open semantics of a resolve call.
type openMode int

const (
	openOrCreate openMode = iota
	openOnly
	createOnly
)

func (a openMode) String() string {
	switch a {
	case openOrCreate:
		return "open_or_create"
	case openOnly:
		return "open"
	case createOnly:
		return "create"
	default:
		return "unknown"
	}
}

// resolution outcome, used for logging
const (
	stateCreated = "created"
	stateOpened  = "opened"
)

// ServiceBuilder selects the messaging pattern for a named service.
type ServiceBuilder struct {
	node *Node
	name ServiceName
}

// PublishSubscribe continues with the publish-subscribe messaging pattern.
// td describes the payload layout of the service; it is stored at creation
// and structurally verified at every open.
func (a *ServiceBuilder) PublishSubscribe(td TypeDetails) *PubSubBuilder {
	return &PubSubBuilder{node: a.node, name: a.name, typeDetails: td}
}

// requirement bit flags - only explicitly requested fields participate in the
// open-time compatibility check
const (
	reqMaxPublishers = 1 << iota
	reqMaxSubscribers
	reqHistorySize
	reqSubscriberMaxBufferSize
	reqSubscriberMaxBorrowedSamples
	reqEnableSafeOverflow
)

// PubSubBuilder collects the requested configuration for opening or creating
// a publish-subscribe service. Unset fields fall back to the process-wide
// defaults on creation and impose no requirement on opening.
type PubSubBuilder struct {
	node        *Node
	name        ServiceName
	typeDetails TypeDetails

	requested uint32

	maxPublishers                uint64
	maxSubscribers               uint64
	historySize                  uint64
	subscriberMaxBufferSize      uint64
	subscriberMaxBorrowedSamples uint64
	enableSafeOverflow           bool

	attributes *attr.Set
	verifier   *attr.Verifier
}

// MaxPublishers requests the maximum number of publisher ports.
func (a *PubSubBuilder) MaxPublishers(n uint64) *PubSubBuilder {
	a.maxPublishers = n
	a.requested |= reqMaxPublishers
	return a
}

// MaxSubscribers requests the maximum number of subscriber ports.
func (a *PubSubBuilder) MaxSubscribers(n uint64) *PubSubBuilder {
	a.maxSubscribers = n
	a.requested |= reqMaxSubscribers
	return a
}

// HistorySize requests the history size. History size is structural : opening
// requires an exact match.
func (a *PubSubBuilder) HistorySize(n uint64) *PubSubBuilder {
	a.historySize = n
	a.requested |= reqHistorySize
	return a
}

// SubscriberMaxBufferSize requests the maximum subscriber buffer size.
func (a *PubSubBuilder) SubscriberMaxBufferSize(n uint64) *PubSubBuilder {
	a.subscriberMaxBufferSize = n
	a.requested |= reqSubscriberMaxBufferSize
	return a
}

// SubscriberMaxBorrowedSamples requests the maximum number of samples a
// subscriber can borrow in parallel.
func (a *PubSubBuilder) SubscriberMaxBorrowedSamples(n uint64) *PubSubBuilder {
	a.subscriberMaxBorrowedSamples = n
	a.requested |= reqSubscriberMaxBorrowedSamples
	return a
}

// EnableSafeOverflow requests the overflow policy. The policy is structural :
// opening requires an exact match.
func (a *PubSubBuilder) EnableSafeOverflow(enabled bool) *PubSubBuilder {
	a.enableSafeOverflow = enabled
	a.requested |= reqEnableSafeOverflow
	return a
}

// Attributes sets the attribute set stored with the service when this call
// creates it. Ignored when an existing service is opened.
func (a *PubSubBuilder) Attributes(set *attr.Set) *PubSubBuilder {
	a.attributes = set
	return a
}

// Verifier sets the attribute requirements evaluated against an existing
// service's stored attributes when this call opens it. Ignored when this call
// creates the service.
func (a *PubSubBuilder) Verifier(v *attr.Verifier) *PubSubBuilder {
	a.verifier = v
	return a
}

// OpenOrCreate opens the service if it exists and is compatible, and creates
// it otherwise.
func (a *PubSubBuilder) OpenOrCreate() (*Service, error) {
	return a.resolve(openOrCreate)
}

// Open opens an existing service.
//
// errors:
//   - ErrServiceNotFound
//   - ErrIncompatibleConfiguration / ErrIncompatibleAttributes / ErrIncompatibleVersion
func (a *PubSubBuilder) Open() (*Service, error) {
	return a.resolve(openOnly)
}

// Create creates the service.
//
// errors:
//   - ErrServiceAlreadyExists
func (a *PubSubBuilder) Create() (*Service, error) {
	return a.resolve(createOnly)
}

// resolve runs the discovery protocol : look up the record, create it when
// absent, otherwise validate compatibility and attach. A creation race that
// leaves neither a usable record nor a successful create is retried a bounded
// number of times.
func (a *PubSubBuilder) resolve(mode openMode) (*Service, error) {
	op := mode.String()
	if err := a.name.Valid(); err != nil {
		return nil, err
	}
	if mode != openOnly {
		if err := a.typeDetails.Valid(); err != nil {
			return nil, NewOpError(op, a.name, err)
		}
	}

	node := a.node
	retries := node.config.Global.CreateRaceRetries
	for attempt := 0; attempt <= retries; attempt++ {
		handle, err := node.storage.Lookup(a.name)
		if errors.Is(err, ErrServiceNotFound) {
			if mode == openOnly {
				return nil, NewOpError(op, a.name, ErrServiceNotFound)
			}
			spec, err := a.createSpec()
			if err != nil {
				return nil, err
			}
			handle, created, err := node.storage.CreateIfAbsent(a.name, spec)
			if errors.Is(err, ErrCreateRace) {
				node.logger.Debug().Str(logging.FUNC, "resolve").
					Str(logging.NAME, string(a.name)).
					Int("attempt", attempt).
					Msg("lost creation race, retrying lookup")
				continue
			}
			if err != nil {
				return nil, NewOpError(op, a.name, err)
			}
			if created {
				servicesCreatedCounter.Inc()
				return a.newService(handle, stateCreated), nil
			}
			// another process created it first - fall through to open it
			if svc, err := a.attach(mode, handle); err == nil || !errors.Is(err, ErrCreateRace) {
				return svc, err
			}
			continue
		}
		if err != nil {
			return nil, NewOpError(op, a.name, err)
		}
		if svc, err := a.attach(mode, handle); err == nil || !errors.Is(err, ErrCreateRace) {
			return svc, err
		}
	}
	return nil, NewOpError(op, a.name, ErrCreateRaceExhausted)
}

// attach validates an existing record against the builder's requirements and
// turns it into an opened Service.
func (a *PubSubBuilder) attach(mode openMode, handle StorageHandle) (*Service, error) {
	op := mode.String()
	if mode == createOnly {
		handle.Close()
		return nil, NewOpError(op, a.name, ErrServiceAlreadyExists)
	}
	if err := a.verifyOpen(handle); err != nil {
		handle.Close()
		return nil, err
	}
	servicesOpenedCounter.Inc()
	return a.newService(handle, stateOpened), nil
}

// createSpec assembles the record content for a creation attempt, stamping it
// with a fresh identity.
func (a *PubSubBuilder) createSpec() (CreateSpec, error) {
	uuid, err := a.node.generator.New()
	if err != nil {
		return CreateSpec{}, NewClockError(err)
	}
	static := newStaticConfigFromDefaults(a.node.config, a.typeDetails)
	if a.requested&reqMaxPublishers != 0 {
		static.maxPublishers = a.maxPublishers
	}
	if a.requested&reqMaxSubscribers != 0 {
		static.maxSubscribers = a.maxSubscribers
	}
	if a.requested&reqHistorySize != 0 {
		static.historySize = a.historySize
	}
	if a.requested&reqSubscriberMaxBufferSize != 0 {
		static.subscriberMaxBufferSize = a.subscriberMaxBufferSize
	}
	if a.requested&reqSubscriberMaxBorrowedSamples != 0 {
		static.subscriberMaxBorrowedSamples = a.subscriberMaxBorrowedSamples
	}
	if a.requested&reqEnableSafeOverflow != 0 {
		static.enableSafeOverflow = a.enableSafeOverflow
	}
	attributes := a.attributes
	if attributes == nil {
		attributes = attr.NewSet()
	}
	return CreateSpec{
		UUID:           uuid,
		LibraryVersion: Version,
		CreatorPID:     uuid.PID(),
		Static:         static,
		Attributes:     attributes,
	}, nil
}

// verifyOpen runs the three open-time checks : record version, static
// configuration compatibility, and attribute requirements. Each failure maps
// to its own inspectable error so callers can branch on the reason.
func (a *PubSubBuilder) verifyOpen(handle StorageHandle) error {
	if err := verifyRecordVersion(handle.LibraryVersion()); err != nil {
		openRejectionsCounter.WithLabelValues(rejectionVersion).Inc()
		return err
	}
	stored := handle.StaticConfig()
	if err := a.verifyCompatibility(stored); err != nil {
		openRejectionsCounter.WithLabelValues(rejectionConfiguration).Inc()
		return err
	}
	if a.verifier != nil {
		if err := a.verifier.Verify(handle.Attributes()); err != nil {
			openRejectionsCounter.WithLabelValues(rejectionAttributes).Inc()
			return NewIncompatibleAttributesError(err.Error())
		}
	}
	return nil
}

// verifyCompatibility applies the static compatibility rule : requested
// capacity fields must not exceed the stored values, structural fields must
// match exactly, and the type details must match structurally.
func (a *PubSubBuilder) verifyCompatibility(stored StaticConfig) error {
	if field, storedValue, requested := stored.typeDetails.mismatch(a.typeDetails); field != "" {
		return NewIncompatibleConfigurationError(field, requested, storedValue)
	}
	if a.requested&reqMaxPublishers != 0 && a.maxPublishers > stored.maxPublishers {
		return NewIncompatibleConfigurationError("max_publishers",
			fmt.Sprint(a.maxPublishers), fmt.Sprint(stored.maxPublishers))
	}
	if a.requested&reqMaxSubscribers != 0 && a.maxSubscribers > stored.maxSubscribers {
		return NewIncompatibleConfigurationError("max_subscribers",
			fmt.Sprint(a.maxSubscribers), fmt.Sprint(stored.maxSubscribers))
	}
	if a.requested&reqSubscriberMaxBufferSize != 0 && a.subscriberMaxBufferSize > stored.subscriberMaxBufferSize {
		return NewIncompatibleConfigurationError("subscriber_max_buffer_size",
			fmt.Sprint(a.subscriberMaxBufferSize), fmt.Sprint(stored.subscriberMaxBufferSize))
	}
	if a.requested&reqSubscriberMaxBorrowedSamples != 0 && a.subscriberMaxBorrowedSamples > stored.subscriberMaxBorrowedSamples {
		return NewIncompatibleConfigurationError("subscriber_max_borrowed_samples",
			fmt.Sprint(a.subscriberMaxBorrowedSamples), fmt.Sprint(stored.subscriberMaxBorrowedSamples))
	}
	if a.requested&reqHistorySize != 0 && a.historySize != stored.historySize {
		return NewIncompatibleConfigurationError("history_size",
			fmt.Sprint(a.historySize), fmt.Sprint(stored.historySize))
	}
	if a.requested&reqEnableSafeOverflow != 0 && a.enableSafeOverflow != stored.enableSafeOverflow {
		return NewIncompatibleConfigurationError("enable_safe_overflow",
			fmt.Sprint(a.enableSafeOverflow), fmt.Sprint(stored.enableSafeOverflow))
	}
	return nil
}

func (a *PubSubBuilder) newService(handle StorageHandle, state string) *Service {
	node := a.node
	svc := &Service{
		node:       node,
		name:       a.name,
		uuid:       handle.UUID(),
		handle:     handle,
		static:     handle.StaticConfig(),
		attributes: handle.Attributes(),
		registry:   handle.DynamicConfig(),
	}
	svc.logger = node.logger.With().
		Str(logging.SERVICE, string(a.name)).
		Str(logging.ID, svc.uuid.String()).
		Logger()
	svc.logger.Info().Str(logging.STATE, state).Msg("service resolved")
	return svc
}

// currentVersion is parsed once; Version is a build-time constant.
var currentVersion = semver.MustParse(Version)

// verifyRecordVersion rejects records written by a library version whose
// layout this version cannot safely read : a different major version, or a
// different minor version while the major version is 0.
func verifyRecordVersion(written string) error {
	writtenVersion, err := semver.NewVersion(written)
	if err != nil {
		return NewIncompatibleVersionError(written, Version)
	}
	if writtenVersion.Major() != currentVersion.Major() {
		return NewIncompatibleVersionError(written, Version)
	}
	if currentVersion.Major() == 0 && writtenVersion.Minor() != currentVersion.Minor() {
		return NewIncompatibleVersionError(written, Version)
	}
	return nil
}

// Service is an attached handle to a resolved service. It owns a reference to
// the shared static and dynamic state and is the only way to derive port
// factories. Closing it detaches this process; the shared record persists for
// other attached processes.
type Service struct {
	node       *Node
	name       ServiceName
	uuid       sysid.UniqueSystemID
	handle     StorageHandle
	static     StaticConfig
	attributes *attr.Set
	registry   PortRegistry
	logger     zerolog.Logger

	closed uint32
}

// Name returns the service name.
func (a *Service) Name() ServiceName {
	return a.name
}

// UUID returns the unique id stamped on the service at creation.
func (a *Service) UUID() sysid.UniqueSystemID {
	return a.uuid
}

// StaticConfig returns the immutable shape of the service.
func (a *Service) StaticConfig() StaticConfig {
	return a.static
}

// DynamicConfig returns the live participant counts.
func (a *Service) DynamicConfig() DynamicConfig {
	return a.registry
}

// Attributes returns the read-only attribute set stored with the service.
func (a *Service) Attributes() *attr.Set {
	return a.attributes
}

// PortFactory returns the factory that mints publisher and subscriber ports
// for this service.
func (a *Service) PortFactory() *PortFactory {
	return &PortFactory{service: a}
}

// Close detaches from the service. Ports created from this service must be
// closed first; Close does not release their slots.
func (a *Service) Close() error {
	if !atomic.CompareAndSwapUint32(&a.closed, 0, 1) {
		return nil
	}
	a.logger.Debug().Msg("service detached")
	return a.handle.Close()
}

func (a *Service) isClosed() bool {
	return atomic.LoadUint32(&a.closed) != 0
}
