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

// StaticConfig is the immutable shape of a publish-subscribe service. It is
// derived from the process-wide Config defaults by whichever process wins the
// creation race and is read-only for the lifetime of the service - openers
// only ever validate against it. StaticConfig is a value type; copies are
// independent and the shared record is never mutated through one.
type StaticConfig struct {
	maxPublishers                uint64
	maxSubscribers               uint64
	historySize                  uint64
	subscriberMaxBufferSize      uint64
	subscriberMaxBorrowedSamples uint64
	enableSafeOverflow           bool
	typeDetails                  TypeDetails
}

// StaticConfigParams is the plain-field form of a StaticConfig. It exists so
// that storage implementations can reconstruct a StaticConfig they decoded
// from a record.
type StaticConfigParams struct {
	MaxPublishers                uint64
	MaxSubscribers               uint64
	HistorySize                  uint64
	SubscriberMaxBufferSize      uint64
	SubscriberMaxBorrowedSamples uint64
	EnableSafeOverflow           bool
	TypeDetails                  TypeDetails
}

// NewStaticConfig freezes params into a StaticConfig.
func NewStaticConfig(params StaticConfigParams) StaticConfig {
	return StaticConfig{
		maxPublishers:                params.MaxPublishers,
		maxSubscribers:               params.MaxSubscribers,
		historySize:                  params.HistorySize,
		subscriberMaxBufferSize:      params.SubscriberMaxBufferSize,
		subscriberMaxBorrowedSamples: params.SubscriberMaxBorrowedSamples,
		enableSafeOverflow:           params.EnableSafeOverflow,
		typeDetails:                  params.TypeDetails,
	}
}

// newStaticConfigFromDefaults builds the creation-time StaticConfig from the
// process-wide defaults; the caller's typed binding supplies the TypeDetails.
func newStaticConfigFromDefaults(config *Config, td TypeDetails) StaticConfig {
	defaults := config.Defaults.PublishSubscribe
	return StaticConfig{
		maxPublishers:                defaults.MaxPublishers,
		maxSubscribers:               defaults.MaxSubscribers,
		historySize:                  defaults.PublisherHistorySize,
		subscriberMaxBufferSize:      defaults.SubscriberMaxBufferSize,
		subscriberMaxBorrowedSamples: defaults.SubscriberMaxBorrowedSamples,
		enableSafeOverflow:           defaults.EnableSafeOverflow,
		typeDetails:                  td,
	}
}

// Params returns the plain-field form of the config.
func (a StaticConfig) Params() StaticConfigParams {
	return StaticConfigParams{
		MaxPublishers:                a.maxPublishers,
		MaxSubscribers:               a.maxSubscribers,
		HistorySize:                  a.historySize,
		SubscriberMaxBufferSize:      a.subscriberMaxBufferSize,
		SubscriberMaxBorrowedSamples: a.subscriberMaxBorrowedSamples,
		EnableSafeOverflow:           a.enableSafeOverflow,
		TypeDetails:                  a.typeDetails,
	}
}

// MaxSupportedPublishers returns the maximum supported amount of publisher ports.
func (a StaticConfig) MaxSupportedPublishers() uint64 {
	return a.maxPublishers
}

// MaxSupportedSubscribers returns the maximum supported amount of subscriber ports.
func (a StaticConfig) MaxSupportedSubscribers() uint64 {
	return a.maxSubscribers
}

// HistorySize returns the number of past samples a late-joining subscriber can request.
func (a StaticConfig) HistorySize() uint64 {
	return a.historySize
}

// SubscriberMaxBufferSize returns the maximum supported buffer size for a subscriber port.
func (a StaticConfig) SubscriberMaxBufferSize() uint64 {
	return a.subscriberMaxBufferSize
}

// SubscriberMaxBorrowedSamples returns how many samples a subscriber port can
// borrow in parallel at most.
func (a StaticConfig) SubscriberMaxBorrowedSamples() uint64 {
	return a.subscriberMaxBorrowedSamples
}

// HasSafeOverflow returns true if the service safely overflows, i.e. a
// publisher recycles the oldest sample of a full subscriber buffer instead of
// rejecting new data.
func (a StaticConfig) HasSafeOverflow() bool {
	return a.enableSafeOverflow
}

// TypeDetails returns the payload and header layout of the service.
func (a StaticConfig) TypeDetails() TypeDetails {
	return a.typeDetails
}
