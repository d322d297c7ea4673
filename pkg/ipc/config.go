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
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// UnableToDeliverStrategy is a publisher's behavior when a subscriber buffer
// is full and safe overflow is disabled.
type UnableToDeliverStrategy uint8

// UnableToDeliverStrategy values
const (
	// Block waits until the subscriber has consumed a sample.
	Block UnableToDeliverStrategy = iota
	// DiscardSample drops the sample that cannot be delivered.
	DiscardSample
)

func (a UnableToDeliverStrategy) String() string {
	switch a {
	case Block:
		return "block"
	case DiscardSample:
		return "discard_sample"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (a UnableToDeliverStrategy) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *UnableToDeliverStrategy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "block":
		*a = Block
	case "discard_sample":
		*a = DiscardSample
	default:
		return fmt.Errorf("unknown unable_to_deliver_strategy : %q", text)
	}
	return nil
}

// Config holds the process-wide settings. Service creation derives the
// immutable StaticConfig of a new service from Config.Defaults; opening an
// existing service never consults them.
type Config struct {
	Global   GlobalConfig   `json:"global"`
	Defaults DefaultsConfig `json:"defaults"`
}

// GlobalConfig configures where discovery records live and how the create
// race is bounded.
type GlobalConfig struct {
	// RootPath is the directory holding the discovery records.
	RootPath string `json:"root_path"`
	// Prefix is prepended to every record file name.
	Prefix string `json:"prefix"`
	// LogLevel names the minimum log level, e.g. DEBUG or INFO.
	LogLevel string `json:"log_level"`
	// CreateRaceRetries bounds how often an open-or-create re-runs the lookup
	// after losing a creation race. Exceeding it is fatal to the call.
	CreateRaceRetries int `json:"create_race_retries"`
}

// DefaultsConfig holds the per-messaging-pattern defaults.
type DefaultsConfig struct {
	PublishSubscribe PublishSubscribeDefaults `json:"publish_subscribe"`
}

// PublishSubscribeDefaults are the creation-time defaults for
// publish-subscribe services.
type PublishSubscribeDefaults struct {
	MaxPublishers                uint64                  `json:"max_publishers"`
	MaxSubscribers               uint64                  `json:"max_subscribers"`
	PublisherHistorySize         uint64                  `json:"publisher_history_size"`
	SubscriberMaxBufferSize      uint64                  `json:"subscriber_max_buffer_size"`
	SubscriberMaxBorrowedSamples uint64                  `json:"subscriber_max_borrowed_samples"`
	PublisherMaxLoanedSamples    uint64                  `json:"publisher_max_loaned_samples"`
	EnableSafeOverflow           bool                    `json:"enable_safe_overflow"`
	UnableToDeliverStrategy      UnableToDeliverStrategy `json:"unable_to_deliver_strategy"`
}

// DefaultConfig returns the built-in defaults. Records are placed in /dev/shm
// when present, falling back to the system temp directory.
func DefaultConfig() *Config {
	rootPath := os.TempDir()
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		rootPath = "/dev/shm"
	}
	return &Config{
		Global: GlobalConfig{
			RootPath:          rootPath,
			Prefix:            "zbus_",
			LogLevel:          "INFO",
			CreateRaceRetries: 4,
		},
		Defaults: DefaultsConfig{
			PublishSubscribe: PublishSubscribeDefaults{
				MaxPublishers:                2,
				MaxSubscribers:               8,
				PublisherHistorySize:         1,
				SubscriberMaxBufferSize:      2,
				SubscriberMaxBorrowedSamples: 2,
				PublisherMaxLoanedSamples:    2,
				EnableSafeOverflow:           true,
				UnableToDeliverStrategy:      Block,
			},
		},
	}
}

// LoadConfig reads a Config from the JSON file at path. Fields absent from
// the file keep their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config file %s is not valid : %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s is not valid : %w", path, err)
	}
	return config, nil
}

// Validate checks that the config values are usable.
func (a *Config) Validate() error {
	if a.Global.RootPath == "" {
		return fmt.Errorf("global.root_path must not be empty")
	}
	if a.Global.CreateRaceRetries < 1 {
		return fmt.Errorf("global.create_race_retries must be >= 1")
	}
	ps := a.Defaults.PublishSubscribe
	if ps.MaxPublishers == 0 {
		return fmt.Errorf("defaults.publish_subscribe.max_publishers must be > 0")
	}
	if ps.MaxSubscribers == 0 {
		return fmt.Errorf("defaults.publish_subscribe.max_subscribers must be > 0")
	}
	if ps.SubscriberMaxBufferSize == 0 {
		return fmt.Errorf("defaults.publish_subscribe.subscriber_max_buffer_size must be > 0")
	}
	if ps.HistoryExceedsBuffer() {
		return fmt.Errorf("defaults.publish_subscribe.publisher_history_size must not exceed subscriber_max_buffer_size")
	}
	return nil
}

// HistoryExceedsBuffer reports whether the default history size cannot fit
// into the default subscriber buffer.
func (a PublishSubscribeDefaults) HistoryExceedsBuffer() bool {
	return a.PublisherHistorySize > a.SubscriberMaxBufferSize
}
