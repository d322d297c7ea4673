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
	"github.com/nats-io/nuid"
	"github.com/rs/zerolog"

	"github.com/zerobus/zerobus.go/pkg/ipc/sysid"
	"github.com/zerobus/zerobus.go/pkg/logging"
)

// Node is a process's entry point into discovery. It owns the process-wide
// Config, the identity generator shared by everything this process creates,
// and the discovery storage. All methods are safe for concurrent use.
type Node struct {
	instanceID InstanceID
	config     *Config
	storage    Storage
	generator  *sysid.Generator
	logger     zerolog.Logger
}

// NewNode creates a Node. A nil config means DefaultConfig(). The storage is
// required - see the shm package for the shared-memory implementation.
//
// errors:
//   - ErrStorageNil
func NewNode(config *Config, storage Storage) (*Node, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if config == nil {
		config = DefaultConfig()
	}
	instanceID := InstanceID(nuid.Next())
	logger := logging.NewTypeLogger(Node{}).With().
		Str(logging.ID, string(instanceID)).
		Logger()
	return &Node{
		instanceID: instanceID,
		config:     config,
		storage:    storage,
		generator:  sysid.NewGenerator(nil),
		logger:     logger,
	}, nil
}

// InstanceID returns the node's unique instance id.
func (a *Node) InstanceID() InstanceID {
	return a.instanceID
}

// Config returns the node's process-wide config.
func (a *Node) Config() *Config {
	return a.config
}

// Generator returns the node's identity generator.
func (a *Node) Generator() *sysid.Generator {
	return a.generator
}

// Logger returns the node logger.
func (a *Node) Logger() zerolog.Logger {
	return a.logger
}

// Service starts a service builder for the given name. Name validation is
// deferred to the terminal open/create call.
func (a *Node) Service(name string) *ServiceBuilder {
	return &ServiceBuilder{node: a, name: ServiceName(name)}
}
