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

import "strings"

// InstanceID is the unique id for a node instance. There may be multiple
// nodes, i.e. processes, attached to the same services. The instance id is
// used to differentiate them in logs and metrics.
type InstanceID string

// ServiceName names a shared communication channel. It is the lookup key for
// discovery - two processes using the same name attach to the same service.
type ServiceName string

// maximum ServiceName length in bytes
const MaxServiceNameLen = 128

// NewServiceName validates s and returns it as a ServiceName.
//
// errors:
//   - ErrInvalidServiceName
func NewServiceName(s string) (ServiceName, error) {
	name := ServiceName(s)
	if err := name.Valid(); err != nil {
		return "", err
	}
	return name, nil
}

// Valid reports whether the name is usable as a discovery lookup key.
func (a ServiceName) Valid() error {
	if len(a) == 0 || len(a) > MaxServiceNameLen {
		return ErrInvalidServiceName
	}
	if strings.ContainsRune(string(a), 0) {
		return ErrInvalidServiceName
	}
	return nil
}

func (a ServiceName) String() string {
	return string(a)
}

// PortKind distinguishes the two port endpoint kinds of a service.
type PortKind uint8

// PortKind values
const (
	PortPublisher PortKind = iota
	PortSubscriber
)

func (a PortKind) String() string {
	switch a {
	case PortPublisher:
		return "publisher"
	case PortSubscriber:
		return "subscriber"
	default:
		return "unknown"
	}
}
