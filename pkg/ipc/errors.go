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
)

// ErrorID unique error id
type ErrorID uint64

// Err pairs an error with its unique ErrorID. The ErrorID shows up in logs
// and lets errors be located in code by id.
type Err struct {
	ErrorID ErrorID
	Err     error
}

func (a *Err) Error() string {
	return fmt.Sprintf("%x : %v", uint64(a.ErrorID), a.Err)
}

func (a *Err) Unwrap() error {
	return a.Err
}

var (
	ErrInvalidServiceName = &Err{ErrorID: ErrorID(0xbd4a7f1c0e92d3a5), Err: errors.New("service name is invalid")}
	ErrStorageNil         = &Err{ErrorID: ErrorID(0x6c81f20a9de4b573), Err: errors.New("discovery storage is nil")}

	ErrServiceNotFound      = &Err{ErrorID: ErrorID(0x4f3be80d715ca962), Err: errors.New("service does not exist")}
	ErrServiceAlreadyExists = &Err{ErrorID: ErrorID(0xa95d3c47e1f08b26), Err: errors.New("service already exists")}
	ErrServiceClosed        = &Err{ErrorID: ErrorID(0x17e6d94b30af82c5), Err: errors.New("service handle is closed")}

	// ErrCreateRace is returned by Storage.CreateIfAbsent when another process
	// created and removed the record within the same call - the caller may
	// retry the lookup.
	ErrCreateRace = &Err{ErrorID: ErrorID(0xe20c5a96d47381fb), Err: errors.New("service creation raced with another process")}

	// ErrCreateRaceExhausted is fatal : the bounded create-race retry count was exceeded.
	ErrCreateRaceExhausted = &Err{ErrorID: ErrorID(0x58b1fd0e3a967c42), Err: errors.New("service creation race retries exhausted")}

	ErrAttributesTooLarge = &Err{ErrorID: ErrorID(0x9f04c6e25b87ad13), Err: errors.New("serialized attributes exceed the record capacity")}

	// incompatibility class sentinels - match with errors.Is, inspect with
	// errors.As against the corresponding wrapper type
	ErrIncompatibleConfiguration = &Err{ErrorID: ErrorID(0x2da8517f94c0e6b3), Err: errors.New("requested configuration is incompatible with the existing service")}
	ErrIncompatibleAttributes    = &Err{ErrorID: ErrorID(0xc63e09a4d15f72b8), Err: errors.New("service attributes do not satisfy the requirements")}
	ErrIncompatibleVersion       = &Err{ErrorID: ErrorID(0x71f5b2c8064d39ea), Err: errors.New("service record was written by an incompatible library version")}

	ErrExceedsMaxPorts = &Err{ErrorID: ErrorID(0x3b90e67ad2c45f18), Err: errors.New("service already serves the maximum number of ports")}
)

// OpError wraps a lower level collaborator failure with the operation and
// service name it occurred in.
type OpError struct {
	*Err
	Op      string
	Service ServiceName
}

func (a *OpError) Error() string {
	return fmt.Sprintf("%x : %s %q : %v", uint64(a.ErrorID), a.Op, a.Service, a.Err.Err)
}

// NewOpError wraps err with operation and service name context.
func NewOpError(op string, name ServiceName, err error) *OpError {
	return &OpError{
		Err:     &Err{ErrorID: ErrorID(0x840df29c6b51e7a3), Err: err},
		Op:      op,
		Service: name,
	}
}

// ClockError wraps a failure to read the clock while generating an identity.
type ClockError struct {
	*Err
}

// NewClockError wraps err as a ClockError.
func NewClockError(err error) *ClockError {
	return &ClockError{&Err{ErrorID: ErrorID(0xd12a84f06e97c35b), Err: err}}
}

// IncompatibleConfigurationError reports the first static configuration field
// that failed the compatibility rule, together with the requested and stored
// values.
type IncompatibleConfigurationError struct {
	*Err
	Field     string
	Requested string
	Actual    string
}

func (a *IncompatibleConfigurationError) Error() string {
	return fmt.Sprintf("%x : %v : field=%s requested=%s actual=%s",
		uint64(a.ErrorID), a.Err.Err, a.Field, a.Requested, a.Actual)
}

// NewIncompatibleConfigurationError creates an IncompatibleConfigurationError for the given field.
func NewIncompatibleConfigurationError(field, requested, actual string) *IncompatibleConfigurationError {
	return &IncompatibleConfigurationError{
		Err:       &Err{ErrorID: ErrorID(0x0b7e43d9a25c86f1), Err: ErrIncompatibleConfiguration},
		Field:     field,
		Requested: requested,
		Actual:    actual,
	}
}

// IncompatibleAttributesError reports the first attribute requirement the
// stored attribute set failed to satisfy.
type IncompatibleAttributesError struct {
	*Err
	Reason string
}

func (a *IncompatibleAttributesError) Error() string {
	return fmt.Sprintf("%x : %v : %s", uint64(a.ErrorID), a.Err.Err, a.Reason)
}

// NewIncompatibleAttributesError creates an IncompatibleAttributesError with the failed requirement.
func NewIncompatibleAttributesError(reason string) *IncompatibleAttributesError {
	return &IncompatibleAttributesError{
		Err:    &Err{ErrorID: ErrorID(0xf58c2b0d69a41e37), Err: ErrIncompatibleAttributes},
		Reason: reason,
	}
}

// IncompatibleVersionError reports that the service record was written by a
// library version this one cannot safely read.
type IncompatibleVersionError struct {
	*Err
	Written string
	Current string
}

func (a *IncompatibleVersionError) Error() string {
	return fmt.Sprintf("%x : %v : written=%s current=%s", uint64(a.ErrorID), a.Err.Err, a.Written, a.Current)
}

// NewIncompatibleVersionError creates an IncompatibleVersionError.
func NewIncompatibleVersionError(written, current string) *IncompatibleVersionError {
	return &IncompatibleVersionError{
		Err:     &Err{ErrorID: ErrorID(0x6e3a90cf18d5b247), Err: ErrIncompatibleVersion},
		Written: written,
		Current: current,
	}
}

// ExceedsMaxPortsError reports that minting one more port of the given kind
// would exceed the service's configured maximum.
type ExceedsMaxPortsError struct {
	*Err
	Kind  PortKind
	Limit uint64
}

func (a *ExceedsMaxPortsError) Error() string {
	return fmt.Sprintf("%x : %v : kind=%s limit=%d", uint64(a.ErrorID), a.Err.Err, a.Kind, a.Limit)
}

// NewExceedsMaxPortsError creates an ExceedsMaxPortsError.
func NewExceedsMaxPortsError(kind PortKind, limit uint64) *ExceedsMaxPortsError {
	return &ExceedsMaxPortsError{
		Err:   &Err{ErrorID: ErrorID(0x45c18de7f3092ab6), Err: ErrExceedsMaxPorts},
		Kind:  kind,
		Limit: limit,
	}
}
