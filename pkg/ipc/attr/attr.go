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

// Package attr holds the self-declared metadata of a service and the
// requirement predicate an opener evaluates against it. A Set is written once
// at service creation and is immutable afterwards; a Verifier is transient -
// it is built by an opening caller, evaluated exactly once, and never stored.
package attr

import (
	"encoding/binary"
	"fmt"
)

// Entry is a single (key, value) attribute pair.
type Entry struct {
	Key   string
	Value string
}

// Set is an ordered collection of attribute entries. Duplicate keys are
// permitted; Get returns the first match.
type Set struct {
	entries []Entry
}

// NewSet creates an empty attribute set.
func NewSet() *Set {
	return &Set{}
}

// Define appends an attribute and returns the set for chaining.
// Define must only be used before the set is handed to service creation.
func (a *Set) Define(key, value string) *Set {
	a.entries = append(a.entries, Entry{Key: key, Value: value})
	return a
}

// Get returns the value of the first entry with the given key.
func (a *Set) Get(key string) (string, bool) {
	for _, e := range a.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Len returns the number of entries.
func (a *Set) Len() int {
	return len(a.entries)
}

// Entries returns a copy of the entries in definition order.
func (a *Set) Entries() []Entry {
	entries := make([]Entry, len(a.entries))
	copy(entries, a.entries)
	return entries
}

// Keys returns the keys in definition order.
func (a *Set) Keys() []string {
	keys := make([]string, len(a.entries))
	for i, e := range a.entries {
		keys[i] = e.Key
	}
	return keys
}

func (a *Set) String() string {
	return fmt.Sprintf("%v", a.entries)
}

// MarshalBinary encodes the set as:
// uint32 count, then per entry uint32 key length, key bytes, uint32 value length, value bytes.
// All integers are big-endian.
func (a *Set) MarshalBinary() ([]byte, error) {
	size := 4
	for _, e := range a.entries {
		size += 8 + len(e.Key) + len(e.Value)
	}
	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(a.entries)))
	for _, e := range a.entries {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.Key)))
		buf = append(buf, e.Key...)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.Value)))
		buf = append(buf, e.Value...)
	}
	return buf, nil
}

// UnmarshalBinary decodes the MarshalBinary encoding.
func (a *Set) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("attribute set truncated : %d bytes", len(data))
	}
	count := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	entries := make([]Entry, 0, count)
	readString := func() (string, error) {
		if len(data) < 4 {
			return "", fmt.Errorf("attribute set truncated")
		}
		n := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < n {
			return "", fmt.Errorf("attribute set truncated : need %d bytes, have %d", n, len(data))
		}
		s := string(data[:n])
		data = data[n:]
		return s, nil
	}
	for i := uint32(0); i < count; i++ {
		key, err := readString()
		if err != nil {
			return err
		}
		value, err := readString()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	a.entries = entries
	return nil
}

// Verifier is a requirement predicate over a Set. The zero value, or
// NewVerifier() without any Require calls, accepts any attributes.
type Verifier struct {
	required     []Entry
	requiredKeys []string
}

// NewVerifier creates a Verifier with no constraints.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Require adds an exact-match constraint : the key must exist with exactly this value.
func (a *Verifier) Require(key, value string) *Verifier {
	a.required = append(a.required, Entry{Key: key, Value: value})
	return a
}

// RequireKey adds an existence-only constraint : the key must exist with any value.
func (a *Verifier) RequireKey(key string) *Verifier {
	a.requiredKeys = append(a.requiredKeys, key)
	return a
}

// Len returns the number of constraints.
func (a *Verifier) Len() int {
	return len(a.required) + len(a.requiredKeys)
}

// Verify checks every constraint against the set. The constraints form a
// logical conjunction - order does not affect the result. A nil error means
// the set satisfies the verifier.
func (a *Verifier) Verify(s *Set) error {
	for _, req := range a.required {
		value, ok := s.Get(req.Key)
		if !ok {
			return fmt.Errorf("required attribute %q is not defined", req.Key)
		}
		if value != req.Value {
			return fmt.Errorf("required attribute %q has value %q, expected %q", req.Key, value, req.Value)
		}
	}
	for _, key := range a.requiredKeys {
		if _, ok := s.Get(key); !ok {
			return fmt.Errorf("required attribute key %q is not defined", key)
		}
	}
	return nil
}
