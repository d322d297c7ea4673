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

import "fmt"

// TypeVariant describes whether a payload has a fixed size or a runtime
// determined size.
type TypeVariant uint32

// TypeVariant values
const (
	TypeVariantFixedSize TypeVariant = iota
	TypeVariantDynamic
)

func (a TypeVariant) String() string {
	switch a {
	case TypeVariantFixedSize:
		return "fixed_size"
	case TypeVariantDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// maximum type name length stored in a discovery record, in bytes
const MaxTypeNameLen = 128

// TypeDetails fully describes the memory layout of a service's payload and
// sample header. It is supplied by the caller's typed binding at creation
// time and is used to reject structurally incompatible opens.
type TypeDetails struct {
	Variant          TypeVariant
	HeaderTypeName   string
	HeaderSize       uint64
	HeaderAlignment  uint64
	PayloadTypeName  string
	PayloadSize      uint64
	PayloadAlignment uint64
}

// default sample header layout used by the typed helpers
const (
	defaultHeaderTypeName  = "sample_header"
	defaultHeaderSize      = 32
	defaultHeaderAlignment = 8
)

// FixedSize builds TypeDetails for a payload whose size is known at compile time.
func FixedSize(payloadTypeName string, size, alignment uint64) TypeDetails {
	return TypeDetails{
		Variant:          TypeVariantFixedSize,
		HeaderTypeName:   defaultHeaderTypeName,
		HeaderSize:       defaultHeaderSize,
		HeaderAlignment:  defaultHeaderAlignment,
		PayloadTypeName:  payloadTypeName,
		PayloadSize:      size,
		PayloadAlignment: alignment,
	}
}

// Dynamic builds TypeDetails for a payload whose size is determined at runtime.
// size and alignment describe the payload's element layout.
func Dynamic(payloadTypeName string, size, alignment uint64) TypeDetails {
	td := FixedSize(payloadTypeName, size, alignment)
	td.Variant = TypeVariantDynamic
	return td
}

// Valid checks that the details are usable for service creation.
func (a TypeDetails) Valid() error {
	if len(a.PayloadTypeName) == 0 || len(a.PayloadTypeName) > MaxTypeNameLen {
		return fmt.Errorf("payload type name length must be in 1..%d", MaxTypeNameLen)
	}
	if len(a.HeaderTypeName) > MaxTypeNameLen {
		return fmt.Errorf("header type name length must be <= %d", MaxTypeNameLen)
	}
	if a.PayloadSize == 0 || a.PayloadAlignment == 0 {
		return fmt.Errorf("payload size and alignment must be > 0")
	}
	return nil
}

// mismatch compares stored details against requested details per the
// structural compatibility rule : variant, sizes, and alignments must match
// exactly; type names are compared for dynamic payloads only. It returns the
// first mismatching field, or "" if the details are compatible.
func (a TypeDetails) mismatch(requested TypeDetails) (field, stored, reqValue string) {
	if a.Variant != requested.Variant {
		return "type_details.variant", a.Variant.String(), requested.Variant.String()
	}
	if a.PayloadSize != requested.PayloadSize {
		return "type_details.payload_size", fmt.Sprint(a.PayloadSize), fmt.Sprint(requested.PayloadSize)
	}
	if a.PayloadAlignment != requested.PayloadAlignment {
		return "type_details.payload_alignment", fmt.Sprint(a.PayloadAlignment), fmt.Sprint(requested.PayloadAlignment)
	}
	if a.HeaderSize != requested.HeaderSize {
		return "type_details.header_size", fmt.Sprint(a.HeaderSize), fmt.Sprint(requested.HeaderSize)
	}
	if a.HeaderAlignment != requested.HeaderAlignment {
		return "type_details.header_alignment", fmt.Sprint(a.HeaderAlignment), fmt.Sprint(requested.HeaderAlignment)
	}
	if a.Variant == TypeVariantDynamic && a.PayloadTypeName != requested.PayloadTypeName {
		return "type_details.payload_type_name", a.PayloadTypeName, requested.PayloadTypeName
	}
	return "", "", ""
}
