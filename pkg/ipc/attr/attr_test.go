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

package attr_test

import (
	"testing"

	"github.com/zerobus/zerobus.go/pkg/ipc/attr"
)

func TestSetGetFirstMatch(t *testing.T) {
	set := attr.NewSet().
		Define("camera_position", "front").
		Define("camera_position", "rear").
		Define("resolution", "1920x1080")

	if set.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", set.Len())
	}
	value, ok := set.Get("camera_position")
	if !ok || value != "front" {
		t.Errorf("Get must return the first match : got %q, %v", value, ok)
	}
	if _, ok := set.Get("missing"); ok {
		t.Error("Get found an undefined key")
	}
	keys := set.Keys()
	if len(keys) != 3 || keys[0] != "camera_position" || keys[2] != "resolution" {
		t.Errorf("keys not in definition order : %v", keys)
	}
}

func TestSetEntriesIsACopy(t *testing.T) {
	set := attr.NewSet().Define("k", "v")
	entries := set.Entries()
	entries[0].Value = "mutated"
	if value, _ := set.Get("k"); value != "v" {
		t.Error("mutating the Entries result leaked into the set")
	}
}

func TestSetBinaryRoundTrip(t *testing.T) {
	set := attr.NewSet().
		Define("camera_resolution", "1920x1080").
		Define("empty_value", "").
		Define("dds_service_mapping", "front_camera")

	data, err := set.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	decoded := attr.NewSet()
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatal(err)
	}
	if decoded.Len() != set.Len() {
		t.Fatalf("expected %d entries, got %d", set.Len(), decoded.Len())
	}
	for i, e := range set.Entries() {
		if decoded.Entries()[i] != e {
			t.Errorf("entry %d changed : %v != %v", i, decoded.Entries()[i], e)
		}
	}
}

func TestUnmarshalTruncated(t *testing.T) {
	data, err := attr.NewSet().Define("key", "value").MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []int{0, 3, 5, len(data) - 1} {
		if err := attr.NewSet().UnmarshalBinary(data[:n]); err == nil {
			t.Errorf("decoding %d of %d bytes must fail", n, len(data))
		}
	}
}

func TestVerifier(t *testing.T) {
	set := attr.NewSet().
		Define("camera_resolution", "1920x1080").
		Define("camera_position", "front")

	tests := []struct {
		name     string
		verifier *attr.Verifier
		accepted bool
	}{
		{"no constraints accepts anything", attr.NewVerifier(), true},
		{"exact match", attr.NewVerifier().Require("camera_resolution", "1920x1080"), true},
		{"wrong value", attr.NewVerifier().Require("camera_resolution", "3840x2160"), false},
		{"missing key", attr.NewVerifier().Require("vendor", "acme"), false},
		{"key exists", attr.NewVerifier().RequireKey("camera_position"), true},
		{"key missing", attr.NewVerifier().RequireKey("vendor"), false},
		{"conjunction", attr.NewVerifier().
			Require("camera_resolution", "1920x1080").
			RequireKey("camera_position"), true},
		{"conjunction with one failure", attr.NewVerifier().
			Require("camera_resolution", "1920x1080").
			RequireKey("vendor"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verifier.Verify(set)
			if tt.accepted && err != nil {
				t.Errorf("expected accept, got %v", err)
			}
			if !tt.accepted && err == nil {
				t.Error("expected reject, got accept")
			}
		})
	}
}

func TestVerifierZeroValueAcceptsEmptySet(t *testing.T) {
	var verifier attr.Verifier
	if verifier.Len() != 0 {
		t.Errorf("zero verifier has %d constraints", verifier.Len())
	}
	if err := verifier.Verify(attr.NewSet()); err != nil {
		t.Errorf("zero verifier rejected the empty set : %v", err)
	}
}
