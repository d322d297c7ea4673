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

package ipc_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zerobus/zerobus.go/pkg/ipc"
	"github.com/zerobus/zerobus.go/pkg/ipc/attr"
	"github.com/zerobus/zerobus.go/pkg/ipc/shm"
)

// newTestNode creates a node whose discovery records live in a per-test
// directory, so tests never observe each other's services.
func newTestNode(t *testing.T) *ipc.Node {
	t.Helper()
	config := ipc.DefaultConfig()
	config.Global.RootPath = t.TempDir()
	node, err := ipc.NewNode(config, shm.NewStorageFromConfig(config))
	if err != nil {
		t.Fatal(err)
	}
	return node
}

func testTypeDetails() ipc.TypeDetails {
	return ipc.FixedSize("test_payload", 64, 8)
}

func TestNewNode(t *testing.T) {
	if _, err := ipc.NewNode(nil, nil); !errors.Is(err, ipc.ErrStorageNil) {
		t.Errorf("expected ErrStorageNil, got %v", err)
	}

	config := ipc.DefaultConfig()
	config.Global.RootPath = t.TempDir()
	node, err := ipc.NewNode(nil, shm.NewStorageFromConfig(config))
	if err != nil {
		t.Fatal(err)
	}
	if node.InstanceID() == "" {
		t.Error("node has no instance id")
	}
	if node.Config() == nil {
		t.Error("nil config must fall back to defaults")
	}

	other, err := ipc.NewNode(nil, shm.NewStorageFromConfig(config))
	if err != nil {
		t.Fatal(err)
	}
	if node.InstanceID() == other.InstanceID() {
		t.Error("two nodes share an instance id")
	}
}

func TestOpenOrCreate(t *testing.T) {
	node := newTestNode(t)

	created, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		OpenOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	defer created.Close()

	opened, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		OpenOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	defer opened.Close()

	if created.UUID() != opened.UUID() {
		t.Errorf("open-or-create resolved a different service : %s != %s",
			created.UUID(), opened.UUID())
	}
	if created.Name() != "test/service" {
		t.Errorf("unexpected name %q", created.Name())
	}
}

func TestOpenNonExistent(t *testing.T) {
	node := newTestNode(t)
	_, err := node.Service("test/absent").
		PublishSubscribe(testTypeDetails()).
		Open()
	if !errors.Is(err, ipc.ErrServiceNotFound) {
		t.Errorf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestCreateExisting(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()

	_, err = node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Create()
	if !errors.Is(err, ipc.ErrServiceAlreadyExists) {
		t.Errorf("expected ErrServiceAlreadyExists, got %v", err)
	}
}

func TestInvalidServiceName(t *testing.T) {
	node := newTestNode(t)
	for _, name := range []string{"", strings.Repeat("x", 129), "bad\x00name"} {
		_, err := node.Service(name).
			PublishSubscribe(testTypeDetails()).
			OpenOrCreate()
		if !errors.Is(err, ipc.ErrInvalidServiceName) {
			t.Errorf("name %q : expected ErrInvalidServiceName, got %v", name, err)
		}
	}
	if _, err := ipc.NewServiceName("good/name"); err != nil {
		t.Errorf("valid name rejected : %v", err)
	}
}

func TestCreateAppliesRequestedConfig(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		MaxPublishers(5).
		MaxSubscribers(7).
		HistorySize(3).
		SubscriberMaxBufferSize(9).
		SubscriberMaxBorrowedSamples(4).
		EnableSafeOverflow(false).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()

	static := service.StaticConfig()
	if static.MaxSupportedPublishers() != 5 {
		t.Errorf("max publishers : %d", static.MaxSupportedPublishers())
	}
	if static.MaxSupportedSubscribers() != 7 {
		t.Errorf("max subscribers : %d", static.MaxSupportedSubscribers())
	}
	if static.HistorySize() != 3 {
		t.Errorf("history size : %d", static.HistorySize())
	}
	if static.SubscriberMaxBufferSize() != 9 {
		t.Errorf("subscriber max buffer size : %d", static.SubscriberMaxBufferSize())
	}
	if static.SubscriberMaxBorrowedSamples() != 4 {
		t.Errorf("subscriber max borrowed samples : %d", static.SubscriberMaxBorrowedSamples())
	}
	if static.HasSafeOverflow() {
		t.Error("safe overflow was requested off")
	}
	if static.TypeDetails().PayloadTypeName != "test_payload" {
		t.Errorf("type details not stored : %+v", static.TypeDetails())
	}
}

func TestCreateUsesDefaultsForUnsetFields(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		MaxPublishers(5).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()

	defaults := node.Config().Defaults.PublishSubscribe
	static := service.StaticConfig()
	if static.MaxSupportedPublishers() != 5 {
		t.Errorf("requested field not applied : %d", static.MaxSupportedPublishers())
	}
	if static.MaxSupportedSubscribers() != defaults.MaxSubscribers {
		t.Errorf("unset field did not fall back to the default : %d", static.MaxSupportedSubscribers())
	}
	if static.HistorySize() != defaults.PublisherHistorySize {
		t.Errorf("unset history size : %d", static.HistorySize())
	}
}

func TestOpenCapacityCompatibility(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		MaxSubscribers(4).
		SubscriberMaxBufferSize(8).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()

	// requesting less capacity than stored is compatible
	opened, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		MaxSubscribers(2).
		SubscriberMaxBufferSize(8).
		Open()
	if err != nil {
		t.Fatal(err)
	}
	opened.Close()

	// requesting more is not
	_, err = node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		MaxSubscribers(5).
		Open()
	if !errors.Is(err, ipc.ErrIncompatibleConfiguration) {
		t.Fatalf("expected ErrIncompatibleConfiguration, got %v", err)
	}
	var confErr *ipc.IncompatibleConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("error is not an IncompatibleConfigurationError : %v", err)
	}
	if confErr.Field != "max_subscribers" || confErr.Requested != "5" || confErr.Actual != "4" {
		t.Errorf("unexpected rejection detail : %+v", confErr)
	}
}

func TestOpenStructuralCompatibility(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		HistorySize(2).
		EnableSafeOverflow(true).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()

	// history size requires an exact match in both directions
	for _, history := range []uint64{1, 3} {
		_, err := node.Service("test/service").
			PublishSubscribe(testTypeDetails()).
			HistorySize(history).
			Open()
		if !errors.Is(err, ipc.ErrIncompatibleConfiguration) {
			t.Errorf("history %d : expected ErrIncompatibleConfiguration, got %v", history, err)
		}
	}

	_, err = node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		EnableSafeOverflow(false).
		Open()
	if !errors.Is(err, ipc.ErrIncompatibleConfiguration) {
		t.Errorf("overflow mismatch : expected ErrIncompatibleConfiguration, got %v", err)
	}

	// unset fields impose no requirement
	opened, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Open()
	if err != nil {
		t.Fatal(err)
	}
	opened.Close()
}

func TestOpenTypeDetailsCompatibility(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()

	tests := []struct {
		name string
		td   ipc.TypeDetails
	}{
		{"payload size", ipc.FixedSize("test_payload", 128, 8)},
		{"payload alignment", ipc.FixedSize("test_payload", 64, 16)},
		{"variant", ipc.Dynamic("test_payload", 64, 8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := node.Service("test/service").
				PublishSubscribe(tt.td).
				Open()
			if !errors.Is(err, ipc.ErrIncompatibleConfiguration) {
				t.Errorf("expected ErrIncompatibleConfiguration, got %v", err)
			}
		})
	}

	// fixed size payloads match structurally, the type name is not compared
	opened, err := node.Service("test/service").
		PublishSubscribe(ipc.FixedSize("renamed_payload", 64, 8)).
		Open()
	if err != nil {
		t.Fatal(err)
	}
	opened.Close()
}

func TestOpenDynamicTypeNameIsCompared(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(ipc.Dynamic("byte_slice", 1, 1)).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()

	_, err = node.Service("test/service").
		PublishSubscribe(ipc.Dynamic("other_slice", 1, 1)).
		Open()
	if !errors.Is(err, ipc.ErrIncompatibleConfiguration) {
		t.Errorf("expected ErrIncompatibleConfiguration, got %v", err)
	}

	opened, err := node.Service("test/service").
		PublishSubscribe(ipc.Dynamic("byte_slice", 1, 1)).
		Open()
	if err != nil {
		t.Fatal(err)
	}
	opened.Close()
}

func TestAttributes(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Attributes(attr.NewSet().
			Define("camera_resolution", "1920x1080").
			Define("camera_position", "front")).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()

	if value, ok := service.Attributes().Get("camera_position"); !ok || value != "front" {
		t.Errorf("stored attributes not readable : %q, %v", value, ok)
	}

	opened, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Verifier(attr.NewVerifier().
			Require("camera_resolution", "1920x1080").
			RequireKey("camera_position")).
		Open()
	if err != nil {
		t.Fatal(err)
	}
	opened.Close()

	_, err = node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Verifier(attr.NewVerifier().Require("camera_resolution", "3840x2160")).
		Open()
	if !errors.Is(err, ipc.ErrIncompatibleAttributes) {
		t.Fatalf("expected ErrIncompatibleAttributes, got %v", err)
	}
	var attrErr *ipc.IncompatibleAttributesError
	if !errors.As(err, &attrErr) || attrErr.Reason == "" {
		t.Errorf("rejection carries no reason : %v", err)
	}
}

func TestCreatorVerifierIsIgnored(t *testing.T) {
	node := newTestNode(t)
	// the verifier only applies when the call opens an existing service
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Verifier(attr.NewVerifier().Require("never", "satisfied")).
		OpenOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	service.Close()
}

func TestServiceCloseIsIdempotent(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	if err := service.Close(); err != nil {
		t.Fatal(err)
	}
	if err := service.Close(); err != nil {
		t.Errorf("second close failed : %v", err)
	}

	_, err = service.PortFactory().Publisher().Create()
	if !errors.Is(err, ipc.ErrServiceClosed) {
		t.Errorf("expected ErrServiceClosed, got %v", err)
	}
}

// racingStorage loses every creation race : Lookup never finds the service
// and CreateIfAbsent always reports another creator won.
type racingStorage struct {
	attempts int
}

func (a *racingStorage) Lookup(name ipc.ServiceName) (ipc.StorageHandle, error) {
	return nil, ipc.ErrServiceNotFound
}

func (a *racingStorage) CreateIfAbsent(name ipc.ServiceName, spec ipc.CreateSpec) (ipc.StorageHandle, bool, error) {
	a.attempts++
	return nil, false, ipc.ErrCreateRace
}

func (a *racingStorage) Remove(name ipc.ServiceName) error { return nil }

func (a *racingStorage) List() ([]ipc.ServiceName, error) { return nil, nil }

func TestCreateRaceRetriesExhausted(t *testing.T) {
	config := ipc.DefaultConfig()
	config.Global.CreateRaceRetries = 3
	storage := &racingStorage{}
	node, err := ipc.NewNode(config, storage)
	if err != nil {
		t.Fatal(err)
	}

	_, err = node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		OpenOrCreate()
	if !errors.Is(err, ipc.ErrCreateRaceExhausted) {
		t.Fatalf("expected ErrCreateRaceExhausted, got %v", err)
	}
	if storage.attempts != 4 {
		t.Errorf("expected the initial attempt plus 3 retries, got %d attempts", storage.attempts)
	}
}

func TestOpenOrCreateReclaimsAbandonedRecord(t *testing.T) {
	config := ipc.DefaultConfig()
	config.Global.RootPath = t.TempDir()
	node, err := ipc.NewNode(config, shm.NewStorageFromConfig(config))
	if err != nil {
		t.Fatal(err)
	}

	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	service.Close()

	// zero the record and backdate it, as a creator that died between the
	// exclusive file creation and publication would leave it
	entries, err := os.ReadDir(config.Global.RootPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 record file, got %d", len(entries))
	}
	path := filepath.Join(config.Global.RootPath, entries[0].Name())
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, info.Size()), 0o600); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Minute)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	// the abandoned record must be reclaimed, not brick the name
	reclaimed, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		OpenOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	reclaimed.Close()
}

func TestServiceSurvivesItsCreator(t *testing.T) {
	node := newTestNode(t)
	creator, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	uuid := creator.UUID()

	opened, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Open()
	if err != nil {
		t.Fatal(err)
	}
	defer opened.Close()

	// detaching the creator must not destroy the service
	if err := creator.Close(); err != nil {
		t.Fatal(err)
	}
	reopened, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Open()
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if reopened.UUID() != uuid {
		t.Errorf("reopened a different service : %s != %s", reopened.UUID(), uuid)
	}
}
