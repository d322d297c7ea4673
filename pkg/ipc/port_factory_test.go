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
	"testing"

	"github.com/zerobus/zerobus.go/pkg/ipc"
)

func TestPublisherCapacityEnforced(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		MaxPublishers(2).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()
	factory := service.PortFactory()

	first, err := factory.Publisher().Create()
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	second, err := factory.Publisher().Create()
	if err != nil {
		t.Fatal(err)
	}

	_, err = factory.Publisher().Create()
	if !errors.Is(err, ipc.ErrExceedsMaxPorts) {
		t.Fatalf("expected ErrExceedsMaxPorts, got %v", err)
	}
	var portErr *ipc.ExceedsMaxPortsError
	if !errors.As(err, &portErr) {
		t.Fatalf("error is not an ExceedsMaxPortsError : %v", err)
	}
	if portErr.Kind != ipc.PortPublisher || portErr.Limit != 2 {
		t.Errorf("unexpected rejection detail : %+v", portErr)
	}

	// closing a port frees its slot for the next create
	second.Close()
	third, err := factory.Publisher().Create()
	if err != nil {
		t.Fatalf("slot was not released : %v", err)
	}
	third.Close()
}

func TestSubscriberCapacityEnforced(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		MaxSubscribers(1).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()
	factory := service.PortFactory()

	subscriber, err := factory.Subscriber().Create()
	if err != nil {
		t.Fatal(err)
	}
	defer subscriber.Close()

	_, err = factory.Subscriber().Create()
	var portErr *ipc.ExceedsMaxPortsError
	if !errors.As(err, &portErr) || portErr.Kind != ipc.PortSubscriber {
		t.Errorf("expected a subscriber ExceedsMaxPortsError, got %v", err)
	}
}

func TestSubscriberBufferSize(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		SubscriberMaxBufferSize(4).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()
	factory := service.PortFactory()

	// defaults to the service maximum
	subscriber, err := factory.Subscriber().Create()
	if err != nil {
		t.Fatal(err)
	}
	if subscriber.BufferSize() != 4 {
		t.Errorf("default buffer size : %d", subscriber.BufferSize())
	}
	subscriber.Close()

	smaller, err := factory.Subscriber().BufferSize(2).Create()
	if err != nil {
		t.Fatal(err)
	}
	if smaller.BufferSize() != 2 {
		t.Errorf("requested buffer size : %d", smaller.BufferSize())
	}
	smaller.Close()

	_, err = factory.Subscriber().BufferSize(5).Create()
	if !errors.Is(err, ipc.ErrIncompatibleConfiguration) {
		t.Errorf("expected ErrIncompatibleConfiguration, got %v", err)
	}
}

func TestPublisherDefaults(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()
	factory := service.PortFactory()

	defaults := node.Config().Defaults.PublishSubscribe
	publisher, err := factory.Publisher().Create()
	if err != nil {
		t.Fatal(err)
	}
	if publisher.MaxLoanedSamples() != defaults.PublisherMaxLoanedSamples {
		t.Errorf("max loaned samples default : %d", publisher.MaxLoanedSamples())
	}
	if publisher.UnableToDeliverStrategy() != defaults.UnableToDeliverStrategy {
		t.Errorf("strategy default : %v", publisher.UnableToDeliverStrategy())
	}
	publisher.Close()

	custom, err := factory.Publisher().
		MaxLoanedSamples(7).
		UnableToDeliverStrategy(ipc.DiscardSample).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	if custom.MaxLoanedSamples() != 7 || custom.UnableToDeliverStrategy() != ipc.DiscardSample {
		t.Errorf("builder settings not applied : %d, %v",
			custom.MaxLoanedSamples(), custom.UnableToDeliverStrategy())
	}
	custom.Close()
}

func TestDynamicConfigCountsAcrossHandles(t *testing.T) {
	node := newTestNode(t)
	created, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer created.Close()
	opened, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Open()
	if err != nil {
		t.Fatal(err)
	}
	defer opened.Close()

	publisher, err := created.PortFactory().Publisher().Create()
	if err != nil {
		t.Fatal(err)
	}
	subscriber, err := opened.PortFactory().Subscriber().Create()
	if err != nil {
		t.Fatal(err)
	}

	// both handles observe the same shared counts
	for _, service := range []*ipc.Service{created, opened} {
		dynamic := service.DynamicConfig()
		if dynamic.NumberOfPublishers() != 1 {
			t.Errorf("publishers : %d", dynamic.NumberOfPublishers())
		}
		if dynamic.NumberOfSubscribers() != 1 {
			t.Errorf("subscribers : %d", dynamic.NumberOfSubscribers())
		}
	}

	publisher.Close()
	subscriber.Close()
	if n := created.DynamicConfig().NumberOfPublishers(); n != 0 {
		t.Errorf("publishers after close : %d", n)
	}
	if n := opened.DynamicConfig().NumberOfSubscribers(); n != 0 {
		t.Errorf("subscribers after close : %d", n)
	}
}

func TestPortCloseIsIdempotent(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		MaxPublishers(1).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()

	publisher, err := service.PortFactory().Publisher().Create()
	if err != nil {
		t.Fatal(err)
	}
	publisher.Close()
	publisher.Close()
	if n := service.DynamicConfig().NumberOfPublishers(); n != 0 {
		t.Errorf("double close corrupted the count : %d", n)
	}
}

func TestPortFactoryAccessors(t *testing.T) {
	node := newTestNode(t)
	service, err := node.Service("test/service").
		PublishSubscribe(testTypeDetails()).
		Create()
	if err != nil {
		t.Fatal(err)
	}
	defer service.Close()

	factory := service.PortFactory()
	if factory.Name() != service.Name() {
		t.Errorf("name : %q != %q", factory.Name(), service.Name())
	}
	if factory.UUID() != service.UUID() {
		t.Errorf("uuid : %s != %s", factory.UUID(), service.UUID())
	}
	if factory.StaticConfig() != service.StaticConfig() {
		t.Error("static config differs")
	}
	if factory.Attributes().Len() != service.Attributes().Len() {
		t.Error("attributes differ")
	}
}
