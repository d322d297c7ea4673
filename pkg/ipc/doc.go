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

// Package ipc lets independent processes on one machine discover, jointly
// construct, and safely attach to named zero-copy communication channels
// without a central broker.
//
// Any process may be the first to create a service, any process may later
// open it, and all participants end up agreeing on one immutable service
// shape : the StaticConfig written by whichever process wins the creation
// race is frozen, and every subsequent open is validated against it. A
// service's self-declared attributes are matched against an opener's
// requirements the same way.
//
//	config := ipc.DefaultConfig()
//	node, err := ipc.NewNode(config, shm.NewStorageFromConfig(config))
//	svc, err := node.Service("My/Funk/ServiceName").
//		PublishSubscribe(ipc.FixedSize("u64", 8, 8)).
//		OpenOrCreate()
//	publisher, err := svc.PortFactory().Publisher().MaxLoanedSamples(6).Create()
//
// The sample transfer mechanics themselves (loaning, delivery buffers) are
// out of scope of this package; ports carry identity and capacity only.
package ipc

// Version is the library version written into every discovery record.
// Openers reject records written by an incompatible version.
const Version = "0.4.0"
