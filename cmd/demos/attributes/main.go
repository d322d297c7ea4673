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

// Command attributes demonstrates attribute based service negotiation : a
// service is created with self-declared attributes, a compatible opener
// verifies them, and an opener with an unsatisfiable requirement is rejected.
package main

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zerobus/zerobus.go/pkg/ipc"
	"github.com/zerobus/zerobus.go/pkg/ipc/attr"
	"github.com/zerobus/zerobus.go/pkg/ipc/shm"
	"github.com/zerobus/zerobus.go/pkg/logging"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config := ipc.DefaultConfig()
	zerolog.SetGlobalLevel(logging.LevelFromString(config.Global.LogLevel))
	node, err := ipc.NewNode(config, shm.NewStorageFromConfig(config))
	if err != nil {
		log.Fatal().Err(err).Msg("creating node failed")
	}

	td := ipc.FixedSize("camera_frame", 1024, 64)
	creator, err := node.Service("demo/camera/front").
		PublishSubscribe(td).
		Attributes(attr.NewSet().
			Define("camera_resolution", "1920x1080").
			Define("camera_position", "front").
			Define("dds_service_mapping", "front_camera")).
		Create()
	if err != nil {
		log.Fatal().Err(err).Msg("creating service failed")
	}
	defer creator.Close()
	for _, e := range creator.Attributes().Entries() {
		log.Info().Str("key", e.Key).Str("value", e.Value).Msg("stored attribute")
	}

	opened, err := node.Service("demo/camera/front").
		PublishSubscribe(td).
		Verifier(attr.NewVerifier().
			Require("camera_resolution", "1920x1080").
			RequireKey("camera_position")).
		Open()
	if err != nil {
		log.Fatal().Err(err).Msg("opening with satisfiable requirements failed")
	}
	log.Info().Str("uuid", opened.UUID().String()).Msg("requirements satisfied, service opened")
	opened.Close()

	_, err = node.Service("demo/camera/front").
		PublishSubscribe(td).
		Verifier(attr.NewVerifier().Require("camera_resolution", "3840x2160")).
		Open()
	if errors.Is(err, ipc.ErrIncompatibleAttributes) {
		log.Info().Err(err).Msg("unsatisfiable requirement rejected as expected")
	} else {
		log.Fatal().Err(err).Msg("expected an attribute rejection")
	}
}
