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

// Command pubsub resolves a publish-subscribe service and attaches ports to
// it. Run it in several terminals at once : the first instance creates the
// service, the rest open it, and every instance sees the live participant
// counts of all of them.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zerobus/zerobus.go/pkg/ipc"
	"github.com/zerobus/zerobus.go/pkg/ipc/shm"
	"github.com/zerobus/zerobus.go/pkg/logging"
)

func main() {
	name := flag.String("name", "demo/pubsub", "service name")
	runFor := flag.Duration("run-for", 10*time.Second, "how long to stay attached")
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config := ipc.DefaultConfig()
	zerolog.SetGlobalLevel(logging.LevelFromString(config.Global.LogLevel))
	node, err := ipc.NewNode(config, shm.NewStorageFromConfig(config))
	if err != nil {
		log.Fatal().Err(err).Msg("creating node failed")
	}

	service, err := node.Service(*name).
		PublishSubscribe(ipc.FixedSize("demo_payload", 64, 8)).
		MaxPublishers(4).
		MaxSubscribers(8).
		OpenOrCreate()
	if err != nil {
		log.Fatal().Err(err).Msg("resolving service failed")
	}
	defer service.Close()

	factory := service.PortFactory()
	publisher, err := factory.Publisher().MaxLoanedSamples(2).Create()
	if err != nil {
		log.Fatal().Err(err).Msg("creating publisher failed")
	}
	defer publisher.Close()
	subscriber, err := factory.Subscriber().BufferSize(2).Create()
	if err != nil {
		log.Fatal().Err(err).Msg("creating subscriber failed")
	}
	defer subscriber.Close()

	log.Info().
		Str("service", string(service.Name())).
		Str("uuid", service.UUID().String()).
		Msg("attached")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.After(*runFor)
	for {
		select {
		case <-ticker.C:
			dynamic := service.DynamicConfig()
			log.Info().
				Uint64("publishers", dynamic.NumberOfPublishers()).
				Uint64("subscribers", dynamic.NumberOfSubscribers()).
				Msg("participants")
		case <-deadline:
			log.Info().Msg("detaching")
			return
		}
	}
}
