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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zerobus/zerobus.go/pkg/metrics"
)

const (
	metricsNamespace = "zerobus"
	metricsSubsystem = "ipc"
)

// open rejection reasons
const (
	rejectionVersion       = "version"
	rejectionConfiguration = "configuration"
	rejectionAttributes    = "attributes"
)

var (
	servicesCreatedCounter = metrics.GetOrMustRegisterCounter(&prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "services_created_total",
		Help:      "Number of services created by this process",
	})

	servicesOpenedCounter = metrics.GetOrMustRegisterCounter(&prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "services_opened_total",
		Help:      "Number of existing services opened by this process",
	})

	openRejectionsCounter = metrics.GetOrMustRegisterCounterVec(&metrics.CounterVecOpts{
		CounterOpts: &prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "service_open_rejections_total",
			Help:      "Number of open attempts rejected, by reason",
		},
		Labels: []string{"reason"},
	})

	portsCreatedCounter = metrics.GetOrMustRegisterCounterVec(&metrics.CounterVecOpts{
		CounterOpts: &prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "ports_created_total",
			Help:      "Number of ports created by this process, by kind",
		},
		Labels: []string{"kind"},
	})

	portsLiveGauge = metrics.GetOrMustRegisterGaugeVec(&metrics.GaugeVecOpts{
		GaugeOpts: &prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "ports_live",
			Help:      "Number of this process's currently open ports, by kind",
		},
		Labels: []string{"kind"},
	})

	staleServicesRemovedCounter = metrics.GetOrMustRegisterCounter(&prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "stale_services_removed_total",
		Help:      "Number of stale service records removed by the janitor",
	})
)
