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

// Package metrics centralizes prometheus metric registration. Metrics are
// registered once and cached by fully qualified name, so that independent
// components can safely request the same metric.
package metrics

import (
	"errors"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zerobus/zerobus.go/pkg/logging"
)

type metricsPackage struct{}

var logger = logging.NewPackageLogger(metricsPackage{})

// metric registration errors
var (
	ErrMetricAlreadyRegisteredWithDifferentOpts = errors.New("MetricAlreadyRegisteredWithDifferentOpts")
	ErrMetricNameUsedByDifferentMetricType      = errors.New("MetricNameUsedByDifferentMetricType")
)

// MetricType enumerates the supported metric types
type MetricType int

// MetricType values
const (
	MetricType_UNKNOWN MetricType = iota

	MetricType_COUNTER
	MetricType_GAUGE

	MetricType_COUNTER_VEC
	MetricType_GAUGE_VEC
)

func (a MetricType) Value() int {
	return int(a)
}

func (a MetricType) String() string {
	switch a {
	case MetricType_COUNTER:
		return "Counter"
	case MetricType_GAUGE:
		return "Gauge"
	case MetricType_COUNTER_VEC:
		return "CounterVec"
	case MetricType_GAUGE_VEC:
		return "GaugeVec"
	default:
		return "UNKNOWN"
	}
}

// Counter pairs a registered counter with the opts it was registered with
type Counter struct {
	prometheus.Counter
	*prometheus.CounterOpts
}

// CounterVec pairs a registered counter vector with the opts it was registered with
type CounterVec struct {
	*prometheus.CounterVec
	*CounterVecOpts
}

// Gauge pairs a registered gauge with the opts it was registered with
type Gauge struct {
	prometheus.Gauge
	*prometheus.GaugeOpts
}

// GaugeVec pairs a registered gauge vector with the opts it was registered with
type GaugeVec struct {
	*prometheus.GaugeVec
	*GaugeVecOpts
}

// CounterVecOpts are the opts for a counter vector metric
type CounterVecOpts struct {
	*prometheus.CounterOpts
	Labels []string
}

// GaugeVecOpts are the opts for a gauge vector metric
type GaugeVecOpts struct {
	*prometheus.GaugeOpts
	Labels []string
}

// CounterFQName returns the fully qualified name for the counter.
func CounterFQName(opts *prometheus.CounterOpts) string {
	o := prometheus.Opts(*opts)
	return MetricFQName(&o)
}

// GaugeFQName returns the fully qualified name for the gauge.
func GaugeFQName(opts *prometheus.GaugeOpts) string {
	o := prometheus.Opts(*opts)
	return MetricFQName(&o)
}

// MetricFQName returns the fully qualified metric name : namespace_subsystem_name
func MetricFQName(opts *prometheus.Opts) string {
	return prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)
}

// CounterOptsMatch return true if the 2 opts match
func CounterOptsMatch(opts1, opts2 *prometheus.CounterOpts) bool {
	if CounterFQName(opts1) != CounterFQName(opts2) {
		return false
	}
	if opts1.Help != opts2.Help {
		return false
	}
	return stringMapsAreEqual(opts1.ConstLabels, opts2.ConstLabels)
}

// GaugeOptsMatch return true if the 2 opts match
func GaugeOptsMatch(opts1, opts2 *prometheus.GaugeOpts) bool {
	if GaugeFQName(opts1) != GaugeFQName(opts2) {
		return false
	}
	if opts1.Help != opts2.Help {
		return false
	}
	return stringMapsAreEqual(opts1.ConstLabels, opts2.ConstLabels)
}

// CounterVecOptsMatch return true if the 2 opts match
func CounterVecOptsMatch(opts1, opts2 *CounterVecOpts) bool {
	if opts1 == nil && opts2 == nil {
		return true
	}
	if opts1 == nil || opts2 == nil {
		return false
	}
	if !CounterOptsMatch(opts1.CounterOpts, opts2.CounterOpts) {
		return false
	}
	return sortedLabelsAreEqual(opts1.Labels, opts2.Labels)
}

// GaugeVecOptsMatch return true if the 2 opts match
func GaugeVecOptsMatch(opts1, opts2 *GaugeVecOpts) bool {
	if opts1 == nil && opts2 == nil {
		return true
	}
	if opts1 == nil || opts2 == nil {
		return false
	}
	if !GaugeOptsMatch(opts1.GaugeOpts, opts2.GaugeOpts) {
		return false
	}
	return sortedLabelsAreEqual(opts1.Labels, opts2.Labels)
}

func sortedLabelsAreEqual(labels1, labels2 []string) bool {
	if len(labels1) != len(labels2) {
		return false
	}
	sort.Strings(labels1)
	sort.Strings(labels2)
	for i := range labels1 {
		if labels1[i] != labels2[i] {
			return false
		}
	}
	return true
}

func stringMapsAreEqual(m1, m2 map[string]string) bool {
	if len(m1) != len(m2) {
		return false
	}
	for k, v := range m1 {
		if m2[k] != v {
			return false
		}
	}
	return true
}
