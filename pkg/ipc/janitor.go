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
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"

	"github.com/zerobus/zerobus.go/pkg/logging"
)

// DefaultJanitorInterval is the sweep interval used when none is configured.
const DefaultJanitorInterval = 30 * time.Second

// Janitor removes discovery records left behind by crashed processes : a
// record whose creator is gone and which has no live ports is stale. Every
// node may run a janitor; removal races between janitors are benign because
// removal is idempotent.
type Janitor struct {
	tomb.Tomb

	storage  Storage
	interval time.Duration
	logger   zerolog.Logger
}

// NewJanitor creates and starts a Janitor sweeping the storage at the given
// interval. interval <= 0 means DefaultJanitorInterval. Stop it with Stop.
func NewJanitor(storage Storage, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	a := &Janitor{
		storage:  storage,
		interval: interval,
	}
	a.logger = logging.NewTypeLogger(a)
	a.Go(a.run)
	return a
}

func (a *Janitor) run() error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.Dying():
			return nil
		case <-ticker.C:
			a.Sweep()
		}
	}
}

// Sweep scans all records once and removes the stale ones. It returns the
// number of records removed. Sweep may be called directly to force a scan.
func (a *Janitor) Sweep() int {
	const FUNC = "Sweep"
	names, err := a.storage.List()
	if err != nil {
		a.logger.Warn().Str(logging.FUNC, FUNC).Err(err).Msg("listing services failed")
		return 0
	}
	removed := 0
	for _, name := range names {
		handle, err := a.storage.Lookup(name)
		if err != nil {
			// already removed, or mid-creation - either way not ours to touch
			continue
		}
		stale := !processAlive(handle.CreatorPID()) &&
			handle.DynamicConfig().NumberOfPublishers() == 0 &&
			handle.DynamicConfig().NumberOfSubscribers() == 0
		handle.Close()
		if !stale {
			continue
		}
		if err := a.storage.Remove(name); err != nil {
			if !errors.Is(err, ErrServiceNotFound) {
				a.logger.Warn().Str(logging.FUNC, FUNC).
					Str(logging.NAME, string(name)).
					Err(err).
					Msg("removing stale service failed")
			}
			continue
		}
		staleServicesRemovedCounter.Inc()
		removed++
		a.logger.Info().Str(logging.FUNC, FUNC).
			Str(logging.NAME, string(name)).
			Msg("removed stale service")
	}
	return removed
}

// Stop terminates the sweep loop and waits for it to finish.
func (a *Janitor) Stop() error {
	a.Kill(nil)
	return a.Wait()
}

// processAlive reports whether a process with the given pid exists. Signal 0
// probes existence without delivering a signal; EPERM still proves existence.
func processAlive(pid uint32) bool {
	process, err := os.FindProcess(int(pid))
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
