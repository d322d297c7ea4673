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

// Package shm implements discovery storage on memory mapped files. Each
// service is one record file under the configured root, created atomically
// with O_EXCL and published by flipping a ready flag, so concurrent creators
// resolve the race without any broker or lock file. On Linux the root is
// typically /dev/shm, which keeps the records off disk.
package shm

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zerobus/zerobus.go/pkg/ipc"
	"github.com/zerobus/zerobus.go/pkg/ipc/attr"
	"github.com/zerobus/zerobus.go/pkg/logging"
)

const recordSuffix = ".svc"

// ready-flag wait : a creator writes a record in well under a millisecond, so
// 500 x 1ms covers even a heavily preempted creator.
const (
	readyWaitAttempts = 500
	readyWaitInterval = time.Millisecond
)

// abandonedRecordDeadline is how long a record may stay unready before it is
// treated as the leftover of a creator that died between the exclusive file
// creation and publication. Generous compared to the ready wait, so a merely
// preempted creator is never mistaken for a dead one.
const abandonedRecordDeadline = 10 * time.Second

var errNotReady = errors.New("record is not ready")

// Storage implements ipc.Storage on record files under rootPath. It is safe
// for concurrent use by any number of goroutines and processes.
type Storage struct {
	rootPath string
	prefix   string
	logger   zerolog.Logger
}

// NewStorage creates a Storage rooted at rootPath. prefix is prepended to
// every record file name and namespaces concurrent deployments sharing a root.
func NewStorage(rootPath, prefix string) *Storage {
	return &Storage{
		rootPath: rootPath,
		prefix:   prefix,
		logger:   logging.NewTypeLogger(Storage{}),
	}
}

// NewStorageFromConfig creates a Storage from the config's global section.
func NewStorageFromConfig(config *ipc.Config) *Storage {
	return NewStorage(config.Global.RootPath, config.Global.Prefix)
}

// recordPath hashes the service name into the record file name. The name
// itself is stored inside the record; hashing sidesteps file name length and
// character restrictions.
func (a *Storage) recordPath(name ipc.ServiceName) string {
	h := fnv.New64a()
	h.Write([]byte(name))
	return filepath.Join(a.rootPath, fmt.Sprintf("%s%016x%s", a.prefix, h.Sum64(), recordSuffix))
}

// Lookup attaches to the record for name.
//
// errors:
//   - ipc.ErrServiceNotFound
func (a *Storage) Lookup(name ipc.ServiceName) (ipc.StorageHandle, error) {
	rec, err := a.attach(a.recordPath(name), name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, errNotReady) {
			// a record still under construction is not observable
			return nil, ipc.ErrServiceNotFound
		}
		return nil, err
	}
	return rec, nil
}

// CreateIfAbsent attaches to the record for name, creating it from spec if it
// does not exist. For a given name at most one caller across all processes
// observes created == true; the O_EXCL file creation is the arbiter.
//
// errors:
//   - ipc.ErrCreateRace
//   - ipc.ErrAttributesTooLarge
func (a *Storage) CreateIfAbsent(name ipc.ServiceName, spec ipc.CreateSpec) (ipc.StorageHandle, bool, error) {
	attributes := spec.Attributes
	if attributes == nil {
		attributes = attr.NewSet()
	}
	encoded, err := attributes.MarshalBinary()
	if err != nil {
		return nil, false, err
	}
	if len(encoded) > attrRegionCap {
		return nil, false, fmt.Errorf("attributes encode to %d bytes, capacity is %d : %w",
			len(encoded), attrRegionCap, ipc.ErrAttributesTooLarge)
	}

	path := a.recordPath(name)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, false, err
		}
		// lost the race : attach to the winner's record
		rec, err := a.attach(path, name)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) || errors.Is(err, errNotReady) {
				return nil, false, ipc.ErrCreateRace
			}
			return nil, false, err
		}
		return rec, false, nil
	}

	rec, err := a.fill(file, path, name, spec, encoded)
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, false, err
	}
	a.logger.Debug().
		Str(logging.NAME, string(name)).
		Str(logging.ID, spec.UUID.String()).
		Msg("record created")
	return rec, true, nil
}

// fill sizes, maps, and populates a freshly created record file, publishing
// it as the last step.
func (a *Storage) fill(file *os.File, path string, name ipc.ServiceName, spec ipc.CreateSpec, encoded []byte) (*record, error) {
	params := spec.Static.Params()
	size := recordSize(params.MaxPublishers, params.MaxSubscribers)
	if err := file.Truncate(int64(size)); err != nil {
		return nil, err
	}
	data, err := mmapFile(file, int(size))
	if err != nil {
		return nil, err
	}
	rec := &record{name: name, path: path, file: file, data: data}
	if err := rec.initialize(name, spec, encoded); err != nil {
		munmapFile(data)
		return nil, err
	}
	rec.publish()
	return rec, nil
}

// attach maps an existing record and waits for its ready flag. The creator
// truncates to the final size before writing anything, so a non-empty file
// already has its final size.
func (a *Storage) attach(path string, name ipc.ServiceName) (*record, error) {
	for attempt := 0; attempt < readyWaitAttempts; attempt++ {
		rec, err := a.attachOnce(path, name)
		if err == nil || !errors.Is(err, errNotReady) {
			return rec, err
		}
		time.Sleep(readyWaitInterval)
	}
	// the creator either died before publishing or is still far behind;
	// reclaim the former so the name does not stay bricked forever
	a.reclaimAbandoned(path)
	return nil, errNotReady
}

// reclaimAbandoned removes a record that has been unready past the
// abandonment deadline. The next create attempt then wins the exclusive file
// creation and the service name becomes usable again.
func (a *Storage) reclaimAbandoned(path string) bool {
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) < abandonedRecordDeadline {
		return false
	}
	// the creator may have published since the last attach attempt
	if rec, err := a.attachOnce(path, ""); err == nil {
		rec.Close()
		return false
	}
	if err := os.Remove(path); err != nil {
		return false
	}
	a.logger.Warn().Str("path", path).Msg("removed abandoned record")
	return true
}

func (a *Storage) attachOnce(path string, name ipc.ServiceName) (*record, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		file.Close()
		return nil, errNotReady
	}
	data, err := mmapFile(file, int(info.Size()))
	if err != nil {
		file.Close()
		return nil, err
	}
	rec := &record{name: name, path: path, file: file, data: data}
	if !rec.isReady() {
		rec.Close()
		return nil, errNotReady
	}
	if err := rec.validate(); err != nil {
		rec.Close()
		return nil, err
	}
	if name == "" {
		rec.name = rec.storedName()
	}
	return rec, nil
}

// Remove destroys the record for name. Processes holding mapped views keep
// them until they close their handles; the kernel reclaims the memory with
// the last mapping.
//
// errors:
//   - ipc.ErrServiceNotFound
func (a *Storage) Remove(name ipc.ServiceName) error {
	if err := os.Remove(a.recordPath(name)); err != nil {
		if os.IsNotExist(err) {
			return ipc.ErrServiceNotFound
		}
		return err
	}
	a.logger.Debug().Str(logging.NAME, string(name)).Msg("record removed")
	return nil
}

// List returns the names of all published records under the root. Records
// still under construction are skipped.
func (a *Storage) List() ([]ipc.ServiceName, error) {
	entries, err := os.ReadDir(a.rootPath)
	if err != nil {
		return nil, err
	}
	var names []ipc.ServiceName
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()
		if !strings.HasPrefix(fileName, a.prefix) || !strings.HasSuffix(fileName, recordSuffix) {
			continue
		}
		path := filepath.Join(a.rootPath, fileName)
		rec, err := a.attachOnce(path, "")
		if err != nil {
			if errors.Is(err, errNotReady) {
				a.reclaimAbandoned(path)
			}
			continue
		}
		names = append(names, rec.Name())
		rec.Close()
	}
	return names, nil
}
