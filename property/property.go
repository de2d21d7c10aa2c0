// Package property persists each container's string-to-string property
// map as a single properties.json file under its private/ subdirectory.
// Writes are atomic (write-temp-then-rename); any read-modify-write
// cycle (set, remove) takes a per-container exclusive lock so concurrent
// callers against the same container never interleave.
package property

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const fileName = "properties.json"

// Service is the Property Service. It is safe for concurrent use across
// containers; operations on different containers never block each
// other.
type Service struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService returns an empty Service.
func NewService() *Service {
	return &Service{locks: make(map[string]*sync.Mutex)}
}

func (s *Service) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func propertiesPath(privateDir string) string {
	return filepath.Join(privateDir, fileName)
}

// readAll loads the property map from privateDir. A missing file reads
// as an empty map, not an error.
func readAll(privateDir string) (map[string]string, error) {
	b, err := os.ReadFile(propertiesPath(privateDir))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrap(err, "read properties file")
	}
	props := map[string]string{}
	if len(b) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(b, &props); err != nil {
		return nil, errors.Wrap(err, "parse properties file")
	}
	return props, nil
}

// writeAll atomically replaces privateDir's properties.json with props.
func writeAll(privateDir string, props map[string]string) error {
	b, err := json.MarshalIndent(props, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal properties")
	}

	path := propertiesPath(privateDir)
	tmp, err := os.CreateTemp(privateDir, fileName+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp properties file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write temp properties file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp properties file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "rename properties file into place")
	}
	return nil
}

// SetProperties replaces id's entire property map with props.
func (s *Service) SetProperties(id, privateDir string, props map[string]string) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()
	return writeAll(privateDir, props)
}

// GetProperty returns key's value for id, reporting whether it was
// present.
func (s *Service) GetProperty(id, privateDir, key string) (string, bool, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()
	props, err := readAll(privateDir)
	if err != nil {
		return "", false, err
	}
	v, ok := props[key]
	return v, ok, nil
}

// RemoveProperty deletes key from id's property map, if present.
func (s *Service) RemoveProperty(id, privateDir, key string) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()
	props, err := readAll(privateDir)
	if err != nil {
		return err
	}
	if _, ok := props[key]; !ok {
		return nil
	}
	delete(props, key)
	return writeAll(privateDir, props)
}

// GetAll returns a snapshot copy of id's entire property map.
func (s *Service) GetAll(id, privateDir string) (map[string]string, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()
	return readAll(privateDir)
}

// Forget drops the in-memory lock tracked for id, called once a
// container is destroyed so the Service doesn't retain locks forever
// for containers that no longer exist.
func (s *Service) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, id)
}
