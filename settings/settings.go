// Package settings persists single byte machine parameters keyed by name.
package settings

import (
	"errors"
	"sync"

	logger "github.com/d2r2/go-logger"
)

var lg = logger.NewPackageLogger("settings", logger.InfoLevel)

type Key string

const (
	TiltAngle     Key = "tilt_angle"
	TiltSpeed     Key = "tilt_speed"
	PlatformSpeed Key = "platform_speed"
	Layer         Key = "layer"
	BaseLayer     Key = "base_layer"
)

// Keys lists all known keys in storage order.
var Keys = []Key{TiltAngle, TiltSpeed, PlatformSpeed, Layer, BaseLayer}

// ErrNotFound is returned by Load when value was never saved.
var ErrNotFound = errors.New("setting not found")

// Store reads and writes single values. Save of a value equal to stored one
// must not wear storage.
type Store interface {
	Load(key Key) (uint8, error)
	Save(key Key, v uint8) error
}

// Memory is a volatile Store.
type Memory struct {
	mu     sync.Mutex
	values map[Key]uint8
	writes int
}

func NewMemory() *Memory {
	return &Memory{values: make(map[Key]uint8)}
}

func (m *Memory) Load(key Key) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

func (m *Memory) Save(key Key, v uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.values[key]; ok && old == v {
		return nil
	}
	m.values[key] = v
	m.writes++
	return nil
}

// Writes returns number of stored changes.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
