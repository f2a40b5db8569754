package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
)

// File is a Store backed by a flat TOML table of key = value pairs. Used
// when running without the settings EEPROM.
type File struct {
	path string

	mu     sync.Mutex
	values map[string]uint8
}

// OpenFile reads existing file if present. Missing file is an empty store.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, values: make(map[string]uint8)}
	if _, err := toml.DecodeFile(path, &f.values); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}
	return f, nil
}

func (f *File) Load(key Key) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[string(key)]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

func (f *File) Save(key Key, v uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if old, ok := f.values[string(key)]; ok && old == v {
		return nil
	}
	f.values[string(key)] = v
	if err := f.flush(); err != nil {
		return err
	}
	lg.Infof("saved %s=%d", key, v)
	return nil
}

// flush must be called with lock held.
func (f *File) flush() error {
	tmp := f.path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := toml.NewEncoder(out).Encode(f.values); err != nil {
		out.Close()
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, f.path)
}
