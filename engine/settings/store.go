package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
)

// store is the implementation of the Store interface.
type store struct {
	mu       *sync.Mutex
	name     string
	current  EffectSettings
	revision uint64
	onChange []func(EffectSettings)
}

// Store owns the live settings record. Readers take immutable snapshots; writers replace
// the record under a lock and bump the revision. Safe for concurrent use so a file watcher
// can reload settings while the render thread snapshots them.
type Store interface {
	// Name returns the key the settings are stored under in a shared host document.
	//
	// Returns:
	//   - string: the document key
	Name() string

	// Snapshot returns a copy of the current settings.
	//
	// Returns:
	//   - EffectSettings: the current settings by value
	Snapshot() EffectSettings

	// Revision returns a counter that increases on every change.
	//
	// Returns:
	//   - uint64: the current revision
	Revision() uint64

	// Replace swaps in a whole settings record.
	//
	// Parameters:
	//   - s: the new settings
	Replace(s EffectSettings)

	// Update mutates the settings in place under the store lock.
	//
	// Parameters:
	//   - fn: the mutation to apply to the current settings
	Update(fn func(s *EffectSettings))

	// Reset restores the documented defaults.
	Reset()

	// LoadDocument reads the settings object stored under Name() in a host JSON document.
	// Leaves the settings untouched when the key is absent or not an object.
	//
	// Parameters:
	//   - doc: the host document keyed by effect name
	//
	// Returns:
	//   - bool: true if settings were found and applied
	LoadDocument(doc map[string]json.RawMessage) bool

	// SaveDocument writes the current settings into a host JSON document under Name().
	//
	// Parameters:
	//   - doc: the host document to write into
	//
	// Returns:
	//   - error: an error if encoding fails
	SaveDocument(doc map[string]json.RawMessage) error

	// LoadFile replaces the settings from a .json or .toml file.
	//
	// Parameters:
	//   - path: the settings file path
	//
	// Returns:
	//   - error: an error if the file cannot be read or is not a settings document
	LoadFile(path string) error

	// SaveFile writes the settings to a .json or .toml file.
	//
	// Parameters:
	//   - path: the settings file path
	//
	// Returns:
	//   - error: an error if encoding or writing fails
	SaveFile(path string) error
}

var _ Store = &store{}

// NewStore creates a Store holding the default settings.
//
// Parameters:
//   - options: functional options applied to the store
//
// Returns:
//   - Store: the new store
func NewStore(options ...StoreBuilderOption) Store {
	s := &store{
		mu:      &sync.Mutex{},
		name:    DefaultName,
		current: Defaults(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *store) Name() string {
	return s.name
}

func (s *store) Snapshot() EffectSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

func (s *store) Replace(next EffectSettings) {
	s.mu.Lock()
	s.current = next
	s.revision++
	callbacks := s.onChange
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(next)
	}
}

func (s *store) Update(fn func(s *EffectSettings)) {
	s.mu.Lock()
	next := s.current
	s.mu.Unlock()

	fn(&next)
	s.Replace(next)
}

func (s *store) Reset() {
	s.Replace(Defaults())
}

func (s *store) LoadDocument(doc map[string]json.RawMessage) bool {
	raw, ok := doc[s.name]
	if !ok {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return false
	}

	next, fallbacks := DecodeObject(obj)
	s.logFallbacks(s.name, fallbacks)
	s.Replace(next)
	return true
}

func (s *store) SaveDocument(doc map[string]json.RawMessage) error {
	data, err := EncodeJSON(s.Snapshot())
	if err != nil {
		return err
	}
	doc[s.name] = data
	return nil
}

func (s *store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("settings: read %q: %w", path, err)
	}
	next, fallbacks, err := decodeFile(path, data)
	if err != nil {
		return err
	}
	s.logFallbacks(path, fallbacks)
	s.Replace(next)
	return nil
}

func (s *store) SaveFile(path string) error {
	data, err := encodeFile(path, s.Snapshot())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("settings: write %q: %w", path, err)
	}
	return nil
}

func (s *store) logFallbacks(source string, fallbacks []string) {
	for _, name := range fallbacks {
		common.Logger().Warn("[Settings] malformed field, using default", "source", source, "field", name)
	}
}
